package chat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"invagro/internal/analytics"
	"invagro/internal/textnorm"
)

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	yearRe    = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	diasRe    = regexp.MustCompile(`\b(\d{1,3})\s*dias?\b`)
	mesesRe   = regexp.MustCompile(`\b(\d{1,2})\s*mes(?:es)?\b`)
	limitRe   = regexp.MustCompile(`\b(?:top|primeros|mejores)\s*(\d{1,2})\b|\b(\d{1,2})\s+(?:productos|articulos)\b`)
)

var months = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

const (
	defaultInactiveDays = 90
	defaultRangeDays    = 30
)

// SelectFallback guesses a tool from keywords when the model gave nothing
// usable. Rules are checked in order; the first match wins. Client ids are
// left nil so the registry resolves them from the question text.
func SelectFallback(message string, now time.Time) (analytics.Params, bool) {
	text := textnorm.Normalize(message)
	switch {
	case strings.Contains(text, "disminu") || strings.Contains(text, "dejo de comprar") || strings.Contains(text, "compro menos"):
		actual, pasado := yearPair(text, now)
		return analytics.ProductosDisminuidosParams{YearActual: actual, YearPasado: pasado}, true

	case strings.Contains(text, "inactiv") || strings.Contains(text, "sin compr") || strings.Contains(text, "no han comprado"):
		return analytics.ClientesInactivosParams{Dias: inactiveDays(text)}, true

	case strings.Contains(text, "cliente") && strings.Contains(text, "producto"):
		from, to := dateRange(text, now)
		return analytics.ProductosPorClienteParams{FechaInicio: from, FechaFin: to, Limite: limitFrom(text)}, true

	case rankingQuestion(text):
		from, to := dateRange(text, now)
		return analytics.TopProductosParams{FechaInicio: from, FechaFin: to, Limite: limitFrom(text)}, true

	// Purchases need a named client; "which client bought most" is a ranking
	// over clients that no tool answers.
	case strings.Contains(text, "compr") && !strings.Contains(text, "producto") && !asksWhichClient(text):
		from, to := dateRange(text, now)
		return analytics.ComprasPorClienteParams{FechaInicio: from, FechaFin: to}, true

	case strings.Contains(text, "producto") && (strings.Contains(text, "compr") || strings.Contains(text, "vend")):
		from, to := dateRange(text, now)
		return analytics.TopProductosParams{FechaInicio: from, FechaFin: to, Limite: limitFrom(text)}, true
	}
	return nil, false
}

func rankingQuestion(text string) bool {
	for _, kw := range []string{"top", "mas vendid", "mas se vend", "mas comprad", "mas se compr"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func asksWhichClient(text string) bool {
	for _, kw := range []string{"que cliente", "cual cliente", "cuales clientes", "que clientes", "quien"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// dateRange picks, in order: explicit ISO dates, a month name (with optional
// year), a bare year, or the last 30 days.
func dateRange(text string, now time.Time) (string, string) {
	const layout = "2006-01-02"
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if found := isoDateRe.FindAllString(text, -1); len(found) > 0 {
		var dates []time.Time
		for _, s := range found {
			if d, err := time.Parse(layout, s); err == nil {
				dates = append(dates, d)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		switch {
		case len(dates) >= 2:
			return dates[0].Format(layout), dates[len(dates)-1].Format(layout)
		case len(dates) == 1:
			return dates[0].Format(layout), today.Format(layout)
		}
	}

	year := 0
	if m := yearRe.FindStringSubmatch(text); m != nil {
		year, _ = strconv.Atoi(m[1])
	}
	for _, tok := range strings.Fields(text) {
		month, ok := months[tok]
		if !ok {
			continue
		}
		y := year
		if y == 0 {
			y = today.Year()
		}
		start := time.Date(y, month, 1, 0, 0, 0, 0, time.UTC)
		return start.Format(layout), start.AddDate(0, 1, -1).Format(layout)
	}
	if year != 0 {
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(layout),
			time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).Format(layout)
	}
	return today.AddDate(0, 0, -defaultRangeDays).Format(layout), today.Format(layout)
}

// yearPair returns (actual, pasado): the two most recent distinct years
// mentioned, or the current and previous year.
func yearPair(text string, now time.Time) (int, int) {
	seen := map[int]bool{}
	var years []int
	for _, m := range yearRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	switch len(years) {
	case 0:
		return now.Year(), now.Year() - 1
	case 1:
		return years[0], years[0] - 1
	}
	return years[0], years[1]
}

func inactiveDays(text string) int {
	if m := diasRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= analytics.MaxRangeDays {
			return n
		}
	}
	if m := mesesRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n*30 <= analytics.MaxRangeDays {
			return n * 30
		}
	}
	return defaultInactiveDays
}

func limitFrom(text string) *int {
	m := limitRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > analytics.MaxRows {
		return nil
	}
	return &n
}
