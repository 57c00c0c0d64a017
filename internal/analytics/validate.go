package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ErrToolNotPermitted is returned for any tool name outside the catalog.
var ErrToolNotPermitted = errors.New("tool not permitted")

// ToolError carries a message meant to be shown to the user as is.
type ToolError struct {
	Msg string
}

func (e *ToolError) Error() string { return e.Msg }

func toolErrorf(format string, args ...any) error {
	return &ToolError{Msg: fmt.Sprintf(format, args...)}
}

const dateLayout = "2006-01-02"

// Decode validates raw JSON arguments against the tool's schema and decodes
// them into its typed params. Unknown and missing keys are rejected before
// any type or domain check.
func Decode(name string, args json.RawMessage) (Params, error) {
	def, ok := lookup(ToolName(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotPermitted, name)
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(args, &keys); err != nil {
		return nil, toolErrorf("parámetros inválidos para %s: se esperaba un objeto JSON", name)
	}

	var extra []string
	for k := range keys {
		if !def.properties[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, toolErrorf("parámetros no permitidos para %s: %s", name, strings.Join(extra, ", "))
	}
	var missing []string
	for _, k := range def.required {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, toolErrorf("faltan parámetros para %s: %s", name, strings.Join(missing, ", "))
	}

	ptr := reflect.New(def.params)
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, toolErrorf("parámetros con tipo inválido para %s: %v", name, err)
	}
	return ptr.Elem().Interface().(Params), nil
}

// EnsureDateRange reports whether end is not before start and the span is at most MaxRangeDays.
func EnsureDateRange(start, end time.Time) bool {
	if end.Before(start) {
		return false
	}
	return daysBetween(start, end) <= MaxRangeDays
}

func daysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// parseRange parses and validates an inclusive date range.
func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, toolErrorf("fecha_inicio inválida %q, use el formato AAAA-MM-DD", from)
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, toolErrorf("fecha_fin inválida %q, use el formato AAAA-MM-DD", to)
	}
	if !EnsureDateRange(start, end) {
		return time.Time{}, time.Time{}, toolErrorf("rango de fechas inválido: la fecha final debe ser posterior a la inicial y el rango no puede superar %d días", MaxRangeDays)
	}
	return start, end, nil
}

func resolveLimit(limite *int) (int, error) {
	if limite == nil {
		return DefaultLimit, nil
	}
	if *limite < 1 || *limite > MaxRows {
		return 0, toolErrorf("limite debe estar entre 1 y %d", MaxRows)
	}
	return *limite, nil
}

func validateDias(dias int) error {
	if dias < 1 || dias > MaxRangeDays {
		return toolErrorf("dias debe estar entre 1 y %d", MaxRangeDays)
	}
	return nil
}

func validateYears(actual, pasado int, now time.Time) error {
	maxYear := now.Year() + 1
	for _, y := range []int{actual, pasado} {
		if y < 2000 || y > maxYear {
			return toolErrorf("año inválido %d", y)
		}
	}
	if actual == pasado {
		return toolErrorf("year_actual y year_pasado deben ser distintos")
	}
	return nil
}
