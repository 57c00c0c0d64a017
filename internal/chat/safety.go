package chat

import (
	"strings"

	"invagro/internal/textnorm"
)

// mutationWords are SQL verbs matched as whole tokens.
var mutationWords = map[string]bool{
	"insert":   true,
	"update":   true,
	"delete":   true,
	"drop":     true,
	"alter":    true,
	"truncate": true,
}

// mutationStems match Spanish verb forms (elimina, eliminar, borra, modifique...).
var mutationStems = []string{
	"elimin",
	"borra",
	"borre",
	"modific",
	"actualiz",
	"agreg",
	"insert",
}

// DetectsMutation reports whether the message asks to change data. Matching
// is case and accent insensitive.
func DetectsMutation(message string) bool {
	for _, tok := range textnorm.Tokens(message) {
		if mutationWords[tok] {
			return true
		}
		for _, stem := range mutationStems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}
