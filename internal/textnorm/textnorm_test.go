package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Médico   VETERINARIO ":      "medico veterinario",
		"Juan Pérez García":            "juan perez garcia",
		"¿Qué productos DISMINUYERON?": "¿que productos disminuyeron?",
		"ñandú\tÑU":                    "nandu nu",
		"":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"elimina", "el", "cliente", "ana"}, Tokens("¡ELIMINA el cliente, Ana!"))
	assert.Equal(t, []string{"top", "10", "2024"}, Tokens("top-10 (2024)"))
	assert.Empty(t, Tokens("  ...  "))
}
