package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"grace@example.com":        "Grace",
		"ada.lovelace@example.com": "Ada Lovelace",
		"ada.b.lovelace+x@ex.com":  "Ada X",
		"@example.com":             "User",
		"":                         "User",
		"émile_zola@example.com":   "Émile Zola",
	}
	for in, want := range tests {
		assert.Equal(t, want, DisplayName(in), in)
	}
}
