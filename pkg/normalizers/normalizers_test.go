package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOwnerName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normal", "ACME HOLDINGS LLC", "ACME HOLDINGS LLC"},
		{"lowercase input", "acme holdings llc", "ACME HOLDINGS LLC"},
		{"dotted abbreviations collapse", "A.C.M.E. Holdings, L.L.C.", "ACME HOLDINGS LLC"},
		{"ampersand becomes separator", "SMITH&JONES LP", "SMITH JONES LP"},
		{"hyphenated names split", "OAK-TREE PARTNERS", "OAK TREE PARTNERS"},
		{"repeated whitespace collapses", "  ACME   LLC  ", "ACME LLC"},
		{"empty", "", ""},
		{"punctuation only", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOwnerName(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"street abbreviated", "1 Main Street", "1 MAIN ST"},
		{"direction and suffix", "100 North Oak Avenue", "100 N OAK AVE"},
		{"already abbreviated", "1 MAIN ST", "1 MAIN ST"},
		{"suite folded", "55 ELM DRIVE, SUITE 200", "55 ELM DR STE 200"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "ACMELLC", ApplyChain(" Acme, LLC ", "nowner", "remove_whitespace"))
}

func TestApply_UnknownNormalizerPassesThrough(t *testing.T) {
	assert.Equal(t, "unchanged", Apply("unchanged", "does-not-exist"))
}

func TestRegister(t *testing.T) {
	Register("reverse-test", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	fn, ok := Get("reverse-test")
	assert.True(t, ok)
	assert.Equal(t, "cba", fn("abc"))
}
