package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"lowercase passthrough", "ankara", "ankara"},
		{"turkish dotless i", "Diyarbakır", "diyarbakir"},
		{"turkish capital dotted i", "İSTANBUL", "istanbul"},
		{"full turkish alphabet", "Çanakkale Şehitliği Gölü Üzümlü", "canakkale sehitligi golu uzumlu"},
		{"combining marks stripped", "Kahramanmaraş́", "kahramanmaras"},
		{"whitespace collapsed", "  izmir \t körfezi ", "izmir korfezi"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FoldText(tt.in))
		})
	}
}

func TestMatchesLocality(t *testing.T) {
	event := Event{
		City:     "İstanbul",
		Province: "İstanbul",
		District: "Kadıköy",
		Location: "Marmara Denizi - [4.2 km] Kadıköy (İstanbul)",
		Region:   "MARMARA SEA",
	}

	t.Run("empty needle matches", func(t *testing.T) {
		assert.True(t, MatchesLocality(event, ""))
	})

	t.Run("city match is fold-insensitive", func(t *testing.T) {
		assert.True(t, MatchesLocality(event, FoldText("ISTANBUL")))
	})

	t.Run("district substring", func(t *testing.T) {
		assert.True(t, MatchesLocality(event, FoldText("kadikoy")))
	})

	t.Run("region field participates", func(t *testing.T) {
		assert.True(t, MatchesLocality(event, FoldText("marmara")))
	})

	t.Run("no field contains needle", func(t *testing.T) {
		assert.False(t, MatchesLocality(event, FoldText("Ankara")))
	})

	t.Run("empty fields are skipped", func(t *testing.T) {
		assert.False(t, MatchesLocality(Event{}, FoldText("izmir")))
	})
}
