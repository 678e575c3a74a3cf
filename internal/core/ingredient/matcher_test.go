package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		name    string
		product string
		ref     string
		want    bool
	}{
		// exact
		{"exact", "sugar", "sugar", true},
		{"exact after stripping", "organic sugar", "sugar", true},
		{"exact keeps qualified product", "raw milk", "raw milk", true},
		{"case insensitive", "Sea Salt", "sea salt", true},

		// plural
		{"ies plural", "strawberries", "strawberry", true},
		{"es plural", "tomatoes", "tomato", true},
		{"s plural", "spices", "spice", true},
		{"ss not depluralized", "glass", "gla", false},
		{"ses plural", "cheeses", "cheese", true},
		{"ses plural in phrase", "unpasteurized cheeses", "unpasteurized cheese", true},
		{"sses plural", "glasses", "glass", true},
		{"ies plural with e singular", "cookies", "cookie", true},
		{"plural containment ses", "aged cheeses blend", "cheese", true},
		{"plural token subset ses", "unpasteurized goat cheeses", "unpasteurized cheese", true},

		// containment, reference in product only
		{"whole word containment", "cured salt pork", "salt", true},
		{"no substring containment", "saltpeter", "salt", false},
		{"reverse containment forbidden", "salt", "curing salt", false},
		{"short reference not contained", "soy sauce", "soy", false},
		{"plural containment", "dried strawberries pieces", "strawberry", true},

		// token subset
		{"subset match", "hydrogenated soybean oil", "hydrogenated oil", true},
		{"qualifier token required", "milk", "unpasteurized milk", false},
		{"qualifier token required when stripped", "raw milk", "unpasteurized milk", false},
		{"unqualified product vs qualified reference", "milk", "raw milk", false},
		{"subset needs a significant token", "vitamin e oil", "of e", false},

		// edit distance
		{"single word typo", "caffiene", "caffeine", true},
		{"single word one edit", "aspartme", "aspartame", true},
		{"multi word never fuzzy", "sodium citrate", "sodium nitrite", false},
		{"too short for fuzzy", "sugar", "sugr", false},
		{"two edits rejected for short word", "sucrose", "sucralose", false},
		{"length gap too large", "gelatin", "gelatinase", false},
		{"distinct long words", "maltodextrin", "dextrose", false},
		{"negated word not fuzzy", "pasteurized", "unpasteurized", false},
		{"negated reference not fuzzy", "unpasteurized", "pasteurized", false},
		{"in prefix not fuzzy", "digestible", "indigestible", false},

		{"empty reference", "salt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSimilar(tt.product, tt.ref))
		})
	}
}

func TestDepluralize(t *testing.T) {
	tests := map[string]string{
		"strawberries": "strawberry",
		"cherries":     "cherry",
		"pies":         "pie",
		"peaches":      "peach",
		"boxes":        "box",
		"potatoes":     "potato",
		"spices":       "spice",
		"oats":         "oat",
		"glass":        "glass",
		"gas":          "gas",
		"rice":         "rice",
	}
	for in, want := range tests {
		assert.Equal(t, want, depluralize(in), in)
	}
}

func TestSingulars(t *testing.T) {
	assert.Equal(t, []string{"chees", "cheese"}, singulars("cheeses"))
	assert.Equal(t, []string{"glass", "glasse"}, singulars("glasses"))
	assert.Equal(t, []string{"cooky", "cookie"}, singulars("cookies"))
	assert.Equal(t, []string{"oat"}, singulars("oats"))
	assert.Equal(t, []string{"glass"}, singulars("glass"))

	assert.True(t, sameWord("cheeses", "cheese"))
	assert.True(t, sameWord("peaches", "peach"))
	assert.False(t, sameWord("cheeses", "chess"))
}

func TestNegatedPair(t *testing.T) {
	assert.True(t, negatedPair("pasteurized", "unpasteurized"))
	assert.True(t, negatedPair("nondairy", "dairy"))
	assert.False(t, negatedPair("pasteurized", "pasteurised"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("sea salt", "salt"))
	assert.True(t, containsWord("salt", "salt"))
	assert.True(t, containsWord("sugar-free salt mix", "salt"))
	assert.False(t, containsWord("saltpeter", "salt"))
	assert.False(t, containsWord("basalt", "salt"))
	assert.True(t, containsWord("basalt salt", "salt"))
	assert.False(t, containsWord("", "salt"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune("milk"), []rune("milk")))
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 4, levenshtein([]rune(""), []rune("milk")))
	assert.Equal(t, 2, levenshtein([]rune("sucrose"), []rune("sucralose")))
}
