package ingredient

import (
	"os"
	"path/filepath"
	"testing"

	"sproutscan/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultReference(t *testing.T) {
	ref, err := DefaultReference()
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Concerning)
	assert.NotEmpty(t, ref.Safe)
	assert.NoError(t, ref.Validate())
}

func TestLoadReferenceYAML(t *testing.T) {
	concerning := writeFile(t, "concerning.yaml", `
ingredients:
  - id: raw-milk
    name: Raw milk
    aliases: [unpasteurized milk]
    category: dairy
    rating: avoid
    stageRatings:
      postpartum: caution
    concerns: [Listeria]
    bottomLine: Avoid
`)
	safe := writeFile(t, "safe.yml", `
safeIngredients:
  - id: milk
    name: Milk
    aliases: []
    category: dairy
`)

	ref, err := LoadReference(concerning, safe)
	require.NoError(t, err)
	require.Len(t, ref.Concerning, 1)
	assert.Equal(t, RatingAvoid, ref.Concerning[0].RatingFor(StageAny))
	assert.Equal(t, RatingCaution, ref.Concerning[0].RatingFor(StagePostpartum))
	assert.Equal(t, RatingAvoid, ref.Concerning[0].RatingFor(StageFirstTrimester))
	require.Len(t, ref.Safe, 1)
	assert.Equal(t, "Milk", ref.Safe[0].Name)
}

func TestLoadReferenceJSONOverridesOneSet(t *testing.T) {
	safe := writeFile(t, "safe.json", `{"safeIngredients":[{"id":"water","name":"Water","aliases":["h2o"],"category":"base"}]}`)

	ref, err := LoadReference("", safe)
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Concerning, "concerning set falls back to embedded data")
	require.Len(t, ref.Safe, 1)
	assert.Equal(t, []string{"h2o"}, ref.Safe[0].Aliases)
}

func TestLoadReferenceErrors(t *testing.T) {
	tests := []struct {
		name       string
		concerning string
		safe       string
		wantErr    string
		validation bool
	}{
		{
			name:       "duplicate concerning names",
			concerning: `{"ingredients":[{"name":"Caffeine","rating":"caution"},{"name":" caffeine ","rating":"avoid"}]}`,
			wantErr:    "duplicate concerning ingredient name",
			validation: true,
		},
		{
			name:       "invalid rating",
			concerning: `{"ingredients":[{"name":"Caffeine","rating":"maybe"}]}`,
			wantErr:    "invalid rating",
			validation: true,
		},
		{
			name:       "invalid stage rating",
			concerning: `{"ingredients":[{"name":"Caffeine","rating":"caution","stageRatings":{"firstTrimester":"never"}}]}`,
			wantErr:    "invalid stage rating",
			validation: true,
		},
		{
			name:       "missing name",
			concerning: `{"ingredients":[{"name":"  ","rating":"caution"}]}`,
			wantErr:    "has no name",
			validation: true,
		},
		{
			name:       "duplicate safe names",
			safe:       `{"safeIngredients":[{"name":"Salt"},{"name":"SALT"}]}`,
			wantErr:    "duplicate safe ingredient name",
			validation: true,
		},
		{
			name:       "unknown field",
			concerning: `{"ingredients":[{"name":"Caffeine","rating":"caution","trimester":1}]}`,
			wantErr:    "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var concerningPath, safePath string
			if tt.concerning != "" {
				concerningPath = writeFile(t, "concerning.json", tt.concerning)
			}
			if tt.safe != "" {
				safePath = writeFile(t, "safe.json", tt.safe)
			}
			_, err := LoadReference(concerningPath, safePath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.validation, common.IsValidationError(err))
		})
	}
}

func TestLoadReferenceUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "concerning.csv", "name,rating")
	_, err := LoadReference(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported reference file type")
}

func TestLoadReferenceMissingFile(t *testing.T) {
	_, err := LoadReference(filepath.Join(t.TempDir(), "nope.json"), "")
	assert.Error(t, err)
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
		ok   bool
	}{
		{"", StageAny, true},
		{"1", StageFirstTrimester, true},
		{"Second", StageSecondTrimester, true},
		{"3", StageThirdTrimester, true},
		{"postpartum", StagePostpartum, true},
		{"9", StageAny, false},
	}
	for _, tt := range tests {
		got, ok := ParseStage(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
