package ingredient

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sproutscan/internal/pkg/common"

	"gopkg.in/yaml.v3"
)

//go:embed data/concerning.json data/safe.json
var defaultData embed.FS

const (
	defaultConcerningFile = "data/concerning.json"
	defaultSafeFile       = "data/safe.json"
)

// Reference 參考資料集，載入後不可變
type Reference struct {
	Concerning []ConcerningIngredient
	Safe       []SafeIngredient
}

type concerningFile struct {
	Ingredients []ConcerningIngredient `json:"ingredients" yaml:"ingredients"`
}

type safeFile struct {
	SafeIngredients []SafeIngredient `json:"safeIngredients" yaml:"safeIngredients"`
}

// DefaultReference 載入內嵌的預設參考資料
func DefaultReference() (*Reference, error) {
	return LoadReference("", "")
}

// LoadReference 從檔案載入參考資料，路徑為空時使用內嵌資料
func LoadReference(concerningPath, safePath string) (*Reference, error) {
	var cf concerningFile
	if err := readReferenceFile(concerningPath, defaultConcerningFile, &cf); err != nil {
		return nil, fmt.Errorf("failed to load concerning ingredients: %w", err)
	}

	var sf safeFile
	if err := readReferenceFile(safePath, defaultSafeFile, &sf); err != nil {
		return nil, fmt.Errorf("failed to load safe ingredients: %w", err)
	}

	ref := &Reference{
		Concerning: cf.Ingredients,
		Safe:       sf.SafeIngredients,
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

// readReferenceFile 讀取 JSON 或 YAML 檔
func readReferenceFile(path, fallback string, v interface{}) error {
	var (
		data []byte
		err  error
		name = path
	)
	if path == "" {
		name = fallback
		data, err = defaultData.ReadFile(fallback)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return decodeReference(name, bytes.NewReader(data), v)
}

func decodeReference(name string, r io.Reader, v interface{}) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return nil
	case ".json", "":
		if err := common.DecodeJSONStrict(r, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("unsupported reference file type: %s", name)
}

// Validate 檢查名稱不重複且評級合法
func (r *Reference) Validate() error {
	seen := make(map[string]struct{}, len(r.Concerning))
	for i, ing := range r.Concerning {
		key := NormalizeReferenceEntry(ing.Name)
		if key == "" {
			return common.NewValidationError(fmt.Sprintf("concerning ingredient #%d has no name", i))
		}
		if _, dup := seen[key]; dup {
			return common.NewValidationError(fmt.Sprintf("duplicate concerning ingredient name: %q", ing.Name))
		}
		seen[key] = struct{}{}

		if !ing.Rating.Valid() {
			return common.NewValidationError(fmt.Sprintf("concerning ingredient %q has invalid rating %q", ing.Name, ing.Rating))
		}
		if sr := ing.StageRatings; sr != nil {
			for _, stageRating := range []Rating{sr.FirstTrimester, sr.SecondTrimester, sr.ThirdTrimester, sr.Postpartum} {
				if stageRating != "" && !stageRating.Valid() {
					return common.NewValidationError(fmt.Sprintf("concerning ingredient %q has invalid stage rating %q", ing.Name, stageRating))
				}
			}
		}
	}

	seen = make(map[string]struct{}, len(r.Safe))
	for i, ing := range r.Safe {
		key := NormalizeReferenceEntry(ing.Name)
		if key == "" {
			return common.NewValidationError(fmt.Sprintf("safe ingredient #%d has no name", i))
		}
		if _, dup := seen[key]; dup {
			return common.NewValidationError(fmt.Sprintf("duplicate safe ingredient name: %q", ing.Name))
		}
		seen[key] = struct{}{}
	}
	return nil
}
