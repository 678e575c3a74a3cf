package ingredient

import "strings"

// Rating 安全評級
type Rating string

const (
	RatingAvoid   Rating = "avoid"
	RatingCaution Rating = "caution"
	RatingSafe    Rating = "safe"
	// RatingUnknown 僅用於整體判定（沒有成分資料時）
	RatingUnknown Rating = "unknown"
)

// Valid 檢查是否為參考資料允許的評級
func (r Rating) Valid() bool {
	switch r {
	case RatingAvoid, RatingCaution, RatingSafe:
		return true
	}
	return false
}

// Stage 孕期階段
type Stage string

const (
	StageAny             Stage = ""
	StageFirstTrimester  Stage = "1"
	StageSecondTrimester Stage = "2"
	StageThirdTrimester  Stage = "3"
	StagePostpartum      Stage = "postpartum"
)

// ParseStage 解析階段參數，無法識別時回傳 StageAny
func ParseStage(s string) (Stage, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return StageAny, true
	case "1", "first", "first_trimester":
		return StageFirstTrimester, true
	case "2", "second", "second_trimester":
		return StageSecondTrimester, true
	case "3", "third", "third_trimester":
		return StageThirdTrimester, true
	case "4", "postpartum":
		return StagePostpartum, true
	}
	return StageAny, false
}

// StageRatings 各階段評級，空值表示沿用 ConcerningIngredient.Rating
type StageRatings struct {
	FirstTrimester  Rating `json:"firstTrimester,omitempty" yaml:"firstTrimester,omitempty"`
	SecondTrimester Rating `json:"secondTrimester,omitempty" yaml:"secondTrimester,omitempty"`
	ThirdTrimester  Rating `json:"thirdTrimester,omitempty" yaml:"thirdTrimester,omitempty"`
	Postpartum      Rating `json:"postpartum,omitempty" yaml:"postpartum,omitempty"`
}

func (s *StageRatings) forStage(stage Stage) Rating {
	if s == nil {
		return ""
	}
	switch stage {
	case StageFirstTrimester:
		return s.FirstTrimester
	case StageSecondTrimester:
		return s.SecondTrimester
	case StageThirdTrimester:
		return s.ThirdTrimester
	case StagePostpartum:
		return s.Postpartum
	}
	return ""
}

// SafeIngredient 已知安全的成分
type SafeIngredient struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Aliases  []string `json:"aliases" yaml:"aliases"`
	Category string   `json:"category" yaml:"category"`
	Note     string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// ConcerningIngredient 需要審視的成分
type ConcerningIngredient struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Aliases      []string      `json:"aliases" yaml:"aliases"`
	Category     string        `json:"category" yaml:"category"`
	Description  string        `json:"description" yaml:"description"`
	Function     string        `json:"function" yaml:"function"`
	Rating       Rating        `json:"rating" yaml:"rating"`
	StageRatings *StageRatings `json:"stageRatings,omitempty" yaml:"stageRatings,omitempty"`
	Concerns     []string      `json:"concerns" yaml:"concerns"`
	SafetyNotes  string        `json:"safetyNotes" yaml:"safetyNotes"`
	BottomLine   string        `json:"bottomLine" yaml:"bottomLine"`
	Sources      []string      `json:"sources" yaml:"sources"`
}

// RatingFor 取得指定階段的評級
func (c *ConcerningIngredient) RatingFor(stage Stage) Rating {
	if r := c.StageRatings.forStage(stage); r != "" {
		return r
	}
	return c.Rating
}

// FlaggedIngredient 被標記的成分
type FlaggedIngredient struct {
	Name        string `json:"name"`
	Rating      Rating `json:"rating"`
	Concern     string `json:"concern"`
	Explanation string `json:"explanation"`
	BottomLine  string `json:"bottomLine"`
}

// Verdict 整體安全判定
type Verdict struct {
	OverallSafety      Rating              `json:"overallSafety"`
	FlaggedIngredients []FlaggedIngredient `json:"flaggedIngredients"`
	SafeIngredients    []string            `json:"safeIngredients"`
	UnknownIngredients []string            `json:"unknownIngredients"`
	NoIngredients      bool                `json:"noIngredients,omitempty"`
	Message            string              `json:"message,omitempty"`
}

// resultKind 單一片語的分類結果類型
type resultKind int

const (
	kindUnknown resultKind = iota
	kindFlagged
	kindSafe
)

// result 單一片語的分類結果
type result struct {
	kind    resultKind
	flagged FlaggedIngredient
	name    string
	raw     string
}
