package ingredient

import (
	"strings"
	"unicode/utf8"
)

// minUnknownLen 未識別片語需超過此長度才列入 unknown
const minUnknownLen = 3

// NoIngredientsMessage 沒有成分資料時的預設說明
const NoIngredientsMessage = "We couldn't find an ingredient list for this product. Check the package for concerning ingredients like artificial sweeteners, preservatives, or caffeine."

// matchEntry 預先正規化的參考條目（名稱在前，別名依序在後）
type matchEntry struct {
	terms []string
}

func newMatchEntry(name string, aliases []string) matchEntry {
	terms := make([]string, 0, len(aliases)+1)
	if n := NormalizeReferenceEntry(name); n != "" {
		terms = append(terms, n)
	}
	for _, a := range aliases {
		if n := NormalizeReferenceEntry(a); n != "" {
			terms = append(terms, n)
		}
	}
	return matchEntry{terms: terms}
}

func (e matchEntry) matches(p Phrase) bool {
	for _, t := range e.terms {
		if matchPhrase(p, t) {
			return true
		}
	}
	return false
}

// Classifier 成分分類器
//
// 建立後唯讀，可在多個 goroutine 間共用。
type Classifier struct {
	ref        *Reference
	concerning []matchEntry
	safe       []matchEntry
}

// NewClassifier 以參考資料建立分類器，並預先正規化所有名稱與別名
func NewClassifier(ref *Reference) *Classifier {
	if ref == nil {
		ref = &Reference{}
	}
	c := &Classifier{
		ref:        ref,
		concerning: make([]matchEntry, len(ref.Concerning)),
		safe:       make([]matchEntry, len(ref.Safe)),
	}
	for i, ing := range ref.Concerning {
		c.concerning[i] = newMatchEntry(ing.Name, ing.Aliases)
	}
	for i, ing := range ref.Safe {
		c.safe[i] = newMatchEntry(ing.Name, ing.Aliases)
	}
	return c
}

// Reference 取得分類器使用的參考資料
func (c *Classifier) Reference() *Reference {
	return c.ref
}

// Classify 分析成分標示並回傳整體判定（使用單一評級）
func (c *Classifier) Classify(text string) *Verdict {
	return c.ClassifyStage(text, StageAny)
}

// ClassifyStage 依指定孕期階段分析成分標示
func (c *Classifier) ClassifyStage(text string, stage Stage) *Verdict {
	return c.ClassifyPhrases(Tokenize(text), stage)
}

// ClassifyPhrases 分析已切好的片語
func (c *Classifier) ClassifyPhrases(phrases []string, stage Stage) *Verdict {
	results := make([]result, 0, len(phrases))
	for _, phrase := range phrases {
		if utf8.RuneCountInString(strings.TrimSpace(phrase)) < minPhraseLen {
			continue
		}
		if r, ok := c.classifyPhrase(phrase, stage); ok {
			results = append(results, r)
		}
	}
	return aggregate(len(phrases), results)
}

// classifyPhrase 先查 concerning，再查 safe；第一個命中的條目勝出
func (c *Classifier) classifyPhrase(phrase string, stage Stage) (result, bool) {
	p := NormalizeProductPhrase(phrase)

	for i, entry := range c.concerning {
		if !entry.matches(p) {
			continue
		}
		ing := &c.ref.Concerning[i]
		rating := ing.RatingFor(stage)
		if rating == RatingAvoid || rating == RatingCaution {
			return result{kind: kindFlagged, flagged: flag(ing, rating)}, true
		}
		return result{kind: kindSafe, name: ing.Name}, true
	}

	for i, entry := range c.safe {
		if entry.matches(p) {
			return result{kind: kindSafe, name: c.ref.Safe[i].Name}, true
		}
	}

	if utf8.RuneCountInString(p.Raw) < minUnknownLen {
		return result{}, false
	}
	return result{kind: kindUnknown, raw: phrase}, true
}

func flag(ing *ConcerningIngredient, rating Rating) FlaggedIngredient {
	return FlaggedIngredient{
		Name:        ing.Name,
		Rating:      rating,
		Concern:     strings.Join(ing.Concerns, " "),
		Explanation: strings.TrimSpace(ing.Description + " " + ing.Function),
		BottomLine:  ing.BottomLine,
	}
}
