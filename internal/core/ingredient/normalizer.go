package ingredient

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// qualifierWords 產品標示上常見、不影響安全判定的修飾詞
//
// 只在產品端移除；參考資料中的修飾詞（例如 raw milk）具有安全意義，必須保留。
var qualifierWords = []string{
	"organic", "certified organic", "natural", "all natural", "all-natural",
	"raw", "dried", "dehydrated", "freeze-dried", "fresh", "frozen",
	"enriched", "fortified", "bleached", "unbleached", "hydrogenated",
	"partially hydrogenated", "fully hydrogenated", "refined", "unrefined",
	"low-fat", "low fat", "nonfat", "non-fat", "fat-free", "fat free",
	"reduced-fat", "reduced fat", "skim", "sugar-free", "sugar free",
	"unsweetened", "sweetened", "salted", "unsalted", "low-sodium",
	"low sodium", "roasted", "dry roasted", "toasted", "ground", "whole",
	"whole grain", "cultured", "concentrated", "evaporated", "powdered",
	"granulated", "filtered", "purified", "pure", "pasteurized",
	"non-gmo", "gluten-free", "gluten free", "cold-pressed", "expeller-pressed",
	"expeller pressed", "virgin", "extra virgin", "modified", "instant",
	"distilled", "cane", "premium", "vegan", "kosher",
}

var (
	qualifierPrefix = compileQualifierPrefix(qualifierWords)

	bracketContent = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
)

// compileQualifierPrefix 將修飾詞表編譯為單一前綴比對式，較長的詞優先
func compileQualifierPrefix(words []string) *regexp.Regexp {
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)(?:\s+|$)`)
}

// Phrase 產品片語的兩種正規化結果
type Phrase struct {
	// Raw 小寫、去括號、合併空白，保留修飾詞
	Raw string
	// Stripped 另外移除開頭的修飾詞
	Stripped string
}

// NormalizeProductPhrase 產品端正規化（移除修飾詞模式）
func NormalizeProductPhrase(text string) Phrase {
	raw := baseNormalize(text)
	stripped := raw
	for {
		loc := qualifierPrefix.FindStringIndex(stripped)
		if loc == nil || loc[1] == 0 {
			break
		}
		stripped = stripped[loc[1]:]
	}
	if stripped == "" {
		stripped = raw
	}
	return Phrase{Raw: raw, Stripped: stripped}
}

// NormalizeReferenceEntry 參考資料端正規化（保留修飾詞模式）
func NormalizeReferenceEntry(text string) string {
	return baseNormalize(text)
}

func baseNormalize(text string) string {
	s := strings.ToLower(text)
	s = foldAccents(s)
	s = bracketContent.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// foldAccents 移除重音符號（jalapeño -> jalapeno）
//
// transform.Chain 帶有內部狀態，每次呼叫各自建立以便並行使用。
func foldAccents(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
