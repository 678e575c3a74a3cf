package ingredient

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 比對門檻，依經驗值設定
const (
	minContainmentLen = 4 // 參考字串長度需大於 3 才做包含比對
	minTokenLen       = 3 // 子集比對只看長度大於 2 的詞
	minFuzzyLen       = 6
	maxFuzzyLenDiff   = 2
	shortWordLen      = 7
	shortWordEdits    = 1
	longWordEdits     = 2
)

// negatingPrefixes 兩個詞只差否定字首時意思相反，模糊比對一律不成立：
// "pasteurized" 與 "unpasteurized" 雖然只差兩個字元，也不算相似。
var negatingPrefixes = []string{"un", "in", "non"}

// IsSimilar 判斷產品片語與參考名稱（或別名）是否指同一成分
//
// 參考字串為 needle、產品片語為 haystack，方向不對稱：
// 產品 "salt" 不會命中參考 "curing salt"。
func IsSimilar(productPhrase, referenceText string) bool {
	ref := NormalizeReferenceEntry(referenceText)
	if ref == "" {
		return false
	}
	return matchPhrase(NormalizeProductPhrase(productPhrase), ref)
}

// matchPhrase 依序套用各層比對，第一個成立即回傳
func matchPhrase(p Phrase, ref string) bool {
	return exactMatch(p, ref) ||
		depluralizedMatch(p, ref) ||
		wholeWordContainment(p, ref) ||
		tokenSubsetMatch(p, ref) ||
		editDistanceMatch(p, ref)
}

func exactMatch(p Phrase, ref string) bool {
	return p.Stripped == ref || p.Raw == ref
}

func depluralizedMatch(p Phrase, ref string) bool {
	words := strings.Fields(ref)
	return sameWords(strings.Fields(p.Stripped), words) || sameWords(strings.Fields(p.Raw), words)
}

// wholeWordContainment 參考字串以完整詞的形式出現在產品片語中
//
// 只檢查參考在產品內，反方向不成立。
func wholeWordContainment(p Phrase, ref string) bool {
	if utf8.RuneCountInString(ref) < minContainmentLen {
		return false
	}
	if containsWord(p.Raw, ref) {
		return true
	}
	return containsWords(splitWords(p.Raw), splitWords(ref))
}

// tokenSubsetMatch 多字參考的每個有效詞都必須出現在產品片語中
func tokenSubsetMatch(p Phrase, ref string) bool {
	tokens := strings.Fields(ref)
	if len(tokens) < 2 {
		return false
	}

	words := strings.Fields(p.Raw)

	significant := 0
	for _, t := range tokens {
		if utf8.RuneCountInString(t) < minTokenLen {
			continue
		}
		significant++
		if !hasWord(words, t) {
			return false
		}
	}
	return significant > 0
}

// editDistanceMatch 容許單字拼寫誤差
//
// 只在兩邊都是單一詞時使用，避免 "sodium citrate" 與 "sodium nitrite" 這類
// 多字片語誤判。
func editDistanceMatch(p Phrase, ref string) bool {
	if strings.ContainsAny(p.Stripped, " \t") || strings.ContainsAny(ref, " \t") {
		return false
	}
	sa, sb := depluralize(p.Stripped), depluralize(ref)
	if negatedPair(sa, sb) {
		return false
	}
	a, b := []rune(sa), []rune(sb)

	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if shorter < minFuzzyLen || longer-shorter > maxFuzzyLenDiff {
		return false
	}

	allowed := longWordEdits
	if shorter <= shortWordLen {
		allowed = shortWordEdits
	}
	return levenshtein(a, b) <= allowed
}

// containsWord 檢查 needle 是否以完整詞出現在 haystack 中
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for offset := 0; offset+len(needle) <= len(haystack); {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if isBoundary(haystack, start, true) && isBoundary(haystack, end, false) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
	return false
}

// isBoundary 判斷位置 pos 前（before=true）或後是否為詞邊界
func isBoundary(s string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:pos])
	} else {
		if pos >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[pos:])
	}
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// negatedPair 其中一個詞是另一個加上否定字首
func negatedPair(a, b string) bool {
	for _, prefix := range negatingPrefixes {
		if a == prefix+b || b == prefix+a {
			return true
		}
	}
	return false
}

// splitWords 以非文字字元切詞，與 containsWord 的詞邊界一致
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
}

// containsWords 參考詞序列連續出現在產品詞序列中，逐詞比較單複數
func containsWords(haystack, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
	for start := 0; start+len(needle) <= len(haystack); start++ {
		if sameWords(haystack[start:start+len(needle)], needle) {
			return true
		}
	}
	return false
}

func hasWord(words []string, w string) bool {
	for _, candidate := range words {
		if sameWord(candidate, w) {
			return true
		}
	}
	return false
}

func sameWords(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if !sameWord(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameWord 兩個詞相同，或去複數後有共同的單數候選
func sameWord(a, b string) bool {
	if a == b {
		return true
	}
	for _, x := range singulars(a) {
		for _, y := range singulars(b) {
			if x == y {
				return true
			}
		}
	}
	return false
}

// depluralize 簡易英文去複數，回傳第一個單數候選
//
//	strawberries -> strawberry, tomatoes -> tomato, peaches -> peach,
//	spices -> spice, oats -> oat, glass -> glass
func depluralize(w string) string {
	return singulars(w)[0]
}

// singulars 列出可能的單數形
//
// "-es" 與 "-ies" 結尾有歧義，兩種都保留：
// cheeses -> chees, cheese；glasses -> glass, glasse；cookies -> cooky, cookie。
func singulars(w string) []string {
	n := len(w)
	switch {
	case n <= 3:
		return []string{w}
	case strings.HasSuffix(w, "ies") && n >= 5:
		return []string{w[:n-3] + "y", w[:n-1]}
	case strings.HasSuffix(w, "ss"):
		return []string{w}
	case strings.HasSuffix(w, "es") && esPlural(w[:n-2]):
		return []string{w[:n-2], w[:n-1]}
	case strings.HasSuffix(w, "s"):
		return []string{w[:n-1]}
	}
	return []string{w}
}

// esPlural 判斷 "es" 結尾是否為複數字尾（box-es、peach-es、tomato-es）
func esPlural(stem string) bool {
	for _, suffix := range []string{"s", "x", "z", "ch", "sh", "o"} {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

// levenshtein 編輯距離（單列 DP）
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
