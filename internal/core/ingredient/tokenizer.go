package ingredient

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPhraseLen = 2
	maxPhraseLen = 60
)

var (
	parenPattern   = regexp.MustCompile(`\([^)]*\)`)
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]`)

	// 引導子句改為逗號，讓子句成為獨立片語
	headingPattern  = regexp.MustCompile(`\bingredients?\s*:`)
	containsPattern = regexp.MustCompile(`\b(?:may\s+)?contains?\b\s*:?`)
	lessThanPattern = regexp.MustCompile(`\bless\s+than\s+\d+(?:\.\d+)?\s*%\s*(?:of\b)?\s*:?`)
	orLessPattern   = regexp.MustCompile(`\d+(?:\.\d+)?\s*%\s+or\s+less\s+of\b\s*:?`)
	andOrPattern    = regexp.MustCompile(`\band\s*/\s*or\b`)

	percentPattern  = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)
	footnotePattern = regexp.MustCompile(`[*†‡]+`)
	splitPattern    = regexp.MustCompile(`[,;.]`)
)

// Tokenize 將原始成分標示切成片語列表
//
// 括號內的子成分直接移除，不做遞迴解析；順序保留，不去重。
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	s := strings.ToLower(text)
	s = parenPattern.ReplaceAllString(s, " ")
	s = bracketPattern.ReplaceAllString(s, " ")

	s = headingPattern.ReplaceAllString(s, ",")
	s = lessThanPattern.ReplaceAllString(s, ",")
	s = orLessPattern.ReplaceAllString(s, ",")
	s = containsPattern.ReplaceAllString(s, ",")
	s = andOrPattern.ReplaceAllString(s, ",")

	s = percentPattern.ReplaceAllString(s, "")
	s = footnotePattern.ReplaceAllString(s, "")

	parts := splitPattern.Split(s, -1)
	phrases := make([]string, 0, len(parts))
	for _, p := range parts {
		p = collapseSpaces(p)
		n := utf8.RuneCountInString(p)
		if n < minPhraseLen || n > maxPhraseLen {
			continue
		}
		phrases = append(phrases, p)
	}
	return phrases
}

// collapseSpaces 去除前後空白並合併連續空白
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
