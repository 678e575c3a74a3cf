package ingredient

import "strings"

// aggregate 合併各片語結果為整體判定
//
// 去重集合只存在於單次呼叫內。同一名稱同時被標記與判為安全時，以標記為準。
func aggregate(phraseCount int, results []result) *Verdict {
	v := &Verdict{
		FlaggedIngredients: []FlaggedIngredient{},
		SafeIngredients:    []string{},
		UnknownIngredients: []string{},
	}

	if phraseCount == 0 {
		v.OverallSafety = RatingUnknown
		v.NoIngredients = true
		v.Message = NoIngredientsMessage
		return v
	}

	flagged := make(map[string]struct{})
	safe := make(map[string]struct{})

	for _, r := range results {
		switch r.kind {
		case kindFlagged:
			key := nameKey(r.flagged.Name)
			if _, dup := flagged[key]; dup {
				continue
			}
			flagged[key] = struct{}{}
			v.FlaggedIngredients = append(v.FlaggedIngredients, r.flagged)
			if _, ok := safe[key]; ok {
				delete(safe, key)
				v.SafeIngredients = removeName(v.SafeIngredients, key)
			}
		case kindSafe:
			key := nameKey(r.name)
			if _, dup := flagged[key]; dup {
				continue
			}
			if _, dup := safe[key]; dup {
				continue
			}
			safe[key] = struct{}{}
			v.SafeIngredients = append(v.SafeIngredients, r.name)
		default:
			v.UnknownIngredients = append(v.UnknownIngredients, r.raw)
		}
	}

	v.OverallSafety = overallRating(v.FlaggedIngredients)
	return v
}

// overallRating avoid > caution > safe
func overallRating(flagged []FlaggedIngredient) Rating {
	if len(flagged) == 0 {
		return RatingSafe
	}
	for _, f := range flagged {
		if f.Rating == RatingAvoid {
			return RatingAvoid
		}
	}
	return RatingCaution
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func removeName(names []string, key string) []string {
	out := names[:0]
	for _, n := range names {
		if nameKey(n) != key {
			out = append(out, n)
		}
	}
	return out
}
