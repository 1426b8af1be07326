package domain

import "github.com/bwmarrin/snowflake"

// Matcher weights. An exact product or contact match outweighs a category or
// tag match, so narrower rules win over broader ones at equal priority.
const (
	scoreProduct  = 10
	scoreCategory = 5
	scoreContact  = 10
	scoreTag      = 5
)

// MatchContext is the line-level context a rule is scored against.
type MatchContext struct {
	ProductID       snowflake.ID
	ProductCategory string
	ContactID       snowflake.ID
	ContactTag      string
}

// Score rates a rule against ctx. The second return value is false when the
// rule is disqualified: any set matcher that does not match the context is a
// hard filter, not a penalty. A wildcard rule qualifies everywhere and
// scores only its priority.
func Score(rule AssignmentRule, ctx MatchContext) (int, bool) {
	score := rule.Priority

	if rule.ProductID != nil {
		if *rule.ProductID != ctx.ProductID {
			return 0, false
		}
		score += scoreProduct
	}
	if rule.ProductCategory != nil {
		if *rule.ProductCategory != ctx.ProductCategory {
			return 0, false
		}
		score += scoreCategory
	}
	if rule.ContactID != nil {
		if *rule.ContactID != ctx.ContactID {
			return 0, false
		}
		score += scoreContact
	}
	if rule.ContactTag != nil {
		if *rule.ContactTag != ctx.ContactTag {
			return 0, false
		}
		score += scoreTag
	}

	return score, true
}

// BestMatch returns the qualifying rule with the highest score, or nil when
// no rule qualifies. Ties on score are broken by the lowest rule id; ids are
// assigned at creation, so the tie-break is stable across runs and
// independent of query ordering.
func BestMatch(rules []AssignmentRule, ctx MatchContext) *AssignmentRule {
	var best *AssignmentRule
	bestScore := 0

	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		score, ok := Score(*rule, ctx)
		if !ok {
			continue
		}
		switch {
		case best == nil:
			best, bestScore = rule, score
		case score > bestScore:
			best, bestScore = rule, score
		case score == bestScore && rule.ID < best.ID:
			best = rule
		}
	}

	return best
}
