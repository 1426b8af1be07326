package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(id snowflake.ID) *snowflake.ID { return &id }
func strPtr(s string) *string             { return &s }

func TestScoreWildcardRule(t *testing.T) {
	rule := AssignmentRule{ID: 1, Priority: 3, Enabled: true}
	score, ok := Score(rule, MatchContext{ProductID: 42, ProductCategory: "sofa"})
	require.True(t, ok)
	assert.Equal(t, 3, score)
}

func TestScoreHardFilterOnMismatch(t *testing.T) {
	rule := AssignmentRule{
		ID:              1,
		ProductCategory: strPtr("sofa"),
		Priority:        100,
		Enabled:         true,
	}
	_, ok := Score(rule, MatchContext{ProductID: 42, ProductCategory: "table"})
	assert.False(t, ok, "a set matcher that does not match disqualifies the rule regardless of priority")
}

func TestScoreSumsMatchedWeights(t *testing.T) {
	rule := AssignmentRule{
		ID:              1,
		ProductID:       idPtr(42),
		ProductCategory: strPtr("sofa"),
		ContactID:       idPtr(7),
		ContactTag:      strPtr("wholesale"),
		Priority:        2,
		Enabled:         true,
	}
	score, ok := Score(rule, MatchContext{
		ProductID:       42,
		ProductCategory: "sofa",
		ContactID:       7,
		ContactTag:      "wholesale",
	})
	require.True(t, ok)
	assert.Equal(t, 2+10+5+10+5, score)
}

func TestBestMatchExactProductBeatsCategoryWithHigherPriority(t *testing.T) {
	ruleA := AssignmentRule{
		ID:              1,
		ProductCategory: strPtr("sofa"),
		CostCenterID:    100,
		Priority:        1,
		Enabled:         true,
	}
	ruleB := AssignmentRule{
		ID:           2,
		ProductID:    idPtr(42),
		CostCenterID: 200,
		Priority:     0,
		Enabled:      true,
	}

	best := BestMatch([]AssignmentRule{ruleA, ruleB}, MatchContext{
		ProductID:       42,
		ProductCategory: "sofa",
	})
	require.NotNil(t, best)
	// Category match scores 5+1=6, exact product scores 10+0=10.
	assert.Equal(t, ruleB.ID, best.ID)
}

func TestBestMatchSkipsDisabledRules(t *testing.T) {
	rule := AssignmentRule{
		ID:        1,
		ProductID: idPtr(42),
		Priority:  50,
		Enabled:   false,
	}
	best := BestMatch([]AssignmentRule{rule}, MatchContext{ProductID: 42})
	assert.Nil(t, best)
}

func TestBestMatchNoQualifyingRule(t *testing.T) {
	rules := []AssignmentRule{
		{ID: 1, ProductCategory: strPtr("table"), Enabled: true},
		{ID: 2, ContactTag: strPtr("retail"), Enabled: true},
	}
	best := BestMatch(rules, MatchContext{ProductCategory: "sofa", ContactTag: "wholesale"})
	assert.Nil(t, best)
}

func TestBestMatchTieBreaksOnLowestID(t *testing.T) {
	older := AssignmentRule{ID: 10, ProductCategory: strPtr("sofa"), CostCenterID: 100, Enabled: true}
	newer := AssignmentRule{ID: 20, ProductCategory: strPtr("sofa"), CostCenterID: 200, Enabled: true}
	ctx := MatchContext{ProductCategory: "sofa"}

	best := BestMatch([]AssignmentRule{older, newer}, ctx)
	require.NotNil(t, best)
	assert.Equal(t, older.ID, best.ID)

	// Same winner regardless of input order.
	best = BestMatch([]AssignmentRule{newer, older}, ctx)
	require.NotNil(t, best)
	assert.Equal(t, older.ID, best.ID)
}

func TestBestMatchDeterministicAcrossRuns(t *testing.T) {
	rules := []AssignmentRule{
		{ID: 3, ProductID: idPtr(42), CostCenterID: 1, Priority: 0, Enabled: true},
		{ID: 1, ProductID: idPtr(42), CostCenterID: 2, Priority: 0, Enabled: true},
		{ID: 2, ProductID: idPtr(42), CostCenterID: 3, Priority: 0, Enabled: true},
	}
	ctx := MatchContext{ProductID: 42}

	first := BestMatch(rules, ctx)
	require.NotNil(t, first)
	for i := 0; i < 50; i++ {
		again := BestMatch(rules, ctx)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	}
	assert.Equal(t, snowflake.ID(1), first.ID)
}
