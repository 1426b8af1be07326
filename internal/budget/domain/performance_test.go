package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		planned int64
		actual  int64
		want    Performance
	}{
		{"well under", 50000, 10000, PerformanceUnderBudget},
		{"at 84 percent", 50000, 42000, PerformanceNearLimit},
		{"exactly at threshold", 50000, 40000, PerformanceNearLimit},
		{"exactly at plan", 50000, 50000, PerformanceNearLimit},
		{"one over plan", 50000, 50001, PerformanceOverBudget},
		{"112 percent", 25000, 28000, PerformanceOverBudget},
		{"zero plan zero actual", 0, 0, PerformanceUnderBudget},
		{"zero plan positive actual", 0, 100, PerformanceOverBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.planned, tt.actual, 0.80))
		})
	}
}

func TestClassifyCustomRatio(t *testing.T) {
	assert.Equal(t, PerformanceUnderBudget, Classify(1000, 850, 0.90))
	assert.Equal(t, PerformanceNearLimit, Classify(1000, 850, 0.80))
}

func TestAchievement(t *testing.T) {
	assert.Equal(t, 84, Achievement(50000, 42000))
	assert.Equal(t, 112, Achievement(25000, 28000))
	assert.Equal(t, 0, Achievement(0, 0))
	assert.Equal(t, 0, Achievement(0, 100), "zero plan never divides")
	assert.Equal(t, 67, Achievement(3, 2), "rounds to nearest")
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, int64(8000), Remaining(50000, 42000))
	assert.Equal(t, int64(-3000), Remaining(25000, 28000))
}
