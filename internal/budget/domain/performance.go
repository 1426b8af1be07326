package domain

import "math"

// Performance classifies how a budget's actual tracks against its plan.
type Performance string

const (
	PerformanceUnderBudget Performance = "under_budget"
	PerformanceNearLimit   Performance = "near_limit"
	PerformanceOverBudget  Performance = "over_budget"
)

// Classify derives the performance bucket. nearLimitRatio is the fraction
// of the plan at which a budget counts as near its limit, e.g. 0.80.
//
// A zero plan never divides: any positive actual against it is over budget,
// otherwise it is under budget.
func Classify(planned, actual int64, nearLimitRatio float64) Performance {
	if planned == 0 {
		if actual > 0 {
			return PerformanceOverBudget
		}
		return PerformanceUnderBudget
	}
	if actual > planned {
		return PerformanceOverBudget
	}
	if float64(actual) >= nearLimitRatio*float64(planned) {
		return PerformanceNearLimit
	}
	return PerformanceUnderBudget
}

// Achievement is the rounded percentage of the plan that has been realized.
// Defined as 0 when the plan is 0.
func Achievement(planned, actual int64) int {
	if planned == 0 {
		return 0
	}
	return int(math.Round(float64(actual) / float64(planned) * 100))
}

// Remaining is the balance left on the plan. Negative when over budget.
func Remaining(planned, actual int64) int64 {
	return planned - actual
}
