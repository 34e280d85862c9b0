package scheduler

import (
	"strings"

	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// ValidCondition reports whether c names a known predicate.
func ValidCondition(c models.Condition) bool {
	switch c {
	case "", models.ConditionAlways, models.ConditionHasResults, models.ConditionHasFailures,
		models.ConditionNoFailures, models.ConditionIsFirst:
		return true
	}
	key, ok := strings.CutPrefix(string(c), models.ConditionHasKeyPrefix)
	return ok && key != ""
}

// conditionState is what a condition sees: the context as it stands when
// the step is about to launch, and the step's position in the workflow.
type conditionState struct {
	ctx   *session.Context
	index int
}

// evaluate reports whether a step with condition c should run.
// Unknown conditions are never met; Validate rejects them earlier.
func evaluate(c models.Condition, st conditionState) bool {
	switch c {
	case "", models.ConditionAlways:
		return true
	case models.ConditionIsFirst:
		return st.index == 0
	case models.ConditionHasResults:
		return hasSuccess(st.ctx)
	case models.ConditionHasFailures:
		return len(st.ctx.Failures()) > 0
	case models.ConditionNoFailures:
		return len(st.ctx.Failures()) == 0
	}
	if key, ok := strings.CutPrefix(string(c), models.ConditionHasKeyPrefix); ok && key != "" {
		return st.ctx.Has(key)
	}
	return false
}

func hasSuccess(ctx *session.Context) bool {
	for _, o := range ctx.PreviousResults() {
		if o.Success {
			return true
		}
	}
	return false
}
