package nodes

import (
	errx "github.com/voyago/travel-agent/internal/core/error"

	"github.com/voyago/travel-agent/internal/agent/model"
)

const DefaultMaxToolCalls = 10

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// incrementToolCallAndCheck increments the count and reports whether the
// budget is exhausted after incrementing.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	return state.ToolCallCount > max
}

func loopExceededError(max int) error {
	return errx.LoopExceeded(normalizeMaxToolCalls(max))
}
