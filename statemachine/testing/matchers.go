package testing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/liminal/statemachine"
)

// Matcher errors.
var (
	ErrNotCompleted     = errors.New("result did not complete")
	ErrWrongState       = errors.New("result settled in an unexpected state")
	ErrNotFailed        = errors.New("result did not fail")
	ErrWrongCause       = errors.New("result failed with an unexpected cause")
	ErrNotCancelled     = errors.New("result was not cancelled")
	ErrCauseMismatch    = errors.New("result causes do not match")
	ErrNoMatchersPassed = errors.New("no matchers passed")
)

// Matcher is an assertion about a finished result.
type Matcher interface {
	Match(res *statemachine.Result) (bool, error)
	Description() string
}

type matcherFunc struct {
	description string
	match       func(res *statemachine.Result) (bool, error)
}

func (m matcherFunc) Match(res *statemachine.Result) (bool, error) { return m.match(res) }
func (m matcherFunc) Description() string                          { return m.description }

// CompletedIn matches a result that completed in the named state.
func CompletedIn(state string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("result should complete in '%s'", state),
		match: func(res *statemachine.Result) (bool, error) {
			if !res.IsCompleted() {
				return false, fmt.Errorf("%w: %s", ErrNotCompleted, res)
			}

			if got := res.State().Name(); got != state {
				return false, fmt.Errorf("%w: got '%s', want '%s'", ErrWrongState, got, state)
			}

			return true, nil
		},
	}
}

// FailedWith matches a failed result whose error matches target via errors.Is.
func FailedWith(target error) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("result should fail with %v", target),
		match: func(res *statemachine.Result) (bool, error) {
			if !res.IsFailed() {
				return false, fmt.Errorf("%w: %s", ErrNotFailed, res)
			}

			if !errors.Is(res.Err(), target) {
				return false, fmt.Errorf("%w: %v", ErrWrongCause, res.Err())
			}

			return true, nil
		},
	}
}

// HasCauses matches a failed result whose causes are exactly causes, in order.
func HasCauses(causes ...error) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("result should fail with causes %v", causes),
		match: func(res *statemachine.Result) (bool, error) {
			if !res.IsFailed() {
				return false, fmt.Errorf("%w: %s", ErrNotFailed, res)
			}

			if !slices.Equal(res.Causes(), causes) {
				return false, fmt.Errorf("%w: got %v", ErrCauseMismatch, res.Causes())
			}

			return true, nil
		},
	}
}

// Cancelled matches a cancelled result.
func Cancelled() Matcher {
	return matcherFunc{
		description: "result should be cancelled",
		match: func(res *statemachine.Result) (bool, error) {
			if !res.IsCancelled() {
				return false, fmt.Errorf("%w: %s", ErrNotCancelled, res)
			}

			return true, nil
		},
	}
}

// All matches when every matcher matches.
func All(matchers ...Matcher) Matcher {
	return matcherFunc{
		description: "all matchers should pass",
		match: func(res *statemachine.Result) (bool, error) {
			for _, m := range matchers {
				if ok, err := m.Match(res); !ok {
					return false, err
				}
			}

			return true, nil
		},
	}
}

// Any matches when at least one matcher matches.
func Any(matchers ...Matcher) Matcher {
	return matcherFunc{
		description: "at least one matcher should pass",
		match: func(res *statemachine.Result) (bool, error) {
			for _, m := range matchers {
				if ok, _ := m.Match(res); ok {
					return true, nil
				}
			}

			return false, ErrNoMatchersPassed
		},
	}
}
