package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_KindsAreDistinguishable(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		sentinel  error
		kind      ErrorKind
		retryable bool
	}{
		{"validation", NewValidationError("plan %s is inactive", "basic"), ErrValidation, KindValidation, false},
		{"transition", NewInvalidStateTransitionError("subscription", "cancelled", "active"), ErrInvalidStateTransition, KindInvalidStateTransition, false},
		{"range", NewInvalidRangeError("start must be before end"), ErrInvalidRange, KindInvalidRange, false},
		{"conflict", NewConcurrencyConflictError("subscription"), ErrConcurrencyConflict, KindConcurrencyConflict, true},
		{"timeout", NewTimeoutError("revenue report", context.DeadlineExceeded), ErrTimeout, KindTimeout, true},
		{"not found", NewNotFoundError("plan"), ErrNotFound, KindNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, errors.Is(tc.err, tc.sentinel))
			assert.Equal(t, tc.kind, KindOf(tc.err))
			assert.Equal(t, tc.retryable, IsRetryable(tc.err))

			for _, other := range cases {
				if other.name == tc.name {
					continue
				}
				assert.False(t, errors.Is(tc.err, other.sentinel), "%s should not match %s", tc.name, other.name)
			}
		})
	}
}

func TestDomainError_Wrapped(t *testing.T) {
	err := fmt.Errorf("create subscription: %w", NewNotFoundError("tenant"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))

	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, "tenant not found", de.Message)
}

func TestTimeoutError_UnwrapsCause(t *testing.T) {
	err := NewTimeoutError("system revenue", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10, OrderDir: "asc"}.Normalize()
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, "asc", f.OrderDir)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 2)
}
