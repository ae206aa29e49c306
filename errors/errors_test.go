package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_Add(t *testing.T) {
	t.Parallel()

	t.Run("adds non-nil errors", func(t *testing.T) {
		t.Parallel()

		c := &Collection{}
		err1 := errors.New("error 1") //nolint:err113
		err2 := errors.New("error 2") //nolint:err113

		c.Add(err1)
		c.Add(err2)

		assert.True(t, c.HasError())
		assert.Equal(t, 2, c.Len())
		assert.Equal(t, []error{err1, err2}, c.Errors())
	})

	t.Run("ignores nil errors", func(t *testing.T) {
		t.Parallel()

		c := &Collection{}

		c.Add(nil)

		assert.False(t, c.HasError())
		assert.Nil(t, c.Errors())
	})
}

func TestCollection_GetError(t *testing.T) {
	t.Parallel()

	err1 := errors.New("error 1") //nolint:err113
	err2 := errors.New("error 2") //nolint:err113

	c := &Collection{}
	require.NoError(t, c.GetError())

	c.Add(err1)
	assert.Equal(t, err1, c.GetError())

	c.Add(err2)

	joined := c.GetError()
	require.Error(t, joined)
	assert.ErrorIs(t, joined, err1)
	assert.ErrorIs(t, joined, err2)

	c.Clear()
	assert.False(t, c.HasError())
}

func TestCauses(t *testing.T) {
	t.Parallel()

	err1 := errors.New("error 1") //nolint:err113
	err2 := errors.New("error 2") //nolint:err113
	err3 := errors.New("error 3") //nolint:err113

	assert.Nil(t, Causes(nil))
	assert.Equal(t, []error{err1}, Causes(err1))

	wrapped := fmt.Errorf("context: %w", err1)
	assert.Equal(t, []error{wrapped}, Causes(wrapped))

	nested := errors.Join(err1, errors.Join(err2, err3))
	assert.Equal(t, []error{err1, err2, err3}, Causes(nested))
}

func TestFromPanic(t *testing.T) {
	t.Parallel()

	require.NoError(t, FromPanic(nil, nil))

	cause := errors.New("boom") //nolint:err113

	err := FromPanic(cause, nil)
	require.ErrorIs(t, err, ErrPanicRecovery)
	require.ErrorIs(t, err, cause)

	err = FromPanic("string panic", []byte("goroutine 1"))
	require.ErrorIs(t, err, ErrPanicRecovery)
	assert.Contains(t, err.Error(), "string panic")
	assert.Contains(t, err.Error(), "stack trace:\ngoroutine 1")
}
