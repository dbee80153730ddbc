package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, E("op", NotFound, nil))
	})

	t.Run("fields are kept", func(t *testing.T) {
		root := errors.New("root cause")
		err := E("repository.FindByCode", Unavailable, root)

		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, "repository.FindByCode", e.Op)
		assert.Equal(t, Unavailable, e.Kind)
		assert.ErrorIs(t, err, root)
	})
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "op and cause", err: &Error{Op: "service.Shorten", Err: errors.New("boom")}, want: "service.Shorten: boom"},
		{name: "cause only", err: &Error{Err: errors.New("boom")}, want: "boom"},
		{name: "op only", err: &Error{Op: "service.Shorten"}, want: "service.Shorten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	inner := E("repository.Create", Conflict, errors.New("unique"))
	outer := E("service.Update", DuplicateCode, inner)

	assert.Equal(t, DuplicateCode, KindOf(outer))
	assert.Equal(t, Conflict, KindOf(inner))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))

	wrapped := fmt.Errorf("context: %w", inner)
	assert.Equal(t, Conflict, KindOf(wrapped))
	assert.Equal(t, "repository.Create", OpOf(wrapped))
	assert.Equal(t, "", OpOf(errors.New("plain")))
}

func TestIs(t *testing.T) {
	err := Errorf("service.Shorten", Exhausted, "no free code after %d attempts", 3)

	assert.True(t, Is(err, Exhausted))
	assert.False(t, Is(err, Conflict))
	assert.False(t, Is(nil, Unknown))
	assert.EqualError(t, err, "service.Shorten: no free code after 3 attempts")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "DuplicateCode", DuplicateCode.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
}
