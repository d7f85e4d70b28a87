package error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(OpenFailure, "open session", errors.New("auth rejected"))
	assert.Equal(t, "open session: auth rejected", err.Error())

	bare := New(ValidationError, "host name is required", nil)
	assert.Equal(t, "host name is required", bare.Error())
}

func TestIsFollowsWrapping(t *testing.T) {
	inner := New(CommandFailure, "send command", errors.New("boom"))
	wrapped := fmt.Errorf("submit: %w", inner)

	assert.True(t, Is(wrapped, CommandFailure))
	assert.False(t, Is(wrapped, OpenFailure))
	assert.False(t, Is(errors.New("plain"), CommandFailure))
	assert.False(t, Is(nil, CommandFailure))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "auth rejected", Reason(New(OpenFailure, "open session", errors.New("auth rejected"))))
	assert.Equal(t, "no cause", Reason(New(OpenFailure, "no cause", nil)))
	assert.Equal(t, "plain", Reason(errors.New("plain")))
	assert.Equal(t, "", Reason(nil))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "teardown", TeardownFailure.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}
