package wrpcerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError("subscribe", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "subscribe")
}

func TestNewTransportErrorNilIsNil(t *testing.T) {
	require.Nil(t, NewTransportError("op", nil))
}

func TestProtocolErrorWithoutCause(t *testing.T) {
	err := NewProtocolError("invalid discriminant", nil)
	require.Equal(t, "protocol error: invalid discriminant", err.Error())
}

func TestUserErrorMessage(t *testing.T) {
	err := NewUserError("handler failed")
	require.Equal(t, "handler failed", err.Error())
}

func TestCancellationErrorUnwrapsContextError(t *testing.T) {
	cause := errors.New("context canceled")
	err := NewCancellationError(cause)
	require.ErrorIs(t, err, cause)
}
