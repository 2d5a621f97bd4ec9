package autherr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportKeepsCauseOnChain(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := Transport(cause)

	require.NotNil(t, err)
	assert.Equal(t, "transport", err.Code)
	assert.ErrorIs(t, err, cause, "cause must stay reachable through errors.Is")
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTransportCauseStaysOutOfClientDetail(t *testing.T) {
	err := Transport(errors.New("dial tcp 10.0.0.5:3306: i/o timeout"))

	assert.Nil(t, err.Detail, "upstream failure must not leak into the client envelope")
	assert.Equal(t, "upstream dependency failed", err.Message)
}

func TestAsExtractsFromWrappedChain(t *testing.T) {
	inner := NotFoundRole()
	wrapped := errors.Join(errors.New("outer"), inner)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "not_found_role", got.Code)

	assert.Nil(t, As(errors.New("plain")))
	assert.Nil(t, errors.Unwrap(inner), "constructors without a cause unwrap to nil")
}
