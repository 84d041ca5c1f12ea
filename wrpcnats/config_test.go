package wrpcnats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfigRequiresKnownFields(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"address":"nats://localhost:4222","username":"bob"}`))
	require.NoError(t, err)
	require.Equal(t, "nats://localhost:4222", cfg.Address)
	require.Equal(t, "bob", cfg.Username)
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte(`{"address":"nats://localhost:4222","bogus":true}`))
	require.Error(t, err)
}

func TestParseConfigNilIsZeroValue(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)
}
