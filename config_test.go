package quic

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	config := NewConfig(&tls.Config{})
	assert.Equal(t, 10*time.Second, config.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, config.PurgatoryLifetime)
	assert.NotNil(t, config.TLS)
}

func TestConfigValidateRequiresTLS(t *testing.T) {
	config := NewConfig(nil)
	err := config.Validate()
	assert.Error(t, err)
}

func TestConfigValidateRejectsNonPositiveHandshakeTimeout(t *testing.T) {
	config := NewConfig(&tls.Config{})
	config.HandshakeTimeout = 0
	err := config.Validate()
	assert.Error(t, err)
}

func TestConfigValidateRejectsNegativePurgatoryLifetime(t *testing.T) {
	config := NewConfig(&tls.Config{})
	config.PurgatoryLifetime = -1
	err := config.Validate()
	assert.Error(t, err)
}

func TestConfigValidateOK(t *testing.T) {
	config := NewConfig(&tls.Config{})
	assert.NoError(t, config.Validate())
}

func TestConfigTransportConfig(t *testing.T) {
	config := NewConfig(&tls.Config{})
	tc := config.transportConfig()
	assert.Equal(t, config.Version, tc.Version)
	assert.Equal(t, config.TLS, tc.TLS)
}
