package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"log"}, cfg.Notify.Sinks)
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, "notifications", cfg.RabbitMQ.Exchange)
	assert.True(t, cfg.SinkEnabled("log"))
	assert.False(t, cfg.SinkEnabled("amqp"))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("NOTIFY_SINKS", "log, AMQP")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.True(t, cfg.SinkEnabled("amqp"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "production without jwt secret", env: map[string]string{"GO_ENV": "production"}},
		{name: "unknown sink", env: map[string]string{"GO_ENV": "test", "NOTIFY_SINKS": "log,pigeon"}},
		{name: "ses without region", env: map[string]string{"GO_ENV": "test", "NOTIFY_SINKS": "email", "EMAIL_PROVIDER": "ses"}},
		{name: "bad timeout", env: map[string]string{"GO_ENV": "test", "REQUEST_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
