package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadWebhookSecret(t *testing.T) {
	env := map[string]string{"CUSTOM_SECRET": "whsec_from_env", "EMPTY_SECRET": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s := LoadWebhookSecret("CUSTOM_SECRET", lookup)
	assert.Equal(t, []byte("whsec_from_env"), s.Bytes())
	assert.False(t, s.IsDefault())
	assert.Equal(t, "env:CUSTOM_SECRET", s.Source())

	s = LoadWebhookSecret("UNSET_SECRET", lookup)
	assert.Equal(t, []byte(DefaultWebhookSecret), s.Bytes())
	assert.True(t, s.IsDefault())

	s = LoadWebhookSecret("EMPTY_SECRET", lookup)
	assert.True(t, s.IsDefault(), "empty variable falls back to the default")
}

func TestLoadWebhookSecret_DefaultEnvName(t *testing.T) {
	t.Setenv(DefaultSecretEnv, "whsec_process_env")

	s := LoadWebhookSecret("", nil)
	assert.Equal(t, []byte("whsec_process_env"), s.Bytes())
	assert.Equal(t, "env:"+DefaultSecretEnv, s.Source())
}

func TestSecret_NeverRendered(t *testing.T) {
	s := NewSecret("whsec_super_private")

	for _, out := range []string{
		fmt.Sprint(s),
		fmt.Sprintf("%v %s %+v %#v", s, s, s, s),
		fmt.Sprintf("%v", struct{ S Secret }{s}),
	} {
		assert.NotContains(t, out, "whsec_super_private")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("loaded", "secret", s)
	assert.NotContains(t, buf.String(), "whsec_super_private")
	assert.Contains(t, buf.String(), redacted)
}

func TestSecret_BytesIsCopy(t *testing.T) {
	s := NewSecret("abc")
	b := s.Bytes()
	b[0] = 'X'
	assert.Equal(t, []byte("abc"), s.Bytes())
}
