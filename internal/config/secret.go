package config

import (
	"log/slog"
	"os"
)

// DefaultWebhookSecret is used when the secret environment variable is unset.
// It is published in this source file and must be treated as compromised.
const DefaultWebhookSecret = "whsec_oneguard_example_secret"

const redacted = "[REDACTED]"

// Secret is the process-wide webhook signing secret. It is immutable once
// loaded and never renders its value through fmt or slog.
type Secret struct {
	value     []byte
	source    string
	isDefault bool
}

// NewSecret wraps an explicit secret value.
func NewSecret(value string) Secret {
	return Secret{value: []byte(value), source: "explicit"}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadWebhookSecret reads the secret from envName, falling back to
// DefaultWebhookSecret when the variable is unset or empty.
func LoadWebhookSecret(envName string, lookup LookupFunc) Secret {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if envName == "" {
		envName = DefaultSecretEnv
	}
	if v, ok := lookup(envName); ok && v != "" {
		return Secret{value: []byte(v), source: "env:" + envName}
	}
	return Secret{value: []byte(DefaultWebhookSecret), source: "default", isDefault: true}
}

// Bytes returns a copy of the secret value.
func (s Secret) Bytes() []byte {
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out
}

// IsDefault reports whether the built-in fallback secret is in use.
func (s Secret) IsDefault() bool { return s.isDefault }

// IsZero reports whether no secret was loaded.
func (s Secret) IsZero() bool { return len(s.value) == 0 }

// Source describes where the secret came from ("env:NAME", "default", "explicit").
func (s Secret) Source() string { return s.source }

// String implements fmt.Stringer.
func (s Secret) String() string { return redacted }

// GoString implements fmt.GoStringer so %#v does not leak the value.
func (s Secret) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }
