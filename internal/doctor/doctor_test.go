package doctor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattjoyce/oneguard-gw/internal/config"
)

const strongSecret = "whsec_0123456789abcdef0123456789abcdef"

func validConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Webhook.TimestampBinding = true
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := New(validConfig(), config.NewSecret(strongSecret)).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_DefaultSecretWarns(t *testing.T) {
	t.Parallel()
	secret := config.LoadWebhookSecret("UNSET_FOR_TEST", func(string) (string, bool) { return "", false })
	r := New(validConfig(), secret).Validate()
	if !r.Valid {
		t.Fatalf("default secret should warn, not fail: %v", r.Errors)
	}
	assertHasWarning(t, r, "secret", "example secret")
}

func TestValidate_ShortSecretWarns(t *testing.T) {
	t.Parallel()
	r := New(validConfig(), config.NewSecret("short")).Validate()
	assertHasWarning(t, r, "secret", "shorter than")
}

func TestValidate_UnboundTimestampWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Webhook.TimestampBinding = false
	r := New(cfg, config.NewSecret(strongSecret)).Validate()
	assertHasWarning(t, r, "replay", "replayed")
}

func TestValidate_SameSignatureAndTimestampHeader(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Webhook.TimestampHeader = strings.ToUpper(cfg.Webhook.SignatureHeader)
	r := New(cfg, config.NewSecret(strongSecret)).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "webhook", "must differ")
}

func TestValidate_ReservedPaths(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"webhook on healthz", func(c *config.Config) { c.Webhook.Path = "/healthz" }, "reserved"},
		{"verify on inbox", func(c *config.Config) { c.Verification.Path = "/api/inbox/" }, "reserved"},
		{"verify equals webhook", func(c *config.Config) { c.Verification.Path = c.Webhook.Path + "/" }, "conflicts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			r := New(cfg, config.NewSecret(strongSecret)).Validate()
			if r.Valid {
				t.Fatal("expected invalid")
			}
			assertHasError(t, r, "routes", tt.want)
		})
	}
}

func TestValidate_DisabledVerificationSkipsPathChecks(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Verification.Enabled = false
	cfg.Verification.Path = "/healthz"
	cfg.Verification.ProductionURL = "http://insecure.example"
	r := New(cfg, config.NewSecret(strongSecret)).Validate()
	if !r.Valid || len(r.Warnings) != 0 {
		t.Fatalf("disabled verification should not be checked: %+v", r)
	}
}

func TestValidate_PlainHTTPVerificationWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Verification.StagingURL = "http://staging.example/verify"
	r := New(cfg, config.NewSecret(strongSecret)).Validate()
	assertHasWarning(t, r, "verification", "plain http")
}

func TestValidate_AdminAPI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		inbox   bool
		apiKey  string
		warning string
	}{
		{"inbox without key", true, "", "not mounted"},
		{"key without inbox", false, "0123456789abcdef0123", "no admin endpoint"},
		{"short key", true, "abc", "shorter than 16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Inbox.Enabled = tt.inbox
			cfg.API.APIKey = tt.apiKey
			r := New(cfg, config.NewSecret(strongSecret)).Validate()
			assertHasWarning(t, r, "api", tt.warning)
		})
	}
}

func TestValidate_Listen(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Server.Listen = "0.0.0.0:3000"
	r := New(cfg, config.NewSecret(strongSecret)).Validate()
	assertHasWarning(t, r, "server", "all interfaces")

	cfg = validConfig()
	cfg.Server.Listen = "localhost"
	r = New(cfg, config.NewSecret(strongSecret)).Validate()
	assertHasError(t, r, "server", "host:port")
}

func TestFormatHuman(t *testing.T) {
	t.Parallel()

	out := FormatHuman(&Result{Valid: true})
	if out != "Configuration valid.\n" {
		t.Fatalf("unexpected output: %q", out)
	}

	out = FormatHuman(&Result{
		Valid:    false,
		Errors:   []Issue{{Category: "routes", Field: "webhook.path", Message: "path \"/healthz\" is reserved"}},
		Warnings: []Issue{{Category: "replay", Message: "replayable"}},
	})
	for _, want := range []string{
		"Configuration invalid (1 error(s), 1 warning(s))",
		"ERROR [routes] webhook.path: path \"/healthz\" is reserved",
		"WARN  [replay] replayable",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	out, err := FormatJSON(&Result{Valid: true, Warnings: []Issue{{Category: "secret", Message: "m"}}})
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !decoded.Valid || len(decoded.Warnings) != 1 {
		t.Fatalf("unexpected decoded result: %+v", decoded)
	}
}

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("expected error with category=%q containing %q, got: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("expected warning with category=%q containing %q, got: %v", category, substring, r.Warnings)
}
