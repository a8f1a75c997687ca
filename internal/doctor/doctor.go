// Package doctor validates oneguard-gw configuration beyond what Load enforces.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/mattjoyce/oneguard-gw/internal/config"
)

// MinSecretLength is the shortest webhook secret accepted without a warning.
const MinSecretLength = 24

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded config together with the resolved webhook secret.
type Doctor struct {
	cfg    *config.Config
	secret config.Secret
}

// New creates a Doctor from a loaded config and the secret it resolves to.
func New(cfg *config.Config, secret config.Secret) *Doctor {
	return &Doctor{cfg: cfg, secret: secret}
}

// reservedPaths are mounted by the server regardless of config.
var reservedPaths = []string{"/healthz", "/api/inbox"}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateWebhook(r)
	d.validateRoutes(r)
	d.warnSecret(r)
	d.warnReplay(r)
	d.warnVerification(r)
	d.warnAdminAPI(r)
	d.warnListen(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateWebhook(r *Result) {
	wh := d.cfg.Webhook
	if wh.TimestampBinding && strings.EqualFold(wh.SignatureHeader, wh.TimestampHeader) {
		d.addError(r, "webhook", "webhook.timestamp_header",
			fmt.Sprintf("timestamp header %q must differ from the signature header", wh.TimestampHeader))
	}
}

// validateRoutes checks configured paths against each other and the built-in routes.
func (d *Doctor) validateRoutes(r *Result) {
	paths := map[string]string{"webhook.path": d.cfg.Webhook.Path}
	if d.cfg.Verification.Enabled {
		paths["verification.path"] = d.cfg.Verification.Path
	}

	for field, p := range paths {
		normalized := strings.TrimSuffix(p, "/")
		for _, reserved := range reservedPaths {
			if normalized == reserved {
				d.addError(r, "routes", field, fmt.Sprintf("path %q is reserved", p))
			}
		}
	}
	if d.cfg.Verification.Enabled &&
		strings.TrimSuffix(d.cfg.Webhook.Path, "/") == strings.TrimSuffix(d.cfg.Verification.Path, "/") {
		d.addError(r, "routes", "verification.path",
			fmt.Sprintf("path %q conflicts with webhook.path", d.cfg.Verification.Path))
	}
}

func (d *Doctor) warnSecret(r *Result) {
	field := "webhook.secret_env"
	switch {
	case d.secret.IsDefault():
		d.addWarning(r, "secret", field,
			fmt.Sprintf("${%s} is not set; the built-in example secret is in use and must be treated as public", d.cfg.Webhook.SecretEnv))
	case len(d.secret.Bytes()) < MinSecretLength:
		d.addWarning(r, "secret", field,
			fmt.Sprintf("webhook secret is shorter than %d bytes", MinSecretLength))
	}
}

func (d *Doctor) warnReplay(r *Result) {
	if !d.cfg.Webhook.TimestampBinding {
		d.addWarning(r, "replay", "webhook.timestamp_binding",
			"signatures cover the body only; a captured delivery can be replayed indefinitely")
	}
}

func (d *Doctor) warnVerification(r *Result) {
	v := d.cfg.Verification
	if !v.Enabled {
		return
	}
	for field, raw := range map[string]string{
		"verification.production_url": v.ProductionURL,
		"verification.staging_url":    v.StagingURL,
	} {
		if u, err := url.Parse(raw); err == nil && u.Scheme == "http" {
			d.addWarning(r, "verification", field,
				fmt.Sprintf("%s uses plain http; API keys are forwarded in clear text", raw))
		}
	}
}

func (d *Doctor) warnAdminAPI(r *Result) {
	key := d.cfg.API.APIKey
	switch {
	case d.cfg.Inbox.Enabled && key == "":
		d.addWarning(r, "api", "api.api_key",
			"inbox is enabled but /api/inbox is not mounted without an api key")
	case !d.cfg.Inbox.Enabled && key != "":
		d.addWarning(r, "api", "api.api_key",
			"api key is set but no admin endpoint uses it (inbox disabled)")
	case key != "" && len(key) < 16:
		d.addWarning(r, "api", "api.api_key", "api key is shorter than 16 characters")
	}
}

func (d *Doctor) warnListen(r *Result) {
	host, _, err := net.SplitHostPort(d.cfg.Server.Listen)
	if err != nil {
		d.addError(r, "server", "server.listen",
			fmt.Sprintf("listen address %q is not host:port: %v", d.cfg.Server.Listen, err))
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		d.addWarning(r, "server", "server.listen",
			"listening on all interfaces; put the gateway behind TLS termination")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
