package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: test\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "sstcompliance" || cfg.App.Env != "test" {
		t.Fatalf("App = %+v", cfg.App)
	}
	if cfg.Rules.MaxRepeats != 52 || !cfg.Rules.RequireClosureEvidence || cfg.Rules.PlaceholderLostDaysPerAccident != 15 {
		t.Fatalf("Rules = %+v", cfg.Rules)
	}
	if cfg.Notify.WebhookTimeout != 5*time.Second || cfg.Notify.NATSSubjectPrefix != "sst.events" {
		t.Fatalf("Notify = %+v", cfg.Notify)
	}
	if cfg.Evidence.Backend != "fs" || cfg.Evidence.Root == "" {
		t.Fatalf("Evidence = %+v", cfg.Evidence)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
rules:
  finding_due_days: 14
  require_closure_evidence: false
notify:
  webhook_url: http://hooks.local/sst
  webhook_timeout: 2s
`)
	t.Setenv("SST_NOTIFY_NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("SST_RULES_ACTION_DUE_DAYS", "3")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rules.FindingDueDays != 14 || cfg.Rules.RequireClosureEvidence || cfg.Rules.ActionDueDays != 3 {
		t.Fatalf("Rules = %+v", cfg.Rules)
	}
	if cfg.Notify.WebhookURL != "http://hooks.local/sst" || cfg.Notify.WebhookTimeout != 2*time.Second {
		t.Fatalf("Notify = %+v", cfg.Notify)
	}
	if cfg.Notify.NATSURL != "nats://127.0.0.1:4222" {
		t.Fatalf("NATSURL = %q", cfg.Notify.NATSURL)
	}
}

func TestLoadRejectsInvalidEvidenceBackend(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "evidence:\n  backend: s3\n",
		"gcs no bucket":   "evidence:\n  backend: gcs\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(context.Background(), writeConfig(t, body)); err == nil {
				t.Fatalf("Load() expected error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing file) expected error")
	}
}
