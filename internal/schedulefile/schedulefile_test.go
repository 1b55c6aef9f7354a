package schedulefile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeFile(t, `
schedules:
  - id: nightly-deploy
    cron: "0 2 * * *"
    dag: dags/deploy.yaml
    tenant: acme
    max_retries: 2
  - id: hourly-sync
    cron: "*/5 * * * *"
    dag: dags/sync.yaml
    tenant: globex
    enabled: false
`)

	schedules, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(schedules) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(schedules))
	}

	first := schedules[0]
	if first.ID != "nightly-deploy" || first.CronExpr != "0 2 * * *" {
		t.Errorf("unexpected first schedule: %+v", first)
	}
	if first.WorkflowRef != "dags/deploy.yaml" || first.Tenant != "acme" {
		t.Errorf("unexpected first schedule: %+v", first)
	}
	if !first.Enabled {
		t.Error("enabled should default to true")
	}
	if first.MaxRetries != 2 {
		t.Errorf("expected max_retries=2, got %d", first.MaxRetries)
	}

	if schedules[1].Enabled {
		t.Error("explicit enabled: false must be honored")
	}
}

func TestLoad_SkipsInvalidEntries(t *testing.T) {
	path := writeFile(t, `
schedules:
  - id: good
    cron: "* * * * *"
    dag: dags/a.yaml
    tenant: acme
  - id: bad-cron
    cron: "not a cron"
    dag: dags/b.yaml
    tenant: acme
  - cron: "* * * * *"
    dag: dags/c.yaml
    tenant: acme
  - id: no-dag
    cron: "* * * * *"
    tenant: acme
`)

	schedules, err := Load(path, nil)
	if err != nil {
		t.Fatalf("bad entries must not fail the load: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != "good" {
		t.Fatalf("expected only the valid entry, got %+v", schedules)
	}
}

func TestLoad_SkipsDuplicateIDs(t *testing.T) {
	path := writeFile(t, `
schedules:
  - id: dup
    cron: "* * * * *"
    dag: dags/a.yaml
    tenant: acme
  - id: dup
    cron: "0 0 * * *"
    dag: dags/b.yaml
    tenant: acme
`)

	schedules, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(schedules) != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d", len(schedules))
	}
	if schedules[0].WorkflowRef != "dags/a.yaml" {
		t.Error("first occurrence must win")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "ghost.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "schedules: [unclosed")

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
