package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitGenerateListShowDelete(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("RESTDOC_STORE_PATH", filepath.Join(tmp, "db", "restdoc.db"))
	t.Setenv("RESTDOC_LOG_LEVEL", "error")
	cfgPath := filepath.Join(tmp, "config.yaml")

	out, err := run(t, "--config", cfgPath, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "created") {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	out, err = run(t, "--config", cfgPath, "init")
	if err != nil || !strings.Contains(out, "exists") {
		t.Fatalf("second init: %v %s", err, out)
	}

	outDir := filepath.Join(tmp, "docs")
	manifestPath := filepath.Join("..", "..", "testdata", "orders.yaml")
	out, err = run(t, "--config", cfgPath, "generate", "--manifest", manifestPath, "--out", outDir, "--format", "markdown,html")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "index.html") {
		t.Fatalf("expected html output, got: %s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "api-docs.md")); err != nil {
		t.Fatalf("markdown not written: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "run" {
		t.Fatalf("expected run line, got: %s", out)
	}
	runID := strings.TrimSuffix(fields[1], ":")

	out, err = run(t, "--config", cfgPath, "list")
	if err != nil || !strings.Contains(out, runID) {
		t.Fatalf("list: %v %s", err, out)
	}

	out, err = run(t, "--config", cfgPath, "show", "--run", runID)
	if err != nil || !strings.Contains(out, "/orders/{id}") {
		t.Fatalf("show: %v %s", err, out)
	}
	out, err = run(t, "--config", cfgPath, "show", "--run", runID, "--json")
	if err != nil || !strings.Contains(out, `"title": "Orders API"`) {
		t.Fatalf("show --json: %v %s", err, out)
	}

	out, err = run(t, "--config", cfgPath, "clear-cache")
	if err != nil || !strings.Contains(out, "cleared") {
		t.Fatalf("clear-cache: %v %s", err, out)
	}

	if _, err := run(t, "--config", cfgPath, "delete", "--run", runID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run(t, "--config", cfgPath, "show", "--run", runID); err == nil {
		t.Fatalf("expected show to fail after delete")
	}
}

func TestGenerateNoStore(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("RESTDOC_LOG_LEVEL", "error")
	outDir := filepath.Join(tmp, "docs")

	out, err := run(t, "--config", filepath.Join(tmp, "missing.yaml"), "generate", "--no-store",
		"--manifest", filepath.Join("..", "..", "testdata", "orders.yaml"), "--out", outDir, "--format", "json")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(out, "run ") {
		t.Fatalf("no run expected: %s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "doc.json")); err != nil {
		t.Fatalf("doc.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, ".restdoc", "restdoc.db")); err == nil {
		t.Fatalf("store should not be created with --no-store")
	}
}

func TestGenerateRequiresManifest(t *testing.T) {
	if _, err := run(t, "generate"); err == nil {
		t.Fatalf("expected missing --manifest error")
	}
}
