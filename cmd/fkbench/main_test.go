package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(logger, new(slog.LevelVar))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRunMemoryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	out, err := execute(t, "run",
		"--dialect", "memory",
		"--matrix", "3x12,2x5",
		"--trials", "2",
		"--batch-size", "4",
		"--seed", "1",
		"--verify",
		"--out", path,
		"--json",
	)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var printed map[string]map[string]map[string]float64
	if err := json.Unmarshal([]byte(out), &printed); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}

	for _, label := range []string{"unindexed-3x12", "indexed-3x12", "unindexed-2x5", "indexed-2x5"} {
		if _, ok := printed[label]; !ok {
			t.Errorf("missing label %s", label)
		}
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("results file not written: %v", err)
	}
	if !bytes.Equal(bytes.TrimSpace(saved), bytes.TrimSpace([]byte(out))) {
		t.Error("saved results differ from printed results")
	}

	table, err := execute(t, "report", path)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(table, "### 3x12") || !strings.Contains(table, "### 2x5") {
		t.Errorf("report missing sections:\n%s", table)
	}
}

func TestRunInvalidConfigWritesNothing(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "run",
		"--dialect", "memory",
		"--trials", "0",
		"--output-dir", dir,
	)
	if err == nil {
		t.Fatal("expected error for zero trials")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no results file, found %d entries", len(entries))
	}
}

func TestRunConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bench.yaml")
	data := "dialect: memory\ntrials: 1\nmatrix:\n  - parents: 2\n    children: 4\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "run",
		"--config", cfgPath,
		"--matrix", "1x1",
		"--output-dir", filepath.Join(dir, "out"),
	)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out, "### 1x1") {
		t.Errorf("flag matrix not applied:\n%s", out)
	}
	if strings.Contains(out, "### 2x4") {
		t.Errorf("file matrix should be overridden:\n%s", out)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one results file in output dir, got %d (%v)", len(entries), err)
	}
}

func TestReportMissingFile(t *testing.T) {
	if _, err := execute(t, "report", filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing results file")
	}
}
