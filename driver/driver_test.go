package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/dlfmt/lang"
	"github.com/chazu/dlfmt/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFindsLuaFilesAndSkipsExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lua"), "local x = 1\n")
	writeFile(t, filepath.Join(dir, "vendor", "b.lua"), "local y = 2\n")
	writeFile(t, filepath.Join(dir, "readme.txt"), "not lua")

	files, err := Discover(dir, []string{filepath.Join(dir, "vendor")})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v, want exactly a.lua", files)
	}
	if filepath.Base(files[0]) != "a.lua" {
		t.Errorf("found %q, want a.lua", files[0])
	}
}

func TestPendingJobsFiltersByCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.lua")
	writeFile(t, path, "local x = 1\n")

	cache := manifest.LoadCache(filepath.Join(dir, ".dlfmt_cache.json"))
	jobs, err := PendingJobs([]string{path}, lang.FormatAuto, cache)
	if err != nil {
		t.Fatalf("PendingJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %v, want one pending job", jobs)
	}

	RecordCompleted(jobs, cache)
	jobs2, err := PendingJobs([]string{path}, lang.FormatAuto, cache)
	if err != nil {
		t.Fatalf("PendingJobs: %v", err)
	}
	if len(jobs2) != 0 {
		t.Errorf("jobs after recording completion = %v, want none pending", jobs2)
	}
}

func TestRunFormatsFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.lua")
	writeFile(t, path, "local x=1\nlocal y=2\n")

	failed, err := Run(context.Background(), []Job{{Path: path, Mode: lang.FormatAuto}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if failed != 0 {
		t.Fatalf("failed = %d, want 0", failed)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "local x = 1\nlocal y = 2\n"
	if string(got) != want {
		t.Errorf("formatted content = %q, want %q", got, want)
	}
}

func TestRunIsolatesPerFileFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.lua")
	bad := filepath.Join(dir, "bad.lua")
	writeFile(t, good, "local x = 1\n")
	writeFile(t, bad, "local = 1\n") // malformed: missing identifier

	jobs := []Job{
		{Path: good, Mode: lang.Compress},
		{Path: bad, Mode: lang.Compress},
	}
	failed, err := Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: unexpected top-level error: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	// bad.lua must be left untouched: output is only opened after a
	// successful parse.
	got, err := os.ReadFile(bad)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "local = 1\n" {
		t.Errorf("bad.lua was modified despite a parse error: %q", got)
	}
}
