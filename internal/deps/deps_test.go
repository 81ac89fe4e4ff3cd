package deps

import (
	"os"
	"path/filepath"
	"testing"

	"hush/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unconfigured", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for blank command: %#v", results[2])
	}
}

func TestRequirementsReflectConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FFmpeg.Binary = "/opt/ffmpeg"
	cfg.Enhance.Binary = "/opt/deep-filter"
	cfg.Fetch.Binary = "/opt/yt-dlp"

	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	byName := make(map[string]Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}
	if byName["FFmpeg"].Command != "/opt/ffmpeg" || byName["FFmpeg"].Optional {
		t.Fatalf("ffmpeg requirement wrong: %#v", byName["FFmpeg"])
	}
	if byName["DeepFilterNet"].Command != "/opt/deep-filter" || byName["DeepFilterNet"].Optional {
		t.Fatalf("deepfilter requirement wrong: %#v", byName["DeepFilterNet"])
	}
	if !byName["yt-dlp"].Optional {
		t.Fatal("yt-dlp must be optional; local files work without it")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "FFmpeg", Available: false},
		{Name: "yt-dlp", Available: false, Optional: true},
		{Name: "DeepFilterNet", Available: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "FFmpeg" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}
