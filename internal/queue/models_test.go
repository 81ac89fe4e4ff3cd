package queue

import (
	"testing"
	"time"
)

func TestDeriveOutputName(t *testing.T) {
	cases := []struct {
		name  string
		atten int
		want  string
	}{
		{"meeting.wav", 50, "meeting_50db.wav"},
		{"podcast.MP3", 80, "podcast_80db.MP3"},
		{"lecture.mkv", 50, "lecture_50db.mp4"},
		{"clip.webm", 35, "clip_35db.mp4"},
		{"voice.m4a", 100, "voice_100db.m4a"},
	}
	for _, tc := range cases {
		job := Job{OriginalName: tc.name, AttenuationDB: tc.atten}
		if got := job.DeriveOutputName(); got != tc.want {
			t.Errorf("DeriveOutputName(%q, %d) = %q, want %q", tc.name, tc.atten, got, tc.want)
		}
	}
}

func TestIsAudioOnly(t *testing.T) {
	audio := Job{OriginalName: "voice.FLAC"}
	if !audio.IsAudioOnly() {
		t.Fatal("flac should classify as audio-only")
	}
	video := Job{OriginalName: "movie.mp4"}
	if video.IsAudioOnly() {
		t.Fatal("mp4 should classify as video")
	}
}

func TestIsSupportedExt(t *testing.T) {
	for _, ext := range []string{".wav", ".MP3", ".mp4", ".mkv", ".mov"} {
		if !IsSupportedExt(ext) {
			t.Errorf("%s should be supported", ext)
		}
	}
	for _, ext := range []string{".txt", ".webm", ".gif", ""} {
		if IsSupportedExt(ext) {
			t.Errorf("%s should not be supported", ext)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus("  Enhancing "); !ok || status != StatusEnhancing {
		t.Fatalf("ParseStatus failed: %q %v", status, ok)
	}
	if _, ok := ParseStatus("melting"); ok {
		t.Fatal("unknown status should not parse")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatal("empty status should not parse")
	}
}

func TestStatusClassification(t *testing.T) {
	for _, status := range []Status{StatusFetching, StatusExtracting, StatusEnhancing, StatusRemuxing} {
		if !(Job{Status: status}).IsProcessing() {
			t.Errorf("%s should count as processing", status)
		}
	}
	for _, status := range []Status{StatusCompleted, StatusFailed} {
		job := Job{Status: status}
		if job.IsProcessing() {
			t.Errorf("%s should not count as processing", status)
		}
		if !job.IsTerminal() {
			t.Errorf("%s should count as terminal", status)
		}
	}
	if (Job{Status: StatusPending}).IsTerminal() {
		t.Fatal("pending is not terminal")
	}
}

func TestJobDuration(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	job := Job{StartedAt: &started, FinishedAt: &finished}

	d, ok := job.Duration()
	if !ok || d != 90*time.Second {
		t.Fatalf("duration %v %v, want 90s", d, ok)
	}
	if _, ok := (Job{StartedAt: &started}).Duration(); ok {
		t.Fatal("duration needs both endpoints")
	}
}

func TestSetFailed(t *testing.T) {
	job := Job{Status: StatusEnhancing, ProgressPercent: 60}
	job.SetFailed("model unavailable")

	if job.Status != StatusFailed {
		t.Fatalf("status %s, want failed", job.Status)
	}
	if job.ErrorMessage != "model unavailable" || job.ProgressMessage != "model unavailable" {
		t.Fatalf("error message not propagated: %#v", job)
	}
	if job.ProgressPercent != 0 {
		t.Fatalf("progress should reset, got %v", job.ProgressPercent)
	}
}
