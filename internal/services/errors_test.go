package services

import (
	"errors"
	"testing"
)

func TestWrapTagsAndChains(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrTranscodeFailed, "extract", "normalize audio", "", cause)

	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	want := "transcode failed: extract: normalize audio: exit status 1"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrValidation, "submit", "attenuation", "out of bounds", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation marker: %v", err)
	}
	want := "validation error: submit: attenuation: out of bounds"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", errors.New("boom"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("nil marker should default to io failure: %v", err)
	}
}

func TestUserMessageStripsMarker(t *testing.T) {
	err := Wrap(ErrAcquisitionForbidden, "fetch", "download source", "", errors.New("HTTP 403"))
	got := UserMessage(err)
	if got != "fetch: download source: HTTP 403" {
		t.Fatalf("user message %q", got)
	}
}

func TestUserMessagePassthrough(t *testing.T) {
	if got := UserMessage(errors.New("plain failure")); got != "plain failure" {
		t.Fatalf("unexpected rewrite: %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("nil error should produce empty message, got %q", got)
	}
}
