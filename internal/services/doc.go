// Package services defines the shared error taxonomy and context annotations
// used by every pipeline stage. Stage code wraps failures with Wrap so the
// orchestrator can classify them without string matching.
package services
