// Package workspace manages isolated per-job temporary directories. The
// orchestrator allocates before any file I/O and disposes only after the
// caller has consumed or discarded the result.
package workspace
