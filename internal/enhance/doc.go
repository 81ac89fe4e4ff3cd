// Package enhance drives the chunked noise-suppression pass over a normalized
// signal, and owns the process-wide cache of the expensive capability handle.
package enhance
