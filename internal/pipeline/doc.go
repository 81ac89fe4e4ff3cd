// Package pipeline sequences jobs through the denoising stages and drains
// the persistent queue. The orchestrator owns the per-job state machine
// (fetch, extract, enhance, remux); the manager owns the poll loop.
package pipeline
