// Package queue persists denoising jobs in SQLite so the CLI and daemon share
// one durable view of pending, in-flight, and finished work.
package queue
