// Package audio reads and writes the canonical mono 16-bit PCM WAV format the
// extraction stage produces, and partitions signals into enhancement windows.
package audio
