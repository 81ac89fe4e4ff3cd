// Package ffmpeg wraps the ffmpeg command line for audio extraction and for
// remuxing enhanced audio back into its final container.
package ffmpeg
