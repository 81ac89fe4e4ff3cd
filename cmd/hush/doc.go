// Command hush is the CLI for the media denoising pipeline. It can process a
// single file inline, run as a queue-draining daemon, and inspect the queue,
// telemetry log, configuration, and external tool dependencies.
package main
