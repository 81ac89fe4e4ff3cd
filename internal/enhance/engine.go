package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hush/internal/audio"
	"hush/internal/logging"
)

// Progress reports completion of one enhancement window.
type Progress struct {
	WindowIndex int
	WindowCount int
	Fraction    float64
	Elapsed     time.Duration
	Remaining   time.Duration
}

// Engine runs the chunked enhancement pass: partition, enhance each window in
// order, reassemble.
type Engine struct {
	cache        *Cache
	chunkSeconds int
	logger       *slog.Logger
}

// NewEngine builds an engine over a shared model cache.
func NewEngine(cache *Cache, chunkSeconds int, logger *slog.Logger) *Engine {
	if chunkSeconds <= 0 {
		chunkSeconds = 10
	}
	return &Engine{
		cache:        cache,
		chunkSeconds: chunkSeconds,
		logger:       logging.NewComponentLogger(logger, "enhance"),
	}
}

// Enhance loads the normalized signal at wavPath, processes it window by
// window, and returns the reassembled signal. Output length always equals
// input length. The progress callback fires after every window with the
// fraction complete and a running-average time estimate; it may be nil.
//
// Windows are visited strictly in index order. The capability may carry
// internal filter state across calls, so this ordering is part of the
// contract even though each window's samples are independent.
func (e *Engine) Enhance(ctx context.Context, wavPath string, attenuationDB int, progress func(Progress)) (audio.Signal, error) {
	handle, err := e.cache.Get(ctx)
	if err != nil {
		return audio.Signal{}, err
	}

	signal, err := audio.ReadWAV(wavPath)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("load normalized audio: %w", err)
	}
	if signal.SampleRate != handle.SampleRate() {
		return audio.Signal{}, fmt.Errorf("normalized audio is %d Hz, capability requires %d Hz", signal.SampleRate, handle.SampleRate())
	}

	windowSize := handle.SampleRate() * e.chunkSeconds
	spans := audio.Partition(len(signal.Samples), windowSize)

	e.logger.Info(
		"starting chunked enhancement",
		logging.Int("windows", len(spans)),
		logging.Int("samples", len(signal.Samples)),
		logging.Int("attenuation_db", attenuationDB),
	)

	enhanced := make([]int16, 0, len(signal.Samples))
	started := time.Now()

	for _, span := range spans {
		// Chunk boundaries are the safe cancellation points.
		if err := ctx.Err(); err != nil {
			return audio.Signal{}, fmt.Errorf("enhancement cancelled: %w", err)
		}

		window := signal.Samples[span.Start:span.End]
		clean, err := handle.Enhance(ctx, window, attenuationDB)
		if err != nil {
			return audio.Signal{}, fmt.Errorf("window %d/%d: %w", span.Index+1, len(spans), err)
		}
		if len(clean) != len(window) {
			return audio.Signal{}, fmt.Errorf("window %d/%d: capability returned %d samples, want %d", span.Index+1, len(spans), len(clean), len(window))
		}
		enhanced = append(enhanced, clean...)

		if progress != nil {
			progress(progressAfter(span.Index, len(spans), time.Since(started)))
		}
	}

	if len(enhanced) != len(signal.Samples) {
		return audio.Signal{}, fmt.Errorf("reassembled %d samples, want %d", len(enhanced), len(signal.Samples))
	}
	return audio.Signal{SampleRate: signal.SampleRate, Samples: enhanced}, nil
}

// progressAfter computes the report for a just-completed window. The estimate
// is a plain running average extrapolation, recomputed from scratch after
// every window with no smoothing.
func progressAfter(index, count int, elapsed time.Duration) Progress {
	done := index + 1
	avg := elapsed / time.Duration(done)
	return Progress{
		WindowIndex: index,
		WindowCount: count,
		Fraction:    float64(done) / float64(count),
		Elapsed:     elapsed,
		Remaining:   avg * time.Duration(count-done),
	}
}
