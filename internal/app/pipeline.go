package app

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/metrics"
	"github.com/ayusman/gymbro/internal/pose"
)

// Start feeds frames from src into the shared engine at fps frames per second
// until the source is exhausted or Stop is called. The source is closed when
// the pipeline ends. Starting an already running pipeline is a no-op.
func (a *App) Start(src pose.Source, fps float64) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.running() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(ctx, cancel, src, time.Duration(float64(time.Second)/fps), a.stopCh, a.doneCh)

	log.WithField("fps", fps).Info("frame pipeline started")
	return nil
}

// Stop halts the pipeline and waits for it to exit.
func (a *App) Stop() {
	a.runMu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.runMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// Running reports whether the pipeline is consuming a source.
func (a *App) Running() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.running()
}

func (a *App) running() bool {
	if a.doneCh == nil {
		return false
	}
	select {
	case <-a.doneCh:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current pipeline exits, or nil when
// no pipeline was started.
func (a *App) Done() <-chan struct{} {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.doneCh
}

// runPipeline is the frame loop of the shared engine.
//
// Pipeline logic:
// 1. Wait for the next tick (interval = 1/fps)
// 2. Pull one frame from the source; Next observes ctx so Stop interrupts it
// 3. Log and count malformed frames, then skip them
// 4. Process the frame on the shared engine (results, metrics, feedback)
// 5. Exit on EOF, Stop or a cancelled context, closing the source
func (a *App) runPipeline(ctx context.Context, cancel context.CancelFunc, src pose.Source,
	interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		if err := src.Close(); err != nil {
			log.Warnf("failed to close frame source: %v", err)
		}
	}()
	defer cancel()

	// Cancel any blocked Next call as soon as Stop is requested
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-stopCh:
			log.WithField("frames", frames).Info("frame pipeline stopped")
			return
		case <-ticker.C:
			// Read the next frame from the source
			frame, err := src.Next(ctx)
			switch {
			case errors.Is(err, io.EOF):
				log.WithField("frames", frames).Info("frame source exhausted")
				return
			case ctx.Err() != nil:
				return
			case err != nil:
				log.Warnf("skipping frame: %v", err)
				if a.config.Metrics != nil {
					a.config.Metrics.CounterFrames.WithLabelValues(string(a.Active()), metrics.OutcomeInvalid).Inc()
				}
				continue
			}

			// Analyze the frame
			a.Process(frame)
			frames++
		}
	}
}
