/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// ErrCaptureBusy indicates a recording is already in progress
var ErrCaptureBusy = errors.New("audio: capture already in progress")

// State represents recorder state
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateCanceled
	StateStopped // capture loop ended on its own; result waiting to be collected
)

// Result is returned when a recording completes or is canceled
type Result struct {
	Samples    []float32
	SampleRate int
	Canceled   bool
	Err        error
}

// LevelFunc receives the RMS level of each captured buffer, for UI metering
type LevelFunc func(level float32)

// Recorder manages PortAudio push-to-talk capture into memory
type Recorder struct {
	mu         sync.Mutex
	state      State
	sampleRate int
	maxSeconds int
	onLevel    LevelFunc
	stopCtx    context.Context
	stopCancel context.CancelFunc
	done       chan Result
}

// NewRecorder creates a recorder. maxSeconds caps a single recording;
// zero means no cap. onLevel may be nil.
func NewRecorder(sampleRate, maxSeconds int, onLevel LevelFunc) *Recorder {
	return &Recorder{
		state:      StateIdle,
		sampleRate: sampleRate,
		maxSeconds: maxSeconds,
		onLevel:    onLevel,
	}
}

// Start begins recording. Returns ErrCaptureBusy if a recording is active.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrCaptureBusy
	}
	r.state = StateRecording
	r.done = make(chan Result, 1)
	r.stopCtx, r.stopCancel = context.WithCancel(ctx)
	r.mu.Unlock()

	go r.recordLoop()
	return nil
}

// Stop requests a clean stop and waits for the captured samples. It also
// collects the pending result when the capture loop already ended on its
// own (recording time cap, stream failure).
func (r *Recorder) Stop() (Result, error) {
	r.mu.Lock()
	switch r.state {
	case StateRecording:
		r.state = StateStopping
	case StateStopped:
		// loop already finished; just harvest the result
	default:
		r.mu.Unlock()
		return Result{}, fmt.Errorf("recorder not running")
	}
	cancel := r.stopCancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	res := <-done

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	return res, res.Err
}

// Cancel requests immediate stop, discarding captured audio. A result
// left behind by a self-terminated capture loop is discarded the same way.
func (r *Recorder) Cancel() (Result, error) {
	r.mu.Lock()
	switch r.state {
	case StateRecording:
		r.state = StateCanceled
	case StateStopped:
		// loop already finished; discard its pending result
	default:
		r.mu.Unlock()
		return Result{}, fmt.Errorf("recorder not running")
	}
	cancel := r.stopCancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	res := <-done

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()

	res.Samples = nil
	res.Canceled = true
	return res, res.Err
}

// State returns the current recorder state
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) recordLoop() {
	if err := portaudio.Initialize(); err != nil {
		r.finish(Result{Err: fmt.Errorf("portaudio init failed: %w", err)})
		return
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			log.Printf("Warning: portaudio terminate failed: %v", err)
		}
	}()

	in := make([]float32, 1024)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), len(in), in)
	if err != nil {
		r.finish(Result{Err: fmt.Errorf("open stream failed: %w", err)})
		return
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		r.finish(Result{Err: fmt.Errorf("start stream failed: %w", err)})
		return
	}

	var samples []float32
	maxSamples := 0
	if r.maxSeconds > 0 {
		maxSamples = r.maxSeconds * r.sampleRate
	}

	for {
		if r.isCanceled() {
			break
		}
		select {
		case <-r.stopCtx.Done():
			goto done
		default:
		}

		if err := stream.Read(); err != nil {
			continue
		}
		samples = append(samples, in...)

		if r.onLevel != nil {
			r.onLevel(rmsLevel(in))
		}

		if maxSamples > 0 && len(samples) >= maxSamples {
			log.Printf("⏱️  Recording reached %ds cap, stopping", r.maxSeconds)
			break
		}
	}

done:
	_ = stream.Stop()
	_ = stream.Close()

	if r.isCanceled() {
		r.finish(Result{Canceled: true})
		return
	}

	r.finish(Result{Samples: samples, SampleRate: r.sampleRate})
}

// finish parks the result for Stop or Cancel to collect. The channel is
// captured under the lock so a racing Start can never swap it out from
// under a pending result; Start stays rejected until the result is taken.
func (r *Recorder) finish(res Result) {
	r.mu.Lock()
	if r.state != StateCanceled {
		r.state = StateStopped
	}
	done := r.done
	r.mu.Unlock()
	done <- res
}

func (r *Recorder) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateCanceled
}

// rmsLevel computes the root-mean-square level of a buffer
func rmsLevel(buf []float32) float32 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(buf))))
}
