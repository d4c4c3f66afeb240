package main

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"go.uber.org/zap"
)

const sampleRate = beep.SampleRate(44100)

type tone struct {
	freq []float64 // played in sequence
	dur  time.Duration
}

// cueTones stands in for the system sound effects of the database.
var cueTones = map[scene.Cue]tone{
	scene.CueCursor: {freq: []float64{880}, dur: 30 * time.Millisecond},
	scene.CueOK:     {freq: []float64{660, 990}, dur: 50 * time.Millisecond},
	scene.CueCancel: {freq: []float64{660, 440}, dur: 50 * time.Millisecond},
	scene.CueBuzzer: {freq: []float64{140}, dur: 120 * time.Millisecond},
}

// sound plays scene cues as generated tones. A failed speaker init leaves
// it silent.
type sound struct {
	mu     sync.Mutex
	ready  bool
	mixer  *beep.Mixer
	logger *zap.Logger
}

func newSound(logger *zap.Logger) *sound {
	s := &sound{mixer: &beep.Mixer{}, logger: logger}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		logger.Warn("audio unavailable", zap.Error(err))
		return s
	}
	speaker.Play(s.mixer)
	s.ready = true
	return s
}

// Play implements scene.Audio.
func (s *sound) Play(cue scene.Cue) {
	t, ok := cueTones[cue]
	if !ok {
		return
	}
	st, err := t.streamer()
	if err != nil {
		s.logger.Debug("tone", zap.String("cue", string(cue)), zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

func (t tone) streamer() (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(t.freq))
	for _, f := range t.freq {
		sine, err := generators.SineTone(sampleRate, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(sampleRate.N(t.dur), sine))
	}
	return beep.Seq(parts...), nil
}

func (s *sound) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	s.ready = false
}
