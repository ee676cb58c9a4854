package audio

import (
	"time"
)

const framesPerBuffer = 1024

type MicrophoneConfig struct {
	SampleRate int
	// MaxDuration caps a single recording.
	MaxDuration time.Duration
	// SilenceThreshold is the absolute sample amplitude below which a frame
	// counts as silent.
	SilenceThreshold int16
	// SilenceDuration of trailing silence after speech ends the recording.
	// Zero disables silence detection.
	SilenceDuration time.Duration
}

func (c MicrophoneConfig) withDefaults() MicrophoneConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 30 * time.Second
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 500
	}
	return c
}

// recording accumulates frames and decides when a capture is complete.
type recording struct {
	cfg          MicrophoneConfig
	samples      []int16
	heardSpeech  bool
	silentFrames int
}

func newRecording(cfg MicrophoneConfig) *recording {
	cfg = cfg.withDefaults()
	return &recording{
		cfg:     cfg,
		samples: make([]int16, 0, cfg.SampleRate*5),
	}
}

// add appends a frame and reports whether the recording should stop.
func (r *recording) add(frame []int16) bool {
	r.samples = append(r.samples, frame...)

	if isSilent(frame, r.cfg.SilenceThreshold) {
		r.silentFrames += len(frame)
	} else {
		r.heardSpeech = true
		r.silentFrames = 0
	}

	if len(r.samples) >= int(r.cfg.MaxDuration.Seconds()*float64(r.cfg.SampleRate)) {
		return true
	}

	if r.cfg.SilenceDuration > 0 && r.heardSpeech {
		limit := int(r.cfg.SilenceDuration.Seconds() * float64(r.cfg.SampleRate))
		return r.silentFrames >= limit
	}
	return false
}

func (r *recording) wav() ([]byte, error) {
	return EncodeWAV(r.samples, r.cfg.SampleRate, 1)
}

func isSilent(frame []int16, threshold int16) bool {
	for _, sample := range frame {
		if sample > threshold || sample < -threshold {
			return false
		}
	}
	return true
}
