// Package vad implements the "vad" pipeline stage (spec §4.1, §4.4.3's
// auto listening mode) as a simple RMS energy/silence-run detector.
//
// No voice-activity-detection library appears anywhere in the retrieved
// example pack (neither a dedicated VAD package nor one bundled inside a
// provider SDK) — every example that mentions VAD treats it as an external
// config slot (e.g. a `vad` service type string), never as code this
// module could import. Standard-library math over raw PCM16 samples is
// therefore used here deliberately, not by default; see DESIGN.md.
package vad

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/aitoys/voicegateway/internal/registry"
)

// module tracks a trailing run of below-threshold frames per session so a
// single short dip below threshold doesn't falsely end an utterance.
type module struct {
	threshold     float64
	silenceFrames int
	belowRun      int
}

// NewFactory builds a registry.Factory for a "vad" catalog entry. Unlike
// the LLM/TTS/ASR modules, there is no external provider to select — the
// factory always builds the same energy-threshold detector, tuned by the
// catalog entry's config.
func NewFactory() registry.Factory {
	return func() registry.Module {
		return &module{threshold: 0.02, silenceFrames: 3}
	}
}

func (m *module) Name() string        { return "energy" }
func (m *module) Description() string { return "RMS energy threshold voice activity detector" }
func (m *module) Tools() []registry.ToolSpec { return nil }

func (m *module) Construct(cfg registry.Config) error {
	m.threshold = cfg.Float("threshold", 0.02)
	m.silenceFrames = int(cfg.Float("silence_frames", 3))
	if m.threshold <= 0 {
		return fmt.Errorf("vad/energy: threshold must be positive")
	}
	return nil
}

// Call implements the "detect" tool handleAudio drives once per inbound
// frame: {"speech_end": true} once silenceFrames consecutive frames have
// fallen below threshold. A preceding frame of speech is not required, so a
// run of silence alone also reports true, and the result stays true for
// every further below-threshold frame.
func (m *module) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	if tool != "detect" {
		return nil, registry.NotSupported(tool)
	}
	b64, _ := args["audio_b64"].(string)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &registry.CallError{Kind: "bad_request", Message: err.Error(), Retriable: false}
	}
	if rms(raw) < m.threshold {
		m.belowRun++
	} else {
		m.belowRun = 0
	}
	return map[string]any{"speech_end": m.belowRun >= m.silenceFrames}, nil
}

// rms computes the root-mean-square amplitude of a little-endian PCM16
// buffer, normalized to [0, 1].
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		norm := float64(s) / 32768.0
		sum += norm * norm
	}
	return math.Sqrt(sum / float64(n))
}
