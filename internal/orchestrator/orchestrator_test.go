package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store/model"
)

// fakeCaller drives LLM/TTS/ASR/VAD calls from scripted responses so tests
// don't depend on a real registry or provider.
type fakeCaller struct {
	mu           sync.Mutex
	llmDeltas    []string
	llmEmotion   string
	asrText      string
	vadSpeechEnd bool
	ttsCalls     int
	blockLLM     chan struct{} // if set, CallStream blocks on this until closed

	// llmFailTimes CallStream attempts for TypeLLM fail before the
	// (llmFailTimes+1)th succeeds, reporting Retriable per llmFailRetriable.
	llmFailTimes    int
	llmFailRetriable bool
	llmAttempts     int
}

func (f *fakeCaller) Call(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	switch typ {
	case registry.TypeVAD:
		return map[string]any{"speech_end": f.vadSpeechEnd}, nil
	case registry.TypeASR:
		return map[string]any{"text": f.asrText}, nil
	case registry.TypeLLM:
		return map[string]any{"content": "synchronous reply"}, nil
	default:
		return map[string]any{}, nil
	}
}

func (f *fakeCaller) CallStream(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (<-chan registry.StreamChunk, *registry.CallError) {
	switch typ {
	case registry.TypeLLM:
		f.mu.Lock()
		f.llmAttempts++
		attempt := f.llmAttempts
		f.mu.Unlock()
		if attempt <= f.llmFailTimes {
			return nil, &registry.CallError{Kind: "provider_error", Message: "transient upstream failure", Retriable: f.llmFailRetriable}
		}
		ch := make(chan registry.StreamChunk, len(f.llmDeltas)+1)
		go func() {
			defer close(ch)
			if f.blockLLM != nil {
				select {
				case <-f.blockLLM:
				case <-ctx.Done():
					return
				}
			}
			for i, d := range f.llmDeltas {
				select {
				case ch <- registry.StreamChunk{Data: map[string]any{"delta": d}}:
				case <-ctx.Done():
					return
				}
				_ = i
			}
			select {
			case ch <- registry.StreamChunk{Data: map[string]any{"emotion": f.llmEmotion}, Final: true}:
			case <-ctx.Done():
			}
		}()
		return ch, nil
	case registry.TypeTTS:
		f.mu.Lock()
		f.ttsCalls++
		f.mu.Unlock()
		ch := make(chan registry.StreamChunk, 1)
		go func() {
			defer close(ch)
			select {
			case ch <- registry.StreamChunk{Data: map[string]any{"audio_b64": "AAAA"}, Final: true}:
			case <-ctx.Done():
			}
		}()
		return ch, nil
	default:
		ch := make(chan registry.StreamChunk)
		close(ch)
		return ch, nil
	}
}

type fakeMessages struct {
	mu       sync.Mutex
	appended []*model.ChatMessage
	compacted int
}

func (m *fakeMessages) AppendMessage(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, msg)
	return int64(len(m.appended)), nil
}

func (m *fakeMessages) RecentWindow(ctx context.Context, agentID string, copilotMode bool, limit int) ([]*model.ChatMessage, *model.CompressedHistory, error) {
	return nil, nil, nil
}

func (m *fakeMessages) ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	return nil, nil
}

func (m *fakeMessages) CompactIfNeeded(ctx context.Context, agentID string, copilotMode bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compacted++
	return false, nil
}

type fakeSink struct {
	mu     sync.Mutex
	frames []OutboundFrame
	audio  [][]byte
}

func (s *fakeSink) SendFrame(f OutboundFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSink) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, pcm)
	return nil
}

func (s *fakeSink) framesOfType(typ string) []OutboundFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboundFrame
	for _, f := range s.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func testAgent() AgentSnapshot {
	return AgentSnapshot{
		AgentID:      "agent-1",
		SessionID:    "session-1",
		SystemPrompt: "You are a friendly companion.",
		ModuleCodes: map[registry.Type]string{
			registry.TypeVAD: "fake", registry.TypeASR: "fake",
			registry.TypeLLM: "fake", registry.TypeTTS: "fake",
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestOrchestrator_TextTurnProducesSentencesAndPersists(t *testing.T) {
	caller := &fakeCaller{llmDeltas: []string{"Hi there.", " I am doing well."}, llmEmotion: "happy"}
	messages := &fakeMessages{}
	sink := &fakeSink{}
	o := New(testAgent(), caller, messages, nil, sink, zerolog.Nop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.EnqueueText("hello")

	waitFor(t, func() bool { return len(sink.framesOfType("llm")) > 0 })

	llmFrames := sink.framesOfType("llm")
	require.Len(t, llmFrames, 1)
	assert.True(t, llmFrames[0].Finished)
	assert.Equal(t, "happy", llmFrames[0].Emotion)

	ttsStarts := sink.framesOfType("tts")
	assert.NotEmpty(t, ttsStarts)

	waitFor(t, func() bool {
		messages.mu.Lock()
		defer messages.mu.Unlock()
		return len(messages.appended) == 2
	})
	assert.Equal(t, 1, messages.compacted)
	assert.Equal(t, StateIdle, o.State())
}

// fakeMetricsSink captures flushed rows so tests can assert on AIMetric
// accounting without a real store.
type fakeMetricsSink struct {
	mu   sync.Mutex
	rows []metrics.Row
}

func (s *fakeMetricsSink) InsertMetrics(ctx context.Context, rows []metrics.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakeMetricsSink) countKind(k metrics.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.Kind == k {
			n++
		}
	}
	return n
}

func TestOrchestrator_RetriesTransientLLMFailureOnce(t *testing.T) {
	caller := &fakeCaller{
		llmDeltas:        []string{"Hi there."},
		llmFailTimes:     1,
		llmFailRetriable: true,
	}
	messages := &fakeMessages{}
	sink := &fakeSink{}
	metricsSink := &fakeMetricsSink{}
	rec := metrics.NewRecorder(metricsSink, nil, zerolog.Nop(), metrics.RecorderConfig{Interval: 10 * time.Millisecond}, nil)
	o := New(testAgent(), caller, messages, nil, sink, zerolog.Nop(), nil, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)
	go rec.Run(ctx)

	o.EnqueueText("hello")

	waitFor(t, func() bool { return len(sink.framesOfType("llm")) > 0 })

	llmFrames := sink.framesOfType("llm")
	require.Len(t, llmFrames, 1)
	assert.Equal(t, "Hi there.", llmFrames[0].Content)

	caller.mu.Lock()
	attempts := caller.llmAttempts
	caller.mu.Unlock()
	assert.Equal(t, 2, attempts, "expected exactly one retry after the first transient failure")

	waitFor(t, func() bool { return metricsSink.countKind(metrics.KindLLM) == 2 })
}

func TestOrchestrator_DoesNotRetryNonRetriableLLMFailure(t *testing.T) {
	caller := &fakeCaller{
		llmFailTimes:     1,
		llmFailRetriable: false,
	}
	messages := &fakeMessages{}
	sink := &fakeSink{}
	o := New(testAgent(), caller, messages, nil, sink, zerolog.Nop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.EnqueueText("hello")

	waitFor(t, func() bool { return o.State() == StateIdle })

	caller.mu.Lock()
	attempts := caller.llmAttempts
	caller.mu.Unlock()
	assert.Equal(t, 1, attempts, "a non-retriable failure must not be retried")
	assert.Empty(t, sink.framesOfType("llm"), "no assistant message should be emitted for a failed turn")
}

func TestOrchestrator_BusyDroppedWhenTranscribingQueueCollapses(t *testing.T) {
	caller := &fakeCaller{asrText: ""} // ASR never resolves synchronously here; we drive state directly
	messages := &fakeMessages{}
	sink := &fakeSink{}
	o := New(testAgent(), caller, messages, nil, sink, zerolog.Nop(), nil, nil)

	o.state = StateTranscribing
	o.handleText(context.Background(), "first")
	o.handleText(context.Background(), "second")

	require.NotNil(t, o.pending)
	assert.Equal(t, "second", o.pending.text)

	errFrames := sink.framesOfType("error")
	require.Len(t, errFrames, 1)
	assert.Equal(t, "busy_dropped", errFrames[0].ErrorCode)
}

func TestOrchestrator_BargeInStopsTTSWithinDeadline(t *testing.T) {
	block := make(chan struct{})
	caller := &fakeCaller{llmDeltas: []string{"won't finish."}, blockLLM: block}
	messages := &fakeMessages{}
	sink := &fakeSink{}
	agent := testAgent()
	agent.CancelDeadline = 50 * time.Millisecond
	o := New(agent, caller, messages, nil, sink, zerolog.Nop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.EnqueueText("start talking")
	waitFor(t, func() bool { return o.State() == StateGenerating })

	o.EnqueueAbort("user pressed stop")

	waitFor(t, func() bool { return o.State() == StateIdle })

	ttsStop := false
	for _, f := range sink.framesOfType("tts") {
		if f.TTSState == "stop" {
			ttsStop = true
		}
	}
	assert.True(t, ttsStop, "expected a tts:stop frame on barge-in")
	close(block)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(StateIdle, StateListening))
	assert.True(t, canTransition(StateGenerating, StateSpeaking))
	assert.True(t, canTransition(StateSpeaking, StateCancelling))
	assert.False(t, canTransition(StateIdle, StateSpeaking))
	assert.False(t, canTransition(StateClosed, StateIdle), "closed is terminal")
	assert.True(t, canTransition(StateListening, StateClosed))
}
