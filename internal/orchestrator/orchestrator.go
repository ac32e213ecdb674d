package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store"
	"github.com/aitoys/voicegateway/internal/store/model"
)

type eventKind string

const (
	evAudio       eventKind = "audio"
	evListenStart eventKind = "listen_start"
	evListenStop  eventKind = "listen_stop"
	evText        eventKind = "text"
	evAbort       eventKind = "abort"
	evClose       eventKind = "close"
)

// event is the orchestrator's mailbox message: every external stimulus the
// transport or pipeline workers enqueue (spec §4.4, single-writer actor).
type event struct {
	kind   eventKind
	audio  []byte
	text   string
	reason string
}

// turnResult is what a turn's generation goroutine reports back once the
// LLM stream and TTS playback both finish or are cancelled.
type turnResult struct {
	turnID        int
	userText      string
	assistantText string
	emotion       string
	truncated     bool
	err           error
}

// Orchestrator is the single-writer actor driving one live session through
// spec §4.4.1's state machine. Only the goroutine running Run mutates
// state, currentTurn and pending; turn generation runs in a child
// goroutine that reports back exclusively through turnDone and
// speakingStarted.
type Orchestrator struct {
	agent AgentSnapshot
	log   zerolog.Logger
	clock func() time.Time

	caller   ModuleCaller
	messages store.Messages
	sessions store.Sessions
	recorder *metrics.Recorder

	sink Sink

	mailbox         chan event
	turnDone        chan turnResult
	speakingStarted chan int

	state        State
	turnSeq      int
	currentTurn  int
	activeCancel context.CancelFunc
	cancelled    map[int]bool
	pending      *event
	audioBuf     []byte
}

// New builds an Orchestrator for one session. Call Run in its own
// goroutine and feed external stimuli through the Enqueue* methods.
// recorder may be nil, in which case provider calls go unmetered (tests
// construct Orchestrators this way).
func New(agent AgentSnapshot, caller ModuleCaller, messages store.Messages, sessions store.Sessions, sink Sink, log zerolog.Logger, clock func() time.Time, recorder *metrics.Recorder) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		agent:           agent.withDefaults(),
		log:             log.With().Str("component", "orchestrator").Logger(),
		clock:           clock,
		caller:          caller,
		messages:        messages,
		sessions:        sessions,
		recorder:        recorder,
		sink:            sink,
		mailbox:         make(chan event, 32),
		turnDone:        make(chan turnResult, 1),
		speakingStarted: make(chan int, 1),
		state:           StateIdle,
		cancelled:       make(map[int]bool),
	}
}

func (o *Orchestrator) State() State { return o.state }

// EnqueueAudio delivers one inbound Opus/PCM frame from the transport.
func (o *Orchestrator) EnqueueAudio(data []byte) {
	o.enqueue(event{kind: evAudio, audio: data})
}

// EnqueueListen handles a `listen` control frame (spec §4.5).
func (o *Orchestrator) EnqueueListen(state string) {
	switch state {
	case "start":
		o.enqueue(event{kind: evListenStart})
	case "stop":
		o.enqueue(event{kind: evListenStop})
	}
}

// EnqueueText delivers a `text` frame's content as a new user turn.
func (o *Orchestrator) EnqueueText(content string) {
	o.enqueue(event{kind: evText, text: content})
}

// EnqueueAbort delivers an explicit `abort` control frame.
func (o *Orchestrator) EnqueueAbort(reason string) {
	o.enqueue(event{kind: evAbort, reason: reason})
}

// Close enqueues a close event; Run returns once it handles it. Close
// itself neither waits for nor cancels an in-flight turn.
func (o *Orchestrator) Close() {
	o.enqueue(event{kind: evClose})
}

func (o *Orchestrator) enqueue(ev event) {
	select {
	case o.mailbox <- ev:
	default:
		o.log.Warn().Str("kind", string(ev.kind)).Msg("mailbox full, dropping event")
	}
}

// Run processes the mailbox until ctx is done or Close is enqueued. It
// must run in exactly one goroutine per session.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.state = StateClosed
			return
		case ev, ok := <-o.mailbox:
			if !ok {
				o.state = StateClosed
				return
			}
			o.handle(ctx, ev)
		case res := <-o.turnDone:
			o.completeTurn(ctx, res)
		case turnID := <-o.speakingStarted:
			if turnID == o.currentTurn && o.state == StateGenerating {
				o.state = StateSpeaking
			}
		}
		if o.state == StateClosed {
			return
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evClose:
		o.state = StateClosed
	case evAbort:
		o.bargeIn(ctx, "abort")
	case evListenStart:
		if o.state == StateIdle {
			o.state = StateListening
		}
	case evListenStop:
		if o.state == StateListening && len(o.audioBuf) > 0 {
			o.transcribeBuffered(ctx)
		}
	case evAudio:
		o.handleAudio(ctx, ev.audio)
	case evText:
		o.handleText(ctx, ev.text)
	}
}

func (o *Orchestrator) handleAudio(ctx context.Context, data []byte) {
	if o.state == StateGenerating || o.state == StateSpeaking {
		if o.agent.ListeningMode != ListeningManual {
			o.bargeIn(ctx, "speech_detected")
			// Barge-in lands the actor back in IDLE; the speech that
			// triggered it keeps flowing, so resume it as the start of a
			// fresh listening window (spec §4.4.3 step 4: "...LISTENING
			// (if audio)").
			if o.state == StateIdle {
				o.state = StateListening
				o.audioBuf = append(o.audioBuf, data...)
			}
		}
		return
	}
	if o.state != StateListening && o.state != StateIdle {
		return
	}
	if o.state == StateIdle {
		o.state = StateListening
	}
	o.audioBuf = append(o.audioBuf, data...)

	if o.agent.ListeningMode == ListeningManual {
		return
	}

	vadScope := o.startMonitor(metrics.KindVAD, o.currentTurn, o.agent.ModuleCodes[registry.TypeVAD], len(data))
	res, cerr := o.caller.Call(ctx, registry.TypeVAD, o.agent.ModuleCodes[registry.TypeVAD], ToolVADDetect, map[string]any{
		"audio_chunk_bytes": len(data),
		"audio_b64":         base64.StdEncoding.EncodeToString(data),
	})
	if cerr != nil {
		o.endMonitor(vadScope, metrics.EndParams{Status: "error", ErrorKind: cerr.Kind})
		o.log.Warn().Str("kind", cerr.Kind).Msg("vad call failed")
		return
	}
	o.endMonitor(vadScope, metrics.EndParams{Status: "ok"})
	speechEnd, _ := res["speech_end"].(bool)
	if !speechEnd {
		return
	}
	o.transcribeBuffered(ctx)
}

func (o *Orchestrator) transcribeBuffered(ctx context.Context) {
	o.state = StateTranscribing
	buf := o.audioBuf
	o.audioBuf = nil

	asrScope := o.startMonitor(metrics.KindASR, o.currentTurn, o.agent.ModuleCodes[registry.TypeASR], len(buf))
	res, cerr := o.caller.Call(ctx, registry.TypeASR, o.agent.ModuleCodes[registry.TypeASR], ToolASRTranscribe, map[string]any{
		"audio_bytes": len(buf),
		"audio_b64":   base64.StdEncoding.EncodeToString(buf),
	})
	if cerr != nil {
		o.endMonitor(asrScope, metrics.EndParams{Status: "error", ErrorKind: cerr.Kind})
		o.log.Warn().Str("kind", cerr.Kind).Msg("asr call failed")
		o.state = StateIdle
		o.drainPending(ctx)
		return
	}
	text, _ := res["text"].(string)
	text = strings.TrimSpace(text)
	o.endMonitor(asrScope, metrics.EndParams{OutputChars: len(text), Status: "ok"})
	if text == "" {
		o.state = StateIdle
		o.drainPending(ctx)
		return
	}
	o.beginTurn(ctx, text)
}

func (o *Orchestrator) handleText(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	switch o.state {
	case StateGenerating, StateSpeaking:
		o.bargeIn(ctx, "text_frame")
		o.beginTurn(ctx, text)
	case StateTranscribing:
		// Queue-of-1: collapse to the latest input, dropping any previous
		// one with a non-fatal busy_dropped error (spec §4.4.5).
		if o.pending != nil {
			o.emitBusyDropped()
		}
		o.pending = &event{kind: evText, text: text}
	default:
		o.beginTurn(ctx, text)
	}
}

func (o *Orchestrator) emitBusyDropped() {
	if err := o.sink.SendFrame(OutboundFrame{
		Type:         "error",
		ErrorCode:    "busy_dropped",
		ErrorMessage: "a newer input superseded a queued turn",
		Retriable:    false,
	}); err != nil {
		o.log.Warn().Err(err).Msg("sending busy_dropped frame")
	}
}

func (o *Orchestrator) drainPending(ctx context.Context) {
	if o.pending == nil {
		return
	}
	next := *o.pending
	o.pending = nil
	o.handle(ctx, next)
}

// bargeIn implements spec §4.4.3: stop TTS immediately, cancel the
// in-flight generation, wait up to CancelDeadline for it to drain, and
// fall through to the caller's follow-up transition (beginTurn, or IDLE
// if nothing follows).
func (o *Orchestrator) bargeIn(ctx context.Context, reason string) {
	if o.state != StateGenerating && o.state != StateSpeaking {
		return
	}
	if err := o.sink.SendFrame(OutboundFrame{Type: "tts", TTSState: "stop"}); err != nil {
		o.log.Warn().Err(err).Msg("sending tts:stop during barge-in")
	}
	cancel := o.activeCancel
	turnID := o.currentTurn
	o.state = StateCancelling
	if cancel != nil {
		cancel()
	}

	select {
	case res := <-o.turnDone:
		o.completeTurn(ctx, res)
	case <-time.After(o.agent.CancelDeadline):
		o.log.Warn().Str("reason", reason).Int("turn_id", turnID).Msg("turn cancellation exceeded deadline; discarding late result")
		o.cancelled[turnID] = true
		o.state = StateIdle
	}
}

func (o *Orchestrator) beginTurn(ctx context.Context, userText string) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		o.state = StateIdle
		o.drainPending(ctx)
		return
	}
	o.turnSeq++
	turnID := o.turnSeq
	o.currentTurn = turnID

	turnCtx, cancel := context.WithCancel(ctx)
	o.activeCancel = cancel
	o.state = StateGenerating

	turns := assembleMessages(ctx, o.messages, o.agent, userText, o.log)
	go o.runTurn(turnCtx, turnID, userText, turns)
}

func (o *Orchestrator) completeTurn(ctx context.Context, res turnResult) {
	if o.cancelled[res.turnID] {
		delete(o.cancelled, res.turnID)
		return
	}
	if res.turnID != o.currentTurn {
		return
	}
	o.activeCancel = nil

	if res.err != nil {
		o.log.Warn().Err(res.err).Int("turn_id", res.turnID).Msg("turn ended with error")
	}
	if strings.TrimSpace(res.assistantText) != "" {
		o.persistTurn(ctx, res.userText, res.assistantText, res.emotion, res.truncated)
		if err := o.sink.SendFrame(OutboundFrame{Type: "llm", Content: res.assistantText, Emotion: res.emotion, Finished: true}); err != nil {
			o.log.Warn().Err(err).Msg("sending final llm frame")
		}
	}
	o.state = StateIdle
	o.drainPending(ctx)
}

func (o *Orchestrator) persistTurn(ctx context.Context, userText, assistantText, emotion string, truncated bool) {
	now := o.clock()
	if truncated {
		if emotion == "" {
			emotion = "truncated"
		} else {
			emotion = emotion + ",truncated"
		}
	}
	if _, err := o.messages.AppendMessage(ctx, &model.ChatMessage{
		SessionID: o.agent.SessionID, AgentID: o.agent.AgentID, Role: model.RoleUser,
		Content: userText, CopilotMode: o.agent.CopilotMode, CreatedAt: now,
	}); err != nil {
		o.log.Error().Err(err).Msg("persisting user message")
	}
	if _, err := o.messages.AppendMessage(ctx, &model.ChatMessage{
		SessionID: o.agent.SessionID, AgentID: o.agent.AgentID, Role: model.RoleAssistant,
		Content: assistantText, Emotion: emotion, CopilotMode: o.agent.CopilotMode, CreatedAt: now,
	}); err != nil {
		o.log.Error().Err(err).Msg("persisting assistant message")
	}
	if _, err := o.messages.CompactIfNeeded(ctx, o.agent.AgentID, o.agent.CopilotMode); err != nil {
		o.log.Warn().Err(err).Msg("compacting conversation history")
	}
}
