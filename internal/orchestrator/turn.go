package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/registry"
)

// runTurn drives one generation: it streams the LLM's text deltas through
// a sentence accumulator, handing each complete sentence to a single TTS
// worker that preserves emission order (spec §4.4.4), and reports the
// outcome back to the actor over o.turnDone. It never touches o.state
// directly — only the actor goroutine does that, on receipt of the
// result or of a speakingStarted notification.
func (o *Orchestrator) runTurn(ctx context.Context, turnID int, userText string, turns []ChatTurn) {
	sentenceCh := make(chan string, 8)
	ttsErrCh := make(chan error, 1)
	go o.speakSentences(ctx, turnID, sentenceCh, ttsErrCh)

	acc := &sentenceAccumulator{}
	var full strings.Builder
	emotion := ""

	llmCode := o.agent.ModuleCodes[registry.TypeLLM]
	inputChars := len(o.agent.SystemPrompt)
	for _, t := range turns {
		inputChars += len(t.Content)
	}
	chunks, llmScope, cerr := o.callStreamRetrying(ctx, metrics.KindLLM, turnID, llmCode, inputChars,
		func(ctx context.Context) (<-chan registry.StreamChunk, *registry.CallError) {
			return o.caller.CallStream(ctx, registry.TypeLLM, llmCode, ToolLLMChat, map[string]any{
				"system":   o.agent.SystemPrompt,
				"messages": chatTurnsToArgs(turns),
			})
		})

	var callErr error
	if cerr != nil {
		callErr = cerr
	} else {
	readLoop:
		for {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					break readLoop
				}
				if delta, _ := chunk.Data["delta"].(string); delta != "" {
					full.WriteString(delta)
					for _, s := range acc.Feed(delta) {
						sendSentence(ctx, sentenceCh, s)
					}
				}
				if e, ok := chunk.Data["emotion"].(string); ok && e != "" {
					emotion = e
				}
				if chunk.Final {
					break readLoop
				}
			case <-ctx.Done():
				break readLoop
			}
		}
	}
	if tail := acc.Flush(); tail != "" {
		sendSentence(ctx, sentenceCh, tail)
	}
	close(sentenceCh)

	if llmScope != nil {
		status, errKind := "ok", ""
		if callErr != nil {
			status = "error"
			if ce, ok := callErr.(*registry.CallError); ok {
				errKind = ce.Kind
			}
		}
		o.endMonitor(llmScope, metrics.EndParams{OutputChars: full.Len(), Status: status, ErrorKind: errKind})
	}

	ttsErr := <-ttsErrCh
	truncated := ctx.Err() != nil

	var err error
	switch {
	case callErr != nil:
		err = callErr
	case ttsErr != nil:
		err = ttsErr
	}

	result := turnResult{
		turnID:        turnID,
		userText:      userText,
		assistantText: strings.TrimSpace(full.String()),
		emotion:       emotion,
		truncated:     truncated,
		err:           err,
	}
	select {
	case o.turnDone <- result:
	case <-time.After(2 * time.Second):
	}
}

func sendSentence(ctx context.Context, ch chan<- string, s string) {
	select {
	case ch <- s:
	case <-ctx.Done():
	}
}

// speakSentences consumes sentences strictly in order — the "small
// per-sentence mutex" spec §4.4.4 names is this single consumer goroutine
// rather than a lock, since only one goroutine ever calls TTS per turn.
// It sends the tts:start/audio/tts:stop frame triplet for each sentence
// and notifies the actor of the first sentence boundary so state can
// advance GENERATING -> SPEAKING.
func (o *Orchestrator) speakSentences(ctx context.Context, turnID int, sentences <-chan string, done chan<- error) {
	first := true
	for sentence := range sentences {
		if ctx.Err() != nil {
			continue // drain without speaking once cancelled (spec §4.4.3 step 3)
		}
		if first {
			first = false
			select {
			case o.speakingStarted <- turnID:
			default:
			}
		}
		if err := o.speakOne(ctx, turnID, sentence); err != nil {
			done <- err
			// keep draining so sentenceCh's sender never blocks, but stop
			// issuing further TTS calls.
			for range sentences {
			}
			return
		}
	}
	done <- nil
}

func (o *Orchestrator) speakOne(ctx context.Context, turnID int, sentence string) (err error) {
	if err := o.sink.SendFrame(OutboundFrame{Type: "tts", TTSState: "start", Text: sentence}); err != nil {
		return err
	}
	ttsCode := o.agent.ModuleCodes[registry.TypeTTS]
	chunks, ttsScope, cerr := o.callStreamRetrying(ctx, metrics.KindTTS, turnID, ttsCode, len(sentence),
		func(ctx context.Context) (<-chan registry.StreamChunk, *registry.CallError) {
			return o.caller.CallStream(ctx, registry.TypeTTS, ttsCode, ToolTTSSynthesize, map[string]any{
				"text": sentence,
			})
		})
	if cerr != nil {
		return cerr
	}

	outputBytes := 0
	defer func() {
		status, errKind := "ok", ""
		if err != nil {
			status = "error"
		}
		o.endMonitor(ttsScope, metrics.EndParams{OutputChars: outputBytes, Status: status, ErrorKind: errKind})
	}()

	for chunk := range chunks {
		if ctx.Err() != nil {
			continue
		}
		if b64, ok := chunk.Data["audio_b64"].(string); ok && b64 != "" {
			pcm, derr := decodeAudio(b64)
			if derr != nil {
				err = derr
				return err
			}
			outputBytes += len(pcm)
			if serr := o.sink.SendAudio(pcm); serr != nil {
				err = serr
				return err
			}
		}
		if chunk.Final {
			break
		}
	}
	err = o.sink.SendFrame(OutboundFrame{Type: "tts", TTSState: "stop", Text: sentence})
	return err
}
