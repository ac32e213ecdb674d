package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/registry"
)

func newMonitorID() string { return uuid.New().String() }

func turnIDString(turnID int) string { return strconv.Itoa(turnID) }

// transientBackoff builds the bounded exponential backoff spec §7's
// provider_transient policy drives: one retry after a short delay, capped
// well inside a turn's lifetime so the retry never outlasts the turn's own
// ctx (bargeIn's cancel, or the session closing, aborts it like any other
// provider call).
func transientBackoff() retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	return retry.WithMaxRetries(1, b)
}

// streamCall is the shape of a single CallStream attempt, closed over the
// specific (type, code, tool, args) a caller wants retried.
type streamCall func(ctx context.Context) (<-chan registry.StreamChunk, *registry.CallError)

// callStreamRetrying runs fn, and on a retriable CallError retries exactly
// once after transientBackoff's delay (spec §7 provider_transient, spec
// testable scenario 4). Every attempt — including a failed one that never
// opens a stream — gets its own metrics scope; the scope for the attempt
// that finally succeeds is returned so the caller can End it once the
// stream itself finishes, since stream-body stats (output chars, tokens)
// aren't known until then.
func (o *Orchestrator) callStreamRetrying(ctx context.Context, kind metrics.Kind, turnID int, provider string, inputChars int, fn streamCall) (<-chan registry.StreamChunk, *metrics.Scope, *registry.CallError) {
	var (
		chunks  <-chan registry.StreamChunk
		succ    *metrics.Scope
		lastErr *registry.CallError
	)

	_ = retry.Do(ctx, transientBackoff(), func(ctx context.Context) error {
		attemptScope := o.startMonitor(kind, turnID, provider, inputChars)
		c, cerr := fn(ctx)
		if cerr == nil {
			chunks, succ, lastErr = c, attemptScope, nil
			return nil
		}
		o.endMonitor(attemptScope, metrics.EndParams{Status: "error", ErrorKind: cerr.Kind})
		lastErr = cerr
		if !cerr.Retriable {
			return cerr
		}
		return retry.RetryableError(cerr)
	})

	return chunks, succ, lastErr
}

// startMonitor acquires a monitor scope for one provider call, or nil when
// no recorder is wired (unit tests construct Orchestrators without one).
func (o *Orchestrator) startMonitor(kind metrics.Kind, turnID int, provider string, inputChars int) *metrics.Scope {
	if o.recorder == nil {
		return nil
	}
	return o.recorder.Start(newMonitorID(), o.agent.SessionID, turnIDString(turnID), kind, provider, "", inputChars)
}

// endMonitor completes a monitor scope started by startMonitor. Safe to
// call with a nil scope (no recorder wired) or a nil Orchestrator recorder.
func (o *Orchestrator) endMonitor(s *metrics.Scope, p metrics.EndParams) {
	if s == nil || o.recorder == nil {
		return
	}
	o.recorder.End(s, p)
}
