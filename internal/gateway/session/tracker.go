// Package session tracks live /ws/chat connections so a reconnecting
// client can resume its session (spec §4.5 "per-connection state"),
// adapted from vango-go-vai-lite's pkg/gateway/live/sessions.Tracker. The
// teacher's tracker is keyed by session id and only ever drops the
// bookkeeping entry for a replaced session; this one is keyed by the
// client-id header and actively closes the superseded socket with reason
// "supplanted", since that's the behaviour spec §4.5 calls for.
package session

import "sync"

// Handle is what the tracker needs to manage one live connection: its
// orchestrator session id (for resume) and a way to terminate it.
type Handle struct {
	SessionID string
	Close     func(reason string)
}

type Tracker struct {
	mu       sync.Mutex
	byClient map[string]*Handle
}

func NewTracker() *Tracker {
	return &Tracker{byClient: make(map[string]*Handle)}
}

// Attach registers a new connection for clientID. If a previous connection
// is already registered for the same clientID, it is closed with reason
// "supplanted" before the new handle replaces it. Returns the previous
// handle's SessionID (empty if none) so the caller can resume it instead of
// allocating a fresh session id.
func (t *Tracker) Attach(clientID string, h Handle) (resumedSessionID string, unregister func()) {
	if t == nil {
		return "", func() {}
	}
	t.mu.Lock()
	old := t.byClient[clientID]
	if clientID != "" {
		t.byClient[clientID] = &h
	}
	t.mu.Unlock()

	if old != nil {
		resumedSessionID = old.SessionID
		if old.Close != nil {
			old.Close("supplanted")
		}
	}

	return resumedSessionID, func() {
		if clientID == "" {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.byClient[clientID]; ok && cur == &h {
			delete(t.byClient, clientID)
		}
	}
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byClient)
}

// CloseAll terminates every tracked connection with the given reason, for
// graceful shutdown/draining.
func (t *Tracker) CloseAll(reason string) (closed int) {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	handles := make([]*Handle, 0, len(t.byClient))
	for _, h := range t.byClient {
		handles = append(handles, h)
	}
	t.mu.Unlock()

	for _, h := range handles {
		if h.Close != nil {
			h.Close(reason)
			closed++
		}
	}
	return closed
}
