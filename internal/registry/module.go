// Package registry implements the pluggable provider-module registry (spec §4.1,
// "UTCP" in the source system). A module is a provider implementation for one of
// the fixed pipeline stages — vad, asr, llm, tts, memory, intent — identified by
// (type, code). The registry owns a two-phase construct/init lifecycle, a uniform
// call/call-stream surface, and type+code based dispatch with a default fallback.
package registry

import (
	"context"
	"fmt"
)

// Type is one of the fixed module taxonomy slots.
type Type string

const (
	TypeVAD    Type = "vad"
	TypeASR    Type = "asr"
	TypeLLM    Type = "llm"
	TypeTTS    Type = "tts"
	TypeMemory Type = "memory"
	// TypeIntent is reserved for a future pre-LLM routing stage (spec §9 Open
	// Questions). No concrete implementation ships; the registry still accepts
	// factories registered under it.
	TypeIntent Type = "intent"
)

func (t Type) valid() bool {
	switch t {
	case TypeVAD, TypeASR, TypeLLM, TypeTTS, TypeMemory, TypeIntent:
		return true
	default:
		return false
	}
}

// ToolSpec describes one callable tool a module exposes, in the JSON-Schema-shaped
// convention function-calling LLMs expect.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object (draft 2020-12 subset) describing the
	// tool's argument shape. Left as a bare map rather than a typed schema
	// struct so modules can hand-author schemas without importing
	// jsonschema-go directly; Registry.Call/CallStream round-trip it into a
	// jsonschema.Schema and validate incoming args against it before
	// dispatch (see validate.go).
	Parameters map[string]any
}

// CallError is the uniform failure shape every module Call/CallStream returns
// instead of raising (spec §4.1 Failure semantics; Design Notes' "try/except for
// control flow" re-architecture).
type CallError struct {
	Kind      string // error_kind: matches the provider packages' ErrorType values where applicable
	Message   string
	Retriable bool
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NotSupported is returned by CallStream when a module doesn't implement
// streaming for the given tool.
func NotSupported(tool string) *CallError {
	return &CallError{Kind: "not_supported", Message: fmt.Sprintf("tool %q does not support streaming", tool), Retriable: false}
}

// StreamChunk is one element of a module's lazy streaming sequence. A module
// that streams writes StreamChunk values to a bounded channel; the consumer
// reads until the channel closes. Cancellation propagates by the caller's
// context being done, which the module must observe and close its producer.
type StreamChunk struct {
	Data  map[string]any
	Final bool
}

// Module is the uniform surface every provider implementation exposes,
// regardless of pipeline stage.
type Module interface {
	Name() string
	Description() string
	Tools() []ToolSpec
	Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *CallError)
}

// StreamingModule is implemented by modules whose tools support incremental
// results (e.g. an LLM module's chat-completion tool, a TTS module's
// synthesize tool). Modules without a streaming-capable tool simply don't
// implement this interface; the registry's CallStream reports NotSupported.
type StreamingModule interface {
	Module
	CallStream(ctx context.Context, tool string, args map[string]any) (<-chan StreamChunk, error)
}

// Constructible is the cheap, side-effect-free first lifecycle phase. Modules
// MUST NOT perform network or disk work here — only store configuration
// (spec §4.1 Construction contract).
type Constructible interface {
	Construct(cfg Config) error
}

// Initializable is the second lifecycle phase: may open network pools,
// validate credentials. Init failure marks the module unhealthy and excludes
// it from dispatch.
type Initializable interface {
	Init(ctx context.Context) error
}

// Config is the merged configuration handed to Construct: the catalog's
// default_config.json for (type, code), overlaid with the agent's
// ModuleParams.config for that module (spec §6 ModuleParams).
type Config struct {
	Type   Type
	Code   string
	Values map[string]any
}

// String returns a string value from Values, or def if absent/wrong type.
func (c Config) String(key, def string) string {
	if v, ok := c.Values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Float returns a float64 value from Values, or def if absent/wrong type.
func (c Config) Float(key string, def float64) float64 {
	if v, ok := c.Values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// Bool returns a bool value from Values, or def if absent/wrong type.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c.Values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Factory constructs a fresh, not-yet-constructed Module instance for one
// catalog entry. Registered once per (type, code) at program start — no
// runtime reflection (Design Notes §9).
type Factory func() Module
