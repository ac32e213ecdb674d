package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// key identifies one catalog entry.
type key struct {
	typ  Type
	code string
}

// entry holds one module's lifecycle state. init() runs at most once over the
// process lifetime (spec §4.1 Dispatch guarantee), gated by sync.Once;
// lookups by (type, code) are idempotent and safe for concurrent callers.
type entry struct {
	factory Factory
	cfg     Config
	once    sync.Once

	mu      sync.RWMutex
	module  Module
	healthy bool
	initErr error
}

// Registry loads provider modules by (type, code), constructs them with
// merged configuration, and exposes a uniform call surface plus per-type
// default-fallback dispatch (spec §4.1).
type Registry struct {
	log zerolog.Logger

	mu        sync.RWMutex
	factories map[key]Factory
	entries   map[key]*entry
	defaults  map[Type]string // type -> default code
}

// New builds an empty registry. Factories are registered with RegisterFactory
// before LoadCatalog is called.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:       log.With().Str("component", "registry").Logger(),
		factories: make(map[key]Factory),
		entries:   make(map[key]*entry),
		defaults:  make(map[Type]string),
	}
}

// RegisterFactory binds a (type, code) pair to a constructor. Must be called
// before LoadCatalog resolves that entry.
func (r *Registry) RegisterFactory(typ Type, code string, f Factory) error {
	if !typ.valid() {
		return fmt.Errorf("registry: invalid module type %q", typ)
	}
	if code == "" {
		return fmt.Errorf("registry: module code must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key{typ, code}] = f
	return nil
}

// LoadCatalog registers catalog entries (merged config + default flags)
// produced by LoadCatalogFile. It does not construct or init any module —
// construction is lazy, on first Resolve/Call, per spec §4.1's "cheap
// construct()" contract.
func (r *Registry) LoadCatalog(entries []CatalogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seenDefault := map[Type]bool{}
	for _, ce := range entries {
		if !ce.Type.valid() {
			return fmt.Errorf("registry: invalid catalog module type %q", ce.Type)
		}
		k := key{ce.Type, ce.Code}
		if _, ok := r.factories[k]; !ok {
			return fmt.Errorf("registry: no factory registered for %s/%s", ce.Type, ce.Code)
		}
		r.entries[k] = &entry{factory: r.factories[k], cfg: Config{Type: ce.Type, Code: ce.Code, Values: ce.Config}}
		if ce.IsDefault {
			if seenDefault[ce.Type] {
				return fmt.Errorf("registry: more than one is_default entry for type %q", ce.Type)
			}
			seenDefault[ce.Type] = true
			r.defaults[ce.Type] = ce.Code
		}
	}
	return nil
}

// Resolve returns the constructed+initialized module for (type, code),
// falling back to the type's default module when code is empty (spec §4.1
// Dispatch). Construction and init happen at most once; a module whose
// Init failed is excluded from dispatch and Resolve returns its recorded
// error on every subsequent call (it is never retried automatically — retry
// policy belongs to the orchestrator, not the registry).
func (r *Registry) Resolve(ctx context.Context, typ Type, code string) (Module, error) {
	if code == "" {
		r.mu.RLock()
		def, ok := r.defaults[typ]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("registry: no default module for type %q", typ)
		}
		code = def
	}

	r.mu.RLock()
	e, ok := r.entries[key{typ, code}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: module %s/%s is not in the catalog", typ, code)
	}

	e.once.Do(func() {
		mod := e.factory()
		if c, ok := mod.(Constructible); ok {
			if err := c.Construct(e.cfg); err != nil {
				e.mu.Lock()
				e.initErr = fmt.Errorf("construct %s/%s: %w", typ, code, err)
				e.mu.Unlock()
				return
			}
		}
		if i, ok := mod.(Initializable); ok {
			if err := i.Init(ctx); err != nil {
				e.mu.Lock()
				e.initErr = fmt.Errorf("init %s/%s: %w", typ, code, err)
				e.mu.Unlock()
				r.log.Warn().Str("type", string(typ)).Str("code", code).Err(err).Msg("module init failed; excluded from dispatch")
				return
			}
		}
		e.mu.Lock()
		e.module = mod
		e.healthy = true
		e.mu.Unlock()
	})

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.initErr != nil {
		return nil, e.initErr
	}
	if !e.healthy {
		return nil, fmt.Errorf("registry: module %s/%s is unhealthy", typ, code)
	}
	return e.module, nil
}

// Call resolves the module and invokes the named tool. The module is
// responsible for its own internal synchronisation for concurrent calls
// (spec §4.1 Dispatch guarantee).
func (r *Registry) Call(ctx context.Context, typ Type, code, tool string, args map[string]any) (map[string]any, *CallError) {
	mod, err := r.Resolve(ctx, typ, code)
	if err != nil {
		return nil, &CallError{Kind: "unresolved", Message: err.Error(), Retriable: false}
	}
	if err := validateArgs(mod.Tools(), tool, args); err != nil {
		return nil, &CallError{Kind: "bad_request", Message: err.Error(), Retriable: false}
	}
	return mod.Call(ctx, tool, args)
}

// CallStream resolves the module and invokes the named tool's streaming
// surface. Modules that don't implement StreamingModule, or that don't
// support streaming for this specific tool, report NotSupported.
func (r *Registry) CallStream(ctx context.Context, typ Type, code, tool string, args map[string]any) (<-chan StreamChunk, *CallError) {
	mod, err := r.Resolve(ctx, typ, code)
	if err != nil {
		return nil, &CallError{Kind: "unresolved", Message: err.Error(), Retriable: false}
	}
	sm, ok := mod.(StreamingModule)
	if !ok {
		return nil, NotSupported(tool)
	}
	if verr := validateArgs(mod.Tools(), tool, args); verr != nil {
		return nil, &CallError{Kind: "bad_request", Message: verr.Error(), Retriable: false}
	}
	ch, err := sm.CallStream(ctx, tool, args)
	if err != nil {
		return nil, &CallError{Kind: "provider_error", Message: err.Error(), Retriable: true}
	}
	return ch, nil
}

// Tools returns the tool specs of the resolved module, for wiring into an
// LLM module's function-calling tool list.
func (r *Registry) Tools(ctx context.Context, typ Type, code string) ([]ToolSpec, error) {
	mod, err := r.Resolve(ctx, typ, code)
	if err != nil {
		return nil, err
	}
	return mod.Tools(), nil
}

// Healthy reports whether (type, code) constructed and initialized
// successfully. Used by the health endpoint and hot-reload tooling.
func (r *Registry) Healthy(typ Type, code string) bool {
	r.mu.RLock()
	e, ok := r.entries[key{typ, code}]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthy
}
