package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"flapneat/internal/storage"
)

// SupportModule is a long-running service started alongside the store, such
// as the snapshot observer.
type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	Store          storage.Store
	SupportModules []SupportModule
}

// Polis owns the store and support modules for one process.
type Polis struct {
	store storage.Store

	mu             sync.RWMutex
	supportModules map[string]SupportModule
	order          []SupportModule
	started        bool

	config Config
}

func NewPolis(cfg Config) *Polis {
	return &Polis{
		store:          cfg.Store,
		supportModules: make(map[string]SupportModule),
		config:         cfg,
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}

	started := make([]SupportModule, 0, len(p.config.SupportModules))
	fail := func(err error) error {
		stopSupportModules(ctx, started)
		p.supportModules = make(map[string]SupportModule)
		p.order = nil
		return err
	}
	for i, module := range p.config.SupportModules {
		if module == nil {
			return fail(fmt.Errorf("support module is nil at index %d", i))
		}
		name := module.Name()
		if name == "" {
			return fail(fmt.Errorf("support module name is required at index %d", i))
		}
		if _, exists := p.supportModules[name]; exists {
			return fail(fmt.Errorf("duplicate support module: %s", name))
		}
		if err := module.Start(ctx); err != nil {
			return fail(fmt.Errorf("start support module %s: %w", name, err))
		}
		p.supportModules[name] = module
		started = append(started, module)
	}
	p.order = started
	p.started = true
	return nil
}

func (p *Polis) Store() storage.Store { return p.store }

// Stop stops support modules in reverse start order and closes the store.
func (p *Polis) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	stopSupportModules(ctx, p.order)
	p.supportModules = make(map[string]SupportModule)
	p.order = nil
	p.started = false
	return storage.CloseIfSupported(p.store)
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) ActiveSupportModules() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.supportModules))
	for name := range p.supportModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}
