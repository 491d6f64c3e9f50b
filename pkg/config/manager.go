package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/romdo/go-debounce"
)

// Manager handles configuration with atomic updates and hot-reload support.
type Manager struct {
	Service     Service
	current     atomic.Pointer[Config]
	sources     []Source
	callbacks   []func(*Config)
	callbackMu  sync.RWMutex
	reloadMu    sync.Mutex
	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
	closeOnce   sync.Once
	debounce    time.Duration
	stopReload  func()
}

func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{
		Service:  service,
		debounce: 100 * time.Millisecond,
	}
}

// Load loads configuration from sources and starts watching those that support it.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.reloadMu.Lock()
	m.sources = append([]Source(nil), sources...)
	m.reloadMu.Unlock()
	config, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.applyConfig(config)
	if m.watchCancel != nil {
		m.watchCancel()
	}
	if m.stopReload != nil {
		m.stopReload()
	}
	m.watchCtx, m.watchCancel = context.WithCancel(context.WithoutCancel(ctx))
	m.startWatching(sources)
	return config, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Reload forces a configuration reload from all sources.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	newConfig, err := m.Service.Load(ctx, m.sources...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	m.applyConfig(newConfig)
	return nil
}

// SetDebounce sets the quiet period a watched file must observe before it
// is reloaded. Bursts of writes inside the window produce one reload.
func (m *Manager) SetDebounce(duration time.Duration) {
	m.debounce = duration
}

// OnChange registers a callback invoked when the configuration changes.
func (m *Manager) OnChange(callback func(*Config)) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// Close stops watching and releases resources.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.watchCancel != nil {
			m.watchCancel()
		}
		m.watchWg.Wait()
		if m.stopReload != nil {
			m.stopReload()
		}
		m.reloadMu.Lock()
		sources := append([]Source(nil), m.sources...)
		m.reloadMu.Unlock()
		for _, source := range sources {
			if source == nil {
				continue
			}
			if err := source.Close(); err != nil {
				logger.FromContext(ctx).Error("failed to close configuration source", "error", err)
			}
		}
	})
	return nil
}

// startWatching subscribes to YAML sources. Writes are coalesced: a reload
// runs once a file has been quiet for the debounce window.
func (m *Manager) startWatching(sources []Source) {
	ctx := m.watchCtx
	reload, stop := debounce.New(m.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := m.Reload(ctx); err != nil {
			logger.FromContext(ctx).Error("failed to reload configuration", "error", err)
			return
		}
		logger.FromContext(ctx).Info("configuration reloaded", "source", SourceYAML)
	})
	m.stopReload = stop
	for _, source := range sources {
		if source == nil || source.Type() != SourceYAML {
			continue
		}
		src := source
		m.watchWg.Add(1)
		go func() {
			defer m.watchWg.Done()
			if err := src.Watch(ctx, reload); err != nil {
				logger.FromContext(ctx).Debug("source does not support watching", "source", src.Type(), "error", err)
			}
		}()
	}
}

// applyConfig swaps the configuration and notifies callbacks when it changed.
func (m *Manager) applyConfig(config *Config) {
	old := m.current.Swap(config)
	if old != nil && reflect.DeepEqual(old, config) {
		return
	}
	m.callbackMu.RLock()
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.callbackMu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback(config)
		}
	}
}
