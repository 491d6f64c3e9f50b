package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/compozy/sqlagent/pkg/config/definition"
	"gopkg.in/yaml.v3"
)

// envProvider marks the environment as a source. Loading itself is done by
// koanf's env provider inside the loader.
type envProvider struct{}

func NewEnvProvider() Source {
	return &envProvider{}
}

func (e *envProvider) Load() (map[string]any, error) {
	return make(map[string]any), nil
}

func (e *envProvider) Watch(_ context.Context, _ func()) error {
	return nil
}

func (e *envProvider) Type() SourceType {
	return SourceEnv
}

func (e *envProvider) Close() error {
	return nil
}

// cliProvider implements Source for CLI flags keyed by flag name.
type cliProvider struct {
	flags map[string]any
}

func NewCLIProvider(flags map[string]any) Source {
	return &cliProvider{
		flags: flags,
	}
}

// Load maps flag names to their configuration paths.
func (c *cliProvider) Load() (map[string]any, error) {
	config := make(map[string]any)
	if c.flags == nil {
		return config, nil
	}
	flagToPath := definition.CreateRegistry().GetCLIFlagMapping()
	for key, value := range c.flags {
		path, ok := flagToPath[key]
		if !ok {
			continue
		}
		if err := setNested(config, path, value); err != nil {
			return nil, fmt.Errorf("failed to set CLI flag %s: %w", key, err)
		}
	}
	return config, nil
}

func (c *cliProvider) Watch(_ context.Context, _ func()) error {
	return nil
}

func (c *cliProvider) Type() SourceType {
	return SourceCLI
}

func (c *cliProvider) Close() error {
	return nil
}

// setNested sets a value in a nested map structure using dot notation.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// yamlProvider implements Source for YAML files.
type yamlProvider struct {
	path      string
	watcher   *Watcher
	watcherMu sync.Mutex
	closeOnce sync.Once
}

func NewYAMLProvider(path string) Source {
	return &yamlProvider{
		path: path,
	}
}

// Load reads configuration from the YAML file. A missing file yields no values.
func (y *yamlProvider) Load() (map[string]any, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	return filterNilValues(config), nil
}

// filterNilValues recursively removes nil values so they never override defaults.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if filtered := filterNilValues(nested); len(filtered) > 0 {
				result[k] = filtered
			}
			continue
		}
		result[k] = v
	}
	return result
}

// Watch monitors the YAML file for changes. Repeated calls share one watcher.
func (y *yamlProvider) Watch(ctx context.Context, callback func()) error {
	y.watcherMu.Lock()
	defer y.watcherMu.Unlock()
	if y.watcher == nil {
		if _, err := os.Stat(y.path); err != nil {
			return fmt.Errorf("failed to watch YAML file: %w", err)
		}
		watcher, err := NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		y.watcher = watcher
	}
	if err := y.watcher.Watch(ctx, y.path, callback); err != nil {
		return fmt.Errorf("failed to watch YAML file: %w", err)
	}
	return nil
}

func (y *yamlProvider) Type() SourceType {
	return SourceYAML
}

func (y *yamlProvider) Close() error {
	var closeErr error
	y.closeOnce.Do(func() {
		y.watcherMu.Lock()
		defer y.watcherMu.Unlock()
		if y.watcher != nil {
			closeErr = y.watcher.Close()
			y.watcher = nil
		}
	})
	return closeErr
}
