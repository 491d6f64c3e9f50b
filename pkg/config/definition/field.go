package definition

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
)

// FieldDef defines a configuration field with its metadata
type FieldDef struct {
	Path      string       // Config path like "server.port"
	Default   any          // Default value
	CLIFlag   string       // CLI flag name like "port"
	Shorthand string       // Single character shorthand like "p"
	EnvVar    string       // Environment variable name like "SERVER_PORT"
	Type      reflect.Type // Field type for validation
	Help      string       // Help text for CLI
	Sensitive bool         // Never printed by diagnostics
}

// Registry holds all configuration field definitions
type Registry struct {
	fields map[string]FieldDef
	flags  map[string]string
	envs   map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[string]FieldDef),
		flags:  make(map[string]string),
		envs:   make(map[string]string),
	}
}

// Register adds a field. The schema is static, so a CLI flag or env var
// claimed by two paths is a programming error and panics.
func (r *Registry) Register(field *FieldDef) {
	if field.CLIFlag != "" {
		if owner, ok := r.flags[field.CLIFlag]; ok && owner != field.Path {
			panic(fmt.Sprintf("config: flag --%s used by %s and %s", field.CLIFlag, owner, field.Path))
		}
		r.flags[field.CLIFlag] = field.Path
	}
	if field.EnvVar != "" {
		if owner, ok := r.envs[field.EnvVar]; ok && owner != field.Path {
			panic(fmt.Sprintf("config: env %s used by %s and %s", field.EnvVar, owner, field.Path))
		}
		r.envs[field.EnvVar] = field.Path
	}
	r.fields[field.Path] = *field
}

func (r *Registry) GetField(path string) (FieldDef, bool) {
	field, exists := r.fields[path]
	return field, exists
}

func (r *Registry) GetDefault(path string) any {
	if field, exists := r.fields[path]; exists {
		return field.Default
	}
	return nil
}

// GetAllFields returns all registered fields ordered by path.
func (r *Registry) GetAllFields() []FieldDef {
	result := make([]FieldDef, 0, len(r.fields))
	for _, v := range r.fields {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// GetCLIFlagMapping returns a map of CLI flag names to config paths
func (r *Registry) GetCLIFlagMapping() map[string]string {
	return maps.Clone(r.flags)
}

// IsSensitive reports whether the value at path must be redacted.
func (r *Registry) IsSensitive(path string) bool {
	return r.fields[path].Sensitive
}
