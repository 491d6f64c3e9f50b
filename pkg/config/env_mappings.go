package config

import (
	"reflect"
	"strings"
	"sync"
)

// EnvMapping represents a mapping between environment variable and config path
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings derives environment variable mappings from struct tags.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		cachedMappings = extractMappings(reflect.TypeOf(Config{}), "")
	})
	return cachedMappings
}

func extractMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		koanfTag := field.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" {
			continue
		}
		configPath := koanfTag
		if prefix != "" {
			configPath = prefix + "." + koanfTag
		}
		if envTag := field.Tag.Get("env"); envTag != "" && envTag != "-" {
			mappings = append(mappings, EnvMapping{EnvVar: envTag, ConfigPath: configPath})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, extractMappings(field.Type, configPath)...)
		}
	}
	return mappings
}

func GenerateEnvToConfigMap() map[string]string {
	mappings := GenerateEnvMappings()
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m.ConfigPath
	}
	return result
}

// IsSensitiveConfigPath reports whether a config path holds a secret.
func IsSensitiveConfigPath(configPath string) bool {
	t := reflect.TypeOf(Config{})
	parts := strings.Split(configPath, ".")
	for i, part := range parts {
		found := false
		for j := 0; j < t.NumField(); j++ {
			field := t.Field(j)
			if field.Tag.Get("koanf") != part {
				continue
			}
			if i == len(parts)-1 {
				return field.Type == reflect.TypeOf(SensitiveString("")) || field.Tag.Get("sensitive") == "true"
			}
			if field.Type.Kind() != reflect.Struct {
				return false
			}
			t = field.Type
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return false
}
