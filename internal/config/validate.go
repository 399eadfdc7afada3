package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema constrains the shape of the loaded config before anything
// consumes it: unknown provider types, non-positive worker counts, and
// malformed size strings fail fast at startup instead of mid-flow.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "providers": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "enum": ["openai", "mock"]},
          "model": {"type": "string"},
          "api_key": {"type": "string"},
          "size": {"type": "string", "pattern": "^[0-9]+x[0-9]+$"},
          "quality": {"type": "string", "enum": ["", "low", "medium", "high"]},
          "rate_limit": {"type": "number", "minimum": 0},
          "max_retries": {"type": "integer", "minimum": 0, "maximum": 20},
          "retry_delay_seconds": {"type": "integer", "minimum": 0},
          "enabled": {"type": "boolean"}
        },
        "required": ["type"]
      }
    },
    "defaults": {
      "type": "object",
      "properties": {
        "provider": {"type": "string", "minLength": 1},
        "max_workers": {"type": "integer", "minimum": 1, "maximum": 64},
        "art_style": {"type": "string"}
      },
      "required": ["provider", "max_workers"]
    },
    "auth": {
      "type": "object",
      "properties": {
        "secret": {"type": "string"},
        "token_ttl_hours": {"type": "integer", "minimum": 1}
      }
    },
    "server": {
      "type": "object",
      "properties": {
        "addr": {"type": "string", "minLength": 1}
      }
    }
  },
  "required": ["providers", "defaults"]
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// Validate checks the config against the schema plus the one cross-field
// rule the schema cannot express: the default provider must exist.
func Validate(cfg *Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config for validation: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode config for validation: %w", err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, ok := cfg.Providers[cfg.Defaults.Provider]; !ok {
		return fmt.Errorf("invalid config: default provider %q is not configured", cfg.Defaults.Provider)
	}
	return nil
}
