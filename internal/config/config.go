// Package config loads the model-configuration file (spec.md §6.1) and
// reads the process-environment settings for graph backends, the
// sandboxed code executor, and search APIs, grounded on
// kgot/config/config.yaml and kgot/utils/llm_utils.py's get_llm model
// lookup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelFamily identifies which of the two oracle backends a model entry
// names.
type ModelFamily string

const (
	FamilyHostedAPI   ModelFamily = "hosted-api"
	FamilyLocalDaemon ModelFamily = "local-daemon"
)

// ModelEntry is one named model's provider configuration.
type ModelEntry struct {
	ModelFamily     ModelFamily `yaml:"model_family"`
	ModelID         string      `yaml:"model_id"`
	APIKey          string      `yaml:"api_key,omitempty"`
	OrganizationID  string      `yaml:"organization_id,omitempty"`
	Temperature     float64     `yaml:"temperature"`
	MaxTokens       int         `yaml:"max_tokens,omitempty"`
	NumCtx          int         `yaml:"num_ctx,omitempty"`
	NumPredict      int         `yaml:"num_predict,omitempty"`
	NumBatch        int         `yaml:"num_batch,omitempty"`
	ReasoningEffort string      `yaml:"reasoning_effort,omitempty"`
	BaseURL         string      `yaml:"base_url,omitempty"`
}

// ModelConfig maps logical model names (as named on the CLI by --llm-plan /
// --llm-exec) to their provider configuration.
type ModelConfig map[string]ModelEntry

// LoadModelConfig reads and parses the YAML model-configuration file at
// path.
func LoadModelConfig(path string) (ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model config %s: %w", path, err)
	}
	var cfg ModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing model config %s: %w", path, err)
	}
	return cfg, nil
}

// Lookup resolves a logical model name, erroring if it isn't present.
func (c ModelConfig) Lookup(name string) (ModelEntry, error) {
	entry, ok := c[name]
	if !ok {
		return ModelEntry{}, fmt.Errorf("config: no model entry named %q", name)
	}
	return entry, nil
}

// Backends holds the process-environment-supplied endpoints and credentials
// for the graph backends, the sandboxed code executor, and the search API,
// per spec.md §6.1's "process environment supplies backend endpoints"
// clause.
type Backends struct {
	Neo4jURI       string
	Neo4jUsername  string
	Neo4jPassword  string
	TripleReadURI  string
	TripleWriteURI string
	ExecutorURL    string
	SearchAPIKey   string
}

// BackendsFromEnv reads Backends from the process environment.
func BackendsFromEnv() Backends {
	return Backends{
		Neo4jURI:       os.Getenv("KGOT_NEO4J_URI"),
		Neo4jUsername:  os.Getenv("KGOT_NEO4J_USERNAME"),
		Neo4jPassword:  os.Getenv("KGOT_NEO4J_PASSWORD"),
		TripleReadURI:  os.Getenv("KGOT_TRIPLESTORE_READ_URI"),
		TripleWriteURI: os.Getenv("KGOT_TRIPLESTORE_WRITE_URI"),
		ExecutorURL:    os.Getenv("KGOT_EXECUTOR_URL"),
		SearchAPIKey:   os.Getenv("KGOT_SEARCH_API_KEY"),
	}
}
