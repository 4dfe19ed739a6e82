package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidInferenceProviders lists known inference provider names. Used by
// [Validate] to warn about unrecognised names.
var ValidInferenceProviders = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral",
	"groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("providers.inference", cfg.Providers.Inference.Name)
	for i, fb := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		validateProviderName(prefix, fb.Name)
	}
	if cfg.Providers.Inference.Name == "" && len(cfg.Providers.Fallbacks) > 0 {
		errs = append(errs, errors.New("providers.fallbacks set without providers.inference"))
	}
	if cfg.Providers.Inference.Name == "" {
		slog.Warn("no inference provider configured; extraction runs on pattern and phonetic matching only")
	}

	if cfg.Pipeline.ChunkCharBudget < 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_char_budget %d is negative", cfg.Pipeline.ChunkCharBudget))
	}
	if cfg.Pipeline.ChunkOverlapSegments < 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_overlap_segments %d is negative", cfg.Pipeline.ChunkOverlapSegments))
	}
	if cfg.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers %d is negative", cfg.Pipeline.Workers))
	}
	if cfg.Pipeline.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_retries %d is negative", cfg.Pipeline.MaxRetries))
	}
	for _, floor := range []struct {
		name  string
		value float64
	}{
		{"pipeline.fuzzy_unit_floor", cfg.Pipeline.FuzzyUnitFloor},
		{"pipeline.scanner_floor", cfg.Pipeline.ScannerFloor},
		{"validation.min_confidence", cfg.Validation.MinConfidence},
	} {
		if floor.value < 0 || floor.value > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", floor.name, floor.value))
		}
	}

	if cfg.Validation.URL == "" && len(cfg.Validation.ExcludeCategories) > 0 {
		slog.Warn("validation.exclude_categories set but validation.url is empty; exclusions will not apply")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidInferenceProviders].
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidInferenceProviders, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"field", field,
		"name", name,
		"known", ValidInferenceProviders,
	)
}
