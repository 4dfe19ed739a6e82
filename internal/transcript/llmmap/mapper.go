// Package llmmap adapts an external inference provider into the term-mapping
// source used by the extraction pipeline: it prompts the model with a
// transcript chunk plus the known canonical vocabulary and parses the reply
// into a colloquial→official mapping.
//
// The package also contains the chunking executor that splits long
// transcripts into overlapping, size-bounded chunks and drives them through
// the provider under a bounded-concurrency worker pool with retry, backoff
// and per-chunk degradation.
package llmmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
)

// systemInstructions is the static system prompt. It is deliberately constant
// across requests so provider-side prompt caching can take effect.
const systemInstructions = `You correct speech-to-text errors in Warhammer 40,000 battle report transcripts.

You are given a transcript excerpt and lists of known official names (units, factions, stratagems, detachments, objectives, enhancements). Find phrases in the excerpt that are mistranscriptions, colloquialisms or abbreviations of official names and map each one to its official name.

Rules:
- Only map phrases that actually appear in the excerpt.
- Map to official names exactly as given in the known-name lists when possible.
- Do not map generic game mechanics (wounds, saves, charges, movement).
- Do not invent mappings for phrases that are already correct official names.

Respond with a JSON object of the form {"mappings": {"heard phrase": "Official Name", ...}}. If nothing needs correcting, respond with {"mappings": {}}.`

// mappingSchemaName identifies the response schema to providers that support
// structured output.
const mappingSchemaName = "term_mappings"

// mappingSchema constrains structured-output providers to the expected reply
// shape. Providers without schema support ignore it and rely on the prompt.
var mappingSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"mappings": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"mappings"},
	"additionalProperties": false,
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 2048
)

// MapperOption is a functional option for configuring a [Mapper].
type MapperOption func(*Mapper)

// WithTemperature overrides the sampling temperature. Default: 0.1 — mapping
// is an extraction task, not a generative one.
func WithTemperature(t float64) MapperOption {
	return func(m *Mapper) { m.temperature = t }
}

// WithMaxTokens overrides the completion token cap. Default: 2048.
func WithMaxTokens(n int) MapperOption {
	return func(m *Mapper) { m.maxTokens = n }
}

// Mapper turns one transcript chunk into a colloquial→official term mapping
// via a single provider call. Read-only after construction; safe for
// concurrent use.
type Mapper struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// NewMapper returns a [Mapper] backed by p.
func NewMapper(p llm.Provider, opts ...MapperOption) *Mapper {
	m := &Mapper{
		provider:    p,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// MapChunk requests term mappings for one chunk of transcript text.
// knownNames is the canonical vocabulary offered to the model; factions is
// the declared faction context for the report.
//
// Provider errors are returned as-is so the executor can classify them for
// retry. An unparseable reply is not an error: it degrades to an empty
// mapping and is logged, since retrying a syntactically confused model with
// the same prompt rarely helps.
func (m *Mapper) MapChunk(ctx context.Context, chunkText string, knownNames, factions []string) (map[string]string, error) {
	resp, err := m.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemInstructions,
		Messages: []llm.Message{
			{Role: "user", Content: buildUserPayload(chunkText, knownNames, factions)},
		},
		Temperature:    m.temperature,
		MaxTokens:      m.maxTokens,
		ResponseSchema: mappingSchema,
		SchemaName:     mappingSchemaName,
	})
	if err != nil {
		return nil, err
	}

	mappings, err := parseMappings(resp.Content)
	if err != nil {
		slog.Warn("unparseable mapping reply, degrading to empty mapping",
			"err", err, "reply_len", len(resp.Content))
		return map[string]string{}, nil
	}
	return mappings, nil
}

// buildUserPayload assembles the per-chunk user message: faction context and
// known vocabulary first, transcript text last.
func buildUserPayload(chunkText string, knownNames, factions []string) string {
	var b strings.Builder
	if len(factions) > 0 {
		b.WriteString("Factions in this battle report: ")
		b.WriteString(strings.Join(factions, ", "))
		b.WriteString("\n\n")
	}
	if len(knownNames) > 0 {
		b.WriteString("Known official names:\n")
		for _, n := range knownNames {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Transcript excerpt:\n")
	b.WriteString(chunkText)
	return b.String()
}

// parseMappings extracts the colloquial→official object from a model reply.
// It accepts both the schema shape {"mappings": {...}} and a bare object, and
// strips markdown code fences that non-structured backends like to add.
func parseMappings(content string) (map[string]string, error) {
	raw := stripFences(content)
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var wrapped struct {
		Mappings map[string]string `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Mappings != nil {
		return wrapped.Mappings, nil
	}

	var bare map[string]string
	if err := json.Unmarshal([]byte(raw), &bare); err != nil {
		return nil, fmt.Errorf("decode mapping object: %w", err)
	}
	return bare, nil
}

// stripFences removes a surrounding markdown code fence (``` or ```json).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON" or empty).
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
