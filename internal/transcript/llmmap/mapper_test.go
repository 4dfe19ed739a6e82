package llmmap_test

import (
	"context"
	"strings"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/transcript/llmmap"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm/mock"
)

func TestMapChunkParsesSchemaShape(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"mappings": {"witches": "Wyches", "are con": "Archon"}}`,
	}}
	m := llmmap.NewMapper(p)

	got, err := m.MapChunk(context.Background(), "the witches charged", nil, nil)
	if err != nil {
		t.Fatalf("MapChunk: %v", err)
	}
	if got["witches"] != "Wyches" || got["are con"] != "Archon" {
		t.Fatalf("mappings = %v", got)
	}
}

func TestMapChunkStripsMarkdownFences(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: "```json\n{\"mappings\": {\"termies\": \"Terminator Squad\"}}\n```",
	}}
	m := llmmap.NewMapper(p)

	got, err := m.MapChunk(context.Background(), "termies deep strike", nil, nil)
	if err != nil {
		t.Fatalf("MapChunk: %v", err)
	}
	if got["termies"] != "Terminator Squad" {
		t.Fatalf("mappings = %v", got)
	}
}

func TestMapChunkAcceptsBareObject(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"drew carey": "Drukhari"}`,
	}}
	m := llmmap.NewMapper(p)

	got, err := m.MapChunk(context.Background(), "playing drew carey", nil, nil)
	if err != nil {
		t.Fatalf("MapChunk: %v", err)
	}
	if got["drew carey"] != "Drukhari" {
		t.Fatalf("mappings = %v", got)
	}
}

func TestMapChunkUnparseableDegradesToEmpty(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: "Sure! Here are the mappings you asked for:",
	}}
	m := llmmap.NewMapper(p)

	got, err := m.MapChunk(context.Background(), "whatever", nil, nil)
	if err != nil {
		t.Fatalf("MapChunk: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("mappings = %v, want empty", got)
	}
}

func TestMapChunkPropagatesProviderError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: &llm.ServerError{StatusCode: 503, Message: "down"}}
	m := llmmap.NewMapper(p)

	if _, err := m.MapChunk(context.Background(), "text", nil, nil); err == nil {
		t.Fatal("want provider error, got nil")
	}
}

func TestMapChunkRequestPayload(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: `{"mappings": {}}`}}
	m := llmmap.NewMapper(p, llmmap.WithTemperature(0.2), llmmap.WithMaxTokens(512))

	_, err := m.MapChunk(context.Background(),
		"the archon advanced",
		[]string{"Archon", "Wyches"},
		[]string{"Drukhari", "Space Marines"},
	)
	if err != nil {
		t.Fatalf("MapChunk: %v", err)
	}

	if len(p.CompleteCalls) != 1 {
		t.Fatalf("calls = %d, want 1", len(p.CompleteCalls))
	}
	req := p.CompleteCalls[0].Req

	if req.SystemPrompt == "" {
		t.Error("system prompt not set")
	}
	if req.Temperature != 0.2 || req.MaxTokens != 512 {
		t.Errorf("temperature/maxTokens = %v/%v", req.Temperature, req.MaxTokens)
	}
	if req.ResponseSchema == nil || req.SchemaName == "" {
		t.Error("response schema not set")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}

	payload := req.Messages[0].Content
	for _, want := range []string{"the archon advanced", "Archon", "Wyches", "Drukhari", "Space Marines"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}
