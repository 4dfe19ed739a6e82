package llmmap_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adrpadua/battlereport-hud/internal/resilience"
	"github.com/adrpadua/battlereport-hud/internal/transcript/llmmap"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm/mock"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func seg(text string) types.TranscriptSegment {
	return types.TranscriptSegment{Text: text}
}

func mappingReply(pairs ...string) *llm.CompletionResponse {
	var b strings.Builder
	b.WriteString(`{"mappings": {`)
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", pairs[i], pairs[i+1])
	}
	b.WriteString("}}")
	return &llm.CompletionResponse{Content: b.String()}
}

func TestBuildChunksRespectsBudgetAndOverlap(t *testing.T) {
	t.Parallel()

	var segments []types.TranscriptSegment
	for i := 0; i < 10; i++ {
		segments = append(segments, seg(fmt.Sprintf("segment number %02d", i))) // 17 chars each
	}

	chunks := llmmap.BuildChunks(segments, 60, 2)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want >= 2", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1].Segments
		tail := prev[len(prev)-2:]
		if c.Segments[0].Text != tail[0].Text || c.Segments[1].Text != tail[1].Text {
			t.Errorf("chunk %d not seeded with predecessor tail: got %q/%q, want %q/%q",
				i, c.Segments[0].Text, c.Segments[1].Text, tail[0].Text, tail[1].Text)
		}
	}
}

func TestBuildChunksRoundTrip(t *testing.T) {
	t.Parallel()

	var segments []types.TranscriptSegment
	for i := 0; i < 25; i++ {
		segments = append(segments, seg(fmt.Sprintf("turn %d the wyches did things", i)))
	}

	const overlap = 2
	chunks := llmmap.BuildChunks(segments, 90, overlap)

	// Concatenating each chunk's non-overlap region reconstructs the
	// original segment sequence.
	var rebuilt []string
	for i, c := range chunks {
		segs := c.Segments
		if i > 0 {
			segs = segs[overlap:]
		}
		for _, s := range segs {
			rebuilt = append(rebuilt, s.Text)
		}
	}
	if len(rebuilt) != len(segments) {
		t.Fatalf("rebuilt %d segments, want %d", len(rebuilt), len(segments))
	}
	for i := range segments {
		if rebuilt[i] != segments[i].Text {
			t.Fatalf("segment %d = %q, want %q", i, rebuilt[i], segments[i].Text)
		}
	}
}

func TestBuildChunksOversizedSegment(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 500)
	chunks := llmmap.BuildChunks([]types.TranscriptSegment{
		seg("short"), seg(long), seg("tail"),
	}, 100, 1)

	found := false
	for _, c := range chunks {
		for _, s := range c.Segments {
			if s.Text == long {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("oversized segment missing from chunks")
	}
}

func TestMapTranscriptSingleRequestUnderBudget(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: mappingReply("witches", "Wyches")}
	e := llmmap.NewExecutor(llmmap.NewMapper(p), llmmap.WithCharBudget(10000))

	got, err := e.MapTranscript(context.Background(),
		[]types.TranscriptSegment{seg("the witches charged in"), seg("and wiped the squad")},
		nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got["witches"] != "Wyches" {
		t.Fatalf("mappings = %v", got)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("calls = %d, want 1 (no chunking under budget)", len(p.CompleteCalls))
	}
}

func TestMapTranscriptBoundedConcurrency(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: mappingReply(),
		Block:            make(chan struct{}),
	}
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithCharBudget(30),
		llmmap.WithOverlap(0),
		llmmap.WithWorkers(3),
	)

	var segments []types.TranscriptSegment
	for i := 0; i < 12; i++ {
		segments = append(segments, seg(fmt.Sprintf("segment body number %02d here", i)))
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		close(p.Block)
	}()

	if _, err := e.MapTranscript(context.Background(), segments, nil, nil); err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got := p.MaxInFlight(); got > 3 {
		t.Fatalf("max in-flight calls = %d, want <= 3", got)
	}
	if len(p.CompleteCalls) < 4 {
		t.Fatalf("calls = %d, want more chunks than workers", len(p.CompleteCalls))
	}
}

func TestMapTranscriptRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Steps: []mock.Step{
		{Err: &llm.ServerError{StatusCode: 500, Message: "transient"}},
		{Err: &llm.ServerError{StatusCode: 502, Message: "transient"}},
		{Response: mappingReply("fire over watch", "Fire Overwatch")},
	}}
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithMaxRetries(3),
		llmmap.WithBaseBackoff(time.Millisecond),
	)

	got, err := e.MapTranscript(context.Background(),
		[]types.TranscriptSegment{seg("I use fire over watch")}, nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got["fire over watch"] != "Fire Overwatch" {
		t.Fatalf("mappings = %v", got)
	}
	if len(p.CompleteCalls) != 3 {
		t.Fatalf("calls = %d, want 3", len(p.CompleteCalls))
	}
}

func TestMapTranscriptHonorsRetryAfterHint(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Steps: []mock.Step{
		{Err: &llm.RateLimitError{RetryAfter: 10 * time.Millisecond}},
		{Response: mappingReply("termies", "Terminator Squad")},
	}}
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithBaseBackoff(time.Minute), // would hang the test if used
	)

	done := make(chan struct{})
	var got map[string]string
	var err error
	go func() {
		got, err = e.MapTranscript(context.Background(),
			[]types.TranscriptSegment{seg("termies drop in")}, nil, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not use the server hint")
	}
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got["termies"] != "Terminator Squad" {
		t.Fatalf("mappings = %v", got)
	}
}

func TestMapTranscriptClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: &llm.ClientError{StatusCode: 400, Message: "bad request"}}
	e := llmmap.NewExecutor(llmmap.NewMapper(p), llmmap.WithBaseBackoff(time.Millisecond))

	got, err := e.MapTranscript(context.Background(),
		[]types.TranscriptSegment{seg("some text")}, nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("mappings = %v, want empty degradation", got)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("calls = %d, want 1 (client errors are final)", len(p.CompleteCalls))
	}
}

func TestMapTranscriptPayloadTooLargeRechunks(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	p := &mock.Provider{
		CompleteFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if calls.Add(1) == 1 {
				return nil, fmt.Errorf("request rejected: %w", llm.ErrPayloadTooLarge)
			}
			return mappingReply("witches", "Wyches"), nil
		},
	}
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithCharBudget(100),
		llmmap.WithOverlap(0),
	)

	got, err := e.MapTranscript(context.Background(), []types.TranscriptSegment{
		seg(strings.Repeat("a", 40)),
		seg(strings.Repeat("b", 40)),
	}, nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got["witches"] != "Wyches" {
		t.Fatalf("mappings = %v, want sub-chunk result", got)
	}
	// One oversized attempt plus two half-budget sub-chunks.
	if n := calls.Load(); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestMapTranscriptBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: &llm.ServerError{StatusCode: 503, Message: "hard down"}}
	cb := resilience.NewCircuitBreaker(1, time.Hour)
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithCharBudget(30),
		llmmap.WithOverlap(0),
		llmmap.WithWorkers(1),
		llmmap.WithMaxRetries(0),
		llmmap.WithBreaker(cb),
	)

	var segments []types.TranscriptSegment
	for i := 0; i < 6; i++ {
		segments = append(segments, seg(fmt.Sprintf("segment body number %02d here", i)))
	}

	got, err := e.MapTranscript(context.Background(), segments, nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("mappings = %v, want empty", got)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("calls = %d, want 1 (remaining chunks short-circuited)", len(p.CompleteCalls))
	}
}

func TestMapTranscriptLastWriterWinsAcrossChunks(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteFn: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			payload := req.Messages[len(req.Messages)-1].Content
			if strings.Contains(payload, "alpha") {
				return mappingReply("boys", "Ork Boyz"), nil
			}
			return mappingReply("boys", "Beast Snagga Boyz"), nil
		},
	}
	e := llmmap.NewExecutor(llmmap.NewMapper(p),
		llmmap.WithCharBudget(40),
		llmmap.WithOverlap(0),
	)

	got, err := e.MapTranscript(context.Background(), []types.TranscriptSegment{
		seg("alpha the boys moved up the board slowly"),
		seg("beta then the boys charged into combat"),
	}, nil, nil)
	if err != nil {
		t.Fatalf("MapTranscript: %v", err)
	}
	if got["boys"] != "Beast Snagga Boyz" {
		t.Fatalf("boys = %q, want later chunk's value", got["boys"])
	}
}
