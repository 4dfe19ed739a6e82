package llmmap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/adrpadua/battlereport-hud/internal/observe"
	"github.com/adrpadua/battlereport-hud/internal/resilience"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

const (
	defaultCharBudget      = 16000
	defaultOverlapSegments = 2
	defaultWorkers         = 3
	defaultMaxRetries      = 3
	defaultBaseBackoff     = time.Second
)

// Chunk is one size-bounded slice of the transcript sent as a single
// inference request. Index is the chunk's position in original transcript
// order.
type Chunk struct {
	Index    int
	Segments []types.TranscriptSegment
}

// Text joins the chunk's segment texts, one per line.
func (c Chunk) Text() string {
	parts := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n")
}

// BuildChunks splits segments into chunks of at most charBudget characters
// of segment text. Each chunk after the first is seeded with the last
// overlap segments of its predecessor so phrases spanning a boundary appear
// whole in at least one chunk. A single segment longer than the budget forms
// its own chunk rather than being split mid-segment.
func BuildChunks(segments []types.TranscriptSegment, charBudget, overlap int) []Chunk {
	if len(segments) == 0 {
		return nil
	}
	if charBudget < 1 {
		charBudget = defaultCharBudget
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []Chunk
	var cur []types.TranscriptSegment
	size := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Segments: cur})

		// Seed the next chunk with the tail of this one.
		k := overlap
		if k > len(cur) {
			k = len(cur)
		}
		seed := make([]types.TranscriptSegment, k)
		copy(seed, cur[len(cur)-k:])
		cur = seed
		size = 0
		for _, s := range seed {
			size += len(s.Text)
		}
	}

	for _, s := range segments {
		if size+len(s.Text) > charBudget && size > 0 {
			flush()
		}
		cur = append(cur, s)
		size += len(s.Text)
	}
	// cur always holds at least one segment past the overlap seed here:
	// flush only runs right before appending the segment that overflowed.
	chunks = append(chunks, Chunk{Index: len(chunks), Segments: cur})
	return chunks
}

// ExecutorOption is a functional option for configuring an [Executor].
type ExecutorOption func(*Executor)

// WithWorkers caps concurrent outbound inference calls. Default: 3.
func WithWorkers(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxRetries sets how many times a failed chunk call is retried before
// degrading to an empty mapping. Default: 3.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first retry delay; subsequent delays double.
// A server-provided retry-after hint overrides the computed delay.
// Default: 1s.
func WithBaseBackoff(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.baseBackoff = d
		}
	}
}

// WithCharBudget sets the per-chunk character budget. Default: 16000.
func WithCharBudget(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.charBudget = n
		}
	}
}

// WithOverlap sets how many trailing segments seed the next chunk.
// Default: 2.
func WithOverlap(k int) ExecutorOption {
	return func(e *Executor) {
		if k >= 0 {
			e.overlap = k
		}
	}
}

// WithBreaker routes every inference call through cb so a hard-down provider
// short-circuits the remaining chunks instead of burning each chunk's full
// retry budget.
func WithBreaker(cb *resilience.CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithExecutorMetrics records call latency, retries, failures and provider
// errors on m.
func WithExecutorMetrics(m *observe.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// Executor drives a whole transcript through the mapping provider: it chunks
// long transcripts, runs chunks on a bounded worker pool, retries transient
// failures and merges per-chunk mappings in original chunk order. Read-only
// after construction; safe for concurrent use.
type Executor struct {
	mapper  *Mapper
	breaker *resilience.CircuitBreaker
	metrics *observe.Metrics

	workers     int
	maxRetries  int
	baseBackoff time.Duration
	charBudget  int
	overlap     int
}

// NewExecutor returns an [Executor] over m.
func NewExecutor(m *Mapper, opts ...ExecutorOption) *Executor {
	e := &Executor{
		mapper:      m,
		workers:     defaultWorkers,
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		charBudget:  defaultCharBudget,
		overlap:     defaultOverlapSegments,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// MapTranscript produces the merged colloquial→official mapping for the
// whole transcript. Transcripts within the character budget go out as a
// single request; longer ones are chunked with overlap. Colloquial keys
// produced by multiple chunks resolve last-writer-wins in chunk order.
//
// Individual chunk failures degrade to empty mappings and never fail the
// run; the only returned error is context cancellation.
func (e *Executor) MapTranscript(ctx context.Context, segments []types.TranscriptSegment, knownNames, factions []string) (map[string]string, error) {
	if len(segments) == 0 {
		return map[string]string{}, nil
	}

	total := 0
	for _, s := range segments {
		total += len(s.Text)
	}

	var chunks []Chunk
	if total <= e.charBudget {
		chunks = []Chunk{{Index: 0, Segments: segments}}
	} else {
		chunks = BuildChunks(segments, e.charBudget, e.overlap)
	}

	results := make([]map[string]string, len(chunks))

	workers := e.workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= len(chunks) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.processChunk(gctx, chunks[i], knownNames, factions)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]string)
	for _, r := range results {
		for colloquial, official := range r {
			merged[colloquial] = official
		}
	}
	return merged, nil
}

// processChunk runs one chunk to completion, including the payload-too-large
// re-chunk path. It always returns a usable (possibly empty) mapping.
func (e *Executor) processChunk(ctx context.Context, c Chunk, knownNames, factions []string) map[string]string {
	m, err := e.callWithRetry(ctx, c.Text(), knownNames, factions)
	if err == nil {
		return m
	}

	if errors.Is(err, llm.ErrPayloadTooLarge) {
		if narrowed, ok := e.rechunkNarrower(ctx, c, knownNames, factions); ok {
			return narrowed
		}
	}

	slog.Warn("chunk degraded to empty mapping", "chunk", c.Index, "err", err)
	e.countChunkFailure(ctx)
	return map[string]string{}
}

// rechunkNarrower retries a payload-too-large chunk at half the character
// budget. Sub-chunks run sequentially: the original call already consumed
// this chunk's concurrency slot. A sub-chunk that is itself rejected as too
// large degrades alone.
func (e *Executor) rechunkNarrower(ctx context.Context, c Chunk, knownNames, factions []string) (map[string]string, bool) {
	sub := BuildChunks(c.Segments, e.charBudget/2, e.overlap)
	if len(sub) <= 1 {
		return nil, false
	}
	slog.Info("re-chunking oversized chunk", "chunk", c.Index, "sub_chunks", len(sub))

	merged := make(map[string]string)
	for _, sc := range sub {
		m, err := e.callWithRetry(ctx, sc.Text(), knownNames, factions)
		if err != nil {
			slog.Warn("sub-chunk degraded to empty mapping",
				"chunk", c.Index, "sub_chunk", sc.Index, "err", err)
			e.countChunkFailure(ctx)
			continue
		}
		for colloquial, official := range m {
			merged[colloquial] = official
		}
	}
	return merged, true
}

// callWithRetry performs one chunk call with up to maxRetries retries.
// Rate limits honor the server's retry-after hint; other retryable errors
// use exponential backoff. Payload-too-large, client errors and an open
// circuit breaker are returned immediately.
func (e *Executor) callWithRetry(ctx context.Context, text string, knownNames, factions []string) (map[string]string, error) {
	delay := e.baseBackoff
	for attempt := 0; ; attempt++ {
		var result map[string]string
		call := func() error {
			m, err := e.mapper.MapChunk(ctx, text, knownNames, factions)
			if err != nil {
				return err
			}
			result = m
			return nil
		}

		start := time.Now()
		var err error
		if e.breaker != nil {
			err = e.breaker.Execute(call)
		} else {
			err = call()
		}
		if e.metrics != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			e.metrics.InferenceDuration.Record(ctx, time.Since(start).Seconds())
		}
		if err == nil {
			return result, nil
		}

		kind := errorKind(err)
		if e.metrics != nil {
			e.metrics.ProviderErrors.Add(ctx, 1,
				metric.WithAttributes(attribute.String("kind", kind)))
		}

		if errors.Is(err, resilience.ErrCircuitOpen) || !llm.IsRetryable(err) {
			return nil, err
		}
		if attempt >= e.maxRetries {
			return nil, err
		}

		wait := delay
		if hint, ok := llm.RetryAfterHint(err); ok {
			wait = hint
		}
		delay *= 2

		if e.metrics != nil {
			e.metrics.InferenceRetries.Add(ctx, 1,
				metric.WithAttributes(attribute.String("reason", kind)))
		}
		slog.Debug("retrying chunk call", "attempt", attempt+1, "wait", wait, "reason", kind)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Executor) countChunkFailure(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.ChunkFailures.Add(ctx, 1)
	}
}

// errorKind buckets a provider error for metric attributes.
func errorKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	}
	var rle *llm.RateLimitError
	if errors.As(err, &rle) {
		return "rate_limit"
	}
	var se *llm.ServerError
	if errors.As(err, &se) {
		return "server"
	}
	var ce *llm.ClientError
	if errors.As(err, &ce) {
		return "client"
	}
	return "other"
}
