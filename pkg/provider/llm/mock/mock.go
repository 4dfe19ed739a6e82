// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the mapping adapter sends correct
// CompletionRequests and to feed controlled responses without a live backend.
// All fields are safe to set before calling any method; mutating them during
// a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: `{"term map": {}}`},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Step is one scripted outcome in a sequenced mock. When [Provider.Steps] is
// non-empty, each Complete call consumes the next Step in order; calls past
// the end of the script fall back to CompleteResponse/CompleteErr.
type Step struct {
	// Response is returned when Err is nil.
	Response *llm.CompletionResponse

	// Err, if non-nil, is returned instead of a response.
	Err error
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CompleteResponse is returned by Complete. May be nil (returns nil, nil).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// Steps scripts a sequence of per-call outcomes, consumed in order.
	// Useful for retry tests (fail, fail, succeed).
	Steps []Step

	// CompleteFn, if non-nil, overrides all other response fields and is
	// invoked directly for every Complete call.
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Block, if non-nil, is closed by the test to release all in-flight
	// Complete calls. Used to observe concurrency limits.
	Block chan struct{}

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// inFlight tracks the number of Complete calls currently executing.
	inFlight    int
	maxInFlight int
	step        int
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	block := p.Block
	fn := p.CompleteFn
	var step *Step
	if p.step < len(p.Steps) {
		s := p.Steps[p.step]
		p.step++
		step = &s
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		return fn(ctx, req)
	}
	if step != nil {
		if step.Err != nil {
			return nil, step.Err
		}
		return step.Response, nil
	}
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	return p.CompleteResponse, nil
}

// MaxInFlight returns the highest number of simultaneous Complete calls
// observed so far.
func (p *Provider) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxInFlight
}
