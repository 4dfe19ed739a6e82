package resilience

import (
	"context"

	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
)

// ProviderChain is an [llm.Provider] that walks an ordered list of backing
// providers, returning the first successful completion. It exists so the
// extraction pipeline can be configured with a primary inference backend and
// any number of fallbacks without knowing about the chain.
type ProviderChain struct {
	group *FallbackGroup[llm.Provider]
}

// NewProviderChain returns a chain with a primary provider. name identifies
// the primary backend in logs (e.g. "openai/gpt-4o-mini").
func NewProviderChain(name string, primary llm.Provider) *ProviderChain {
	return &ProviderChain{
		group: NewFallbackGroup[llm.Provider]("inference", name, primary),
	}
}

// AddFallback appends a provider tried after all earlier ones fail.
func (c *ProviderChain) AddFallback(name string, p llm.Provider) {
	c.group.AddFallback(name, p)
}

// Len returns the number of providers in the chain.
func (c *ProviderChain) Len() int {
	return c.group.Len()
}

// Complete implements [llm.Provider]. Each backend is tried in order; the
// first success wins. When all fail the last provider's error is returned
// joined with [ErrAllFailed], preserving typed errors such as
// [llm.RateLimitError] for the caller's retry logic.
func (c *ProviderChain) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := c.group.Execute(ctx, func(ctx context.Context, p llm.Provider) error {
		r, err := p.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
