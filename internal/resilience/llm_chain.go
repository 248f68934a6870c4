package resilience

import (
	"context"

	"github.com/mwirth/ironlog/internal/observe"
	"github.com/mwirth/ironlog/pkg/provider/llm"
)

// LLMChain implements [llm.Provider] with automatic failover across multiple
// completion backends. Each backend carries its own breaker, so an offline
// primary (a dead local server, say) stops costing a timeout on every single
// capture.
type LLMChain struct {
	chain *Chain[llm.Provider]
}

var _ llm.Provider = (*LLMChain)(nil)

// NewLLMChain creates an [LLMChain] preferring primary.
func NewLLMChain(primaryName string, primary llm.Provider, cfg BreakerConfig) *LLMChain {
	return &LLMChain{chain: NewChain(primaryName, primary, cfg)}
}

// Add registers a lower-priority backend.
func (c *LLMChain) Add(name string, provider llm.Provider) {
	c.chain.Add(name, provider)
}

// Instrument attaches m so every completion call is counted per backend.
func (c *LLMChain) Instrument(m *observe.Metrics) {
	c.chain.Instrument(m)
}

// Complete sends the request to the first healthy backend.
func (c *LLMChain) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Run(ctx, c.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Capabilities reports the primary backend's capabilities. Static metadata
// does not participate in failover.
func (c *LLMChain) Capabilities() llm.Capabilities {
	return c.chain.Primary().Capabilities()
}
