// Package mock provides an in-memory mock implementation of [llm.Provider]
// for use in unit tests.
//
// Set the exported Result fields before use; inspect the Call* fields after.
package mock

import (
	"context"
	"sync"

	"github.com/mwirth/ironlog/pkg/provider/llm"
)

// Provider is a mock implementation of [llm.Provider].
type Provider struct {
	mu sync.Mutex

	// CompleteResult is returned by [Provider.Complete]. Defaults to an empty
	// response if left nil.
	CompleteResult *llm.CompletionResponse

	// CompleteResults, when non-empty, is consumed one element per call
	// before falling back to CompleteResult. Useful for fallback-chain tests.
	CompleteResults []*llm.CompletionResponse

	// CompleteError is returned by [Provider.Complete].
	CompleteError error

	// CapabilitiesResult is returned by [Provider.Capabilities].
	CapabilitiesResult llm.Capabilities

	// CallCountComplete records how many times Complete was called.
	CallCountComplete int

	// RecordedRequests holds every request passed to Complete, in order.
	RecordedRequests []llm.CompletionRequest
}

// Compile-time assertion that Provider satisfies llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountComplete++
	p.RecordedRequests = append(p.RecordedRequests, req)
	if p.CompleteError != nil {
		return nil, p.CompleteError
	}
	if len(p.CompleteResults) > 0 {
		r := p.CompleteResults[0]
		p.CompleteResults = p.CompleteResults[1:]
		return r, nil
	}
	if p.CompleteResult == nil {
		return &llm.CompletionResponse{}, nil
	}
	return p.CompleteResult, nil
}

// Capabilities implements [llm.Provider].
func (p *Provider) Capabilities() llm.Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CapabilitiesResult
}
