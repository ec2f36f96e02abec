package engine

import (
	"context"
	"sync"

	"github.com/finch-money/finch/internal/llm"
)

// MockLLMClient is a configurable fake AI adapter for tests.
type MockLLMClient struct {
	// Suggestions keyed by candidate description.
	Suggestions map[string]llm.BatchSuggestion
	// Unsolicited entries are merged into every response regardless of
	// what was requested, simulating a misbehaving provider.
	Unsolicited map[int]llm.BatchSuggestion
	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls int
}

// CategorizeBatch implements llm.Client.
func (m *MockLLMClient) CategorizeBatch(_ context.Context, requests []llm.BatchRequest, _ []string) (map[int]llm.BatchSuggestion, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	suggestions := make(map[int]llm.BatchSuggestion)
	for _, req := range requests {
		if s, ok := m.Suggestions[req.Description]; ok {
			suggestions[req.Index] = s
		}
	}
	for idx, s := range m.Unsolicited {
		suggestions[idx] = s
	}
	return suggestions, nil
}

// Calls reports how many times the client was invoked.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ llm.Client = (*MockLLMClient)(nil)
