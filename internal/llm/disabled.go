package llm

import "context"

// disabledClient is the no-op adapter used when no provider is configured.
// Affected candidates simply stay unresolved; the batch never fails.
type disabledClient struct{}

// NewDisabledClient returns a client that suggests nothing.
func NewDisabledClient() Client {
	return disabledClient{}
}

func (disabledClient) CategorizeBatch(_ context.Context, _ []BatchRequest, _ []string) (map[int]BatchSuggestion, error) {
	return map[int]BatchSuggestion{}, nil
}
