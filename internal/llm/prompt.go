package llm

import (
	"fmt"
	"strings"
)

// buildBatchPrompt enumerates the candidate descriptions/amounts and the
// allowed bucket names, and asks for a strict JSON response.
func buildBatchPrompt(requests []BatchRequest, bucketNames []string) string {
	var b strings.Builder

	b.WriteString("Categorize these bank transactions into the user's buckets.\n\n")
	b.WriteString("Allowed buckets (use these names exactly, pick nothing else):\n")
	for _, name := range bucketNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}

	b.WriteString("\nTransactions:\n")
	for _, req := range requests {
		fmt.Fprintf(&b, "%d. %q amount %.2f\n", req.Index, req.Description, req.Amount)
	}

	b.WriteString(`
Respond with ONLY a JSON object of this exact shape:
{"suggestions":[{"index":0,"bucket":"<allowed bucket name>","confidence":0.0}]}

Rules:
- index is the transaction number shown above
- bucket must be one of the allowed bucket names, copied exactly
- confidence is your certainty between 0 and 1
- omit transactions you cannot place
`)

	return b.String()
}
