package common

import "strings"

// NormalizeText lower-cases a string and collapses all runs of whitespace to
// a single space. It is the shared normalization used by fingerprinting and
// keyword matching so that both see the same view of a description.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
