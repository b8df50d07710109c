// internal/models/location.go
package models

import "strings"

// LocationSource records how a location was obtained.
type LocationSource string

const (
	LocationSourcePattern LocationSource = "pattern"
	LocationSourceLLM     LocationSource = "llm"
	LocationSourceHistory LocationSource = "history"
	LocationSourceDefault LocationSource = "default"
	LocationSourcePinned  LocationSource = "pinned"
)

// SentinelLocation is the canonical "no location stated" value.
const SentinelLocation = "Global"

var sentinelValues = map[string]struct{}{
	"global":      {},
	"unspecified": {},
	"none":        {},
	"unknown":     {},
	"n/a":         {},
	"":            {},
}

// IsSentinelLocation reports whether s means "no location stated".
// Surrounding quotes and a trailing period are ignored.
func IsSentinelLocation(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'.`)
	_, ok := sentinelValues[strings.TrimSpace(s)]
	return ok
}

// LocationResult is the resolver's answer for one turn.
type LocationResult struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	Source     LocationSource `json:"source"`
	Sentinel   bool           `json:"sentinel"`
}
