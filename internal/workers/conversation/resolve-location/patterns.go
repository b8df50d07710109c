// internal/workers/conversation/resolve-location/patterns.go
package resolvelocation

import (
	"regexp"
	"strings"
)

// Pattern is one extraction rule. The first capture group is the place.
type Pattern struct {
	Regex      *regexp.Regexp
	Confidence float64
}

// place matches a run of capitalised words, optionally comma separated.
const place = `([A-Z][a-zA-Z.'-]*(?:,?\s+[A-Z][a-zA-Z.'-]*)*)`

// DefaultPatterns returns the built-in rules, most specific first.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Regex: regexp.MustCompile(`\b(?i:our|the)\s+` + place +
				`\s+(?i:facility|facilities|distribution|center|centre|plant|warehouse|office|site|headquarters|store|factory)\b`),
			Confidence: 0.9,
		},
		{
			Regex:      regexp.MustCompile(`\b(?i:in|at|for(?:\s+our)?)\s+` + place),
			Confidence: 0.75,
		},
		{
			Regex:      regexp.MustCompile(`\b(?i:near|around)\s+` + place),
			Confidence: 0.4,
		},
	}
}

// notPlaces are capitalised words that follow "in", "at" or "for" but
// name a time rather than a place.
var notPlaces = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true,
	"spring": true, "summer": true, "autumn": true, "fall": true, "winter": true,
	"today": true, "tomorrow": true, "q1": true, "q2": true, "q3": true, "q4": true,
}

// leadingArticles are dropped from the front of a candidate.
var leadingArticles = map[string]bool{"the": true, "this": true, "that": true, "our": true}

// matchPatterns returns the first acceptable candidate, trying every
// match of a rule before moving to the next rule.
func matchPatterns(patterns []Pattern, text string) (string, float64, bool) {
	for _, p := range patterns {
		for _, m := range p.Regex.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if candidate := cleanCandidate(m[1]); candidate != "" {
				return candidate, p.Confidence, true
			}
		}
	}
	return "", 0, false
}

// cleanCandidate strips a leading article and rejects time words.
func cleanCandidate(raw string) string {
	fields := strings.Fields(raw)
	for len(fields) > 0 && leadingArticles[strings.ToLower(fields[0])] {
		fields = fields[1:]
	}
	if len(fields) == 0 || notPlaces[strings.ToLower(strings.TrimRight(fields[0], ",.;:!?"))] {
		return ""
	}
	return truncateTokens(strings.Join(fields, " "), 3)
}

// truncateTokens keeps the first n whitespace separated tokens and drops
// trailing punctuation.
func truncateTokens(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.TrimRight(strings.Join(fields, " "), ",.;:!?")
}

var cleanAnswer = regexp.MustCompile(`^[A-Za-z ,.\-]+$`)

// isClean reports whether an LLM answer looks like a bare place name.
func isClean(s string) bool {
	return cleanAnswer.MatchString(s) && len(strings.Fields(s)) <= 3
}
