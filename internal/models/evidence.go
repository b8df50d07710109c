// internal/models/evidence.go
package models

// RetrievedDocument is one chunk returned by the retrieval index.
type RetrievedDocument struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Truncated returns a copy whose content is cut to limit characters
// with "..." appended. Shorter content is returned unchanged.
func (d RetrievedDocument) Truncated(limit int) RetrievedDocument {
	r := []rune(d.Content)
	if limit <= 0 || len(r) <= limit {
		return d
	}
	return RetrievedDocument{Content: string(r[:limit]) + "...", Source: d.Source}
}

// SearchItem is an organic web search hit.
type SearchItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// NewsItem is a news hit from the same search call.
type NewsItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchCategoryResult is the outcome of one category search. Error is
// set only when Success is false.
type SearchCategoryResult struct {
	Category string       `json:"category"`
	Success  bool         `json:"success"`
	Query    string       `json:"query,omitempty"`
	Organic  []SearchItem `json:"organic,omitempty"`
	News     []NewsItem   `json:"news,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// LocalEvidenceStatus describes the local document source of a bundle.
type LocalEvidenceStatus string

const (
	LocalEvidenceFound         LocalEvidenceStatus = "found"
	LocalEvidenceEmpty         LocalEvidenceStatus = "empty"
	LocalEvidenceNotConfigured LocalEvidenceStatus = "not_configured"
)

// EvidenceBundle is the rendered, size-capped evidence for one topic.
type EvidenceBundle struct {
	Topic       Topic                  `json:"topic"`
	Location    string                 `json:"location"`
	Documents   []RetrievedDocument    `json:"documents"`
	Search      []SearchCategoryResult `json:"search"`
	LocalStatus LocalEvidenceStatus    `json:"localStatus"`
	Text        string                 `json:"text"`
	ItemCount   int                    `json:"itemCount"`
}
