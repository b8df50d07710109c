// internal/workers/evidence/aggregate-evidence/render.go
package aggregateevidence

import (
	"fmt"
	"strings"

	"climate-risk-advisor/internal/models"
)

const (
	notConfiguredText = "No local documents available: retrieval index not configured."
	noBusinessDocs    = "No specific business documents found; use general best practices for climate risk."
	noClimateDocs     = "No local climate documents found for this location; rely on the web search data above."
)

// render lays a bundle out as the prompt block the agents read: web
// search sections first, then the local documents.
func render(b models.EvidenceBundle) string {
	var parts []string

	for _, s := range b.Search {
		parts = append(parts, renderSearch(s)...)
	}

	switch b.LocalStatus {
	case models.LocalEvidenceNotConfigured:
		parts = append(parts, notConfiguredText)
	case models.LocalEvidenceEmpty:
		if b.Topic == models.TopicBusiness {
			parts = append(parts, noBusinessDocs)
		} else {
			parts = append(parts, "\n--- LOCAL CLIMATE DATABASE ---\n"+noClimateDocs)
		}
	default:
		parts = append(parts, renderDocuments(b.Topic, b.Documents)...)
	}

	return strings.Join(parts, "\n")
}

func renderSearch(s models.SearchCategoryResult) []string {
	header := strings.ToUpper(s.Category)
	if !s.Success {
		return []string{fmt.Sprintf("\n--- %s ---\nNo data available (%s)", header, s.Error)}
	}

	parts := []string{fmt.Sprintf("\n--- %s ---", header)}
	for _, it := range s.Organic {
		parts = append(parts, fmt.Sprintf("• %s\n  Summary: %s\n  Source: %s\n", it.Title, it.Snippet, it.Link))
	}
	if len(s.News) > 0 {
		parts = append(parts, fmt.Sprintf("--- %s NEWS ---", header))
		for _, n := range s.News {
			parts = append(parts, fmt.Sprintf("• %s: %s", n.Title, n.Snippet))
		}
	}
	return parts
}

func renderDocuments(topic models.Topic, docs []models.RetrievedDocument) []string {
	if topic == models.TopicBusiness {
		parts := []string{"--- BUSINESS RISK DOCUMENTS ---"}
		for i, d := range docs {
			source := d.Source
			if source == "" {
				source = fmt.Sprintf("Source %d", i+1)
			}
			parts = append(parts, fmt.Sprintf("\nDocument %d: %s\nContent: %s", i+1, source, d.Content))
		}
		return parts
	}

	parts := []string{"\n--- LOCAL CLIMATE DATABASE ---"}
	for _, d := range docs {
		source := d.Source
		if source == "" {
			source = "Unknown Source"
		}
		parts = append(parts, fmt.Sprintf("\nDocument: %s\nContent: %s", source, d.Content))
	}
	return parts
}
