// internal/models/query_types.go
package models

// Intent is the classifier's label for a user turn.
type Intent string

const (
	IntentGreeting Intent = "GREETING"
	IntentFarewell Intent = "FAREWELL"
	IntentQuery    Intent = "QUERY"
)

// Topic selects an evidence domain, with its own query set and index.
type Topic string

const (
	TopicClimate  Topic = "climate"
	TopicBusiness Topic = "business"
)

// SearchCategory is one of the web search query families.
type SearchCategory string

const (
	CategoryWeather     SearchCategory = "weather"
	CategoryRisks       SearchCategory = "risks"
	CategoryNews        SearchCategory = "news"
	CategoryProjections SearchCategory = "projections"
	CategoryGeneral     SearchCategory = "general"
)

// ValidSearchCategory reports whether c names a known category.
func ValidSearchCategory(c string) bool {
	switch SearchCategory(c) {
	case CategoryWeather, CategoryRisks, CategoryNews, CategoryProjections, CategoryGeneral:
		return true
	}
	return false
}
