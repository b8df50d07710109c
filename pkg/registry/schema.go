// pkg/registry/schema.go
package registry

// EndpointRegistry describes the HTTP surface of the advisor and the JSON
// schema each request body must satisfy.
type EndpointRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Endpoints   []Endpoint `json:"endpoints"`
}

type Endpoint struct {
	ID            string                 `json:"id"`
	Method        string                 `json:"method"`
	Path          string                 `json:"path"`
	Description   string                 `json:"description"`
	RequestSchema map[string]interface{} `json:"requestSchema,omitempty"`
	ErrorCodes    []string               `json:"errorCodes"`
	Tags          []string               `json:"tags"`
}
