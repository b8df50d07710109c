// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed endpoints.json
var defaultRegistry []byte

// LoadRegistry reads a registry file from disk.
func LoadRegistry(path string) (*EndpointRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns the registry compiled into the binary.
func Default() (*EndpointRegistry, error) {
	return parse(defaultRegistry)
}

func parse(data []byte) (*EndpointRegistry, error) {
	var reg EndpointRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Find returns the endpoint with the given id.
func (r *EndpointRegistry) Find(id string) (*Endpoint, bool) {
	for i := range r.Endpoints {
		if r.Endpoints[i].ID == id {
			return &r.Endpoints[i], true
		}
	}
	return nil, false
}

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Validate checks that every endpoint is addressable and that its request
// schema compiles.
func (r *EndpointRegistry) Validate() error {
	if len(r.Endpoints) == 0 {
		return fmt.Errorf("registry contains no endpoints")
	}

	ids := make(map[string]bool, len(r.Endpoints))
	routes := make(map[string]string, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		if ep.ID == "" {
			return fmt.Errorf("endpoint missing required field: id")
		}
		if ids[ep.ID] {
			return fmt.Errorf("duplicate endpoint id: %s", ep.ID)
		}
		ids[ep.ID] = true

		if !knownMethods[ep.Method] {
			return fmt.Errorf("endpoint %s has unsupported method %q", ep.ID, ep.Method)
		}
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("endpoint %s path must start with /", ep.ID)
		}
		route := ep.Method + " " + ep.Path
		if other, ok := routes[route]; ok {
			return fmt.Errorf("endpoints %s and %s share route %s", other, ep.ID, route)
		}
		routes[route] = ep.ID

		if ep.RequestSchema != nil {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(ep.RequestSchema)); err != nil {
				return fmt.Errorf("endpoint %s request schema: %w", ep.ID, err)
			}
		}
	}
	return nil
}
