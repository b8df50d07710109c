// internal/workers/conversation/resolve-location/models.go
package resolvelocation

import "climate-risk-advisor/internal/models"

type Input struct {
	Text            string `json:"text"`
	LastLocation    string `json:"lastLocation,omitempty"`
	HasLastLocation bool   `json:"hasLastLocation"`
}

type Output struct {
	Location           models.LocationResult `json:"location"`
	NeedsClarification bool                  `json:"needsClarification"`
}
