package server

// Response and request payloads of the resolve API.

type HealthResponse struct {
	Body struct {
		Status  string `json:"status" example:"ok"`
		Name    string `json:"name" example:"Linear MCP"`
		Version string `json:"version" example:"1.0.0"`
	}
}

type ClassifyResult struct {
	Ref     string `json:"ref"`
	Kind    string `json:"kind" enum:"canonical,compound_key,alias"`
	TeamKey string `json:"team_key,omitempty"`
	Number  uint64 `json:"number,omitempty"`
}

type ClassifyResponse struct {
	Body ClassifyResult
}

// Resolved is the outcome of one successful resolution.
type Resolved struct {
	Kind string `json:"kind" example:"team"`
	Ref  string `json:"ref" example:"ENG"`
	ID   string `json:"id" example:"9cfb482a-81e3-4154-b5b9-2c805e70a726"`
}

type ResolvedResponse struct {
	Body Resolved
}

type LabelsRequest struct {
	TeamKey string   `json:"team_key,omitempty" doc:"Limit the label directory to one team"`
	Names   []string `json:"names" minItems:"1"`
}

type LabelsResult struct {
	TeamID string   `json:"team_id,omitempty"`
	Names  []string `json:"names"`
	IDs    []string `json:"ids"`
}

type LabelsResponse struct {
	Body LabelsResult
}
