package server

import (
	"fmt"

	"github.com/fumiya-kume/secpatch/internal/types"
)

// ScanRequest is the body of POST /v2/vul
type ScanRequest struct {
	Code string `json:"code"`
}

// PatchRequest is the body of POST /v1/patch
type PatchRequest struct {
	Code     string   `json:"code"`
	Families []string `json:"families,omitempty"`
}

// Validate resolves the requested families; none means the server default
func (r *PatchRequest) Validate() ([]types.Family, error) {
	if len(r.Families) == 0 {
		return nil, nil
	}
	families, err := types.ParseFamilies(r.Families)
	if err != nil {
		return nil, fmt.Errorf("families: %w", err)
	}
	return families, nil
}

// PatchResponse is the body returned by POST /v1/patch
type PatchResponse struct {
	Patched     string          `json:"patched"`
	Modified    bool            `json:"modified"`
	Families    []types.Family  `json:"families"`
	Outcomes    []types.Outcome `json:"outcomes"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
	Error       string          `json:"error,omitempty"`
	Cached      bool            `json:"cached"`
}
