package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
)

// prefixValue holds the prefix exactly as the client sent it. Parsing and
// range checks happen in the domain layer.
type prefixValue string

func (p *prefixValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = prefixValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("prefix must be a string or number: %w", err)
	}
	*p = prefixValue(n.String())
	return nil
}

func sessionIDFrom(r *http.Request) domain.SessionID {
	return domain.SessionID(r.PathValue("id"))
}

func subnetIDFrom(r *http.Request) (domain.RecordID, error) {
	id := r.PathValue("subnetID")
	if id == "" {
		return "", fmt.Errorf("%w: missing subnet id", domain.ErrInvalidInput)
	}
	return domain.RecordID(id), nil
}

func validateInitializeRequest(req InitializeRequest) error {
	if req.Network == "" {
		return fmt.Errorf("%w: network is required", domain.ErrInvalidInput)
	}
	if req.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", domain.ErrInvalidInput)
	}
	return nil
}
