// Package maintenance holds one-shot data corrections run by an operator.
// None of it interacts with the supervisor.
package maintenance

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

// RequestTypeKey is the metadata field set by PatchMetadata
const RequestTypeKey = "requestType"

// PatchMetadata returns existing with requestType set to "federated".
// A NULL, empty or JSON null value is treated as an empty object. Every
// other key is preserved as is. Input that is not a JSON object is rejected.
func PatchMetadata(existing []byte) ([]byte, error) {
	fields := map[string]json.RawMessage{}

	trimmed := bytes.TrimSpace(existing)
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMetadata, err)
		}
		// A JSON null leaves the map nil
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	value, err := json.Marshal(constants.FederatedRequestType)
	if err != nil {
		return nil, fmt.Errorf("encoding request type: %w", err)
	}
	fields[RequestTypeKey] = value

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return out, nil
}
