package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Items unwraps a PTAF PRO list payload. The API returns either an
// {"items": [...]} envelope or a bare JSON array, depending on the endpoint
// version; both normalize to the raw array.
func Items(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}

	var envelope struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list payload: %w", err)
	}
	if envelope.Items == nil {
		return nil, fmt.Errorf("unsupported list response format")
	}
	return envelope.Items, nil
}

// DecodeItems unmarshals a normalized list payload into target.
func DecodeItems(data []byte, target interface{}) error {
	items, err := Items(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(items, target)
}
