// Package codec provides the Connect codec used for the budget.v1 services.
// Messages are plain Go structs, so the default protobuf JSON codec cannot
// serve them.
package codec

import (
	"bytes"
	"fmt"

	"connectrpc.com/connect"
	"github.com/goccy/go-json"
)

// Name matches the name of Connect's built-in JSON codec so this codec
// replaces it for application/json and application/connect+json.
const Name = "json"

// JSON marshals messages with goccy/go-json.
type JSON struct{}

var _ connect.Codec = JSON{}

func (JSON) Name() string { return Name }

func (JSON) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return b, nil
}

func (JSON) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
