// Package budgetv1connect wires the budget.v1 messages to Connect handlers
// and clients.
package budgetv1connect

import (
	"connectrpc.com/connect"

	"github.com/FACorreiaa/budget-tracker/pkg/codec"
)

// The JSON codec goes first so caller options can still override it.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(codec.JSON{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(codec.JSON{})}, opts...)
}
