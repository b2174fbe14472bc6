package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func jsonResult(label string, value any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(label),
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(services.UserMessage(err))
}

// operationResult reports a chain operation. A mirror divergence still carries
// the confirmed transaction, so it is returned as an error result with the
// chain result attached.
func operationResult(label string, value any, err error) (*mcp.CallToolResult, error) {
	if err == nil {
		return jsonResult(label, value)
	}
	if !errors.Is(err, services.ErrMirrorDivergence) || value == nil {
		return errorResult(err), nil
	}

	resultJSON, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", marshalErr)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.NewTextContent(services.UserMessage(err)),
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}
