package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecoder turns tool arguments into an Endpoint request.
type MCPDecoder func(mcp.CallToolRequest) (any, error)

// DecodeArgs returns an MCPDecoder filling a new T from the tool arguments,
// matching keys against json tags. Strings convert to numbers and
// booleans where the field asks for them.
func DecodeArgs[T any]() MCPDecoder {
	return func(req mcp.CallToolRequest) (any, error) {
		out := new(T)
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           out,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(req.GetArguments()); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// MCPHandler adapts an Endpoint to an MCP tool handler. Failures become
// tool errors; results are returned as JSON text.
func MCPHandler(endpoint Endpoint, decode MCPDecoder) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		request, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		ctx, _ = WithRequestID(WithTransport(ctx, TransportMCP), "")

		resp, err := endpoint(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// RegisterMCPTool exposes endpoint as tool on srv.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, MCPHandler(endpoint, decode))
}
