package api

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/entity-cleaner/pkg/kit"
)

// newMCPServer returns an MCP server exposing the cleaning tools.
func newMCPServer(eps endpoints, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	srv := server.NewMCPServer("entity-cleaner", version, server.WithToolCapabilities(false))
	registerMCPTools(srv, eps)
	return srv
}

// newMCPHandler serves the MCP tools over streamable HTTP.
func newMCPHandler(eps endpoints, version string) http.Handler {
	return server.NewStreamableHTTPServer(newMCPServer(eps, version))
}

func registerMCPTools(srv *server.MCPServer, eps endpoints) {
	for _, t := range mcpTools(eps) {
		kit.RegisterMCPTool(srv, t.tool, t.endpoint, t.decode)
	}
}

type mcpTool struct {
	tool     mcp.Tool
	endpoint kit.Endpoint
	decode   kit.MCPDecoder
}

func mcpTools(eps endpoints) []mcpTool {
	return []mcpTool{
		{
			tool: mcp.NewTool("clean_name",
				mcp.WithDescription("Clean a company name: strip noise, expand the trailing legal form for its jurisdiction and normalize letter case."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Raw company name")),
				mcp.WithString("jurisdiction", mcp.Description("ISO alpha-2 code whose legal forms apply (default: server setting)")),
				mcp.WithString("case", mcp.Description("Output letter case"), mcp.Enum("lower", "upper", "title", "asis")),
			),
			endpoint: eps.cleanName,
			decode:   kit.DecodeArgs[cleanNameReq](),
		},
		{
			tool: mcp.NewTool("clean_batch",
				mcp.WithDescription("Clean up to 100 company names in one call."),
				mcp.WithArray("names", mcp.Required(), mcp.Description("Raw company names"),
					mcp.Items(map[string]any{"type": "string"})),
				mcp.WithString("jurisdiction", mcp.Description("ISO alpha-2 code applied to every name")),
				mcp.WithString("case", mcp.Description("Output letter case"), mcp.Enum("lower", "upper", "title", "asis")),
			),
			endpoint: eps.cleanBatch,
			decode:   kit.DecodeArgs[cleanBatchReq](),
		},
		{
			tool: mcp.NewTool("lookup_country",
				mcp.WithDescription("Resolve a country name, alias, alpha-2, alpha-3 or numeric code to its ISO 3166-1 record."),
				mcp.WithString("value", mcp.Required(), mcp.Description("Country reference, e.g. 'Deutschland', 'USA', '250'")),
			),
			endpoint: eps.lookupCountry,
			decode:   kit.DecodeArgs[countryReq](),
		},
		{
			tool: mcp.NewTool("validate_id",
				mcp.WithDescription("Clean and checksum-validate a LEI, ISIN or SEDOL."),
				mcp.WithString("type", mcp.Required(), mcp.Enum("lei", "isin", "sedol")),
				mcp.WithString("value", mcp.Required(), mcp.Description("Identifier as written")),
			),
			endpoint: eps.validateID,
			decode:   kit.DecodeArgs[validateIDReq](),
		},
		{
			tool: mcp.NewTool("list_legal_forms",
				mcp.WithDescription("List jurisdictions with legal-form dictionaries, or the forms of one jurisdiction."),
				mcp.WithString("jurisdiction", mcp.Description("ISO alpha-2 code; omit to list jurisdictions")),
				mcp.WithString("language", mcp.Description("Language code within the jurisdiction")),
			),
			endpoint: eps.listLegalForms,
			decode:   kit.DecodeArgs[legalFormsReq](),
		},
	}
}
