package api

import (
	"errors"

	"github.com/hazyhaar/co2-ledger/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the ledger's MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, d Deps) {
	log := d.logger()
	noArgs := func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, mcp.NewTool("search_facilities",
		mcp.WithDescription("List facility names, optionally filtered by a case-insensitive substring."),
		mcp.WithString("query", mcp.Description("Substring to match; empty returns every facility")),
	), wrap(log, "search", searchEndpoint(d)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &searchReq{Query: kit.StringArg(req, "query")}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("facility_detail",
		mcp.WithDescription("All records for one facility across every dataset, with per-dataset counts."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact facility name")),
	), wrap(log, "facility", facilityEndpoint(d)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &facilityReq{Name: kit.StringArg(req, "name")}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("monthly_totals",
		mcp.WithDescription("CO2 totals per month for every lifecycle category, with contributing facilities."),
	), wrap(log, "monthly", monthlyEndpoint(d)), noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("summary",
		mcp.WithDescription("Grand totals per category, total emissions and total captured CO2."),
	), wrap(log, "summary", summaryEndpoint(d)), noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("rankings",
		mcp.WithDescription("Facilities ranked by combined flare, tank, blowdown and leak emissions."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries (default 10)")),
	), wrap(log, "rankings", rankingsEndpoint(d)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		limit, err := limitArg(req)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &rankingsReq{Limit: limit}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("source_breakdown",
		mcp.WithDescription("Emissions by source category from the by-source dataset, with percentages."),
	), wrap(log, "breakdown", breakdownEndpoint(d)), noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("dataset_sources",
		mcp.WithDescription("Load status of each of the ten datasets in the current snapshot."),
	), wrap(log, "sources", sourcesEndpoint(d)), noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("export_csv",
		mcp.WithDescription("Render a view (monthly, rankings, facilities, summary, breakdown) as CSV."),
		mcp.WithString("view", mcp.Required(), mcp.Description("View to export")),
		mcp.WithString("columns", mcp.Description("Comma-separated column list; default is every column")),
		mcp.WithNumber("limit", mcp.Description("Ranking limit when view is rankings")),
	), wrap(log, "export", exportEndpoint(d)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		limit, err := limitArg(req)
		if err != nil {
			return nil, err
		}
		er := &exportReq{View: kit.StringArg(req, "view"), Limit: limit}
		if v := kit.StringArg(req, "columns"); v != "" {
			er.Columns = splitList(v)
		}
		return &kit.MCPDecodeResult{Request: er}, nil
	})
}

func limitArg(req mcp.CallToolRequest) (int, error) {
	limit, err := kit.IntArg(req, "limit", unsetLimit)
	if err != nil {
		return 0, err
	}
	if limit < 0 && limit != unsetLimit {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}
