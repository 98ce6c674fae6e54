package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/recsd/internal/engine"
	"github.com/kalambet/recsd/internal/store"
)

// MCPDeps holds dependencies for the MCP tool surface. It exposes the same
// three core operations as the HTTP API so agent clients can drive the
// engine directly over stdio.
type MCPDeps struct {
	Store    *store.EventStore
	Engine   *engine.Engine
	DefaultK int
	MaxK     int
}

// NewMCPServer creates an MCP server with the recommendation tools
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"recsd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("recsd — in-memory item-to-item product recommendation engine."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("recommend",
			mcp.WithDescription("Rank candidate products for a user, a seed product, or neither (cold start)."),
			mcp.WithString("userId", mcp.Description("User to recommend for (optional)")),
			mcp.WithString("productId", mcp.Description("Seed product for item-to-item similarity (optional)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 8, max 50)")),
		),
		mcpRecommend(deps),
	)

	s.AddTool(
		mcp.NewTool("ingest_events",
			mcp.WithDescription("Ingest a batch of interaction events. Malformed rows are skipped, not errored."),
			mcp.WithString("events", mcp.Description("JSON array of {userId, productId, eventType, ts?} objects"), mcp.Required()),
		),
		mcpIngestEvents(deps),
	)

	s.AddTool(
		mcp.NewTool("reset_events",
			mcp.WithDescription("Clear all stored interaction events."),
		),
		mcpResetEvents(deps),
	)

	return s
}

func mcpRecommend(deps MCPDeps) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", deps.DefaultK)
		if limit < 1 {
			limit = 1
		}
		if limit > deps.MaxK {
			limit = deps.MaxK
		}

		items := deps.Engine.Recommend(engine.Query{
			UserID:    req.GetString("userId", ""),
			ProductID: req.GetString("productId", ""),
			K:         limit,
		})
		if items == nil {
			items = []engine.Recommendation{}
		}

		b, err := json.Marshal(items)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpIngestEvents(deps MCPDeps) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("events")
		if err != nil {
			return mcpError("events is required"), nil
		}

		var batch []map[string]any
		if err := json.Unmarshal([]byte(raw), &batch); err != nil {
			return mcpError(fmt.Sprintf("events must be a JSON array: %v", err)), nil
		}

		accepted := deps.Store.Ingest(batch)
		return mcpText(fmt.Sprintf(`{"received": %d}`, accepted)), nil
	}
}

func mcpResetEvents(deps MCPDeps) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deps.Store.Reset()
		return mcpText(`{"ok": true}`), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
