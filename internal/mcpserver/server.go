// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Orion namespace tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/paraservice"
)

// Server wraps the MCP server with Orion tools.
type Server struct {
	mcp *server.MCPServer
	svc *paraservice.Service
}

// New creates a new MCP server with all Orion tools registered.
func New(svc *paraservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Orion",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_path",
		mcp.WithDescription("Resolve a logical address (para://category/..., namespace-rooted, "+
			"or category-relative) to its physical path and category."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Logical address to resolve")),
	), s.resolvePath)

	s.mcp.AddTool(mcp.NewTool("read_entity",
		mcp.WithDescription("Read a YAML entity by logical address. The content is validated "+
			"against the category schema."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Logical address (e.g. para://projects/p1/_meta)")),
	), s.readEntity)

	s.mcp.AddTool(mcp.NewTool("write_entity",
		mcp.WithDescription("Create or update a YAML entity at a logical address. Content MUST "+
			"follow the category schema (read the contract first via the get_entity_contract "+
			"tool or the para://entity-format resource). Overwrites keep a .bak backup and the "+
			"category index is updated."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Logical address for the entity")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entity YAML following the Orion entity format contract")),
	), s.writeEntity)

	s.mcp.AddTool(mcp.NewTool("delete_entity",
		mcp.WithDescription("Delete the entity at a logical address. A .bak backup is kept and "+
			"the category index is filtered."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Logical address of the entity")),
	), s.deleteEntity)

	s.mcp.AddTool(mcp.NewTool("archive_project",
		mcp.WithDescription("Move a completed project into Archive/projects/YYYY-MM/ and record "+
			"it in the archive index. Fails unless the project status is 'completed'."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Project address (e.g. para://projects/p1)")),
	), s.archiveProject)

	s.mcp.AddTool(mcp.NewTool("archive_area",
		mcp.WithDescription("Move a dormant area into Archive/areas/YYYY-MM/ and record it in "+
			"the archive index. Fails unless the area status is 'dormant'."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Area address (e.g. para://areas/health)")),
	), s.archiveArea)

	s.mcp.AddTool(mcp.NewTool("capture_inbox",
		mcp.WithDescription("Capture an item into the inbox queue for later triage."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Stable item id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short item title")),
		mcp.WithString("notes", mcp.Description("Optional free-form notes")),
	), s.captureInbox)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Full-text search across entity titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity_contract",
		mcp.WithDescription("Returns the canonical Orion entity format contract. Call this "+
			"before creating or updating entities to ensure correct structure."),
	), s.getEntityContract)

	// Resource: entity format contract.
	s.mcp.AddResource(
		mcp.NewResource("para://entity-format", "Entity Format Contract",
			mcp.WithResourceDescription("Canonical YAML entity format that all stored entities must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntityFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) resolvePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetEntity(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) writeEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.PutEntity(ctx, address, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored: %s (checksum %s)", detail.Path, detail.Checksum)), nil
}

func (s *Server) deleteEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.DeleteEntity(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) archiveProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ArchiveProject(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) archiveArea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ArchiveArea(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) captureInbox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes := ""
	if n, nErr := req.RequireString("notes"); nErr == nil {
		notes = n
	}
	item, err := s.svc.CaptureInbox(ctx, models.InboxItem{ID: id, Title: title, Notes: notes})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("captured: %s at %s", item.ID, item.CapturedAt.Format("2006-01-02T15:04:05Z07:00"))), nil
}

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntityContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntityFormatContract), nil
}

func (s *Server) readEntityFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "para://entity-format",
			MIMEType: "text/markdown",
			Text:     EntityFormatContract,
		},
	}, nil
}
