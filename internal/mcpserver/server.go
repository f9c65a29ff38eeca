// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the local note store and the sync engine to LLM clients via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/noteservice"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/sync"
)

// Server wraps the MCP server with note and sync tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	coord *sync.Coordinator
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, coord *sync.Coordinator) *Server {
	s := &Server{svc: svc, coord: coord}

	s.mcp = server.NewMCPServer(
		"OwnCloud Notes",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes of an account, optionally filtered by category."),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Local account id")),
		mcp.WithString("category", mcp.Description("Optional category filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by its local id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Local note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. It is uploaded by the next sync pass."),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Local account id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
		mcp.WithString("title", mcp.Description("Optional title; derived from the first content line when empty")),
		mcp.WithString("category", mcp.Description("Optional category")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Overwrite a note's content. The change is uploaded by the next sync pass."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Local note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
		mcp.WithString("title", mcp.Description("Optional new title")),
		mcp.WithString("category", mcp.Description("Optional new category")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Mark a note for deletion; it is removed remotely by the next sync pass."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Local note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through an account's notes."),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Local account id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Run one synchronization pass for an account and report the outcome."),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Local account id")),
		mcp.WithBoolean("push_only", mcp.Description("Skip the pull phase")),
	), s.syncNow)

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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID, err := req.RequireInt("account_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := req.GetString("category", "")

	notes, err := s.svc.ListNotes(ctx, int64(accountID), category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: note %d", id)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID, err := req.RequireInt("account_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	category := req.GetString("category", "")

	note, err := s.svc.CreateNote(ctx, int64(accountID), title, category, content, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d (%s)", note.ID, note.Title)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	existing, err := s.svc.GetNote(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: note %d", id)), nil
	}
	title := req.GetString("title", existing.Title)
	category := req.GetString("category", existing.Category)

	note, err := s.svc.UpdateNote(ctx, int64(id), title, category, content, existing.Favorite)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated note %d (%s)", note.ID, note.Title)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("note %d marked for deletion", id)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID, err := req.RequireInt("account_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Search(ctx, int64(accountID), query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(notes)
}

func (s *Server) syncNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID, err := req.RequireInt("account_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pushOnly := req.GetBool("push_only", false)

	done := make(chan models.SyncResult, 1)
	s.coord.RunSync(int64(accountID), pushOnly, func(r models.SyncResult) { done <- r })

	select {
	case result := <-done:
		summary := map[string]any{
			"push_successful": result.PushSuccessful,
			"pull_successful": result.PullSuccessful,
		}
		var errs []string
		for _, e := range result.Errors {
			errs = append(errs, e.Error())
		}
		if len(errs) > 0 {
			summary["errors"] = errs
		}
		return jsonResult(summary)
	case <-ctx.Done():
		return mcp.NewToolResultError("sync still running, request cancelled"), nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
