// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Temple render tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/temple/internal/commands"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
)

const syntaxURI = "temple://template-syntax"

// Server wraps the MCP server with Temple tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *noteservice.Service
	commands *commands.Registry
}

// New creates a new MCP server with all Temple tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc, commands: commands.NewRegistry(svc)}

	s.mcp = server.NewMCPServer(
		"Temple",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the templates available for insertion, one vault path per line."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("render_text",
		mcp.WithDescription("Render template text without writing anything. "+
			"Read the syntax first via get_template_syntax or the temple://template-syntax resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Template text")),
		mcp.WithString("path", mcp.Description("Optional document whose context is used (e.g. inbox/1234 - Plan.md)")),
	), s.renderText)

	s.mcp.AddTool(mcp.NewTool("insert_template",
		mcp.WithDescription("Render a template against a document and insert the result at a byte range of it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Target document")),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template base name or vault path, as listed by list_templates")),
		mcp.WithNumber("start", mcp.Description("Start byte offset of the replaced range (default 0)")),
		mcp.WithNumber("end", mcp.Description("End byte offset of the replaced range (default start)")),
	), s.insertTemplate)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Render a document in place, treating its whole content as a template."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Target document")),
	), s.renderNote)

	s.mcp.AddTool(mcp.NewTool("render_selection",
		mcp.WithDescription("Render a byte range of a document in place."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Target document")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start byte offset")),
		mcp.WithNumber("end", mcp.Required(), mcp.Description("End byte offset (exclusive)")),
	), s.renderSelection)

	s.mcp.AddTool(mcp.NewTool("get_template_syntax",
		mcp.WithDescription("Returns the template language reference: context keys, date filters and error kinds."),
	), s.getTemplateSyntax)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Template Syntax",
			mcp.WithResourceDescription("Template language reference for Temple."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
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

func (s *Server) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.Templates(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no templates found"), nil
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) renderText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.RenderText(ctx, text, req.GetString("path", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out.Output), nil
}

func (s *Server) insertTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start := req.GetInt("start", 0)
	span := render.Span{Start: start, End: req.GetInt("end", start)}
	out, err := s.commands.Execute(ctx, noteservice.CommandInsertTemplate,
		commands.State{Path: path, Selection: span, Picker: picker.ByName(name)})
	if err != nil {
		return toolError(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.commands.Execute(ctx, noteservice.CommandRenderFile, commands.State{Path: path})
	if err != nil {
		return toolError(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) renderSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireInt("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.commands.Execute(ctx, noteservice.CommandRenderSelection,
		commands.State{Path: path, Selection: render.Span{Start: start, End: end}})
	if err != nil {
		return toolError(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) getTemplateSyntax(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateSyntax), nil
}

func (s *Server) readSyntaxResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     TemplateSyntax,
		},
	}, nil
}

func outcomeResult(out noteservice.Outcome) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data))
}

// toolError reports err with its kind so the caller can tell a template
// mistake from a vault problem.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", noteservice.Kind(err), err))
}
