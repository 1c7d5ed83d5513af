package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the pipeline's resolvers and summarizer as MCP tools
type MCPServer struct {
	app       *App
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string, logger *slog.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"digestbot",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		logger:    logger.With("component", "mcp"),
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_video_transcript",
		mcp.WithDescription("Get the transcript of a YouTube video. Tries captions in the preferred languages, then machine-translated captions, then speech-to-text on the audio."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11-character video id"),
			mcp.Required(),
		),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("extract_article_text",
		mcp.WithDescription("Download a web page and extract the paragraphs of its main article."),
		mcp.WithString("url",
			mcp.Description("Article URL"),
			mcp.Required(),
		),
	), s.handleExtractArticle)

	s.mcpServer.AddTool(mcp.NewTool("summarize_text",
		mcp.WithDescription("Summarize text into Traditional Chinese bullet points with the configured LLM."),
		mcp.WithString("text",
			mcp.Description("Content to summarize"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Optional title of the content"),
		),
	), s.handleSummarize)

	s.mcpServer.AddTool(mcp.NewTool("ledger_status",
		mcp.WithDescription("Report how many items are processed and failed, or the state of one item id."),
		mcp.WithString("id",
			mcp.Description("Optional item id (video id or feed entry id)"),
		),
	), s.handleLedgerStatus)
}

func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}

	target := ParseTarget(url)
	if target.Type != ContentTypeVideo {
		return mcp.NewToolResultError(fmt.Sprintf("not a YouTube video: %s", url)), nil
	}

	s.logger.Info("transcript requested", "video_id", target.ID)
	transcript, err := s.app.Transcript(ctx, target.ID)
	if err != nil {
		s.logger.Error("transcript failed", "video_id", target.ID, "error", err)
		return mcp.NewToolResultErrorFromErr("no transcript available", err), nil
	}

	return mcp.NewToolResultText(transcript), nil
}

func (s *MCPServer) handleExtractArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}

	s.logger.Info("article requested", "url", url)
	article, err := s.app.Article(ctx, url)
	if err != nil {
		s.logger.Error("article failed", "url", url, "error", err)
		return mcp.NewToolResultErrorFromErr("failed to fetch article", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Title: %s\n\n%s", article.Title, article.Text)), nil
}

func (s *MCPServer) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required and must be a string"), nil
	}
	title := request.GetString("title", "")

	return mcp.NewToolResultText(s.app.Summarize(ctx, title, text)), nil
}

func (s *MCPServer) handleLedgerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ledger := s.app.Ledger()
	if err := ledger.Load(ctx); err != nil {
		return mcp.NewToolResultErrorFromErr("failed to load ledger", err), nil
	}

	if id := request.GetString("id", ""); id != "" {
		state := "new"
		switch {
		case ledger.IsProcessed(id):
			state = "processed"
		case ledger.IsFailed(id):
			state = "failed"
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s: %s", id, state)), nil
	}

	processed, failed := ledger.Counts()
	return mcp.NewToolResultText(fmt.Sprintf("processed: %d\nfailed: %d", processed, failed)), nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("serving MCP over HTTP", "addr", addr)
		return httpServer.Start(addr)
	}

	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}
