// internal/mcp/server.go
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/colebrumley/regexlab/internal/presets"
	"github.com/colebrumley/regexlab/internal/security"
	"github.com/colebrumley/regexlab/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with preview and preset tools
type Server struct {
	db     *presets.DB
	opts   session.Options
	server *mcp.Server
}

// PreviewInput is the input schema for the preview tool
type PreviewInput struct {
	Regex       string   `json:"regex" jsonschema:"Pattern source without delimiters"`
	Flags       string   `json:"flags,omitempty" jsonschema:"Flags such as g, i, m, s, u, y, d"`
	Replacement string   `json:"replacement,omitempty" jsonschema:"Replacement template; {{match}} inserts the whole match"`
	Depth       int      `json:"depth,omitempty" jsonschema:"Number of trailing sources left untouched"`
	Sources     []string `json:"sources" jsonschema:"Sample texts, in order"`
}

// PreviewOutput is the output schema for the preview tool
type PreviewOutput struct {
	Status       string   `json:"status"`
	Error        string   `json:"error,omitempty"`
	MatchPanel   string   `json:"match_panel"`
	ReplacePanel string   `json:"replace_panel"`
	MatchCounts  []int    `json:"match_counts,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Warning      string   `json:"warning,omitempty"`
}

// TemplateInput is the input schema for check_tags and sanitize
type TemplateInput struct {
	HTML string `json:"html" jsonschema:"Template or fragment to inspect"`
}

// CheckTagsOutput is the output schema for the check_tags tool
type CheckTagsOutput struct {
	Tags    []string `json:"tags"`
	Warning string   `json:"warning,omitempty"`
}

// SanitizeOutput is the output schema for the sanitize tool
type SanitizeOutput struct {
	HTML string `json:"html"`
}

// SavePresetInput is the input schema for the save_preset tool
type SavePresetInput struct {
	Name        string   `json:"name" jsonschema:"Unique preset name; saving an existing name replaces it"`
	Description string   `json:"description,omitempty" jsonschema:"What the pattern is for"`
	Regex       string   `json:"regex" jsonschema:"Pattern source without delimiters"`
	Flags       string   `json:"flags,omitempty" jsonschema:"Flags such as g, i, m, s, u, y, d"`
	Replacement string   `json:"replacement,omitempty" jsonschema:"Replacement template"`
	Depth       int      `json:"depth,omitempty" jsonschema:"Number of trailing sources left untouched"`
	Sources     []string `json:"sources,omitempty" jsonschema:"Sample texts, in order"`
}

// SavePresetOutput is the output schema for the save_preset tool
type SavePresetOutput struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// FindPresetInput is the input schema for the find_preset tool
type FindPresetInput struct {
	Query string `json:"query" jsonschema:"Search terms (full-text search over name, description, pattern and replacement)"`
}

// FindPresetOutput is the output schema for the find_preset tool
type FindPresetOutput struct {
	Presets []PresetResult `json:"presets"`
	Count   int            `json:"count"`
}

// PresetResult is a single preset in find results
type PresetResult struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	State       session.State `json:"state"`
}

// DeletePresetInput is the input schema for the delete_preset tool
type DeletePresetInput struct {
	ID int64 `json:"id" jsonschema:"Preset ID to remove (from find_preset results)"`
}

// DeletePresetOutput is the output schema for the delete_preset tool
type DeletePresetOutput struct {
	Message string `json:"message"`
}

// NewServer creates a new MCP server backed by the preset database at dbPath
func NewServer(dbPath string, opts session.Options) (*Server, error) {
	db, err := presets.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening preset database: %w", err)
	}

	s := &Server{db: db, opts: opts.WithDefaults()}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "regexlab",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview",
		Description: "Run a pattern and replacement template over sample texts. Returns the highlighted match panel and the sanitized replacement panel. A pattern that does not compile returns status invalid with the engine's message.",
	}, s.handlePreview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_tags",
		Description: "List document-level tags (html, body, head, script) in a replacement template that a host page may not support.",
	}, s.handleCheckTags)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sanitize",
		Description: "Remove script, iframe, object, embed and form elements and on* attributes from an HTML fragment.",
	}, s.handleSanitize)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_preset",
		Description: "Save a pattern, flags, replacement, depth and sources under a name for later reuse.",
	}, s.handleSavePreset)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_preset",
		Description: "Search saved presets. Use before writing a pattern from scratch.",
	}, s.handleFindPreset)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_preset",
		Description: "Remove a saved preset by ID.",
	}, s.handleDeletePreset)

	s.server = server
	return s, nil
}

func (in PreviewInput) state() session.State {
	return session.State{
		Regex:       in.Regex,
		Flags:       in.Flags,
		Replacement: in.Replacement,
		Depth:       session.ClampDepth(in.Depth),
		Sources:     append([]string{}, in.Sources...),
	}
}

func (s *Server) handlePreview(ctx context.Context, req *mcp.CallToolRequest, input PreviewInput) (*mcp.CallToolResult, PreviewOutput, error) {
	res := session.New(input.state(), s.opts).Result()
	out := PreviewOutput{
		Status:       string(res.Status),
		Error:        res.Error,
		MatchPanel:   res.Panels.Match,
		ReplacePanel: res.Panels.Replace,
		Tags:         res.Tags,
		Warning:      res.Warning,
	}
	if res.Views != nil {
		out.MatchCounts = res.Views.MatchCounts
	}
	return nil, out, nil
}

func (s *Server) handleCheckTags(ctx context.Context, req *mcp.CallToolRequest, input TemplateInput) (*mcp.CallToolResult, CheckTagsOutput, error) {
	tags := security.FindForbiddenTags(input.HTML)
	if tags == nil {
		tags = []string{}
	}
	return nil, CheckTagsOutput{Tags: tags, Warning: security.TagWarning(tags)}, nil
}

func (s *Server) handleSanitize(ctx context.Context, req *mcp.CallToolRequest, input TemplateInput) (*mcp.CallToolResult, SanitizeOutput, error) {
	return nil, SanitizeOutput{HTML: s.opts.Sanitizer.Sanitize(input.HTML)}, nil
}

func (s *Server) handleSavePreset(ctx context.Context, req *mcp.CallToolRequest, input SavePresetInput) (*mcp.CallToolResult, SavePresetOutput, error) {
	st := PreviewInput{
		Regex:       input.Regex,
		Flags:       input.Flags,
		Replacement: input.Replacement,
		Depth:       input.Depth,
		Sources:     input.Sources,
	}.state()
	id, err := s.db.Save(input.Name, input.Description, st)
	if err != nil {
		return nil, SavePresetOutput{}, fmt.Errorf("failed to save preset: %w", err)
	}
	return nil, SavePresetOutput{
		ID:      id,
		Message: fmt.Sprintf("Saved preset %q with ID %d", input.Name, id),
	}, nil
}

func (s *Server) handleFindPreset(ctx context.Context, req *mcp.CallToolRequest, input FindPresetInput) (*mcp.CallToolResult, FindPresetOutput, error) {
	found, err := s.db.Search(input.Query)
	if err != nil {
		return nil, FindPresetOutput{}, fmt.Errorf("failed to search presets: %w", err)
	}

	results := make([]PresetResult, len(found))
	for i, p := range found {
		results[i] = PresetResult{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			State:       p.State,
		}
	}

	return nil, FindPresetOutput{
		Presets: results,
		Count:   len(results),
	}, nil
}

func (s *Server) handleDeletePreset(ctx context.Context, req *mcp.CallToolRequest, input DeletePresetInput) (*mcp.CallToolResult, DeletePresetOutput, error) {
	err := s.db.Delete(input.ID)
	if err != nil {
		if errors.Is(err, presets.ErrNotFound) {
			return nil, DeletePresetOutput{}, fmt.Errorf("preset with ID %d not found", input.ID)
		}
		return nil, DeletePresetOutput{}, fmt.Errorf("failed to delete preset: %w", err)
	}
	return nil, DeletePresetOutput{
		Message: fmt.Sprintf("Deleted preset with ID %d", input.ID),
	}, nil
}

// Run starts the MCP server on stdio
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is cancelled
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Close closes the database connection
func (s *Server) Close() error {
	return s.db.Close()
}
