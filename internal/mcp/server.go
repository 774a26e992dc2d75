// Package mcp exposes retrieval and graph queries over the Model Context
// Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/retrieval"
)

// Server wraps the MCP server with kgraph-specific tools.
type Server struct {
	mcpServer *server.MCPServer
	registry  *service.StrategyRegistry
	queries   *service.GraphQueryService
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(registry *service.StrategyRegistry, queries *service.GraphQueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		registry: registry,
		queries:  queries,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"kgraph",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all kgraph tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	retrieveTool := mcp.NewTool("retrieve",
		mcp.WithDescription("Retrieve knowledge base chunks using the knowledge base's configured strategy"),
		mcp.WithString("kb_id",
			mcp.Required(),
			mcp.Description("The knowledge base identifier"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The retrieval query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 10)"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum relevance score, 0 to 1"),
		),
	)

	mcpServer.AddTool(retrieveTool, s.handleRetrieve)

	searchEntitiesTool := mcp.NewTool("search_entities",
		mcp.WithDescription("Search extracted entities in a knowledge base by name and type"),
		mcp.WithString("kb_id",
			mcp.Required(),
			mcp.Description("The knowledge base identifier"),
		),
		mcp.WithString("query",
			mcp.Description("Substring to match against entity names"),
		),
		mcp.WithString("type",
			mcp.Description("Filter by entity type name"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 1"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Entities per page (default: 50)"),
		),
	)

	mcpServer.AddTool(searchEntitiesTool, s.handleSearchEntities)

	neighborhoodTool := mcp.NewTool("get_neighborhood",
		mcp.WithDescription("Expand the graph neighborhood around one or more entities"),
		mcp.WithString("kb_id",
			mcp.Required(),
			mcp.Description("The knowledge base identifier"),
		),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("The entity to expand from"),
		),
		mcp.WithNumber("hops",
			mcp.Description("Maximum hop distance (default: 1)"),
		),
	)

	mcpServer.AddTool(neighborhoodTool, s.handleNeighborhood)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbID, err := request.RequireString("kb_id")
	if err != nil {
		return mcp.NewToolResultError("kb_id is required"), nil
	}
	queryText, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	query := retrieval.NewQuery(kbID, queryText).
		WithTopK(request.GetInt("top_k", 0)).
		WithMinScore(request.GetFloat("min_score", 0))

	strategy := s.registry.For(ctx, kbID)
	results, err := strategy.Retrieve(ctx, query)
	if err != nil {
		s.logger.Error("retrieve failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("retrieve failed: %v", err)), nil
	}

	type retrieveResult struct {
		ChunkID    string   `json:"chunk_id"`
		DocumentID string   `json:"document_id"`
		Content    string   `json:"content"`
		Score      float64  `json:"score"`
		Source     string   `json:"source"`
		EntityIDs  []string `json:"entity_ids,omitempty"`
	}

	out := make([]retrieveResult, len(results))
	for i, r := range results {
		out[i] = retrieveResult{
			ChunkID:    r.ChunkID(),
			DocumentID: r.DocumentID(),
			Content:    r.Content(),
			Score:      r.Score(),
			Source:     string(r.Source()),
			EntityIDs:  r.EntityIDs(),
		}
	}

	jsonBytes, err := json.Marshal(map[string]any{
		"strategy": strategy.Name(),
		"results":  out,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleSearchEntities handles the search_entities tool invocation.
func (s *Server) handleSearchEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbID, err := request.RequireString("kb_id")
	if err != nil {
		return mcp.NewToolResultError("kb_id is required"), nil
	}

	entities, err := s.queries.SearchEntities(ctx, kbID,
		request.GetString("query", ""),
		request.GetString("type", ""),
		request.GetInt("page", 1),
		request.GetInt("page_size", 0),
	)
	if err != nil {
		s.logger.Error("entity search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("entity search failed: %v", err)), nil
	}

	type entityResult struct {
		ID         string         `json:"id"`
		Type       string         `json:"type"`
		Name       string         `json:"name"`
		Attributes map[string]any `json:"attributes,omitempty"`
		Confidence float64        `json:"confidence"`
	}

	out := make([]entityResult, len(entities))
	for i, e := range entities {
		out[i] = entityResult{
			ID:         e.ID(),
			Type:       e.Type(),
			Name:       e.Name(),
			Attributes: e.Attributes(),
			Confidence: e.Confidence(),
		}
	}

	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleNeighborhood handles the get_neighborhood tool invocation.
func (s *Server) handleNeighborhood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbID, err := request.RequireString("kb_id")
	if err != nil {
		return mcp.NewToolResultError("kb_id is required"), nil
	}
	entityID, err := request.RequireString("entity_id")
	if err != nil {
		return mcp.NewToolResultError("entity_id is required"), nil
	}

	hood, err := s.queries.GetNeighborhood(ctx, kbID, []string{entityID}, request.GetInt("hops", 1))
	if err != nil {
		s.logger.Error("neighborhood expansion failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("neighborhood expansion failed: %v", err)), nil
	}

	type nodeResult struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name"`
		Hop  int    `json:"hop"`
	}
	type edgeResult struct {
		Type     string `json:"type"`
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
	}

	nodes := make([]nodeResult, 0, len(hood.Nodes()))
	for _, n := range hood.Nodes() {
		hop, _ := hood.HopDistance(n.ID())
		nodes = append(nodes, nodeResult{ID: n.ID(), Type: n.Type(), Name: n.Name(), Hop: hop})
	}
	edges := make([]edgeResult, 0, len(hood.Edges()))
	for _, e := range hood.Edges() {
		edges = append(edges, edgeResult{Type: e.Type(), SourceID: e.SourceID(), TargetID: e.TargetID()})
	}

	jsonBytes, err := json.Marshal(map[string]any{"nodes": nodes, "edges": edges})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// ServeStdio starts the MCP server over stdio, blocking until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
