package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	"github.com/inquira/kgraph/internal/log"
)

// GraphRouter handles graph query endpoints, all scoped to one knowledge
// base.
type GraphRouter struct {
	queries *service.GraphQueryService
	logger  *log.Logger
}

// NewGraphRouter creates a GraphRouter.
func NewGraphRouter(queries *service.GraphQueryService, logger *log.Logger) *GraphRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &GraphRouter{queries: queries, logger: logger}
}

// Routes returns the chi router for graph endpoints.
func (rt *GraphRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{kbID}/entities", rt.SearchEntities)
	router.Post("/{kbID}/neighborhood", rt.Neighborhood)
	router.Post("/{kbID}/path", rt.Path)
	router.Post("/{kbID}/subgraph", rt.Subgraph)

	return router
}

// SearchEntities handles GET /api/v1/graph/{kbID}/entities.
func (rt *GraphRouter) SearchEntities(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	entities, err := rt.queries.SearchEntities(req.Context(),
		chi.URLParam(req, "kbID"), q.Get("query"), q.Get("type"), page, pageSize)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toEntityResponses(entities))
}

// NeighborhoodRequest is the body for a neighborhood expansion.
type NeighborhoodRequest struct {
	EntityIDs []string `json:"entity_ids"`
	Hops      int      `json:"hops"`
}

// Neighborhood handles POST /api/v1/graph/{kbID}/neighborhood.
func (rt *GraphRouter) Neighborhood(w http.ResponseWriter, req *http.Request) {
	var body NeighborhoodRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	hood, err := rt.queries.GetNeighborhood(req.Context(), chi.URLParam(req, "kbID"), body.EntityIDs, body.Hops)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toNeighborhoodResponse(hood))
}

// PathRequest is the body for a shortest path query.
type PathRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	MaxDepth int    `json:"max_depth"`
}

// Path handles POST /api/v1/graph/{kbID}/path.
func (rt *GraphRouter) Path(w http.ResponseWriter, req *http.Request) {
	var body PathRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}
	if body.SourceID == "" || body.TargetID == "" {
		middleware.WriteError(w, req, middleware.NewValidationError("source_id and target_id are required"), rt.logger)
		return
	}

	path, found, err := rt.queries.FindPath(req.Context(), chi.URLParam(req, "kbID"), body.SourceID, body.TargetID, body.MaxDepth)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	resp := PathResponse{Found: found}
	if found {
		resp.Length = path.Length()
		resp.Nodes = toEntityResponses(path.Nodes())
		resp.Edges = toRelationshipResponses(path.Edges())
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// SubgraphRequest is the body for a subgraph extraction.
type SubgraphRequest struct {
	EntityIDs  []string `json:"entity_ids"`
	ExpandHops int      `json:"expand_hops"`
}

// SubgraphResponse is the induced subgraph over the requested entities.
type SubgraphResponse struct {
	Nodes []EntityResponse       `json:"nodes"`
	Edges []RelationshipResponse `json:"edges"`
}

// Subgraph handles POST /api/v1/graph/{kbID}/subgraph.
func (rt *GraphRouter) Subgraph(w http.ResponseWriter, req *http.Request) {
	var body SubgraphRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	nodes, edges, err := rt.queries.ExtractSubgraph(req.Context(), chi.URLParam(req, "kbID"), body.EntityIDs, body.ExpandHops)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, SubgraphResponse{
		Nodes: toEntityResponses(nodes),
		Edges: toRelationshipResponses(edges),
	})
}
