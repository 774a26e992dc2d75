package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	"github.com/inquira/kgraph/internal/log"
)

// RetrieveRouter handles retrieval endpoints.
type RetrieveRouter struct {
	registry *service.StrategyRegistry
	logger   *log.Logger
}

// NewRetrieveRouter creates a RetrieveRouter.
func NewRetrieveRouter(registry *service.StrategyRegistry, logger *log.Logger) *RetrieveRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &RetrieveRouter{registry: registry, logger: logger}
}

// Routes returns the chi router for retrieval endpoints.
func (rt *RetrieveRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/{kbID}", rt.Retrieve)
	router.Get("/strategies", rt.Strategies)
	router.Put("/{kbID}/strategy", rt.SetStrategy)

	return router
}

// RetrieveRequest is the body for a retrieval query.
type RetrieveRequest struct {
	Query    string  `json:"query"`
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
}

// Retrieve handles POST /api/v1/retrieve/{kbID}.
func (rt *RetrieveRouter) Retrieve(w http.ResponseWriter, req *http.Request) {
	var body RetrieveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}
	if body.Query == "" {
		middleware.WriteError(w, req, middleware.NewValidationError("query is required"), rt.logger)
		return
	}

	kbID := chi.URLParam(req, "kbID")
	query := retrieval.NewQuery(kbID, body.Query).
		WithTopK(body.TopK).
		WithMinScore(body.MinScore)

	strategy := rt.registry.For(req.Context(), kbID)
	results, err := strategy.Retrieve(req.Context(), query)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"strategy": strategy.Name(),
		"results":  toRetrievalResponses(results),
	})
}

// Strategies handles GET /api/v1/retrieve/strategies.
func (rt *RetrieveRouter) Strategies(w http.ResponseWriter, req *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"strategies": rt.registry.Names()})
}

// SetStrategyRequest is the body for selecting a knowledge base's strategy.
type SetStrategyRequest struct {
	Strategy string `json:"strategy"`
}

// SetStrategy handles PUT /api/v1/retrieve/{kbID}/strategy.
func (rt *RetrieveRouter) SetStrategy(w http.ResponseWriter, req *http.Request) {
	var body SetStrategyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	if err := rt.registry.Use(chi.URLParam(req, "kbID"), body.Strategy); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError(err.Error()), rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"strategy": body.Strategy})
}
