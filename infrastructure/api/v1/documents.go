package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	"github.com/inquira/kgraph/internal/log"
)

// DocumentsRouter handles document ingestion endpoints.
type DocumentsRouter struct {
	documents *service.DocumentService
	logger    *log.Logger
}

// NewDocumentsRouter creates a DocumentsRouter.
func NewDocumentsRouter(documents *service.DocumentService, logger *log.Logger) *DocumentsRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &DocumentsRouter{documents: documents, logger: logger}
}

// Routes returns the chi router for document endpoints.
func (rt *DocumentsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/{kbID}", rt.Ingest)
	router.Get("/{kbID}", rt.List)
	router.Get("/{kbID}/{documentID}", rt.Get)
	router.Delete("/{kbID}/{documentID}", rt.Delete)

	return router
}

// IngestRequest is the body for ingesting a document.
type IngestRequest struct {
	DomainID string `json:"domain_id"`
	Title    string `json:"title"`
	URI      string `json:"uri"`
	Content  string `json:"content"`
}

// Ingest handles POST /api/v1/documents/{kbID}.
func (rt *DocumentsRouter) Ingest(w http.ResponseWriter, req *http.Request) {
	var body IngestRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}
	if body.DomainID == "" {
		middleware.WriteError(w, req, middleware.NewValidationError("domain_id is required"), rt.logger)
		return
	}

	doc, err := rt.documents.Ingest(req.Context(), chi.URLParam(req, "kbID"), body.DomainID, body.Title, body.URI, body.Content)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

// List handles GET /api/v1/documents/{kbID}.
func (rt *DocumentsRouter) List(w http.ResponseWriter, req *http.Request) {
	docs, err := rt.documents.List(req.Context(), chi.URLParam(req, "kbID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = toDocumentResponse(d)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/documents/{kbID}/{documentID}.
func (rt *DocumentsRouter) Get(w http.ResponseWriter, req *http.Request) {
	doc, err := rt.documents.Get(req.Context(), chi.URLParam(req, "kbID"), chi.URLParam(req, "documentID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// Delete handles DELETE /api/v1/documents/{kbID}/{documentID}.
func (rt *DocumentsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	if err := rt.documents.Delete(req.Context(), chi.URLParam(req, "kbID"), chi.URLParam(req, "documentID")); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
