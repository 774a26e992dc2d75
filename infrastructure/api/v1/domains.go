package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	"github.com/inquira/kgraph/internal/log"
)

// DomainsRouter handles domain schema endpoints.
type DomainsRouter struct {
	schemas *service.SchemaService
	logger  *log.Logger
}

// NewDomainsRouter creates a DomainsRouter.
func NewDomainsRouter(schemas *service.SchemaService, logger *log.Logger) *DomainsRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &DomainsRouter{schemas: schemas, logger: logger}
}

// Routes returns the chi router for domain endpoints.
func (rt *DomainsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", rt.List)
	router.Post("/", rt.Create)
	router.Get("/{domainID}", rt.Get)
	router.Put("/{domainID}", rt.Update)
	router.Delete("/{domainID}", rt.Delete)
	router.Post("/{domainID}/clone", rt.Clone)
	router.Get("/{domainID}/definition", rt.Definition)
	router.Get("/{domainID}/changes", rt.Changes)
	router.Post("/{domainID}/entity-types", rt.AddEntityType)
	router.Put("/{domainID}/entity-types/{typeID}", rt.UpdateEntityType)
	router.Delete("/{domainID}/entity-types/{typeID}", rt.DeleteEntityType)
	router.Post("/{domainID}/relationship-types", rt.AddRelationshipType)
	router.Delete("/{domainID}/relationship-types/{typeID}", rt.DeleteRelationshipType)

	return router
}

// CreateDomainRequest is the body for creating a domain.
type CreateDomainRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	OwnerID     string `json:"owner_id"`
}

// List handles GET /api/v1/domains.
func (rt *DomainsRouter) List(w http.ResponseWriter, req *http.Request) {
	domains, err := rt.schemas.ListDomains(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	out := make([]DomainResponse, len(domains))
	for i, d := range domains {
		out[i] = toDomainResponse(d)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/v1/domains.
func (rt *DomainsRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body CreateDomainRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	d, err := rt.schemas.CreateDomain(req.Context(), body.Name, body.Description, schema.Visibility(body.Visibility), body.OwnerID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toDomainResponse(d))
}

// Get handles GET /api/v1/domains/{domainID}.
func (rt *DomainsRouter) Get(w http.ResponseWriter, req *http.Request) {
	d, err := rt.schemas.GetDomain(req.Context(), chi.URLParam(req, "domainID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDomainResponse(d))
}

// UpdateDomainRequest is the body for updating a domain.
type UpdateDomainRequest struct {
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	ActorID     string `json:"actor_id"`
}

// Update handles PUT /api/v1/domains/{domainID}.
func (rt *DomainsRouter) Update(w http.ResponseWriter, req *http.Request) {
	var body UpdateDomainRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	d, err := rt.schemas.UpdateDomain(req.Context(), chi.URLParam(req, "domainID"), body.Description, schema.Visibility(body.Visibility), body.ActorID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDomainResponse(d))
}

// Delete handles DELETE /api/v1/domains/{domainID}.
func (rt *DomainsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	actorID := req.URL.Query().Get("actor_id")
	if err := rt.schemas.DeleteDomain(req.Context(), chi.URLParam(req, "domainID"), actorID); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

// CloneDomainRequest is the body for cloning a domain or template.
type CloneDomainRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// Clone handles POST /api/v1/domains/{domainID}/clone.
func (rt *DomainsRouter) Clone(w http.ResponseWriter, req *http.Request) {
	var body CloneDomainRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	d, err := rt.schemas.CloneDomain(req.Context(), chi.URLParam(req, "domainID"), body.Name, body.OwnerID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toDomainResponse(d))
}

// Definition handles GET /api/v1/domains/{domainID}/definition.
func (rt *DomainsRouter) Definition(w http.ResponseWriter, req *http.Request) {
	def, err := rt.schemas.Definition(req.Context(), chi.URLParam(req, "domainID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDefinitionResponse(def))
}

// Changes handles GET /api/v1/domains/{domainID}/changes.
func (rt *DomainsRouter) Changes(w http.ResponseWriter, req *http.Request) {
	records, err := rt.schemas.ChangeLog(req.Context(), chi.URLParam(req, "domainID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	out := make([]ChangeRecordResponse, len(records))
	for i, c := range records {
		out[i] = toChangeRecordResponse(c)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// EntityTypeRequest is the body for creating or updating an entity type.
type EntityTypeRequest struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	ActorID    string            `json:"actor_id"`
}

// AddEntityType handles POST /api/v1/domains/{domainID}/entity-types.
func (rt *DomainsRouter) AddEntityType(w http.ResponseWriter, req *http.Request) {
	var body EntityTypeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	t, err := rt.schemas.AddEntityType(req.Context(), chi.URLParam(req, "domainID"), body.Name, body.Attributes, body.ActorID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toEntityTypeResponse(t))
}

// UpdateEntityType handles PUT /api/v1/domains/{domainID}/entity-types/{typeID}.
func (rt *DomainsRouter) UpdateEntityType(w http.ResponseWriter, req *http.Request) {
	var body EntityTypeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	t, err := rt.schemas.UpdateEntityType(req.Context(), chi.URLParam(req, "domainID"), chi.URLParam(req, "typeID"), body.Attributes, body.ActorID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toEntityTypeResponse(t))
}

// DeleteEntityType handles DELETE /api/v1/domains/{domainID}/entity-types/{typeID}.
func (rt *DomainsRouter) DeleteEntityType(w http.ResponseWriter, req *http.Request) {
	actorID := req.URL.Query().Get("actor_id")
	if err := rt.schemas.DeleteEntityType(req.Context(), chi.URLParam(req, "domainID"), chi.URLParam(req, "typeID"), actorID); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

// RelationshipTypeRequest is the body for creating a relationship type.
type RelationshipTypeRequest struct {
	Name         string `json:"name"`
	SourceTypeID string `json:"source_type_id"`
	TargetTypeID string `json:"target_type_id"`
	ActorID      string `json:"actor_id"`
}

// AddRelationshipType handles POST /api/v1/domains/{domainID}/relationship-types.
func (rt *DomainsRouter) AddRelationshipType(w http.ResponseWriter, req *http.Request) {
	var body RelationshipTypeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}

	t, err := rt.schemas.AddRelationshipType(req.Context(), chi.URLParam(req, "domainID"), body.Name, body.SourceTypeID, body.TargetTypeID, body.ActorID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toRelationshipTypeResponse(t))
}

// DeleteRelationshipType handles DELETE /api/v1/domains/{domainID}/relationship-types/{typeID}.
func (rt *DomainsRouter) DeleteRelationshipType(w http.ResponseWriter, req *http.Request) {
	actorID := req.URL.Query().Get("actor_id")
	if err := rt.schemas.DeleteRelationshipType(req.Context(), chi.URLParam(req, "domainID"), chi.URLParam(req, "typeID"), actorID); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
