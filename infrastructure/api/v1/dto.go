// Package v1 implements the versioned REST API routers.
package v1

import (
	"time"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/domain/schema"
)

// DomainResponse is the wire form of a domain.
type DomainResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Visibility    string    `json:"visibility"`
	OwnerID       string    `json:"owner_id,omitempty"`
	SchemaVersion int64     `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDomainResponse(d schema.Domain) DomainResponse {
	return DomainResponse{
		ID:            d.ID(),
		Name:          d.Name(),
		Description:   d.Description(),
		Visibility:    string(d.Visibility()),
		OwnerID:       d.OwnerID(),
		SchemaVersion: d.SchemaVersion(),
		CreatedAt:     d.CreatedAt(),
		UpdatedAt:     d.UpdatedAt(),
	}
}

// EntityTypeResponse is the wire form of an entity type.
type EntityTypeResponse struct {
	ID         string            `json:"id"`
	DomainID   string            `json:"domain_id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Color      string            `json:"color,omitempty"`
	Icon       string            `json:"icon,omitempty"`
	Position   int               `json:"position"`
}

func toEntityTypeResponse(t schema.EntityType) EntityTypeResponse {
	return EntityTypeResponse{
		ID:         t.ID(),
		DomainID:   t.DomainID(),
		Name:       t.Name(),
		Attributes: t.Attributes(),
		Color:      t.Color(),
		Icon:       t.Icon(),
		Position:   t.Position(),
	}
}

// RelationshipTypeResponse is the wire form of a relationship type.
type RelationshipTypeResponse struct {
	ID           string `json:"id"`
	DomainID     string `json:"domain_id"`
	Name         string `json:"name"`
	SourceTypeID string `json:"source_type_id"`
	TargetTypeID string `json:"target_type_id"`
	Position     int    `json:"position"`
}

func toRelationshipTypeResponse(t schema.RelationshipType) RelationshipTypeResponse {
	return RelationshipTypeResponse{
		ID:           t.ID(),
		DomainID:     t.DomainID(),
		Name:         t.Name(),
		SourceTypeID: t.SourceTypeID(),
		TargetTypeID: t.TargetTypeID(),
		Position:     t.Position(),
	}
}

// DefinitionResponse is a domain with its full type set.
type DefinitionResponse struct {
	Domain            DomainResponse             `json:"domain"`
	EntityTypes       []EntityTypeResponse       `json:"entity_types"`
	RelationshipTypes []RelationshipTypeResponse `json:"relationship_types"`
}

func toDefinitionResponse(def schema.Definition) DefinitionResponse {
	resp := DefinitionResponse{
		Domain:            toDomainResponse(def.Domain()),
		EntityTypes:       []EntityTypeResponse{},
		RelationshipTypes: []RelationshipTypeResponse{},
	}
	for _, t := range def.EntityTypes() {
		resp.EntityTypes = append(resp.EntityTypes, toEntityTypeResponse(t))
	}
	for _, t := range def.RelationshipTypes() {
		resp.RelationshipTypes = append(resp.RelationshipTypes, toRelationshipTypeResponse(t))
	}
	return resp
}

// ChangeRecordResponse is one schema change log entry.
type ChangeRecordResponse struct {
	ID          string    `json:"id"`
	DomainID    string    `json:"domain_id"`
	OldVersion  int64     `json:"old_version"`
	NewVersion  int64     `json:"new_version"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toChangeRecordResponse(c schema.ChangeRecord) ChangeRecordResponse {
	return ChangeRecordResponse{
		ID:          c.ID(),
		DomainID:    c.DomainID(),
		OldVersion:  c.OldVersion(),
		NewVersion:  c.NewVersion(),
		Description: c.Description(),
		CreatedAt:   c.CreatedAt(),
	}
}

// EntityResponse is the wire form of a graph entity.
type EntityResponse struct {
	ID            string         `json:"id"`
	KBID          string         `json:"kb_id"`
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Confidence    float64        `json:"confidence"`
	SchemaVersion int64          `json:"schema_version"`
}

func toEntityResponse(e graph.Entity) EntityResponse {
	return EntityResponse{
		ID:            e.ID(),
		KBID:          e.KBID(),
		Type:          e.Type(),
		Name:          e.Name(),
		Attributes:    e.Attributes(),
		Confidence:    e.Confidence(),
		SchemaVersion: e.SchemaVersion(),
	}
}

func toEntityResponses(entities []graph.Entity) []EntityResponse {
	out := make([]EntityResponse, len(entities))
	for i, e := range entities {
		out[i] = toEntityResponse(e)
	}
	return out
}

// RelationshipResponse is the wire form of a graph edge.
type RelationshipResponse struct {
	ID         string         `json:"id"`
	KBID       string         `json:"kb_id"`
	Type       string         `json:"type"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func toRelationshipResponses(rels []graph.Relationship) []RelationshipResponse {
	out := make([]RelationshipResponse, len(rels))
	for i, r := range rels {
		out[i] = RelationshipResponse{
			ID:         r.ID(),
			KBID:       r.KBID(),
			Type:       r.Type(),
			SourceID:   r.SourceID(),
			TargetID:   r.TargetID(),
			Attributes: r.Attributes(),
		}
	}
	return out
}

// NeighborhoodResponse is a bounded expansion result.
type NeighborhoodResponse struct {
	Nodes []EntityResponse       `json:"nodes"`
	Edges []RelationshipResponse `json:"edges"`
	Hops  map[string]int         `json:"hops"`
}

func toNeighborhoodResponse(n graph.Neighborhood) NeighborhoodResponse {
	hops := make(map[string]int, len(n.Nodes()))
	for _, node := range n.Nodes() {
		if d, ok := n.HopDistance(node.ID()); ok {
			hops[node.ID()] = d
		}
	}
	return NeighborhoodResponse{
		Nodes: toEntityResponses(n.Nodes()),
		Edges: toRelationshipResponses(n.Edges()),
		Hops:  hops,
	}
}

// PathResponse is a shortest path result.
type PathResponse struct {
	Found  bool                   `json:"found"`
	Length int                    `json:"length,omitempty"`
	Nodes  []EntityResponse       `json:"nodes,omitempty"`
	Edges  []RelationshipResponse `json:"edges,omitempty"`
}

// RetrievalResultResponse is one retrieved chunk.
type RetrievalResultResponse struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Source     string   `json:"source"`
	EntityIDs  []string `json:"entity_ids,omitempty"`
}

func toRetrievalResponses(results []retrieval.Result) []RetrievalResultResponse {
	out := make([]RetrievalResultResponse, len(results))
	for i, r := range results {
		out[i] = RetrievalResultResponse{
			ChunkID:    r.ChunkID(),
			DocumentID: r.DocumentID(),
			Content:    r.Content(),
			Score:      r.Score(),
			Source:     string(r.Source()),
			EntityIDs:  r.EntityIDs(),
		}
	}
	return out
}

// DocumentResponse is the wire form of a document.
type DocumentResponse struct {
	ID                      string     `json:"id"`
	KBID                    string     `json:"kb_id"`
	DomainID                string     `json:"domain_id"`
	Title                   string     `json:"title"`
	URI                     string     `json:"uri,omitempty"`
	ExtractionSchemaVersion int64      `json:"extraction_schema_version"`
	ExtractedAt             *time.Time `json:"extracted_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

func toDocumentResponse(d document.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                      d.ID(),
		KBID:                    d.KBID(),
		DomainID:                d.DomainID(),
		Title:                   d.Title(),
		URI:                     d.URI(),
		ExtractionSchemaVersion: d.ExtractionSchemaVersion(),
		CreatedAt:               d.CreatedAt(),
	}
	if !d.ExtractedAt().IsZero() {
		at := d.ExtractedAt()
		resp.ExtractedAt = &at
	}
	return resp
}

// JobResponse is the wire form of an extraction job.
type JobResponse struct {
	ID             string     `json:"id"`
	KBID           string     `json:"kb_id"`
	DomainID       string     `json:"domain_id"`
	DocumentIDs    []string   `json:"document_ids,omitempty"`
	AllDrifted     bool       `json:"all_drifted"`
	CleanupMode    string     `json:"cleanup_mode"`
	Status         string     `json:"status"`
	Succeeded      int64      `json:"succeeded"`
	Failed         int64      `json:"failed"`
	Cancelled      int64      `json:"cancelled"`
	Pending        int64      `json:"pending"`
	ErrorSummaries []string   `json:"error_summaries,omitempty"`
	ETA            *time.Time `json:"eta,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toJobResponse(j job.ExtractionJob) JobResponse {
	resp := JobResponse{
		ID:             j.ID(),
		KBID:           j.KBID(),
		DomainID:       j.DomainID(),
		DocumentIDs:    j.DocumentIDs(),
		AllDrifted:     j.AllDrifted(),
		CleanupMode:    string(j.CleanupMode()),
		Status:         string(j.Status()),
		Succeeded:      j.Progress().Succeeded,
		Failed:         j.Progress().Failed,
		Cancelled:      j.Progress().Cancelled,
		Pending:        j.Progress().Pending,
		ErrorSummaries: j.ErrorSummaries(),
		CreatedAt:      j.CreatedAt(),
	}
	if !j.StartedAt().IsZero() {
		at := j.StartedAt()
		resp.StartedAt = &at
	}
	if !j.CompletedAt().IsZero() {
		at := j.CompletedAt()
		resp.CompletedAt = &at
	}
	return resp
}

func toJobStatusResponse(s service.JobStatus) JobResponse {
	resp := toJobResponse(s.Job)
	if s.HasETA {
		eta := s.ETA
		resp.ETA = &eta
	}
	return resp
}

// DriftReportResponse summarizes schema drift for one knowledge base.
type DriftReportResponse struct {
	DomainID       string             `json:"domain_id"`
	CurrentVersion int64              `json:"current_version"`
	TotalDocuments int                `json:"total_documents"`
	Stale          bool               `json:"stale"`
	StaleDocuments []DocumentResponse `json:"stale_documents"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

func toDriftReportResponse(r service.DriftReport) DriftReportResponse {
	resp := DriftReportResponse{
		DomainID:       r.DomainID,
		CurrentVersion: r.CurrentVersion,
		TotalDocuments: r.TotalDocuments,
		Stale:          r.Stale(),
		StaleDocuments: []DocumentResponse{},
		GeneratedAt:    r.GeneratedAt,
	}
	for _, doc := range r.StaleDocuments {
		resp.StaleDocuments = append(resp.StaleDocuments, toDocumentResponse(doc))
	}
	return resp
}
