package handler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/internal/database"
)

func condValue(q repository.Query, field string) (string, bool) {
	for _, c := range q.Conditions() {
		if c.Field() == field && !c.In() {
			if s, ok := c.Value().(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func matches(q repository.Query, field, got string) bool {
	if want, ok := condValue(q, field); ok && want != got {
		return false
	}
	for _, c := range q.Conditions() {
		if c.Field() == field && c.In() {
			if vals, ok := c.Value().([]string); ok && !slices.Contains(vals, got) {
				return false
			}
		}
	}
	return true
}

type fakeDocumentStore struct {
	mu     sync.Mutex
	docs   map[string]document.Document
	nextID int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]document.Document)}
}

func (f *fakeDocumentStore) Save(ctx context.Context, doc document.Document) (document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID() == "" {
		f.nextID++
		doc = doc.WithID(fmt.Sprintf("doc-%d", f.nextID))
	}
	f.docs[doc.ID()] = doc
	return doc, nil
}

func (f *fakeDocumentStore) Find(ctx context.Context, options ...repository.Option) ([]document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []document.Document
	for _, doc := range f.docs {
		if matches(q, "id", doc.ID()) && matches(q, "kb_id", doc.KBID()) && matches(q, "domain_id", doc.DomainID()) {
			out = append(out, doc)
		}
	}
	slices.SortFunc(out, func(a, b document.Document) int { return strings.Compare(a.ID(), b.ID()) })
	return out, nil
}

func (f *fakeDocumentStore) FindOne(ctx context.Context, options ...repository.Option) (document.Document, error) {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return document.Document{}, err
	}
	if len(found) == 0 {
		return document.Document{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeDocumentStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	found, err := f.Find(ctx, options...)
	return int64(len(found)), err
}

func (f *fakeDocumentStore) Delete(ctx context.Context, options ...repository.Option) error {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range found {
		delete(f.docs, doc.ID())
	}
	return nil
}

type fakeChunkStore struct {
	mu     sync.Mutex
	chunks []extraction.Chunk
	nextID int
}

func (f *fakeChunkStore) Save(ctx context.Context, chunk extraction.Chunk, position int) (extraction.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chunk.ID() == "" {
		f.nextID++
		chunk = extraction.NewChunk(fmt.Sprintf("chk-%d", f.nextID),
			chunk.DocumentID(), chunk.KBID(), chunk.Content())
	}
	f.chunks = append(f.chunks, chunk)
	return chunk, nil
}

func (f *fakeChunkStore) ByDocument(ctx context.Context, kbID, documentID string) ([]extraction.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []extraction.Chunk
	for _, c := range f.chunks {
		if c.KBID() == kbID && c.DocumentID() == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, kbID, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.KBID() == kbID && c.DocumentID() == documentID {
			continue
		}
		kept = append(kept, c)
	}
	f.chunks = kept
	return nil
}

type fakeDomainStore struct {
	mu      sync.Mutex
	domains map[string]schema.Domain
	nextID  int
}

func (f *fakeDomainStore) Save(ctx context.Context, d schema.Domain) (schema.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.domains == nil {
		f.domains = make(map[string]schema.Domain)
	}
	if d.ID() == "" {
		f.nextID++
		d = d.WithID(fmt.Sprintf("dom-%d", f.nextID))
	}
	f.domains[d.ID()] = d
	return d, nil
}

func (f *fakeDomainStore) Find(ctx context.Context, options ...repository.Option) ([]schema.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []schema.Domain
	for _, d := range f.domains {
		if matches(q, "id", d.ID()) && matches(q, "name", d.Name()) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDomainStore) FindOne(ctx context.Context, options ...repository.Option) (schema.Domain, error) {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return schema.Domain{}, err
	}
	if len(found) == 0 {
		return schema.Domain{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeDomainStore) Delete(ctx context.Context, d schema.Domain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.domains, d.ID())
	return nil
}

type fakeEntityTypeStore struct {
	mu     sync.Mutex
	types  []schema.EntityType
	nextID int
}

func (f *fakeEntityTypeStore) Save(ctx context.Context, t schema.EntityType) (schema.EntityType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID() == "" {
		f.nextID++
		t = t.WithID(fmt.Sprintf("et-%d", f.nextID))
	}
	f.types = append(f.types, t)
	return t, nil
}

func (f *fakeEntityTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.EntityType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []schema.EntityType
	for _, t := range f.types {
		if matches(q, "id", t.ID()) && matches(q, "domain_id", t.DomainID()) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeEntityTypeStore) FindOne(ctx context.Context, options ...repository.Option) (schema.EntityType, error) {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return schema.EntityType{}, err
	}
	if len(found) == 0 {
		return schema.EntityType{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeEntityTypeStore) Delete(ctx context.Context, t schema.EntityType) error { return nil }

type fakeRelationshipTypeStore struct{}

func (fakeRelationshipTypeStore) Save(ctx context.Context, t schema.RelationshipType) (schema.RelationshipType, error) {
	return t, nil
}

func (fakeRelationshipTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.RelationshipType, error) {
	return nil, nil
}

func (fakeRelationshipTypeStore) FindOne(ctx context.Context, options ...repository.Option) (schema.RelationshipType, error) {
	return schema.RelationshipType{}, database.ErrNotFound
}

func (fakeRelationshipTypeStore) Delete(ctx context.Context, t schema.RelationshipType) error {
	return nil
}

type fakeChangeStore struct{}

func (fakeChangeStore) Append(ctx context.Context, record schema.ChangeRecord) (schema.ChangeRecord, error) {
	return record, nil
}

func (fakeChangeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.ChangeRecord, error) {
	return nil, nil
}

type fakeJobStore struct {
	mu     sync.Mutex
	jobs   map[string]job.ExtractionJob
	nextID int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]job.ExtractionJob)}
}

func (f *fakeJobStore) Save(ctx context.Context, j job.ExtractionJob) (job.ExtractionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j.ID() == "" {
		f.nextID++
		j = j.WithID(fmt.Sprintf("job-%d", f.nextID))
	}
	f.jobs[j.ID()] = j
	return j, nil
}

func (f *fakeJobStore) Find(ctx context.Context, options ...repository.Option) ([]job.ExtractionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []job.ExtractionJob
	for _, j := range f.jobs {
		if matches(q, "id", j.ID()) && matches(q, "kb_id", j.KBID()) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) FindOne(ctx context.Context, options ...repository.Option) (job.ExtractionJob, error) {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return job.ExtractionJob{}, err
	}
	if len(found) == 0 {
		return job.ExtractionJob{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeJobStore) AddOutcome(ctx context.Context, jobID string, outcome job.Outcome) (job.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return job.Progress{}, database.ErrNotFound
	}
	p := j.Progress()
	if p.Pending > 0 {
		p.Pending--
	}
	switch outcome {
	case job.OutcomeSucceeded:
		p.Succeeded++
	case job.OutcomeFailed:
		p.Failed++
	case job.OutcomeCancelled:
		p.Cancelled++
	}
	f.jobs[jobID] = j.WithProgress(p)
	return p, nil
}

func (f *fakeJobStore) AppendError(ctx context.Context, jobID, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return database.ErrNotFound
	}
	f.jobs[jobID] = j.AppendError(summary)
	return nil
}

func (f *fakeJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return false, database.ErrNotFound
	}
	return j.CancelRequested(), nil
}

// fakeGraphStore covers the store surface the extraction pipeline touches.
type fakeGraphStore struct {
	mu            sync.Mutex
	entities      map[string]graph.Entity
	relationships map[string]graph.Relationship
	provenance    []graph.Provenance
	nextID        int
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		entities:      make(map[string]graph.Entity),
		relationships: make(map[string]graph.Relationship),
	}
}

func (f *fakeGraphStore) SaveEntity(ctx context.Context, entity graph.Entity) (graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entity.ID() == "" {
		f.nextID++
		entity = entity.WithID(fmt.Sprintf("ent-%d", f.nextID))
	}
	f.entities[entity.ID()] = entity
	return entity, nil
}

func (f *fakeGraphStore) SaveRelationship(ctx context.Context, rel graph.Relationship) (graph.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rel.ID() == "" {
		f.nextID++
		rel = rel.WithID(fmt.Sprintf("rel-%d", f.nextID))
	}
	f.relationships[rel.ID()] = rel
	return rel, nil
}

func (f *fakeGraphStore) FindEntities(ctx context.Context, options ...repository.Option) ([]graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []graph.Entity
	for _, e := range f.entities {
		if matches(q, "kb_id", e.KBID()) && matches(q, "id", e.ID()) && matches(q, "type", e.Type()) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) FindOneEntity(ctx context.Context, options ...repository.Option) (graph.Entity, error) {
	found, err := f.FindEntities(ctx, options...)
	if err != nil {
		return graph.Entity{}, err
	}
	if len(found) == 0 {
		return graph.Entity{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeGraphStore) FindByNameType(ctx context.Context, kbID, entityType, name string) (graph.Entity, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entities {
		if e.KBID() == kbID && e.Type() == entityType && strings.EqualFold(e.Name(), strings.TrimSpace(name)) {
			return e, true, nil
		}
	}
	return graph.Entity{}, false, nil
}

func (f *fakeGraphStore) SearchByName(ctx context.Context, kbID, query string, limit int) ([]graph.Entity, error) {
	return nil, nil
}

func (f *fakeGraphStore) FindByType(ctx context.Context, kbID, entityType string, limit int) ([]graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graph.Entity
	for _, e := range f.entities {
		if e.KBID() == kbID && e.Type() == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) CountEntities(ctx context.Context, options ...repository.Option) (int64, error) {
	found, err := f.FindEntities(ctx, options...)
	return int64(len(found)), err
}

func (f *fakeGraphStore) FindRelationships(ctx context.Context, options ...repository.Option) ([]graph.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []graph.Relationship
	for _, r := range f.relationships {
		if matches(q, "kb_id", r.KBID()) && matches(q, "type", r.Type()) &&
			matches(q, "source_id", r.SourceID()) && matches(q, "target_id", r.TargetID()) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeGraphStore) EdgesTouching(ctx context.Context, kbID string, entityIDs []string, rowCap int) ([]graph.Relationship, error) {
	return nil, nil
}

func (f *fakeGraphStore) AddProvenance(ctx context.Context, rows ...graph.Provenance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provenance = append(f.provenance, rows...)
	return nil
}

func (f *fakeGraphStore) EntityIDsByDocument(ctx context.Context, kbID, documentID string) ([]string, error) {
	return nil, nil
}

func (f *fakeGraphStore) ProvenanceFor(ctx context.Context, ownerKind graph.OwnerKind, ownerID string) ([]graph.Provenance, error) {
	return nil, nil
}

func (f *fakeGraphStore) DeleteByDocument(ctx context.Context, kbID, documentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.provenance[:0]
	for _, row := range f.provenance {
		if row.KBID() == kbID && row.DocumentID() == documentID {
			continue
		}
		kept = append(kept, row)
	}
	f.provenance = kept

	supported := make(map[string]struct{})
	for _, row := range f.provenance {
		supported[row.OwnerID()] = struct{}{}
	}
	var swept int64
	for id, e := range f.entities {
		if e.KBID() != kbID {
			continue
		}
		if _, ok := supported[id]; !ok {
			delete(f.entities, id)
			swept++
		}
	}
	for id, r := range f.relationships {
		if r.KBID() != kbID {
			continue
		}
		if _, ok := supported[id]; !ok {
			delete(f.relationships, id)
		}
	}
	return swept, nil
}

func (f *fakeGraphStore) DeleteByKB(ctx context.Context, kbID string) error { return nil }

// fakeCompleter returns one canned response, or an error.
type fakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}
