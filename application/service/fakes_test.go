package service

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
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/database"
)

// condValue returns the value of the named equality condition, if present.
func condValue(q repository.Query, field string) (any, bool) {
	for _, c := range q.Conditions() {
		if c.Field() == field && !c.In() {
			return c.Value(), true
		}
	}
	return nil, false
}

// condIn returns the values of the named IN condition, if present.
func condIn(q repository.Query, field string) ([]string, bool) {
	for _, c := range q.Conditions() {
		if c.Field() == field && c.In() {
			if vals, ok := c.Value().([]string); ok {
				return vals, true
			}
		}
	}
	return nil, false
}

func matchString(q repository.Query, field, got string) bool {
	if want, ok := condValue(q, field); ok {
		s, isString := want.(string)
		if !isString || s != got {
			return false
		}
	}
	if vals, ok := condIn(q, field); ok {
		if !slices.Contains(vals, got) {
			return false
		}
	}
	return true
}

func applyWindow[T any](q repository.Query, items []T) []T {
	if off := q.OffsetValue(); off > 0 {
		if off >= len(items) {
			return nil
		}
		items = items[off:]
	}
	if lim := q.LimitValue(); lim > 0 && len(items) > lim {
		items = items[:lim]
	}
	return items
}

// fakeGraphStore is an in-memory graph.Store.
type fakeGraphStore struct {
	mu            sync.Mutex
	entities      map[string]graph.Entity
	relationships map[string]graph.Relationship
	provenance    []graph.Provenance
	nextID        int

	saveEntityErr    error
	searchByNameErr  error
	edgesTouchingErr error
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		entities:      make(map[string]graph.Entity),
		relationships: make(map[string]graph.Relationship),
	}
}

func (f *fakeGraphStore) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeGraphStore) SaveEntity(ctx context.Context, entity graph.Entity) (graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveEntityErr != nil {
		return graph.Entity{}, f.saveEntityErr
	}
	if entity.KBID() == "" {
		return graph.Entity{}, graph.ErrMissingKB
	}
	if entity.ID() == "" {
		entity = entity.WithID(f.genID("ent"))
	}
	f.entities[entity.ID()] = entity
	return entity, nil
}

func (f *fakeGraphStore) SaveRelationship(ctx context.Context, rel graph.Relationship) (graph.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rel.KBID() == "" {
		return graph.Relationship{}, graph.ErrMissingKB
	}
	if rel.ID() == "" {
		rel = rel.WithID(f.genID("rel"))
	}
	f.relationships[rel.ID()] = rel
	return rel, nil
}

func (f *fakeGraphStore) matchEntity(q repository.Query, e graph.Entity) bool {
	return matchString(q, "kb_id", e.KBID()) &&
		matchString(q, "id", e.ID()) &&
		matchString(q, "type", e.Type()) &&
		matchString(q, "name", e.Name())
}

func (f *fakeGraphStore) FindEntities(ctx context.Context, options ...repository.Option) ([]graph.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []graph.Entity
	for _, e := range f.entities {
		if f.matchEntity(q, e) {
			out = append(out, e)
		}
	}
	for _, order := range q.Orders() {
		if order.Field() == "name" {
			asc := order.Ascending()
			slices.SortFunc(out, func(a, b graph.Entity) int {
				c := strings.Compare(a.Name(), b.Name())
				if !asc {
					c = -c
				}
				return c
			})
		}
	}
	return applyWindow(q, out), nil
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
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchByNameErr != nil {
		return nil, f.searchByNameErr
	}
	var out []graph.Entity
	for _, e := range f.entities {
		if e.KBID() != kbID {
			continue
		}
		if strings.Contains(strings.ToLower(e.Name()), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b graph.Entity) int { return strings.Compare(a.Name(), b.Name()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
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
	slices.SortFunc(out, func(a, b graph.Entity) int { return strings.Compare(a.ID(), b.ID()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGraphStore) CountEntities(ctx context.Context, options ...repository.Option) (int64, error) {
	found, err := f.FindEntities(ctx, options...)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

func (f *fakeGraphStore) FindRelationships(ctx context.Context, options ...repository.Option) ([]graph.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []graph.Relationship
	for _, r := range f.relationships {
		if matchString(q, "kb_id", r.KBID()) &&
			matchString(q, "id", r.ID()) &&
			matchString(q, "type", r.Type()) &&
			matchString(q, "source_id", r.SourceID()) &&
			matchString(q, "target_id", r.TargetID()) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b graph.Relationship) int { return strings.Compare(a.ID(), b.ID()) })
	return applyWindow(q, out), nil
}

func (f *fakeGraphStore) EdgesTouching(ctx context.Context, kbID string, entityIDs []string, rowCap int) ([]graph.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.edgesTouchingErr != nil {
		return nil, f.edgesTouchingErr
	}
	set := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		set[id] = struct{}{}
	}
	var out []graph.Relationship
	for _, r := range f.relationships {
		if r.KBID() != kbID {
			continue
		}
		_, src := set[r.SourceID()]
		_, tgt := set[r.TargetID()]
		if src || tgt {
			out = append(out, r)
		}
	}
	if rowCap > 0 && len(out) > rowCap {
		return nil, graph.ErrQueryLimitExceeded
	}
	slices.SortFunc(out, func(a, b graph.Relationship) int { return strings.Compare(a.ID(), b.ID()) })
	return out, nil
}

func (f *fakeGraphStore) AddProvenance(ctx context.Context, rows ...graph.Provenance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		dup := false
		for _, have := range f.provenance {
			if have.OwnerKind() == row.OwnerKind() && have.OwnerID() == row.OwnerID() &&
				have.DocumentID() == row.DocumentID() && have.ChunkID() == row.ChunkID() {
				dup = true
				break
			}
		}
		if !dup {
			f.provenance = append(f.provenance, row)
		}
	}
	return nil
}

func (f *fakeGraphStore) EntityIDsByDocument(ctx context.Context, kbID, documentID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, row := range f.provenance {
		if row.KBID() != kbID || row.DocumentID() != documentID || row.OwnerKind() != graph.OwnerEntity {
			continue
		}
		if _, ok := seen[row.OwnerID()]; ok {
			continue
		}
		seen[row.OwnerID()] = struct{}{}
		out = append(out, row.OwnerID())
	}
	return out, nil
}

func (f *fakeGraphStore) ProvenanceFor(ctx context.Context, ownerKind graph.OwnerKind, ownerID string) ([]graph.Provenance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graph.Provenance
	for _, row := range f.provenance {
		if row.OwnerKind() == ownerKind && row.OwnerID() == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
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
		_, ok := supported[id]
		_, srcAlive := f.entities[r.SourceID()]
		_, tgtAlive := f.entities[r.TargetID()]
		if !ok || !srcAlive || !tgtAlive {
			delete(f.relationships, id)
		}
	}
	return swept, nil
}

func (f *fakeGraphStore) DeleteByKB(ctx context.Context, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.entities {
		if e.KBID() == kbID {
			delete(f.entities, id)
		}
	}
	for id, r := range f.relationships {
		if r.KBID() == kbID {
			delete(f.relationships, id)
		}
	}
	kept := f.provenance[:0]
	for _, row := range f.provenance {
		if row.KBID() != kbID {
			kept = append(kept, row)
		}
	}
	f.provenance = kept
	return nil
}

// fakeCompleter returns canned model responses in order.
type fakeCompleter struct {
	responses []string
	err       error
	calls     int
	systems   []string
	users     []string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.systems = append(f.systems, systemPrompt)
	f.users = append(f.users, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "{}", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

// fakeVectorSearcher returns canned hits.
type fakeVectorSearcher struct {
	hits []retrieval.VectorHit
	err  error
}

func (f *fakeVectorSearcher) Search(ctx context.Context, kbID, queryText string, topK int) ([]retrieval.VectorHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeChunkFetcher serves chunk records by ID.
type fakeChunkFetcher struct {
	records map[string]retrieval.ChunkRecord
}

func (f *fakeChunkFetcher) ByIDs(ctx context.Context, kbID string, chunkIDs []string) ([]retrieval.ChunkRecord, error) {
	var out []retrieval.ChunkRecord
	for _, id := range chunkIDs {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b retrieval.ChunkRecord) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// fakeDomainStore is an in-memory schema.DomainStore.
type fakeDomainStore struct {
	mu      sync.Mutex
	domains map[string]schema.Domain
	nextID  int
}

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{domains: make(map[string]schema.Domain)}
}

func (f *fakeDomainStore) Save(ctx context.Context, d schema.Domain) (schema.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
		if matchString(q, "id", d.ID()) && matchString(q, "name", d.Name()) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b schema.Domain) int { return strings.Compare(a.Name(), b.Name()) })
	return applyWindow(q, out), nil
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

// fakeEntityTypeStore is an in-memory schema.EntityTypeStore.
type fakeEntityTypeStore struct {
	mu     sync.Mutex
	types  map[string]schema.EntityType
	nextID int
}

func newFakeEntityTypeStore() *fakeEntityTypeStore {
	return &fakeEntityTypeStore{types: make(map[string]schema.EntityType)}
}

func (f *fakeEntityTypeStore) Save(ctx context.Context, t schema.EntityType) (schema.EntityType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID() == "" {
		f.nextID++
		t = t.WithID(fmt.Sprintf("et-%d", f.nextID))
	}
	f.types[t.ID()] = t
	return t, nil
}

func (f *fakeEntityTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.EntityType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []schema.EntityType
	for _, t := range f.types {
		if matchString(q, "id", t.ID()) && matchString(q, "domain_id", t.DomainID()) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b schema.EntityType) int { return a.Position() - b.Position() })
	return applyWindow(q, out), nil
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

func (f *fakeEntityTypeStore) Delete(ctx context.Context, t schema.EntityType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.types, t.ID())
	return nil
}

// fakeRelationshipTypeStore is an in-memory schema.RelationshipTypeStore.
type fakeRelationshipTypeStore struct {
	mu     sync.Mutex
	types  map[string]schema.RelationshipType
	nextID int
}

func newFakeRelationshipTypeStore() *fakeRelationshipTypeStore {
	return &fakeRelationshipTypeStore{types: make(map[string]schema.RelationshipType)}
}

func (f *fakeRelationshipTypeStore) Save(ctx context.Context, t schema.RelationshipType) (schema.RelationshipType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID() == "" {
		f.nextID++
		t = t.WithID(fmt.Sprintf("rt-%d", f.nextID))
	}
	f.types[t.ID()] = t
	return t, nil
}

func (f *fakeRelationshipTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.RelationshipType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []schema.RelationshipType
	for _, t := range f.types {
		if matchString(q, "id", t.ID()) && matchString(q, "domain_id", t.DomainID()) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b schema.RelationshipType) int { return a.Position() - b.Position() })
	return applyWindow(q, out), nil
}

func (f *fakeRelationshipTypeStore) FindOne(ctx context.Context, options ...repository.Option) (schema.RelationshipType, error) {
	found, err := f.Find(ctx, options...)
	if err != nil {
		return schema.RelationshipType{}, err
	}
	if len(found) == 0 {
		return schema.RelationshipType{}, database.ErrNotFound
	}
	return found[0], nil
}

func (f *fakeRelationshipTypeStore) Delete(ctx context.Context, t schema.RelationshipType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.types, t.ID())
	return nil
}

// fakeChangeStore is an in-memory, append-only schema.ChangeStore.
type fakeChangeStore struct {
	mu      sync.Mutex
	records []schema.ChangeRecord
	nextID  int
}

func newFakeChangeStore() *fakeChangeStore { return &fakeChangeStore{} }

func (f *fakeChangeStore) Append(ctx context.Context, record schema.ChangeRecord) (schema.ChangeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record = record.WithID(fmt.Sprintf("chg-%d", f.nextID))
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeChangeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.ChangeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := repository.Build(options...)
	var out []schema.ChangeRecord
	// Appended in chronological order; newest-first queries walk backwards.
	newestFirst := false
	for _, order := range q.Orders() {
		if order.Field() == "created_at" && !order.Ascending() {
			newestFirst = true
		}
	}
	for i := range f.records {
		rec := f.records[i]
		if newestFirst {
			rec = f.records[len(f.records)-1-i]
		}
		if matchString(q, "domain_id", rec.DomainID()) {
			out = append(out, rec)
		}
	}
	return applyWindow(q, out), nil
}

// fakeDocumentStore is an in-memory document.Store.
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
		if matchString(q, "id", doc.ID()) &&
			matchString(q, "kb_id", doc.KBID()) &&
			matchString(q, "domain_id", doc.DomainID()) {
			out = append(out, doc)
		}
	}
	slices.SortFunc(out, func(a, b document.Document) int { return strings.Compare(a.ID(), b.ID()) })
	return applyWindow(q, out), nil
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
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
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

// fakeJobStore is an in-memory job.Store.
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
		if matchString(q, "id", j.ID()) &&
			matchString(q, "kb_id", j.KBID()) &&
			matchString(q, "status", string(j.Status())) {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, func(a, b job.ExtractionJob) int { return strings.Compare(b.ID(), a.ID()) })
	return applyWindow(q, out), nil
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

// fakeTaskStore is an in-memory task.Store with claim semantics.
type fakeTaskStore struct {
	mu      sync.Mutex
	tasks   map[int64]task.Task
	claimed map[int64]bool
	nextID  int64
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:   make(map[int64]task.Task),
		claimed: make(map[int64]bool),
	}
}

func (f *fakeTaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return task.Task{}, database.ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskStore) FindPending(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []task.Task
	for _, t := range f.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b task.Task) int { return b.Priority() - a.Priority() })
	return out, nil
}

func (f *fakeTaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.tasks {
		if have.DedupKey() == t.DedupKey() {
			return have, nil
		}
	}
	f.nextID++
	t = t.WithID(f.nextID)
	f.tasks[t.ID()] = t
	return t, nil
}

func (f *fakeTaskStore) SaveBulk(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		saved, err := f.Save(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, t task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, t.ID())
	delete(f.claimed, t.ID())
	return nil
}

func (f *fakeTaskStore) CountPending(ctx context.Context, options ...repository.Option) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tasks)), nil
}

func (f *fakeTaskStore) Dequeue(ctx context.Context, operations ...task.Operation) (task.Task, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best task.Task
	found := false
	for _, t := range f.tasks {
		if f.claimed[t.ID()] {
			continue
		}
		if len(operations) > 0 && !slices.Contains(operations, t.Operation()) {
			continue
		}
		if !found || t.Priority() > best.Priority() || (t.Priority() == best.Priority() && t.ID() < best.ID()) {
			best = t
			found = true
		}
	}
	if !found {
		return task.Task{}, false, nil
	}
	f.claimed[best.ID()] = true
	return best, true, nil
}

func (f *fakeTaskStore) Release(ctx context.Context, t task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, t.ID())
	return nil
}

// fakeChunkStore is an in-memory extraction.ChunkStore.
type fakeChunkStore struct {
	mu     sync.Mutex
	chunks []extraction.Chunk
	nextID int
}

func newFakeChunkStore() *fakeChunkStore { return &fakeChunkStore{} }

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

// fakeAuditSink records the events it sees.
type fakeAuditSink struct {
	mu     sync.Mutex
	events []schema.AuditEvent
	err    error
}

func (f *fakeAuditSink) Record(ctx context.Context, event schema.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditSink) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}
