package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/application/worker"
	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/domain/task"
)

type fixture struct {
	documents *fakeDocumentStore
	chunks    *fakeChunkStore
	graph     *fakeGraphStore
	jobs      *fakeJobStore
	domains   *fakeDomainStore
	completer *fakeCompleter
	schemas   *service.SchemaService
	extract   *ExtractHandler
	reextract *ReextractHandler

	domainID string
}

const extractionResponse = `{
	"entities": [{"type": "Medication", "name": "Metformin", "confidence": 0.9}]
}`

func newFixture(t *testing.T, softTimeLimit time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		documents: newFakeDocumentStore(),
		chunks:    &fakeChunkStore{},
		graph:     newFakeGraphStore(),
		jobs:      newFakeJobStore(),
		domains:   &fakeDomainStore{},
		completer: &fakeCompleter{response: extractionResponse},
	}

	entityTypes := &fakeEntityTypeStore{}
	f.schemas = service.NewSchemaService(
		f.domains, entityTypes, fakeRelationshipTypeStore{}, fakeChangeStore{},
		f.documents, nil, nil, nil,
	)

	d, err := f.domains.Save(context.Background(),
		schema.NewDomain("medical", "", schema.VisibilityPrivate, "").WithSchemaVersion(2))
	require.NoError(t, err)
	f.domainID = d.ID()
	_, err = entityTypes.Save(context.Background(), schema.NewEntityType(d.ID(), "Medication", nil))
	require.NoError(t, err)

	extractionSvc := service.NewExtractionService(f.graph, f.completer, 0.9, nil)
	f.extract = NewExtractHandler(f.documents, f.chunks, f.schemas, extractionSvc, 2, nil)
	f.reextract = NewReextractHandler(f.jobs, f.documents, f.graph, f.schemas, f.extract, softTimeLimit, nil)
	return f
}

func (f *fixture) addDocument(t *testing.T, kbID string, chunkContents ...string) document.Document {
	t.Helper()
	doc, err := f.documents.Save(context.Background(),
		document.NewDocument(kbID, f.domainID, "note", ""))
	require.NoError(t, err)
	for _, content := range chunkContents {
		_, err := f.chunks.Save(context.Background(),
			extraction.NewChunk("", doc.ID(), kbID, content), 0)
		require.NoError(t, err)
	}
	return doc
}

func extractTask(kbID, documentID string) task.Task {
	return task.NewTask(task.OperationExtractDocument, task.PriorityNormal, map[string]any{
		"kb_id":       kbID,
		"document_id": documentID,
	})
}

func batchTask(jobID string) task.Task {
	return task.NewTask(task.OperationReextractBatch, task.PriorityBackground, map[string]any{
		"job_id": jobID,
	})
}

func TestExtractHandlerStampsSchemaVersion(t *testing.T) {
	f := newFixture(t, 0)
	doc := f.addDocument(t, "kb-1", "Metformin 500mg.", "Second chunk.")

	err := f.extract.Handle(context.Background(), extractTask("kb-1", doc.ID()))
	require.NoError(t, err)

	stored, err := f.documents.FindOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ExtractionSchemaVersion())
	assert.False(t, stored.ExtractedAt().IsZero())

	// Both chunks hit the model; the identical candidate merged into one
	// entity.
	assert.Equal(t, 2, f.completer.calls)
	count, err := f.graph.CountEntities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExtractHandlerRejectsIncompletePayload(t *testing.T) {
	f := newFixture(t, 0)
	badTask := task.NewTask(task.OperationExtractDocument, task.PriorityNormal, map[string]any{
		"kb_id": "kb-1",
	})
	assert.Error(t, f.extract.Handle(context.Background(), badTask))
}

func TestExtractHandlerMissingDocumentFails(t *testing.T) {
	f := newFixture(t, 0)
	err := f.extract.Handle(context.Background(), extractTask("kb-1", "missing"))
	assert.Error(t, err)
}

func TestExtractHandlerModelErrorLeavesDocumentUnstamped(t *testing.T) {
	f := newFixture(t, 0)
	f.completer.err = errors.New("model unavailable")
	doc := f.addDocument(t, "kb-1", "Metformin.")

	err := f.extract.Handle(context.Background(), extractTask("kb-1", doc.ID()))
	require.Error(t, err)

	stored, err := f.documents.FindOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.ExtractionSchemaVersion())
}

func TestReextractHandlerCompletesJob(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	docA := f.addDocument(t, "kb-1", "Metformin.")
	docB := f.addDocument(t, "kb-1", "Metformin again.")

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{docA.ID(), docB.ID()}, job.CleanupMerge))
	require.NoError(t, err)

	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	done, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, done.Status())
	assert.Equal(t, int64(2), done.Progress().Succeeded)
	assert.True(t, done.Progress().Done())
}

func TestReextractHandlerReplaceModeSweepsOldContent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.addDocument(t, "kb-1", "Metformin.")

	// Stale content from the previous extraction run.
	stale, err := f.graph.SaveEntity(ctx,
		graph.NewEntity("kb-1", "Medication", "Obsolete Drug", nil, 0.8, 1))
	require.NoError(t, err)
	require.NoError(t, f.graph.AddProvenance(ctx,
		graph.NewProvenance(graph.OwnerEntity, stale.ID(), "kb-1", doc.ID(), "chk-old")))

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{doc.ID()}, job.CleanupReplace))
	require.NoError(t, err)
	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	_, found, err := f.graph.FindByNameType(ctx, "kb-1", "Medication", "Obsolete Drug")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = f.graph.FindByNameType(ctx, "kb-1", "Medication", "Metformin")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestReextractHandlerDocumentFailureDoesNotSinkBatch(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.addDocument(t, "kb-1", "Metformin.")
	f.completer.err = errors.New("model unavailable")

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{doc.ID()}, job.CleanupMerge))
	require.NoError(t, err)
	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	done, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	// Nothing succeeded, so the job is failed with the document's error
	// summary retained.
	assert.Equal(t, job.StatusFailed, done.Status())
	assert.Equal(t, int64(1), done.Progress().Failed)
	require.Len(t, done.ErrorSummaries(), 1)
	assert.Contains(t, done.ErrorSummaries()[0], doc.ID())
}

func TestReextractHandlerHonorsCancellation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	doc := f.addDocument(t, "kb-1", "Metformin.")

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{doc.ID()}, job.CleanupMerge).RequestCancel())
	require.NoError(t, err)
	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	done, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCancelled, done.Status())
	assert.Equal(t, int64(1), done.Progress().Cancelled)
	// The cancelled document was never sent to the model.
	assert.Equal(t, 0, f.completer.calls)
}

func TestReextractHandlerYieldsAtSoftTimeLimit(t *testing.T) {
	f := newFixture(t, time.Nanosecond)
	ctx := context.Background()
	doc := f.addDocument(t, "kb-1", "Metformin.")

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{doc.ID()}, job.CleanupMerge))
	require.NoError(t, err)

	err = f.reextract.Handle(ctx, batchTask(j.ID()))
	assert.ErrorIs(t, err, worker.ErrYield)

	// The job stays running with its work intact for the next claim.
	stored, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, stored.Status())
	assert.Equal(t, int64(1), stored.Progress().Pending)
}

func TestReextractHandlerTerminalJobIsAcknowledged(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	j, err := f.jobs.Save(ctx, job.NewJob("kb-1", f.domainID,
		[]string{"doc-x"}, job.CleanupMerge).Start(time.Now()).RequestCancel().Complete(time.Now()))
	require.NoError(t, err)

	assert.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))
	assert.Equal(t, 0, f.completer.calls)
}

func TestReextractHandlerDriftJobResolvesStaleDocuments(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// One document extracted under the current version, one under an older
	// one. Only the stale one is re-run.
	fresh := f.addDocument(t, "kb-1", "Fresh.")
	_, err := f.documents.Save(ctx, fresh.MarkExtracted(2, time.Now()))
	require.NoError(t, err)
	stale := f.addDocument(t, "kb-1", "Stale.")
	_, err = f.documents.Save(ctx, stale.MarkExtracted(1, time.Now()))
	require.NoError(t, err)

	j, err := f.jobs.Save(ctx, job.NewDriftJob("kb-1", f.domainID, job.CleanupReplace))
	require.NoError(t, err)
	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	done, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, done.Status())
	assert.Equal(t, int64(1), done.Progress().Succeeded)
	assert.Equal(t, []string{stale.ID()}, done.DocumentIDs())
	assert.Equal(t, 1, f.completer.calls)
}

func TestReextractHandlerDriftJobWithNothingStaleCompletesImmediately(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	j, err := f.jobs.Save(ctx, job.NewDriftJob("kb-1", f.domainID, job.CleanupReplace))
	require.NoError(t, err)
	require.NoError(t, f.reextract.Handle(ctx, batchTask(j.ID())))

	done, err := f.jobs.FindOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, done.Status())
	assert.Equal(t, int64(0), done.Progress().Total())
}
