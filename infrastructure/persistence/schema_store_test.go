package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
)

// brokenChangeStore fails every append, simulating a write error in the
// middle of a schema mutation.
type brokenChangeStore struct {
	ChangeStore
}

func (s brokenChangeStore) Append(ctx context.Context, record schema.ChangeRecord) (schema.ChangeRecord, error) {
	return schema.ChangeRecord{}, errors.New("change log unavailable")
}

func TestAddEntityTypeRollsBackOnChangeLogFailure(t *testing.T) {
	db := testDB(t)
	entityTypes := NewEntityTypeStore(db)
	svc := service.NewSchemaService(
		NewDomainStore(db), entityTypes, NewRelationshipTypeStore(db),
		brokenChangeStore{NewChangeStore(db)}, NewDocumentStore(db), nil, db, nil,
	)
	ctx := context.Background()

	d, err := svc.CreateDomain(ctx, "medical", "", schema.VisibilityPrivate, "owner-1")
	require.NoError(t, err)

	_, err = svc.AddEntityType(ctx, d.ID(), "Medication", nil, "owner-1")
	require.Error(t, err)

	// The failed mutation must leave no trace: version unchanged, type
	// not persisted.
	reloaded, err := svc.GetDomain(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.SchemaVersion())

	persisted, err := entityTypes.Find(ctx, repository.WithDomainID(d.ID()))
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestAddEntityTypeCommitsVersionAndChangeTogether(t *testing.T) {
	db := testDB(t)
	changes := NewChangeStore(db)
	svc := service.NewSchemaService(
		NewDomainStore(db), NewEntityTypeStore(db), NewRelationshipTypeStore(db),
		changes, NewDocumentStore(db), nil, db, nil,
	)
	ctx := context.Background()

	d, err := svc.CreateDomain(ctx, "medical", "", schema.VisibilityPrivate, "owner-1")
	require.NoError(t, err)
	_, err = svc.AddEntityType(ctx, d.ID(), "Medication", map[string]string{"dosage": "string"}, "owner-1")
	require.NoError(t, err)

	reloaded, err := svc.GetDomain(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.SchemaVersion())

	log, err := svc.ChangeLog(ctx, d.ID())
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, int64(1), log[0].OldVersion())
	assert.Equal(t, int64(2), log[0].NewVersion())
}
