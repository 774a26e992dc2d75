package document

import (
	"context"

	"github.com/inquira/kgraph/domain/repository"
)

// Store persists documents.
type Store interface {
	Save(ctx context.Context, doc Document) (Document, error)
	Find(ctx context.Context, options ...repository.Option) ([]Document, error)
	FindOne(ctx context.Context, options ...repository.Option) (Document, error)
	Count(ctx context.Context, options ...repository.Option) (int64, error)
	Delete(ctx context.Context, options ...repository.Option) error
}
