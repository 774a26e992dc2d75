package repository

import "context"

// Transactor runs a function with every store call made through its context
// joined into one database transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
