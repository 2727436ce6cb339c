package model

import "context"

// Transactor runs fn inside a single storage transaction.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
