package mirror

import (
	"context"
	"errors"

	"kas/internal/core"
)

// ErrRowNotFound is returned by Remove when no mirrored row matches.
var ErrRowNotFound = errors.New("mirror: row not found")

// Ports for outbound mirror adapters.
type (
	// Appender writes one transaction to the mirror and returns a
	// reference to the written row.
	Appender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// Remover drops a mirrored row. The source row is already deleted,
	// so the request carries the values needed to find its mirror.
	Remover interface {
		Remove(ctx context.Context, req RemoveRequest) error
	}
)

// RemoveRequest identifies a mirrored row by its content.
type RemoveRequest struct {
	Date        string
	Type        string
	Description string
	AmountCents int64
}
