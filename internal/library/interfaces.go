package library

import (
	"context"

	"cicloteca-backend/internal/download"
	"cicloteca-backend/internal/resolver"
	"cicloteca-backend/pkg/models"
)

// Store is the document store holding the library catalog
type Store interface {
	GetEntry(ctx context.Context, id string) (*models.LibraryEntry, error)
	ListEntries(ctx context.Context) ([]*models.LibraryEntry, error)
}

// Resolver turns references into download URLs
type Resolver interface {
	Resolve(ctx context.Context, ref models.Reference, policy resolver.Policy) (string, bool)
	Lookup(ctx context.Context, ref models.Reference) (string, error)
}

// RelayResolver wraps URLs whose host needs the relay
type RelayResolver interface {
	NeedsRelay(raw string) (string, bool)
}

// Deliverer sends a resolved file to a sink
type Deliverer interface {
	Deliver(ctx context.Context, req download.Request) (download.Result, error)
}
