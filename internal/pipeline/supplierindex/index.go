// Package supplierindex looks up candidate suppliers for an RFQ category.
// Drivers return a point-in-time snapshot: a pipeline run streams candidates
// through an Iterator and never observes concurrent profile updates.
package supplierindex

import (
	"context"

	"rfq-pipeline/internal/models"
)

// Filters narrows a candidate query beyond the mandatory category.
type Filters struct {
	Region   string
	Country  string
	Verified *bool
}

// Iterator streams candidate profiles page by page.
type Iterator interface {
	// Next returns the next candidate. ok is false once the stream is
	// exhausted.
	Next(ctx context.Context) (profile models.SupplierProfile, ok bool, err error)
	Close() error
}

// Index is the candidate-lookup contract the orchestrator depends on. A
// blank category matches nobody: every driver returns an empty stream for
// it, never an error.
type Index interface {
	Candidates(ctx context.Context, category string, filters Filters) (Iterator, error)
}

// emptyIterator is the stream for queries that cannot match anybody.
type emptyIterator struct{}

func (emptyIterator) Next(ctx context.Context) (models.SupplierProfile, bool, error) {
	return models.SupplierProfile{}, false, nil
}

func (emptyIterator) Close() error { return nil }
