package resolver

import (
	"context"

	"github.com/anvil-platform/forge/internal/module"
)

// Resolver computes the closure of modules a request needs, driving provider
// choices to completion.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*ModList, error)
}

// ProviderChooser picks one of several modules providing the same capability.
//
// Returning ErrCancelled, or a nil module with a nil error, aborts the whole resolution.
type ProviderChooser interface {
	ChooseProvider(ctx context.Context, req ProviderRequest) (*module.Module, error)
}

// RecommendationChooser picks which optional modules to add. suggestion is false
// for recommends and true for suggests.
type RecommendationChooser interface {
	ChooseRecommended(ctx context.Context, recs []Recommendation, suggestion bool) ([]*module.Module, error)
}
