package prompt

import (
	"context"

	"github.com/anvil-platform/forge/internal/resolver"
)

// Serve answers the choices published by async on the calling goroutine until
// done is closed or ctx ends. A failed or aborted prompt cancels the pending
// choice. Errors other than cancellation are returned after cancelling.
func Serve(ctx context.Context, async *resolver.AsyncChooser, providers resolver.ProviderChooser, recs resolver.RecommendationChooser, done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case p := <-async.Requests():
			if err := answer(ctx, p, providers, recs); err != nil {
				p.Cancel()
				if !resolver.IsCancelled(err) {
					return err
				}
			}
		}
	}
}

func answer(ctx context.Context, p *resolver.Pending, providers resolver.ProviderChooser, recs resolver.RecommendationChooser) error {
	if p.Provider != nil {
		m, err := providers.ChooseProvider(ctx, *p.Provider)
		if err != nil {
			return err
		}
		if m == nil {
			return resolver.ErrCancelled
		}
		p.Choose(m)
		return nil
	}
	mods, err := recs.ChooseRecommended(ctx, p.Recommendations, p.Suggestion)
	if err != nil {
		return err
	}
	p.Choose(mods...)
	return nil
}
