package resolver

import (
	"context"
	"sync"

	"github.com/anvil-platform/forge/internal/module"
)

// ProviderChooserFunc adapts a function to ProviderChooser.
type ProviderChooserFunc func(ctx context.Context, req ProviderRequest) (*module.Module, error)

func (f ProviderChooserFunc) ChooseProvider(ctx context.Context, req ProviderRequest) (*module.Module, error) {
	return f(ctx, req)
}

// ProviderPolicy answers provider choices from a fixed capability to identifier map.
// A capability without an entry fails with TooManyProvidersError.
type ProviderPolicy map[string]string

func (p ProviderPolicy) ChooseProvider(_ context.Context, req ProviderRequest) (*module.Module, error) {
	if id, ok := p[req.Capability]; ok {
		if c := findCandidate(req.Candidates, id); c != nil {
			return c, nil
		}
	}
	return nil, &TooManyProvidersError{Requested: req.Capability, Requester: req.Depender, Candidates: req.Candidates}
}

// AsyncChooser publishes every choice as a Pending value on a channel and
// waits for an external actor to answer it. It implements both ProviderChooser
// and RecommendationChooser.
type AsyncChooser struct {
	requests chan *Pending
}

func NewAsyncChooser() *AsyncChooser {
	return &AsyncChooser{requests: make(chan *Pending)}
}

// Requests yields pending choices. Each must be answered with Choose or Cancel.
func (a *AsyncChooser) Requests() <-chan *Pending {
	return a.requests
}

// Pending is an unanswered choice. Exactly one of Provider or Recommendations is set.
type Pending struct {
	Provider        *ProviderRequest
	Recommendations []Recommendation
	Suggestion      bool

	once  sync.Once
	reply chan pendingReply
}

type pendingReply struct {
	modules   []*module.Module
	cancelled bool
}

// Choose answers the pending choice. Only the first answer counts.
func (p *Pending) Choose(mods ...*module.Module) {
	p.once.Do(func() {
		p.reply <- pendingReply{modules: mods}
	})
}

// Cancel aborts the resolution waiting on p.
func (p *Pending) Cancel() {
	p.once.Do(func() {
		p.reply <- pendingReply{cancelled: true}
	})
}

func (a *AsyncChooser) ask(ctx context.Context, p *Pending) (pendingReply, error) {
	p.reply = make(chan pendingReply, 1)
	select {
	case a.requests <- p:
	case <-ctx.Done():
		return pendingReply{}, cancelled(ctx.Err())
	}
	select {
	case rep := <-p.reply:
		if rep.cancelled {
			return rep, ErrCancelled
		}
		return rep, nil
	case <-ctx.Done():
		return pendingReply{}, cancelled(ctx.Err())
	}
}

func (a *AsyncChooser) ChooseProvider(ctx context.Context, req ProviderRequest) (*module.Module, error) {
	rep, err := a.ask(ctx, &Pending{Provider: &req})
	if err != nil {
		return nil, err
	}
	if len(rep.modules) == 0 {
		return nil, ErrCancelled
	}
	return rep.modules[0], nil
}

func (a *AsyncChooser) ChooseRecommended(ctx context.Context, recs []Recommendation, suggestion bool) ([]*module.Module, error) {
	rep, err := a.ask(ctx, &Pending{Recommendations: recs, Suggestion: suggestion})
	if err != nil {
		return nil, err
	}
	return rep.modules, nil
}
