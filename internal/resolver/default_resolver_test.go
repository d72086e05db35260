package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/registry"
)

type transition struct {
	from, to State
}

func recordTransitions(r *DefaultResolver) *[]transition {
	var seen []transition
	r.OnTransition = func(from, to State) {
		seen = append(seen, transition{from, to})
	}
	return &seen
}

func TestDefaultResolver_ChoosesProviderAndFinishes(t *testing.T) {
	reg := engineCatalog()
	var asked []string
	chooser := ProviderChooserFunc(func(_ context.Context, req ProviderRequest) (*module.Module, error) {
		asked = append(asked, req.Capability)
		return req.Candidates[1], nil
	})
	r := NewDefault(reg, chooser, logr.Discard())
	seen := recordTransitions(r)

	list, err := r.Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, ids(list.Modules()))
	require.Equal(t, []string{"Engine"}, asked)

	reason, _ := list.Reason("C")
	require.Equal(t, graph.ChosenFor("Engine"), reason)
	require.Equal(t, []transition{
		{StateResolving, StateAwaitingChoice},
		{StateAwaitingChoice, StateResolving},
		{StateResolving, StateDone},
	}, *seen)
}

func TestDefaultResolver_DoesNotMutateRequest(t *testing.T) {
	reg := engineCatalog()
	req := Request{Install: []*module.Module{latest(reg, "A")}}
	r := NewDefault(reg, ProviderPolicy{"Engine": "B"}, logr.Discard())

	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, req.Install, 1)
	require.Nil(t, req.Chosen)
}

func TestDefaultResolver_NilPickCancels(t *testing.T) {
	reg := engineCatalog()
	chooser := ProviderChooserFunc(func(context.Context, ProviderRequest) (*module.Module, error) {
		return nil, nil
	})
	r := NewDefault(reg, chooser, logr.Discard())
	seen := recordTransitions(r)

	_, err := r.Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, StateCancelled, (*seen)[len(*seen)-1].to)
}

func TestDefaultResolver_WithoutChooserFails(t *testing.T) {
	reg := engineCatalog()
	r := NewDefault(reg, nil, logr.Discard())

	_, err := r.Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	var tooMany *TooManyProvidersError
	require.ErrorAs(t, err, &tooMany)
	require.Equal(t, []string{"B", "C"}, ids(tooMany.Candidates))
}

func TestDefaultResolver_RejectsUnknownPick(t *testing.T) {
	reg := engineCatalog()
	chooser := ProviderChooserFunc(func(context.Context, ProviderRequest) (*module.Module, error) {
		return mod("Z", "1.0.0"), nil
	})

	_, err := NewDefault(reg, chooser, logr.Discard()).Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	require.ErrorContains(t, err, "Z is not a provider of Engine")
	require.Equal(t, "error", KindOf(err))
}

func TestDefaultResolver_ChoiceBound(t *testing.T) {
	reg := registry.MustNew([]*module.Module{
		mod("A", "1.0.0", depends("Engine", "Render")),
		mod("B", "1.0.0", provides("Engine")),
		mod("C", "1.0.0", provides("Engine")),
		mod("D", "1.0.0", provides("Render")),
		mod("E", "1.0.0", provides("Render")),
	}, nil)
	first := ProviderChooserFunc(func(_ context.Context, req ProviderRequest) (*module.Module, error) {
		return req.Candidates[0], nil
	})
	req := Request{Install: []*module.Module{latest(reg, "A")}}

	r := NewDefault(reg, first, logr.Discard())
	list, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "D"}, ids(list.Modules()))

	r.MaxProviderChoices = 1
	_, err = r.Resolve(context.Background(), req)
	var inc *InconsistentError
	require.ErrorAs(t, err, &inc)
	require.Contains(t, inc.Error(), "Render is still ambiguous")
}

func TestDefaultResolver_PolicyWithoutEntry(t *testing.T) {
	reg := engineCatalog()

	_, err := NewDefault(reg, ProviderPolicy{"Other": "B"}, logr.Discard()).
		Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	require.ErrorIs(t, err, ErrTooManyProviders)
}

func TestDefaultResolver_CancelledWhileAwaiting(t *testing.T) {
	reg := engineCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	chooser := ProviderChooserFunc(func(ctx context.Context, _ ProviderRequest) (*module.Module, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := NewDefault(reg, chooser, logr.Discard()).Resolve(ctx, Request{Install: []*module.Module{latest(reg, "A")}})
	require.ErrorIs(t, err, ErrCancelled)
}

func TestAsyncChooser_AnswersFromAnotherGoroutine(t *testing.T) {
	reg := engineCatalog()
	async := NewAsyncChooser()
	r := NewDefault(reg, async, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var list *ModList
	g.Go(func() error {
		defer cancel()
		var err error
		list, err = r.Resolve(ctx, Request{Install: []*module.Module{latest(reg, "A")}})
		return err
	})
	g.Go(func() error {
		for {
			select {
			case p := <-async.Requests():
				if p.Provider == nil {
					p.Cancel()
					return errors.New("expected a provider choice")
				}
				p.Choose(p.Provider.Candidates[0])
			case <-ctx.Done():
				return nil
			}
		}
	})

	require.NoError(t, g.Wait())
	require.Equal(t, []string{"A", "B"}, ids(list.Modules()))
}

func TestAsyncChooser_Cancel(t *testing.T) {
	reg := engineCatalog()
	async := NewAsyncChooser()
	go func() {
		p := <-async.Requests()
		p.Cancel()
		p.Choose(latest(reg, "B"))
	}()

	_, err := NewDefault(reg, async, logr.Discard()).Resolve(context.Background(), Request{Install: []*module.Module{latest(reg, "A")}})
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, "cancelled", KindOf(err))
}
