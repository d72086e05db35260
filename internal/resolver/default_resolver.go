package resolver

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/module"
)

// DefaultMaxProviderChoices bounds the provider choices made in a single resolution.
const DefaultMaxProviderChoices = 32

// State is a stage of the resolution driver.
type State string

const (
	StateResolving      State = "Resolving"
	StateAwaitingChoice State = "AwaitingChoice"
	StateDone           State = "Done"
	StateFailed         State = "Failed"
	StateCancelled      State = "Cancelled"
)

// DefaultResolver drives the walker to completion, handing every ambiguous
// capability to Chooser and retrying with the chosen provider fixed.
type DefaultResolver struct {
	Walker  *Walker
	Chooser ProviderChooser
	// MaxProviderChoices defaults to DefaultMaxProviderChoices when zero.
	MaxProviderChoices int
	// OnTransition, if set, observes every state change.
	OnTransition func(from, to State)
	Log          logr.Logger
}

func NewDefault(reg Registry, chooser ProviderChooser, log logr.Logger) *DefaultResolver {
	return &DefaultResolver{
		Walker:  NewWalker(reg, log),
		Chooser: chooser,
		Log:     log,
	}
}

func (r *DefaultResolver) maxChoices() int {
	if r.MaxProviderChoices > 0 {
		return r.MaxProviderChoices
	}
	return DefaultMaxProviderChoices
}

func (r *DefaultResolver) Resolve(ctx context.Context, req Request) (*ModList, error) {
	req.Install = append([]*module.Module(nil), req.Install...)
	chosen := make(map[string]string, len(req.Chosen))
	for k, v := range req.Chosen {
		chosen[k] = v
	}
	req.Chosen = chosen

	var (
		state   = StateResolving
		pending *ProviderRequest
		result  *ModList
		failure error
		choices int
	)
	transition := func(to State) {
		if r.OnTransition != nil {
			r.OnTransition(state, to)
		}
		state = to
	}

	for {
		switch state {
		case StateResolving:
			if err := ctx.Err(); err != nil {
				failure = cancelled(err)
				transition(StateCancelled)
				continue
			}
			step, err := r.Walker.Walk(ctx, req)
			switch {
			case err != nil && IsCancelled(err):
				failure = err
				transition(StateCancelled)
			case err != nil:
				failure = err
				transition(StateFailed)
			case step.Resolved():
				result = step.List
				transition(StateDone)
			default:
				pending = step.Choice
				transition(StateAwaitingChoice)
			}

		case StateAwaitingChoice:
			choices++
			if choices > r.maxChoices() {
				failure = inconsistent(fmt.Sprintf(
					"gave up after %d provider choices; %s is still ambiguous", r.maxChoices(), pending.Capability,
				))
				transition(StateFailed)
				continue
			}
			if r.Chooser == nil {
				failure = &TooManyProvidersError{Requested: pending.Capability, Requester: pending.Depender, Candidates: pending.Candidates}
				transition(StateFailed)
				continue
			}
			r.Log.V(1).Info("awaiting provider choice", "capability", pending.Capability, "candidates", len(pending.Candidates))
			picked, err := r.Chooser.ChooseProvider(ctx, *pending)
			if err != nil {
				failure = err
				if IsCancelled(err) {
					failure = cancelled(err)
					transition(StateCancelled)
				} else {
					transition(StateFailed)
				}
				continue
			}
			if picked == nil {
				failure = ErrCancelled
				transition(StateCancelled)
				continue
			}
			candidate := findCandidate(pending.Candidates, picked.Identifier)
			if candidate == nil {
				failure = fmt.Errorf("resolver: %s is not a provider of %s", picked.Identifier, pending.Capability)
				transition(StateFailed)
				continue
			}
			req.Install = append(req.Install, candidate)
			req.Chosen[candidate.Identifier] = pending.Capability
			pending = nil
			transition(StateResolving)

		case StateDone:
			return result, nil

		default:
			r.Log.V(1).Info("resolution stopped", "state", string(state), "error", failure.Error())
			return nil, failure
		}
	}
}

func findCandidate(candidates []*module.Module, identifier string) *module.Module {
	for _, c := range candidates {
		if c.Identifier == identifier {
			return c
		}
	}
	return nil
}
