package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/anvil-platform/forge/internal/module"
)

var (
	// ErrModuleNotFound indicates a required identifier does not exist in the compatible catalog.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDependencyNotSatisfied indicates the target exists but no version satisfies the constraint.
	ErrDependencyNotSatisfied = errors.New("dependency not satisfied")
	// ErrTooManyProviders indicates a virtual capability with several candidate providers.
	ErrTooManyProviders = errors.New("too many modules provide capability")
	// ErrInconsistent indicates the resolved set contains a conflicting or unsatisfied relationship.
	ErrInconsistent = errors.New("inconsistent module set")
	// ErrBadMetadata indicates malformed relationship metadata on a catalog module.
	ErrBadMetadata = module.ErrBadMetadata
	// ErrCancelled is returned when the caller aborts a resolution. It is not a failure.
	ErrCancelled = errors.New("resolution cancelled")
)

// BadMetadataError is raised before any resolution work starts.
type BadMetadataError = module.BadMetadataError

type ModuleNotFoundError struct {
	Identifier string
	Version    string
	// Requester is the module whose relationship named Identifier. Empty for user requests.
	Requester string
}

func (e *ModuleNotFoundError) Error() string {
	name := e.Identifier
	if e.Version != "" {
		name = fmt.Sprintf("%s %s", e.Identifier, e.Version)
	}
	if e.Requester == "" {
		return fmt.Sprintf("module not found: %s", name)
	}
	return fmt.Sprintf("module not found: %s (required by %s)", name, e.Requester)
}

func (e *ModuleNotFoundError) Unwrap() error {
	return ErrModuleNotFound
}

// DependencyNotSatisfiedError reports a known module with no acceptable version.
// Parent is nil when the module was requested directly.
type DependencyNotSatisfiedError struct {
	Parent       *module.Module
	Relationship module.Relationship
}

func (e *DependencyNotSatisfiedError) Error() string {
	if e.Parent == nil {
		return fmt.Sprintf("no compatible version of %s is available", e.Relationship)
	}
	return fmt.Sprintf("%s depends on %s, which no compatible version satisfies", e.Parent, e.Relationship)
}

func (e *DependencyNotSatisfiedError) Unwrap() error {
	return ErrDependencyNotSatisfied
}

type TooManyProvidersError struct {
	Requested  string
	Requester  *module.Module
	Candidates []*module.Module
}

func (e *TooManyProvidersError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		ids = append(ids, c.Identifier)
	}
	return fmt.Sprintf("too many modules provide %s: %s", e.Requested, strings.Join(ids, ", "))
}

func (e *TooManyProvidersError) Unwrap() error {
	return ErrTooManyProviders
}

// InconsistentError carries every problem found in a module set. Conflicts is
// filled in by the changeset assembler from the conflict detector.
type InconsistentError struct {
	Inconsistencies []string
	Conflicts       map[string]string
}

func (e *InconsistentError) Error() string {
	if len(e.Inconsistencies) == 0 {
		return ErrInconsistent.Error()
	}
	return strings.Join(e.Inconsistencies, "; ")
}

func (e *InconsistentError) Unwrap() error {
	return ErrInconsistent
}

// Pretty renders the problems one per line, followed by the per-module conflicts if known.
func (e *InconsistentError) Pretty() string {
	var b strings.Builder
	b.WriteString("The following inconsistencies were found:\n")
	for _, msg := range e.Inconsistencies {
		fmt.Fprintf(&b, " * %s\n", msg)
	}
	if len(e.Conflicts) > 0 {
		ids := make([]string, 0, len(e.Conflicts))
		for id := range e.Conflicts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, " * %s %s\n", id, e.Conflicts[id])
		}
	}
	return b.String()
}

func inconsistent(msgs ...string) *InconsistentError {
	return &InconsistentError{Inconsistencies: msgs}
}

func cancelled(err error) error {
	if errors.Is(err, ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// IsCancelled reports whether err represents a cancelled resolution rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// KindOf classifies err into a short label suitable for metrics and status reasons.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case IsCancelled(err):
		return "cancelled"
	case errors.Is(err, ErrModuleNotFound):
		return "module_not_found"
	case errors.Is(err, ErrDependencyNotSatisfied):
		return "dependency_not_satisfied"
	case errors.Is(err, ErrTooManyProviders):
		return "too_many_providers"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	case errors.Is(err, ErrBadMetadata):
		return "bad_metadata"
	default:
		return "error"
	}
}
