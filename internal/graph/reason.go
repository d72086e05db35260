package graph

import "fmt"

// ReasonKind classifies why a module entered a changeset.
type ReasonKind string

const (
	ReasonUserRequested     ReasonKind = "UserRequested"
	ReasonInstalled         ReasonKind = "Installed"
	ReasonDepends           ReasonKind = "Depends"
	ReasonRecommended       ReasonKind = "Recommended"
	ReasonSuggested         ReasonKind = "Suggested"
	ReasonChosenProvider    ReasonKind = "ChosenProvider"
	ReasonDependencyRemoved ReasonKind = "DependencyRemoved"
)

// Reason records why a module was selected. Parent is the depending,
// recommending or removed module, or the capability for ChosenProvider.
type Reason struct {
	Kind   ReasonKind
	Parent string
}

func UserRequested() Reason { return Reason{Kind: ReasonUserRequested} }

func Installed() Reason { return Reason{Kind: ReasonInstalled} }

func RequiredBy(parent string) Reason { return Reason{Kind: ReasonDepends, Parent: parent} }

func RecommendedBy(parent string) Reason { return Reason{Kind: ReasonRecommended, Parent: parent} }

func SuggestedBy(parent string) Reason { return Reason{Kind: ReasonSuggested, Parent: parent} }

func ChosenFor(capability string) Reason { return Reason{Kind: ReasonChosenProvider, Parent: capability} }

func DependsOnRemoved(parent string) Reason {
	return Reason{Kind: ReasonDependencyRemoved, Parent: parent}
}

// UserSelected reports whether the module was picked by the user rather than pulled in.
func (r Reason) UserSelected() bool {
	return r.Kind == ReasonUserRequested || r.Kind == ReasonChosenProvider
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonUserRequested:
		return "requested"
	case ReasonInstalled:
		return "installed"
	case ReasonDepends:
		return fmt.Sprintf("required by %s", r.Parent)
	case ReasonRecommended:
		return fmt.Sprintf("recommended by %s", r.Parent)
	case ReasonSuggested:
		return fmt.Sprintf("suggested by %s", r.Parent)
	case ReasonChosenProvider:
		return fmt.Sprintf("provides %s", r.Parent)
	case ReasonDependencyRemoved:
		return fmt.Sprintf("depends on %s", r.Parent)
	default:
		return string(r.Kind)
	}
}
