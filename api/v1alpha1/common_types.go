package v1alpha1

type ObjectRef struct {
	Name string `json:"name"`
}

// RelationshipDescriptor names a module or capability, optionally with a semver constraint.
type RelationshipDescriptor struct {
	Name string `json:"name"`
	// Version is a constraint such as ">=1.2.0 <2.0.0". Empty matches any version.
	// +optional
	Version string `json:"version,omitempty"`
}

// ModuleRef pins one module version.
type ModuleRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type ChangeType string

const (
	ChangeInstall ChangeType = "Install"
	ChangeRemove  ChangeType = "Remove"
	ChangeUpdate  ChangeType = "Update"
)

// AcceptMode selects which recommended or suggested modules are accepted automatically.
type AcceptMode string

const (
	AcceptNone     AcceptMode = "none"
	AcceptDefaults AcceptMode = "defaults"
	AcceptAll      AcceptMode = "all"
)
