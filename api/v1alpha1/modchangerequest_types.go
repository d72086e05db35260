package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	ChangeRequestPhasePending        = "Pending"
	ChangeRequestPhaseAwaitingChoice = "AwaitingChoice"
	ChangeRequestPhaseResolved       = "Resolved"
	ChangeRequestPhaseApplied        = "Applied"
	ChangeRequestPhaseFailed         = "Failed"
)

// ModChangeRequest asks for modules to be installed, removed or updated on a GameInstance.
// The controller resolves it into a complete changeset in status.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=mcr
// +kubebuilder:printcolumn:name="Instance",type=string,JSONPath=`.spec.instanceRef.name`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ModChangeRequest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ModChangeRequestSpec   `json:"spec"`
	Status ModChangeRequestStatus `json:"status,omitempty"`
}

type ModChangeRequestSpec struct {
	InstanceRef ObjectRef `json:"instanceRef"`
	// +kubebuilder:validation:MinItems=1
	Changes []RequestedChange `json:"changes"`

	// ProviderChoices maps a virtual capability to the module identifier that should provide it.
	// +optional
	ProviderChoices map[string]string `json:"providerChoices,omitempty"`

	// +kubebuilder:validation:Enum=none;defaults;all
	// +optional
	Recommends AcceptMode `json:"recommends,omitempty"`
	// +kubebuilder:validation:Enum=none;defaults;all
	// +optional
	Suggests AcceptMode `json:"suggests,omitempty"`
	// WithAllSuggests offers suggestions of dependencies too, not only of requested modules.
	// +optional
	WithAllSuggests bool `json:"withAllSuggests,omitempty"`

	// Apply writes the resolved changeset into the GameInstance's installed set.
	// +optional
	Apply bool `json:"apply,omitempty"`
}

type RequestedChange struct {
	ID string `json:"id"`
	// +kubebuilder:validation:Enum=Install;Remove;Update
	Type ChangeType `json:"type"`
	// +optional
	Version string `json:"version,omitempty"`
}

type PlannedChange struct {
	ID      string     `json:"id"`
	Version string     `json:"version"`
	Type    ChangeType `json:"type"`
	Reason  string     `json:"reason"`
}

// PendingProviderChoice is a capability with several providers and no entry in spec.providerChoices.
type PendingProviderChoice struct {
	Capability string   `json:"capability"`
	Requester  string   `json:"requester,omitempty"`
	Candidates []string `json:"candidates"`
}

type ModChangeRequestStatus struct {
	ObservedGeneration int64  `json:"observedGeneration,omitempty"`
	Phase              string `json:"phase,omitempty"`
	Message            string `json:"message,omitempty"`
	// +optional
	Changes []PlannedChange `json:"changes,omitempty"`
	// Conflicts describes each conflicting module when resolution was inconsistent.
	// +optional
	Conflicts map[string]string `json:"conflicts,omitempty"`
	// +optional
	PendingChoice *PendingProviderChoice `json:"pendingChoice,omitempty"`
	Conditions    []metav1.Condition     `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
type ModChangeRequestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ModChangeRequest `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ModChangeRequest{}, &ModChangeRequestList{})
}
