package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ModuleManifest is one released version of a mod in the catalog.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=mm
// +kubebuilder:printcolumn:name="Module",type=string,JSONPath=`.spec.module.id`
// +kubebuilder:printcolumn:name="Version",type=string,JSONPath=`.spec.module.version`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ModuleManifest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ModuleManifestSpec   `json:"spec"`
	Status ModuleManifestStatus `json:"status,omitempty"`
}

type ModuleManifestSpec struct {
	Module ModuleRef `json:"module"`
	// +optional
	DisplayName string `json:"displayName,omitempty"`
	// +optional
	Abstract string `json:"abstract,omitempty"`
	// +kubebuilder:validation:Enum=package;metapackage
	// +optional
	Kind string `json:"kind,omitempty"`

	// Provides lists virtual capability names this module satisfies.
	// +optional
	Provides []string `json:"provides,omitempty"`

	// +optional
	Depends []RelationshipDescriptor `json:"depends,omitempty"`
	// +optional
	Recommends []RelationshipDescriptor `json:"recommends,omitempty"`
	// +optional
	Suggests []RelationshipDescriptor `json:"suggests,omitempty"`
	// +optional
	Supports []RelationshipDescriptor `json:"supports,omitempty"`
	// +optional
	Conflicts []RelationshipDescriptor `json:"conflicts,omitempty"`

	// GameVersion bounds the game versions this module runs on.
	// +optional
	GameVersion GameVersionRange `json:"gameVersion,omitempty"`
}

type GameVersionRange struct {
	// +optional
	Min string `json:"min,omitempty"`
	// +optional
	Max string `json:"max,omitempty"`
}

type ModuleManifestStatus struct {
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
type ModuleManifestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ModuleManifest `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ModuleManifest{}, &ModuleManifestList{})
}
