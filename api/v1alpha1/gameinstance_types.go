package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GameInstance is one game installation and the modules installed into it.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=gi
// +kubebuilder:printcolumn:name="Game Version",type=string,JSONPath=`.spec.gameVersion`
// +kubebuilder:printcolumn:name="Modules",type=integer,JSONPath=`.status.installedCount`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type GameInstance struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GameInstanceSpec   `json:"spec"`
	Status GameInstanceStatus `json:"status,omitempty"`
}

type GameInstanceSpec struct {
	GameVersion string `json:"gameVersion"`
	// CompatibleVersions are additional game versions whose modules are accepted.
	// +optional
	CompatibleVersions []string `json:"compatibleVersions,omitempty"`
	// Installed is the set of modules currently installed.
	// +optional
	Installed []ModuleRef `json:"installed,omitempty"`
}

type GameInstanceStatus struct {
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	InstalledCount     int32 `json:"installedCount,omitempty"`
	// LastChangeRequest is the most recent ModChangeRequest applied to this instance.
	// +optional
	LastChangeRequest string             `json:"lastChangeRequest,omitempty"`
	Conditions        []metav1.Condition `json:"conditions,omitempty"`
}

// GameVersions returns the primary game version followed by the compatible ones.
func (s GameInstanceSpec) GameVersions() []string {
	out := make([]string, 0, len(s.CompatibleVersions)+1)
	if s.GameVersion != "" {
		out = append(out, s.GameVersion)
	}
	return append(out, s.CompatibleVersions...)
}

// +kubebuilder:object:root=true
type GameInstanceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []GameInstance `json:"items"`
}

func init() {
	SchemeBuilder.Register(&GameInstance{}, &GameInstanceList{})
}
