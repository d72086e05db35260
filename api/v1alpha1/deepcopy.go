package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifest) DeepCopyInto(out *ModuleManifest) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy copies the receiver, creating a new ModuleManifest.
func (in *ModuleManifest) DeepCopy() *ModuleManifest {
	if in == nil {
		return nil
	}
	out := new(ModuleManifest)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModuleManifest) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifestList) DeepCopyInto(out *ModuleManifestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ModuleManifest, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ModuleManifestList.
func (in *ModuleManifestList) DeepCopy() *ModuleManifestList {
	if in == nil {
		return nil
	}
	out := new(ModuleManifestList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModuleManifestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModuleManifestSpec) DeepCopyInto(out *ModuleManifestSpec) {
	*out = *in
	if in.Provides != nil {
		out.Provides = make([]string, len(in.Provides))
		copy(out.Provides, in.Provides)
	}
	out.Depends = copyRelationships(in.Depends)
	out.Recommends = copyRelationships(in.Recommends)
	out.Suggests = copyRelationships(in.Suggests)
	out.Supports = copyRelationships(in.Supports)
	out.Conflicts = copyRelationships(in.Conflicts)
}

func copyRelationships(in []RelationshipDescriptor) []RelationshipDescriptor {
	if in == nil {
		return nil
	}
	out := make([]RelationshipDescriptor, len(in))
	copy(out, in)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *GameInstance) DeepCopyInto(out *GameInstance) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new GameInstance.
func (in *GameInstance) DeepCopy() *GameInstance {
	if in == nil {
		return nil
	}
	out := new(GameInstance)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *GameInstance) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *GameInstanceList) DeepCopyInto(out *GameInstanceList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]GameInstance, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new GameInstanceList.
func (in *GameInstanceList) DeepCopy() *GameInstanceList {
	if in == nil {
		return nil
	}
	out := new(GameInstanceList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *GameInstanceList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *GameInstanceSpec) DeepCopyInto(out *GameInstanceSpec) {
	*out = *in
	if in.CompatibleVersions != nil {
		out.CompatibleVersions = make([]string, len(in.CompatibleVersions))
		copy(out.CompatibleVersions, in.CompatibleVersions)
	}
	if in.Installed != nil {
		out.Installed = make([]ModuleRef, len(in.Installed))
		copy(out.Installed, in.Installed)
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *GameInstanceStatus) DeepCopyInto(out *GameInstanceStatus) {
	*out = *in
	out.Conditions = copyConditions(in.Conditions)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModChangeRequest) DeepCopyInto(out *ModChangeRequest) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new ModChangeRequest.
func (in *ModChangeRequest) DeepCopy() *ModChangeRequest {
	if in == nil {
		return nil
	}
	out := new(ModChangeRequest)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModChangeRequest) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModChangeRequestList) DeepCopyInto(out *ModChangeRequestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ModChangeRequest, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ModChangeRequestList.
func (in *ModChangeRequestList) DeepCopy() *ModChangeRequestList {
	if in == nil {
		return nil
	}
	out := new(ModChangeRequestList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ModChangeRequestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModChangeRequestSpec) DeepCopyInto(out *ModChangeRequestSpec) {
	*out = *in
	if in.Changes != nil {
		out.Changes = make([]RequestedChange, len(in.Changes))
		copy(out.Changes, in.Changes)
	}
	out.ProviderChoices = copyStringMap(in.ProviderChoices)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModChangeRequestStatus) DeepCopyInto(out *ModChangeRequestStatus) {
	*out = *in
	if in.Changes != nil {
		out.Changes = make([]PlannedChange, len(in.Changes))
		copy(out.Changes, in.Changes)
	}
	out.Conflicts = copyStringMap(in.Conflicts)
	if in.PendingChoice != nil {
		out.PendingChoice = new(PendingProviderChoice)
		in.PendingChoice.DeepCopyInto(out.PendingChoice)
	}
	out.Conditions = copyConditions(in.Conditions)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PendingProviderChoice) DeepCopyInto(out *PendingProviderChoice) {
	*out = *in
	if in.Candidates != nil {
		out.Candidates = make([]string, len(in.Candidates))
		copy(out.Candidates, in.Candidates)
	}
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyConditions(in []metav1.Condition) []metav1.Condition {
	if in == nil {
		return nil
	}
	out := make([]metav1.Condition, len(in))
	for i := range in {
		in[i].DeepCopyInto(&out[i])
	}
	return out
}
