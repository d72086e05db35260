package controllers

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
)

const (
	ChangeRequestConditionResolved = "Resolved"
	ChangeRequestConditionApplied  = "Applied"

	InstanceConditionChangeApplied = "ChangeApplied"
)

func setChangeRequestCondition(mcr *gamev1alpha1.ModChangeRequest, condition metav1.Condition) {
	if mcr == nil {
		return
	}
	condition.ObservedGeneration = mcr.Generation
	meta.SetStatusCondition(&mcr.Status.Conditions, condition)
}

func setInstanceCondition(instance *gamev1alpha1.GameInstance, condition metav1.Condition) {
	if instance == nil {
		return
	}
	condition.ObservedGeneration = instance.Generation
	meta.SetStatusCondition(&instance.Status.Conditions, condition)
}
