package controllers

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
	"github.com/anvil-platform/forge/internal/registry"
)

const (
	controllerModuleManifest = "ModuleManifest"

	ManifestPhaseValid   = "Valid"
	ManifestPhaseInvalid = "Invalid"
)

// ModuleManifestReconciler validates catalog entries and reports the result in status.
//
// RBAC:
// +kubebuilder:rbac:groups=game.platform,resources=modulemanifests,verbs=get;list;watch
// +kubebuilder:rbac:groups=game.platform,resources=modulemanifests/status,verbs=get;update;patch
type ModuleManifestReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
}

func (r *ModuleManifestReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	forgeControllerReconcileTotal.WithLabelValues(controllerModuleManifest).Inc()
	logger := log.FromContext(ctx).WithValues("controller", controllerModuleManifest, "moduleManifest", req.Name)

	var mm gamev1alpha1.ModuleManifest
	if err := r.Get(ctx, req.NamespacedName, &mm); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	phase, message := ManifestPhaseValid, ""
	m, err := registry.ModuleFromManifest(&mm)
	if err != nil {
		phase, message = ManifestPhaseInvalid, err.Error()
	} else {
		message = m.String()
	}
	if mm.Status.Phase == phase && mm.Status.Message == message {
		return ctrl.Result{}, nil
	}

	before := mm.DeepCopy()
	mm.Status.Phase = phase
	mm.Status.Message = message
	if err := r.Status().Patch(ctx, &mm, client.MergeFrom(before)); err != nil {
		logger.Error(err, "failed to patch modulemanifest status")
		forgeControllerReconcileErrorTotal.WithLabelValues(controllerModuleManifest).Inc()
		return ctrl.Result{}, err
	}
	if phase == ManifestPhaseInvalid {
		logger.Info("invalid module metadata", "error", message)
		if r.Recorder != nil {
			r.Recorder.Eventf(&mm, corev1.EventTypeWarning, "BadMetadata", "%s", message)
		}
	}

	var all gamev1alpha1.ModuleManifestList
	if err := r.List(ctx, &all); err == nil {
		invalid := 0
		for i := range all.Items {
			if all.Items[i].Status.Phase == ManifestPhaseInvalid {
				invalid++
			}
		}
		forgeManifestsInvalid.Set(float64(invalid))
	}
	return ctrl.Result{}, nil
}

func (r *ModuleManifestReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gamev1alpha1.ModuleManifest{}).
		Complete(r)
}
