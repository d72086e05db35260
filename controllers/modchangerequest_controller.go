package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/registry"
	"github.com/anvil-platform/forge/internal/resolver"
	"github.com/anvil-platform/forge/internal/semver"
)

const (
	controllerModChangeRequest = "ModChangeRequest"

	indexInstanceRef = ".spec.instanceRef.name"
)

// ModChangeRequestReconciler resolves ModChangeRequests against the namespace's
// ModuleManifest catalog and the referenced GameInstance.
//
// RBAC:
// +kubebuilder:rbac:groups=game.platform,resources=modchangerequests,verbs=get;list;watch
// +kubebuilder:rbac:groups=game.platform,resources=modchangerequests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=game.platform,resources=modulemanifests,verbs=get;list;watch
// +kubebuilder:rbac:groups=game.platform,resources=gameinstances,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=game.platform,resources=gameinstances/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type ModChangeRequestReconciler struct {
	client.Client
	Scheme    *runtime.Scheme
	Recorder  record.EventRecorder
	Snapshots *registry.SnapshotCache

	// MaxProviderChoices bounds provider choices per resolution; zero uses the resolver default.
	MaxProviderChoices int
}

func (r *ModChangeRequestReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	forgeControllerReconcileTotal.WithLabelValues(controllerModChangeRequest).Inc()

	logger := log.FromContext(ctx).WithValues(
		"controller", controllerModChangeRequest,
		"namespace", req.Namespace,
		"changeRequest", req.Name,
	)

	var mcr gamev1alpha1.ModChangeRequest
	if err := r.Get(ctx, req.NamespacedName, &mcr); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return ctrl.Result{}, nil
		}
		forgeControllerReconcileErrorTotal.WithLabelValues(controllerModChangeRequest).Inc()
		return ctrl.Result{}, err
	}
	if mcr.Status.Phase == gamev1alpha1.ChangeRequestPhaseApplied && mcr.Status.ObservedGeneration == mcr.Generation {
		logger.V(1).Info("change request already applied")
		return ctrl.Result{}, nil
	}
	logger = logger.WithValues("instance", mcr.Spec.InstanceRef.Name)
	prevPhase := mcr.Status.Phase

	// 1) Load GameInstance
	var instance gamev1alpha1.GameInstance
	if err := r.Get(ctx, types.NamespacedName{Namespace: req.Namespace, Name: mcr.Spec.InstanceRef.Name}, &instance); err != nil {
		if apierrors.IsNotFound(err) {
			msg := fmt.Sprintf("GameInstance %q not found", mcr.Spec.InstanceRef.Name)
			r.fail(ctx, &mcr, prevPhase, "GameInstanceNotFound", msg, nil)
			logger.Info("game instance not found; marking request failed")
			return ctrl.Result{}, nil
		}
		logger.Error(err, "failed to load game instance")
		forgeControllerReconcileErrorTotal.WithLabelValues(controllerModChangeRequest).Inc()
		return ctrl.Result{}, err
	}

	crit, err := semver.ParseCriteria(instance.Spec.GameVersions()...)
	if err != nil {
		r.fail(ctx, &mcr, prevPhase, "InvalidGameVersion", err.Error(), nil)
		return ctrl.Result{}, nil
	}

	// 2) Build the catalog snapshot
	var manifests gamev1alpha1.ModuleManifestList
	if err := r.List(ctx, &manifests, client.InNamespace(req.Namespace)); err != nil {
		logger.Error(err, "failed to list modulemanifests")
		forgeControllerReconcileErrorTotal.WithLabelValues(controllerModChangeRequest).Inc()
		return ctrl.Result{}, err
	}
	reg, err := r.snapshot(req.Namespace, manifests.Items, instance.Spec.Installed)
	if err != nil {
		reason := "InvalidCatalog"
		if errors.Is(err, registry.ErrUnknownInstalled) {
			reason = "UnknownInstalledModule"
		}
		r.fail(ctx, &mcr, prevPhase, reason, err.Error(), nil)
		logger.Info("catalog snapshot rejected", "error", err.Error())
		return ctrl.Result{}, nil
	}

	// 3) Resolve
	started := time.Now()
	cs, err := r.assembler(ctx, &mcr, reg, crit).Assemble(ctx, intentsOf(mcr.Spec.Changes))
	forgeResolutionDuration.Observe(time.Since(started).Seconds())
	forgeResolutionsTotal.WithLabelValues(resolver.KindOf(err)).Inc()

	if err != nil {
		return r.handleResolveError(ctx, &mcr, prevPhase, err)
	}

	changes := plannedChanges(cs)
	forgeChangesetSize.Set(float64(len(changes)))
	logger.Info("resolved changeset", "changes", len(changes), "modules", len(manifests.Items))

	// 4) Apply to the instance if requested
	phase := gamev1alpha1.ChangeRequestPhaseResolved
	message := summarizeChanges(changes)
	if mcr.Spec.Apply {
		if err := r.applyToInstance(ctx, &instance, &mcr, changes); err != nil {
			logger.Error(err, "failed to apply changeset to game instance")
			forgeControllerReconcileErrorTotal.WithLabelValues(controllerModChangeRequest).Inc()
			return ctrl.Result{}, err
		}
		phase = gamev1alpha1.ChangeRequestPhaseApplied
	}

	if perr := r.patchChangeRequestStatus(ctx, &mcr, phase, message, func(st *gamev1alpha1.ModChangeRequestStatus) {
		st.Changes = changes
		st.Conflicts = nil
		st.PendingChoice = nil
	},
		metav1.Condition{
			Type:    ChangeRequestConditionResolved,
			Status:  metav1.ConditionTrue,
			Reason:  "Resolved",
			Message: message,
		},
		appliedCondition(mcr.Spec.Apply),
	); perr != nil {
		logger.Error(perr, "failed to patch change request status")
		return ctrl.Result{}, perr
	}
	if prevPhase != phase {
		r.recordEventf(&mcr, corev1.EventTypeNormal, phase, "%s", message)
	}
	return ctrl.Result{}, nil
}

func (r *ModChangeRequestReconciler) snapshot(namespace string, manifests []gamev1alpha1.ModuleManifest, installed []gamev1alpha1.ModuleRef) (*registry.Memory, error) {
	if r.Snapshots == nil {
		return registry.FromManifests(manifests, installed)
	}
	reg, hit, err := r.Snapshots.FromManifests(namespace, manifests, installed)
	if err == nil {
		forgeSnapshotCacheTotal.WithLabelValues(cacheResult(hit)).Inc()
	}
	return reg, err
}

func (r *ModChangeRequestReconciler) assembler(ctx context.Context, mcr *gamev1alpha1.ModChangeRequest, reg resolver.Registry, crit semver.Criteria) *resolver.Assembler {
	spec := mcr.Spec
	recommends := acceptMode(spec.Recommends, resolver.AcceptDefaults)
	suggests := acceptMode(spec.Suggests, resolver.AcceptNone)

	a := resolver.NewAssembler(reg, crit, log.FromContext(ctx).WithName("resolver"))
	a.Options = resolver.Options{
		WithRecommends:  recommends != resolver.AcceptNone,
		WithSuggests:    suggests != resolver.AcceptNone,
		WithAllSuggests: spec.WithAllSuggests && suggests != resolver.AcceptNone,
	}
	a.Providers = resolver.ProviderPolicy(spec.ProviderChoices)
	a.Recommendations = resolver.RecommendationPolicy{Recommends: recommends, Suggests: suggests}
	a.MaxProviderChoices = r.MaxProviderChoices
	a.OnTransition = func(from, to resolver.State) {
		forgeResolverTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
		if to == resolver.StateAwaitingChoice {
			forgeProviderChoicesTotal.Inc()
		}
	}
	return a
}

func (r *ModChangeRequestReconciler) handleResolveError(ctx context.Context, mcr *gamev1alpha1.ModChangeRequest, prevPhase string, err error) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var tooMany *resolver.TooManyProvidersError
	if errors.As(err, &tooMany) {
		pending := &gamev1alpha1.PendingProviderChoice{
			Capability: tooMany.Requested,
			Candidates: identifiers(tooMany.Candidates),
		}
		if tooMany.Requester != nil {
			pending.Requester = tooMany.Requester.Identifier
		}
		msg := fmt.Sprintf("Choose a provider for %s in spec.providerChoices: %s", pending.Capability, strings.Join(pending.Candidates, ", "))
		if perr := r.patchChangeRequestStatus(ctx, mcr, gamev1alpha1.ChangeRequestPhaseAwaitingChoice, msg, func(st *gamev1alpha1.ModChangeRequestStatus) {
			st.Changes = nil
			st.Conflicts = nil
			st.PendingChoice = pending
		},
			metav1.Condition{
				Type:    ChangeRequestConditionResolved,
				Status:  metav1.ConditionFalse,
				Reason:  "ProviderChoiceRequired",
				Message: msg,
			},
		); perr != nil {
			logger.Error(perr, "failed to patch change request status")
			return ctrl.Result{}, perr
		}
		logger.Info("provider choice required", "capability", pending.Capability, "candidates", pending.Candidates)
		if prevPhase != gamev1alpha1.ChangeRequestPhaseAwaitingChoice {
			r.recordEventf(mcr, corev1.EventTypeNormal, "ProviderChoiceRequired", "%s", msg)
		}
		return ctrl.Result{}, nil
	}

	if resolver.IsCancelled(err) {
		return ctrl.Result{}, err
	}

	var conflicts map[string]string
	var inc *resolver.InconsistentError
	if errors.As(err, &inc) {
		conflicts = inc.Conflicts
	}
	r.fail(ctx, mcr, prevPhase, reasonForKind(resolver.KindOf(err)), err.Error(), conflicts)
	logger.Info("resolution failed; marking request failed", "kind", resolver.KindOf(err))
	return ctrl.Result{}, nil
}

// fail records a terminal domain failure. Status patch errors are logged, not returned.
func (r *ModChangeRequestReconciler) fail(ctx context.Context, mcr *gamev1alpha1.ModChangeRequest, prevPhase, reason, message string, conflicts map[string]string) {
	if perr := r.patchChangeRequestStatus(ctx, mcr, gamev1alpha1.ChangeRequestPhaseFailed, message, func(st *gamev1alpha1.ModChangeRequestStatus) {
		st.Changes = nil
		st.Conflicts = conflicts
		st.PendingChoice = nil
	},
		metav1.Condition{
			Type:    ChangeRequestConditionResolved,
			Status:  metav1.ConditionFalse,
			Reason:  reason,
			Message: message,
		},
	); perr != nil {
		log.FromContext(ctx).Error(perr, "failed to patch change request status")
	}
	if prevPhase != gamev1alpha1.ChangeRequestPhaseFailed {
		r.recordEventf(mcr, corev1.EventTypeWarning, reason, "%s", message)
	}
}

func (r *ModChangeRequestReconciler) applyToInstance(ctx context.Context, instance *gamev1alpha1.GameInstance, mcr *gamev1alpha1.ModChangeRequest, changes []gamev1alpha1.PlannedChange) error {
	before := instance.DeepCopy()
	instance.Spec.Installed = applyChanges(instance.Spec.Installed, changes)
	if err := r.Patch(ctx, instance, client.MergeFrom(before)); err != nil {
		return err
	}

	statusBefore := instance.DeepCopy()
	instance.Status.ObservedGeneration = instance.Generation
	instance.Status.InstalledCount = int32(len(instance.Spec.Installed))
	instance.Status.LastChangeRequest = mcr.Name
	setInstanceCondition(instance, metav1.Condition{
		Type:    InstanceConditionChangeApplied,
		Status:  metav1.ConditionTrue,
		Reason:  "ChangeRequestApplied",
		Message: fmt.Sprintf("Applied %s", mcr.Name),
	})
	if err := r.Status().Patch(ctx, instance, client.MergeFrom(statusBefore)); err != nil {
		return err
	}
	r.recordEventf(instance, corev1.EventTypeNormal, "ChangeRequestApplied", "Applied %s (%d changes)", mcr.Name, len(changes))
	return nil
}

// applyChanges returns installed with changes applied, sorted by identifier.
func applyChanges(installed []gamev1alpha1.ModuleRef, changes []gamev1alpha1.PlannedChange) []gamev1alpha1.ModuleRef {
	byID := make(map[string]string, len(installed))
	for _, ref := range installed {
		byID[ref.ID] = ref.Version
	}
	for _, c := range changes {
		switch c.Type {
		case gamev1alpha1.ChangeRemove:
			delete(byID, c.ID)
		default:
			byID[c.ID] = c.Version
		}
	}
	out := make([]gamev1alpha1.ModuleRef, 0, len(byID))
	for id, version := range byID {
		out = append(out, gamev1alpha1.ModuleRef{ID: id, Version: version})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *ModChangeRequestReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

func (r *ModChangeRequestReconciler) patchChangeRequestStatus(ctx context.Context, mcr *gamev1alpha1.ModChangeRequest, phase, message string, mutate func(*gamev1alpha1.ModChangeRequestStatus), conds ...metav1.Condition) error {
	before := mcr.DeepCopy()
	mcr.Status.ObservedGeneration = mcr.Generation
	mcr.Status.Phase = phase
	mcr.Status.Message = message
	if mutate != nil {
		mutate(&mcr.Status)
	}
	for _, c := range conds {
		setChangeRequestCondition(mcr, c)
	}
	return r.Status().Patch(ctx, mcr, client.MergeFrom(before))
}

func (r *ModChangeRequestReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if err := mgr.GetFieldIndexer().IndexField(context.Background(), &gamev1alpha1.ModChangeRequest{}, indexInstanceRef, func(obj client.Object) []string {
		mcr, ok := obj.(*gamev1alpha1.ModChangeRequest)
		if !ok || mcr.Spec.InstanceRef.Name == "" {
			return nil
		}
		return []string{mcr.Spec.InstanceRef.Name}
	}); err != nil {
		return err
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&gamev1alpha1.ModChangeRequest{}, builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Watches(&gamev1alpha1.GameInstance{}, enqueueRequestsForInstance(mgr.GetClient()),
			builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Watches(&gamev1alpha1.ModuleManifest{}, enqueueRequestsForCatalog(mgr.GetClient())).
		Complete(r)
}

// enqueueRequestsForInstance re-resolves unapplied requests when the instance's installed set changes.
func enqueueRequestsForInstance(c client.Client) handler.EventHandler {
	return handler.EnqueueRequestsFromMapFunc(func(ctx context.Context, obj client.Object) []reconcile.Request {
		instance, ok := obj.(*gamev1alpha1.GameInstance)
		if !ok {
			return nil
		}
		var list gamev1alpha1.ModChangeRequestList
		if err := c.List(ctx, &list,
			client.InNamespace(instance.Namespace),
			client.MatchingFields{indexInstanceRef: instance.Name},
		); err != nil {
			return nil
		}
		return unappliedRequests(list.Items)
	})
}

// enqueueRequestsForCatalog re-resolves every unapplied request in the namespace when a manifest changes.
func enqueueRequestsForCatalog(c client.Client) handler.EventHandler {
	return handler.EnqueueRequestsFromMapFunc(func(ctx context.Context, obj client.Object) []reconcile.Request {
		var list gamev1alpha1.ModChangeRequestList
		if err := c.List(ctx, &list, client.InNamespace(obj.GetNamespace())); err != nil {
			return nil
		}
		return unappliedRequests(list.Items)
	})
}

func unappliedRequests(items []gamev1alpha1.ModChangeRequest) []reconcile.Request {
	out := make([]reconcile.Request, 0, len(items))
	for i := range items {
		mcr := &items[i]
		if mcr.Status.Phase == gamev1alpha1.ChangeRequestPhaseApplied {
			continue
		}
		out = append(out, reconcile.Request{NamespacedName: types.NamespacedName{Namespace: mcr.Namespace, Name: mcr.Name}})
	}
	return out
}

func intentsOf(changes []gamev1alpha1.RequestedChange) []resolver.Intent {
	out := make([]resolver.Intent, 0, len(changes))
	for _, c := range changes {
		out = append(out, resolver.Intent{Identifier: c.ID, Version: c.Version, Type: resolver.ChangeType(c.Type)})
	}
	return out
}

func plannedChanges(cs *resolver.Changeset) []gamev1alpha1.PlannedChange {
	out := make([]gamev1alpha1.PlannedChange, 0, cs.Len())
	for _, c := range cs.Changes() {
		out = append(out, gamev1alpha1.PlannedChange{
			ID:      c.Module.Identifier,
			Version: c.Module.Version.String(),
			Type:    gamev1alpha1.ChangeType(c.Type),
			Reason:  c.Reason.String(),
		})
	}
	return out
}

func summarizeChanges(changes []gamev1alpha1.PlannedChange) string {
	if len(changes) == 0 {
		return "Nothing to do"
	}
	counts := map[gamev1alpha1.ChangeType]int{}
	for _, c := range changes {
		counts[c.Type]++
	}
	return fmt.Sprintf("%d to install, %d to update, %d to remove",
		counts[gamev1alpha1.ChangeInstall], counts[gamev1alpha1.ChangeUpdate], counts[gamev1alpha1.ChangeRemove])
}

func appliedCondition(apply bool) metav1.Condition {
	if apply {
		return metav1.Condition{
			Type:    ChangeRequestConditionApplied,
			Status:  metav1.ConditionTrue,
			Reason:  "Applied",
			Message: "Changeset written to the game instance",
		}
	}
	return metav1.Condition{
		Type:    ChangeRequestConditionApplied,
		Status:  metav1.ConditionFalse,
		Reason:  "PlanOnly",
		Message: "spec.apply is false",
	}
}

func acceptMode(mode gamev1alpha1.AcceptMode, fallback resolver.AcceptMode) resolver.AcceptMode {
	if mode == "" {
		return fallback
	}
	return resolver.AcceptMode(mode)
}

// reasonForKind turns a resolver.KindOf label into a condition reason, e.g. module_not_found -> ModuleNotFound.
func reasonForKind(kind string) string {
	parts := strings.Split(kind, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func identifiers(mods []*module.Module) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Identifier)
	}
	return out
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
