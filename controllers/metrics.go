package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	forgeControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_controller_reconcile_total",
			Help: "Number of reconciliations by controller.",
		},
		[]string{"controller"},
	)
	forgeControllerReconcileErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_controller_reconcile_error_total",
			Help: "Number of reconciliation errors by controller.",
		},
		[]string{"controller"},
	)

	forgeResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_resolver_resolutions_total",
			Help: "Number of changeset resolutions by outcome.",
		},
		[]string{"outcome"},
	)
	forgeResolverTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_resolver_state_transitions_total",
			Help: "Number of resolver state machine transitions.",
		},
		[]string{"from", "to"},
	)
	forgeProviderChoicesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forge_resolver_provider_choices_total",
			Help: "Total number of ambiguous capabilities handed to a provider chooser.",
		},
	)
	forgeResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forge_resolver_resolution_duration_seconds",
			Help:    "Time taken to assemble a changeset.",
			Buckets: prometheus.DefBuckets,
		},
	)
	forgeChangesetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_resolver_changeset_size",
			Help: "Number of changes in the last resolved changeset.",
		},
	)

	forgeSnapshotCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_registry_snapshot_cache_total",
			Help: "Catalog snapshot cache lookups by result.",
		},
		[]string{"result"},
	)

	forgeManifestsInvalid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_modulemanifest_invalid",
			Help: "Number of ModuleManifests with invalid metadata observed in the last validation pass.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		forgeControllerReconcileTotal,
		forgeControllerReconcileErrorTotal,
		forgeResolutionsTotal,
		forgeResolverTransitionsTotal,
		forgeProviderChoicesTotal,
		forgeResolutionDuration,
		forgeChangesetSize,
		forgeSnapshotCacheTotal,
		forgeManifestsInvalid,
	)
}
