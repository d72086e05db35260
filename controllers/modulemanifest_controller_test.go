package controllers

import (
	"context"
	"strings"
	"testing"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
)

func TestModuleManifestReconcile_Validates(t *testing.T) {
	ctx := context.Background()
	scheme := testScheme(t)

	good := manifest("Wheels", "1.2.0")
	bad := manifest("Rover", "1.0.0", func(s *gamev1alpha1.ModuleManifestSpec) {
		s.Depends = rel("Wheels >=banana")
	})
	cl := fake.NewClientBuilder().WithScheme(scheme).WithObjects(good, bad).WithStatusSubresource(good, bad).Build()
	recorder := record.NewFakeRecorder(8)
	r := &ModuleManifestReconciler{Client: cl, Scheme: scheme, Recorder: recorder}

	for _, mm := range []*gamev1alpha1.ModuleManifest{good, bad} {
		if _, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Namespace: testNamespace, Name: mm.Name}}); err != nil {
			t.Fatalf("Reconcile %s: %v", mm.Name, err)
		}
	}

	var got gamev1alpha1.ModuleManifest
	if err := cl.Get(ctx, types.NamespacedName{Namespace: testNamespace, Name: good.Name}, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != ManifestPhaseValid || got.Status.Message != "Wheels 1.2.0" {
		t.Fatalf("unexpected status for valid manifest: %+v", got.Status)
	}

	if err := cl.Get(ctx, types.NamespacedName{Namespace: testNamespace, Name: bad.Name}, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status.Phase != ManifestPhaseInvalid || !strings.Contains(got.Status.Message, "Wheels") {
		t.Fatalf("unexpected status for invalid manifest: %+v", got.Status)
	}

	events := drainEvents(recorder)
	if len(events) != 1 || !strings.HasPrefix(events[0], "Warning BadMetadata") {
		t.Fatalf("unexpected events: %v", events)
	}
}
