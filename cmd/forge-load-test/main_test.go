package main

import (
	"strings"
	"testing"
	"time"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
)

func TestSplitModules(t *testing.T) {
	got := splitModules(" Rover, ,Wheels ")
	if len(got) != 2 || got[0] != "Rover" || got[1] != "Wheels" {
		t.Fatalf("unexpected modules: %v", got)
	}
}

func TestChangeRequest(t *testing.T) {
	mcr := changeRequest("load-1", "games", "ksp", []string{"Rover", "Wheels"})
	if mcr.Spec.InstanceRef.Name != "ksp" || mcr.Namespace != "games" {
		t.Fatalf("unexpected target: %+v", mcr)
	}
	if mcr.Spec.Apply {
		t.Fatalf("load test requests must be plan-only")
	}
	if len(mcr.Spec.Changes) != 2 || mcr.Spec.Changes[1].Type != gamev1alpha1.ChangeInstall {
		t.Fatalf("unexpected changes: %+v", mcr.Spec.Changes)
	}
}

func TestTerminal(t *testing.T) {
	if terminal(gamev1alpha1.ChangeRequestPhasePending) || terminal("") {
		t.Fatalf("pending requests are not terminal")
	}
	if !terminal(gamev1alpha1.ChangeRequestPhaseAwaitingChoice) {
		t.Fatalf("awaiting choice is terminal for the load test")
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize(nil, time.Second); !strings.Contains(got, "No change requests finished") {
		t.Fatalf("unexpected summary: %s", got)
	}

	results := []result{
		{phase: gamev1alpha1.ChangeRequestPhaseResolved, latency: 2 * time.Second},
		{phase: gamev1alpha1.ChangeRequestPhaseFailed, latency: 4 * time.Second},
		{phase: gamev1alpha1.ChangeRequestPhaseResolved, latency: 6 * time.Second},
	}
	got := summarize(results, 10*time.Second)
	for _, want := range []string{"3 finished", "Failed=1, Resolved=2", "Avg latency: 4s", "p95: 6s"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
}
