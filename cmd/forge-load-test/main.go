package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
)

var (
	scheme = runtime.NewScheme()
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(gamev1alpha1.AddToScheme(scheme))
}

type result struct {
	name    string
	phase   string
	latency time.Duration
}

func main() {
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	} else {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	flag.StringVar(&kubeconfig, "kubeconfig", kubeconfig, "absolute path to the kubeconfig file")

	var numRequests int
	var namespace string
	var instanceName string
	var modules string
	var timeout time.Duration

	flag.IntVar(&numRequests, "requests", 10, "Number of change requests to create")
	flag.StringVar(&namespace, "namespace", "default", "Namespace of the game instance")
	flag.StringVar(&instanceName, "instance", "ksp", "GameInstance name")
	flag.StringVar(&modules, "modules", "", "Comma-separated module identifiers to install")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for each request")
	flag.Parse()

	ids := splitModules(modules)
	if len(ids) == 0 {
		log.Fatalf("--modules is required")
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		log.Fatalf("Error building kubeconfig: %v", err)
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}

	fmt.Printf("Starting load test: %d change requests against %s/%s\n", numRequests, namespace, instanceName)

	var wg sync.WaitGroup
	start := time.Now()
	results := make(chan result, numRequests)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("load-test-%d-%d", time.Now().Unix(), id)
			mcr := changeRequest(name, namespace, instanceName, ids)

			createStart := time.Now()
			if err := k8sClient.Create(context.Background(), mcr); err != nil {
				fmt.Printf("Error creating change request %s: %v\n", name, err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			for {
				select {
				case <-ctx.Done():
					fmt.Printf("Timeout waiting for change request %s\n", name)
					return
				case <-time.After(500 * time.Millisecond):
					var current gamev1alpha1.ModChangeRequest
					if err := k8sClient.Get(ctx, client.ObjectKey{Name: name, Namespace: namespace}, &current); err != nil {
						continue
					}
					if !terminal(current.Status.Phase) {
						continue
					}
					latency := time.Since(createStart)
					results <- result{name: name, phase: current.Status.Phase, latency: latency}
					fmt.Printf("Change request %s %s in %v\n", name, current.Status.Phase, latency)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(results)
	totalDuration := time.Since(start)

	var all []result
	for r := range results {
		all = append(all, r)
	}
	fmt.Println(summarize(all, totalDuration))
}

// changeRequest builds a plan-only install request so concurrent requests do not race on the instance.
func changeRequest(name, namespace, instance string, ids []string) *gamev1alpha1.ModChangeRequest {
	changes := make([]gamev1alpha1.RequestedChange, 0, len(ids))
	for _, id := range ids {
		changes = append(changes, gamev1alpha1.RequestedChange{ID: id, Type: gamev1alpha1.ChangeInstall})
	}
	return &gamev1alpha1.ModChangeRequest{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"game.platform/load-test": "true"},
		},
		Spec: gamev1alpha1.ModChangeRequestSpec{
			InstanceRef: gamev1alpha1.ObjectRef{Name: instance},
			Changes:     changes,
			Recommends:  gamev1alpha1.AcceptDefaults,
		},
	}
}

func splitModules(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// terminal reports whether the controller is done with a request. AwaitingChoice
// counts: it needs a human before it can progress.
func terminal(phase string) bool {
	switch phase {
	case gamev1alpha1.ChangeRequestPhaseResolved,
		gamev1alpha1.ChangeRequestPhaseApplied,
		gamev1alpha1.ChangeRequestPhaseFailed,
		gamev1alpha1.ChangeRequestPhaseAwaitingChoice:
		return true
	}
	return false
}

func summarize(results []result, total time.Duration) string {
	if len(results) == 0 {
		return fmt.Sprintf("Load test completed in %v. No change requests finished.", total)
	}
	latencies := make([]time.Duration, 0, len(results))
	phases := map[string]int{}
	var sum time.Duration
	for _, r := range results {
		latencies = append(latencies, r.latency)
		phases[r.phase]++
		sum += r.latency
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p95 := latencies[(len(latencies)*95+99)/100-1]

	names := make([]string, 0, len(phases))
	for p := range phases {
		names = append(names, p)
	}
	sort.Strings(names)
	counts := make([]string, 0, len(names))
	for _, p := range names {
		counts = append(counts, fmt.Sprintf("%s=%d", p, phases[p]))
	}
	return fmt.Sprintf("Load test completed in %v. %d finished (%s). Avg latency: %v, p95: %v",
		total, len(results), strings.Join(counts, ", "), sum/time.Duration(len(results)), p95)
}
