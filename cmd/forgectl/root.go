package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/anvil-platform/forge/internal/config"
	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/prompt"
	"github.com/anvil-platform/forge/internal/registry"
	"github.com/anvil-platform/forge/internal/resolver"
	"github.com/anvil-platform/forge/internal/semver"
)

var version = "dev"

// reportedError is an error already rendered to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

type app struct {
	v         *viper.Viper
	cfgFile   string
	cfg       config.Config
	log       logr.Logger
	providers []string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logr.Discard()}
	root := &cobra.Command{
		Use:               "forgectl",
		Short:             "Plan mod changes against a module catalog",
		Long:              `forgectl resolves the dependencies, providers, recommendations and conflicts of mod installs, removals and upgrades against YAML module catalogs.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: .forge/config.yaml or ~/.config/forge/config.yaml)")
	pf.StringSlice("catalog", nil, "catalog YAML document (repeatable)")
	pf.String("installed", "", "installed-set YAML document")
	pf.StringSlice("game-version", nil, "compatible game version (repeatable)")
	pf.Bool("interactive", true, "prompt for provider and recommendation choices")
	pf.Bool("accessible", false, "use line-based prompts")
	pf.Bool("with-recommends", true, "install recommended modules")
	pf.Bool("with-suggests", false, "install suggestions of requested modules")
	pf.Bool("with-all-suggests", false, "install suggestions of every selected module")
	pf.Int("max-provider-choices", resolver.DefaultMaxProviderChoices, "provider choices allowed in one resolution")
	pf.StringSliceVar(&a.providers, "provider", nil, "pin the provider of a capability as Capability=Module (repeatable)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log resolver decisions to stderr")

	for key, flag := range map[string]string{
		"catalog":              "catalog",
		"installed":            "installed",
		"game_versions":        "game-version",
		"interactive":          "interactive",
		"accessible":           "accessible",
		"with_recommends":      "with-recommends",
		"with_suggests":        "with-suggests",
		"with_all_suggests":    "with-all-suggests",
		"max_provider_choices": "max-provider-choices",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newInstallCmd(a),
		newRemoveCmd(a),
		newUpgradeCmd(a),
		newConflictsCmd(a),
		newRecommendationsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.verbose {
		a.log = zap.New(zap.UseDevMode(true), zap.WriteTo(cmd.ErrOrStderr())).WithName("forgectl")
	}
	return nil
}

// load builds the registry snapshot from the catalog and installed documents.
// Game versions from the config win over those found in the documents.
func (a *app) load() (*registry.Memory, semver.Criteria, error) {
	if len(a.cfg.Catalog) == 0 {
		return nil, semver.Criteria{}, errors.New("no catalog configured: pass --catalog or set catalog in the config file")
	}
	paths := append([]string(nil), a.cfg.Catalog...)
	if a.cfg.Installed != "" {
		if _, err := os.Stat(a.cfg.Installed); err == nil {
			paths = append(paths, a.cfg.Installed)
		} else if !os.IsNotExist(err) {
			return nil, semver.Criteria{}, err
		}
	}
	reg, doc, err := registry.LoadFiles(paths...)
	if err != nil {
		return nil, semver.Criteria{}, err
	}

	crit, err := a.cfg.Criteria()
	if err != nil {
		return nil, semver.Criteria{}, err
	}
	if crit.IsZero() {
		if crit, err = semver.ParseCriteria(doc.GameVersions...); err != nil {
			return nil, semver.Criteria{}, fmt.Errorf("game_versions: %w", err)
		}
	}
	a.log.V(1).Info("catalog loaded", "paths", strings.Join(paths, ","), "installed", len(reg.InstalledModules()), "criteria", crit.String())
	return reg, crit, nil
}

// pinnedChooser answers from policy when it names the capability and asks next otherwise.
type pinnedChooser struct {
	policy resolver.ProviderPolicy
	next   resolver.ProviderChooser
}

func (p pinnedChooser) ChooseProvider(ctx context.Context, req resolver.ProviderRequest) (*module.Module, error) {
	if _, ok := p.policy[req.Capability]; ok {
		return p.policy.ChooseProvider(ctx, req)
	}
	return p.next.ChooseProvider(ctx, req)
}

// plan assembles intents into a changeset, prints it and optionally writes
// the resulting installed set.
func (a *app) plan(cmd *cobra.Command, reg *registry.Memory, crit semver.Criteria, intents []resolver.Intent, apply bool) error {
	if apply && a.cfg.Installed == "" {
		return errors.New("--apply needs an installed document (--installed)")
	}
	policy, err := a.cfg.ProviderPolicy(a.providers...)
	if err != nil {
		return err
	}

	asm := resolver.NewAssembler(reg, crit, a.log)
	asm.Options = a.cfg.Options()
	asm.MaxProviderChoices = a.cfg.MaxProviderChoices
	asm.OnTransition = func(from, to resolver.State) {
		a.log.V(1).Info("resolver state", "from", string(from), "to", string(to))
	}

	var cs *resolver.Changeset
	if a.cfg.Interactive {
		chooser := &prompt.Chooser{Theme: a.cfg.Theme, Accessible: a.cfg.Accessible}
		cs, err = assembleInteractive(cmd.Context(), asm, intents, pinnedChooser{policy: policy, next: chooser}, chooser)
	} else {
		asm.Providers = policy
		asm.Recommendations = a.cfg.RecommendationPolicy()
		cs, err = asm.Assemble(cmd.Context(), intents)
	}
	if err != nil {
		if resolver.IsCancelled(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		fmt.Fprint(cmd.ErrOrStderr(), prompt.Error(err))
		return reportedError{err}
	}

	fmt.Fprintln(cmd.OutOrStdout(), prompt.Changeset(cs))
	if !apply || cs.Len() == 0 {
		return nil
	}
	if err := a.writeInstalled(cs.Apply(reg.InstalledModules())); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.cfg.Installed)
	return nil
}

// assembleInteractive runs the assembler on a worker goroutine while this
// goroutine serves its prompts, since huh forms own the terminal.
func assembleInteractive(ctx context.Context, asm *resolver.Assembler, intents []resolver.Intent, providers resolver.ProviderChooser, recs resolver.RecommendationChooser) (*resolver.Changeset, error) {
	async := resolver.NewAsyncChooser()
	asm.Providers = async
	asm.Recommendations = async

	var cs *resolver.Changeset
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		var err error
		cs, err = asm.Assemble(gctx, intents)
		return err
	})

	serveErr := prompt.Serve(gctx, async, providers, recs, done)
	err := g.Wait()
	if serveErr != nil {
		return nil, serveErr
	}
	return cs, err
}

// writeInstalled replaces the installed section of the installed document, keeping the rest.
func (a *app) writeInstalled(mods []*module.Module) error {
	path := a.cfg.Installed
	var doc registry.Document
	if _, err := os.Stat(path); err == nil {
		if doc, err = registry.LoadDocument(path); err != nil {
			return err
		}
	}
	doc.Installed = make([]module.Manifest, 0, len(mods))
	for _, m := range mods {
		doc.Installed = append(doc.Installed, registry.ManifestOf(m))
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := doc.Encode(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// parseIntents reads "Identifier" or "Identifier=Version" arguments.
func parseIntents(args []string, t resolver.ChangeType) []resolver.Intent {
	out := make([]resolver.Intent, 0, len(args))
	for _, arg := range args {
		id, v, _ := strings.Cut(arg, "=")
		out = append(out, resolver.Intent{Identifier: id, Version: v, Type: t})
	}
	return out
}
