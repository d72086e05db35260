package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvil-platform/forge/internal/module"
	"github.com/anvil-platform/forge/internal/prompt"
	"github.com/anvil-platform/forge/internal/resolver"
)

func newInstallCmd(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "install MODULE[=VERSION]...",
		Short: "Plan installing modules with their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, crit, err := a.load()
			if err != nil {
				return err
			}
			return a.plan(cmd, reg, crit, parseIntents(args, resolver.ChangeInstall), apply)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "write the resulting installed set")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "remove MODULE...",
		Short: "Plan removing modules and everything that depends on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, crit, err := a.load()
			if err != nil {
				return err
			}
			return a.plan(cmd, reg, crit, parseIntents(args, resolver.ChangeRemove), apply)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "write the resulting installed set")
	return cmd
}

func newUpgradeCmd(a *app) *cobra.Command {
	var apply, all bool
	cmd := &cobra.Command{
		Use:   "upgrade [MODULE[=VERSION]...]",
		Short: "Plan upgrading installed modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass either module names or --all")
			}
			reg, crit, err := a.load()
			if err != nil {
				return err
			}
			intents := parseIntents(args, resolver.ChangeUpdate)
			if all {
				for _, m := range reg.InstalledModules() {
					if _, ok := reg.LatestAvailable(m.Identifier, crit); ok {
						intents = append(intents, resolver.Intent{Identifier: m.Identifier, Type: resolver.ChangeUpdate})
					}
				}
			}
			return a.plan(cmd, reg, crit, intents, apply)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "write the resulting installed set")
	cmd.Flags().BoolVar(&all, "all", false, "upgrade every installed module with a compatible release")
	return cmd
}

func newConflictsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts MODULE...",
		Short: "Explain the conflicts among a set of modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, crit, err := a.load()
			if err != nil {
				return err
			}
			d := &resolver.ConflictDetector{Registry: reg, Criteria: crit, Log: a.log}
			conflicts, err := d.Conflicts(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.Conflicts(conflicts))
			return nil
		},
	}
}

func newRecommendationsCmd(a *app) *cobra.Command {
	var install, apply bool
	cmd := &cobra.Command{
		Use:   "recommendations",
		Short: "List installable recommendations and suggestions of the installed modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, crit, err := a.load()
			if err != nil {
				return err
			}
			exp := &resolver.Expander{Registry: reg, Criteria: crit, Log: a.log}
			audit, err := exp.Audit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.Audit(audit))
			if !install {
				return nil
			}

			var chooser resolver.RecommendationChooser = a.cfg.RecommendationPolicy()
			if a.cfg.Interactive {
				chooser = &prompt.Chooser{Theme: a.cfg.Theme, Accessible: a.cfg.Accessible}
			}
			var picked []*module.Module
			for _, pass := range []struct {
				recs       []resolver.Recommendation
				suggestion bool
			}{{audit.Recommendations, false}, {audit.Suggestions, true}} {
				if len(pass.recs) == 0 {
					continue
				}
				mods, err := chooser.ChooseRecommended(cmd.Context(), pass.recs, pass.suggestion)
				if err != nil {
					if resolver.IsCancelled(err) {
						fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
						return nil
					}
					return err
				}
				picked = append(picked, mods...)
			}
			if len(picked) == 0 {
				return nil
			}

			intents := make([]resolver.Intent, 0, len(picked))
			for _, m := range picked {
				intents = append(intents, resolver.Intent{Identifier: m.Identifier, Version: m.Version.String(), Type: resolver.ChangeInstall})
			}
			return a.plan(cmd, reg, crit, intents, apply)
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "choose recommendations to install")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the resulting installed set")
	return cmd
}
