// Package cli implements the hcctl commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/identity"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/reconciler"
)

// DefaultStatePath is where identities are kept when no --state is given.
const DefaultStatePath = "healthcheck-state.yaml"

// App holds what the commands share.
type App struct {
	Out io.Writer
	// Log is built from the zap flags when left unset.
	Log logr.Logger
	// NewClient builds the provider client. Defaults to the provider named in the
	// provider config file.
	NewClient func(ctx context.Context, log logr.Logger) (healthcheck.Client, error)
	// NewToken overrides creation token generation.
	NewToken func() string

	v *viper.Viper
}

// ExitCode maps a command error to the process exit status: 0 on success, 2 for
// errors in the declared configuration, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case healthcheck.IsConfigurationError(err):
		return 2
	default:
		return 1
	}
}

// NewRootCommand returns the hcctl command tree. Flags can also be set through
// HCCTL_ environment variables, e.g. HCCTL_STATE for --state.
func NewRootCommand(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	app.v = viper.New()
	app.v.SetEnvPrefix("HCCTL")
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()

	zapOpts := zap.Options{Development: true}
	root := &cobra.Command{
		Use:           "hcctl",
		Short:         "Converge Route 53 health checks onto their declarations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Log.GetSink() == nil {
				app.Log = zap.New(zap.UseFlagOptions(&zapOpts), zap.WriteTo(cmd.ErrOrStderr()))
			}
			return nil
		},
	}
	root.SetOut(app.Out)

	flags := root.PersistentFlags()
	flags.String("checks", "", "path to the health check declarations (default $HEALTHCHECKS_PATH or configs/healthchecks.yaml)")
	flags.String("provider-config", "", "path to the provider config (default $HEALTHCHECK_PROVIDER_PATH or configs/healthcheck-provider.yaml)")
	flags.String("state", DefaultStatePath, "identity store: a YAML file, or a bbolt database for .db and .bolt paths")
	flags.StringP("output", "o", "text", "output format: text or json")
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)

	for _, name := range []string{"checks", "provider-config", "state", "output"} {
		if err := app.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding --%s: %v", name, err))
		}
	}

	root.AddCommand(
		newApplyCommand(app),
		newPlanCommand(app),
		newCreateCommand(app),
		newDeleteCommand(app),
		newForgetCommand(app),
		newListCommand(app),
	)
	return root
}

func (app *App) loadChecks() (*config.HealthChecks, error) {
	if path := app.v.GetString("checks"); path != "" {
		return config.LoadHealthChecksFromPath(path)
	}
	return config.LoadHealthChecks()
}

func (app *App) client(ctx context.Context) (healthcheck.Client, error) {
	if app.NewClient != nil {
		return app.NewClient(ctx, app.Log)
	}

	var cfg *config.ProviderConfig
	var err error
	if path := app.v.GetString("provider-config"); path != "" {
		cfg, err = config.LoadProviderConfigFromPath(path)
	} else {
		cfg, err = config.LoadProviderConfig()
	}
	if err != nil {
		return nil, err
	}
	return healthcheck.NewClient(ctx, cfg.Provider, app.Log.WithName(cfg.Provider), cfg.Settings)
}

// withStore opens the identity store for the duration of fn.
func (app *App) withStore(fn func(identity.Store) error) (err error) {
	store, closeStore, err := identity.Open(app.v.GetString("state"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(store)
}

// withReconciler opens the store and the provider client for the duration of fn.
func (app *App) withReconciler(ctx context.Context, fn func(*reconciler.Reconciler) error) error {
	client, err := app.client(ctx)
	if err != nil {
		return err
	}
	return app.withStore(func(store identity.Store) error {
		return fn(&reconciler.Reconciler{
			Client:   client,
			Store:    store,
			Log:      app.Log,
			NewToken: app.NewToken,
		})
	})
}

func (app *App) printOutcomes(outcomes []reconciler.Outcome) error {
	if app.v.GetString("output") == "json" {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		if outcomes == nil {
			outcomes = []reconciler.Outcome{}
		}
		return enc.Encode(outcomes)
	}

	w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOPERATION\tSTATE\tACTION\tREMOTE ID\tCHANGED")
	for _, o := range outcomes {
		action := string(o.Action)
		if o.Error != "" {
			action = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", o.Name, o.Operation, o.State, action, dash(o.RemoteID), dash(strings.Join(o.Changed, ",")))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func declared(checks *config.HealthChecks, name string) (healthcheck.Spec, error) {
	spec, ok := checks.Get(name)
	if !ok {
		return healthcheck.Spec{}, &healthcheck.ValidationError{
			Name: name,
			Err:  fmt.Errorf("not declared (declared: %s)", strings.Join(checks.Names(), ", ")),
		}
	}
	return spec, nil
}

func newApplyCommand(app *App) *cobra.Command {
	var opts reconciler.ApplyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update every declared health check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := app.loadChecks()
			if err != nil {
				return err
			}
			return app.withReconciler(cmd.Context(), func(r *reconciler.Reconciler) error {
				outcomes, err := r.Apply(cmd.Context(), checks.Checks, opts)
				if perr := app.printOutcomes(outcomes); perr != nil {
					return errors.Join(err, perr)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete health checks that are recorded but no longer declared")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would change without changing it")
	return cmd
}

func newPlanCommand(app *App) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "plan [NAME...]",
		Short: "Show what apply would change",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := app.loadChecks()
			if err != nil {
				return err
			}
			specs := checks.Checks
			if len(args) > 0 {
				specs = make(map[string]healthcheck.Spec, len(args))
				for _, name := range args {
					spec, err := declared(checks, name)
					if err != nil {
						return err
					}
					specs[name] = spec
				}
			}
			return app.withReconciler(cmd.Context(), func(r *reconciler.Reconciler) error {
				outcomes, err := r.Apply(cmd.Context(), specs, reconciler.ApplyOptions{DryRun: true, Prune: prune && len(args) == 0})
				if perr := app.printOutcomes(outcomes); perr != nil {
					return errors.Join(err, perr)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "include health checks that apply --prune would delete")
	return cmd
}

func newCreateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create or update one declared health check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := app.loadChecks()
			if err != nil {
				return err
			}
			spec, err := declared(checks, args[0])
			if err != nil {
				return err
			}
			return app.withReconciler(cmd.Context(), func(r *reconciler.Reconciler) error {
				out, err := r.Create(cmd.Context(), args[0], spec)
				if err != nil {
					return err
				}
				return app.printOutcomes([]reconciler.Outcome{out})
			})
		},
	}
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete the health check recorded for NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withReconciler(cmd.Context(), func(r *reconciler.Reconciler) error {
				out, err := r.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return app.printOutcomes([]reconciler.Outcome{out})
			})
		},
	}
}

func newForgetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget NAME",
		Short: "Drop the stored identity for NAME without touching the remote health check",
		Long: "Drop the stored identity for NAME without touching the remote health check.\n" +
			"Use it when the recorded health check was deleted outside hcctl, so the next\n" +
			"apply creates a new one.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(store identity.Store) error {
				id, found, err := store.Read(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(app.Out, "%s: no identity recorded\n", args[0])
					return nil
				}
				if err := store.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "%s: forgot %s\n", args[0], id.RemoteID)
				return nil
			})
		},
	}
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(store identity.Store) error {
				ids, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if app.v.GetString("output") == "json" {
					enc := json.NewEncoder(app.Out)
					enc.SetIndent("", "  ")
					return enc.Encode(ids)
				}

				names := make([]string, 0, len(ids))
				for name := range ids {
					names = append(names, name)
				}
				slices.Sort(names)

				w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tREMOTE ID\tCREATION TOKEN")
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%s\t%s\n", name, ids[name].RemoteID, ids[name].CreationToken)
				}
				return w.Flush()
			})
		},
	}
}
