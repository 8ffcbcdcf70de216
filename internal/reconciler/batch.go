package reconciler

import (
	"context"
	"slices"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

// ApplyOptions controls a batch run.
type ApplyOptions struct {
	// Prune deletes health checks that have a stored identity but are no longer declared.
	Prune bool
	// DryRun plans every action instead of running it.
	DryRun bool
}

// Tolerable reports whether err, returned while acting on spec, may be logged and
// skipped instead of failing a batch. Configuration errors are never tolerable.
func Tolerable(spec healthcheck.Spec, err error) bool {
	return !healthcheck.Build(spec).FailOnError && !healthcheck.IsConfigurationError(err)
}

// Apply converges every declared health check in name order, then prunes when
// asked. It returns one outcome per name and the aggregate of the errors that
// were not tolerated.
func (r *Reconciler) Apply(ctx context.Context, specs map[string]healthcheck.Spec, opts ApplyOptions) ([]Outcome, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	slices.Sort(names)

	var outcomes []Outcome
	var errs []error
	for _, name := range names {
		spec := specs[name]
		var out Outcome
		var err error
		if opts.DryRun {
			out, err = r.Plan(ctx, name, spec)
		} else {
			out, err = r.Create(ctx, name, spec)
		}
		if err != nil {
			out.Error = err.Error()
			if Tolerable(spec, err) {
				r.Log.Error(err, "ignoring failed health check", "name", name)
			} else {
				errs = append(errs, err)
			}
		}
		outcomes = append(outcomes, out)
	}

	if !opts.Prune {
		return outcomes, utilerrors.NewAggregate(errs)
	}

	stored, err := r.Store.List(ctx)
	if err != nil {
		errs = append(errs, err)
		return outcomes, utilerrors.NewAggregate(errs)
	}
	var orphans []string
	for name := range stored {
		if _, ok := specs[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	slices.Sort(orphans)

	for _, name := range orphans {
		if opts.DryRun {
			outcomes = append(outcomes, Outcome{
				Name:      name,
				Operation: OpDelete,
				State:     StatePresent,
				Action:    ActionPlanned,
				RemoteID:  stored[name].RemoteID,
			})
			continue
		}
		r.Log.Info("health check no longer declared", "name", name)
		out, err := r.Delete(ctx, name)
		if err != nil {
			out.Error = err.Error()
			errs = append(errs, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, utilerrors.NewAggregate(errs)
}
