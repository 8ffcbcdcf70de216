// Package reconciler converges a declared health check onto the remote provider.
package reconciler

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/identity"
)

// State is where a logical health check stands before an action runs.
type State string

const (
	StateAbsent         State = "Absent"
	StatePresent        State = "Present"
	StatePresentStale   State = "Present-Stale"
	StatePresentCurrent State = "Present-Current"
)

// Action is what an action did to the remote object.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionDeleted   Action = "deleted"
	ActionSkipped   Action = "skipped"
	ActionPlanned   Action = "planned"
)

// Operation names the action that was requested.
type Operation string

const (
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
	OpPlan   Operation = "plan"
)

// Outcome describes the result of a single action.
type Outcome struct {
	Name      string    `json:"name"`
	Operation Operation `json:"operation"`
	State     State     `json:"state"`
	Action    Action    `json:"action,omitempty"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Changed   []string  `json:"changed,omitempty"`
	// Error is set by Apply for actions that failed.
	Error string `json:"error,omitempty"`
}

// Reconciler runs the create and delete actions for one logical name at a time.
// It holds no locks: callers must not run two actions for the same name concurrently.
type Reconciler struct {
	Client healthcheck.Client
	Store  identity.Store
	Log    logr.Logger

	// NewToken generates creation tokens. Defaults to a random UUID.
	NewToken func() string
}

func (r *Reconciler) token() string {
	if r.NewToken != nil {
		return r.NewToken()
	}
	return uuid.NewString()
}

// Create makes the remote health check for name match spec, creating it when no
// identity is stored.
func (r *Reconciler) Create(ctx context.Context, name string, spec healthcheck.Spec) (Outcome, error) {
	log := r.Log.WithValues("name", name)
	out := Outcome{Name: name, Operation: OpCreate}

	if err := healthcheck.Validate(spec); err != nil {
		return out, &healthcheck.ValidationError{Name: name, Err: err}
	}
	desired := healthcheck.Build(spec)

	id, found, err := r.Store.Read(ctx, name)
	if err != nil {
		return out, fmt.Errorf("reading identity for %q: %w", name, err)
	}

	if !found {
		out.State = StateAbsent
		token := r.token()
		log.Info("creating health check", "type", desired.Type, "creationToken", token)

		remoteID, err := r.Client.Create(ctx, token, desired)
		if err != nil {
			return out, fmt.Errorf("creating health check %q: %w", name, err)
		}
		out.RemoteID = remoteID
		out.Action = ActionCreated

		if err := r.Store.Write(ctx, name, identity.Identity{RemoteID: remoteID, CreationToken: token}); err != nil {
			log.Error(err, "health check created but its identity was not recorded", "remoteID", remoteID)
			return out, fmt.Errorf("recording identity for %q (remote id %s): %w", name, remoteID, err)
		}

		if err := r.Client.Tag(ctx, remoteID, name); err != nil {
			log.Error(err, "tagging health check failed", "remoteID", remoteID)
		}

		log.Info("created health check", "remoteID", remoteID)
		return out, nil
	}

	out.State = StatePresent
	out.RemoteID = id.RemoteID
	result, err := r.diff(ctx, name, id, desired)
	if err != nil {
		return out, err
	}

	switch result.Kind {
	case healthcheck.Unchanged:
		out.State = StatePresentCurrent
		out.Action = ActionUnchanged
		log.V(1).Info("health check is up to date", "remoteID", id.RemoteID)
		return out, nil

	case healthcheck.NeedsUpdate:
		out.State = StatePresentStale
		out.Changed = result.Changed
		log.Info("updating health check", "remoteID", id.RemoteID, "changed", result.Changed)
		if err := r.Client.Update(ctx, id.RemoteID, result.Update); err != nil {
			return out, fmt.Errorf("updating health check %q: %w", name, err)
		}
		out.Action = ActionUpdated
		return out, nil
	}

	log.Info("refusing to change immutable field", "remoteID", id.RemoteID, "field", result.Field)
	return out, fmt.Errorf("health check %q: %w", name, result.Err())
}

// Plan reports what Create would do without issuing any mutating call.
func (r *Reconciler) Plan(ctx context.Context, name string, spec healthcheck.Spec) (Outcome, error) {
	out := Outcome{Name: name, Operation: OpPlan, Action: ActionPlanned}

	if err := healthcheck.Validate(spec); err != nil {
		return out, &healthcheck.ValidationError{Name: name, Err: err}
	}
	desired := healthcheck.Build(spec)

	id, found, err := r.Store.Read(ctx, name)
	if err != nil {
		return out, fmt.Errorf("reading identity for %q: %w", name, err)
	}
	if !found {
		out.State = StateAbsent
		return out, nil
	}

	out.State = StatePresent
	out.RemoteID = id.RemoteID
	result, err := r.diff(ctx, name, id, desired)
	if err != nil {
		return out, err
	}
	switch result.Kind {
	case healthcheck.Unchanged:
		out.State = StatePresentCurrent
	case healthcheck.NeedsUpdate:
		out.State = StatePresentStale
		out.Changed = result.Changed
	default:
		return out, fmt.Errorf("health check %q: %w", name, result.Err())
	}
	return out, nil
}

func (r *Reconciler) diff(ctx context.Context, name string, id identity.Identity, desired healthcheck.DesiredConfig) (healthcheck.Result, error) {
	current, err := r.Client.Get(ctx, id.RemoteID)
	if healthcheck.IsNotFound(err) {
		return healthcheck.Result{}, &healthcheck.StaleIdentityError{Name: name, RemoteID: id.RemoteID}
	}
	if err != nil {
		return healthcheck.Result{}, fmt.Errorf("reading health check %q: %w", name, err)
	}
	return healthcheck.Diff(desired, current), nil
}

// Delete removes the remote health check recorded for name and then forgets its
// identity. Without a stored identity it does nothing. When the provider call
// fails for any reason other than NotFound the identity is kept, so a later
// Delete retries against the same remote id.
func (r *Reconciler) Delete(ctx context.Context, name string) (Outcome, error) {
	log := r.Log.WithValues("name", name)
	out := Outcome{Name: name, Operation: OpDelete}

	id, found, err := r.Store.Read(ctx, name)
	if err != nil {
		return out, fmt.Errorf("reading identity for %q: %w", name, err)
	}
	if !found {
		out.State = StateAbsent
		out.Action = ActionSkipped
		log.Info("no identity recorded, nothing to delete")
		return out, nil
	}

	out.State = StatePresent
	out.RemoteID = id.RemoteID
	log.Info("deleting health check", "remoteID", id.RemoteID)

	err = r.Client.Delete(ctx, id.RemoteID)
	if healthcheck.IsNotFound(err) {
		log.Info("health check already deleted", "remoteID", id.RemoteID)
	} else if err != nil {
		return out, fmt.Errorf("deleting health check %q: %w", name, err)
	}

	if err := r.Store.Remove(ctx, name); err != nil {
		return out, fmt.Errorf("removing identity for %q: %w", name, err)
	}
	out.Action = ActionDeleted
	log.Info("deleted health check", "remoteID", id.RemoteID)
	return out, nil
}
