package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"k8s.io/client-go/util/retry"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/reconciler"
)

const finalizerName = "healthcheck.yk/cleanup"

// HTTPRouteReconciler keeps one health check per templated hostname of each HTTPRoute.
type HTTPRouteReconciler struct {
	client.Client
	APIReader    client.Reader
	Log          logr.Logger
	Templates    *config.TemplateMap
	HealthChecks healthcheck.Client

	// NewToken overrides creation token generation.
	NewToken func() string
}

func (r *HTTPRouteReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var route gatewayv1.HTTPRoute
	if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}
	log := r.Log.WithValues("httproute", req.NamespacedName)

	// Handle deletion
	if !route.DeletionTimestamp.IsZero() {
		if controllerutil.ContainsFinalizer(&route, finalizerName) {
			log.Info("deleting health checks for HTTPRoute")
			if err := r.apply(ctx, log, &route, nil); err != nil {
				return ctrl.Result{}, fmt.Errorf("deleting health checks: %w", err)
			}

			err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
				if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
					return err
				}
				controllerutil.RemoveFinalizer(&route, finalizerName)
				return r.Update(ctx, &route)
			})
			if err != nil {
				return ctrl.Result{}, fmt.Errorf("failed to remove finalizer: %w", err)
			}
		}
		return ctrl.Result{}, nil
	}

	if !controllerutil.ContainsFinalizer(&route, finalizerName) {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
				return err
			}
			controllerutil.AddFinalizer(&route, finalizerName)
			return r.Update(ctx, &route)
		})
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to add finalizer: %w", err)
		}
		return ctrl.Result{}, nil
	}

	specs := make(map[string]healthcheck.Spec)
	for _, hostname := range route.Spec.Hostnames {
		spec, ok := r.Templates.Lookup(string(hostname))
		if !ok {
			log.V(1).Info("no health check template for hostname", "hostname", hostname)
			continue
		}
		specs[checkName(&route, string(hostname))] = spec
	}

	if err := r.apply(ctx, log, &route, specs); err != nil {
		return ctrl.Result{}, fmt.Errorf("reconciling health checks: %w", err)
	}
	return ctrl.Result{}, nil
}

// apply converges the route's health checks onto specs and deletes the ones
// recorded on the route that specs no longer contains.
func (r *HTTPRouteReconciler) apply(ctx context.Context, log logr.Logger, route *gatewayv1.HTTPRoute, specs map[string]healthcheck.Spec) error {
	store, err := newAnnotationStore(r.Client, r.APIReader, route)
	if err != nil {
		return err
	}
	rec := &reconciler.Reconciler{
		Client:   r.HealthChecks,
		Store:    store,
		Log:      log,
		NewToken: r.NewToken,
	}

	outcomes, err := rec.Apply(ctx, specs, reconciler.ApplyOptions{Prune: true})
	for _, o := range outcomes {
		recordOutcome(o)
		if o.Error == "" && o.Action != reconciler.ActionUnchanged {
			log.Info("health check reconciled", "name", o.Name, "action", o.Action, "remoteID", o.RemoteID)
		}
	}
	if ids, listErr := store.List(ctx); listErr == nil {
		log.V(1).Info("health checks after reconcile", "summary", FormatHealthChecks(route, ids))
	}
	return err
}

func (r *HTTPRouteReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gatewayv1.HTTPRoute{}).
		WithEventFilter(predicate.Funcs{
			UpdateFunc: func(e event.UpdateEvent) bool {
				// Reconcile if the Spec (Generation) has changed.
				if e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration() {
					return true
				}
				// Also reconcile if finalizers have changed (e.g. our finalizer was added).
				if len(e.ObjectOld.GetFinalizers()) != len(e.ObjectNew.GetFinalizers()) {
					return true
				}
				// Ignore status and annotation updates.
				return false
			},
		}).
		Complete(r)
}
