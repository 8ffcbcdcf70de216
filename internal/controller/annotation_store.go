package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/identity"
)

const identitiesAnnotation = "healthcheck.yk/identities"

// annotationStore keeps the identities of one HTTPRoute's health checks in an
// annotation on that route. Every write is persisted before it returns.
type annotationStore struct {
	writer  client.Client
	reader  client.Reader
	key     types.NamespacedName
	entries map[string]identity.Identity
}

func newAnnotationStore(writer client.Client, reader client.Reader, route *gatewayv1.HTTPRoute) (*annotationStore, error) {
	entries, err := decodeIdentities(route.Annotations[identitiesAnnotation])
	if err != nil {
		return nil, fmt.Errorf("reading %s annotation on %s/%s: %w", identitiesAnnotation, route.Namespace, route.Name, err)
	}
	return &annotationStore{
		writer:  writer,
		reader:  reader,
		key:     types.NamespacedName{Namespace: route.Namespace, Name: route.Name},
		entries: entries,
	}, nil
}

func decodeIdentities(val string) (map[string]identity.Identity, error) {
	entries := make(map[string]identity.Identity)
	if val == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *annotationStore) Read(_ context.Context, name string) (identity.Identity, bool, error) {
	id, ok := s.entries[name]
	return id, ok, nil
}

func (s *annotationStore) Write(ctx context.Context, name string, id identity.Identity) error {
	if name == "" || id.RemoteID == "" {
		return fmt.Errorf("identity for %q: name and remote id are required", name)
	}
	return s.persist(ctx, func(entries map[string]identity.Identity) {
		entries[name] = id
	})
}

func (s *annotationStore) Remove(ctx context.Context, name string) error {
	if _, ok := s.entries[name]; !ok {
		return nil
	}
	return s.persist(ctx, func(entries map[string]identity.Identity) {
		delete(entries, name)
	})
}

func (s *annotationStore) List(context.Context) (map[string]identity.Identity, error) {
	return maps.Clone(s.entries), nil
}

// persist applies change to the annotation of the latest version of the route.
func (s *annotationStore) persist(ctx context.Context, change func(map[string]identity.Identity)) error {
	var latest map[string]identity.Identity
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var route gatewayv1.HTTPRoute
		if err := s.reader.Get(ctx, s.key, &route); err != nil {
			return err
		}
		entries, err := decodeIdentities(route.Annotations[identitiesAnnotation])
		if err != nil {
			return err
		}
		change(entries)

		if route.Annotations == nil {
			route.Annotations = make(map[string]string)
		}
		if len(entries) == 0 {
			delete(route.Annotations, identitiesAnnotation)
		} else {
			data, err := json.Marshal(entries)
			if err != nil {
				return err
			}
			route.Annotations[identitiesAnnotation] = string(data)
		}
		if err := s.writer.Update(ctx, &route); err != nil {
			return err
		}
		latest = entries
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating %s annotation: %w", identitiesAnnotation, err)
	}
	s.entries = latest
	return nil
}

var _ identity.Store = (*annotationStore)(nil)
