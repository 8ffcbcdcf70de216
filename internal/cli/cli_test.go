package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/identity"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/reconciler"
)

type fakeClient struct {
	mu      sync.Mutex
	live    map[string]healthcheck.RemoteConfig
	nextID  int
	updates int
	deleted []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{live: map[string]healthcheck.RemoteConfig{}}
}

func (f *fakeClient) Get(_ context.Context, id string) (healthcheck.RemoteConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.live[id]
	if !ok {
		return healthcheck.RemoteConfig{}, healthcheck.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeClient) Create(_ context.Context, _ string, cfg healthcheck.DesiredConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("hc-%d", f.nextID)
	f.live[id] = cfg.Remote()
	return id, nil
}

func (f *fakeClient) Update(_ context.Context, id string, cfg healthcheck.MutableConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	cur := f.live[id]
	cur.Port = cfg.Port
	cur.FailureThreshold = cfg.FailureThreshold
	f.live[id] = cur
	return nil
}

func (f *fakeClient) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; !ok {
		return healthcheck.ErrNotFound
	}
	delete(f.live, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) Tag(context.Context, string, string) error { return nil }

const checksYAML = `health_checks:
  web:
    type: HTTPS
    fqdn: web.example.com
    resource_path: /healthz
  db:
    type: TCP
    ip_address: 192.0.2.20
    port: 5432
`

type testEnv struct {
	dir    string
	checks string
	state  string
	client *fakeClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		checks: filepath.Join(dir, "healthchecks.yaml"),
		state:  filepath.Join(dir, "state.yaml"),
		client: newFakeClient(),
	}
	env.writeChecks(t, checksYAML)
	return env
}

func (e *testEnv) writeChecks(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.checks, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &App{
		Out: &out,
		Log: logr.Discard(),
		NewClient: func(context.Context, logr.Logger) (healthcheck.Client, error) {
			return e.client, nil
		},
	}
	root := NewRootCommand(app)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--checks", e.checks, "--state", e.state}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestApply(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "apply")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"NAME", "db", "web", "created"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	ids, err := identity.NewFile(env.state).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 stored identities, got %v", ids)
	}

	out, err = env.run(t, "apply", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error on second apply: %v", err)
	}
	var outcomes []reconciler.Outcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	for _, o := range outcomes {
		if o.Action != reconciler.ActionUnchanged {
			t.Errorf("%s: expected unchanged on second apply, got %q", o.Name, o.Action)
		}
	}
}

func TestPlanShowsDrift(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env.writeChecks(t, strings.Replace(checksYAML, "port: 5432", "port: 5433", 1))
	out, err := env.run(t, "plan", "db", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outcomes []reconciler.Outcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if len(outcomes) != 1 || outcomes[0].State != reconciler.StatePresentStale {
		t.Fatalf("expected db to be stale, got %+v", outcomes)
	}
	if env.client.updates != 0 {
		t.Error("plan must not update")
	}

	if _, err := env.run(t, "create", "db"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.client.updates != 1 {
		t.Errorf("expected 1 update, got %d", env.client.updates)
	}
}

func TestImmutableChangeExitsWithConfigurationError(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env.writeChecks(t, strings.Replace(checksYAML, "type: TCP", "type: HTTP", 1))
	_, err := env.run(t, "apply")
	if !healthcheck.IsImmutableConflict(err) {
		t.Fatalf("expected immutable conflict, got %v", err)
	}
	if code := ExitCode(err); code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}
}

func TestCreateUnknownName(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "create", "missing")
	if err == nil {
		t.Fatal("expected error for undeclared name")
	}
	if code := ExitCode(err); code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}
}

func TestDeleteAndList(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := env.run(t, "delete", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "deleted") {
		t.Errorf("expected deleted in output, got:\n%s", out)
	}

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "web") || !strings.Contains(out, "db") {
		t.Errorf("expected only db to be listed, got:\n%s", out)
	}

	out, err = env.run(t, "delete", "web")
	if err != nil {
		t.Fatalf("deleting twice must succeed: %v", err)
	}
	if !strings.Contains(out, "skipped") {
		t.Errorf("expected skipped in output, got:\n%s", out)
	}
}

func TestForgetAllowsRecreation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The health check disappears behind hcctl's back
	delete(env.client.live, "hc-2")

	_, err := env.run(t, "create", "web")
	if !healthcheck.IsStaleIdentity(err) {
		t.Fatalf("expected stale identity error, got %v", err)
	}

	out, err := env.run(t, "forget", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "forgot hc-2") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := env.run(t, "create", "web"); err != nil {
		t.Fatalf("unexpected error after forget: %v", err)
	}
	if len(env.client.live) != 2 {
		t.Errorf("expected web to be recreated, got %d live checks", len(env.client.live))
	}
}

func TestApplyPrune(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env.writeChecks(t, "health_checks:\n  db:\n    type: TCP\n    ip_address: 192.0.2.20\n    port: 5432\n")
	if _, err := env.run(t, "apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.client.deleted) != 0 {
		t.Fatal("apply without --prune must not delete")
	}

	if _, err := env.run(t, "apply", "--prune"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.client.deleted) != 1 {
		t.Errorf("expected web to be pruned, got %v", env.client.deleted)
	}
}

func TestStateFromEnv(t *testing.T) {
	env := newTestEnv(t)
	boltPath := filepath.Join(env.dir, "state.db")
	t.Setenv("HCCTL_STATE", boltPath)

	var out bytes.Buffer
	app := &App{
		Out: &out,
		Log: logr.Discard(),
		NewClient: func(context.Context, logr.Logger) (healthcheck.Client, error) {
			return env.client, nil
		},
	}
	root := NewRootCommand(app)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--checks", env.checks, "apply"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(boltPath); err != nil {
		t.Fatalf("expected bbolt state at %s: %v", boltPath, err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("connection reset"), 1},
		{&healthcheck.StaleIdentityError{Name: "web", RemoteID: "hc-1"}, 2},
		{fmt.Errorf("apply: %w", &healthcheck.ImmutableFieldConflictError{Field: healthcheck.FieldType}), 2},
		{&healthcheck.ValidationError{Name: "web", Err: errors.New("port: invalid")}, 2},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
