package wsl

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeManager records Exec invocations and can fail selected steps
type fakeManager struct {
	execCalls [][]string
	failOn    map[string]error
}

func (f *fakeManager) Version(ctx context.Context) (string, error)                 { return "2.0.0", nil }
func (f *fakeManager) SetDefaultVersion(ctx context.Context, version int) error    { return nil }
func (f *fakeManager) InstallKernelUpdate(ctx context.Context, pkg string) error   { return nil }
func (f *fakeManager) Import(ctx context.Context, name, dir, archive string) error { return nil }
func (f *fakeManager) IsRegistered(ctx context.Context, name string) (bool, error) { return true, nil }
func (f *fakeManager) Unregister(ctx context.Context, name string) error           { return nil }

func (f *fakeManager) Exec(ctx context.Context, distroName string, argv ...string) error {
	f.execCalls = append(f.execCalls, argv)
	if err := f.failOn[argv[0]]; err != nil {
		return err
	}
	return nil
}

func TestDefaultLocaleSteps(t *testing.T) {
	steps := DefaultLocaleSteps("en_US")

	if len(steps) != 4 {
		t.Fatalf("expected 4 locale steps, got %d", len(steps))
	}

	wantOrder := []string{"package_index_update", "locale_package_install", "locale_generate", "environment_reload"}
	for i, name := range wantOrder {
		if steps[i].Name != name {
			t.Errorf("step %d: expected %s, got %s", i, name, steps[i].Name)
		}
	}

	if !strings.Contains(strings.Join(steps[1].Argv, " "), "glibc-langpack-en") {
		t.Errorf("install step should name the langpack, got %v", steps[1].Argv)
	}
}

func TestConfigureLocale_AllStepsRun(t *testing.T) {
	mgr := &fakeManager{}

	results := ConfigureLocale(context.Background(), mgr, "RockyLinux", DefaultLocaleSteps("en_US"))

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if len(mgr.execCalls) != 4 {
		t.Errorf("expected 4 exec calls, got %d", len(mgr.execCalls))
	}
	if FailedSteps(results) != 0 {
		t.Errorf("expected no failures, got %d", FailedSteps(results))
	}
}

func TestConfigureLocale_FailureDoesNotHalt(t *testing.T) {
	mgr := &fakeManager{failOn: map[string]error{
		"dnf": fmt.Errorf("no network"),
	}}

	results := ConfigureLocale(context.Background(), mgr, "RockyLinux", DefaultLocaleSteps("en_US"))

	// Both dnf steps fail, the remaining two still run.
	if len(mgr.execCalls) != 4 {
		t.Errorf("a failed step must not halt the sequence, got %d calls", len(mgr.execCalls))
	}
	if FailedSteps(results) != 2 {
		t.Errorf("expected 2 failed steps, got %d", FailedSteps(results))
	}
}
