package fsm

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/superfly/fsm"
	"wslrocky/pkg/db"
	"wslrocky/pkg/restart"
	"wslrocky/pkg/security"
	"wslrocky/pkg/shortcut"
	"wslrocky/pkg/storage"
	"wslrocky/pkg/winfeature"
	"wslrocky/pkg/wsl"
)

// scriptedFeatures reports canned feature states and records enable calls
type scriptedFeatures struct {
	enabled map[string]bool
	checks  int
	enables []string
}

func (s *scriptedFeatures) Enabled(ctx context.Context, name string) (bool, error) {
	s.checks++
	return s.enabled[name], nil
}

func (s *scriptedFeatures) Enable(ctx context.Context, name string) error {
	s.enables = append(s.enables, name)
	return nil
}

var _ wsl.Manager = (*recordingWSL)(nil)

// recordingWSL records wsl.Manager calls in invocation order
type recordingWSL struct {
	calls      []string
	importName string
	importDir  string
	importSrc  string
}

func (r *recordingWSL) Version(ctx context.Context) (string, error) {
	r.calls = append(r.calls, "version")
	return "2.0.0", nil
}

func (r *recordingWSL) SetDefaultVersion(ctx context.Context, version int) error {
	r.calls = append(r.calls, "set_default_version")
	return nil
}

func (r *recordingWSL) InstallKernelUpdate(ctx context.Context, pkg string) error {
	r.calls = append(r.calls, "install_kernel_update")
	return nil
}

func (r *recordingWSL) Import(ctx context.Context, name, dir, archive string) error {
	r.calls = append(r.calls, "import")
	r.importName, r.importDir, r.importSrc = name, dir, archive
	return nil
}

func (r *recordingWSL) IsRegistered(ctx context.Context, name string) (bool, error) {
	r.calls = append(r.calls, "is_registered")
	return true, nil
}

func (r *recordingWSL) Exec(ctx context.Context, distroName string, argv ...string) error {
	r.calls = append(r.calls, "exec")
	return nil
}

func (r *recordingWSL) Unregister(ctx context.Context, name string) error {
	r.calls = append(r.calls, "unregister")
	return nil
}

// recordingInstaller records shortcut specs
type recordingInstaller struct {
	specs []shortcut.Spec
}

func (r *recordingInstaller) Install(ctx context.Context, spec shortcut.Spec) error {
	r.specs = append(r.specs, spec)
	return nil
}

type countingScheduler struct{ schedules, deletes int }

func (c *countingScheduler) ScheduleResume(ctx context.Context, taskName, exePath string, args []string) error {
	c.schedules++
	return nil
}

func (c *countingScheduler) DeleteTask(ctx context.Context, taskName string) error {
	c.deletes++
	return nil
}

type countingRestarter struct{ restarts int }

func (c *countingRestarter) Restart(ctx context.Context) error {
	c.restarts++
	return nil
}

// rootfsArchive builds a minimal tar.gz rootfs in memory
func rootfsArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := []struct{ name, body string }{
		{"etc/os-release", "NAME=\"Rocky Linux\"\n"},
		{"etc/locale.conf", "LANG=C\n"},
	}
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("failed to write tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// TestMachine_HappyPath drives the registered machine through every state
// with both features already enabled and no local archive: two feature
// checks, no enable call, no restart, one download, import from the staged
// copy, one shortcut, four locale commands, and a ready record at the end.
func TestMachine_HappyPath(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()

	repo, err := db.NewRepository(filepath.Join(workDir, "instances.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	archive := rootfsArchive(t)
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(archive)
	}))
	defer server.Close()

	features := &scriptedFeatures{enabled: map[string]bool{
		winfeature.FeatureWSL: true,
		winfeature.FeatureVMP: true,
	}}
	scheduler := &countingScheduler{}
	restarter := &countingRestarter{}
	wslMgr := &recordingWSL{}
	shortcuts := &recordingInstaller{}

	fetcher := storage.NewFetcher(storage.NewHTTPClient(), nil, strings.NewReader(""), &bytes.Buffer{}, false)
	coordinator := restart.NewCoordinator(scheduler, restarter,
		strings.NewReader(""), &bytes.Buffer{},
		`C:\wslrocky.exe`, []string{"resume"}, false)
	validator := security.NewValidator(1<<30, 1<<32, 100)

	machine := NewMachine(repo, fetcher, validator, winfeature.NewGate(features),
		wslMgr, coordinator, shortcuts, workDir, "en_US", 5)

	journalDir := filepath.Join(workDir, "journal")
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		t.Fatalf("failed to create journal dir: %v", err)
	}
	manager, err := fsm.New(fsm.Config{DBPath: journalDir})
	if err != nil {
		t.Fatalf("failed to create FSM manager: %v", err)
	}
	defer manager.Shutdown(5 * time.Second)

	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		t.Fatalf("failed to register machine: %v", err)
	}

	req := &ProvisionRequest{
		DistroName: "RockyLinux",
		ImageURL:   server.URL + "/rocky.tar.gz",
	}
	resp := &ProvisionResponse{}

	version, err := start(ctx, "RockyLinux", fsm.NewRequest(req, resp))
	if err != nil {
		t.Fatalf("failed to start machine: %v", err)
	}
	if err := manager.Wait(ctx, version); err != nil {
		t.Fatalf("machine did not complete: %v", err)
	}

	if features.checks != 2 {
		t.Errorf("expected 2 feature checks, got %d", features.checks)
	}
	if len(features.enables) != 0 {
		t.Errorf("enabled features must not be re-enabled, got %v", features.enables)
	}
	if scheduler.schedules != 0 || restarter.restarts != 0 {
		t.Errorf("no restart expected, got %d schedules and %d restarts", scheduler.schedules, restarter.restarts)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one download call, got %d", hits.Load())
	}

	wantCalls := []string{"version", "set_default_version", "import", "exec", "exec", "exec", "exec"}
	if len(wslMgr.calls) != len(wantCalls) {
		t.Fatalf("wsl call sequence mismatch: got %v, want %v", wslMgr.calls, wantCalls)
	}
	for i, call := range wantCalls {
		if wslMgr.calls[i] != call {
			t.Errorf("wsl call %d: got %s, want %s", i, wslMgr.calls[i], call)
		}
	}

	if wslMgr.importName != "RockyLinux" {
		t.Errorf("imported distro name: got %s", wslMgr.importName)
	}
	wantDir := filepath.Join(workDir, "instances", "RockyLinux")
	if wslMgr.importDir != wantDir {
		t.Errorf("backing folder: got %s, want %s", wslMgr.importDir, wantDir)
	}
	if _, err := os.Stat(wslMgr.importSrc); !os.IsNotExist(err) {
		t.Errorf("staged archive should be removed after import: %v", err)
	}

	if len(shortcuts.specs) != 1 {
		t.Fatalf("expected 1 shortcut, got %d", len(shortcuts.specs))
	}
	if shortcuts.specs[0].Name != "RockyLinux" || shortcuts.specs[0].Target != "wsl.exe" {
		t.Errorf("unexpected shortcut spec: %+v", shortcuts.specs[0])
	}

	inst, err := repo.GetByName("RockyLinux")
	if err != nil {
		t.Fatalf("failed to get instance: %v", err)
	}
	if inst == nil {
		t.Fatal("expected an instance record")
	}
	if inst.Status != db.StatusReady {
		t.Errorf("instance status: got %s, want %s", inst.Status, db.StatusReady)
	}
	if inst.InstallDir != wantDir {
		t.Errorf("recorded install dir: got %s, want %s", inst.InstallDir, wantDir)
	}
	if resp.Status != db.StatusReady {
		t.Errorf("response status: got %s, want %s", resp.Status, db.StatusReady)
	}
}
