// Package fsm implements the WSL provisioning finite state machine workflow.
// It orchestrates feature enablement, the conditional restart, asset download,
// distribution import, shortcut creation, and locale configuration using the
// superfly/fsm library. The FSM journal survives the feature-enable reboot,
// so the resume command can pick the workflow up where it left off.
package fsm

import (
	"context"

	"github.com/superfly/fsm"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
	"wslrocky/pkg/restart"
	"wslrocky/pkg/security"
	"wslrocky/pkg/shortcut"
	"wslrocky/pkg/storage"
	"wslrocky/pkg/winfeature"
	"wslrocky/pkg/wsl"
)

// Machine holds dependencies for FSM transitions
type Machine struct {
	repo        *db.Repository
	fetcher     *storage.Fetcher
	validator   *security.Validator
	gate        *winfeature.Gate
	wslMgr      wsl.Manager
	coordinator *restart.Coordinator
	shortcuts   shortcut.Installer
	workDir     string
	locale      string
	maxRetries  int
}

// NewMachine creates a new FSM machine with dependencies
func NewMachine(
	repo *db.Repository,
	fetcher *storage.Fetcher,
	validator *security.Validator,
	gate *winfeature.Gate,
	wslMgr wsl.Manager,
	coordinator *restart.Coordinator,
	shortcuts shortcut.Installer,
	workDir string,
	locale string,
	maxRetries int,
) *Machine {
	return &Machine{
		repo:        repo,
		fetcher:     fetcher,
		validator:   validator,
		gate:        gate,
		wslMgr:      wslMgr,
		coordinator: coordinator,
		shortcuts:   shortcuts,
		workDir:     workDir,
		locale:      locale,
		maxRetries:  maxRetries,
	}
}

// Register registers the provisioning FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[ProvisionRequest, ProvisionResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[ProvisionRequest, ProvisionResponse](manager, "wsl-provision").
		Start(StateCheckDB, m.handleCheckDB).
		To(StateEnsureFeatures, m.handleEnsureFeatures).
		To(StateFetchAssets, m.handleFetchAssets).
		To(StateInspectArchive, m.handleInspectArchive).
		To(StateImportDistro, m.handleImportDistro).
		To(StateInstallLaunch, m.handleInstallLauncher).
		To(StateConfigLocale, m.handleConfigureLocale).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
