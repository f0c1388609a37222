package fsm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/superfly/fsm"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
	"wslrocky/pkg/restart"
	"wslrocky/pkg/security"
	"wslrocky/pkg/shortcut"
	"wslrocky/pkg/wsl"
)

// retryExceeded enforces the per-state retry ceiling
func (m *Machine) retryExceeded(ctx context.Context, distroName string) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "distro", distroName, "max_retries", m.maxRetries)
		return fmt.Errorf("max retries (%d) exceeded", m.maxRetries)
	}
	return nil
}

// handleCheckDB checks if the instance already exists in the database (idempotency)
func (m *Machine) handleCheckDB(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_check_db", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	inst, err := m.repo.GetByName(req.Msg.DistroName)
	if err != nil {
		slog.Error("database_check_failed", "distro", req.Msg.DistroName, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "database error"))
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &ProvisionResponse{}
	}

	if inst != nil {
		resp.InstanceID = inst.ID
		resp.ArchiveSHA256 = inst.ArchiveSHA256
		resp.InstallDir = inst.InstallDir
		resp.Status = inst.Status

		if inst.Status == db.StatusReady {
			// Later states pass through on a ready instance.
			slog.Info("instance_already_ready", "distro", req.Msg.DistroName, "instance_id", inst.ID)
			return fsm.NewResponse(resp), nil
		}
		slog.Info("instance_found_continue_provisioning", "distro", req.Msg.DistroName, "instance_id", inst.ID, "status", inst.Status)
	} else {
		inst = &db.Instance{
			DistroName: req.Msg.DistroName,
			ImageURL:   req.Msg.ImageURL,
			Status:     db.StatusPending,
		}
		if err := m.repo.Create(inst); err != nil {
			slog.Error("create_instance_failed", "distro", req.Msg.DistroName, "error", err)
			return nil, errors.Wrap(err, "failed to create instance record")
		}
		resp.InstanceID = inst.ID
	}

	return fsm.NewResponse(resp), nil
}

// handleEnsureFeatures runs the feature gate and coordinates the restart.
// A confirmed restart ends this process before the state completes; the
// resume command re-drives the machine after reboot and re-enters the gate.
func (m *Machine) handleEnsureFeatures(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_ensure_features", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	decision, err := m.gate.Ensure(ctx)
	if err != nil {
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "feature enablement failed"))
	}

	state, err := m.coordinator.Resolve(ctx, decision)
	if err != nil {
		return nil, errors.Wrap(err, "restart coordination failed")
	}
	resp.RestartState = string(state)

	switch state {
	case restart.StateConfirmed:
		// The machine reboots in a few seconds. Leave an audit row so the
		// resume command can close it out, then end the process: this state
		// must not complete with features still pending, so the resumed run
		// re-enters the gate and finds them enabled.
		if _, err := m.repo.RecordRestart(ctx, req.Msg.DistroName); err != nil {
			slog.Warn("restart_audit_failed", "distro", req.Msg.DistroName, "error", err)
		}
		slog.Info("restart_confirmed", "distro", req.Msg.DistroName)
		os.Exit(0)
	case restart.StateDeclined:
		// Known-incomplete continuation: WSL2 features only take effect
		// after a reboot, but the operator chose to press on.
		slog.Warn("continuing_without_restart", "distro", req.Msg.DistroName)
	}

	return fsm.NewResponse(resp), nil
}

// handleFetchAssets downloads the rootfs archive and the kernel update package
func (m *Machine) handleFetchAssets(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_fetch_assets", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	if err := m.repo.UpdateStatus(resp.InstanceID, db.StatusDownloading, ""); err != nil {
		slog.Error("status_update_failed", "instance_id", resp.InstanceID, "error", err)
		return nil, errors.Wrap(err, "failed to update status")
	}

	downloadDir := filepath.Join(m.workDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		slog.Error("download_dir_creation_failed", "path", downloadDir, "error", err)
		return nil, errors.Wrap(err, "failed to create download dir")
	}

	// The rootfs archive is mandatory: nothing after this state makes
	// sense without it.
	archivePath := filepath.Join(downloadDir, filepath.Base(req.Msg.ImageURL))
	result, err := m.fetcher.Fetch(ctx, req.Msg.ImageURL, archivePath)
	if err != nil {
		slog.Error("image_download_failed", "url", req.Msg.ImageURL, "error", err)
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "rootfs download failed"))
	}

	resp.ArchivePath = result.LocalPath
	resp.ArchiveSHA256 = result.SHA256
	resp.ArchiveSize = result.Size

	// The kernel update package is optional: log and continue without it.
	if req.Msg.KernelURL != "" {
		kernelPath := filepath.Join(downloadDir, filepath.Base(req.Msg.KernelURL))
		if kresult, err := m.fetcher.Fetch(ctx, req.Msg.KernelURL, kernelPath); err != nil {
			slog.Warn("kernel_download_failed", "url", req.Msg.KernelURL, "error", err)
		} else {
			resp.KernelPath = kresult.LocalPath
		}
	}

	inst, _ := m.repo.GetByName(req.Msg.DistroName)
	if inst != nil {
		inst.ArchiveSHA256 = result.SHA256
		inst.ArchivePath = result.LocalPath
		if err := m.repo.Update(inst); err != nil {
			slog.Error("instance_update_failed", "instance_id", inst.ID, "error", err)
			return nil, errors.Wrap(err, "failed to update instance")
		}
	}

	return fsm.NewResponse(resp), nil
}

// handleInspectArchive validates the downloaded archive before import
func (m *Machine) handleInspectArchive(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_inspect_archive", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	if err := security.InspectArchive(resp.ArchivePath, m.validator); err != nil {
		slog.Error("archive_inspection_failed", "distro", req.Msg.DistroName, "error", err)
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "archive inspection failed"))
	}

	return fsm.NewResponse(resp), nil
}

// handleImportDistro installs the kernel update, copies the archive into the
// backing folder, imports it as a named distribution, and deletes the copy
func (m *Machine) handleImportDistro(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_import_distro", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	if resp.KernelPath != "" {
		if err := m.wslMgr.InstallKernelUpdate(ctx, resp.KernelPath); err != nil {
			slog.Warn("kernel_update_failed", "package", resp.KernelPath, "error", err)
		}
	}

	// A failed version query is a negative result, not an error.
	if version, _ := m.wslMgr.Version(ctx); version != "" {
		slog.Info("wsl_detected", "version", version)
	}

	if err := m.wslMgr.SetDefaultVersion(ctx, 2); err != nil {
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "failed to set default WSL version"))
	}

	installDir := resp.InstallDir
	if installDir == "" {
		installDir = filepath.Join(m.workDir, "instances", req.Msg.DistroName)
	}
	if err := os.MkdirAll(installDir, 0755); err != nil {
		slog.Error("install_dir_creation_failed", "path", installDir, "error", err)
		return nil, errors.Wrap(err, "failed to create install dir")
	}

	// The archive is staged into the backing folder and removed after a
	// successful import. No rollback on partial failure.
	stagedArchive := filepath.Join(installDir, filepath.Base(resp.ArchivePath))
	if err := copyFile(resp.ArchivePath, stagedArchive); err != nil {
		slog.Error("archive_staging_failed", "source", resp.ArchivePath, "dest", stagedArchive, "error", err)
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "archive staging failed"))
	}

	if err := m.wslMgr.Import(ctx, req.Msg.DistroName, installDir, stagedArchive); err != nil {
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "wsl import failed"))
	}

	if err := os.Remove(stagedArchive); err != nil {
		slog.Warn("staged_archive_removal_failed", "path", stagedArchive, "error", err)
	}

	resp.InstallDir = installDir

	inst, _ := m.repo.GetByName(req.Msg.DistroName)
	if inst != nil {
		inst.InstallDir = installDir
		inst.Status = db.StatusImported
		if err := m.repo.Update(inst); err != nil {
			return nil, errors.Wrap(err, "failed to update instance")
		}
	}

	return fsm.NewResponse(resp), nil
}

// handleInstallLauncher creates the desktop shortcut for the imported instance
func (m *Machine) handleInstallLauncher(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_install_launcher", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	spec := shortcut.Spec{
		Name:        req.Msg.DistroName,
		Target:      "wsl.exe",
		Args:        []string{"-d", req.Msg.DistroName},
		Description: fmt.Sprintf("Launch the %s WSL instance", req.Msg.DistroName),
	}
	if err := m.shortcuts.Install(ctx, spec); err != nil {
		m.repo.UpdateStatus(resp.InstanceID, db.StatusFailed, err.Error())
		return nil, fsm.Abort(errors.Wrap(err, "shortcut creation failed"))
	}

	return fsm.NewResponse(resp), nil
}

// handleConfigureLocale runs the fixed locale sequence inside the instance.
// Step failures are logged and counted but never halt the sequence.
func (m *Machine) handleConfigureLocale(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_configure_locale", "distro", req.Msg.DistroName, "locale", m.locale)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Status == db.StatusReady {
		return fsm.NewResponse(resp), nil
	}

	results := wsl.ConfigureLocale(ctx, m.wslMgr, req.Msg.DistroName, wsl.DefaultLocaleSteps(m.locale))
	resp.LocaleFailures = wsl.FailedSteps(results)

	if resp.LocaleFailures > 0 {
		slog.Warn("locale_configuration_incomplete",
			"distro", req.Msg.DistroName,
			"failed_steps", resp.LocaleFailures,
			"total_steps", len(results))
	}

	return fsm.NewResponse(resp), nil
}

// handleComplete marks the instance ready
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	slog.Info("fsm_state_complete", "distro", req.Msg.DistroName)

	if err := m.retryExceeded(ctx, req.Msg.DistroName); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &ProvisionResponse{}
	}

	if resp.Status != db.StatusReady {
		errMsg := ""
		if resp.LocaleFailures > 0 {
			errMsg = fmt.Sprintf("%d locale step(s) failed", resp.LocaleFailures)
		}
		if err := m.repo.UpdateStatus(resp.InstanceID, db.StatusReady, errMsg); err != nil {
			slog.Error("status_update_failed", "instance_id", resp.InstanceID, "error", err)
			return nil, errors.Wrap(err, "failed to update status")
		}
	}
	resp.Status = db.StatusReady

	slog.Info("fsm_complete", "distro", req.Msg.DistroName, "status", db.StatusReady)

	return fsm.NewResponse(resp), nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
