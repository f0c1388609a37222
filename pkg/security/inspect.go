package security

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"log/slog"
	"os"
	"strings"

	"wslrocky/pkg/errors"
)

// InspectArchive walks the members of a rootfs archive without extracting
// anything, validating paths, symlink targets, and declared sizes. The
// actual extraction happens inside wsl.exe at import time.
//
// Only .tar and .tar.gz archives are walked; other formats (e.g. .tar.xz)
// get the archive size check alone.
func InspectArchive(archivePath string, validator *Validator) error {
	fi, err := os.Stat(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to stat archive")
	}

	if err := validator.ValidateArchiveSize(fi.Size()); err != nil {
		return err
	}

	if !strings.HasSuffix(archivePath, ".tar") && !strings.HasSuffix(archivePath, ".tar.gz") {
		slog.Info("archive_inspection_shallow", "path", archivePath, "reason", "unwalkable format")
		return nil
	}

	validator.Reset()

	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(archivePath, ".tar.gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "failed to open gzip stream")
		}
		defer gz.Close()
		reader = gz
	}

	tarReader := tar.NewReader(reader)
	members := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "tar read error")
		}

		if err := validator.ValidatePath(header.Name); err != nil {
			return errors.Wrap(err, "invalid path in archive")
		}

		switch header.Typeflag {
		case tar.TypeReg:
			if err := validator.AddInspectedSize(header.Size); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := validator.ValidateSymlink(header.Name, header.Linkname); err != nil {
				return errors.Wrap(err, "invalid symlink target")
			}
		}

		members++
	}

	if err := validator.ValidateCompressionRatio(fi.Size(), validator.CurrentTotalSize()); err != nil {
		return err
	}

	slog.Info("archive_inspection_complete",
		"path", archivePath,
		"members", members,
		"declared_size_mb", validator.CurrentTotalSize()/1024/1024)

	return nil
}
