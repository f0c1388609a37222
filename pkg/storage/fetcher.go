// Package storage fetches provisioning assets (rootfs archive, kernel
// update package) from HTTPS URLs or an anonymous S3 mirror, with an
// overwrite prompt when a local copy already exists.
package storage

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"wslrocky/pkg/errors"
)

// DownloadResult contains download metadata
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64

	// Skipped is true when an existing local copy was kept
	Skipped bool
}

// Downloader fetches a single asset to a local path
type Downloader interface {
	Download(ctx context.Context, source, localPath string) (*DownloadResult, error)
}

// existenceChecker is implemented by download clients that can probe for
// an object without transferring it
type existenceChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Fetcher routes asset URLs to the right download client and honors the
// overwrite prompt for existing local copies
type Fetcher struct {
	http Downloader
	s3   Downloader
	in   io.Reader
	out  io.Writer

	// keepExisting skips the prompt and never redownloads (non-interactive runs)
	keepExisting bool
}

// NewFetcher creates a fetcher. s3 may be nil when no mirror is configured.
func NewFetcher(http, s3 Downloader, in io.Reader, out io.Writer, keepExisting bool) *Fetcher {
	return &Fetcher{http: http, s3: s3, in: in, out: out, keepExisting: keepExisting}
}

// Fetch downloads rawURL to localPath. If the file already exists the
// operator is prompted once; only the exact answer "y" redownloads,
// anything else keeps the local copy and performs zero download calls.
// A missing file is downloaded unconditionally.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, localPath string) (*DownloadResult, error) {
	if _, err := os.Stat(localPath); err == nil {
		if !f.overwrite(localPath) {
			slog.Info("fetch_skipped_existing", "local_path", localPath)
			return existingResult(localPath)
		}
		slog.Info("fetch_overwriting_existing", "local_path", localPath)
	}

	client, source, err := f.route(rawURL)
	if err != nil {
		return nil, err
	}

	// Mirrors that support it are probed before transfer.
	if checker, ok := client.(existenceChecker); ok {
		found, err := checker.Exists(ctx, source)
		if err != nil {
			return nil, errors.Wrap(err, "mirror existence check failed")
		}
		if !found {
			return nil, fmt.Errorf("asset %q not found in mirror", rawURL)
		}
	}

	return client.Download(ctx, source, localPath)
}

// overwrite asks the operator whether to replace an existing local copy.
// The answer is case-sensitive: only "y" overwrites.
func (f *Fetcher) overwrite(localPath string) bool {
	if f.keepExisting {
		return false
	}

	fmt.Fprintf(f.out, "%s already exists. Download again? [y/N]: ", localPath)

	answer := ""
	scanner := bufio.NewScanner(f.in)
	if scanner.Scan() {
		answer = strings.TrimSpace(scanner.Text())
	}
	return answer == "y"
}

// route picks the download client for a URL scheme
func (f *Fetcher) route(rawURL string) (Downloader, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", errors.Wrapf(err, "invalid asset URL %q", rawURL)
	}

	switch u.Scheme {
	case "http", "https":
		return f.http, rawURL, nil
	case "s3":
		if f.s3 == nil {
			return nil, "", fmt.Errorf("s3 URL %q but no mirror configured", rawURL)
		}
		return f.s3, strings.TrimPrefix(u.Path, "/"), nil
	default:
		return nil, "", fmt.Errorf("unsupported asset URL scheme %q", u.Scheme)
	}
}

// existingResult builds a DownloadResult from a kept local copy
func existingResult(localPath string) (*DownloadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open existing file")
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash existing file")
	}

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    hex.EncodeToString(hash.Sum(nil)),
		Size:      size,
		Skipped:   true,
	}, nil
}
