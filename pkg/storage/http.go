package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"wslrocky/pkg/errors"
)

// HTTPClient downloads assets over plain HTTP(S)
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP download client
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{client: http.DefaultClient}
}

// Download performs a GET against url and writes the body to localPath,
// computing the SHA256 of the streamed bytes
func (c *HTTPClient) Download(ctx context.Context, url, localPath string) (*DownloadResult, error) {
	slog.Info("http_download_start", "url", url, "local_path", localPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("http_download_failed", "url", url, "error", err)
		return nil, errors.Wrap(err, "download request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("http_download_bad_status", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("download failed: %s returned %s", url, resp.Status)
	}

	res, err := writeWithChecksum(resp.Body, localPath)
	if err != nil {
		slog.Error("http_download_write_failed", "url", url, "error", err)
		return nil, err
	}

	slog.Info("http_download_complete",
		"url", url,
		"size_mb", res.Size/1024/1024,
		"sha256", res.SHA256[:16]+"...",
	)

	return res, nil
}
