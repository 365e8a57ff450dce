package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	downloadRetries = 5

	// progressStep is how often download progress is logged, in bytes.
	progressStep = 100 << 20
)

// dumpKinds in phase order. Each maps to one well-known file under the
// configured base URL; the same names key the temp files on disk.
var dumpKinds = []string{"authors", "wikidata", "works", "editions", "ratings", "reading-log"}

// Downloader fetches Open Library bulk dump snapshots over HTTP with
// resume-on-retry. Dumps are multi-gigabyte, so interrupted transfers are
// continued with a Range request rather than restarted.
type Downloader struct {
	log     *slog.Logger
	client  *http.Client
	baseURL string
	tmpDir  string
}

// NewDownloader builds a Downloader. timeout bounds a single whole-file
// transfer attempt, not the sum of retries.
func NewDownloader(log *slog.Logger, baseURL, tmpDir string, timeout time.Duration) *Downloader {
	return &Downloader{
		log:     log.With("component", "downloader"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tmpDir:  tmpDir,
	}
}

// URL returns the snapshot URL for a dump kind.
func (d *Downloader) URL(kind string) string {
	return fmt.Sprintf("%s/ol_dump_%s_latest.txt.gz", d.baseURL, kind)
}

// Path returns the local temp-file path for a dump kind.
func (d *Downloader) Path(kind string) string {
	return filepath.Join(d.tmpDir, fmt.Sprintf("ol_dump_%s.txt.gz", kind))
}

// Fetch downloads the dump for kind into its temp path, resuming a partial
// file from a previous attempt. Returns the local path.
func (d *Downloader) Fetch(ctx context.Context, kind string) (string, error) {
	url := d.URL(kind)
	dest := d.Path(kind)

	var lastErr error
	for attempt := 1; attempt <= downloadRetries; attempt++ {
		if attempt > 1 {
			backoff := retryBackoff(attempt - 1)
			d.log.Warn("retrying download",
				slog.String("kind", kind),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		err := d.fetchOnce(ctx, url, dest)
		if err == nil {
			return dest, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("download %s: %w", url, lastErr)
}

// fetchOnce performs one transfer attempt, appending to whatever part of the
// file is already on disk. A nil return means the file is complete.
func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	var offset int64
	if fi, statErr := os.Stat(dest); statErr == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the Range header; start over.
		offset = 0
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		// Already have the whole file.
		return nil
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	defer f.Close()

	written, copyErr := d.copyWithProgress(f, resp.Body, url, offset)
	if copyErr != nil {
		return fmt.Errorf("copy after %d bytes: %w", offset+written, copyErr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}

	d.log.Info("download complete",
		slog.String("url", url),
		slog.Int64("bytes", offset+written),
	)
	return nil
}

// copyWithProgress copies body to f, logging every progressStep bytes.
func (d *Downloader) copyWithProgress(f *os.File, body io.Reader, url string, offset int64) (int64, error) {
	var written int64
	nextLog := (offset/progressStep + 1) * progressStep
	buf := make([]byte, 1<<20)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)
			if offset+written >= nextLog {
				d.log.Info("downloading",
					slog.String("url", url),
					slog.Int64("mb", (offset+written)>>20),
				)
				nextLog += progressStep
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// removePhaseFile deletes a consumed dump file.
func (d *Downloader) removePhaseFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.log.Warn("temp file cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Cleanup removes the temp files of every dump kind, not just the ones this
// run got to download. Missing files are fine.
func (d *Downloader) Cleanup() {
	for _, kind := range dumpKinds {
		path := d.Path(kind)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Warn("temp file cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
}

// retryBackoff returns the wait before retry n (1-based), capped at 5 minutes.
func retryBackoff(n int) time.Duration {
	backoff := 30 * time.Second << (n - 1)
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}
