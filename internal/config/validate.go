package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Dump.validate(); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	if c.Cleanup.MinBookScore < 0 {
		return fmt.Errorf("cleanup: min_book_score must be >= 0 (got %d)", c.Cleanup.MinBookScore)
	}
	if c.Cleanup.DeleteBatchLimit <= 0 {
		return fmt.Errorf("cleanup: delete_batch_limit must be > 0 (got %d)", c.Cleanup.DeleteBatchLimit)
	}

	return nil
}

func (d *DumpConfig) validate() error {
	u, err := url.Parse(d.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not a valid absolute URL", d.BaseURL)
	}

	if d.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", d.BatchSize)
	}
	if d.CommitInterval <= 0 {
		return fmt.Errorf("commit_interval must be > 0 (got %d)", d.CommitInterval)
	}
	if d.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0 (got %d)", d.ChunkSize)
	}
	if d.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be > 0 (got %v)", d.DownloadTimeout)
	}

	return nil
}
