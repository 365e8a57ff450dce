package dump

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"strings"
)

// ReadTSV scans a gzip-compressed TSV file line by line and calls fn for
// every line with at least minCols columns. Shorter lines are skipped.
// fn may return an error to abort the scan.
//
// Ratings and reading-log dumps are small enough that the goroutine
// machinery of Reader is not worth it here.
func ReadTSV(path string, minCols int, fn func(cols []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tsv: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < minCols {
			continue
		}
		if err := fn(cols); err != nil {
			return err
		}
	}
	return scanner.Err()
}
