// Package dump reads Open Library bulk dump files: gzip-compressed,
// one record per line, tab-separated columns. The main dump format is
// (type, key, revision, timestamp, JSON); ratings and reading-log dumps
// are plain 3-column TSV.
package dump

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
)

const (
	// queueDepth bounds the batch channel. A slow consumer blocks the
	// decode goroutine on send instead of growing memory.
	queueDepth = 100

	// maxLineSize is the scanner buffer limit (16 MB). Some edition
	// records carry very large table-of-contents blobs.
	maxLineSize = 16 << 20

	dumpColumns = 5
)

// Reader streams batches of raw JSON records of a single record type out of
// a dump file. Decompression, line splitting, type filtering and JSON
// validation run on a dedicated goroutine; the consumer receives batches
// from Batches(). The sequence is finite and non-restartable.
type Reader struct {
	batches chan [][]byte
	err     error
}

// Open starts streaming records whose first column equals recordType
// (e.g. "/type/author"). Batches carry up to batchSize records each.
// Malformed lines — wrong column count or invalid JSON — are skipped;
// best-effort parsing is intentional for these dumps.
func Open(path, recordType string, batchSize int) (*Reader, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip reader: %w", err)
	}

	r := &Reader{batches: make(chan [][]byte, queueDepth)}
	go r.run(f, gz, recordType, batchSize)
	return r, nil
}

// Batches returns the batch channel. It is closed after the last batch;
// check Err afterwards.
func (r *Reader) Batches() <-chan [][]byte {
	return r.batches
}

// Err reports a decode-side failure (truncated gzip stream, oversized
// line). Valid only after Batches() has been drained.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) run(f *os.File, gz *gzip.Reader, recordType string, batchSize int) {
	defer close(r.batches)
	defer f.Close()
	defer gz.Close()

	tag := []byte(recordType)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	batch := make([][]byte, 0, batchSize)
	for scanner.Scan() {
		line := scanner.Bytes()

		parts := bytes.SplitN(line, []byte{'\t'}, dumpColumns)
		if len(parts) != dumpColumns {
			continue
		}
		if !bytes.Equal(parts[0], tag) {
			continue
		}
		if !json.Valid(parts[4]) {
			continue
		}

		// The scanner reuses its buffer; records must be copied out.
		record := make([]byte, len(parts[4]))
		copy(record, parts[4])

		batch = append(batch, record)
		if len(batch) >= batchSize {
			r.batches <- batch
			batch = make([][]byte, 0, batchSize)
		}
	}

	if err := scanner.Err(); err != nil {
		r.err = fmt.Errorf("scan dump: %w", err)
		return
	}

	if len(batch) > 0 {
		r.batches <- batch
	}
}
