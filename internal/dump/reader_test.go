package dump

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, lines []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dump.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	return path
}

func dumpLine(recordType, key, payload string) string {
	return strings.Join([]string{recordType, key, "3", "2024-01-01T00:00:00", payload}, "\t")
}

func drain(t *testing.T, r *Reader) [][][]byte {
	t.Helper()

	var batches [][][]byte
	for b := range r.Batches() {
		batches = append(batches, b)
	}
	require.NoError(t, r.Err())
	return batches
}

func TestReader_BatchesAndFinalPartial(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, dumpLine("/type/author", fmt.Sprintf("/authors/OL%dA", i), fmt.Sprintf(`{"name":"a%d"}`, i)))
	}
	path := writeGzip(t, lines)

	r, err := Open(path, "/type/author", 2)
	require.NoError(t, err)

	batches := drain(t, r)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, `{"name":"a0"}`, string(batches[0][0]))
	assert.Equal(t, `{"name":"a4"}`, string(batches[2][0]))
}

func TestReader_FiltersByRecordType(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, []string{
		dumpLine("/type/author", "/authors/OL1A", `{"name":"keep"}`),
		dumpLine("/type/work", "/works/OL1W", `{"title":"drop"}`),
		dumpLine("/type/edition", "/books/OL1M", `{"title":"drop"}`),
		dumpLine("/type/author", "/authors/OL2A", `{"name":"keep too"}`),
	})

	r, err := Open(path, "/type/author", 10)
	require.NoError(t, err)

	batches := drain(t, r)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, `{"name":"keep"}`, string(batches[0][0]))
	assert.Equal(t, `{"name":"keep too"}`, string(batches[0][1]))
}

func TestReader_SkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, []string{
		"too\tfew\tcolumns",
		dumpLine("/type/author", "/authors/OL1A", `{"name":"ok"}`),
		dumpLine("/type/author", "/authors/OL2A", `{"name":"broken`),
		"",
	})

	r, err := Open(path, "/type/author", 10)
	require.NoError(t, err)

	batches := drain(t, r)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, `{"name":"ok"}`, string(batches[0][0]))
}

func TestReader_EmptyDump(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, nil)

	r, err := Open(path, "/type/work", 10)
	require.NoError(t, err)

	batches := drain(t, r)
	assert.Empty(t, batches)
}

func TestReader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope.gz"), "/type/work", 10)
	assert.Error(t, err)
}

func TestReadTSV(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, []string{
		"/works/OL1W\t\t4\t2020-01-01",
		"short",
		"/works/OL2W\t/books/OL2M\t5\t2020-01-02",
	})

	var got [][]string
	err := ReadTSV(path, 3, func(cols []string) error {
		got = append(got, cols)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/works/OL1W", got[0][0])
	assert.Equal(t, "5", got[1][2])
}

func TestReadTSV_CallbackError(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, []string{
		"a\tb\tc",
		"d\te\tf",
	})

	boom := errors.New("boom")
	calls := 0
	err := ReadTSV(path, 3, func([]string) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
