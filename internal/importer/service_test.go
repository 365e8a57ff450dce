package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

func TestService_Start_AlreadyRunning(t *testing.T) {
	t.Parallel()

	runs := newMockRunState()
	runs.held[MarkerName] = true

	p := newTestPipeline(newMockAuthorRepo(), newMockBookRepo(), runs, nil, testDumpConfig())
	svc := NewService(testLogger(), p, runs)

	result, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusAlreadyRunning {
		t.Errorf("expected %q, got %q", StatusAlreadyRunning, result.Status)
	}
	if result.JobID != "" {
		t.Errorf("a rejected trigger must not mint a job id, got %q", result.JobID)
	}
}

func TestService_StartAndPollStatus(t *testing.T) {
	t.Parallel()

	dumps := map[string][]byte{
		"authors": gzipContent(t,
			dumpLine("/type/author", "/authors/OL1A", `{"key": "/authors/OL1A", "name": "Frank Herbert"}`),
		),
		"works": gzipContent(t,
			dumpLine("/type/work", "/works/OL1W", `{"key": "/works/OL1W", "title": "Dune"}`),
		),
	}
	server := dumpServer(t, dumps)
	defer server.Close()

	cfg := testDumpConfig()
	cfg.WikidataEnabled = false
	cfg.EditionsEnabled = false
	cfg.RatingsEnabled = false
	cfg.ReadingLogEnabled = false

	runs := newMockRunState()
	dl := NewDownloader(testLogger(), server.URL, t.TempDir(), 0)
	p := newTestPipeline(newMockAuthorRepo(), newMockBookRepo(), runs, dl, cfg)
	svc := NewService(testLogger(), p, runs)

	result, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusStarted || result.JobID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	jobID, err := uuid.Parse(result.JobID)
	if err != nil {
		t.Fatalf("job id is not a uuid: %v", err)
	}

	// The run proceeds in the background; poll until the summary lands.
	deadline := time.Now().Add(10 * time.Second)
	for {
		status, err := svc.Status(context.Background(), jobID)
		if err == nil && strings.HasPrefix(status, "Complete: ") {
			break
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("status query failed: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("run did not complete, last status %q (err %v)", status, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if held, _ := runs.MarkerHeld(context.Background(), MarkerName); held {
		t.Error("marker must be released after the background run")
	}
}

func TestService_Status_Unknown(t *testing.T) {
	t.Parallel()

	runs := newMockRunState()
	p := newTestPipeline(newMockAuthorRepo(), newMockBookRepo(), runs, nil, testDumpConfig())
	svc := NewService(testLogger(), p, runs)

	_, err := svc.Status(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
