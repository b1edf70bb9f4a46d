// Package automation orchestrates complete EVTrack workflows: one
// browsing session per call, progress reporting along the way, and a
// run-history row at the end.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evtrack-backend/lib/runlog"
	"evtrack-backend/lib/scrapers/evtrack"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/automation")

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// TimeoutSeconds bounds individual page fetches, not workflows.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// ErrVisitorNotFound is returned when even the relaxed search cannot
// locate the requested record.
var ErrVisitorNotFound = fmt.Errorf("visitor not found")

// InputError marks request-level validation failures so the facade can
// map them to a 400 without string matching.
type InputError struct {
	Reason string
}

func (e InputError) Error() string {
	return e.Reason
}

// Progress is one step report: how far along the workflow is and what it
// is doing.
type Progress struct {
	Percent int    `json:"percent"`
	Status  string `json:"status"`
}

// ProgressFunc receives step reports for a single invocation. A nil
// func is a valid no-op listener.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(percent int, status string) {
	slog.Debug("workflow progress", "percent", percent, "status", status)
	if f != nil {
		f(Progress{Percent: percent, Status: status})
	}
}

type Service struct {
	config Config
	runs   runlog.Store

	// replaced by tests to observe session lifecycles
	newClient func() (*evtrack.Client, error)
}

func NewService(config Config, runs runlog.Store) *Service {
	s := &Service{config: config, runs: runs}
	s.newClient = func() (*evtrack.Client, error) {
		return evtrack.NewClient(evtrack.ClientOptions{
			BaseUrl: config.BaseUrl,
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		})
	}
	return s
}

// session provisions a fresh signed-in client. The caller owns the
// returned client and must Close it, error paths included.
func (s *Service) session(ctx context.Context, progress ProgressFunc) (*evtrack.Client, error) {
	progress.report(10, "starting session")
	client, err := s.newClient()
	if err != nil {
		return nil, err
	}

	progress.report(25, "logging in")
	if err := client.Login(ctx, s.config.Username, s.config.Password); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// record writes a run-history row. History failures never fail the
// workflow they describe.
func (s *Service) record(ctx context.Context, entry runlog.Entry) {
	if err := s.runs.Record(ctx, entry); err != nil {
		slog.Warn("failed to record run history", "workflow", entry.Workflow, "err", err)
	}
}

func outcomeString(err error, result evtrack.SaveResult) string {
	switch {
	case err == nil:
		return result.Outcome.String()
	case errors.Is(err, ErrVisitorNotFound):
		return "not-found"
	default:
		return "error"
	}
}

// findVisitor resolves a search term to a row via the relaxed search.
func findVisitor(ctx context.Context, client *evtrack.Client, term string, progress ProgressFunc) (evtrack.Visitor, error) {
	if term == "" {
		return evtrack.Visitor{}, InputError{Reason: "a search term is required"}
	}
	progress.report(50, "searching for visitor")
	result, err := client.SearchVisitorsRelaxed(ctx, term)
	if err != nil {
		return evtrack.Visitor{}, err
	}
	if !result.Found {
		return evtrack.Visitor{}, ErrVisitorNotFound
	}
	return result.Visitor, nil
}
