package automation

import (
	"context"
	"time"

	"evtrack-backend/lib/runlog"
	"evtrack-backend/lib/scrapers/evtrack"
)

// SaveOutcome is the common result of every mutating workflow.
type SaveOutcome struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	Uuid    string `json:"uuid,omitempty"`
}

func saveOutcome(result evtrack.SaveResult, uuid string) SaveOutcome {
	return SaveOutcome{
		Outcome: result.Outcome.String(),
		Message: result.Message,
		Uuid:    uuid,
	}
}

// CheckLogin verifies the configured credentials against the live site.
func (s *Service) CheckLogin(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "CheckLogin")
	defer span.End()

	client, err := s.session(ctx, nil)
	if err != nil {
		return err
	}
	defer client.Close()
	return nil
}

// FindVisitor runs the relaxed search and returns the matching row, or
// ErrVisitorNotFound.
func (s *Service) FindVisitor(ctx context.Context, term string, progress ProgressFunc) (evtrack.Visitor, error) {
	ctx, span := tracer.Start(ctx, "FindVisitor")
	defer span.End()

	if term == "" {
		return evtrack.Visitor{}, InputError{Reason: "a search term is required"}
	}

	started := time.Now()
	var visitor evtrack.Visitor

	client, err := s.session(ctx, progress)
	if err != nil {
		return visitor, err
	}
	defer client.Close()

	visitor, err = findVisitor(ctx, client, term, progress)
	s.record(ctx, runlog.Entry{
		Workflow:   "find-visitor",
		SearchTerm: term,
		Outcome:    findOutcome(err),
		Detail:     errDetail(err),
		Duration:   time.Since(started),
		StartedAt:  started,
	})
	if err != nil {
		return evtrack.Visitor{}, err
	}
	progress.report(100, "done")
	return visitor, nil
}

// GetVisitor scrapes a profile by its known uuid.
func (s *Service) GetVisitor(ctx context.Context, uuid string) (evtrack.Profile, error) {
	ctx, span := tracer.Start(ctx, "GetVisitor")
	defer span.End()

	if uuid == "" {
		return evtrack.Profile{}, InputError{Reason: "a visitor uuid is required"}
	}

	client, err := s.session(ctx, nil)
	if err != nil {
		return evtrack.Profile{}, err
	}
	defer client.Close()

	return client.VisitorProfile(ctx, uuid)
}

// GetProfile searches by name and scrapes the matching profile.
func (s *Service) GetProfile(ctx context.Context, term string, progress ProgressFunc) (evtrack.Profile, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	if term == "" {
		return evtrack.Profile{}, InputError{Reason: "a search term is required"}
	}

	client, err := s.session(ctx, progress)
	if err != nil {
		return evtrack.Profile{}, err
	}
	defer client.Close()

	visitor, err := findVisitor(ctx, client, term, progress)
	if err != nil {
		return evtrack.Profile{}, err
	}
	progress.report(75, "reading profile")
	profile, err := client.VisitorProfile(ctx, visitor.Uuid)
	if err != nil {
		return evtrack.Profile{}, err
	}
	progress.report(100, "done")
	return profile, nil
}

// CreateVisitor fills a blank profile and saves it.
func (s *Service) CreateVisitor(ctx context.Context, input evtrack.VisitorInput, attachments []evtrack.Attachment, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "CreateVisitor")
	defer span.End()

	if input.FirstName == "" && input.LastName == "" {
		return SaveOutcome{}, InputError{Reason: "a first or last name is required"}
	}

	started := time.Now()
	client, err := s.session(ctx, progress)
	if err != nil {
		return SaveOutcome{}, err
	}
	defer client.Close()

	progress.report(60, "filling profile")
	result, uuid, err := client.CreateVisitor(ctx, input, attachments)
	s.record(ctx, runlog.Entry{
		Workflow:   "create-visitor",
		SearchTerm: input.FirstName + " " + input.LastName,
		Outcome:    outcomeString(err, result),
		Detail:     firstNonEmpty(errDetail(err), result.Message),
		Duration:   time.Since(started),
		StartedAt:  started,
	})
	if err != nil {
		return SaveOutcome{}, err
	}
	progress.report(100, "done")
	return saveOutcome(result, uuid), nil
}

// UpdateVisitor locates a record by search term and edits it in place.
func (s *Service) UpdateVisitor(ctx context.Context, term string, input evtrack.VisitorInput, attachments []evtrack.Attachment, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "UpdateVisitor")
	defer span.End()

	return s.mutateVisitor(ctx, "update-visitor", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "saving profile")
			return client.UpdateVisitor(ctx, uuid, input, attachments)
		})
}

// AddVehicle creates a vehicle on a visitor located by search term.
func (s *Service) AddVehicle(ctx context.Context, term string, input evtrack.VehicleInput, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "AddVehicle")
	defer span.End()

	if err := input.Validate(); err != nil {
		return SaveOutcome{}, InputError{Reason: err.Error()}
	}
	return s.mutateVisitor(ctx, "add-vehicle", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "saving vehicle")
			return client.AddVehicle(ctx, uuid, input)
		})
}

// UpdateVehicle edits the visitor's existing vehicle entry.
func (s *Service) UpdateVehicle(ctx context.Context, term string, input evtrack.VehicleInput, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "UpdateVehicle")
	defer span.End()

	if err := input.Validate(); err != nil {
		return SaveOutcome{}, InputError{Reason: err.Error()}
	}
	return s.mutateVisitor(ctx, "update-vehicle", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "saving vehicle")
			return client.UpdateVehicle(ctx, uuid, input)
		})
}

// AddCredential creates a credential on a visitor located by search term.
func (s *Service) AddCredential(ctx context.Context, term string, input evtrack.CredentialInput, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "AddCredential")
	defer span.End()

	if err := input.Validate(); err != nil {
		return SaveOutcome{}, InputError{Reason: err.Error()}
	}
	return s.mutateVisitor(ctx, "add-credential", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "saving credential")
			return client.AddCredential(ctx, uuid, input)
		})
}

// UpdateCredential edits the visitor's existing credential.
func (s *Service) UpdateCredential(ctx context.Context, term string, input evtrack.CredentialInput, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "UpdateCredential")
	defer span.End()

	if err := input.Validate(); err != nil {
		return SaveOutcome{}, InputError{Reason: err.Error()}
	}
	return s.mutateVisitor(ctx, "update-credential", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "saving credential")
			return client.UpdateCredential(ctx, uuid, input)
		})
}

// InviteVisitor issues an invitation for a visitor located by search
// term.
func (s *Service) InviteVisitor(ctx context.Context, term string, input evtrack.InviteInput, progress ProgressFunc) (SaveOutcome, error) {
	ctx, span := tracer.Start(ctx, "InviteVisitor")
	defer span.End()

	if err := input.Validate(); err != nil {
		return SaveOutcome{}, InputError{Reason: err.Error()}
	}
	return s.mutateVisitor(ctx, "invite-visitor", term, progress,
		func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error) {
			progress.report(75, "generating invite")
			return client.Invite(ctx, uuid, input)
		})
}

// GetBadge fetches the visitor label image for a visitor located by
// search term.
func (s *Service) GetBadge(ctx context.Context, term string, progress ProgressFunc) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "GetBadge")
	defer span.End()

	if term == "" {
		return nil, "", InputError{Reason: "a search term is required"}
	}

	started := time.Now()
	client, err := s.session(ctx, progress)
	if err != nil {
		return nil, "", err
	}
	defer client.Close()

	visitor, err := findVisitor(ctx, client, term, progress)
	if err != nil {
		return nil, "", err
	}

	progress.report(75, "fetching badge")
	data, contentType, err := client.Badge(ctx, visitor.Uuid)
	s.record(ctx, runlog.Entry{
		Workflow:   "get-badge",
		SearchTerm: term,
		Outcome:    findOutcome(err),
		Detail:     errDetail(err),
		Duration:   time.Since(started),
		StartedAt:  started,
	})
	if err != nil {
		return nil, "", err
	}
	progress.report(100, "done")
	return data, contentType, nil
}

// mutateVisitor is the shared search-then-edit skeleton: one session,
// relaxed search, the mutation, a run-history row, teardown in defer.
func (s *Service) mutateVisitor(
	ctx context.Context,
	workflow, term string,
	progress ProgressFunc,
	mutate func(ctx context.Context, client *evtrack.Client, uuid string) (evtrack.SaveResult, error),
) (SaveOutcome, error) {
	if term == "" {
		return SaveOutcome{}, InputError{Reason: "a search term is required"}
	}
	started := time.Now()

	client, err := s.session(ctx, progress)
	if err != nil {
		return SaveOutcome{}, err
	}
	defer client.Close()

	visitor, err := findVisitor(ctx, client, term, progress)
	var result evtrack.SaveResult
	if err == nil {
		result, err = mutate(ctx, client, visitor.Uuid)
	}

	s.record(ctx, runlog.Entry{
		Workflow:   workflow,
		SearchTerm: term,
		Outcome:    outcomeString(err, result),
		Detail:     firstNonEmpty(errDetail(err), result.Message),
		Duration:   time.Since(started),
		StartedAt:  started,
	})
	if err != nil {
		return SaveOutcome{}, err
	}
	progress.report(100, "done")
	return saveOutcome(result, visitor.Uuid), nil
}

func findOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case err == ErrVisitorNotFound:
		return "not-found"
	default:
		return "error"
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
