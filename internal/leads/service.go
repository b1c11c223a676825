package leads

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-manager/internal/observability/metrics"
	"github.com/wolfman30/lead-manager/internal/tenancy"
	"github.com/wolfman30/lead-manager/internal/validation"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

var leadsTracer = otel.Tracer("leadmanager/leads")

// ServiceOptions toggles optional lead rules.
type ServiceOptions struct {
	// RejectDuplicateEmail refuses a lead whose email is already used by another lead.
	RejectDuplicateEmail bool
}

// Service applies validation and owner scoping on top of a Repository.
type Service struct {
	repo    Repository
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
	opts    ServiceOptions
}

// NewService creates a lead service.
func NewService(repo Repository, m *metrics.LeadMetrics, logger *logging.Logger, opts ServiceOptions) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, metrics: m, logger: logger, opts: opts}
}

// List returns the owner's leads matching filter.
func (s *Service) List(ctx context.Context, owner tenancy.Owner, filter ListLeadsFilter) ([]*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.list")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner.id", owner.ID),
		attribute.String("filter.status", string(filter.Status)),
		attribute.Bool("filter.search", filter.Search != ""),
	)

	if owner.ID <= 0 {
		return nil, ErrMissingOwner
	}
	leads, err := s.repo.List(ctx, owner.ID, filter)
	if err != nil {
		return nil, err
	}
	return withOwnerName(owner, leads), nil
}

// Create validates in and stores a lead owned by owner. Any owner supplied by
// the client is ignored.
func (s *Service) Create(ctx context.Context, owner tenancy.Owner, in LeadInput) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID))

	if owner.ID <= 0 {
		return nil, ErrMissingOwner
	}
	if errs := in.Validate(false); !errs.Empty() {
		return nil, validation.NewError("Failed to create lead", errs)
	}
	if err := s.checkDuplicateEmail(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	lead := &Lead{Status: StatusNewLead, CreatedBy: owner.ID}
	in.apply(lead)

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLeadCreated(string(created.Source))
	s.logger.Info("lead created", "id", created.ID, "owner_id", owner.ID, "source", created.Source)
	return withOwnerName(owner, []*Lead{created})[0], nil
}

// Get returns one owned lead.
func (s *Service) Get(ctx context.Context, owner tenancy.Owner, id int64) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.get")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID), attribute.Int64("lead.id", id))

	lead, err := s.repo.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, err
	}
	return withOwnerName(owner, []*Lead{lead})[0], nil
}

// Update applies in to an owned lead. In full mode the required fields must
// all be present; partial mode only touches the supplied ones.
func (s *Service) Update(ctx context.Context, owner tenancy.Owner, id int64, in LeadInput, partial bool) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.update")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner.id", owner.ID),
		attribute.Int64("lead.id", id),
		attribute.Bool("partial", partial),
	)

	existing, err := s.repo.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, err
	}
	if errs := in.Validate(partial); !errs.Empty() {
		return nil, validation.NewError("Failed to update lead", errs)
	}
	if err := s.checkDuplicateEmail(ctx, in.Email, id); err != nil {
		return nil, err
	}

	previous := existing.Status
	in.apply(existing)
	existing.CreatedBy = owner.ID

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	if updated.Status != previous {
		s.metrics.ObserveStatusChange(string(updated.Status))
	}
	s.logger.Info("lead updated", "id", id, "owner_id", owner.ID, "partial", partial)
	return withOwnerName(owner, []*Lead{updated})[0], nil
}

// UpdateStatus changes only the status of an owned lead.
func (s *Service) UpdateStatus(ctx context.Context, owner tenancy.Owner, id int64, req StatusUpdateRequest) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.update_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID), attribute.Int64("lead.id", id))

	if _, err := s.repo.GetByID(ctx, owner.ID, id); err != nil {
		return nil, err
	}
	if errs := req.Validate(); !errs.Empty() {
		return nil, validation.NewError("Failed to update lead status", errs)
	}

	status := Status(*req.Status)
	updated, err := s.repo.UpdateStatus(ctx, owner.ID, id, status)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStatusChange(string(status))
	s.logger.Info("lead status updated", "id", id, "owner_id", owner.ID, "status", status)
	return withOwnerName(owner, []*Lead{updated})[0], nil
}

// Delete removes an owned lead.
func (s *Service) Delete(ctx context.Context, owner tenancy.Owner, id int64) error {
	ctx, span := leadsTracer.Start(ctx, "leads.delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID), attribute.Int64("lead.id", id))

	if err := s.repo.Delete(ctx, owner.ID, id); err != nil {
		return err
	}
	s.metrics.ObserveLeadDeleted()
	s.logger.Info("lead deleted", "id", id, "owner_id", owner.ID)
	return nil
}

func (s *Service) checkDuplicateEmail(ctx context.Context, email *string, excludeID int64) error {
	if !s.opts.RejectDuplicateEmail || email == nil {
		return nil
	}
	exists, err := s.repo.EmailExists(ctx, *email, excludeID)
	if err != nil {
		return fmt.Errorf("leads: duplicate email check: %w", err)
	}
	if exists {
		return validation.NewError("Failed to save lead", validation.Errors{
			"email": {"A lead with this email already exists."},
		})
	}
	return nil
}

// withOwnerName stamps the owner's username onto leads; every lead a
// caller can see is their own.
func withOwnerName(owner tenancy.Owner, leads []*Lead) []*Lead {
	for _, l := range leads {
		l.CreatedByName = owner.Username
	}
	return leads
}
