package leads

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-manager/internal/tenancy"
)

// Summary holds per-status lead counts for one owner.
type Summary struct {
	TotalLeads int64 `json:"total_leads"`
	NewLeads   int64 `json:"new_leads"`
	LeadsSent  int64 `json:"leads_sent"`
	DealsDone  int64 `json:"deals_done"`
}

// Statistics is Summary plus the deal conversion rate in percent.
type Statistics struct {
	Summary
	ConversionRate float64 `json:"conversion_rate"`
}

// GroupedLeads buckets an owner's leads by status. Every bucket is present.
type GroupedLeads struct {
	NewLead  []*Lead `json:"new_lead"`
	LeadSent []*Lead `json:"lead_sent"`
	DealDone []*Lead `json:"deal_done"`
}

// Aggregator computes dashboard views over an owner's leads.
type Aggregator struct {
	repo Repository
}

// NewAggregator creates a dashboard aggregator.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// ByStatus returns the owner's leads grouped by status plus a count summary.
func (a *Aggregator) ByStatus(ctx context.Context, owner tenancy.Owner) (*GroupedLeads, *Summary, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.by_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID))

	if owner.ID <= 0 {
		return nil, nil, ErrMissingOwner
	}
	all, err := a.repo.List(ctx, owner.ID, ListLeadsFilter{})
	if err != nil {
		return nil, nil, err
	}
	withOwnerName(owner, all)

	grouped := &GroupedLeads{
		NewLead:  make([]*Lead, 0),
		LeadSent: make([]*Lead, 0),
		DealDone: make([]*Lead, 0),
	}
	summary := &Summary{TotalLeads: int64(len(all))}
	for _, l := range all {
		switch l.Status {
		case StatusNewLead:
			grouped.NewLead = append(grouped.NewLead, l)
			summary.NewLeads++
		case StatusLeadSent:
			grouped.LeadSent = append(grouped.LeadSent, l)
			summary.LeadsSent++
		case StatusDealDone:
			grouped.DealDone = append(grouped.DealDone, l)
			summary.DealsDone++
		}
	}
	return grouped, summary, nil
}

// Statistics returns status counts and the conversion rate for the owner.
func (a *Aggregator) Statistics(ctx context.Context, owner tenancy.Owner) (*Statistics, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.statistics")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", owner.ID))

	if owner.ID <= 0 {
		return nil, ErrMissingOwner
	}
	counts, err := a.repo.CountByStatus(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{}
	for status, n := range counts {
		stats.TotalLeads += n
		switch status {
		case StatusNewLead:
			stats.NewLeads = n
		case StatusLeadSent:
			stats.LeadsSent = n
		case StatusDealDone:
			stats.DealsDone = n
		}
	}
	stats.ConversionRate = ConversionRate(stats.DealsDone, stats.TotalLeads)
	return stats, nil
}

// ConversionRate returns deals/total as a percentage rounded to two
// decimals, or 0 when there are no leads.
func ConversionRate(deals, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(deals)/float64(total)*100*100) / 100
}
