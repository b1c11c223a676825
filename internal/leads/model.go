package leads

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/wolfman30/lead-manager/internal/validation"
)

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNewLead  Status = "new_lead"
	StatusLeadSent Status = "lead_sent"
	StatusDealDone Status = "deal_done"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNewLead, StatusLeadSent, StatusDealDone}

const defaultStatusColor = "#6B7280"

var statusColors = map[Status]string{
	StatusNewLead:  "#6B7280",
	StatusLeadSent: "#3B82F6",
	StatusDealDone: "#10B981",
}

var statusLabels = map[Status]string{
	StatusNewLead:  "New Lead",
	StatusLeadSent: "Lead Sent",
	StatusDealDone: "Deal Done",
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Color returns the display color for s; unknown statuses render gray.
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return defaultStatusColor
}

// Display returns the human label for s.
func (s Status) Display() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Source is where a lead came from.
type Source string

const (
	SourceWebsite        Source = "website"
	SourceSocialMedia    Source = "social_media"
	SourceReferral       Source = "referral"
	SourceColdCall       Source = "cold_call"
	SourceEmailMarketing Source = "email_marketing"
	SourceGoogleAds      Source = "google_ads"
	SourceFacebookAds    Source = "facebook_ads"
	SourceLinkedIn       Source = "linkedin"
	SourceOther          Source = "other"
)

// Sources lists every lead source.
var Sources = []Source{
	SourceWebsite, SourceSocialMedia, SourceReferral, SourceColdCall, SourceEmailMarketing,
	SourceGoogleAds, SourceFacebookAds, SourceLinkedIn, SourceOther,
}

var sourceLabels = map[Source]string{
	SourceWebsite:        "Website",
	SourceSocialMedia:    "Social Media",
	SourceReferral:       "Referral",
	SourceColdCall:       "Cold Call",
	SourceEmailMarketing: "Email Marketing",
	SourceGoogleAds:      "Google Ads",
	SourceFacebookAds:    "Facebook Ads",
	SourceLinkedIn:       "LinkedIn",
	SourceOther:          "Other",
}

// Display returns the human label for s.
func (s Source) Display() string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// Lead represents a sales prospect owned by a single user
type Lead struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Source        Source    `json:"lead_source"`
	Status        Status    `json:"status"`
	Notes         *string   `json:"notes"`
	CreatedBy     int64     `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MarshalJSON adds the derived display fields.
func (l Lead) MarshalJSON() ([]byte, error) {
	type lead Lead
	return json.Marshal(struct {
		lead
		SourceDisplay string `json:"lead_source_display"`
		StatusDisplay string `json:"status_display"`
		StatusColor   string `json:"status_color"`
	}{
		lead:          lead(l),
		SourceDisplay: l.Source.Display(),
		StatusDisplay: l.Status.Display(),
		StatusColor:   l.Status.Color(),
	})
}

// LeadInput is the writable part of a lead as submitted by clients.
// Nil fields were absent from the request body.
type LeadInput struct {
	Name       *string        `json:"name"`
	Phone      *string        `json:"phone"`
	Email      *string        `json:"email"`
	LeadSource *string        `json:"lead_source"`
	Status     *string        `json:"status"`
	Notes      NullableString `json:"notes"`
}

// NullableString records whether a JSON key was present, so an explicit
// null can be told apart from an absent key.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// StringValue returns a present NullableString holding v.
func StringValue(v string) NullableString {
	return NullableString{Set: true, Value: &v}
}

var (
	sourceTag = "oneof=" + joinSources()
	statusTag = "oneof=" + joinStatuses(" ")
)

// Validate checks the input. In full mode name, phone, email and
// lead_source must be present.
func (in *LeadInput) Validate(partial bool) validation.Errors {
	errs := validation.Errors{}
	check := func(field string, value *string, tags string) {
		if value == nil {
			if !partial {
				errs.Add(field, validation.MsgRequired)
			}
			return
		}
		errs.Check(field, strings.TrimSpace(*value), tags)
	}
	check("name", in.Name, "required,max=100")
	check("phone", in.Phone, "required,max=17,intl_phone")
	check("email", in.Email, "required,email,max=254")
	check("lead_source", in.LeadSource, "required,"+sourceTag)
	if in.Status != nil {
		errs.Check("status", *in.Status, "required,"+statusTag)
	}
	return errs
}

// apply copies the present fields onto l.
func (in *LeadInput) apply(l *Lead) {
	if in.Name != nil {
		l.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		l.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		l.Email = strings.TrimSpace(*in.Email)
	}
	if in.LeadSource != nil {
		l.Source = Source(*in.LeadSource)
	}
	if in.Status != nil {
		l.Status = Status(*in.Status)
	}
	if in.Notes.Set {
		if in.Notes.Value == nil {
			l.Notes = nil
		} else {
			notes := *in.Notes.Value
			l.Notes = &notes
		}
	}
}

// StatusUpdateRequest is the body of PATCH /leads/{id}/status/.
type StatusUpdateRequest struct {
	Status *string `json:"status"`
}

// Validate checks the requested status against the enum.
func (r *StatusUpdateRequest) Validate() validation.Errors {
	errs := validation.Errors{}
	if r.Status == nil {
		errs.Add("status", validation.MsgRequired)
		return errs
	}
	if !Status(*r.Status).Valid() {
		errs.Add("status", "Status must be one of: "+joinStatuses(", "))
	}
	return errs
}

func joinStatuses(sep string) string {
	parts := make([]string, len(Statuses))
	for i, s := range Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, sep)
}

func joinSources() string {
	parts := make([]string, len(Sources))
	for i, s := range Sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}
