// Package session is the observation-session scheduling flow:
// date & time, school & classrooms, users, then review.
package session

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
)

const DateLayout = "2006-01-02"

var (
	invalidDateText = "Date must be in YYYY-MM-DD format"
	adminMemberText = "Session admin must be one of the selected users"
)

// Draft is a session being scheduled.
type Draft struct {
	Date         *time.Time `json:"date"`
	StartTime    string     `json:"start_time"` // hh:mm AM/PM
	EndTime      string     `json:"end_time"`   // hh:mm AM/PM
	School       string     `json:"school"`
	Classrooms   []string   `json:"classrooms"`
	Users        []string   `json:"users"`
	SessionAdmin string     `json:"session_admin"`

	// set when the flow starts
	District string `json:"district"`
	Network  string `json:"network"`
}

func (d Draft) MarshalJSON() ([]byte, error) {
	type draft Draft
	var date *string
	if d.Date != nil {
		s := d.Date.Format(DateLayout)
		date = &s
	}
	return json.Marshal(struct {
		draft
		Date *string `json:"date"`
	}{draft(d), date})
}

// Patch is a partial update of a Draft: only the fields present are applied.
// An empty date clears it; a nil slice leaves the selection unchanged.
type Patch struct {
	Date         *string  `json:"date"`
	StartTime    *string  `json:"start_time"`
	EndTime      *string  `json:"end_time"`
	School       *string  `json:"school"`
	Classrooms   []string `json:"classrooms"`
	Users        []string `json:"users"`
	SessionAdmin *string  `json:"session_admin"`
}

// ApplyPatch decodes `raw` as a Patch and applies it to `d`, keeping the admin among the selected users:
// deselecting the admin clears it, picking an admin outside of the selection is rejected.
// Changing the school clears the classrooms unless new ones are given along.
// `d` is left unchanged when an error is returned.
func ApplyPatch(d *Draft, raw []byte) error {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid draft data"))
	}
	return p.Apply(d)
}

func (p Patch) Apply(d *Draft) error {
	next := *d

	if p.Date != nil {
		if s := core.CleanString(*p.Date); s == "" {
			next.Date = nil
		} else {
			date, err := time.Parse(DateLayout, s)
			if err != nil {
				return core.NewValidationError(nil, core.FieldError{Field: "date", Error: invalidDateText})
			}
			next.Date = &date
		}
	}
	if p.StartTime != nil {
		next.StartTime = NormalizeClock(*p.StartTime)
	}
	if p.EndTime != nil {
		next.EndTime = NormalizeClock(*p.EndTime)
	}
	if p.School != nil {
		school := core.CleanString(*p.School)
		if school != next.School && p.Classrooms == nil {
			next.Classrooms = []string{}
		}
		next.School = school
	}
	if p.Classrooms != nil {
		next.Classrooms = core.CleanStrings(p.Classrooms)
	}
	if p.Users != nil {
		next.Users = core.CleanStrings(p.Users)
		if !core.ContainsString(next.Users, next.SessionAdmin) {
			next.SessionAdmin = ""
		}
	}
	if p.SessionAdmin != nil {
		admin := core.CleanString(*p.SessionAdmin)
		if admin != "" && !core.ContainsString(next.Users, admin) {
			return core.NewValidationError(nil, core.FieldError{Field: "session_admin", Error: adminMemberText})
		}
		next.SessionAdmin = admin
	}

	*d = next
	return nil
}

// Params are the ambient identifiers a session is scheduled within.
type Params struct {
	District string
	Network  string
}

func NewDraft(params Params) *Draft {
	return &Draft{
		District:   core.CleanString(params.District),
		Network:    core.CleanString(params.Network),
		Classrooms: []string{},
		Users:      []string{},
	}
}

// Payload is the body of the backend "create session" request.
type Payload struct {
	Date         string   `json:"date"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	School       string   `json:"school"`
	Classrooms   []string `json:"classrooms"`
	Users        []string `json:"users"`
	SessionAdmin string   `json:"session_admin"`
	District     string   `json:"district,omitempty"`
	Network      string   `json:"network,omitempty"`
}

// NewPayload assembles a complete draft into a Payload.
func NewPayload(d *Draft) (Payload, error) {
	if d.Date == nil {
		return Payload{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "Please select a date"})
	}
	return Payload{
		Date:         d.Date.Format(DateLayout),
		StartTime:    NormalizeClock(d.StartTime),
		EndTime:      NormalizeClock(d.EndTime),
		School:       d.School,
		Classrooms:   append([]string{}, d.Classrooms...),
		Users:        append([]string{}, d.Users...),
		SessionAdmin: d.SessionAdmin,
		District:     d.District,
		Network:      d.Network,
	}, nil
}

// Draft rebuilds the draft a Payload was assembled from.
func (p Payload) Draft() (*Draft, error) {
	date, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return nil, errors.Wrap(err, "parsing date")
	}
	return &Draft{
		Date:         &date,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		School:       p.School,
		Classrooms:   append([]string{}, p.Classrooms...),
		Users:        append([]string{}, p.Users...),
		SessionAdmin: p.SessionAdmin,
		District:     p.District,
		Network:      p.Network,
	}, nil
}
