package session

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/lookup"
)

const (
	Kind     = "session"
	ListPath = "/sessions"

	StepDateTime  = "date-time"
	StepPlacement = "school-classrooms"
	StepUsers     = "users"
	StepReview    = "review"
)

// Review is the read-only projection of a draft shown on the review step.
type Review struct {
	Date         string          `json:"date"`
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time"`
	School       lookup.Option   `json:"school"`
	Classrooms   []lookup.Option `json:"classrooms"`
	Users        []lookup.Option `json:"users"`
	SessionAdmin lookup.Option   `json:"session_admin"`
}

func NewReview(d *Draft, labels flow.Labels) Review {
	r := Review{
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		School:       option(labels, lookup.KindSchools, d.School),
		Classrooms:   options(labels, lookup.KindClassrooms, d.Classrooms),
		Users:        options(labels, lookup.KindUsers, d.Users),
		SessionAdmin: option(labels, lookup.KindUsers, d.SessionAdmin),
	}
	if d.Date != nil {
		r.Date = d.Date.Format(DateLayout)
	}
	return r
}

func option(labels flow.Labels, kind lookup.Kind, value string) lookup.Option {
	if value == "" {
		return lookup.Option{}
	}
	return lookup.Option{Value: value, Label: labels.Label(kind, value)}
}

func options(labels flow.Labels, kind lookup.Kind, values []string) []lookup.Option {
	opts := make([]lookup.Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, option(labels, kind, v))
	}
	return opts
}

// NewDefinition returns the session scheduling flow. `validate` must have been set up with InitValidators.
func NewDefinition(validate *validator.Validate) *flow.Definition[Draft] {
	steps := []flow.Step[Draft]{
		{
			ID:       StepDateTime,
			Title:    "Date & Time",
			Subtitle: "When will the session take place?",
			Validate: func(d *Draft) error { return validate.Struct(d.dateTime()) },
		},
		{
			ID:       StepPlacement,
			Title:    "School & Classrooms",
			Subtitle: "Where will the session take place?",
			Validate: func(d *Draft) error { return validate.Struct(d.placement()) },
		},
		{
			ID:       StepUsers,
			Title:    "Users",
			Subtitle: "Who will observe, and who leads the session?",
			Validate: func(d *Draft) error { return validate.Struct(d.assignment()) },
		},
		{
			ID:       StepReview,
			Title:    "Review",
			Subtitle: "Check the details and schedule the session.",
		},
	}

	return &flow.Definition[Draft]{
		Kind:     Kind,
		ListPath: ListPath,
		Steps:    steps,
		Patch:    ApplyPatch,
		Assemble: func(d *Draft) (interface{}, error) {
			// the draft may have been patched since its steps were validated
			for _, s := range steps {
				if s.Validate == nil {
					continue
				}
				if err := s.Validate(d); err != nil {
					return nil, err
				}
			}
			return NewPayload(d)
		},
		Review: func(d *Draft, labels flow.Labels) interface{} {
			return NewReview(d, labels)
		},
		Parent:       parent,
		Confirmation: confirmation,
	}
}

// parent returns the draft selection the `kind` options depend on.
func parent(d *Draft, kind lookup.Kind) string {
	switch kind {
	case lookup.KindClassrooms:
		return d.School
	case lookup.KindSchools:
		return d.Network
	case lookup.KindUsers, lookup.KindNetworks:
		return d.District
	default:
		return ""
	}
}

func confirmation(d *Draft, owner core.Actor, labels flow.Labels) *core.EmailMessage {
	r := NewReview(d, labels)
	return &core.EmailMessage{
		Subject:      "Observation session scheduled",
		TemplateName: "session_scheduled",
		TemplateData: map[string]interface{}{
			"ActorName":  owner.Name,
			"Date":       r.Date,
			"StartTime":  r.StartTime,
			"EndTime":    r.EndTime,
			"School":     r.School.Label,
			"Classrooms": joinLabels(r.Classrooms),
			"Users":      joinLabels(r.Users),
			"Admin":      r.SessionAdmin.Label,
			"ListPath":   ListPath,
		},
	}
}

func joinLabels(opts []lookup.Option) string {
	labels := make([]string, 0, len(opts))
	for _, opt := range opts {
		labels = append(labels, opt.Label)
	}
	return strings.Join(labels, ", ")
}

// NewFactory returns the Factory starting session flows.
// Flows started without a district are scheduled within the district of their owner.
func NewFactory(validate *validator.Validate, deps flow.Deps) flow.Factory {
	return flow.NewFactory(NewDefinition(validate), func(owner core.Actor, params flow.StartParams) (*Draft, error) {
		if params.District == "" {
			params.District = owner.District
		}
		return NewDraft(Params{District: params.District, Network: params.Network}), nil
	}, deps)
}
