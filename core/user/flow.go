package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/lookup"
)

const (
	Kind     = "user"
	ListPath = "/users"

	StepProfile   = "profile"
	StepPlacement = "role"
	StepReview    = "review"
)

// Review is the read-only projection of a draft shown on the review step.
type Review struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     Role            `json:"role"`
	District lookup.Option   `json:"district"`
	Network  lookup.Option   `json:"network"`
	Schools  []lookup.Option `json:"schools"`
}

func NewReview(d *Draft, labels flow.Labels) Review {
	p := NewPayload(d)
	r := Review{
		Name:    d.Name(),
		Email:   p.Email,
		Role:    Role{Name: RoleName(p.Role), Value: p.Role},
		Schools: make([]lookup.Option, 0, len(p.Schools)),
	}
	if p.District != "" {
		r.District = lookup.Option{Value: p.District, Label: labels.Label(lookup.KindDistricts, p.District)}
	}
	if p.Network != "" {
		r.Network = lookup.Option{Value: p.Network, Label: labels.Label(lookup.KindNetworks, p.Network)}
	}
	for _, school := range p.Schools {
		r.Schools = append(r.Schools, lookup.Option{Value: school, Label: labels.Label(lookup.KindSchools, school)})
	}
	return r
}

// NewDefinition returns the user creation flow. `validate` must have been set up with InitValidators.
func NewDefinition(validate *validator.Validate) *flow.Definition[Draft] {
	steps := []flow.Step[Draft]{
		{
			ID:       StepProfile,
			Title:    "Profile",
			Subtitle: "Who is the new user?",
			Validate: func(d *Draft) error { return validate.Struct(d.profile()) },
		},
		{
			ID:       StepPlacement,
			Title:    "Role",
			Subtitle: "What will they do, and where?",
			Validate: func(d *Draft) error { return validate.Struct(d.placement()) },
		},
		{
			ID:       StepReview,
			Title:    "Review",
			Subtitle: "Check the details and create the user.",
		},
	}

	return &flow.Definition[Draft]{
		Kind:     Kind,
		ListPath: ListPath,
		Steps:    steps,
		Patch:    ApplyPatch,
		Assemble: func(d *Draft) (interface{}, error) {
			for _, s := range steps {
				if s.Validate == nil {
					continue
				}
				if err := s.Validate(d); err != nil {
					return nil, err
				}
			}
			return NewPayload(d), nil
		},
		Review: func(d *Draft, labels flow.Labels) interface{} {
			return NewReview(d, labels)
		},
		Parent: func(d *Draft, kind lookup.Kind) string {
			switch kind {
			case lookup.KindSchools:
				return d.Network
			case lookup.KindNetworks:
				return d.District
			default:
				return ""
			}
		},
		Confirmation: func(d *Draft, owner core.Actor, _ flow.Labels) *core.EmailMessage {
			return &core.EmailMessage{
				Subject:      "New user created",
				TemplateName: "user_created",
				TemplateData: map[string]interface{}{
					"ActorName": owner.Name,
					"Name":      d.Name(),
					"Email":     d.Email,
					"Role":      RoleName(d.Role),
					"ListPath":  ListPath,
				},
			}
		},
	}
}

// NewFactory returns the Factory starting user flows; the new user is placed in the owner's district by default.
func NewFactory(validate *validator.Validate, deps flow.Deps) flow.Factory {
	return flow.NewFactory(NewDefinition(validate), func(owner core.Actor, params flow.StartParams) (*Draft, error) {
		if !IsAdmin(owner.Roles) {
			return nil, ErrNotAllowed
		}
		if params.District == "" {
			params.District = owner.District
		}
		return NewDraft(owner, params.District, params.Network), nil
	}, deps)
}
