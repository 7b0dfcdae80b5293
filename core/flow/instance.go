package flow

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/google/uuid"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/lookup"
)

type (
	StepInfo struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Subtitle string `json:"subtitle,omitempty"`
	}

	// Snapshot is a read-only view of a flow instance.
	Snapshot struct {
		ID         string            `json:"id"`
		Kind       string            `json:"kind"`
		Status     Status            `json:"status"`
		Step       StepInfo          `json:"step"`
		StepNumber int               `json:"step_number"` // 1-based
		Steps      []StepInfo        `json:"steps"`
		Completed  []string          `json:"completed"`
		Errors     []core.FieldError `json:"errors,omitempty"`
		LastError  string            `json:"last_error,omitempty"`
		Draft      interface{}       `json:"draft"`
		Terminal   bool              `json:"terminal"`
	}

	// Submission is what a flow hands over to its Sink.
	Submission struct {
		FlowID  string
		Kind    string
		Actor   core.Actor
		Payload interface{}
	}

	// Receipt acknowledges a successful submission.
	Receipt struct {
		ID          string          `json:"id"` // id of the created record
		Kind        string          `json:"kind"`
		Redirect    string          `json:"redirect"`
		SubmittedAt time.Time       `json:"submitted_at"`
		Data        json.RawMessage `json:"data,omitempty"`
	}

	// Sink durably persists submissions, eg. the backend create endpoints.
	// A returned error is shown to the user: it may implement `UserMessage() string`.
	Sink interface {
		Send(ctx context.Context, sub Submission) (Receipt, error)
	}

	Deps struct {
		Sink            Sink
		Mailer          core.EmailService // optional; confirmation e-mails are skipped when nil
		Logger          core.Logger
		Translator      ut.Translator // the one validation translations were registered with
		FrontendBaseURL string
		Now             func() time.Time
		NewID           func() string
	}

	// Instance is a live flow, whatever its draft type.
	Instance interface {
		ID() string
		Kind() string
		Owner() core.Actor
		LastActive() time.Time
		Closed() bool
		Snapshot() Snapshot
		Next(from string) (bool, []core.FieldError, error)
		Back(from string) error
		Apply(raw []byte) error
		Cancel() (string, error)
		Remember(kind lookup.Kind, opts []lookup.Option)
		LookupParent(kind lookup.Kind) string
		Review() (interface{}, error)
		Submit(ctx context.Context) (Receipt, error)
	}
)

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = core.NopLogger{}
	}
	if d.Translator == nil {
		d.Translator = core.NewTranslator()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// StartParams carries the ambient identifiers a flow is started within.
type StartParams struct {
	District string `json:"district"`
	Network  string `json:"network"`
}

// Factory starts flows of one kind.
type Factory interface {
	Kind() string
	Steps() []StepInfo
	Start(owner core.Actor, params StartParams) (Instance, error)
}

type factory[D any] struct {
	def      *Definition[D]
	newDraft func(owner core.Actor, params StartParams) (*D, error)
	deps     Deps
}

// NewFactory returns a Factory starting `def` flows on drafts built by `newDraft`.
func NewFactory[D any](def *Definition[D], newDraft func(core.Actor, StartParams) (*D, error), deps Deps) Factory {
	return &factory[D]{def: def, newDraft: newDraft, deps: deps.withDefaults()}
}

func (f *factory[D]) Kind() string      { return f.def.Kind }
func (f *factory[D]) Steps() []StepInfo { return f.def.StepInfos() }

func (f *factory[D]) Start(owner core.Actor, params StartParams) (Instance, error) {
	draft, err := f.newDraft(owner, params)
	if err != nil {
		return nil, err
	}
	return New(f.deps.NewID(), owner, f.def, draft, f.deps), nil
}

// KindInfo describes a registered kind of flow.
type KindInfo struct {
	Kind  string     `json:"kind"`
	Steps []StepInfo `json:"steps"`
}

// Registry starts flows by kind and keeps them in a Store.
type Registry struct {
	factories map[string]Factory
	store     *Store
}

func NewRegistry(store *Store, factories ...Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory, len(factories)), store: store}
	for _, f := range factories {
		r.factories[f.Kind()] = f
	}
	return r
}

// Start starts and stores a new `kind` flow owned by `owner`.
func (r *Registry) Start(kind string, owner core.Actor, params StartParams) (Instance, error) {
	f, ok := r.factories[core.CleanString(kind, true /* lower */)]
	if !ok {
		return nil, ErrUnknownKind
	}
	inst, err := f.Start(owner, params)
	if err != nil {
		return nil, err
	}
	r.store.Add(inst)
	return inst, nil
}

func (r *Registry) Get(id string, owner core.Actor) (Instance, error) {
	return r.store.Get(id, owner.ID)
}

// Forget drops a flow from the store, eg. once it is closed.
func (r *Registry) Forget(id string) {
	r.store.Remove(id)
}

func (r *Registry) Kinds() []KindInfo {
	kinds := make([]KindInfo, 0, len(r.factories))
	for _, f := range r.factories {
		kinds = append(kinds, KindInfo{Kind: f.Kind(), Steps: f.Steps()})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })
	return kinds
}
