// Package flow sequences multi-step forms ("flows"): an ordered list of steps sharing one draft,
// forward navigation gated by per-step validation, and a terminal review step that submits the
// assembled draft to a Sink.
package flow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/lookup"
)

var (
	ErrClosed      = errors.New("flow is closed")
	ErrNoNextStep  = errors.New("already at the last step")
	ErrNotAtReview = errors.New("flow can only be submitted from the review step")
	ErrNotFound    = errors.New("flow not found")
	ErrUnknownKind = errors.New("unknown flow kind")

	// ErrStepRequired is returned by Next and Back when the caller does not name the step it is on.
	ErrStepRequired = core.NewValidationError(nil, core.FieldError{Field: "step", Error: "Please give the step you are on"})

	genericSubmitMessage = "Something went wrong while submitting, please try again."
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusSubmitted Status = "submitted"
)

// Step is one stage of a flow. Validate checks the draft fields the step owns;
// it returns validator.ValidationErrors or a *core.ValidationError when the step is not complete.
type Step[D any] struct {
	ID       string
	Title    string
	Subtitle string
	Validate func(d *D) error
}

func (s Step[D]) Info() StepInfo {
	return StepInfo{ID: s.ID, Title: s.Title, Subtitle: s.Subtitle}
}

// Definition describes a kind of flow.
// Patch must not mutate slices of `d` in place: it receives a shallow copy that is discarded on error.
type Definition[D any] struct {
	Kind         string
	ListPath     string // where the UI navigates after cancel | submit
	Steps        []Step[D]
	Patch        func(d *D, raw []byte) error
	Assemble     func(d *D) (interface{}, error)
	Review       func(d *D, labels Labels) interface{}
	Parent       func(d *D, kind lookup.Kind) string
	Confirmation func(d *D, owner core.Actor, labels Labels) *core.EmailMessage
}

func (def *Definition[D]) StepInfos() []StepInfo {
	infos := make([]StepInfo, 0, len(def.Steps))
	for _, s := range def.Steps {
		infos = append(infos, s.Info())
	}
	return infos
}

// Controller holds one flow instance: its draft, current step and completed steps.
// All methods are safe for concurrent use; they serialize on the instance.
type Controller[D any] struct {
	mu sync.Mutex

	id    string
	owner core.Actor
	def   *Definition[D]
	deps  Deps

	draft       *D
	current     int // index in def.Steps
	completed   []string
	annotations []core.FieldError
	labels      Labels
	status      Status
	lastError   string
	touchedAt   time.Time
}

var _ Instance = (*Controller[struct{}])(nil)

// New starts a flow on `draft`, at the first step.
func New[D any](id string, owner core.Actor, def *Definition[D], draft *D, deps Deps) *Controller[D] {
	deps = deps.withDefaults()
	if draft == nil {
		draft = new(D)
	}
	return &Controller[D]{
		id:        id,
		owner:     owner,
		def:       def,
		deps:      deps,
		draft:     draft,
		completed: make([]string, 0, len(def.Steps)),
		labels:    make(Labels),
		status:    StatusActive,
		touchedAt: deps.Now(),
	}
}

func (c *Controller[D]) ID() string        { return c.id }
func (c *Controller[D]) Kind() string      { return c.def.Kind }
func (c *Controller[D]) Owner() core.Actor { return c.owner }

func (c *Controller[D]) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touchedAt
}

func (c *Controller[D]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != StatusActive
}

// Draft returns a copy of the draft; the zero D once the flow is closed.
func (c *Controller[D]) Draft() D {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		var zero D
		return zero
	}
	return *c.draft
}

func (c *Controller[D]) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller[D]) snapshot() Snapshot {
	completed := make([]string, len(c.completed))
	copy(completed, c.completed)
	snap := Snapshot{
		ID:         c.id,
		Kind:       c.def.Kind,
		Status:     c.status,
		Step:       c.def.Steps[c.current].Info(),
		StepNumber: c.current + 1,
		Steps:      c.def.StepInfos(),
		Completed:  completed,
		Errors:     c.annotations,
		LastError:  c.lastError,
		Terminal:   c.isTerminal(),
	}
	if c.draft != nil {
		snap.Draft = *c.draft
	}
	return snap
}

func (c *Controller[D]) isTerminal() bool {
	return c.current == len(c.def.Steps)-1
}

func (c *Controller[D]) touch() {
	c.touchedAt = c.deps.Now()
}

// isStale reports whether `from` names a step other than the current one,
// ie. the caller acted on an outdated view (double click, replayed request).
func (c *Controller[D]) isStale(from string) bool {
	return from != c.def.Steps[c.current].ID
}

func (c *Controller[D]) markCompleted(id string) {
	if !core.ContainsString(c.completed, id) {
		c.completed = append(c.completed, id)
	}
}

func (c *Controller[D]) unmarkCompleted(id string) {
	for i, done := range c.completed {
		if done == id {
			c.completed = append(c.completed[:i:i], c.completed[i+1:]...)
			return
		}
	}
}

// Next validates the current step and moves to the following one.
// Validation failures are returned as field errors, not as an error; the step and the draft are left unchanged.
// `from` is the step the caller is on: when it is not the current step, Next does nothing.
func (c *Controller[D]) Next(from string) (bool, []core.FieldError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return false, nil, ErrClosed
	}
	if strings.TrimSpace(from) == "" {
		return false, nil, ErrStepRequired
	}
	if c.isStale(from) {
		return false, nil, nil
	}
	if c.isTerminal() {
		return false, nil, ErrNoNextStep
	}
	c.touch()

	step := c.def.Steps[c.current]
	if step.Validate != nil {
		if err := step.Validate(c.draft); err != nil {
			flds, ok := core.FieldErrors(err, c.deps.Translator)
			if !ok {
				return false, nil, errors.Wrapf(err, "validating step %q", step.ID)
			}
			c.annotations = flds
			return false, flds, nil
		}
	}

	c.annotations = nil
	c.markCompleted(step.ID)
	c.current++
	return true, nil, nil
}

// Back moves to the previous step, which has to be validated again before moving forward.
func (c *Controller[D]) Back(from string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return ErrClosed
	}
	if strings.TrimSpace(from) == "" {
		return ErrStepRequired
	}
	if c.isStale(from) || c.current == 0 {
		return nil
	}
	c.touch()

	c.current--
	c.unmarkCompleted(c.def.Steps[c.current].ID)
	c.annotations = nil
	return nil
}

// Apply patches the draft with `raw` (JSON); on error the draft is unchanged.
func (c *Controller[D]) Apply(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return ErrClosed
	}
	c.touch()

	next := *c.draft
	if err := c.def.Patch(&next, raw); err != nil {
		return err
	}
	*c.draft = next
	return nil
}

// Cancel discards the draft and returns the path to navigate to.
func (c *Controller[D]) Cancel() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return "", ErrClosed
	}
	c.status = StatusCancelled
	c.draft = nil
	c.annotations = nil
	c.touch()
	return c.def.ListPath, nil
}

// Remember records the labels of options shown within this flow, for the review step.
func (c *Controller[D]) Remember(kind lookup.Kind, opts []lookup.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels.AddOptions(kind, opts)
}

// LookupParent returns the draft selection `kind` options depend on, eg. the school of classrooms.
func (c *Controller[D]) LookupParent(kind lookup.Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.def.Parent == nil || c.draft == nil {
		return ""
	}
	return c.def.Parent(c.draft, kind)
}

func (c *Controller[D]) Review() (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return nil, ErrClosed
	}
	return c.def.Review(c.draft, c.labels), nil
}

// Submit sends the assembled draft to the sink. It is only available from the terminal step.
// On failure a *SubmitError is returned and the draft is kept, so the user can fix it and retry.
func (c *Controller[D]) Submit(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return Receipt{}, ErrClosed
	}
	if !c.isTerminal() {
		return Receipt{}, ErrNotAtReview
	}
	c.touch()

	payload, err := c.def.Assemble(c.draft)
	if err != nil {
		return Receipt{}, c.failSubmit(err)
	}

	receipt, err := c.deps.Sink.Send(ctx, Submission{
		FlowID:  c.id,
		Kind:    c.def.Kind,
		Actor:   c.owner,
		Payload: payload,
	})
	if err != nil {
		return Receipt{}, c.failSubmit(err)
	}

	receipt.Kind = c.def.Kind
	receipt.Redirect = c.def.ListPath
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = c.deps.Now().UTC()
	}
	c.confirm()

	c.status = StatusSubmitted
	c.lastError = ""
	c.annotations = nil
	c.draft = nil
	return receipt, nil
}

func (c *Controller[D]) failSubmit(err error) error {
	msg := genericSubmitMessage
	if flds, ok := core.FieldErrors(err, c.deps.Translator); ok && len(flds) > 0 {
		msg = flds[0].Error
	} else if um, ok := errors.Cause(err).(interface{ UserMessage() string }); ok && um.UserMessage() != "" {
		msg = um.UserMessage()
	}
	c.lastError = msg
	c.deps.Logger.Warn("submitting flow failed", err, map[string]interface{}{"flow": c.id, "kind": c.def.Kind}, c.owner)
	return &SubmitError{Message: msg, Err: err}
}

func (c *Controller[D]) confirm() {
	if c.def.Confirmation == nil || c.deps.Mailer == nil || c.owner.Email == "" {
		return
	}
	msg := c.def.Confirmation(c.draft, c.owner, c.labels)
	if msg == nil {
		return
	}
	msg.To = append(msg.To, c.owner.MailAddress())
	if msg.FrontendBaseURL == "" {
		msg.FrontendBaseURL = c.deps.FrontendBaseURL
	}
	c.deps.Mailer.SendMessages(msg)
}

// SubmitError is a recoverable submission failure; Message is meant for the user.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }
