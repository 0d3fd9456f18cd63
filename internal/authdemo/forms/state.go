package forms

import (
	"finitefield.org/authdemo/internal/authdemo/notify"
	"finitefield.org/authdemo/internal/authdemo/validation"
)

// Phase is the form-level position in the submission pipeline.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseRejected   Phase = "rejected"
)

// State is the full interaction state of one mounted form.
type State struct {
	Values     validation.Values
	Errors     validation.Errors
	Touched    map[string]bool
	Visible    map[string]bool
	Active     string
	Submitting bool
	Phase      Phase
	// Attempt increments on every accepted submit so stale completions can be ignored.
	Attempt int
}

// NewState returns the empty state a form starts from when its page mounts.
func NewState(def Definition) State {
	values := make(validation.Values, len(def.Rules.Fields()))
	for _, f := range def.Rules.Fields() {
		values[f] = ""
	}
	return State{
		Values:  values,
		Errors:  make(validation.Errors),
		Touched: make(map[string]bool),
		Visible: make(map[string]bool),
		Phase:   PhaseEditing,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Values = s.Values.Clone()
	out.Errors = s.Errors.Clone()
	out.Touched = cloneFlags(s.Touched)
	out.Visible = cloneFlags(s.Visible)
	return out
}

// Value returns the current value of field.
func (s State) Value(field string) string {
	return s.Values.Get(field)
}

// Error returns the current message for field.
func (s State) Error(field string) string {
	return s.Errors.Get(field)
}

// IsVisible reports whether a secret field renders in plain text.
func (s State) IsVisible(field string) bool {
	return s.Visible[field]
}

// IsTouched reports whether field received a change, blur or submit.
func (s State) IsTouched(field string) bool {
	return s.Touched[field]
}

func cloneFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Event is an input to Reduce.
type Event interface {
	eventName() string
}

// Change sets a field value.
type Change struct {
	Field string
	Value string
}

// Blur re-checks a field when it loses focus.
type Blur struct {
	Field string
}

// Focus marks a field as active.
type Focus struct {
	Field string
}

// ToggleVisibility flips masked rendering of a secret field.
type ToggleVisibility struct {
	Field string
}

// Submit requests the full validation pass and, when clean, the simulated round trip.
type Submit struct{}

// Complete resolves the pending round trip identified by Attempt.
type Complete struct {
	Attempt int
}

func (Change) eventName() string           { return "change" }
func (Blur) eventName() string             { return "blur" }
func (Focus) eventName() string            { return "focus" }
func (ToggleVisibility) eventName() string { return "toggle" }
func (Submit) eventName() string           { return "submit" }
func (Complete) eventName() string         { return "complete" }

// EventName returns the wire name of ev.
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}

// Effect is a side effect requested by Reduce and carried out by a Controller.
type Effect interface {
	effect()
}

// Notify asks for a toast.
type Notify struct {
	Level   notify.Level
	Message string
}

// Schedule asks for Complete{Attempt} to be dispatched after the configured latency.
type Schedule struct {
	Attempt int
}

// Authenticate asks the session to log in.
type Authenticate struct{}

// Navigate asks the visitor to move to Path.
type Navigate struct {
	Path string
}

// Reset asks for the form to return to its empty state.
type Reset struct{}

// Validated reports the outcome of one field rule run.
type Validated struct {
	Field string
	Valid bool
}

// Submitted reports how a submit or completion was handled.
type Submitted struct {
	Outcome Outcome
}

func (Notify) effect()       {}
func (Schedule) effect()     {}
func (Authenticate) effect() {}
func (Navigate) effect()     {}
func (Reset) effect()        {}
func (Validated) effect()    {}
func (Submitted) effect()    {}

// Outcome labels submission handling for metrics and logs.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeAccepted  Outcome = "accepted"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeSucceeded Outcome = "succeeded"
)
