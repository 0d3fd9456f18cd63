package forms

import "finitefield.org/authdemo/internal/authdemo/notify"

// Reduce applies ev to state and returns the next state plus the effects to run.
// It never mutates its input and performs no I/O.
func Reduce(def Definition, state State, ev Event) (State, []Effect) {
	next := state.Clone()

	switch e := ev.(type) {
	case Change:
		if !def.Rules.Has(e.Field) {
			return state, nil
		}
		next.Values[e.Field] = e.Value
		next.Touched[e.Field] = true
		effects := []Effect{validateField(def, &next, e.Field)}
		for _, dep := range def.Dependents[e.Field] {
			if next.Values.Get(dep) != "" {
				effects = append(effects, validateField(def, &next, dep))
			}
		}
		if !next.Submitting {
			next.Phase = PhaseEditing
		}
		return next, effects

	case Blur:
		if !def.Rules.Has(e.Field) {
			return state, nil
		}
		next.Touched[e.Field] = true
		if next.Active == e.Field {
			next.Active = ""
		}
		return next, []Effect{validateField(def, &next, e.Field)}

	case Focus:
		if !def.Rules.Has(e.Field) {
			return state, nil
		}
		next.Active = e.Field
		return next, nil

	case ToggleVisibility:
		if !def.IsSecret(e.Field) {
			return state, nil
		}
		next.Visible[e.Field] = !next.Visible[e.Field]
		return next, nil

	case Submit:
		if state.Submitting {
			return state, []Effect{Submitted{Outcome: OutcomeIgnored}}
		}
		next.Errors = def.Rules.ValidateAll(next.Values)
		effects := make([]Effect, 0, len(def.Rules.Fields())+2)
		for _, f := range def.Rules.Fields() {
			next.Touched[f] = true
			effects = append(effects, Validated{Field: f, Valid: next.Errors.Get(f) == ""})
		}
		if !next.Errors.Valid() {
			next.Phase = PhaseRejected
			return next, append(effects,
				Notify{Level: notify.LevelError, Message: def.rejection(next.Values, next.Errors)},
				Submitted{Outcome: OutcomeRejected},
			)
		}
		next.Submitting = true
		next.Phase = PhaseSubmitting
		next.Attempt++
		return next, append(effects,
			Schedule{Attempt: next.Attempt},
			Submitted{Outcome: OutcomeAccepted},
		)

	case Complete:
		if !state.Submitting || e.Attempt != state.Attempt {
			return state, nil
		}
		next.Submitting = false
		next.Phase = PhaseSucceeded
		effects := []Effect{Notify{Level: notify.LevelSuccess, Message: def.SuccessMessage}}
		if def.Authenticates {
			effects = append(effects, Authenticate{})
		}
		if def.SuccessPath != "" {
			effects = append(effects, Navigate{Path: def.SuccessPath})
		}
		if def.ResetOnSuccess {
			effects = append(effects, Reset{})
		}
		return next, append(effects, Submitted{Outcome: OutcomeSucceeded})
	}

	return state, nil
}

func validateField(def Definition, state *State, field string) Effect {
	msg := def.Rules.Validate(field, state.Values.Get(field), state.Values)
	if msg == "" {
		delete(state.Errors, field)
	} else {
		state.Errors[field] = msg
	}
	return Validated{Field: field, Valid: msg == ""}
}
