package forms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/authdemo/internal/authdemo/notify"
	"finitefield.org/authdemo/internal/authdemo/validation"
)

func apply(def Definition, state State, events ...Event) (State, []Effect) {
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		state, effects = Reduce(def, state, ev)
		all = append(all, effects...)
	}
	return state, all
}

func TestChangeValidatesImmediately(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, _ := apply(def, NewState(def), Change{Field: validation.FieldEmail, Value: "ava@yahoo.com"})

	require.Equal(t, "Only valid Gmail addresses are allowed", state.Error(validation.FieldEmail))
	require.True(t, state.IsTouched(validation.FieldEmail))
	require.False(t, state.IsTouched(validation.FieldFullName))
	require.Empty(t, state.Error(validation.FieldFullName), "untouched fields carry no error")
}

func TestPasswordChangeRevalidatesConfirm(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, _ := apply(def, NewState(def),
		Change{Field: validation.FieldPassword, Value: "secret1"},
		Change{Field: validation.FieldConfirmPassword, Value: "secret1"},
	)
	require.Empty(t, state.Error(validation.FieldConfirmPassword))

	state, effects := Reduce(def, state, Change{Field: validation.FieldPassword, Value: "secret2"})
	require.Equal(t, "Passwords do not match", state.Error(validation.FieldConfirmPassword))
	require.Contains(t, effects, Validated{Field: validation.FieldConfirmPassword, Valid: false})

	state, _ = Reduce(def, state, Change{Field: validation.FieldPassword, Value: "secret1"})
	require.Empty(t, state.Error(validation.FieldConfirmPassword))
}

func TestPasswordChangeLeavesEmptyConfirmAlone(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, effects := apply(def, NewState(def), Change{Field: validation.FieldPassword, Value: "secret1"})

	require.Empty(t, state.Error(validation.FieldConfirmPassword))
	require.Equal(t, []Effect{Validated{Field: validation.FieldPassword, Valid: true}}, effects)
}

func TestBlurRechecksField(t *testing.T) {
	t.Parallel()

	def := Login()
	state := NewState(def)
	state.Values[validation.FieldEmail] = "not-an-email"

	state, _ = apply(def, state, Focus{Field: validation.FieldEmail})
	require.Equal(t, validation.FieldEmail, state.Active)

	state, _ = apply(def, state, Blur{Field: validation.FieldEmail})
	require.Equal(t, "Please enter a valid Gmail address", state.Error(validation.FieldEmail))
	require.Empty(t, state.Active)
}

func TestFocusHasNoValidationEffect(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, effects := apply(def, NewState(def), Focus{Field: validation.FieldFullName})
	require.Empty(t, effects)
	require.Empty(t, state.Errors)
}

func TestToggleVisibilityOnlyForSecretFields(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, _ := apply(def, NewState(def),
		ToggleVisibility{Field: validation.FieldPassword},
		ToggleVisibility{Field: validation.FieldConfirmPassword},
		ToggleVisibility{Field: validation.FieldConfirmPassword},
		ToggleVisibility{Field: validation.FieldEmail},
	)
	require.True(t, state.IsVisible(validation.FieldPassword))
	require.False(t, state.IsVisible(validation.FieldConfirmPassword))
	require.False(t, state.IsVisible(validation.FieldEmail))
}

func TestUnknownFieldIgnored(t *testing.T) {
	t.Parallel()

	def := Login()
	initial := NewState(def)
	state, effects := Reduce(def, initial, Change{Field: validation.FieldFullName, Value: "x"})
	require.Nil(t, effects)
	require.Equal(t, initial, state)
}

func TestSubmitInvalidRejects(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, effects := apply(def, NewState(def),
		Change{Field: validation.FieldEmail, Value: "ava@gmail.com"},
		Submit{},
	)

	require.Equal(t, PhaseRejected, state.Phase)
	require.False(t, state.Submitting)
	require.Equal(t, "Full Name is required", state.Error(validation.FieldFullName))
	require.Equal(t, "Please confirm your password", state.Error(validation.FieldConfirmPassword))
	require.Contains(t, effects, Notify{Level: notify.LevelError, Message: CredentialsMessage})
	require.Contains(t, effects, Submitted{Outcome: OutcomeRejected})
	for _, eff := range effects {
		require.NotEqual(t, Authenticate{}, eff)
		require.IsNotType(t, Schedule{}, eff)
		require.IsNotType(t, Navigate{}, eff)
	}
}

func TestSubmitValidSchedulesOnce(t *testing.T) {
	t.Parallel()

	def := SignUp()
	state, effects := apply(def, NewState(def), validSignUp()...)
	state, effects = Reduce(def, state, Submit{})

	require.True(t, state.Submitting)
	require.Equal(t, PhaseSubmitting, state.Phase)
	require.Equal(t, 1, state.Attempt)
	require.Contains(t, effects, Schedule{Attempt: 1})

	again, effects := Reduce(def, state, Submit{})
	require.Equal(t, state, again)
	require.Equal(t, []Effect{Submitted{Outcome: OutcomeIgnored}}, effects)
}

func TestCompleteAuthenticatesAndNavigates(t *testing.T) {
	t.Parallel()

	def := SignUp()
	events := append(validSignUp(), Submit{})
	state, _ := apply(def, NewState(def), events...)

	state, effects := Reduce(def, state, Complete{Attempt: state.Attempt})
	require.False(t, state.Submitting)
	require.Equal(t, PhaseSucceeded, state.Phase)
	require.Equal(t, []Effect{
		Notify{Level: notify.LevelSuccess, Message: SignUpSuccessMessage},
		Authenticate{},
		Navigate{Path: "/"},
		Submitted{Outcome: OutcomeSucceeded},
	}, effects)
}

func TestStaleCompleteIgnored(t *testing.T) {
	t.Parallel()

	def := Login()
	state, _ := apply(def, NewState(def),
		Change{Field: validation.FieldEmail, Value: "ava@gmail.com"},
		Change{Field: validation.FieldPassword, Value: "x"},
		Submit{},
	)
	next, effects := Reduce(def, state, Complete{Attempt: state.Attempt + 1})
	require.Nil(t, effects)
	require.Equal(t, state, next)

	idle := NewState(def)
	_, effects = Reduce(def, idle, Complete{Attempt: 0})
	require.Nil(t, effects)
}

func TestContactRejectionMessages(t *testing.T) {
	t.Parallel()

	def := Contact()
	_, effects := apply(def, NewState(def),
		Change{Field: validation.FieldName, Value: "Ava"},
		Submit{},
	)
	require.Contains(t, effects, Notify{Level: notify.LevelError, Message: ContactMissingMessage})

	_, effects = apply(def, NewState(def),
		Change{Field: validation.FieldName, Value: "Ava"},
		Change{Field: validation.FieldEmail, Value: "ava@example"},
		Change{Field: validation.FieldMessage, Value: "Hello"},
		Submit{},
	)
	require.Contains(t, effects, Notify{Level: notify.LevelError, Message: ContactEmailMessage})
}

func TestContactCompleteResets(t *testing.T) {
	t.Parallel()

	def := Contact()
	state, _ := apply(def, NewState(def),
		Change{Field: validation.FieldName, Value: "Ava"},
		Change{Field: validation.FieldEmail, Value: "ava@example.com"},
		Change{Field: validation.FieldMessage, Value: "Hello"},
		Submit{},
	)
	_, effects := Reduce(def, state, Complete{Attempt: state.Attempt})
	require.Contains(t, effects, Reset{})
	require.NotContains(t, effects, Authenticate{})
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	def := SignUp()
	initial := NewState(def)
	_, _ = Reduce(def, initial, Change{Field: validation.FieldFullName, Value: "Ava Lee"})
	require.Equal(t, "", initial.Value(validation.FieldFullName))
	require.Empty(t, initial.Touched)
}

func validSignUp() []Event {
	return []Event{
		Change{Field: validation.FieldFullName, Value: "Ava Lee"},
		Change{Field: validation.FieldEmail, Value: "ava@gmail.com"},
		Change{Field: validation.FieldPassword, Value: "secret1"},
		Change{Field: validation.FieldConfirmPassword, Value: "secret1"},
	}
}
