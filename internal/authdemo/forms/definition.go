package forms

import (
	"time"

	"finitefield.org/authdemo/internal/authdemo/validation"
)

// DefaultLatency is the simulated round trip between submit and completion.
const DefaultLatency = 2000 * time.Millisecond

// Kind names one of the application's forms.
type Kind string

const (
	KindSignUp  Kind = "signup"
	KindLogin   Kind = "login"
	KindContact Kind = "contact"
)

// Kinds lists every form in route order.
func Kinds() []Kind {
	return []Kind{KindSignUp, KindLogin, KindContact}
}

// ParseKind resolves a route segment to a Kind.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindSignUp, KindLogin, KindContact:
		return Kind(raw), true
	}
	return "", false
}

// Definition describes a form's fields, rules and what happens after a submission.
type Definition struct {
	Kind  Kind
	Rules validation.Ruleset
	// Dependents lists fields to re-validate when the key field changes, if they hold a value.
	Dependents map[string][]string
	// Secret fields render masked and can toggle visibility.
	Secret []string

	SuccessMessage string
	Reject         func(values validation.Values, errs validation.Errors) string

	Authenticates  bool
	ResetOnSuccess bool
	SuccessPath    string
}

// IsSecret reports whether field supports visibility toggling.
func (d Definition) IsSecret(field string) bool {
	for _, f := range d.Secret {
		if f == field {
			return true
		}
	}
	return false
}

func (d Definition) rejection(values validation.Values, errs validation.Errors) string {
	if d.Reject == nil {
		return CredentialsMessage
	}
	return d.Reject(values, errs)
}

// Messages emitted by the built-in forms.
const (
	CredentialsMessage    = "Please provide valid credentials."
	SignUpSuccessMessage  = "Form Submitted Successfully!"
	LoginSuccessMessage   = "Logged In Successfully!"
	ContactSuccessMessage = "Thank you! Your message has been sent."
	ContactMissingMessage = "Please fill out all fields."
	ContactEmailMessage   = "Please enter a valid email address."
)

// SignUp returns the account creation form.
func SignUp() Definition {
	return Definition{
		Kind:  KindSignUp,
		Rules: validation.SignUp(),
		Dependents: map[string][]string{
			validation.FieldPassword: {validation.FieldConfirmPassword},
		},
		Secret:         []string{validation.FieldPassword, validation.FieldConfirmPassword},
		SuccessMessage: SignUpSuccessMessage,
		Authenticates:  true,
		SuccessPath:    "/",
	}
}

// Login returns the login form. Credentials are never compared against an account.
func Login() Definition {
	return Definition{
		Kind:           KindLogin,
		Rules:          validation.Login(),
		Secret:         []string{validation.FieldPassword},
		SuccessMessage: LoginSuccessMessage,
		Authenticates:  true,
		SuccessPath:    "/",
	}
}

// Contact returns the contact message form. It stays on the page and clears itself on success.
func Contact() Definition {
	rules := validation.Contact()
	return Definition{
		Kind:           KindContact,
		Rules:          rules,
		SuccessMessage: ContactSuccessMessage,
		Reject: func(values validation.Values, _ validation.Errors) string {
			if rules.AnyEmpty(values) {
				return ContactMissingMessage
			}
			return ContactEmailMessage
		},
		ResetOnSuccess: true,
	}
}

// Lookup returns the built-in definition for kind.
func Lookup(kind Kind) (Definition, bool) {
	switch kind {
	case KindSignUp:
		return SignUp(), true
	case KindLogin:
		return Login(), true
	case KindContact:
		return Contact(), true
	}
	return Definition{}, false
}
