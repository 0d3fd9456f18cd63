package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Field names shared by the forms and templates.
const (
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldName            = "name"
	FieldMessage         = "message"
)

var (
	gmailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)
	contactPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Values maps field names to their current string value.
type Values map[string]string

// Get returns the value for field, or "" when unset.
func (v Values) Get(field string) string {
	if v == nil {
		return ""
	}
	return v[field]
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Rule inspects a field value, with the full value set available for cross-field checks,
// and returns an error message or "".
type Rule func(value string, values Values) string

// Required rejects empty values.
func Required(msg string) Rule {
	if msg == "" {
		msg = "This field is required"
	}
	return func(value string, _ Values) string {
		if value == "" {
			return msg
		}
		return ""
	}
}

// MinLength rejects values shorter than n characters. Empty values are left to Required.
func MinLength(n int, msg string) Rule {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return func(value string, _ Values) string {
		if value == "" {
			return ""
		}
		if utf8.RuneCountInString(value) < n {
			return msg
		}
		return ""
	}
}

// Pattern rejects non-empty values that do not match re.
func Pattern(re *regexp.Regexp, msg string) Rule {
	if msg == "" {
		msg = "Invalid format"
	}
	return func(value string, _ Values) string {
		if value == "" {
			return ""
		}
		if !re.MatchString(value) {
			return msg
		}
		return ""
	}
}

// EqualTo rejects non-empty values that differ from the current value of another field.
func EqualTo(field, msg string) Rule {
	if msg == "" {
		msg = "Values do not match"
	}
	return func(value string, values Values) string {
		if value == "" {
			return ""
		}
		if value != values.Get(field) {
			return msg
		}
		return ""
	}
}

// Chain runs rules in order and returns the first message.
func Chain(rules ...Rule) Rule {
	return func(value string, values Values) string {
		for _, rule := range rules {
			if msg := rule(value, values); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// SignUp returns the rules for the account creation form.
func SignUp() Ruleset {
	return NewRuleset(
		Entry{FieldFullName, Required("Full Name is required")},
		Entry{FieldEmail, Chain(
			Required("Email is required"),
			Pattern(gmailPattern, "Only valid Gmail addresses are allowed"),
		)},
		Entry{FieldPassword, Chain(
			Required("Password is required"),
			MinLength(6, "Password must be at least 6 characters"),
		)},
		Entry{FieldConfirmPassword, Chain(
			Required("Please confirm your password"),
			EqualTo(FieldPassword, "Passwords do not match"),
		)},
	)
}

// Login returns the rules for the login form. Password length is not enforced here.
func Login() Ruleset {
	return NewRuleset(
		Entry{FieldEmail, Chain(
			Required("Email is required"),
			Pattern(gmailPattern, "Please enter a valid Gmail address"),
		)},
		Entry{FieldPassword, Required("Password is required")},
	)
}

// Contact returns the rules for the contact message form.
func Contact() Ruleset {
	return NewRuleset(
		Entry{FieldName, Required("Name is required")},
		Entry{FieldEmail, Chain(
			Required("Email is required"),
			Pattern(contactPattern, "Please enter a valid email address"),
		)},
		Entry{FieldMessage, Required("Message is required")},
	)
}
