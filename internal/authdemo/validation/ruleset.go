package validation

import "strings"

// ValidationError reports a rule violation on a single field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors maps field names to their current message. Absent or empty means valid.
type Errors map[string]string

// Valid reports whether no field carries a message.
func (e Errors) Valid() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	if e == nil {
		return ""
	}
	return e[field]
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Entry pairs a field with its rule.
type Entry struct {
	Field string
	Rule  Rule
}

// Ruleset is an ordered rule table for one form.
type Ruleset struct {
	fields []string
	rules  map[string]Rule
}

// NewRuleset builds a Ruleset preserving entry order.
func NewRuleset(entries ...Entry) Ruleset {
	rs := Ruleset{rules: make(map[string]Rule, len(entries))}
	for _, e := range entries {
		if _, dup := rs.rules[e.Field]; !dup {
			rs.fields = append(rs.fields, e.Field)
		}
		rs.rules[e.Field] = e.Rule
	}
	return rs
}

// Fields returns the field names in declaration order.
func (rs Ruleset) Fields() []string {
	return append([]string(nil), rs.fields...)
}

// Has reports whether the ruleset knows field.
func (rs Ruleset) Has(field string) bool {
	_, ok := rs.rules[field]
	return ok
}

// Validate runs the rule for a single field. Unknown fields are always valid.
func (rs Ruleset) Validate(field, value string, values Values) string {
	rule, ok := rs.rules[field]
	if !ok || rule == nil {
		return ""
	}
	return rule(value, values)
}

// ValidateAll runs every rule against values and returns only the failing fields.
func (rs Ruleset) ValidateAll(values Values) Errors {
	errs := make(Errors)
	for _, field := range rs.fields {
		if msg := rs.Validate(field, values.Get(field), values); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// List returns the failing fields of errs as ValidationErrors, ordered like the ruleset.
func (rs Ruleset) List(errs Errors) []ValidationError {
	var out []ValidationError
	for _, field := range rs.fields {
		if msg := errs.Get(field); msg != "" {
			out = append(out, ValidationError{Field: field, Message: msg})
		}
	}
	return out
}

// AnyEmpty reports whether any declared field is blank in values.
func (rs Ruleset) AnyEmpty(values Values) bool {
	for _, field := range rs.fields {
		if strings.TrimSpace(values.Get(field)) == "" {
			return true
		}
	}
	return false
}
