package templates

import (
	"finitefield.org/authdemo/internal/authdemo/content"
	"finitefield.org/authdemo/internal/authdemo/directory"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/notify"
	"finitefield.org/authdemo/internal/authdemo/validation"
)

// DefaultPollDelayMillis is how long a pending form waits before asking for its status again.
const DefaultPollDelayMillis = 500

// Layout carries what every full page renders around its content.
type Layout struct {
	Title         string
	Path          string
	Authenticated bool
	Toasts        []notify.Toast
	Bare          bool
	// Environment is shown as a badge outside production.
	Environment   string
}

// MemberCard is one avatar card on the home page.
type MemberCard struct {
	Name     string
	Email    string
	Initials string
}

// HomeView is the members page.
type HomeView struct {
	Layout
	Members []MemberCard
}

// ContentView is a markdown page, optionally with a form next to it.
type ContentView struct {
	Layout
	Page content.Page
	Form *FormView
}

// AuthView is the sign-up or login page.
type AuthView struct {
	Layout
	Form      FormView
	AltPrompt string
	AltHref   string
	AltLabel  string
}

// FormView is the rendering state of a mounted form.
type FormView struct {
	ID              string
	Kind            string
	Action          string
	EventsURL       string
	StatusURL       string
	Heading         string
	SubmitLabel     string
	SubmittingLabel string
	Phase           string
	Submitting      bool
	From            string
	PollDelay       int
	Fields          []FieldView
}

// FieldView is one input of a form.
type FieldView struct {
	ID           string
	FormID       string
	Name         string
	Label        string
	Placeholder  string
	InputType    string
	Autocomplete string
	EventsURL    string
	Value        string
	Error        string
	Secret       bool
	Visible      bool
	Active       bool
	Multiline    bool
}

type fieldCopy struct {
	Name         string
	Label        string
	Placeholder  string
	InputType    string
	Autocomplete string
	Multiline    bool
}

type formCopy struct {
	Heading         string
	SubmitLabel     string
	SubmittingLabel string
	AltPrompt       string
	AltHref         string
	AltLabel        string
	Fields          []fieldCopy
}

var copyByKind = map[forms.Kind]formCopy{
	forms.KindSignUp: {
		Heading:     "Create Your Account",
		SubmitLabel: "Sign Up",
		AltPrompt:   "Already have an account?",
		AltHref:     "/login",
		AltLabel:    "Log In",
		Fields: []fieldCopy{
			{Name: validation.FieldFullName, Label: "Full Name", Placeholder: "Enter your full name", InputType: "text", Autocomplete: "name"},
			{Name: validation.FieldEmail, Label: "Email Address", Placeholder: "Enter your Gmail address", InputType: "email", Autocomplete: "email"},
			{Name: validation.FieldPassword, Label: "Password", Placeholder: "Enter your password", InputType: "password", Autocomplete: "new-password"},
			{Name: validation.FieldConfirmPassword, Label: "Confirm Password", Placeholder: "Re-enter your password", InputType: "password", Autocomplete: "new-password"},
		},
	},
	forms.KindLogin: {
		Heading:     "Login to Your Account",
		SubmitLabel: "Log In",
		AltPrompt:   "Don't have an account?",
		AltHref:     "/signup",
		AltLabel:    "Sign Up",
		Fields: []fieldCopy{
			{Name: validation.FieldEmail, Label: "Email Address", Placeholder: "Enter your Gmail address", InputType: "email", Autocomplete: "email"},
			{Name: validation.FieldPassword, Label: "Password", Placeholder: "Enter your password", InputType: "password", Autocomplete: "current-password"},
		},
	},
	forms.KindContact: {
		Heading:         "Send a Message",
		SubmitLabel:     "Send Message",
		SubmittingLabel: "Sending...",
		Fields: []fieldCopy{
			{Name: validation.FieldName, Label: "Full Name", Placeholder: "Full Name", InputType: "text", Autocomplete: "name"},
			{Name: validation.FieldEmail, Label: "Email Address", Placeholder: "Email Address", InputType: "email", Autocomplete: "email"},
			{Name: validation.FieldMessage, Label: "Your message...", Placeholder: "Your message...", Multiline: true},
		},
	},
}

// NewFormView projects a form state onto its markup.
func NewFormView(def forms.Definition, st forms.State) FormView {
	kind := string(def.Kind)
	base := "/" + kind
	id := kind + "-form"
	text := copyByKind[def.Kind]

	submitting := text.SubmittingLabel
	if submitting == "" {
		submitting = text.SubmitLabel
	}

	view := FormView{
		ID:              id,
		Kind:            kind,
		Action:          base,
		EventsURL:       base + "/events",
		StatusURL:       base + "/status",
		Heading:         text.Heading,
		SubmitLabel:     text.SubmitLabel,
		SubmittingLabel: submitting,
		Phase:           string(st.Phase),
		Submitting:      st.Submitting,
		PollDelay:       DefaultPollDelayMillis,
	}

	for _, fc := range fieldsFor(def, text) {
		secret := def.IsSecret(fc.Name)
		visible := st.IsVisible(fc.Name)
		inputType := fc.InputType
		if secret && visible {
			inputType = "text"
		}
		view.Fields = append(view.Fields, FieldView{
			ID:           kind + "-" + fc.Name,
			FormID:       id,
			Name:         fc.Name,
			Label:        fc.Label,
			Placeholder:  fc.Placeholder,
			InputType:    inputType,
			Autocomplete: fc.Autocomplete,
			EventsURL:    view.EventsURL,
			Value:        st.Value(fc.Name),
			Error:        st.Error(fc.Name),
			Secret:       secret,
			Visible:      visible,
			Active:       st.Active == fc.Name,
			Multiline:    fc.Multiline,
		})
	}
	return view
}

// fieldsFor falls back to bare text inputs for forms without copy.
func fieldsFor(def forms.Definition, text formCopy) []fieldCopy {
	if len(text.Fields) > 0 {
		return text.Fields
	}
	out := make([]fieldCopy, 0, len(def.Rules.Fields()))
	for _, name := range def.Rules.Fields() {
		out = append(out, fieldCopy{Name: name, Label: name, InputType: "text"})
	}
	return out
}

// NewAuthView wraps a sign-up or login form in its page.
func NewAuthView(layout Layout, form FormView) AuthView {
	text := copyByKind[forms.Kind(form.Kind)]
	layout.Bare = true
	if layout.Title == "" {
		layout.Title = text.SubmitLabel
	}
	return AuthView{
		Layout:    layout,
		Form:      form,
		AltPrompt: text.AltPrompt,
		AltHref:   text.AltHref,
		AltLabel:  text.AltLabel,
	}
}

// MemberCards converts directory members to avatar cards.
func MemberCards(members []directory.Member) []MemberCard {
	cards := make([]MemberCard, 0, len(members))
	for _, m := range members {
		cards = append(cards, MemberCard{Name: m.Name, Email: m.Email, Initials: m.Initials()})
	}
	return cards
}
