package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/content"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/guard"
	custommw "finitefield.org/authdemo/internal/authdemo/httpserver/middleware"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/templates"
	"finitefield.org/authdemo/internal/authdemo/validation"
	"finitefield.org/authdemo/internal/authdemo/visitor"
)

// FormEvent applies a change, blur, focus or visibility toggle to the mounted form.
// Field events answer with out-of-band error slots so the inputs being typed into are never
// replaced; a toggle re-renders the whole form.
func (h *handlers) FormEvent(kind forms.Kind) http.HandlerFunc {
	page := visitor.PagePath(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVisitor(w, r)
		if !ok {
			return
		}
		ctrl, ok := v.Form(kind)
		if !ok {
			custommw.Refresh(w, r, page)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form payload", http.StatusBadRequest)
			return
		}

		events, err := fieldEvents(r, ctrl.State(), ctrl.Definition())
		if err != nil {
			observability.FromContext(r.Context()).Debug("form event rejected", zap.String("form", string(kind)), zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var st forms.State
		for _, ev := range events {
			st = ctrl.Dispatch(ev)
		}

		view := h.formView(r, ctrl.Definition(), st)
		toasts := v.Toasts().Drain()
		if _, toggle := events[len(events)-1].(forms.ToggleVisibility); toggle {
			render(w, r, h.views.Form(view, toasts), http.StatusOK)
			return
		}
		render(w, r, h.views.Feedback(view, toasts), http.StatusOK)
	}
}

// FormSubmit runs the full validation pass and, when it is clean, starts the simulated round trip.
func (h *handlers) FormSubmit(kind forms.Kind) http.HandlerFunc {
	page := visitor.PagePath(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVisitor(w, r)
		if !ok {
			return
		}
		ctrl, ok := v.Form(kind)
		if !ok {
			custommw.Refresh(w, r, page)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form payload", http.StatusBadRequest)
			return
		}

		// Pick up values the browser filled in without firing input events.
		if !ctrl.Submitting() {
			current := ctrl.State()
			for _, field := range ctrl.Definition().Rules.Fields() {
				posted, has := r.PostForm[field]
				if has && len(posted) > 0 && posted[0] != current.Value(field) {
					ctrl.Dispatch(forms.Change{Field: field, Value: posted[0]})
				}
			}
		}

		before := ctrl.State()
		st := ctrl.Dispatch(forms.Submit{})
		logger := observability.FromContext(r.Context()).With(zap.String("form", string(kind)))
		switch {
		case before.Submitting:
		case st.Phase == forms.PhaseRejected:
			logger.Debug("form rejected", zap.Strings("fields", invalidFields(st)))
		case kind == forms.KindContact:
			// A contact form resets on success, so log what was sent.
			logger.Info("contact message accepted",
				zap.String("name", content.Sanitize(before.Value(validation.FieldName))),
				zap.Int("message_length", len(content.Sanitize(before.Value(validation.FieldMessage)))),
			)
		}

		// A zero-latency round trip may already have moved the visitor on.
		if loc := v.Location(); loc != page {
			custommw.Redirect(w, r, loc)
			return
		}
		h.respondForm(w, r, v, ctrl.Definition(), st)
	}
}

// FormStatus reports on a pending submission. Once the round trip navigated the visitor away,
// the browser follows.
func (h *handlers) FormStatus(kind forms.Kind) http.HandlerFunc {
	page := visitor.PagePath(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVisitor(w, r)
		if !ok {
			return
		}
		ctrl, ok := v.Form(kind)
		if !ok {
			if loc := v.Location(); loc != page {
				custommw.Redirect(w, r, loc)
				return
			}
			custommw.Refresh(w, r, page)
			return
		}
		h.respondForm(w, r, v, ctrl.Definition(), ctrl.State())
	}
}

// respondForm answers htmx with the form fragment and everything else with the full page.
func (h *handlers) respondForm(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, def forms.Definition, st forms.State) {
	view := h.formView(r, def, st)
	if custommw.IsHTMXRequest(r.Context()) {
		render(w, r, h.views.Form(view, v.Toasts().Drain()), http.StatusOK)
		return
	}

	status := http.StatusOK
	if st.Phase == forms.PhaseRejected {
		status = http.StatusUnprocessableEntity
	}
	if def.Kind == forms.KindContact {
		h.renderContent(w, r, v, "contact", &view, status)
		return
	}
	render(w, r, h.views.Auth(templates.NewAuthView(h.layout(r, v, ""), view)), status)
}

// formView builds the form markup and carries the sign-up page's return location along.
func (h *handlers) formView(r *http.Request, def forms.Definition, st forms.State) templates.FormView {
	view := templates.NewFormView(def, st)
	if def.Kind != forms.KindSignUp {
		return view
	}
	if from := h.returnPath(r.FormValue("from")); from != "" {
		view.From = from
		view.StatusURL += "?" + url.Values{"from": {from}}.Encode()
	}
	return view
}

// returnPath keeps only protected routes, the only places a sign-up redirect starts from.
func (h *handlers) returnPath(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	target := guard.Normalize(raw)
	if !h.policy.IsProtected(target) {
		return ""
	}
	return target
}

func fieldEvents(r *http.Request, st forms.State, def forms.Definition) ([]forms.Event, error) {
	field := strings.TrimSpace(r.PostFormValue("field"))
	if field == "" {
		field = custommw.HTMXInfoFromContext(r.Context()).TriggerName
	}
	if !def.Rules.Has(field) {
		return nil, fmt.Errorf("unknown field %q", field)
	}

	name := strings.ToLower(strings.TrimSpace(r.PostFormValue("event")))
	switch name {
	case "", "input", "change", "keyup":
		return []forms.Event{forms.Change{Field: field, Value: r.PostFormValue(field)}}, nil
	case "blur", "focusout":
		events := []forms.Event{}
		// A blur can overtake the debounced input event carrying the last keystrokes.
		if posted, has := r.PostForm[field]; has && len(posted) > 0 && posted[0] != st.Value(field) {
			events = append(events, forms.Change{Field: field, Value: posted[0]})
		}
		return append(events, forms.Blur{Field: field}), nil
	case "focus", "focusin":
		return []forms.Event{forms.Focus{Field: field}}, nil
	case "toggle":
		return []forms.Event{forms.ToggleVisibility{Field: field}}, nil
	}
	return nil, fmt.Errorf("unknown event %q", name)
}

func invalidFields(st forms.State) []string {
	fields := make([]string, 0, len(st.Errors))
	for field, msg := range st.Errors {
		if msg != "" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}
