package httpserver

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/content"
	"finitefield.org/authdemo/internal/authdemo/directory"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/guard"
	custommw "finitefield.org/authdemo/internal/authdemo/httpserver/middleware"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/templates"
	"finitefield.org/authdemo/internal/authdemo/visitor"
)

type handlers struct {
	views     *templates.Set
	content   *content.Library
	directory directory.Service
	policy    guard.Policy
}

// Home renders the member cards.
func (h *handlers) Home(w http.ResponseWriter, r *http.Request) {
	v, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	v.Navigate("/")

	members, err := h.directory.Members(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Error("list members failed", zap.Error(err))
		http.Error(w, "Could not load members. Please try again.", http.StatusBadGateway)
		return
	}

	view := templates.HomeView{
		Layout:  h.layout(r, v, "Home"),
		Members: templates.MemberCards(members),
	}
	render(w, r, h.views.Home(view), http.StatusOK)
}

// About renders the about page.
func (h *handlers) About(w http.ResponseWriter, r *http.Request) {
	v, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	v.Navigate("/about")
	h.renderContent(w, r, v, "about", nil, http.StatusOK)
}

// Contact renders the contact page with a freshly mounted message form.
func (h *handlers) Contact(w http.ResponseWriter, r *http.Request) {
	v, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	v.Navigate(visitor.PagePath(forms.KindContact))
	ctrl, err := v.Mount(forms.KindContact)
	if err != nil {
		observability.FromContext(r.Context()).Error("mount contact form failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	form := h.formView(r, ctrl.Definition(), ctrl.State())
	h.renderContent(w, r, v, "contact", &form, http.StatusOK)
}

// AuthPage renders the sign-up or login page with a freshly mounted form.
func (h *handlers) AuthPage(kind forms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVisitor(w, r)
		if !ok {
			return
		}
		v.Navigate(visitor.PagePath(kind))
		ctrl, err := v.Mount(kind)
		if err != nil {
			observability.FromContext(r.Context()).Error("mount form failed", zap.String("form", string(kind)), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		form := h.formView(r, ctrl.Definition(), ctrl.State())
		render(w, r, h.views.Auth(templates.NewAuthView(h.layout(r, v, ""), form)), http.StatusOK)
	}
}

// Logout clears the session and sends the visitor to the login page.
func (h *handlers) Logout(w http.ResponseWriter, r *http.Request) {
	v, ok := requireVisitor(w, r)
	if !ok {
		return
	}
	v.Logout()
	observability.FromContext(r.Context()).Info("visitor logged out")
	custommw.Redirect(w, r, v.Location())
}

func (h *handlers) renderContent(w http.ResponseWriter, r *http.Request, v *visitor.Visitor, slug string, form *templates.FormView, status int) {
	page, err := h.content.Page(slug)
	if err != nil {
		logger := observability.FromContext(r.Context())
		if errors.Is(err, content.ErrNotFound) {
			logger.Warn("content page missing", zap.String("slug", slug))
			http.NotFound(w, r)
			return
		}
		logger.Error("render content failed", zap.String("slug", slug), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	view := templates.ContentView{
		Layout: h.layout(r, v, page.Title),
		Page:   page,
		Form:   form,
	}
	render(w, r, h.views.Content(view), status)
}

// layout drains the visitor's pending toasts into the page.
func (h *handlers) layout(r *http.Request, v *visitor.Visitor, title string) templates.Layout {
	env := custommw.EnvironmentFromContext(r.Context())
	if env == "production" {
		env = ""
	}
	return templates.Layout{
		Title:         title,
		Path:          custommw.RequestPathFromContext(r.Context()),
		Authenticated: v.Session().IsAuthenticated(),
		Toasts:        v.Toasts().Drain(),
		Environment:   env,
	}
}

func requireVisitor(w http.ResponseWriter, r *http.Request) (*visitor.Visitor, bool) {
	v, ok := custommw.VisitorFromContext(r.Context())
	if !ok {
		observability.FromContext(r.Context()).Error("visitor missing from request context")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return v, true
}

func render(w http.ResponseWriter, r *http.Request, component templ.Component, status int) {
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}
