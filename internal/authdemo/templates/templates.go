package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"

	"github.com/a-h/templ"

	"finitefield.org/authdemo/internal/authdemo/guard"
	"finitefield.org/authdemo/internal/authdemo/notify"
)

//go:embed views/*.tmpl
var views embed.FS

var sharedFiles = []string{"layout.tmpl", "form.tmpl"}

// Page template names.
const (
	pageHome    = "home"
	pageContent = "page"
	pageAuth    = "auth"
)

// Set is a parsed collection of layouts, pages and fragments.
type Set struct {
	shared *template.Template
	pages  map[string]*template.Template
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the set parsed from the embedded views. It panics if they do not parse.
func Default() *Set {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(views, "views")
		if err != nil {
			defaultErr = err
			return
		}
		defaultSet, defaultErr = Parse(sub)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("templates: parse embedded views: %v", defaultErr))
	}
	return defaultSet
}

// Parse reads the layout, form and page templates from fsys.
func Parse(fsys fs.FS) (*Set, error) {
	shared, err := template.New("_root").Funcs(funcMap()).ParseFS(fsys, sharedFiles...)
	if err != nil {
		return nil, fmt.Errorf("templates: parse shared: %w", err)
	}

	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{pageHome, pageContent, pageAuth} {
		clone, err := shared.Clone()
		if err != nil {
			return nil, fmt.Errorf("templates: clone for %s: %w", name, err)
		}
		tmpl, err := clone.ParseFS(fsys, name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Set{shared: shared, pages: pages}, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"navActive": func(current, target string) bool {
			return guard.Normalize(current) == guard.Normalize(target)
		},
	}
}

// Home renders the members page.
func (s *Set) Home(v HomeView) templ.Component {
	if v.Title == "" {
		v.Title = "Home"
	}
	return s.page(pageHome, v)
}

// Content renders an informational page.
func (s *Set) Content(v ContentView) templ.Component {
	if v.Title == "" {
		v.Title = v.Page.Title
	}
	return s.page(pageContent, v)
}

// Auth renders the sign-up or login page.
func (s *Set) Auth(v AuthView) templ.Component {
	return s.page(pageAuth, v)
}

// Form renders a form fragment followed by any pending toasts as an out-of-band swap.
func (s *Set) Form(v FormView, toasts []notify.Toast) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := s.shared.ExecuteTemplate(w, "form", v); err != nil {
			return err
		}
		return s.shared.ExecuteTemplate(w, "toasts-oob", toasts)
	})
}

// Feedback renders every field's error slot as an out-of-band swap, leaving the inputs untouched.
func (s *Set) Feedback(v FormView, toasts []notify.Toast) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		for _, field := range v.Fields {
			if err := s.shared.ExecuteTemplate(w, "feedback-oob", field); err != nil {
				return err
			}
		}
		return s.shared.ExecuteTemplate(w, "toasts-oob", toasts)
	})
}

// Toasts renders pending toasts as an out-of-band swap.
func (s *Set) Toasts(toasts []notify.Toast) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return s.shared.ExecuteTemplate(w, "toasts-oob", toasts)
	})
}

func (s *Set) page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		tmpl, ok := s.pages[name]
		if !ok {
			return fmt.Errorf("templates: unknown page %q", name)
		}
		return tmpl.ExecuteTemplate(w, "base", data)
	})
}
