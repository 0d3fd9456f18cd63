package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no page exists for a slug.
var ErrNotFound = errors.New("content: page not found")

//go:embed pages/*.md
var embedded embed.FS

// Card is a short highlighted fact shown next to a page body.
type Card struct {
	Icon  string `yaml:"icon"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Page is a rendered informational page.
type Page struct {
	Slug    string
	Title   string
	Summary string
	Cards   []Card
	HTML    template.HTML
}

type frontMatter struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Cards   []Card `yaml:"cards"`
}

// Library loads markdown pages from a filesystem and caches the rendered result.
type Library struct {
	fsys     fs.FS
	markdown goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]Page
}

// NewLibrary reads pages from fsys. A nil fsys uses the embedded pages.
func NewLibrary(fsys fs.FS) *Library {
	if fsys == nil {
		sub, err := fs.Sub(embedded, "pages")
		if err != nil {
			panic(fmt.Sprintf("content: embedded pages: %v", err))
		}
		fsys = sub
	}
	return &Library{
		fsys: fsys,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: bluemonday.UGCPolicy(),
		cache:  make(map[string]Page),
	}
}

// Page returns the rendered page for slug.
func (l *Library) Page(slug string) (Page, error) {
	slug = strings.ToLower(strings.Trim(strings.TrimSpace(slug), "/"))
	if slug == "" || strings.ContainsAny(slug, "/\\.") {
		return Page{}, ErrNotFound
	}

	l.mu.RLock()
	page, ok := l.cache[slug]
	l.mu.RUnlock()
	if ok {
		return page, nil
	}

	raw, err := fs.ReadFile(l.fsys, path.Join(".", slug+".md"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", slug, err)
	}
	page, err = l.render(slug, string(raw))
	if err != nil {
		return Page{}, err
	}

	l.mu.Lock()
	l.cache[slug] = page
	l.mu.Unlock()
	return page, nil
}

func (l *Library) render(slug, raw string) (Page, error) {
	fmRaw, body := splitFrontMatter(raw)
	var fm frontMatter
	if strings.TrimSpace(fmRaw) != "" {
		if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter for %s: %w", slug, err)
		}
	}

	var buf bytes.Buffer
	if err := l.markdown.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = prettifySlug(slug)
	}
	return Page{
		Slug:    slug,
		Title:   title,
		Summary: strings.TrimSpace(fm.Summary),
		Cards:   fm.Cards,
		HTML:    template.HTML(l.policy.SanitizeBytes(buf.Bytes())),
	}, nil
}

// Sanitize strips markup from user supplied text.
func Sanitize(input string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(input))
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

func prettifySlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
