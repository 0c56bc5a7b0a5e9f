// Package view renders the site's HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"net/http"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/logicloom/logicloom/internal/supabase"
)

//go:embed templates/*.html static content.yaml
var files embed.FS

// Page names accepted by Render.
const (
	PageHome      = "home"
	PagePricing   = "pricing"
	PageBio       = "bio"
	PageDashboard = "dashboard"
	PageDeals     = "deals"
	PageLogin     = "login"
	PageSignup    = "signup"
	PageRates     = "ratecalculator"
	PageNotFound  = "notfound"
	PageError     = "error"
)

var pageNames = []string{
	PageHome, PagePricing, PageBio, PageDashboard, PageDeals,
	PageLogin, PageSignup, PageRates, PageNotFound, PageError,
}

// Page is the data passed to every template.
type Page struct {
	Title string
	// User is the signed-in user, nil for visitors.
	User *supabase.User
	// Path is the request path without the base path, used for nav state.
	Path string
	Data any
}

// AuthForm is the login and signup page model.
type AuthForm struct {
	Email  string
	Error  string
	Notice string
	// Demo is set when the hosted auth service is not configured.
	Demo bool
}

// RateForm is the rate calculator page model. Form values are kept as
// submitted so a rejected form is shown again unchanged.
type RateForm struct {
	Platforms  []string
	Platform   string
	Followers  string
	Engagement string
	Error      string
	Result     *RateResult
}

// RateResult is a computed estimate.
type RateResult struct {
	Rate int64
	Min  float64
	Max  float64
	// Saved is set when the estimate went into the user's history.
	Saved bool
}

// Options configures a Renderer.
type Options struct {
	// BasePath prefixes every internal URL, e.g. "/LogicLoom".
	BasePath string
	// TrailingSlash renders page URLs as directories ("/pricing/"), the
	// layout used by the static export.
	TrailingSlash bool
}

// Renderer executes page templates.
type Renderer struct {
	pages   map[string]*template.Template
	content *Content
	opts    Options
}

// New parses the embedded templates and site content.
func New(opts Options) (*Renderer, error) {
	raw, err := files.ReadFile("content.yaml")
	if err != nil {
		return nil, fmt.Errorf("read site content: %w", err)
	}
	content, err := parseContent(raw)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		pages:   make(map[string]*template.Template, len(pageNames)),
		content: content,
		opts:    opts,
	}

	funcs := template.FuncMap{
		"url":   r.URL,
		"money": moneyFunc,
		"site":  func() Site { return content.Site },
		"active": func(current, prefix string) bool {
			if prefix == "/" {
				return current == "/"
			}
			return current == prefix || strings.HasPrefix(current, prefix+"/")
		},
	}

	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Content returns the site content.
func (r *Renderer) Content() *Content {
	return r.content
}

// BasePath returns the configured base path.
func (r *Renderer) BasePath() string {
	return r.opts.BasePath
}

// Render writes the named page. Output is buffered so a template error
// never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	if page.Title == "" {
		page.Title = r.content.Site.Title
	} else {
		page.Title = page.Title + " | " + r.content.Site.Name
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// URL returns the site URL for an internal path, honouring the base path and
// the trailing-slash layout. Asset paths (with a file extension) and query
// strings are left as they are.
func (r *Renderer) URL(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") {
		return p
	}

	pathPart, query := p, ""
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		pathPart, query = p[:i], p[i:]
	}

	if r.opts.TrailingSlash && !strings.HasSuffix(pathPart, "/") && path.Ext(pathPart) == "" {
		pathPart += "/"
	}
	if r.opts.BasePath != "" {
		if pathPart == "/" && !r.opts.TrailingSlash {
			pathPart = r.opts.BasePath
		} else {
			pathPart = r.opts.BasePath + pathPart
		}
	}
	return pathPart + query
}

// Static serves the embedded static assets. Mount it under /static/.
func (r *Renderer) Static() http.Handler {
	return http.FileServer(http.FS(StaticFS()))
}

// StaticFS returns the embedded static assets rooted at the static directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var printer = message.NewPrinter(language.English)

func moneyFunc(v any) (string, error) {
	switch n := v.(type) {
	case float64:
		return Money(n), nil
	case int:
		return Money(float64(n)), nil
	case int64:
		return Money(float64(n)), nil
	default:
		return "", fmt.Errorf("money: unsupported type %T", v)
	}
}

// Money formats a dollar amount with thousands separators, e.g. "$5,000" or
// "$1,200.50".
func Money(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("$%.0f", v)
	}
	return printer.Sprintf("$%.2f", v)
}
