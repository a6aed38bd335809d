package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/template/html/v2"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/viewmodel"
)

//go:embed templates
var templatesFS embed.FS

const (
	layoutName   = "layouts/main"
	pageName     = "page"
	notFoundName = "notfound"
)

// Renderer turns page records into complete HTML documents.
type Renderer struct {
	engine    *html.Engine
	platforms []SocialPlatform
	opts      Options
}

// New parses the embedded templates and social platform list.
func New(opts Options) (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load page templates: %w", err)
	}
	platforms, err := LoadSocialPlatforms()
	if err != nil {
		return nil, err
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = "Lynqit"
	}
	return &Renderer{engine: engine, platforms: platforms, opts: opts}, nil
}

// Engine exposes the template engine so it can be registered as Fiber views.
func (r *Renderer) Engine() *html.Engine {
	return r.engine
}

// View builds the display data for page at now.
func (r *Renderer) View(page *models.LynqitPage, now time.Time, tracking bool) *viewmodel.Page {
	opts := r.opts
	opts.Tracking = tracking
	return BuildView(page, now, r.platforms, opts)
}

// Render writes the public page. The page is clamped to its plan first, so
// stored content above the plan never reaches the output.
func (r *Renderer) Render(w io.Writer, page *models.LynqitPage, now time.Time, tracking bool) error {
	vm := r.View(page, now, tracking)
	// buffered so a template error never leaves a half-written document
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, pageName, vm, layoutName); err != nil {
		return fmt.Errorf("render page %s: %w", page.Slug, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderNotFound writes the page shown for unknown slugs.
func (r *Renderer) RenderNotFound(w io.Writer, slug string, now time.Time) error {
	vm := &viewmodel.Page{
		Layout: viewmodel.Layout{
			Title:           "Pagina niet gevonden",
			SiteTitle:       r.opts.SiteTitle,
			Theme:           models.ThemeDark,
			Year:            now.Year(),
			BackgroundColor: "#000000",
			TextColor:       "#FFF",
		},
		Slug: slug,
	}
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, notFoundName, vm, layoutName); err != nil {
		return fmt.Errorf("render not found page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Component wraps Render for the templ HTTP handler.
func (r *Renderer) Component(page *models.LynqitPage, now time.Time, tracking bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.Render(w, page, now, tracking)
	})
}

// NotFoundComponent wraps RenderNotFound for the templ HTTP handler.
func (r *Renderer) NotFoundComponent(slug string, now time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.RenderNotFound(w, slug, now)
	})
}
