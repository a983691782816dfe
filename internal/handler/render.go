package handler

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer renders pages/<name> inside layouts/base.html.  Every
// page gets its own clone of the layout so pages can redefine its blocks.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses layouts/*.html and pages/*.html from fsys.
func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	base, err := template.ParseFS(fsys, "templates/layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	pages, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, page); err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		templates[path.Base(page)] = t
	}
	return &TemplateRenderer{templates: templates}, nil
}

// Render implements echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "template not found: "+name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
