// Package view renders the server-side pages of the reading log.
package view

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.tmpl
var files embed.FS

// Page names accepted by Renderer.Instance.
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageBookForm  = "book_form"
	PageHistory   = "history"
	PageRanking   = "ranking"
)

const layoutName = "layout"

// Renderer implements gin's render.HTMLRender with one template set per
// page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageLogin, PageDashboard, PageBookForm, PageHistory, PageRanking} {
		tmpl, err := template.New(name).ParseFS(files, "templates/layout.tmpl", "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Instance returns the render for page name.
func (r *Renderer) Instance(name string, data any) render.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		panic(fmt.Sprintf("view: unknown page %q", name))
	}
	return render.HTML{Template: tmpl, Name: layoutName, Data: data}
}
