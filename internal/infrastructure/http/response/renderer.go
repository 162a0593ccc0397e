package response

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var views = []string{"index", "product", "cart", "checkout", "thankyou", "error"}

var funcs = template.FuncMap{
	"price": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
}

// Renderer executes the embedded page templates. Each view is parsed together
// with the shared layout.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(views))}
	for _, view := range views {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+view+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", view, err)
		}
		r.templates[view] = t
	}
	return r, nil
}

// Render writes the page only after it executed completely, so a template
// failure never leaves a half-written page behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, view string, data interface{}) error {
	t, ok := r.templates[view]
	if !ok {
		return fmt.Errorf("unknown view %q", view)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", view, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
