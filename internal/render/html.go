package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// CartHTML renders the drawer's items fragment.
func (r *Renderer) CartHTML(view CartView) (string, error) {
	return execute("cart_items", view)
}

// SearchHTML renders the overlay's results fragment.
func (r *Renderer) SearchHTML(view SearchView) (string, error) {
	return execute("search_results", view)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
