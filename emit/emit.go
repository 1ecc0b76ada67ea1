// Package emit serialises assembled pages into downloadable documents.
package emit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/brunobiangulo/pdfdesk/layout"
)

// Document is the input to every emitter: assembled pages in source order.
type Document struct {
	Title string
	Pages []layout.Page
}

// Emitter writes a Document in one output format.
type Emitter interface {
	Emit(w io.Writer, doc *Document) error
	ContentType() string
	Extension() string
}

// Registry maps format names to emitters.
type Registry struct {
	emitters map[string]Emitter
}

// NewRegistry returns a registry holding every built-in format plus the
// aliases used by the HTTP routes.
func NewRegistry() *Registry {
	r := &Registry{emitters: make(map[string]Emitter)}

	docx := &DOCX{}
	xlsx := &XLSX{}
	html := &HTML{}
	md := &Markdown{}
	txt := &Text{}

	r.Register("docx", docx)
	r.Register("word", docx)
	r.Register("xlsx", xlsx)
	r.Register("excel", xlsx)
	r.Register("html", html)
	r.Register("md", md)
	r.Register("markdown", md)
	r.Register("txt", txt)
	r.Register("text", txt)
	return r
}

// Get returns the emitter registered for format (case-insensitive).
func (r *Registry) Get(format string) (Emitter, error) {
	e, ok := r.emitters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no emitter for format: %s", format)
	}
	return e, nil
}

// Register adds or replaces the emitter for format.
func (r *Registry) Register(format string, e Emitter) {
	r.emitters[strings.ToLower(format)] = e
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.emitters))
	for f := range r.emitters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
