package emit

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/brunobiangulo/pdfdesk/layout"
)

// HTML writes a standalone HTML document: headings as <h1>/<h2>, body text
// as <p>, and an <hr> between source pages.
type HTML struct{}

func (e *HTML) ContentType() string { return "text/html; charset=utf-8" }

func (e *HTML) Extension() string { return "html" }

func (e *HTML) Emit(w io.Writer, doc *Document) error {
	if err := htmlTemplate.Execute(w, newHTMLView(doc)); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}

// renderHTML renders doc into a string; the markdown emitter builds on it.
func renderHTML(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := (&HTML{}).Emit(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type htmlView struct {
	Title string
	Pages []htmlPage
}

type htmlPage struct {
	Number int
	Blocks []htmlBlock
}

type htmlBlock struct {
	Tag  string
	Text string
	Em   bool
}

func newHTMLView(doc *Document) htmlView {
	v := htmlView{Title: doc.Title, Pages: make([]htmlPage, 0, len(doc.Pages))}
	for _, page := range doc.Pages {
		hp := htmlPage{Number: page.Number, Blocks: make([]htmlBlock, 0, len(page.Paragraphs))}
		for _, p := range page.Paragraphs {
			hp.Blocks = append(hp.Blocks, htmlBlock{Tag: htmlTag(p.Heading), Text: p.Text, Em: p.Placeholder})
		}
		v.Pages = append(v.Pages, hp)
	}
	return v
}

func htmlTag(level layout.HeadingLevel) string {
	switch level {
	case layout.Heading1:
		return "h1"
	case layout.Heading2:
		return "h2"
	default:
		return "p"
	}
}

var htmlTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{- range $i, $page := .Pages}}
{{- if $i}}
<hr>
{{- end}}
<section data-page="{{$page.Number}}">
{{- range $page.Blocks}}
{{- if eq .Tag "h1"}}
<h1>{{.Text}}</h1>
{{- else if eq .Tag "h2"}}
<h2>{{.Text}}</h2>
{{- else if .Em}}
<p><em>{{.Text}}</em></p>
{{- else}}
<p>{{.Text}}</p>
{{- end}}
{{- end}}
</section>
{{- end}}
</body>
</html>
`))
