package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// Markdown renders the HTML form of a document and converts it to
// CommonMark, so both outputs always agree on structure.
type Markdown struct{}

func (e *Markdown) ContentType() string { return "text/markdown; charset=utf-8" }

func (e *Markdown) Extension() string { return "md" }

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

func (e *Markdown) Emit(w io.Writer, doc *Document) error {
	html, err := renderHTML(doc)
	if err != nil {
		return err
	}
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return fmt.Errorf("converting to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if md != "" {
		md += "\n"
	}
	if _, err := io.WriteString(w, md); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}
