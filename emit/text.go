package emit

import (
	"bufio"
	"fmt"
	"io"
)

// Text writes plain text: a blank line between paragraphs and a form feed
// between source pages.
type Text struct{}

func (e *Text) ContentType() string { return "text/plain; charset=utf-8" }

func (e *Text) Extension() string { return "txt" }

func (e *Text) Emit(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	for i, page := range doc.Pages {
		if i > 0 {
			bw.WriteString("\f\n")
		}
		for j, p := range page.Paragraphs {
			if j > 0 {
				bw.WriteString("\n")
			}
			bw.WriteString(p.Text)
			bw.WriteString("\n")
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing text: %w", err)
	}
	return nil
}
