package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:tab\s*/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

func extractDOCX(data []byte) (Result, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Method: "docx-xml"}, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return Result{Text: docxXMLToText(doc.Editable().GetContent()), Pages: 1, Method: "docx-xml"}, nil
}

// docxXMLToText turns document.xml into text: paragraph and break elements become
// newlines, tabs become spaces, every other tag is dropped.
func docxXMLToText(content string) string {
	content = paragraphEnd.ReplaceAllStringFunc(content, func(m string) string {
		if strings.HasPrefix(m, "<w:tab") {
			return " "
		}
		return "\n"
	})
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

