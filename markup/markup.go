// Package markup turns the HTML produced by the rich text editor into
// Markdown and summaries.
package markup

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/foomo/contentsite/service/vo"
	"golang.org/x/net/html"
)

const maxDescription = 280

func parse(source string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

func ToMarkdown(source string) (vo.Markdown, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	doc, err := parse(source)
	if err != nil {
		return "", err
	}
	node := doc.Selection.Nodes[0]
	if body := doc.Find("body"); body.Length() > 0 {
		node = body.Nodes[0]
	}
	markdownBytes, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return vo.Markdown(strings.TrimSpace(string(markdownBytes))), nil
}

// Summarize reads title, description and keywords from the document head.
// Fragments without a head fall back to the first heading and paragraph.
func Summarize(source string) vo.ContentSummary {
	doc, err := parse(source)
	if err != nil {
		return vo.ContentSummary{}
	}
	summary := vo.ContentSummary{
		Title:       text(doc.Find("title")),
		Description: metaContent(doc, "description"),
	}
	if summary.Title == "" {
		summary.Title = text(doc.Find("h1, h2, h3"))
	}
	if summary.Description == "" {
		summary.Description = truncate(text(doc.Find("p")), maxDescription)
	}
	for _, keyword := range strings.Split(metaContent(doc, "keywords"), ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			summary.Keywords = append(summary.Keywords, trimmed)
		}
	}
	return summary
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta[name][content]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
		}
		return content == ""
	})
	return content
}

// text is the whitespace-collapsed text of the first element in s.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
