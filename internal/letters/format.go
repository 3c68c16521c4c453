package letters

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/models"
)

// Download formats.
const (
	FormatText = "txt"
	FormatHTML = "html"
)

// Download is a rendered letter ready to be sent as an attachment.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	boldPattern  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	slugPattern  = regexp.MustCompile(`[^a-z0-9]+`)
	headingLevel = []string{"###", "##", "#"}
)

// printTemplate is the printable document; the browser's print dialog turns it into a PDF.
var printTemplate = template.Must(template.New("letter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
  body { font-family: Georgia, "Times New Roman", serif; max-width: 46rem; margin: 2.5rem auto; line-height: 1.6; color: #111; }
  h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
  .meta { color: #555; font-size: 0.85rem; margin-bottom: 2rem; }
  @media print { body { margin: 0; } .meta { display: none; } }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta">{{ .Country }} &middot; {{ .Words }} words &middot; {{ .Date }}</p>
{{ .Body }}
</body>
</html>
`))

// Download renders a letter as plain text or a printable HTML document.
func (s *Service) Download(ctx context.Context, userID, id uint, format string) (*Download, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatHTML {
		return nil, apperror.ValidationField("format", "format must be txt or html")
	}

	letter, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name := filename(letter)
	if format == FormatText {
		return &Download{
			Filename:    name + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(RenderText(letter.Content)),
		}, nil
	}

	body, err := RenderHTML(letter)
	if err != nil {
		return nil, fmt.Errorf("failed to render letter: %w", err)
	}
	return &Download{
		Filename:    name + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}, nil
}

// RenderText strips markdown markers. Headings are underlined.
func RenderText(content string) string {
	var out strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		text, level := heading(line)
		text = boldPattern.ReplaceAllString(text, "$1")
		out.WriteString(text)
		out.WriteByte('\n')
		if level > 0 && text != "" {
			underline := "-"
			if level == 1 {
				underline = "="
			}
			out.WriteString(strings.Repeat(underline, len([]rune(text))))
			out.WriteByte('\n')
		}
	}
	return strings.TrimRight(out.String(), "\n") + "\n"
}

// RenderHTML converts headings, bold and paragraphs into a standalone HTML document.
func RenderHTML(letter *models.GeneratedLetter) ([]byte, error) {
	var body strings.Builder
	var paragraph []string
	flush := func() {
		if len(paragraph) > 0 {
			body.WriteString("<p>" + strings.Join(paragraph, "<br>\n") + "</p>\n")
			paragraph = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(letter.Content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		text, level := heading(line)
		text = boldPattern.ReplaceAllString(html.EscapeString(text), "<strong>$1</strong>")
		if level > 0 {
			flush()
			// the document title is the only h1
			tag := fmt.Sprintf("h%d", min(level+1, 3))
			body.WriteString("<" + tag + ">" + text + "</" + tag + ">\n")
			continue
		}
		paragraph = append(paragraph, text)
	}
	flush()

	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, map[string]any{
		"Title":   letter.Title,
		"Country": letter.Country.DisplayName(),
		"Words":   letter.WordCount,
		"Date":    letter.CreatedAt.Format("2 January 2006"),
		"Body":    template.HTML(body.String()),
	})
	return buf.Bytes(), err
}

// heading reports the markdown heading level of line (0 for none) and its text.
func heading(line string) (string, int) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range headingLevel {
		if strings.HasPrefix(trimmed, marker+" ") {
			return strings.TrimSpace(trimmed[len(marker):]), len(marker)
		}
	}
	return strings.TrimRight(line, " \t"), 0
}

func filename(letter *models.GeneratedLetter) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(letter.Title), "-"), "-")
	if slug == "" {
		slug = string(letter.LetterType)
	}
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return fmt.Sprintf("%s-%d", slug, letter.ID)
}
