// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/pastehost/pastehost/lib/publish"
)

// Format is a detected input format.
type Format uint8

const (
	FormatText Format = iota
	FormatHTML
	FormatMarkdown
	FormatSource
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "markdown"
	case FormatSource:
		return "source"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat accepts the names String returns plus "md".
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(name) {
	case "text", "txt":
		return FormatText, true
	case "html":
		return FormatHTML, true
	case "markdown", "md":
		return FormatMarkdown, true
	case "source", "code":
		return FormatSource, true
	case "binary":
		return FormatBinary, true
	}
	return 0, false
}

const htmlMimeType = "text/html; charset=utf-8"

// Config configures a Pipeline.
type Config struct {
	// Title names generated pages. Defaults to the hint's base name,
	// then the first Markdown heading, then "pastehost".
	Title string

	// Format forces a format instead of detecting one.
	Format *Format

	// Style is the chroma style name. Defaults to "github".
	Style string

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Pipeline implements publish.ContentPipeline.
type Pipeline struct {
	title  string
	format *Format
	style  string
	logger *slog.Logger
}

var _ publish.ContentPipeline = (*Pipeline)(nil)

func New(config Config) *Pipeline {
	style := config.Style
	if style == "" {
		style = "github"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{title: config.Title, format: config.Format, style: style, logger: logger}
}

// Process renders raw. hint is the input's filename, or empty for
// stdin.
func (p *Pipeline) Process(raw []byte, hint string) (publish.Content, error) {
	name := path.Base(strings.TrimSpace(hint))
	if name == "." || name == "/" {
		name = ""
	}
	format := Detect(raw, name)
	if p.format != nil {
		format = *p.format
	}
	p.logger.Debug("rendering content", "hint", name, "format", format.String(), "bytes", len(raw))

	switch format {
	case FormatHTML:
		return publish.Content{Bytes: raw, MimeType: htmlMimeType, SuggestedPath: "index.html"}, nil
	case FormatBinary:
		return binaryContent(raw, name), nil
	}

	if !utf8.Valid(raw) {
		return publish.Content{}, fmt.Errorf("render: %s input is not valid UTF-8", format)
	}

	var body bytes.Buffer
	title := p.title
	switch format {
	case FormatMarkdown:
		if err := renderMarkdown(&body, raw, p.style); err != nil {
			return publish.Content{}, err
		}
		if title == "" {
			title = firstHeading(raw)
		}
	case FormatSource:
		if err := highlight(&body, string(raw), lexerFor(name, string(raw)), p.style); err != nil {
			return publish.Content{}, err
		}
	default:
		body.WriteString("<pre>")
		body.WriteString(html.EscapeString(string(raw)))
		body.WriteString("</pre>")
	}
	if title == "" {
		title = name
	}
	if title == "" {
		title = "pastehost"
	}

	page, err := wrapPage(title, body.String())
	if err != nil {
		return publish.Content{}, err
	}
	return publish.Content{Bytes: page, MimeType: htmlMimeType, SuggestedPath: "index.html"}, nil
}

// Detect guesses the format of raw given its file name.
func Detect(raw []byte, name string) Format {
	extension := strings.ToLower(path.Ext(name))
	switch extension {
	case ".html", ".htm":
		return FormatHTML
	case ".md", ".markdown", ".mdown":
		return FormatMarkdown
	case ".txt", ".text", ".log":
		if isText(raw) {
			return FormatText
		}
	}
	if !isText(raw) {
		return FormatBinary
	}
	if looksLikeHTML(raw) {
		return FormatHTML
	}
	if name != "" && lexers.Match(name) != nil {
		return FormatSource
	}
	if name == "" && looksLikeMarkdown(raw) {
		return FormatMarkdown
	}
	return FormatText
}

func isText(raw []byte) bool {
	return utf8.Valid(raw) && bytes.IndexByte(raw, 0) < 0
}

func looksLikeHTML(raw []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(raw[:min(len(raw), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func looksLikeMarkdown(raw []byte) bool {
	for _, line := range strings.SplitN(string(raw), "\n", 50) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## ") ||
			strings.HasPrefix(line, "```") || strings.HasPrefix(line, "- [") {
			return true
		}
	}
	return false
}

func firstHeading(raw []byte) string {
	for _, line := range strings.Split(string(raw), "\n") {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(heading)
		}
	}
	return ""
}

func binaryContent(raw []byte, name string) publish.Content {
	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}
	if name == "" {
		name = "file.bin"
		mediaType, _, _ := strings.Cut(mimeType, ";")
		if extensions, err := mime.ExtensionsByType(mediaType); err == nil && len(extensions) > 0 {
			name = "file" + extensions[0]
		}
	}
	return publish.Content{Bytes: raw, MimeType: mimeType, SuggestedPath: name}
}
