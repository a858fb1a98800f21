// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"html/template"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="pastehost">
<title>{{.Title}}</title>
<style>{{.Style}}</style>
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

const pageStyle = `
body { margin: 0; background: #fff; color: #1f2328; font: 16px/1.5 -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; }
main { max-width: 860px; margin: 0 auto; padding: 32px 16px; }
pre { overflow-x: auto; padding: 16px; border-radius: 6px; background: #f6f8fa; font: 13px/1.45 ui-monospace, SFMono-Regular, Menlo, monospace; }
code { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 6px 13px; }
img { max-width: 100%; }
`

type page struct {
	Title string
	Style template.CSS
	Body  template.HTML
}

// wrapPage embeds body, which must already be safe HTML, in a
// standalone document.
func wrapPage(title, body string) ([]byte, error) {
	var buffer bytes.Buffer
	err := pageTemplate.Execute(&buffer, page{
		Title: title,
		Style: template.CSS(pageStyle),
		Body:  template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("render: page template: %w", err)
	}
	return buffer.Bytes(), nil
}
