// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

func renderMarkdown(w io.Writer, source []byte, style string) error {
	// Raw HTML in Markdown is escaped; goldmark's default.
	markdown := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.DefinitionList, extension.Footnote),
		goldmark.WithRendererOptions(
			// Registered after the default HTML renderer (priority
			// 1000), so it owns fenced code blocks.
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{style: style}, 200)),
		),
	)
	if err := markdown.Convert(source, w); err != nil {
		return fmt.Errorf("render: markdown: %w", err)
	}
	return nil
}

// codeBlockRenderer highlights fenced code blocks with chroma.
type codeBlockRenderer struct {
	style string
}

func (r *codeBlockRenderer) RegisterFuncs(registerer renderer.NodeRendererFuncRegisterer) {
	registerer.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := block.Lines()
	for index := 0; index < lines.Len(); index++ {
		line := lines.At(index)
		code.Write(line.Value(source))
	}

	var lexer chroma.Lexer
	if language := block.Language(source); language != nil {
		lexer = lexers.Get(string(language))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	if err := highlight(w, code.String(), lexer, r.style); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

// lexerFor picks a lexer by file name, then by content analysis.
func lexerFor(name, code string) chroma.Lexer {
	if lexer := lexers.Match(name); lexer != nil {
		return lexer
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer
	}
	return lexers.Fallback
}

func highlight(w io.Writer, code string, lexer chroma.Lexer, styleName string) error {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("render: tokenising %s: %w", lexer.Config().Name, err)
	}
	formatter := chromahtml.New(chromahtml.TabWidth(4), chromahtml.WithLineNumbers(false))
	if err := formatter.Format(w, style, iterator); err != nil {
		return fmt.Errorf("render: highlighting: %w", err)
	}
	return nil
}
