package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	chunkTemplate = `Summarize the following text in {{ .Words }} words or less, focusing on key information and removing redundancies:

{{ .Text }}`

	finalTemplate = `Combine and refine the following summaries into a comprehensive book summary of about {{ .Words }} words. Make it engaging and highlight the main plot, characters, and themes:

{{ .Text }}`

	newsletterTemplate = `Using the following book summary, create a compelling newsletter for a general audience.
The newsletter should be about the book "{{ .Title }}".
It should be structured with:
1. A catchy title for the newsletter.
2. A brief, engaging introduction.
3. 3-4 bullet points highlighting key insights or interesting aspects of the book.
4. A concluding paragraph encouraging readers to explore the book.
Maintain an enthusiastic and informative tone.

Book Summary:
{{ .Text | trim }}`
)

// Templates holds the raw template text for each request kind. Empty
// fields fall back to the built-in wording.
type Templates struct {
	Chunk      string
	Final      string
	Newsletter string
}

type data struct {
	Text  string
	Title string
	Words int
}

// Renderer turns request parameters into prompt strings.
type Renderer struct {
	chunk      *template.Template
	final      *template.Template
	newsletter *template.Template
}

// NewRenderer parses the given templates, using the defaults for any that
// are empty.
func NewRenderer(t Templates) (*Renderer, error) {
	if t.Chunk == "" {
		t.Chunk = chunkTemplate
	}
	if t.Final == "" {
		t.Final = finalTemplate
	}
	if t.Newsletter == "" {
		t.Newsletter = newsletterTemplate
	}

	var r Renderer
	var err error
	if r.chunk, err = parse("chunk", t.Chunk); err != nil {
		return nil, err
	}
	if r.final, err = parse("final", t.Final); err != nil {
		return nil, err
	}
	if r.newsletter, err = parse("newsletter", t.Newsletter); err != nil {
		return nil, err
	}
	return &r, nil
}

// Default returns a renderer with the built-in templates.
func Default() *Renderer {
	r, err := NewRenderer(Templates{})
	if err != nil {
		panic(err)
	}
	return r
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt: failed to parse %s template: %w", name, err)
	}
	return tmpl, nil
}

func execute(tmpl *template.Template, d data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("prompt: failed to render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Chunk asks for a bounded summary of one chunk.
func (r *Renderer) Chunk(text string, words int) (string, error) {
	return execute(r.chunk, data{Text: text, Words: words})
}

// Final asks for one refined summary over the joined chunk summaries.
func (r *Renderer) Final(combined string, words int) (string, error) {
	return execute(r.final, data{Text: combined, Words: words})
}

func (r *Renderer) Newsletter(summary, title string) (string, error) {
	return execute(r.newsletter, data{Text: summary, Title: title})
}
