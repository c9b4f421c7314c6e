// Package output renders health reports as text, markdown, or one of the
// structured encodings.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
	FormatYAML     Format = "yaml"
)

var formatAliases = map[string]Format{
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"toon":     FormatTOON,
	"yaml":     FormatYAML,
	"yml":      FormatYAML,
}

// ParseFormat maps a user-supplied name to a Format. Unknown names fall
// back to text.
func ParseFormat(s string) Format {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return FormatText
}

// structured reports whether f is a machine-readable encoding.
func (f Format) structured() bool {
	return f == FormatJSON || f == FormatTOON || f == FormatYAML
}

// Renderable is implemented by values with their own text and markdown
// layouts. RenderData is what structured formats encode.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes values in one format to stdout or a file.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// NewFormatter writes to stdout, or creates the file named by output.
// File output is never colored.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	if output == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}

	file, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	f := NewWriterFormatter(format, file, false)
	f.closer = file
	return f, nil
}

// NewWriterFormatter writes to w, which the formatter never closes.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *Formatter) Format() Format { return f.format }

func (f *Formatter) Colored() bool { return f.colored }

// Output writes data. Renderable values choose their own layout for text
// and markdown; anything else is encoded, as fenced JSON in markdown.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	switch {
	case ok && f.format.structured():
		return f.encode(r.RenderData())
	case ok && f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	case ok:
		return r.RenderText(f.w, f.colored)
	case f.format == FormatMarkdown:
		return f.fencedJSON(data)
	default:
		return f.encode(data)
	}
}

func (f *Formatter) encode(data any) error {
	format := f.format
	if !format.structured() {
		format = FormatJSON
	}
	out, err := Marshal(data, format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(f.w, out)
	return err
}

func (f *Formatter) fencedJSON(data any) error {
	out, err := Marshal(data, FormatJSON)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f.w, "```json\n%s```\n", out)
	return err
}

// Marshal encodes data as JSON, TOON or YAML, always newline-terminated.
// TOON and YAML keys follow the JSON field names.
func Marshal(data any, format Format) (string, error) {
	if format != FormatTOON && format != FormatYAML {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(out) + "\n", nil
	}

	generic, err := toGeneric(data)
	if err != nil {
		return "", err
	}

	if format == FormatYAML {
		out, err := yaml.Marshal(generic)
		if err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		return string(out), nil
	}

	out, err := toon.Marshal(generic, toon.WithIndent(2))
	if err != nil {
		return "", fmt.Errorf("encoding toon: %w", err)
	}
	return string(out) + "\n", nil
}

// toGeneric round-trips data through JSON so struct tags decide key names.
func toGeneric(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// ScoreColor colors text by a 0-100 score: green at 80 and above, yellow
// from 50, red below.
func ScoreColor(score int, text string) string {
	switch {
	case score >= 80:
		return color.GreenString(text)
	case score >= 50:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}
