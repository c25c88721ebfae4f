package archiveutil

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/chaisql/bsonarchive/document"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

// DumpOptions configure Dump.
type DumpOptions struct {
	// Color highlights keys and values with ANSI escape codes.
	Color bool
	// Indent prints every document on several lines.
	Indent bool
	// MaxDocumentSize is the largest accepted document, 0 meaning the default.
	MaxDocumentSize int
}

// Dump reads an archive stream from r and prints each root document as
// extended JSON, one per line unless Indent is set.
// It returns the number of printed documents.
func Dump(r io.Reader, w io.Writer, opts DumpOptions) (int, error) {
	fbs, err := document.ReadBSON(r, opts.MaxDocumentSize)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	p := newPrinter(bw, opts)
	for _, fb := range fbs {
		err = p.printDocument(fb, 0)
		if err != nil {
			return 0, err
		}
		bw.WriteByte('\n')
	}

	return len(fbs), bw.Flush()
}

type printer struct {
	w      *bufio.Writer
	indent bool

	key, str, num, lit, ext *color.Color
}

func newPrinter(w *bufio.Writer, opts DumpOptions) *printer {
	p := printer{
		w:      w,
		indent: opts.Indent,
		key:    color.New(color.FgBlue, color.Bold),
		str:    color.New(color.FgGreen),
		num:    color.New(color.FgYellow),
		lit:    color.New(color.FgMagenta),
		ext:    color.New(color.FgCyan),
	}

	for _, c := range []*color.Color{p.key, p.str, p.num, p.lit, p.ext} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &p
}

func (p *printer) newline(depth int) {
	if !p.indent {
		return
	}
	p.w.WriteByte('\n')
	p.w.WriteString(strings.Repeat("  ", depth))
}

func (p *printer) separator(i int, depth int) {
	if i > 0 {
		p.w.WriteByte(',')
		if !p.indent {
			p.w.WriteByte(' ')
		}
	}
	p.newline(depth)
}

func (p *printer) printDocument(fb *document.FieldBuffer, depth int) error {
	if fb.Len() == 0 {
		_, err := p.w.WriteString("{}")
		return err
	}

	p.w.WriteByte('{')
	var i int
	err := fb.Iterate(func(field string, v document.Value) error {
		p.separator(i, depth+1)
		i++

		k, err := json.Marshal(field)
		if err != nil {
			return errors.WithStack(err)
		}
		p.key.Fprint(p.w, string(k))
		p.w.WriteString(": ")

		return p.printValue(v, depth+1)
	})
	if err != nil {
		return err
	}
	p.newline(depth)
	p.w.WriteByte('}')

	return nil
}

func (p *printer) printArray(vb document.ValueBuffer, depth int) error {
	if vb.Len() == 0 {
		_, err := p.w.WriteString("[]")
		return err
	}

	p.w.WriteByte('[')
	for i, v := range vb {
		p.separator(i, depth+1)

		err := p.printValue(v, depth+1)
		if err != nil {
			return err
		}
	}
	p.newline(depth)
	p.w.WriteByte(']')

	return nil
}

func (p *printer) printValue(v document.Value, depth int) error {
	switch v.Type {
	case document.DocumentValue:
		return p.printDocument(v.Document(), depth)
	case document.ArrayValue:
		return p.printArray(v.Array(), depth)
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}

	c := p.ext
	switch {
	case v.Type == document.StringValue:
		c = p.str
	case v.Type.IsNumber():
		c = p.num
	case v.Type == document.NullValue, v.Type == document.BoolValue:
		c = p.lit
	}

	_, err = c.Fprint(p.w, string(data))
	return err
}
