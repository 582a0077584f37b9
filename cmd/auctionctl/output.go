package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// printer writes a command result as JSON or as text.
type printer struct {
	format string
	w      io.Writer
}

func (o *RootOptions) printer(w io.Writer) *printer {
	return &printer{format: o.Format, w: w}
}

// print emits data as indented JSON, or calls text for the text format.
func (p *printer) print(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("marshal output: %w", err)}
		}
		fmt.Fprintln(p.w, string(out))
		return nil
	}
	text(p.w)
	return nil
}
