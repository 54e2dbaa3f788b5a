package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
	formatPDF   = "pdf"
)

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return eris.Errorf("unsupported format %q (want one of %v)", format, allowed)
}

// writeTo runs write against stdout when path is empty, otherwise against a
// created file. A failed write removes the partial file.
func writeTo(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create output %s", path)
	}
	if err := write(f); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "close output %s", path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write json")
}
