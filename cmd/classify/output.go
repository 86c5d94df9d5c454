package main

import (
	"bytes"
	"encoding/json"
	"io"
)

// writeJSON writes v on one line with ", " and ": " separators, the layout
// consumers of this tool already parse.
func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out := spaceSeparators(data)
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// spaceSeparators adds a space after every ',' and ':' outside string
// literals of compact JSON.
func spaceSeparators(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) + len(data)/8)

	inString, escaped := false, false
	for _, c := range data {
		buf.WriteByte(c)
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == ',' || c == ':'):
			buf.WriteByte(' ')
		}
	}
	return buf.Bytes()
}
