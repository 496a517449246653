package formats

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/extract"
)

// jsonRenderer writes files as JSON with 0-based positions: one array
// (json, pretty-json) or one object per line (json-lines).
type jsonRenderer struct {
	perLine bool
	indent  bool
}

func (j *jsonRenderer) encoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if j.indent {
		enc.SetIndent("", "  ")
	}
	return enc
}

func (j *jsonRenderer) Render(w io.Writer, files []*extract.File) error {
	if j.perLine {
		for _, file := range files {
			if err := j.RenderFile(w, file); err != nil {
				return err
			}
		}
		return nil
	}
	if files == nil {
		files = []*extract.File{}
	}
	return outputError(j.encoder(w).Encode(files))
}

// RenderFile writes file as a standalone JSON object followed by a newline,
// whatever the array layout of Render.
func (j *jsonRenderer) RenderFile(w io.Writer, file *extract.File) error {
	if file == nil {
		return nil
	}
	return outputError(j.encoder(w).Encode(file))
}

// Decode reads output written by any JSON renderer: a single array, or a
// sequence of file objects.
func Decode(r io.Reader) ([]*extract.File, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOutput, "read results")
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var files []*extract.File
		if err := dec.Decode(&files); err != nil {
			return nil, errors.Wrap(err, errors.CodeOutput, "decode results")
		}
		return files, nil
	}

	var files []*extract.File
	for {
		var file extract.File
		err := dec.Decode(&file)
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeOutput, "decode results")
		}
		files = append(files, &file)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
