package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Serialize renders the gradebook as a semester document: a JSON object
// keyed by subject title, subjects in insertion order, two-space indent.
func (gb *GradeBook) Serialize() ([]byte, error) {
	if gb.Len() == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, title := range gb.order {
		doc := gb.subjects[title]
		if doc.Assessments == nil {
			doc.Assessments = []Assessment{}
		}

		key, err := encodeJSON(title, "")
		if err != nil {
			return nil, fmt.Errorf("encode title %q: %w", title, err)
		}
		body, err := encodeJSON(doc, "  ")
		if err != nil {
			return nil, fmt.Errorf("encode subject %q: %w", title, err)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(body)
		if i < len(gb.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeJSON(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Deserialize replaces the gradebook contents with the given document.
// The document is parsed in full before anything is swapped in, so on error
// the gradebook is left untouched. Blank input yields an empty gradebook.
func (gb *GradeBook) Deserialize(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	gb.replace(parsed)
	return nil
}

// ParseDocument parses a semester document into a new gradebook.
func ParseDocument(data []byte) (*GradeBook, error) {
	out := NewGradeBook()
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, docError(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, docError(errors.New("top level must be an object"))
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, docError(err)
		}
		key := tok.(string)

		var raw struct {
			Title       *string                      `json:"title"`
			Assessments []map[string]json.RawMessage `json:"assessments"`
		}
		if err := dec.Decode(&raw); err != nil {
			return nil, &ParseError{Subject: key, Index: -1, Field: "subject", Err: err}
		}

		title := key
		if raw.Title != nil && *raw.Title != "" {
			title = *raw.Title
		}
		if out.Has(title) {
			return nil, &ParseError{Subject: title, Index: -1, Field: "title", Err: ErrDuplicateKey}
		}
		_ = out.AddSubject(title)

		for i, fields := range raw.Assessments {
			a, err := parseAssessment(fields)
			if err != nil {
				err.Subject, err.Index = title, i
				return nil, err
			}
			_ = out.AddAssessment(title, a)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, docError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, docError(errors.New("trailing data after document"))
	}
	return out, nil
}

func parseAssessment(fields map[string]json.RawMessage) (Assessment, *ParseError) {
	var a Assessment

	rawName, ok := fields["name"]
	if !ok {
		return a, &ParseError{Field: "name", Err: errors.New("missing")}
	}
	if err := json.Unmarshal(rawName, &a.Name); err != nil {
		return a, &ParseError{Field: "name", Err: err}
	}

	a.Kind = DefaultKind
	if rawKind, ok := fields["kind"]; ok && !isNull(rawKind) {
		if err := json.Unmarshal(rawKind, &a.Kind); err != nil {
			return a, &ParseError{Field: "kind", Err: err}
		}
		if a.Kind == "" {
			a.Kind = DefaultKind
		}
	}

	rawWeight, ok := fields["weight"]
	if !ok || isNull(rawWeight) {
		return a, &ParseError{Field: "weight", Err: errors.New("missing")}
	}
	w, err := parseNumber(rawWeight)
	if err != nil {
		return a, &ParseError{Field: "weight", Err: err}
	}
	a.Weight = w

	if rawMark, ok := fields["mark"]; ok && !isNull(rawMark) {
		m, err := parseNumber(rawMark)
		if err != nil {
			return a, &ParseError{Field: "mark", Err: err}
		}
		a.Mark = &m
	}
	return a, nil
}

// parseNumber accepts a JSON number or a string holding one.
func parseNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if s := bytes.TrimSpace(raw); len(s) > 0 && s[0] == '"' {
		var text string
		if err := json.Unmarshal(s, &text); err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", text)
		}
		f = v
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", raw)
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func docError(err error) error {
	return &ParseError{Index: -1, Field: "document", Err: err}
}
