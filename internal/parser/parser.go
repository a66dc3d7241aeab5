// Package parser turns the delimited form export into records.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/koboload/pkg/koboload"
)

const utf8BOM = "\ufeff"

// Parse reads ';'-delimited text whose first line is the header.
//
// Header names are kept exactly as written, since columns are matched by
// their original text. A line whose field count differs from the header, or
// that cannot be tokenized, is dropped and the parse continues; every drop
// is counted in ParseResult.Skipped with its line number in SkippedLines.
//
// A quote that is opened and never closed would otherwise swallow every
// following line into one field. Only the line holding it is dropped and
// parsing resumes on the next line.
func Parse(r io.Reader) (*koboload.ParseResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return ParseBytes(body)
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(body []byte) (*koboload.ParseResult, error) {
	headerReader := newReader(body, 0)
	header, err := headerReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("export has no header line: %w", koboload.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	p := &parseState{
		body:   body,
		header: header,
		keep:   firstOccurrence(header),
		result: &koboload.ParseResult{Header: header},
	}

	from := int(headerReader.InputOffset())
	for from >= 0 && from < len(body) {
		if from, err = p.readSegment(from); err != nil {
			return nil, err
		}
	}

	return p.result, nil
}

type parseState struct {
	body   []byte
	header []string
	keep   []bool
	result *koboload.ParseResult
}

func newReader(body []byte, fields int) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = koboload.FieldSeparator
	reader.LazyQuotes = true
	reader.FieldsPerRecord = fields
	return reader
}

// readSegment parses body[from:]. It returns the offset to resume at when
// an unterminated quote ran to the end of the input, or -1 once the segment
// has been read completely.
func (p *parseState) readSegment(from int) (int, error) {
	reader := newReader(p.body[from:], len(p.header))
	lineBase := bytes.Count(p.body[:from], []byte{'\n'})

	for {
		start := from + int(reader.InputOffset())
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return -1, nil
		}

		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return 0, fmt.Errorf("failed to read export: %w", err)
		}

		if from+int(reader.InputOffset()) == len(p.body) {
			if line, resume, ok := unterminatedQuote(p.body, start); ok {
				p.skip(line)
				return resume, nil
			}
		}

		if parseErr != nil {
			p.skip(lineBase + parseErr.StartLine)
			continue
		}

		rec := make(koboload.Record, len(p.header))
		for i, name := range p.header {
			if p.keep[i] {
				rec[name] = fields[i]
			}
		}
		p.result.Records = append(p.result.Records, rec)
	}
}

func (p *parseState) skip(line int) {
	p.result.Skipped++
	p.result.SkippedLines = append(p.result.SkippedLines, line)
}

// unterminatedQuote inspects the last record of body, which starts at
// offset start. The record is treated as an unclosed quote when it spans
// several physical lines and a strict reading of it fails on a quoted field.
// It returns the 1-based line the record starts on and the offset of the
// line after it.
func unterminatedQuote(body []byte, start int) (line, resume int, ok bool) {
	i := start
	for i < len(body) && (body[i] == '\n' || body[i] == '\r') {
		i++
	}
	rest := body[i:]

	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimRight(rest[nl:], "\r\n")) == 0 {
		return 0, 0, false
	}

	strict := newReader(rest, -1)
	strict.LazyQuotes = false
	if _, err := strict.Read(); !errors.Is(err, csv.ErrQuote) {
		return 0, 0, false
	}

	return bytes.Count(body[:i], []byte{'\n'}) + 1, i + nl + 1, true
}

// firstOccurrence marks which header positions supply a record key.
// A repeated header name keeps the value of its first column.
func firstOccurrence(header []string) []bool {
	seen := make(map[string]struct{}, len(header))
	keep := make([]bool, len(header))
	for i, name := range header {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		keep[i] = true
	}
	return keep
}
