package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"course-planner/internal/course"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrMalformedField  = errors.New("malformed field")
)

var boundaryPattern = regexp.MustCompile(`\}\s*,\s*\{`)

// Kind selects how a field value is scanned.
type Kind int

const (
	KindString Kind = iota
	// KindNumber accepts a quoted value or a bare integer.
	KindNumber
)

// Field names one key to pull out of each record span.
type Field struct {
	Name string
	Kind Kind
}

// DefaultFields is the record schema requested from the model.
var DefaultFields = []Field{
	{Name: "course_code", Kind: KindString},
	{Name: "course_name", Kind: KindString},
	{Name: "course_description", Kind: KindString},
	{Name: "prerequisite_codes", Kind: KindString},
	{Name: "course_rank", Kind: KindNumber},
	{Name: "course_keywords", Kind: KindString},
	{Name: "explanation", Kind: KindString},
}

// Fields holds the raw values scanned from one record. Every configured
// field is present; absent ones carry course.NotFound.
type Fields map[string]string

// Get returns the value for name or course.NotFound.
func (f Fields) Get(name string) string {
	if v, ok := f[name]; ok {
		return v
	}
	return course.NotFound
}

// Result is the outcome of parsing one answer.
type Result struct {
	Records []Fields
	Skipped int
}

type scanner struct {
	field  Field
	quoted *regexp.Regexp
	bare   *regexp.Regexp
}

// Parser splits array-shaped text into record spans and scans each span
// with an ordered list of field scanners.
type Parser struct {
	scanners []scanner
	embedded *regexp.Regexp
}

// NewParser builds a parser for fields, or DefaultFields when none are given.
func NewParser(fields ...Field) *Parser {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	p := &Parser{scanners: make([]scanner, 0, len(fields))}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		name := regexp.QuoteMeta(f.Name)
		names = append(names, name)
		s := scanner{
			field:  f,
			quoted: regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		}
		if f.Kind == KindNumber {
			s.bare = regexp.MustCompile(`"` + name + `"\s*:\s*(-?\d+)`)
		}
		p.scanners = append(p.scanners, s)
	}
	p.embedded = regexp.MustCompile(`\{\s*"(?:` + strings.Join(names, "|") + `)"\s*:`)
	return p
}

// Parse scans text into records. A span that cannot be read is skipped and
// counted; it never stops the remaining spans from being read.
func (p *Parser) Parse(text string) Result {
	var result Result
	for i, sp := range p.segment(text) {
		fields, err := p.parseSpan(sp)
		if err != nil {
			result.Skipped++
			logrus.WithFields(logrus.Fields{
				"fragment": i,
				"reason":   err.Error(),
			}).Debug("skipping record fragment")
			continue
		}
		result.Records = append(result.Records, fields)
	}
	return result
}

type span struct {
	body   string
	closed bool
}

// segment cuts text on brace-comma-brace boundaries. A boundary inside a
// string value (odd quote count since the span start) is not a cut. A span is
// closed when a boundary or the final '}' ends it. Spans interrupted by the
// start of another record are cut there and left open.
func (p *Parser) segment(text string) []span {
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "["), "]"))
	open := strings.Index(text, "{")
	if open < 0 {
		return nil
	}
	text = text[open+1:]

	var spans []span
	prev := 0
	for _, b := range boundaryPattern.FindAllStringIndex(text, -1) {
		if unescapedQuotes(text[prev:b[0]])%2 != 0 {
			continue
		}
		spans = append(spans, p.splitEmbedded(text[prev:b[0]], true)...)
		prev = b[1]
	}
	tail := strings.TrimSpace(text[prev:])
	closed := strings.HasSuffix(tail, "}")
	spans = append(spans, p.splitEmbedded(strings.TrimSuffix(tail, "}"), closed)...)
	return spans
}

func (p *Parser) splitEmbedded(body string, closed bool) []span {
	locs := p.embedded.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return []span{{body: body, closed: closed}}
	}
	out := make([]span, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		out = append(out, span{body: body[prev:loc[0]]})
		prev = loc[0] + 1
	}
	return append(out, span{body: body[prev:], closed: closed})
}

func (p *Parser) parseSpan(sp span) (fields Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("%w: %v", ErrMalformedRecord, r)
		}
	}()

	if strings.TrimSpace(sp.body) == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedRecord)
	}
	if !sp.closed {
		return nil, fmt.Errorf("%w: unterminated", ErrMalformedRecord)
	}
	if unescapedQuotes(sp.body)%2 != 0 {
		return nil, fmt.Errorf("%w: unbalanced quotes", ErrMalformedRecord)
	}

	fields = make(Fields, len(p.scanners))
	for _, s := range p.scanners {
		value, ferr := s.scan(sp.body)
		if ferr != nil {
			logrus.WithError(ferr).WithField("field", s.field.Name).Debug("field unreadable")
			value = course.NotFound
		}
		fields[s.field.Name] = value
	}
	return fields, nil
}

func (s scanner) scan(body string) (string, error) {
	if m := s.quoted.FindStringSubmatch(body); m != nil {
		var value string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &value); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMalformedField, s.field.Name, err)
		}
		return strings.TrimSpace(value), nil
	}
	if s.bare != nil {
		if m := s.bare.FindStringSubmatch(body); m != nil {
			return m[1], nil
		}
	}
	return course.NotFound, nil
}

func unescapedQuotes(body string) int {
	count := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '"':
			count++
		}
	}
	return count
}
