package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// MinCourseFields is the number of fields a course row must carry: the
// code/title field followed by instructor, days, begin, end, room and credits.
const MinCourseFields = 7

// Kind classifies a row.
type Kind int

const (
	KindHeading Kind = iota
	KindSkipped
	KindCourse
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindSkipped:
		return "skipped"
	case KindCourse:
		return "course"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Reasons a row is skipped.
const (
	ReasonDecodeError  = "decode_error"
	ReasonTooFewFields = "too_few_fields"
	ReasonMissingTitle = "missing_title"
)

// Data-quality warnings raised on courses that are still emitted.
const (
	// WarningOrphanDepartment flags a course seen before any department heading.
	WarningOrphanDepartment = "orphan_department"
	// WarningReversedTimes flags a course whose begin time is after its end time.
	WarningReversedTimes = "reversed_time_range"
)

// Params are supplied once per import run.
type Params struct {
	Year int
	Term string
	// CodeTokens is how many leading words of the first field form the course
	// code: 1 turns "ACC 201 Intro" into ("ACC", "201 Intro"), 2 into ("ACC 201", "Intro").
	CodeTokens int
}

// Outcome is the classification of one row.
type Outcome struct {
	Line       int
	Kind       Kind
	Department string
	Reason     string
	Detail     string
	Course     *models.Course
	Orphan     bool
	// ReversedTimes is set when both times carry AM/PM and begin is after end.
	ReversedTimes bool
}

// Parser folds a row stream into courses, carrying the current department
// from heading rows to the course rows that follow them. A Parser is single
// use and must see rows in file order.
type Parser struct {
	params        Params
	department    string
	hasDepartment bool
}

// NewParser creates a parser with no department context.
func NewParser(params Params) *Parser {
	if params.CodeTokens < 1 {
		params.CodeTokens = 1
	}
	return &Parser{params: params}
}

// Department returns the current department context.
func (p *Parser) Department() (string, bool) {
	return p.department, p.hasDepartment
}

// Next classifies row and advances the department state.
func (p *Parser) Next(row Row) Outcome {
	out := Outcome{Line: row.Line}
	if row.Err != nil {
		out.Kind = KindSkipped
		out.Reason = ReasonDecodeError
		out.Detail = row.Err.Error()
		return out
	}

	fields := row.Fields
	if IsHeading(fields) {
		p.department = strings.TrimSpace(fields[0])
		p.hasDepartment = true
		out.Kind = KindHeading
		out.Department = p.department
		return out
	}

	if len(fields) < MinCourseFields {
		out.Kind = KindSkipped
		out.Reason = ReasonTooFewFields
		out.Detail = fmt.Sprintf("%d fields", len(fields))
		return out
	}

	code, title, ok := SplitCodeTitle(fields[0], p.params.CodeTokens)
	if !ok {
		out.Kind = KindSkipped
		out.Reason = ReasonMissingTitle
		out.Detail = strings.TrimSpace(fields[0])
		return out
	}

	course := &models.Course{
		CourseCode:  code,
		Title:       title,
		Instructor:  strings.TrimSpace(fields[1]),
		MeetingDays: strings.TrimSpace(fields[2]),
		BeginTime:   strings.TrimSpace(fields[3]),
		EndTime:     strings.TrimSpace(fields[4]),
		Room:        strings.TrimSpace(fields[5]),
		Credits:     strings.TrimSpace(fields[6]),
		Year:        p.params.Year,
		Term:        p.params.Term,
	}

	if begin, end, ok := clockRange(course.BeginTime, course.EndTime); ok && begin.After(end) {
		out.ReversedTimes = true
		out.Detail = course.BeginTime + " > " + course.EndTime
	}

	if p.hasDepartment && p.department != "" {
		dept := p.department
		course.Department = &dept
		out.Department = dept
	} else {
		out.Orphan = true
	}

	out.Kind = KindCourse
	out.Course = course
	return out
}

// IsHeading reports whether a row introduces a department: a single field, or
// several fields where everything after the first is blank.
func IsHeading(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields[1:] {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// SplitCodeTitle splits "CODE rest of title" after the first tokens words.
// Runs of whitespace count as one separator and leading whitespace is
// ignored. ok is false when nothing remains for the title.
func SplitCodeTitle(field string, tokens int) (code, title string, ok bool) {
	if tokens < 1 {
		tokens = 1
	}
	rest := strings.TrimLeftFunc(field, unicode.IsSpace)
	words := make([]string, 0, tokens)
	for len(words) < tokens {
		if rest == "" {
			return "", "", false
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return "", "", false
		}
		words = append(words, rest[:end])
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	if rest == "" {
		return "", "", false
	}
	return strings.Join(words, " "), rest, true
}

// Only times with a meridiem are compared. Exports also carry bare 12-hour
// times ("11:00" to "1:15") that cannot be ordered without guessing.
var clockLayouts = []string{"3:04 PM", "3:04PM"}

func parseClock(raw string) (time.Time, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clockRange parses both ends; ok is false unless both are AM/PM clock times.
func clockRange(begin, end string) (time.Time, time.Time, bool) {
	b, ok := parseClock(begin)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	e, ok := parseClock(end)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return b, e, true
}

// ParseAll runs a full fold over r without persisting anything.
func ParseAll(r io.Reader, params Params) ([]Outcome, error) {
	reader := NewReader(r)
	parser := NewParser(params)
	var outcomes []Outcome
	for {
		row, err := reader.Next()
		if err == io.EOF {
			return outcomes, nil
		}
		if err != nil {
			return outcomes, fmt.Errorf("read catalog: %w", err)
		}
		outcomes = append(outcomes, parser.Next(row))
	}
}
