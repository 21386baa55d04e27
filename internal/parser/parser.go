// Package parser turns delimited job-posting rows into structured
// records.
//
// One logical record is one physical line: quoted fields may contain
// the delimiter and doubled-quote escapes, but embedded newlines inside
// quoted fields are not supported. Per-row failures are classified and
// recorded without aborting the stream.
package parser

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// JobIDAuto derives job IDs from a content hash instead of a column.
const JobIDAuto = "auto"

// maxLineBytes bounds a single physical line.
const maxLineBytes = 16 * 1024 * 1024

// badRowLogLimit caps per-row warning logs before suppression.
const badRowLogLimit = 10

// Options configures column mapping and the field delimiter.
type Options struct {
	SkillsColumn           string
	CategoryColumn         string
	FallbackCategoryColumn string
	JobIDColumn            string // column name, or JobIDAuto
	Delimiter              rune   // field delimiter; 0 means comma
}

// DelimiterForPath picks the field delimiter from a file extension:
// tab for .tsv, comma otherwise.
func DelimiterForPath(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// SkillMention is one entry of the skills-JSON column.
type SkillMention struct {
	Skill      string
	Bucket     string
	Similarity float64
	Thinking   string
}

// Record is one parsed row.
type Record struct {
	Line int // zero-based data line number

	JobID                  string
	Title                  string
	Company                string
	PostedAt               string
	ScheduleType           string
	WorkFromHome           string // "yes", "no" or ""
	District               string
	NCOCode                string
	GroupName              string
	OccupationGroup        string
	HybridNCOJD            string
	TokenCount             int
	HighestSimilaritySpec  string
	HighestSimilarityScore float64
	SalaryMean             float64
	SalaryCurrency         string
	SalarySource           string

	Skills []SkillMention
}

// BadRow records one classified row-level failure.
type BadRow struct {
	Line       int
	Identifier string
	Reason     string
}

// Counters aggregates parse outcomes so no dropped row goes
// unaccounted for.
type Counters struct {
	Total       int `json:"rows_total"`
	Parsed      int `json:"rows_parsed"`
	Failed      int `json:"rows_failed"`
	SkippedNoID int `json:"rows_skipped_no_id"`
}

// Scanner streams records from a reader, front to back, exactly once.
type Scanner struct {
	opts    Options
	delim   byte
	logger  *slog.Logger
	scanner *bufio.Scanner

	columns  []string
	colIndex map[string]int
	started  bool
	line     int

	record   Record
	err      error
	badRows  []BadRow
	counters Counters
}

// NewScanner creates a scanner over r. A nil logger discards.
func NewScanner(r io.Reader, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	delim := byte(',')
	if opts.Delimiter != 0 {
		delim = byte(opts.Delimiter)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Scanner{opts: opts, delim: delim, logger: logger, scanner: sc}
}

// Columns returns the header columns, available after the first Scan.
func (s *Scanner) Columns() []string { return s.columns }

// BadRows returns the classified row failures seen so far.
func (s *Scanner) BadRows() []BadRow { return s.badRows }

// Counters returns the aggregate parse outcome counts.
func (s *Scanner) Counters() Counters { return s.counters }

// Err returns the first fatal stream error, if any. Row-level failures
// never surface here.
func (s *Scanner) Err() error { return s.err }

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record { return s.record }

// Scan advances to the next parseable row. It returns false at end of
// stream or on a fatal read error; malformed rows are recorded in
// BadRows and skipped, and rows without a resolvable job ID are counted
// and skipped.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if !s.started && !s.readHeader() {
		return false
	}

	for s.scanner.Scan() {
		line := s.line
		s.line++
		s.counters.Total++

		rec, failure := s.parseLine(line, s.scanner.Text())
		if failure != nil {
			s.recordBadRow(*failure)
			continue
		}
		if rec == nil {
			// Missing job ID: intentional skip, not an error. Job ID is
			// the only field with no safe default.
			s.counters.SkippedNoID++
			continue
		}

		s.counters.Parsed++
		s.record = *rec
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("reading input: %w", err)
	}
	return false
}

func (s *Scanner) readHeader() bool {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			s.err = fmt.Errorf("reading header: %w", err)
		} else {
			s.err = fmt.Errorf("input is empty: no header row")
		}
		return false
	}
	fields, err := splitLine(strings.TrimPrefix(s.scanner.Text(), "\ufeff"), s.delim)
	if err != nil {
		s.err = fmt.Errorf("malformed header row: %w", err)
		return false
	}
	s.columns = fields
	s.colIndex = make(map[string]int, len(fields))
	for i, c := range fields {
		s.colIndex[strings.TrimSpace(c)] = i
	}
	s.started = true
	return true
}

// parseLine parses one data line. It returns (nil, nil) for rows
// skipped due to a missing job ID and a BadRow for classified failures.
func (s *Scanner) parseLine(line int, text string) (*Record, *BadRow) {
	fields, err := splitLine(text, s.delim)
	if err != nil {
		return nil, &BadRow{Line: line, Identifier: "unknown", Reason: err.Error()}
	}
	if len(fields) > len(s.columns) {
		return nil, &BadRow{
			Line:       line,
			Identifier: s.fieldOf(fields, "Job Title"),
			Reason:     fmt.Sprintf("row has %d fields, header declares %d", len(fields), len(s.columns)),
		}
	}

	get := func(col string) string {
		idx, ok := s.colIndex[col]
		if !ok || idx >= len(fields) {
			return "" // header-declared column missing from this row
		}
		return strings.TrimSpace(fields[idx])
	}

	rec := &Record{
		Line:                   line,
		Title:                  get("Job Title"),
		Company:                get("Company Name"),
		PostedAt:               get("Posted At"),
		ScheduleType:           get("Schedule Type"),
		District:               get("District"),
		NCOCode:                get("NCO Code"),
		GroupName:              get(s.opts.FallbackCategoryColumn),
		OccupationGroup:        get(s.opts.CategoryColumn),
		HybridNCOJD:            get("Hybrid NCO JD"),
		TokenCount:             parseInt(get("token_count")),
		HighestSimilaritySpec:  get("Highest Similarity Spec"),
		HighestSimilarityScore: parseFloat(get("Highest Similarity Score Spec")),
		SalaryMean:             parseFloat(get("salary_mean_inr_month")),
		SalaryCurrency:         get("salary_currency_unit"),
		SalarySource:           get("salary_source"),
	}
	if wfh, ok := parseBool(get("Work From Home")); ok {
		if wfh {
			rec.WorkFromHome = "yes"
		} else {
			rec.WorkFromHome = "no"
		}
	}

	skills, skillErr := parseSkillsJSON(get(s.opts.SkillsColumn))
	if skillErr != nil {
		return nil, &BadRow{Line: line, Identifier: identifier(rec), Reason: skillErr.Error()}
	}
	rec.Skills = skills

	if s.opts.JobIDColumn != "" && s.opts.JobIDColumn != JobIDAuto {
		rec.JobID = get(s.opts.JobIDColumn)
	} else {
		rec.JobID = contentJobID(rec)
	}
	if rec.JobID == "" {
		return nil, nil
	}
	return rec, nil
}

// contentJobID derives a stable job identifier from row content. A row
// with no usable identity yields "".
func contentJobID(rec *Record) string {
	if rec.Title == "" && rec.Company == "" && rec.District == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(rec.Title + "|" + rec.Company + "|" + rec.District))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Scanner) fieldOf(fields []string, col string) string {
	if idx, ok := s.colIndex[col]; ok && idx < len(fields) {
		if v := strings.TrimSpace(fields[idx]); v != "" {
			return v
		}
	}
	return "unknown"
}

func identifier(rec *Record) string {
	if rec.Title != "" {
		return rec.Title
	}
	if rec.Company != "" {
		return rec.Company
	}
	return "unknown"
}

func (s *Scanner) recordBadRow(br BadRow) {
	s.counters.Failed++
	s.badRows = append(s.badRows, br)
	if len(s.badRows) <= badRowLogLimit {
		s.logger.Warn("row failed",
			slog.Int("line", br.Line),
			slog.String("reason", br.Reason))
	} else if len(s.badRows) == badRowLogLimit+1 {
		s.logger.Warn("suppressing further bad row warnings")
	}
}

// rawMention tolerates similarity values that arrive as numbers or
// strings; anything unparseable defaults to 0.
type rawMention struct {
	Skill      string          `json:"skill"`
	Bucket     string          `json:"bucket"`
	Similarity json.RawMessage `json:"mapping_similarity"`
	Thinking   string          `json:"thinking"`
}

// parseSkillsJSON decodes the skills column. Undecodable JSON gets one
// repair attempt (the column is LLM output and often nearly-valid);
// after that the row is a classified failure.
func parseSkillsJSON(text string) ([]SkillMention, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var raw []rawMention
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		if json.Valid([]byte(text)) {
			return nil, fmt.Errorf("skills is not a JSON array")
		}
		repaired, repErr := jsonrepair.JSONRepair(text)
		if repErr != nil || json.Unmarshal([]byte(repaired), &raw) != nil {
			return nil, fmt.Errorf("invalid skills JSON: %v", err)
		}
	}

	mentions := make([]SkillMention, 0, len(raw))
	for _, m := range raw {
		if strings.TrimSpace(m.Skill) == "" {
			continue
		}
		mentions = append(mentions, SkillMention{
			Skill:      strings.TrimSpace(m.Skill),
			Bucket:     strings.TrimSpace(m.Bucket),
			Similarity: similarityOf(m.Similarity),
			Thinking:   strings.TrimSpace(m.Thinking),
		})
	}
	return mentions, nil
}

func similarityOf(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// splitLine splits one physical line into delimiter-separated fields.
// Quoted fields may contain the delimiter and doubled-quote escapes.
func splitLine(line string, delim byte) ([]string, error) {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i += 2
					continue
				}
				inQuotes = false
				i++
				if i < len(line) && line[i] != delim {
					return nil, fmt.Errorf("malformed quoting: unexpected character after closing quote at offset %d", i)
				}
				continue
			}
			field.WriteByte(c)
			i++
		case c == '"':
			if field.Len() > 0 {
				return nil, fmt.Errorf("malformed quoting: quote inside unquoted field at offset %d", i)
			}
			inQuotes = true
			i++
		case c == delim:
			fields = append(fields, field.String())
			field.Reset()
			i++
		default:
			field.WriteByte(c)
			i++
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("malformed quoting: unterminated quoted field")
	}
	fields = append(fields, field.String())
	return fields, nil
}
