// Package ingest parses Monefy CSV exports into typed records.
//
// Exports arrive with locale-dependent formatting: the delimiter is either a
// comma or a semicolon, dates are day/month/year, and the comma glyph doubles
// as both a decimal and a thousands separator depending on the exporting
// locale. Parsing is a single pass over the source stream and has no side
// effects; persistence is the services layer's job.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	apperrors "monestat/internal/errors"
)

// headerFields is the exact token sequence a Monefy export header must carry,
// in order. Anything else aborts the batch before any row is processed.
var headerFields = []string{
	"date", "account", "category", "amount",
	"currency", "converted amount", "currency", "description",
}

// Record is one normalized export row. Amount and ConvertedAmount keep the
// sign of the source value; the upsert engine folds the sign into the debit
// flag and stores magnitudes.
type Record struct {
	Date              time.Time
	Account           string
	Category          string
	Amount            float64
	Currency          string
	ConvertedAmount   float64
	ConvertedCurrency string
	Description       string
}

// RowError records a data row that failed to parse, with its 1-based line
// number in the source stream.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Options controls the per-row failure policy. The header policy is not
// configurable: a malformed header always fails the whole batch.
type Options struct {
	// CollectErrors keeps parsing past malformed rows and reports them in
	// Result.RowErrors instead of failing the batch on the first one.
	CollectErrors bool
}

// Result holds the parsed records and, in collect-errors mode, the rows that
// were skipped.
type Result struct {
	Records   []Record
	RowErrors []RowError
}

// Parse reads a Monefy export from r. It validates the header, detects the
// delimiter, and converts each data row into a Record. The returned sequence
// is finite and reflects a single pass over r.
func Parse(r io.Reader, opts Options) (*Result, error) {
	br := bufio.NewReader(r)

	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, apperrors.Wrap(apperrors.ErrValidation, err)
	}
	headerLine = strings.TrimPrefix(strings.TrimRight(headerLine, "\r\n"), "\ufeff")

	delim := detectDelimiter(headerLine)
	if headerLine != strings.Join(headerFields, string(delim)) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation,
			fmt.Sprintf("unexpected export header %q", headerLine))
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	result := &Result{}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A non-syntax error means the underlying reader failed;
			// retrying would return the same error forever.
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, apperrors.Wrap(apperrors.ErrValidation, err)
			}
			rowErr := RowError{Line: sourceLine(parseErr.StartLine), Err: apperrors.Wrap(apperrors.ErrValidation, err)}
			if !opts.CollectErrors {
				return nil, rowErr
			}
			result.RowErrors = append(result.RowErrors, rowErr)
			continue
		}

		// The reader tracks physical lines itself, so quoted fields
		// spanning lines do not skew the reported position.
		line, _ := cr.FieldPos(0)
		record, err := parseRow(fields)
		if err != nil {
			rowErr := RowError{Line: sourceLine(line), Err: err}
			if !opts.CollectErrors {
				return nil, rowErr
			}
			result.RowErrors = append(result.RowErrors, rowErr)
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// sourceLine converts a line number reported by the csv reader, which starts
// after the header, into a 1-based line number of the whole source stream.
func sourceLine(csvLine int) int {
	return csvLine + 1
}

// detectDelimiter picks the delimiter that actually appears in the header
// line. Monefy writes either comma- or semicolon-separated files depending on
// the device locale.
func detectDelimiter(header string) rune {
	if strings.ContainsRune(header, ';') {
		return ';'
	}
	return ','
}

func parseRow(fields []string) (Record, error) {
	if len(fields) < 7 {
		return Record{}, apperrors.WithMessage(apperrors.ErrValidation,
			fmt.Sprintf("expected at least 7 fields, got %d", len(fields)))
	}

	// The description keeps its spacing verbatim; every other field is
	// stripped of ordinary and non-breaking spaces.
	description := ""
	if len(fields) >= 8 {
		description = fields[7]
	}
	clean := make([]string, 7)
	for i := 0; i < 7; i++ {
		clean[i] = stripSpaces(fields[i])
	}

	date, err := parseDate(clean[0])
	if err != nil {
		return Record{}, err
	}
	amount, err := parseAmount(clean[3])
	if err != nil {
		return Record{}, err
	}
	converted, err := parseAmount(clean[5])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Date:              date,
		Account:           clean[1],
		Category:          clean[2],
		Amount:            amount,
		Currency:          clean[4],
		ConvertedAmount:   converted,
		ConvertedCurrency: clean[6],
		Description:       description,
	}, nil
}

func stripSpaces(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, " ", "")
}

// parseDate converts a day/month/year literal like "25/03/2020" into a UTC
// midnight time.Time. Records carry dates only, so normalizing to UTC keeps
// natural-key comparisons exact.
func parseDate(s string) (time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrConversion,
			fmt.Sprintf("invalid date %q: expected day/month/year", s))
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, apperrors.WithMessage(apperrors.ErrConversion,
				fmt.Sprintf("invalid date %q: %v", s, err))
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components (32/13/2020 would roll
	// over), so round-trip to reject them.
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrConversion,
			fmt.Sprintf("invalid date %q: no such calendar day", s))
	}
	return date, nil
}

// parseAmount converts a locale-tolerant numeric literal. Quote characters
// are stripped, then the string is split on commas: a final segment shorter
// than 3 characters means the comma was a decimal separator; otherwise every
// comma was a thousands separator. "1234,56" parses as 1234.56 while "1,234"
// parses as 1234.
func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	if s == "" {
		return 0, apperrors.WithMessage(apperrors.ErrConversion, "empty amount")
	}

	parts := strings.Split(s, ",")
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) < 3 {
			s = strings.Join(parts[:len(parts)-1], "") + "." + last
		} else {
			s = strings.Join(parts, "")
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrConversion,
			fmt.Sprintf("invalid amount %q", s))
	}
	return value, nil
}
