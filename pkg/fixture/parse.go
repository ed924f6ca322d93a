package fixture

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads delimited text from r and builds records with the same rules
// as Load.
func Parse(r io.Reader, opts ...Option) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	records, perr := parse(data, resolveOptions(opts))
	if perr != nil {
		return nil, perr
	}
	return records, nil
}

func parse(data []byte, o Options) ([]Record, *ParseError) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if o.Trim {
		data = trimAfterQuotes(data, o.Comma, o.Comment)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = o.Comma
	reader.Comment = o.Comment
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = o.Trim

	columns := append([]string(nil), o.Columns...)
	headerPending := o.Header
	headerLine := 0

	var rows [][]string
	var rowLines []int

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newParseError(err)
		}
		line, _ := reader.FieldPos(0)

		if o.Trim {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		if o.SkipBlankRows && isBlank(row) {
			continue
		}

		if headerPending {
			headerPending = false
			headerLine = line
			if len(columns) == 0 {
				columns = row
			}
			continue
		}

		rows = append(rows, row)
		rowLines = append(rowLines, line)
	}

	if len(columns) == 0 {
		columns = positionalColumns(rows)
	}
	if err := checkColumns(columns); err != nil {
		return nil, &ParseError{Line: headerLine, Err: err}
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		values, err := fit(row, len(columns), o.Overflow)
		if err != nil {
			return nil, &ParseError{Line: rowLines[i], Err: err}
		}
		records = append(records, Record{columns: columns, values: values})
	}
	return records, nil
}

// trimAfterQuotes drops spaces and tabs between a closing quote and the
// next delimiter or line end, which encoding/csv otherwise rejects as a
// bare quote. Newlines are kept so line numbers do not move.
func trimAfterQuotes(data []byte, comma, comment rune) []byte {
	out := make([]byte, 0, len(data))
	inQuotes := false
	afterQuote := false
	fieldStart := true // only blanks seen since the last delimiter or newline
	lineStart := true

	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		chunk := data[i : i+size]
		i += size

		switch {
		case inQuotes:
			if r == '"' {
				if i < len(data) && data[i] == '"' {
					out = append(out, '"', '"')
					i++
					continue
				}
				inQuotes = false
				afterQuote = true
			}
			out = append(out, chunk...)

		case lineStart && comment != 0 && r == comment:
			end := bytes.IndexByte(data[i:], '\n')
			if end < 0 {
				end = len(data) - i
			}
			out = append(out, chunk...)
			out = append(out, data[i:i+end]...)
			i += end

		case r == comma || r == '\n' || r == '\r':
			afterQuote = false
			fieldStart = true
			lineStart = r == '\n'
			out = append(out, chunk...)

		case afterQuote && (r == ' ' || r == '\t'):
			// dropped

		case r == '"' && fieldStart:
			inQuotes = true
			fieldStart = false
			lineStart = false
			out = append(out, chunk...)

		default:
			afterQuote = false
			if r != ' ' && r != '\t' {
				fieldStart = false
			}
			lineStart = false
			out = append(out, chunk...)
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func positionalColumns(rows [][]string) []string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	columns := make([]string, width)
	for i := range columns {
		columns[i] = strconv.Itoa(i)
	}
	return columns
}

func checkColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c == "" {
			return fmt.Errorf("%w at position %d", ErrEmptyColumn, i+1)
		}
		if _, ok := seen[c]; ok {
			return fmt.Errorf("%w %q", ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// fit pads short rows with empty strings and applies the overflow policy
// to long ones.
func fit(row []string, width int, policy Overflow) ([]string, error) {
	switch {
	case len(row) == width:
		return row, nil
	case len(row) < width:
		values := make([]string, width)
		copy(values, row)
		return values, nil
	case policy == OverflowTruncate:
		return row[:width:width], nil
	default:
		return nil, fmt.Errorf("%w: row has %d fields, header has %d", csv.ErrFieldCount, len(row), width)
	}
}
