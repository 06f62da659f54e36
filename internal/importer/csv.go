package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"prezence/api/internal/roster"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a roll exported as CSV. The first record is the header and
// its cells become the row keys; the delimiter is ';' unless the header only
// contains commas.
func ParseCSV(r io.Reader) ([]roster.Unit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Err: ErrNoRows}
	}
	if err != nil {
		return nil, &FormatError{Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]any, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
		}
		if blankRecord(record) {
			continue
		}
		row := NewObject()
		for i, name := range header {
			if name == "" || i >= len(record) {
				continue
			}
			row.Set(name, strings.TrimSpace(record[i]))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &FormatError{Err: ErrNoRows}
	}
	return Normalize(rows)
}

func detectDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if !strings.Contains(line, ";") && strings.Contains(line, ",") {
		return ','
	}
	return ';'
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
