package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"prezence/api/internal/roster"
)

var csvHeader = []string{"Vchod", "Jednotka", "Vlastnik", "Podil (%)", "Pritomen", "PM"}

// WriteCSV writes the roll as a semicolon separated sheet with a UTF-8 BOM,
// which is what spreadsheet software in the Czech locale expects.
func WriteCSV(w io.Writer, units []roster.Unit) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, u := range units {
		record := []string{
			u.Block,
			u.UnitNumber,
			u.OwnerName,
			decimalComma(u.Share),
			yesNo(u.IsPresent),
			yesNo(u.HasPowerOfAttorney),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFilename is the download name for a sheet exported on date.
func CSVFilename(date time.Time) string {
	return "prezence_svj_" + date.Format("2006-01-02") + ".csv"
}

func exportCSV(units []roster.Unit, date time.Time) (*Result, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, units); err != nil {
		return nil, err
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: CSVFilename(date),
		MimeType: "text/csv; charset=utf-8",
	}, nil
}

// decimalComma formats v with two decimals and a decimal comma.
func decimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}

func yesNo(v bool) string {
	if v {
		return "ANO"
	}
	return "NE"
}
