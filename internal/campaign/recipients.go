package campaign

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	recipientSep = regexp.MustCompile(`[\s,;]+`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
)

// ParseRecipients splits pasted text on whitespace, commas and semicolons.
func ParseRecipients(text string) []string {
	var out []string
	for _, p := range recipientSep.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ErrLegacyWorkbook is returned for .xls uploads, which cannot be read.
var ErrLegacyWorkbook = errors.New("legacy .xls workbooks are not supported; save the list as .xlsx or .csv")

// ParseRecipientFile collects every digit-only cell of an uploaded list:
// the first sheet of an .xlsx workbook, or a CSV or plain text file. Other
// cells (headers, names) are ignored.
func ParseRecipientFile(data []byte) ([]string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return parseWorkbook(data)
	case bytes.HasPrefix(data, oleMagic):
		return nil, ErrLegacyWorkbook
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return recipientCells(rows), nil
}

func parseWorkbook(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = integralCell(cell)
		}
	}
	return recipientCells(rows), nil
}

// integralCell turns a numeric cell stored in exponent form, such as
// 9.1987654321E+11, back into its digits.
func integralCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if digitsOnly.MatchString(cell) || !strings.ContainsAny(cell, ".eE") {
		return cell
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v < 0 || v != math.Trunc(v) || v > 1e15 {
		return cell
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func recipientCells(rows [][]string) []string {
	var cells []string
	for _, rec := range rows {
		for _, cell := range rec {
			for _, v := range ParseRecipients(cell) {
				if digitsOnly.MatchString(v) {
					cells = append(cells, v)
				}
			}
		}
	}
	return MergeRecipients(nil, cells)
}

// MergeRecipients appends extra to base, dropping duplicates and keeping first-seen order.
func MergeRecipients(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, r := range list {
			if seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// ApplyCountryCode prefixes each recipient with code for international credit types.
func ApplyCountryCode(recipients []string, creditType, code string) []string {
	code = strings.TrimSpace(code)
	out := make([]string, len(recipients))
	for i, r := range recipients {
		r = strings.TrimSpace(r)
		if code != "" && IsInternational(creditType) {
			r = code + r
		}
		out[i] = r
	}
	return out
}

// RecipientsText is the one-per-line export of a campaign's comma-joined list.
func RecipientsText(to string) string {
	return strings.ReplaceAll(to, ",", "\n")
}
