package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when an uploaded file is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// rosterColumns maps normalized header labels to canonical roster fields.
// Uploads come from spreadsheets maintained by hand, so several spellings are
// accepted per field.
var rosterColumns = map[string]string{
	"name":                "name",
	"member":              "name",
	"member_name":         "name",
	"email":               "email",
	"e_mail":              "email",
	"phone":               "phone",
	"phone_number":        "phone",
	"contact":             "phone",
	"units":               "units",
	"investment_units":    "units",
	"amount":              "amount",
	"investment_amount":   "amount",
	"address":             "address",
	"registration_number": "registration_number",
	"reg_no":              "registration_number",
}

// rosterRow is one parsed and validated roster line.
type rosterRow struct {
	RowNumber          int
	Name               string
	Email              string
	Phone              string
	Units              int64
	Amount             int64
	Address            string
	RegistrationNumber string
}

type rosterTable struct {
	// fields maps column index to canonical field name.
	fields map[int]string
	rows   [][]string
	// headerRowNumber is the 1-based sheet row of the header line.
	headerRowNumber int
}

func parseRoster(fileName string, payload []byte) (rosterTable, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseRosterCSV(payload)
	case ".xlsx":
		return parseRosterExcel(payload)
	default:
		return rosterTable{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseRosterCSV(payload []byte) (rosterTable, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return rosterTable{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return normalizeRoster(records)
}

func parseRosterExcel(payload []byte) (rosterTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return rosterTable{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return rosterTable{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return rosterTable{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeRoster(rows)
}

// normalizeRoster finds the header row, maps recognized columns, and keeps the
// remaining non-empty lines as data rows.
func normalizeRoster(records [][]string) (rosterTable, error) {
	if len(records) == 0 {
		return rosterTable{}, errors.New("no rows found in file")
	}

	headerIndex := -1
	var fields map[int]string
	for idx, row := range records {
		if rowEmpty(row) {
			continue
		}
		mapped := mapHeader(row)
		if _, hasName := findField(mapped, "name"); !hasName {
			continue
		}
		if _, hasEmail := findField(mapped, "email"); !hasEmail {
			continue
		}
		headerIndex = idx
		fields = mapped
		break
	}
	if headerIndex == -1 {
		return rosterTable{}, errors.New("header row with name and email columns not found")
	}

	var dataRows [][]string
	for _, row := range records[headerIndex+1:] {
		if rowEmpty(row) {
			continue
		}
		dataRows = append(dataRows, row)
	}

	return rosterTable{
		fields:          fields,
		rows:            dataRows,
		headerRowNumber: headerIndex + 1,
	}, nil
}

func mapHeader(row []string) map[int]string {
	fields := map[int]string{}
	for idx, cell := range row {
		label := normalizeLabel(cell)
		if field, ok := rosterColumns[label]; ok {
			if _, taken := findField(fields, field); !taken {
				fields[idx] = field
			}
		}
	}
	return fields
}

func findField(fields map[int]string, name string) (int, bool) {
	for idx, field := range fields {
		if field == name {
			return idx, true
		}
	}
	return 0, false
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, ".", "_")
	return strings.Trim(label, "_")
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// buildRow validates one data line into a rosterRow.
func (t rosterTable) buildRow(rowIdx int, row []string) (rosterRow, error) {
	cell := func(field string) string {
		idx, ok := findField(t.fields, field)
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	out := rosterRow{
		RowNumber:          t.headerRowNumber + rowIdx + 1,
		Name:               cell("name"),
		Email:              cell("email"),
		Phone:              cell("phone"),
		Address:            cell("address"),
		RegistrationNumber: maskRegistrationNumber(cell("registration_number")),
	}

	if out.Name == "" {
		return out, errors.New("name is required")
	}
	if out.Email == "" {
		return out, errors.New("email is required")
	}
	if !emailPattern.MatchString(out.Email) {
		return out, fmt.Errorf("invalid email %q", out.Email)
	}

	if raw := cell("units"); raw != "" {
		units, err := parseAmount(raw)
		if err != nil {
			return out, fmt.Errorf("invalid units %q", raw)
		}
		if units <= 0 {
			return out, fmt.Errorf("units must be positive, got %d", units)
		}
		out.Units = units
	}
	if raw := cell("amount"); raw != "" {
		amount, err := parseAmount(raw)
		if err != nil {
			return out, fmt.Errorf("invalid amount %q", raw)
		}
		if amount < 0 {
			return out, fmt.Errorf("amount must not be negative, got %d", amount)
		}
		out.Amount = amount
	}

	return out, nil
}

// parseAmount accepts plain integers and comma-grouped figures.
func parseAmount(raw string) (int64, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	return strconv.ParseInt(cleaned, 10, 64)
}

// maskRegistrationNumber keeps only the birth-date half of a resident
// registration number. Anything after the separator is replaced before the
// value ever reaches storage.
func maskRegistrationNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if idx := strings.Index(raw, "-"); idx > 0 {
		return raw[:idx] + "-*******"
	}
	if len(raw) > 6 {
		return raw[:6] + "-*******"
	}
	return raw
}
