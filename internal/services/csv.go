package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fincli/internal/core"
)

// Columns of an import file. The header row is required; column order is
// free and unknown columns are ignored.
const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colType        = "type"
	colAccount     = "account"
	colCategory    = "category"
	colTags        = "tags"
	colNotes       = "notes"
)

var requiredColumns = []string{colDate, colDescription, colAmount, colAccount}

// ImportDefaults fill columns a file leaves out.
type ImportDefaults struct {
	Account string
	Type    core.TransactionType
}

// ReadImportCSV parses an import file into transaction inputs. Amounts
// accept a dot or comma separator. A missing type defaults to defaults.Type
// or EXPENSE.
func ReadImportCSV(r io.Reader, defaults ImportDefaults) ([]core.TransactionInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("import file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok && !(name == colAccount && defaults.Account != "") {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	if defaults.Type == "" {
		defaults.Type = core.TypeExpense
	}

	var rows []core.TransactionInput
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		cents, err := core.ParseDecimalToCents(get(colAmount))
		if err != nil {
			return nil, fmt.Errorf("line %d: amount %q: %w", line, get(colAmount), err)
		}

		in := core.TransactionInput{
			Description: get(colDescription),
			Amount:      core.Money{Cents: cents},
			Type:        core.TransactionType(strings.ToUpper(get(colType))),
			Date:        get(colDate),
			Account:     get(colAccount),
			Category:    get(colCategory),
			Notes:       get(colNotes),
			Tags:        core.ParseTags(get(colTags)),
		}
		if in.Type == "" {
			in.Type = defaults.Type
		}
		if in.Account == "" {
			in.Account = defaults.Account
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, in)
	}
	return rows, nil
}
