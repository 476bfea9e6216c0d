// Package csvstore reads and writes the solvent reference table in its CSV
// interchange format.  The format is header-driven: columns may appear in
// any order, extra columns are ignored, and the file may start with a UTF-8
// BOM as written by spreadsheet tools.
package csvstore

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

// Canonical column names.  Matching is case-insensitive on read.
const (
	colName   = "Solvent"
	colCAS    = "CAS"
	colSMILES = "Smiles"
	colDeltaD = "delta_D"
	colDeltaP = "delta_P"
	colDeltaH = "delta_H"
	colTb     = "Tb"
)

var requiredColumns = []string{colName, colDeltaD, colDeltaP, colDeltaH}

// ParseResult is the outcome of reading one CSV document.
type ParseResult struct {
	Solvents []*solvent.Solvent
	// Skipped counts rows dropped for missing essentials, unparsable
	// numbers, negative parameters or duplicate names.
	Skipped int
}

// Parse reads solvent rows from r.  Rows that cannot be cleaned are skipped,
// not fatal; a missing required column fails the whole document.
func Parse(r io.Reader, source solvent.Source) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSolventImportFailed, "cannot read CSV input")
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSolventImportFailed, "cannot read CSV header")
	}

	index := map[string]int{}
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			return nil, errors.Newf(errors.ErrCodeSolventImportFailed,
				"CSV is missing required column %q", col)
		}
	}

	field := func(record []string, col string) string {
		i, ok := index[strings.ToLower(col)]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ParseResult{}
	seen := map[string]bool{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		name := field(record, colName)
		if name == "" {
			result.Skipped++
			continue
		}
		key := solvent.NormalizeName(name)
		if seen[key] {
			// Duplicates keep the first occurrence.
			result.Skipped++
			continue
		}

		d, errD := strconv.ParseFloat(field(record, colDeltaD), 64)
		p, errP := strconv.ParseFloat(field(record, colDeltaP), 64)
		h, errH := strconv.ParseFloat(field(record, colDeltaH), 64)
		if errD != nil || errP != nil || errH != nil || d < 0 || p < 0 || h < 0 {
			result.Skipped++
			continue
		}

		sol := &solvent.Solvent{
			Name:   name,
			CAS:    field(record, colCAS),
			SMILES: field(record, colSMILES),
			DeltaD: d,
			DeltaP: p,
			DeltaH: h,
			Source: source,
		}
		if tb := field(record, colTb); tb != "" {
			if v, err := strconv.ParseFloat(tb, 64); err == nil {
				sol.BoilingPoint = v
			}
		}

		seen[key] = true
		result.Solvents = append(result.Solvents, sol)
	}
	return result, nil
}

// ParseFile reads solvent rows from the CSV file at path.
func ParseFile(path string, source solvent.Source) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSolventImportFailed,
			fmt.Sprintf("cannot open solvent CSV %s", path))
	}
	defer f.Close()
	return Parse(f, source)
}

// Write emits solvents in the canonical column order.
func Write(w io.Writer, solvents []*solvent.Solvent) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{colName, colCAS, colSMILES, colDeltaD, colDeltaP, colDeltaH, colTb}); err != nil {
		return errors.Wrap(err, errors.ErrCodeSolventImportFailed, "cannot write CSV header")
	}
	for _, sol := range solvents {
		tb := ""
		if sol.BoilingPoint != 0 {
			tb = strconv.FormatFloat(sol.BoilingPoint, 'f', -1, 64)
		}
		record := []string{
			sol.Name,
			sol.CAS,
			sol.SMILES,
			strconv.FormatFloat(sol.DeltaD, 'f', -1, 64),
			strconv.FormatFloat(sol.DeltaP, 'f', -1, 64),
			strconv.FormatFloat(sol.DeltaH, 'f', -1, 64),
			tb,
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSolventImportFailed, "cannot write CSV row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSolventImportFailed, "cannot flush CSV output")
	}
	return nil
}
