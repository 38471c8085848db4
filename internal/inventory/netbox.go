// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

var (
	// ErrReadExport is returned when the NetBox export cannot be read.
	ErrReadExport = errors.New("failed to read NetBox export")
	// ErrMissingExportColumns is returned when the export lacks required columns.
	ErrMissingExportColumns = errors.New("NetBox export is missing required columns")
	// ErrWriteInventory is returned when the converted inventory cannot be written.
	ErrWriteInventory = errors.New("failed to write inventory file")
)

// netboxColumns are the required columns of a NetBox device export.
var netboxColumns = []string{"name", "manufacturer", "ip address"}

// DialectForManufacturer maps a NetBox manufacturer name to a device dialect tag.
func DialectForManufacturer(manufacturer string) string {
	m := strings.ToLower(manufacturer)

	switch {
	case strings.Contains(m, "cisco"):
		return "cisco_ios"
	case strings.Contains(m, "arista"):
		return "arista_eos"
	case strings.Contains(m, "juniper"):
		return "juniper_junos"
	case strings.Contains(m, "hp"), strings.Contains(m, "hewlett"):
		return "hp_procurve"
	case strings.Contains(m, "dell"):
		return "dell_os10"
	case strings.Contains(m, "fortinet"):
		return "fortinet"
	case strings.Contains(m, "palo"):
		return "paloalto_panos"
	case strings.Contains(m, "linux"), strings.Contains(m, "ubuntu"):
		return "linux"
	default:
		return "generic"
	}
}

// ConvertNetBox reads a NetBox device export CSV and writes a fleetrun
// inventory CSV. Rows without a name or IP address are skipped; the returned
// error aggregates per-row problems only when no rows converted at all.
// The count of converted rows is returned.
func ConvertNetBox(fs afero.Fs, inPath, outPath string) (int, error) {
	f, err := fs.Open(inPath)
	if err != nil {
		return 0, errors.Join(ErrReadExport, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, errors.Join(ErrReadExport, err)
	}

	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrReadExport, inPath)
	}

	cols := columnIndex(rows[0])

	var missing []string

	for _, c := range netboxColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrMissingExportColumns, strings.Join(missing, ", "))
	}

	var rowErrs *multierror.Error

	out := [][]string{{"hostname", "device_type", "host", "username", "password", "secret", "port"}}

	for i, row := range rows[1:] {
		name := collapseWhitespace(cell(row, cols, "name"))
		host := stripCIDR(cell(row, cols, "ip address"))

		if name == "" || host == "" {
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: missing name or IP address", i+2))
			continue
		}

		dialect := DialectForManufacturer(cell(row, cols, "manufacturer"))
		out = append(out, []string{name, dialect, host, "", "", "", "22"})
	}

	if len(out) == 1 {
		return 0, errors.Join(ErrNoDevices, rowErrs.ErrorOrNil())
	}

	w, err := fs.Create(outPath)
	if err != nil {
		return 0, errors.Join(ErrWriteInventory, err)
	}
	defer w.Close() //nolint:errcheck

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(out); err != nil {
		return 0, errors.Join(ErrWriteInventory, err)
	}

	return len(out) - 1, nil
}

// stripCIDR removes a trailing prefix length from an address, e.g.
// "10.32.192.5/24" becomes "10.32.192.5".
func stripCIDR(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return strings.TrimSpace(addr[:i])
	}

	return strings.TrimSpace(addr)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
