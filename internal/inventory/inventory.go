// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrReadInventory is returned when the inventory file cannot be read.
	ErrReadInventory = errors.New("failed to read inventory file")
	// ErrMissingHostColumn is returned when the CSV has no host column.
	ErrMissingHostColumn = errors.New("inventory has no host column")
	// ErrNoDevices is returned when the inventory yields zero usable records.
	ErrNoDevices = errors.New("no devices found in inventory")
)

// Record is one row of the device inventory.
// Optional fields are empty strings when absent; Port is kept as the raw
// string from the file, parsing happens at connection-parameter resolution.
type Record struct {
	Host       string
	Hostname   string
	DeviceType string
	Username   string
	Password   string
	Secret     string
	Port       string
}

// Label returns the display label for the device: the hostname if present,
// otherwise the host address.
func (r Record) Label() string {
	if r.Hostname != "" {
		return r.Hostname
	}

	return r.Host
}

// Load reads a device inventory CSV from fs.
// The first row is a header; column order is irrelevant and unknown columns
// are ignored. Rows with an empty host cell are dropped before they can be
// scheduled. Zero usable rows is an error.
func Load(fs afero.Fs, path string) ([]Record, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Join(ErrReadInventory, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Join(ErrReadInventory, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDevices, path)
	}

	cols := columnIndex(rows[0])
	if _, ok := cols["host"]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingHostColumn, path)
	}

	records := make([]Record, 0, len(rows)-1)

	for _, row := range rows[1:] {
		rec := Record{
			Host:       cell(row, cols, "host"),
			Hostname:   cell(row, cols, "hostname"),
			DeviceType: cell(row, cols, "device_type"),
			Username:   cell(row, cols, "username"),
			Password:   cell(row, cols, "password"),
			Secret:     cell(row, cols, "secret"),
			Port:       cell(row, cols, "port"),
		}

		if rec.Host == "" {
			continue
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDevices, path)
	}

	return records, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
