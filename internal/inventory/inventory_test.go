// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inventory

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "devices.csv",
		"hostname,device_type,host,username,password,secret,port\n"+
			"core-sw-01,cisco_ios,10.0.0.1,admin,pw,enablepw,22\n"+
			"edge-fw-01,fortinet,10.0.0.2,,,,\n")

	records, err := Load(fs, "devices.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "core-sw-01", records[0].Hostname)
	assert.Equal(t, "10.0.0.1", records[0].Host)
	assert.Equal(t, "cisco_ios", records[0].DeviceType)
	assert.Equal(t, "enablepw", records[0].Secret)
	assert.Equal(t, "22", records[0].Port)

	assert.Empty(t, records[1].Username)
	assert.Empty(t, records[1].Port)
}

func TestLoadDropsRowsWithoutHost(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "devices.csv",
		"host,hostname\n"+
			"10.0.0.1,sw1\n"+
			",orphan\n"+
			"10.0.0.2,sw2\n")

	records, err := Load(fs, "devices.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "10.0.0.1", records[0].Host)
	assert.Equal(t, "10.0.0.2", records[1].Host)
}

func TestLoadColumnOrderIrrelevant(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "devices.csv",
		"port,host,hostname\n"+
			"2222,10.0.0.1,sw1\n")

	records, err := Load(fs, "devices.csv")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2222", records[0].Port)
	assert.Equal(t, "sw1", records[0].Hostname)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "missing.csv")
	assert.ErrorIs(t, err, ErrReadInventory)

	writeFile(t, fs, "noheader.csv", "")
	_, err = Load(fs, "noheader.csv")
	assert.ErrorIs(t, err, ErrNoDevices)

	writeFile(t, fs, "nohost.csv", "hostname,port\nsw1,22\n")
	_, err = Load(fs, "nohost.csv")
	assert.ErrorIs(t, err, ErrMissingHostColumn)

	writeFile(t, fs, "empty.csv", "host,hostname\n,\n")
	_, err = Load(fs, "empty.csv")
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "sw1", Record{Host: "10.0.0.1", Hostname: "sw1"}.Label())
	assert.Equal(t, "10.0.0.1", Record{Host: "10.0.0.1"}.Label())
}

func TestDialectForManufacturer(t *testing.T) {
	cases := map[string]string{
		"Cisco Systems":      "cisco_ios",
		"Arista":             "arista_eos",
		"Juniper Networks":   "juniper_junos",
		"Hewlett Packard":    "hp_procurve",
		"DELL":               "dell_os10",
		"Fortinet":           "fortinet",
		"Palo Alto Networks": "paloalto_panos",
		"Ubuntu Linux":       "linux",
		"Frobnicorp":         "generic",
		"":                   "generic",
	}

	for manufacturer, want := range cases {
		assert.Equal(t, want, DialectForManufacturer(manufacturer), manufacturer)
	}
}

func TestConvertNetBox(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "export.csv",
		"Name,Manufacturer,IP Address\n"+
			"FIHEL-LAN-3D-N,Cisco Systems,10.32.192.109/24\n"+
			"  spaced   name ,Arista,10.32.192.110\n"+
			"no-ip,Cisco Systems,\n")

	n, err := ConvertNetBox(fs, "export.csv", "devices.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := Load(fs, "devices.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "FIHEL-LAN-3D-N", records[0].Hostname)
	assert.Equal(t, "10.32.192.109", records[0].Host, "CIDR suffix must be stripped")
	assert.Equal(t, "cisco_ios", records[0].DeviceType)
	assert.Equal(t, "22", records[0].Port)

	assert.Equal(t, "spaced name", records[1].Hostname, "whitespace must be collapsed")
	assert.Equal(t, "arista_eos", records[1].DeviceType)
}

func TestConvertNetBoxMissingColumns(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "export.csv", "Name,Site\nsw1,hel\n")

	_, err := ConvertNetBox(fs, "export.csv", "devices.csv")
	assert.ErrorIs(t, err, ErrMissingExportColumns)
}

func TestConvertNetBoxNoUsableRows(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "export.csv", "Name,Manufacturer,IP Address\n,Cisco,\n")

	_, err := ConvertNetBox(fs, "export.csv", "devices.csv")
	assert.ErrorIs(t, err, ErrNoDevices)
}
