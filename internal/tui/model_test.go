// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"testing"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventory() []inventory.Record {
	return []inventory.Record{
		{Host: "192.0.2.1", Hostname: "edge-01"},
		{Host: "192.0.2.2", Hostname: "edge-02"},
	}
}

func TestNewDeviceRow(t *testing.T) {
	row := NewDeviceRow("edge-01", "192.0.2.1")

	require.NotNil(t, row)
	assert.Equal(t, "edge-01", row.Label)
	assert.Equal(t, "192.0.2.1", row.Host)
	assert.Equal(t, StatusPending, row.Status)
	assert.Nil(t, row.StartTime)
	assert.Nil(t, row.EndTime)
}

func TestDeviceRow_UpdateStatus(t *testing.T) {
	row := NewDeviceRow("edge-01", "192.0.2.1")

	row.UpdateStatus(StatusRunning, "")
	status, _, _, _, startTime, endTime := row.GetDisplayInfo()
	assert.Equal(t, StatusRunning, status)
	assert.NotNil(t, startTime)
	assert.Nil(t, endTime)

	row.UpdateStatus(StatusSuccess, "success")
	status, _, _, message, startTime, endTime := row.GetDisplayInfo()
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, "success", message)
	assert.NotNil(t, startTime)
	assert.NotNil(t, endTime)
}

func TestNewModelSeedsPendingRows(t *testing.T) {
	model := NewModel(testInventory())

	require.Len(t, model.rows, 2)
	assert.Equal(t, "edge-01", model.rows[0].Label)
	assert.Equal(t, "edge-02", model.rows[1].Label)

	for _, row := range model.rows {
		status, _, _, _, _, _ := row.GetDisplayInfo()
		assert.Equal(t, StatusPending, status)
	}
}

func TestModel_GetOrCreateRow(t *testing.T) {
	model := NewModel(testInventory())

	existing := model.getOrCreateRow("edge-01", "192.0.2.1")
	assert.Same(t, model.rows[0], existing)

	created := model.getOrCreateRow("edge-99", "192.0.2.99")
	require.NotNil(t, created)
	assert.Len(t, model.rows, 3)
	assert.Same(t, created, model.rowMap[rowKey("edge-99", "192.0.2.99")])
}

func TestModel_DuplicateLabelsKeepDistinctRows(t *testing.T) {
	model := NewModel([]inventory.Record{
		{Hostname: "edge-01", Host: "192.0.2.1"},
		{Hostname: "edge-01", Host: "192.0.2.2"},
	})

	require.Len(t, model.rows, 2)

	first := model.getOrCreateRow("edge-01", "192.0.2.1")
	second := model.getOrCreateRow("edge-01", "192.0.2.2")
	assert.NotSame(t, first, second)
	assert.Len(t, model.rows, 2)

	model.processProgressEvent(progress.Event{
		Device:    "edge-01",
		Host:      "192.0.2.2",
		Type:      progress.EventFailed,
		Message:   "timeout",
		Timestamp: time.Now(),
	})

	status, _, _, _, _, _ := model.rows[0].GetDisplayInfo()
	assert.Equal(t, StatusPending, status, "the other device with the same label is untouched")

	status, _, _, message, _, _ := model.rows[1].GetDisplayInfo()
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, "timeout", message)
}

func TestModel_ProcessProgressEvent(t *testing.T) {
	model := NewModel(testInventory())

	model.processProgressEvent(progress.Event{
		Device:    "edge-01",
		Host:      "192.0.2.1",
		Type:      progress.EventStarted,
		Timestamp: time.Now(),
	})

	status, _, _, _, _, _ := model.rows[0].GetDisplayInfo()
	assert.Equal(t, StatusRunning, status)

	model.processProgressEvent(progress.Event{
		Device:    "edge-01",
		Host:      "192.0.2.1",
		Type:      progress.EventCompleted,
		Message:   "success",
		Timestamp: time.Now(),
	})

	status, _, _, _, _, _ = model.rows[0].GetDisplayInfo()
	assert.Equal(t, StatusSuccess, status)

	model.processProgressEvent(progress.Event{
		Device:    "edge-02",
		Host:      "192.0.2.2",
		Type:      progress.EventFailed,
		Message:   "auth-failed",
		Timestamp: time.Now(),
	})

	status, _, _, message, _, _ := model.rows[1].GetDisplayInfo()
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, "auth-failed", message)
}

func TestModelStatusCounts(t *testing.T) {
	model := NewModel(testInventory())

	model.rows[0].UpdateStatus(StatusSuccess, "success")

	counts := model.statusCounts()
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusSuccess])
}

func TestReporter(t *testing.T) {
	reporter := &Reporter{}

	event := progress.Event{
		Device:    "edge-01",
		Host:      "192.0.2.1",
		Type:      progress.EventStarted,
		Timestamp: time.Now(),
	}

	// A nil program must not panic, before or after Close.
	assert.NotPanics(t, func() { reporter.Report(event) })
	assert.NotPanics(t, func() { reporter.Close() })
	assert.NotPanics(t, func() { reporter.Report(event) })
}
