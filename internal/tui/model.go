// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/runfleet"
)

// DeviceStatus represents the current state of a device row in the TUI.
type DeviceStatus int

const (
	StatusPending DeviceStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
)

// String returns a string representation of the device status.
func (s DeviceStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeviceRow is one device's line in the display.
type DeviceRow struct {
	Label     string
	Host      string
	Status    DeviceStatus
	Message   string // terminal status text, e.g. "auth-failed"
	StartTime *time.Time
	EndTime   *time.Time
	mutex     sync.RWMutex
}

// NewDeviceRow creates a pending row for one device.
func NewDeviceRow(label, host string) *DeviceRow {
	return &DeviceRow{
		Label:  label,
		Host:   host,
		Status: StatusPending,
	}
}

// UpdateStatus safely transitions the row's status.
func (dr *DeviceRow) UpdateStatus(status DeviceStatus, message string) {
	dr.mutex.Lock()
	defer dr.mutex.Unlock()

	dr.Status = status
	dr.Message = message
	now := time.Now()

	switch status {
	case StatusRunning:
		if dr.StartTime == nil {
			dr.StartTime = &now
		}
	case StatusSuccess, StatusFailed:
		if dr.EndTime == nil {
			dr.EndTime = &now
		}
	}
}

// GetDisplayInfo safely retrieves display information.
func (dr *DeviceRow) GetDisplayInfo() (DeviceStatus, string, string, string, *time.Time, *time.Time) {
	dr.mutex.RLock()
	defer dr.mutex.RUnlock()

	return dr.Status, dr.Label, dr.Host, dr.Message, dr.StartTime, dr.EndTime
}

// Model represents the TUI application state.
type Model struct {
	rows      []*DeviceRow
	rowMap    map[string]*DeviceRow // label+host -> row for quick lookup
	spinner   spinner.Model
	width     int
	height    int
	quitting  bool
	completed bool
	results   runfleet.Results
	mutex     sync.RWMutex

	// Scrolling support
	scrollOffset int

	styles *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Pending lipgloss.Style
	Running lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Host    lipgloss.Style
	Help    lipgloss.Style
	Summary lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Host: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		Summary: lipgloss.NewStyle().
			Bold(true),
	}
}

// NewModel creates a TUI model with one pending row per inventory device,
// in inventory order.
func NewModel(devices []inventory.Record) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		rows:    make([]*DeviceRow, 0, len(devices)),
		rowMap:  make(map[string]*DeviceRow, len(devices)),
		spinner: sp,
		styles:  NewStyles(),
	}

	for _, rec := range devices {
		row := NewDeviceRow(rec.Label(), rec.Host)
		m.rows = append(m.rows, row)
		m.rowMap[rowKey(rec.Label(), rec.Host)] = row
	}

	return m
}

// getViewportHeight returns the available height for device rows.
func (m *Model) getViewportHeight() int {
	// Title, summary line and help text surround the row list.
	reservedLines := 6
	if m.height <= reservedLines {
		return 1
	}

	return m.height - reservedLines
}

// calculateMaxScrollOffset returns the maximum scroll offset.
func (m *Model) calculateMaxScrollOffset() int {
	viewportHeight := m.getViewportHeight()
	if len(m.rows) <= viewportHeight {
		return 0
	}

	return len(m.rows) - viewportHeight
}

// clampScroll keeps the scroll offset within the renderable range.
func (m *Model) clampScroll() {
	maxScroll := m.calculateMaxScrollOffset()
	if m.scrollOffset > maxScroll {
		m.scrollOffset = maxScroll
	}

	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// rowKey identifies a row by label and host together, so inventories where
// two devices share a hostname keep distinct rows.
func rowKey(label, host string) string {
	return label + "\x00" + host
}

// getOrCreateRow looks a row up by device label and host, creating one for
// devices that were not known at model construction.
func (m *Model) getOrCreateRow(label, host string) *DeviceRow {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if row, exists := m.rowMap[rowKey(label, host)]; exists {
		return row
	}

	row := NewDeviceRow(label, host)
	m.rows = append(m.rows, row)
	m.rowMap[rowKey(label, host)] = row

	return row
}

// processProgressEvent handles an incoming progress event.
func (m *Model) processProgressEvent(event progress.Event) {
	row := m.getOrCreateRow(event.Device, event.Host)

	switch event.Type {
	case progress.EventStarted:
		row.UpdateStatus(StatusRunning, "")
	case progress.EventCompleted:
		row.UpdateStatus(StatusSuccess, event.Message)
	case progress.EventFailed:
		row.UpdateStatus(StatusFailed, event.Message)
	}
}

// statusCounts tallies rows per status for the summary line.
func (m *Model) statusCounts() map[DeviceStatus]int {
	counts := make(map[DeviceStatus]int, 4)
	for _, row := range m.rows {
		status, _, _, _, _, _ := row.GetDisplayInfo()
		counts[status]++
	}

	return counts
}
