// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/runfleet"
)

const (
	minHelpAvailableHeight = 8
	durationRounding       = 100 * time.Millisecond
	ellipsis               = "..."
	minRowWidth            = 20
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// BatchCompletedMsg indicates that every device has finished.
type BatchCompletedMsg struct {
	Results runfleet.Results
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
	)
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		m.mutex.Unlock()

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case ProgressEventMsg:
		m.processProgressEvent(msg.Event)
		return m, nil

	case BatchCompletedMsg:
		m.mutex.Lock()
		m.completed = true
		m.results = msg.Results
		m.mutex.Unlock()

		return m, nil

	case tea.QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.scrollOffset--
	case "down", "j":
		m.scrollOffset++
	case "pgup":
		m.scrollOffset -= m.getViewportHeight()
	case "pgdown":
		m.scrollOffset += m.getViewportHeight()
	case "home":
		m.scrollOffset = 0
	case "end":
		m.scrollOffset = m.calculateMaxScrollOffset()
	}

	m.clampScroll()

	return m, nil
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var view strings.Builder

	title := m.styles.Title.Render("fleetrun")
	view.WriteString(title)
	view.WriteString("\n")

	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset

	end := start + viewportHeight
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for _, row := range m.rows[start:end] {
		m.renderDeviceRow(&view, row)
	}

	view.WriteString("\n")
	view.WriteString(m.renderSummary())

	if m.height > minHelpAvailableHeight {
		helpText := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, 'q' to quit"
		if m.completed {
			helpText = "all devices finished, 'q' to quit and return to terminal"
		}

		view.WriteString("\n")
		view.WriteString(m.styles.Help.Render(helpText))
	}

	return view.String()
}

// renderDeviceRow renders one device line.
func (m *Model) renderDeviceRow(b *strings.Builder, row *DeviceRow) {
	status, label, host, message, startTime, endTime := row.GetDisplayInfo()

	var statusIcon, styledLabel string

	switch status {
	case StatusPending:
		statusIcon = "·"
		styledLabel = m.styles.Pending.Render(label)
	case StatusRunning:
		statusIcon = m.spinner.View()
		styledLabel = m.styles.Running.Render(label)
	case StatusSuccess:
		statusIcon = m.styles.Success.Render("✓")
		styledLabel = m.styles.Success.Render(label)
	case StatusFailed:
		statusIcon = m.styles.Failed.Render("✗")
		styledLabel = m.styles.Failed.Render(label)
	default:
		statusIcon = "?"
		styledLabel = m.styles.Pending.Render(label)
	}

	line := fmt.Sprintf("%s %s %s", statusIcon, styledLabel, m.styles.Host.Render("("+host+")"))

	if startTime != nil {
		elapsed := time.Since(*startTime)
		if endTime != nil {
			elapsed = endTime.Sub(*startTime)
		}

		line += m.styles.Host.Render(fmt.Sprintf(" %v", elapsed.Round(durationRounding)))
	}

	if message != "" && status == StatusFailed {
		line += " " + m.styles.Failed.Render(message)
	}

	if m.width > minRowWidth && len(line) > m.width {
		line = line[:m.width-len(ellipsis)] + ellipsis
	}

	b.WriteString(line)
	b.WriteString("\n")
}

// renderSummary renders the status counts line.
func (m *Model) renderSummary() string {
	counts := m.statusCounts()

	summary := fmt.Sprintf("%d pending  %d running  %d ok  %d failed",
		counts[StatusPending],
		counts[StatusRunning],
		counts[StatusSuccess],
		counts[StatusFailed],
	)

	if m.completed {
		if counts[StatusFailed] > 0 {
			return m.styles.Failed.Render(summary)
		}

		return m.styles.Success.Render(summary)
	}

	return m.styles.Summary.Render(summary)
}
