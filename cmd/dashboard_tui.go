// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusTable = iota
	focusInput
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

type timedReply struct {
	reply vesc.Reply
	at    time.Time
}

// Messages
type dashboardTickMsg time.Time

type dashboardBatchMsg struct {
	replies []timedReply
	stream  vesc.StreamStats
	sendErr error
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
}

type commandSentMsg struct {
	cmd vesc.Command
	err error
}

type dashboardModel struct {
	connMgr        *connectionManager
	connInfo       string
	connectionLost bool
	canID          int
	started        time.Time

	stats     *vesc.Statistics
	last      *timedReply
	anomalies []vesc.ValidationError
	synced    bool

	eventLog      []eventLogEntry
	maxLogEntries int

	values       table.Model
	commandInput textinput.Model
	focusedField int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialDashboardModel(connMgr *connectionManager, connInfo string, canID, window int) dashboardModel {
	ti := textinput.New()
	ti.Placeholder = "rpm 3000"
	ti.Prompt = "> "
	ti.CharLimit = 128
	ti.Width = 40

	values := table.New(
		table.WithColumns([]table.Column{
			{Title: "Field", Width: 20},
			{Title: "Value", Width: 36},
		}),
		table.WithHeight(12),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12"))
	values.SetStyles(styles)

	return dashboardModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		canID:         canID,
		started:       time.Now(),
		stats:         vesc.NewStatistics(window),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		values:        values,
		commandInput:  ti,
		focusedField:  focusTable,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m dashboardModel) Init() tea.Cmd {
	return dashboardTickCmd()
}

func dashboardTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return dashboardTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.values.SetHeight(max(5, m.height-24))

	case dashboardTickMsg:
		m.stats.CalculateRates()
		return m, dashboardTickCmd()

	case dashboardBatchMsg:
		m.processBatch(msg)

	case commandSentMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Send failed: %v", msg.err), true)
		} else {
			m.addLogEntry("Sent "+vesc.FormatCommand(msg.cmd), false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.synced = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)
		} else {
			m.addLogEntry("Connection lost - reconnecting...", true)
		}

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)
	}

	return m, nil
}

func (m dashboardModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focusedField == focusTable {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab", "shift+tab":
		return m.toggleFocus(), nil

	case "enter":
		if m.focusedField == focusInput {
			return m.submitCommand()
		}

	case "esc":
		if m.focusedField == focusInput {
			m.commandInput.SetValue("")
			return m.toggleFocus(), nil
		}
	}

	// Pass through to focused component
	var cmd tea.Cmd
	if m.focusedField == focusInput {
		m.commandInput, cmd = m.commandInput.Update(msg)
	} else {
		m.values, cmd = m.values.Update(msg)
	}
	return m, cmd
}

func (m dashboardModel) toggleFocus() dashboardModel {
	if m.focusedField == focusTable {
		m.focusedField = focusInput
		m.values.Blur()
		m.commandInput.Focus()
	} else {
		m.focusedField = focusTable
		m.commandInput.Blur()
		m.values.Focus()
	}
	return m
}

func (m dashboardModel) submitCommand() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.commandInput.Value())
	if line == "" {
		return m, nil
	}
	m.commandInput.SetValue("")

	// Don't allow commands while connection is lost
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	command, err := parseSendArgs(strings.Fields(line))
	if err == nil {
		command, err = wrapCAN(command, m.canID)
	}
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}

	cm := m.connMgr
	return m, func() tea.Msg {
		return commandSentMsg{cmd: command, err: cm.send(command)}
	}
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *dashboardModel) processBatch(msg dashboardBatchMsg) {
	prevChecksum, prevUnknown, prevOverflow := m.stats.ChecksumErrors, m.stats.UnknownPackets, m.stats.OverflowResets
	m.stats.MergeStream(msg.stream)

	if !m.synced && msg.stream.FramesDecoded > 0 {
		m.synced = true
		if msg.stream.BytesSkipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.stream.BytesSkipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}
	}

	if n := m.stats.ChecksumErrors - prevChecksum; n > 0 {
		m.addLogEntry(fmt.Sprintf("%d frame(s) failed checksum", n), true)
	}
	if n := m.stats.UnknownPackets - prevUnknown; n > 0 {
		m.addLogEntry(fmt.Sprintf("%d frame(s) with unknown command id", n), true)
	}
	if m.stats.OverflowResets > prevOverflow {
		m.addLogEntry("Decoder buffer overflow, data discarded", true)
	}
	if msg.sendErr != nil {
		m.addLogEntry(fmt.Sprintf("Poll request failed: %v", msg.sendErr), true)
	}

	for i := range msg.replies {
		tr := msg.replies[i]
		anomalies := vesc.ValidateValues(tr.reply.Telemetry(), tr.reply.Fields())
		m.stats.Update(tr.reply, anomalies)

		// Only log anomalies that are new since the previous reply
		for _, a := range anomalies {
			if !hasAnomaly(m.anomalies, a.Type) {
				m.addLogEntry(a.Message, a.Type == vesc.AnomalyFault || a.Type == vesc.AnomalyUnknownFault)
			}
		}
		m.anomalies = anomalies
		m.last = &tr
	}

	if m.last != nil && len(msg.replies) > 0 {
		m.values.SetRows(telemetryRows(m.last.reply))
	}
}

func hasAnomaly(list []vesc.ValidationError, t vesc.AnomalyType) bool {
	for _, a := range list {
		if a.Type == t {
			return true
		}
	}
	return false
}

// telemetryRows renders the fields carried by reply as table rows.
func telemetryRows(reply vesc.Reply) []table.Row {
	fields := vesc.ListValues(reply.Telemetry(), reply.Fields())
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, table.Row{f.Name, f.Value})
	}
	return rows
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m dashboardModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("VESCOPE DASHBOARD"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch", connStatus)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf(" %s %s\n\n",
		statsLabelStyle.Render("Session:"),
		statsValueStyle.Render(formatUptime(time.Since(m.started)))))

	s.WriteString(m.renderStats(statsLabelStyle, statsValueStyle, errorStyle, warningStyle, boxStyle))
	s.WriteString("\n")

	tableBox := boxStyle
	if m.focusedField == focusTable {
		tableBox = focusedBoxStyle
	}
	s.WriteString(tableBox.Render(m.renderTelemetry(statsLabelStyle, headerStyle, errorStyle)))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))
	s.WriteString("\n")

	inputBox := boxStyle
	if m.focusedField == focusInput {
		inputBox = focusedBoxStyle
	}
	s.WriteString(inputBox.Width(m.width - 4).Render(m.commandInput.View()))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m dashboardModel) renderStats(statsLabelStyle, statsValueStyle, errorStyle, warningStyle, boxStyle lipgloss.Style) string {
	st := m.stats
	var content strings.Builder

	var validPercent float64
	if st.TotalReplies > 0 {
		validPercent = float64(st.ValidReplies) * 100.0 / float64(st.TotalReplies)
	}
	decodeErrors := st.ChecksumErrors + st.UnknownPackets + st.InvalidFrames

	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Replies:"), statsValueStyle.Render(fmt.Sprintf("%d", st.TotalReplies)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.ValidReplies, validPercent)),
		statsLabelStyle.Render("Decode Errors:"), countStyle(decodeErrors, errorStyle, statsValueStyle).Render(fmt.Sprintf("%d", decodeErrors)),
	))

	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Faults:"), countStyle(st.Faults, errorStyle, statsValueStyle).Render(fmt.Sprintf("%d", st.Faults)),
		statsLabelStyle.Render("Anomalous:"), countStyle(st.AnomalousValues, warningStyle, statsValueStyle).Render(fmt.Sprintf("%d", st.AnomalousValues)),
		statsLabelStyle.Render("Skipped:"), statsValueStyle.Render(fmt.Sprintf("%d bytes", st.SkippedBytes)),
	))

	voltage := st.VoltageSummary()
	rpm := st.RPMSummary()
	content.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Voltage:"), statsValueStyle.Render(formatSummary(voltage, "V")),
		statsLabelStyle.Render("RPM:"), statsValueStyle.Render(formatSummary(rpm, "")),
	))

	rateStyle := statsValueStyle
	if st.ErrorRate > 0 {
		rateStyle = errorStyle
	}
	content.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Reply Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f/s", st.ReplyRate)),
		statsLabelStyle.Render("Error Rate:"), rateStyle.Render(fmt.Sprintf("%.1f/s", st.ErrorRate)),
	))

	return boxStyle.Width(m.width - 4).Render(content.String())
}

func countStyle(n uint64, bad, good lipgloss.Style) lipgloss.Style {
	if n > 0 {
		return bad
	}
	return good
}

func formatSummary(s vesc.SampleSummary, unit string) string {
	if s.N == 0 {
		return "-"
	}
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("%.1f%s (±%.1f, %.1f..%.1f)", s.Mean, unit, s.StdDev, s.Min, s.Max)
}

func (m dashboardModel) renderTelemetry(statsLabelStyle, headerStyle, errorStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("TELEMETRY"))
	if m.last == nil {
		s.WriteString("\n")
		s.WriteString(headerStyle.Render("  (waiting for replies)"))
		return s.String()
	}

	id := m.last.reply.CommandID()
	s.WriteString(headerStyle.Render(fmt.Sprintf("  %s %s (0x%02X)",
		m.last.at.Format("15:04:05.000"), id, uint8(id))))
	s.WriteString("\n")
	s.WriteString(m.values.View())

	if len(m.anomalies) > 0 {
		s.WriteString("\n")
		for _, a := range m.anomalies {
			s.WriteString(errorStyle.Render("! " + a.Message))
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m dashboardModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := min(6, len(m.eventLog))
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *dashboardModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}

	seconds := uint64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, u := range []struct {
		n    uint64
		name string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
		{seconds, "second"},
	} {
		switch {
		case u.n == 1:
			parts = append(parts, "1 "+u.name)
		case u.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", u.n, u.name))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}
