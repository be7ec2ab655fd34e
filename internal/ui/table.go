package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ArnoKim89/arno-game-server/internal/hubclient"
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(accent).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCell
			case row%2 == 0:
				return evenCell
			default:
				return oddCell
			}
		}).
		Render()
}

// StatsView renders hub counters as a two column table.
func StatsView(st hubclient.Stats) string {
	return renderTable([]string{"Metric", "Value"}, [][]string{
		{"Rooms", strconv.Itoa(st.Rooms)},
		{"Clients", strconv.Itoa(st.Clients)},
		{"Hostless rooms", strconv.Itoa(st.HostlessRooms)},
		{"Registry rooms", strconv.Itoa(st.RegistryRooms)},
	})
}

func RenderStats(st hubclient.Stats) {
	fmt.Fprintln(stdout, StatsView(st))
}

// RTTSummary describes a series of round trips to one target.
type RTTSummary struct {
	Target  string
	Samples []time.Duration
	Min     time.Duration
	Avg     time.Duration
	Max     time.Duration
}

func RTTView(s RTTSummary) string {
	rows := make([][]string, 0, len(s.Samples)+3)
	for i, d := range s.Samples {
		rows = append(rows, []string{fmt.Sprintf("#%d", i+1), formatRTT(d)})
	}
	rows = append(rows,
		[]string{"min", formatRTT(s.Min)},
		[]string{"avg", formatRTT(s.Avg)},
		[]string{"max", formatRTT(s.Max)},
	)
	return renderTable([]string{s.Target, "RTT"}, rows)
}

func RenderRTT(s RTTSummary) {
	fmt.Fprintln(stdout, RTTView(s))
}

func formatRTT(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}

// RoomInfo is the box printed once a room exists.
type RoomInfo struct {
	Code  string
	Role  string
	ID    string
	Relay string
}

func (r RoomInfo) View() string {
	title, box := "Room Created!", hostBox
	if r.Role != "host" {
		title, box = "Joined Room", peerBox
	}

	content := fmt.Sprintf("%s %s\n\n%s Room Code:  %s\n%s Your ID:    %s\n%s Relay:      %s",
		IconSuccess, title,
		IconCopy, codeStyle.Render(r.Code),
		IconPeer, r.ID,
		IconWeb, dim.Render(r.Relay),
	)
	return box.Render(content)
}

func RenderRoomInfo(r RoomInfo) {
	fmt.Fprintln(stdout, r.View())
}
