package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcadmin/extaudit/internal/audit"
)

func TestPrintTable(t *testing.T) {
	var sb strings.Builder

	printTable(&sb,
		[]string{"Extension", "UserId", "Name"},
		[][]string{
			{"101", "u1", "Alice"},
			{"40400", "u2", "Bob"},
		},
	)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Extension  UserId  Name", lines[0])
	assert.Equal(t, "101        u1      Alice", lines[1])
	assert.Equal(t, "40400      u2      Bob", lines[2])
}

func TestPrintTable_NoTrailingPadding(t *testing.T) {
	var sb strings.Builder

	printTable(&sb, []string{"Long header", "X"}, [][]string{{"v", "y"}})

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		assert.Equal(t, strings.TrimRight(line, " "), line)
	}
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2026, 9, 1, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01 15:45:00", formatTime(at))
}

func TestMissingAssignmentTable(t *testing.T) {
	table := missingAssignmentTable([]audit.MissingAssignmentRow{
		{Extension: "606", UserID: "u7", UserName: "Grace", UserEmail: "grace@example.com", UserState: "inactive"},
	})

	assert.Equal(t, []string{"Extension", "UserId", "Name", "Email", "State"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"606", "u7", "Grace", "grace@example.com", "inactive"}, table.Rows[0])
}

func TestUpdatedTable_VersionRendered(t *testing.T) {
	table := updatedTable([]audit.UpdatedRow{
		{UserID: "u1", User: "Alice", Extension: "101", Status: audit.StatusPatched, Version: 13},
	})

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "13", table.Rows[0][4])
}
