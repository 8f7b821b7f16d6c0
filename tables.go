package main

import (
	"strconv"

	"github.com/gcadmin/extaudit/internal/audit"
	"github.com/gcadmin/extaudit/internal/export"
)

// Table conversions for report and patch rows, shared by terminal output
// and CSV export.

func duplicateAssignmentTable(rows []audit.DuplicateAssignmentRow) export.Table {
	t := export.Table{Headers: []string{"Extension", "UserId", "Name", "Email", "State"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Extension, r.UserID, r.UserName, r.UserEmail, r.UserState})
	}

	return t
}

func duplicateRecordTable(rows []audit.DuplicateRecordRow) export.Table {
	t := export.Table{Headers: []string{"Number", "RecordId", "OwnerType", "OwnerId", "PoolId"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Number, r.RecordID, r.OwnerType, r.OwnerID, r.PoolID})
	}

	return t
}

func discrepancyTable(rows []audit.DiscrepancyRow) export.Table {
	t := export.Table{Headers: []string{"Issue", "Extension", "UserId", "Name", "Email", "RecordId", "OwnerType", "OwnerId"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Issue, r.Extension, r.UserID, r.UserName, r.UserEmail, r.RecordID, r.OwnerType, r.OwnerID})
	}

	return t
}

func missingAssignmentTable(rows []audit.MissingAssignmentRow) export.Table {
	t := export.Table{Headers: []string{"Extension", "UserId", "Name", "Email", "State"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Extension, r.UserID, r.UserName, r.UserEmail, r.UserState})
	}

	return t
}

func updatedTable(rows []audit.UpdatedRow) export.Table {
	t := export.Table{Headers: []string{"UserId", "User", "Extension", "Status", "Version"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.UserID, r.User, r.Extension, r.Status, strconv.Itoa(r.Version)})
	}

	return t
}

func skippedTable(rows []audit.SkippedRow) export.Table {
	t := export.Table{Headers: []string{"Reason", "UserId", "User", "Extension"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Reason, r.UserID, r.User, r.Extension})
	}

	return t
}

func failedTable(rows []audit.FailedRow) export.Table {
	t := export.Table{Headers: []string{"UserId", "User", "Extension", "Error"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.UserID, r.User, r.Extension, r.Error})
	}

	return t
}
