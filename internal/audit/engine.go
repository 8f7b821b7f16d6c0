package audit

import (
	"sort"
	"strings"

	"github.com/gcadmin/extaudit/internal/genesys"
)

// Discrepancy issue codes.
const (
	IssueOwnerTypeNotUser = "OwnerTypeNotUser"
	IssueOwnerMismatch    = "OwnerMismatch"
)

// DuplicateAssignmentRow reports one user of an extension number claimed by
// more than one user.
type DuplicateAssignmentRow struct {
	Extension string
	UserID    string
	UserName  string
	UserEmail string
	UserState string
}

// DuplicateRecordRow reports one registry record of an extension number
// backed by more than one record.
type DuplicateRecordRow struct {
	Number    string
	RecordID  string
	OwnerType string
	OwnerID   string
	PoolID    string
}

// DiscrepancyRow reports a profile claim whose single backing record has
// mismatched ownership.
type DiscrepancyRow struct {
	Issue     string
	Extension string
	UserID    string
	UserName  string
	UserEmail string
	RecordID  string
	OwnerType string
	OwnerID   string
}

// MissingAssignmentRow reports a profile claim with no backing record: the
// user believes it owns a number the registry has no record of.
type MissingAssignmentRow struct {
	Extension string
	UserID    string
	UserName  string
	UserEmail string
	UserState string
}

// claimClass is the exclusive classification of one profile claim. Every
// claim lands in exactly one class, so a contended number can never also
// surface as a discrepancy or missing row.
type claimClass int

const (
	classSkip claimClass = iota // empty number, not classified
	classContended              // number claimed by multiple users
	classDuplicateRecord        // number backed by multiple records
	classMissing                // no backing record
	classSingle                 // exactly one backing record
)

// classifyClaim assigns a claim its single class. Duplicate-set exclusion is
// evaluated before the backing-record count, per the reconciliation
// tie-break rule.
func (c *Context) classifyClaim(cl ProfileClaim, contended, dupRecords map[string]struct{}) (claimClass, []genesys.Extension) {
	key := NormalizeNumber(cl.Extension)
	if key == "" {
		return classSkip, nil
	}

	if _, ok := contended[key]; ok {
		return classContended, nil
	}

	if _, ok := dupRecords[key]; ok {
		return classDuplicateRecord, nil
	}

	records := c.ByNumber[key]

	switch len(records) {
	case 0:
		return classMissing, nil
	case 1:
		return classSingle, records
	default:
		return classDuplicateRecord, nil
	}
}

// contendedNumbers returns the normalized numbers claimed by more than one
// user.
func (c *Context) contendedNumbers() map[string]struct{} {
	counts := make(map[string]int, len(c.Claims))

	for _, cl := range c.Claims {
		if key := NormalizeNumber(cl.Extension); key != "" {
			counts[key]++
		}
	}

	contended := make(map[string]struct{})

	for key, n := range counts {
		if n > 1 {
			contended[key] = struct{}{}
		}
	}

	return contended
}

// duplicateRecordNumbers returns the normalized numbers backed by more than
// one registry record.
func (c *Context) duplicateRecordNumbers() map[string]struct{} {
	dup := make(map[string]struct{})

	for key, records := range c.ByNumber {
		if len(records) > 1 {
			dup[key] = struct{}{}
		}
	}

	return dup
}

// DuplicateAssignments reports every user claiming an extension number that
// at least one other user also claims, grouped by number in sorted order.
func (c *Context) DuplicateAssignments() []DuplicateAssignmentRow {
	contended := c.contendedNumbers()

	keys := make([]string, 0, len(contended))
	for key := range contended {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var rows []DuplicateAssignmentRow

	for _, key := range keys {
		for _, cl := range c.Claims {
			if NormalizeNumber(cl.Extension) != key {
				continue
			}

			rows = append(rows, DuplicateAssignmentRow{
				Extension: strings.TrimSpace(cl.Extension),
				UserID:    cl.UserID,
				UserName:  cl.UserName,
				UserEmail: cl.UserEmail,
				UserState: cl.UserState,
			})
		}
	}

	return rows
}

// DuplicateRecords reports every registry record of a number backed by more
// than one record, grouped by number in sorted order.
func (c *Context) DuplicateRecords() []DuplicateRecordRow {
	keys := make([]string, 0, len(c.ByNumber))
	for key := range c.ByNumber {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var rows []DuplicateRecordRow

	for _, key := range keys {
		records := c.ByNumber[key]
		if len(records) <= 1 {
			continue
		}

		for _, e := range records {
			row := DuplicateRecordRow{
				Number:    strings.TrimSpace(e.Number),
				RecordID:  e.ID,
				OwnerType: e.OwnerType,
			}
			if e.Owner != nil {
				row.OwnerID = e.Owner.ID
			}

			if e.Pool != nil {
				row.PoolID = e.Pool.ID
			}

			rows = append(rows, row)
		}
	}

	return rows
}

// Discrepancies reports profile claims whose single unambiguous backing
// record has mismatched ownership: either the record is not user-owned, or
// it is owned by a different user. Correctly assigned claims produce no row.
func (c *Context) Discrepancies() []DiscrepancyRow {
	contended := c.contendedNumbers()
	dupRecords := c.duplicateRecordNumbers()

	var rows []DiscrepancyRow

	for _, cl := range c.Claims {
		class, records := c.classifyClaim(cl, contended, dupRecords)
		if class != classSingle {
			continue
		}

		e := records[0]
		ownerType := strings.TrimSpace(e.OwnerType)

		var ownerID string
		if e.Owner != nil {
			ownerID = strings.TrimSpace(e.Owner.ID)
		}

		row := DiscrepancyRow{
			Extension: strings.TrimSpace(cl.Extension),
			UserID:    cl.UserID,
			UserName:  cl.UserName,
			UserEmail: cl.UserEmail,
			RecordID:  e.ID,
			OwnerType: ownerType,
			OwnerID:   ownerID,
		}

		switch {
		case !strings.EqualFold(ownerType, genesys.OwnerTypeUser):
			row.Issue = IssueOwnerTypeNotUser
		case ownerID != "" && !strings.EqualFold(ownerID, cl.UserID):
			row.Issue = IssueOwnerMismatch
		default:
			continue
		}

		rows = append(rows, row)
	}

	return rows
}

// MissingAssignments reports profile claims with no backing registry record
// at all. Contended and duplicate-record numbers are excluded: ambiguous
// ownership cannot be safely auto-classified.
func (c *Context) MissingAssignments() []MissingAssignmentRow {
	contended := c.contendedNumbers()
	dupRecords := c.duplicateRecordNumbers()

	var rows []MissingAssignmentRow

	for _, cl := range c.Claims {
		class, _ := c.classifyClaim(cl, contended, dupRecords)
		if class != classMissing {
			continue
		}

		rows = append(rows, MissingAssignmentRow{
			Extension: strings.TrimSpace(cl.Extension),
			UserID:    cl.UserID,
			UserName:  cl.UserName,
			UserEmail: cl.UserEmail,
			UserState: cl.UserState,
		})
	}

	return rows
}
