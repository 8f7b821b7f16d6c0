package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gcadmin/extaudit/internal/genesys"
)

// Patch row statuses and skip reasons.
const (
	StatusPatched = "Patched"
	StatusDryRun  = "DryRun"

	SkipDuplicateAssignment = "DuplicateUserAssignment"
	SkipMaxUpdatesReached   = "MaxUpdatesReached"
)

// UpdatedRow records one applied (or simulated) patch.
type UpdatedRow struct {
	UserID    string
	User      string
	Extension string
	Status    string
	Version   int
}

// SkippedRow records one missing assignment deliberately left alone.
type SkippedRow struct {
	Reason    string
	UserID    string
	User      string
	Extension string
}

// FailedRow records one patch that raised an error. Failures are isolated
// per row and never abort the batch.
type FailedRow struct {
	UserID    string
	User      string
	Extension string
	Error     string
}

// PatchResult is the audit trail of one repair run.
type PatchResult struct {
	MissingFound int
	Updated      int
	Skipped      int
	Failed       int
	DryRun       bool

	UpdatedRows []UpdatedRow
	SkippedRows []SkippedRow
	FailedRows  []FailedRow
}

// RepairOptions tunes a repair run. MaxUpdates of 0 means unlimited; Delay
// paces real patches to smooth request rate.
type RepairOptions struct {
	DryRun     bool
	MaxUpdates int
	Delay      time.Duration
}

// Repairer patches missing assignments back onto users via a
// read-modify-write cycle per row.
type Repairer struct {
	client   *genesys.Client
	logger   *slog.Logger
	progress chan<- Progress
	opts     RepairOptions

	// sleepFunc paces successful patches. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewRepairer creates a Repairer. progress may be nil.
func NewRepairer(client *genesys.Client, logger *slog.Logger, opts RepairOptions, progress chan<- Progress) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Repairer{
		client:    client,
		logger:    logger,
		progress:  progress,
		opts:      opts,
		sleepFunc: sleepContext,
	}
}

// Run patches every missing assignment in the context. Each row terminates
// as exactly one of updated, skipped, or failed; per-row failures are
// recorded and the batch continues. Cancellation is checked once per row and
// aborts the remaining batch, returning the rows processed so far alongside
// the error.
func (r *Repairer) Run(ctx context.Context, ac *Context) (*PatchResult, error) {
	missing := ac.MissingAssignments()

	contended := make(map[string]struct{})
	for _, row := range ac.DuplicateAssignments() {
		contended[NormalizeNumber(row.Extension)] = struct{}{}
	}

	result := &PatchResult{
		MissingFound: len(missing),
		DryRun:       r.opts.DryRun,
	}

	done := 0

	for i, m := range missing {
		if err := ctx.Err(); err != nil {
			r.finalize(result)

			return result, fmt.Errorf("audit: repair canceled: %w", err)
		}

		report(r.progress, "patching missing assignments", i+1, len(missing))

		user := ac.Display(m.UserID)

		if _, ok := contended[NormalizeNumber(m.Extension)]; ok {
			result.SkippedRows = append(result.SkippedRows, SkippedRow{
				Reason:    SkipDuplicateAssignment,
				UserID:    m.UserID,
				User:      user,
				Extension: m.Extension,
			})

			continue
		}

		if r.opts.MaxUpdates > 0 && done >= r.opts.MaxUpdates {
			result.SkippedRows = append(result.SkippedRows, SkippedRow{
				Reason:    SkipMaxUpdatesReached,
				UserID:    m.UserID,
				User:      user,
				Extension: m.Extension,
			})

			continue
		}

		r.logger.Info("patching missing assignment",
			slog.String("user_id", m.UserID),
			slog.String("user", user),
			slog.String("extension", m.Extension),
			slog.Bool("dry_run", r.opts.DryRun),
		)

		if r.opts.DryRun {
			result.UpdatedRows = append(result.UpdatedRows, UpdatedRow{
				UserID:    m.UserID,
				User:      user,
				Extension: m.Extension,
				Status:    StatusDryRun,
				Version:   0,
			})
			done++

			continue
		}

		version, err := r.patchOne(ctx, m)
		if err != nil {
			result.FailedRows = append(result.FailedRows, FailedRow{
				UserID:    m.UserID,
				User:      user,
				Extension: m.Extension,
				Error:     err.Error(),
			})

			r.logger.Error("patch failed",
				slog.String("user_id", m.UserID),
				slog.String("extension", m.Extension),
				slog.String("error", err.Error()),
			)

			continue
		}

		result.UpdatedRows = append(result.UpdatedRows, UpdatedRow{
			UserID:    m.UserID,
			User:      user,
			Extension: m.Extension,
			Status:    StatusPatched,
			Version:   version,
		})
		done++

		if r.opts.Delay > 0 {
			if err := r.sleepFunc(ctx, r.opts.Delay); err != nil {
				r.finalize(result)

				return result, fmt.Errorf("audit: repair canceled: %w", err)
			}
		}
	}

	r.finalize(result)

	return result, nil
}

// patchOne runs the read-modify-write cycle for one missing assignment:
// re-fetch the user for a fresh version, set the extension on the preferred
// phone address, and submit the full addresses list with version+1.
// Returns the submitted version.
func (r *Repairer) patchOne(ctx context.Context, m MissingAssignmentRow) (int, error) {
	u, err := r.client.GetUser(ctx, m.UserID)
	if err != nil {
		return 0, err
	}

	if u.ID == "" {
		return 0, fmt.Errorf("fetched user %s has no id", m.UserID)
	}

	idx := pickAddress(u.Addresses)
	if idx < 0 {
		return 0, fmt.Errorf("user %s has no phone address entry to set extension", m.UserID)
	}

	addresses := make([]genesys.Address, len(u.Addresses))
	copy(addresses, u.Addresses)
	addresses[idx].Extension = m.Extension

	version := u.Version + 1

	if _, err := r.client.UpdateUserAddresses(ctx, m.UserID, addresses, version); err != nil {
		return 0, err
	}

	return version, nil
}

// pickAddress returns the index of the address to patch: the first
// WORK phone, else the first phone of any type, else -1.
func pickAddress(addresses []genesys.Address) int {
	for i, a := range addresses {
		if strings.EqualFold(a.MediaType, genesys.MediaTypePhone) &&
			strings.EqualFold(a.Type, genesys.AddressTypeWork) {
			return i
		}
	}

	for i, a := range addresses {
		if strings.EqualFold(a.MediaType, genesys.MediaTypePhone) {
			return i
		}
	}

	return -1
}

func (r *Repairer) finalize(result *PatchResult) {
	result.Updated = len(result.UpdatedRows)
	result.Skipped = len(result.SkippedRows)
	result.Failed = len(result.FailedRows)
}
