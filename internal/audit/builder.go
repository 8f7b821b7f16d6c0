package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gcadmin/extaudit/internal/genesys"
)

// Builder defaults. Page sizes match the platform API maximums for the two
// collections; maxFullPages bounds how much of the global extension registry
// a run is willing to crawl before switching to targeted lookups.
const (
	DefaultUsersPageSize      = 200
	DefaultExtensionsPageSize = 100
	DefaultMaxFullPages       = 25
	DefaultLookupDelay        = 75 * time.Millisecond
)

// BuilderOptions tunes the fetch phase of an audit run.
type BuilderOptions struct {
	UsersPageSize      int
	ExtensionsPageSize int
	MaxFullPages       int
	LookupDelay        time.Duration
	IncludeInactive    bool
}

func (o *BuilderOptions) applyDefaults() {
	if o.UsersPageSize <= 0 {
		o.UsersPageSize = DefaultUsersPageSize
	}

	if o.ExtensionsPageSize <= 0 {
		o.ExtensionsPageSize = DefaultExtensionsPageSize
	}

	if o.MaxFullPages <= 0 {
		o.MaxFullPages = DefaultMaxFullPages
	}

	if o.LookupDelay <= 0 {
		o.LookupDelay = DefaultLookupDelay
	}
}

// Builder fetches both record sets and assembles the audit context.
// Fetching is strictly sequential: one page or lookup at a time, so the
// client's rate-limit telemetry needs no synchronization.
type Builder struct {
	client   *genesys.Client
	logger   *slog.Logger
	progress chan<- Progress
	opts     BuilderOptions

	// sleepFunc paces targeted lookups. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewBuilder creates a Builder. progress may be nil when no observer is
// interested in stage events.
func NewBuilder(client *genesys.Client, logger *slog.Logger, opts BuilderOptions, progress chan<- Progress) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	opts.applyDefaults()

	return &Builder{
		client:    client,
		logger:    logger,
		progress:  progress,
		opts:      opts,
		sleepFunc: sleepContext,
	}
}

// Build fetches users and extension records and assembles the indexed audit
// context plus its summary. Pagination failures are fatal: a partial record
// set is not trustworthy. Individual targeted lookups degrade gracefully
// instead, leaving the number out of the results.
func (b *Builder) Build(ctx context.Context) (*Context, *Summary, error) {
	b.logger.Info("building audit context",
		slog.Bool("include_inactive", b.opts.IncludeInactive),
		slog.Int("users_page_size", b.opts.UsersPageSize),
		slog.Int("extensions_page_size", b.opts.ExtensionsPageSize),
		slog.Int("max_full_pages", b.opts.MaxFullPages),
	)

	users, err := b.fetchUsers(ctx)
	if err != nil {
		return nil, nil, err
	}

	report(b.progress, "processing users", 0, 0)

	ac := &Context{
		Users:       users,
		UserByID:    make(map[string]genesys.User, len(users)),
		DisplayByID: make(map[string]string, len(users)),
	}

	for _, u := range users {
		if strings.TrimSpace(u.ID) == "" {
			continue
		}

		ac.UserByID[u.ID] = u
		ac.DisplayByID[u.ID] = DisplayName(u)

		if ext := ProfileExtension(u); ext != "" {
			ac.Claims = append(ac.Claims, ProfileClaim{
				UserID:    u.ID,
				UserName:  u.Name,
				UserEmail: u.Email,
				UserState: u.State,
				Extension: ext,
			})
		}
	}

	ac.Numbers = distinctNumbers(ac.Claims)

	b.logger.Info("profile extensions collected",
		slog.Int("users_total", len(users)),
		slog.Int("users_with_extension", len(ac.Claims)),
		slog.Int("distinct_numbers", len(ac.Numbers)),
	)

	if err := b.fetchExtensions(ctx, ac); err != nil {
		return nil, nil, err
	}

	ac.ByNumber = indexByNumber(ac.Extensions)

	summary := &Summary{
		BuiltAt:          time.Now(),
		BaseURL:          b.client.BaseURL(),
		IncludeInactive:  b.opts.IncludeInactive,
		UsersTotal:       len(users),
		UsersWithProfile: len(ac.Claims),
		DistinctNumbers:  len(ac.Numbers),
		ExtensionsLoaded: len(ac.Extensions),
		Mode:             ac.Mode,
	}

	return ac, summary, nil
}

// fetchUsers crawls the full user directory, page by page, until the
// server-reported page count is exhausted.
func (b *Builder) fetchUsers(ctx context.Context) ([]genesys.User, error) {
	var users []genesys.User

	page := 1

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("audit: fetching users: %w", err)
		}

		report(b.progress, "fetching users", page, 0)

		entities, pageCount, err := b.client.GetUsersPage(ctx, b.opts.UsersPageSize, page, b.opts.IncludeInactive)
		if err != nil {
			return nil, fmt.Errorf("audit: fetching users page %d: %w", page, err)
		}

		users = append(users, entities...)

		b.logger.Info("users page fetched",
			slog.Int("page", page),
			slog.Int("page_count", pageCount),
			slog.Int("entities", len(entities)),
			slog.Int("total_so_far", len(users)),
		)

		page++
		if pageCount <= 0 || page > pageCount {
			return users, nil
		}
	}
}

// fetchExtensions probes the registry size and picks the fetch strategy:
// a full crawl when the registry is small enough, targeted per-number
// lookups otherwise. Sets ac.Extensions and ac.Mode.
func (b *Builder) fetchExtensions(ctx context.Context, ac *Context) error {
	report(b.progress, "probing extensions", 0, 0)

	probe, pageCount, err := b.client.GetExtensionsPage(ctx, b.opts.ExtensionsPageSize, 1)
	if err != nil {
		return fmt.Errorf("audit: probing extensions: %w", err)
	}

	if pageCount > 0 && pageCount <= b.opts.MaxFullPages {
		ac.Mode = ModeFull

		exts, err := b.crawlExtensions(ctx, probe, pageCount)
		if err != nil {
			return err
		}

		ac.Extensions = exts
	} else {
		ac.Mode = ModeTargeted
		ac.Extensions = b.lookupExtensions(ctx, ac.Numbers)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("audit: fetching extensions: %w", err)
		}
	}

	b.logger.Info("extensions loaded",
		slog.String("mode", string(ac.Mode)),
		slog.Int("probe_page_count", pageCount),
		slog.Int("extensions_loaded", len(ac.Extensions)),
	)

	return nil
}

// crawlExtensions fetches the remaining registry pages after the probe.
func (b *Builder) crawlExtensions(ctx context.Context, firstPage []genesys.Extension, pageCount int) ([]genesys.Extension, error) {
	b.logger.Info("fetching extensions (full crawl)", slog.Int("page_count", pageCount))
	report(b.progress, "fetching extensions (full)", 1, pageCount)

	exts := firstPage

	for page := 2; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("audit: fetching extensions: %w", err)
		}

		report(b.progress, "fetching extensions (full)", page, pageCount)

		entities, serverCount, err := b.client.GetExtensionsPage(ctx, b.opts.ExtensionsPageSize, page)
		if err != nil {
			return nil, fmt.Errorf("audit: fetching extensions page %d: %w", page, err)
		}

		exts = append(exts, entities...)

		b.logger.Info("extensions page fetched",
			slog.Int("page", page),
			slog.Int("page_count", serverCount),
			slog.Int("entities", len(entities)),
			slog.Int("total_so_far", len(exts)),
		)

		// The registry may shrink mid-crawl; trust the latest count.
		if serverCount > 0 && serverCount < pageCount {
			pageCount = serverCount
		}
	}

	return exts, nil
}

// lookupExtensions issues one filtered lookup per observed profile number,
// pacing requests with a fixed delay. A failed lookup is logged and skipped;
// the batch continues with whatever was retrieved.
func (b *Builder) lookupExtensions(ctx context.Context, numbers []string) []genesys.Extension {
	b.logger.Info("fetching extensions (targeted by number)",
		slog.Int("distinct_numbers", len(numbers)),
		slog.Duration("lookup_delay", b.opts.LookupDelay),
	)

	var exts []genesys.Extension

	for i, n := range numbers {
		if ctx.Err() != nil {
			return exts
		}

		report(b.progress, "fetching extensions (targeted)", i+1, len(numbers))

		entities, err := b.client.LookupExtensions(ctx, n)
		if err != nil {
			b.logger.Warn("extension lookup failed, skipping number",
				slog.String("number", n),
				slog.String("error", err.Error()),
			)
		} else {
			exts = append(exts, entities...)
		}

		if err := b.sleepFunc(ctx, b.opts.LookupDelay); err != nil {
			return exts
		}
	}

	return exts
}

// distinctNumbers returns the distinct, trimmed profile extension numbers,
// sorted case-insensitively. The first-seen spelling of each number wins.
func distinctNumbers(claims []ProfileClaim) []string {
	seen := make(map[string]struct{}, len(claims))

	var numbers []string

	for _, cl := range claims {
		key := NormalizeNumber(cl.Extension)
		if key == "" {
			continue
		}

		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		numbers = append(numbers, strings.TrimSpace(cl.Extension))
	}

	sort.Slice(numbers, func(i, j int) bool {
		return NormalizeNumber(numbers[i]) < NormalizeNumber(numbers[j])
	})

	return numbers
}

// indexByNumber groups extension records by normalized number, skipping
// records with empty numbers.
func indexByNumber(exts []genesys.Extension) map[string][]genesys.Extension {
	byNumber := make(map[string][]genesys.Extension)

	for _, e := range exts {
		key := NormalizeNumber(e.Number)
		if key == "" {
			continue
		}

		byNumber[key] = append(byNumber[key], e)
	}

	return byNumber
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
