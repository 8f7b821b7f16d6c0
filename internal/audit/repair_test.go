package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcadmin/extaudit/internal/genesys"
)

// missingContext builds a context where the given users each claim a number
// with no backing registry record.
func missingContext(users ...genesys.User) *Context {
	ac := &Context{
		UserByID:    make(map[string]genesys.User),
		DisplayByID: make(map[string]string),
		ByNumber:    map[string][]genesys.Extension{},
	}

	for _, u := range users {
		ac.UserByID[u.ID] = u
		ac.DisplayByID[u.ID] = DisplayName(u)
		ac.Claims = append(ac.Claims, ProfileClaim{
			UserID:    u.ID,
			UserName:  u.Name,
			UserState: u.State,
			Extension: ProfileExtension(u),
		})
	}

	return ac
}

func newTestRepairer(t *testing.T, url string, opts RepairOptions) *Repairer {
	t.Helper()

	client := genesys.NewClient(url, http.DefaultClient, genesys.StaticToken("test-token"), testLogger())
	r := NewRepairer(client, testLogger(), opts, nil)
	r.sleepFunc = func(_ context.Context, _ time.Duration) error { return nil }

	return r
}

func TestRepair_DryRunIssuesNoWrites(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ac := missingContext(phoneUser("u1", "Alice", "101"))
	r := newTestRepairer(t, srv.URL, RepairOptions{DryRun: true})

	result, err := r.Run(context.Background(), ac)
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1, result.MissingFound)
	assert.Equal(t, 1, result.Updated)
	assert.True(t, result.DryRun)
	require.Len(t, result.UpdatedRows, 1)
	assert.Equal(t, StatusDryRun, result.UpdatedRows[0].Status)
	assert.Equal(t, 0, result.UpdatedRows[0].Version)
}

func TestRepair_PatchesWithIncrementedVersion(t *testing.T) {
	var patched map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/users/u1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, genesys.User{
			ID:      "u1",
			Name:    "Alice",
			Version: 12,
			Addresses: []genesys.Address{
				{MediaType: "SMS", Type: "WORK", Address: "+15550100"},
				{MediaType: "PHONE", Type: "WORK"},
			},
		})
	})
	mux.HandleFunc("PATCH /api/v2/users/u1", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
		writeJSON(t, w, genesys.User{ID: "u1", Version: 13})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ac := missingContext(phoneUser("u1", "Alice", "101"))
	r := newTestRepairer(t, srv.URL, RepairOptions{})

	result, err := r.Run(context.Background(), ac)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.UpdatedRows, 1)
	assert.Equal(t, StatusPatched, result.UpdatedRows[0].Status)
	assert.Equal(t, 13, result.UpdatedRows[0].Version)

	require.NotNil(t, patched)
	assert.Equal(t, float64(13), patched["version"])

	addresses, ok := patched["addresses"].([]any)
	require.True(t, ok)
	require.Len(t, addresses, 2)

	// The SMS entry is carried through untouched; the extension lands on
	// the WORK phone entry.
	first, _ := addresses[0].(map[string]any)
	assert.Equal(t, "SMS", first["mediaType"])
	_, hasExt := first["extension"]
	assert.False(t, hasExt)

	second, _ := addresses[1].(map[string]any)
	assert.Equal(t, "101", second["extension"])
}

func TestRepair_MaxUpdatesSkipsRemainder(t *testing.T) {
	ac := missingContext(
		phoneUser("u1", "Alice", "101"),
		phoneUser("u2", "Bob", "202"),
		phoneUser("u3", "Carol", "303"),
	)

	r := newTestRepairer(t, "http://unused.invalid", RepairOptions{DryRun: true, MaxUpdates: 2})

	result, err := r.Run(context.Background(), ac)
	require.NoError(t, err)

	assert.Equal(t, 3, result.MissingFound)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.SkippedRows, 1)
	assert.Equal(t, SkipMaxUpdatesReached, result.SkippedRows[0].Reason)
	assert.Equal(t, "u3", result.SkippedRows[0].UserID)
}

func TestRepair_ContendedNumbersNeverReachRepair(t *testing.T) {
	// Two users claiming the same absent number: the claim is contended, so
	// it surfaces in the duplicate report instead of the missing list.
	ac := missingContext(
		phoneUser("u1", "Alice", "101"),
		phoneUser("u2", "Bob", "101"),
	)

	r := newTestRepairer(t, "http://unused.invalid", RepairOptions{DryRun: true})

	result, err := r.Run(context.Background(), ac)
	require.NoError(t, err)

	assert.Equal(t, 0, result.MissingFound)
	assert.Equal(t, 0, result.Updated)
	assert.Len(t, ac.DuplicateAssignments(), 2)
}

func TestRepair_FailureIsIsolatedPerRow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/users/u1", func(w http.ResponseWriter, _ *http.Request) {
		// No phone address at all: nothing to patch the extension onto.
		writeJSON(t, w, genesys.User{ID: "u1", Version: 3})
	})
	mux.HandleFunc("GET /api/v2/users/u2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, genesys.User{
			ID:        "u2",
			Version:   5,
			Addresses: []genesys.Address{{MediaType: "PHONE", Type: "WORK"}},
		})
	})
	mux.HandleFunc("PATCH /api/v2/users/u2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, genesys.User{ID: "u2", Version: 6})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ac := missingContext(
		phoneUser("u1", "Alice", "101"),
		phoneUser("u2", "Bob", "202"),
	)

	r := newTestRepairer(t, srv.URL, RepairOptions{})

	result, err := r.Run(context.Background(), ac)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.FailedRows, 1)
	assert.Equal(t, "u1", result.FailedRows[0].UserID)
	assert.Contains(t, result.FailedRows[0].Error, "no phone address")

	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.UpdatedRows, 1)
	assert.Equal(t, "u2", result.UpdatedRows[0].UserID)
	assert.Equal(t, 6, result.UpdatedRows[0].Version)
}

func TestRepair_CancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ac := missingContext(
		phoneUser("u1", "Alice", "101"),
		phoneUser("u2", "Bob", "202"),
	)

	r := newTestRepairer(t, "http://unused.invalid", RepairOptions{DryRun: true})

	cancel()

	result, err := r.Run(ctx, ac)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.MissingFound)
	assert.Equal(t, 0, result.Updated)
}
