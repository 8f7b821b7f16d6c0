package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcadmin/extaudit/internal/genesys"
)

type userPage struct {
	Entities  []genesys.User `json:"entities"`
	PageCount int            `json:"pageCount"`
}

type extensionPage struct {
	Entities  []genesys.Extension `json:"entities"`
	PageCount int                 `json:"pageCount"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func phoneUser(id, name, ext string) genesys.User {
	u := genesys.User{ID: id, Name: name, State: "active", Version: 1}
	if ext != "" {
		u.Addresses = []genesys.Address{{MediaType: "PHONE", Type: "WORK", Extension: ext}}
	}

	return u
}

func newTestBuilder(t *testing.T, url string, opts BuilderOptions) *Builder {
	t.Helper()

	client := genesys.NewClient(url, http.DefaultClient, genesys.StaticToken("test-token"), testLogger())
	b := NewBuilder(client, testLogger(), opts, nil)
	b.sleepFunc = func(_ context.Context, _ time.Duration) error { return nil }

	return b
}

func TestBuild_FullMode(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "active", r.URL.Query().Get("state"))

		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		switch page {
		case 1:
			writeJSON(t, w, userPage{
				Entities: []genesys.User{
					phoneUser("u1", "Alice", "101"),
					phoneUser("u2", "Bob", ""),
				},
				PageCount: 2,
			})
		case 2:
			writeJSON(t, w, userPage{
				Entities:  []genesys.User{phoneUser("u3", "Carol", "303")},
				PageCount: 2,
			})
		default:
			t.Errorf("unexpected users page %d", page)
		}
	})

	mux.HandleFunc("/api/v2/telephony/providers/edges/extensions", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		require.LessOrEqual(t, page, 3)
		writeJSON(t, w, extensionPage{
			Entities: []genesys.Extension{
				{ID: fmt.Sprintf("e%d", page), Number: fmt.Sprintf("%d01", page), OwnerType: "USER"},
			},
			PageCount: 3,
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBuilder(t, srv.URL, BuilderOptions{})

	ac, summary, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, ac.Users, 3)
	assert.Equal(t, ModeFull, ac.Mode)
	require.Len(t, ac.Claims, 2)
	assert.Equal(t, []string{"101", "303"}, ac.Numbers)
	assert.Len(t, ac.Extensions, 3)
	assert.Len(t, ac.Records("101"), 1)

	assert.Equal(t, 3, summary.UsersTotal)
	assert.Equal(t, 2, summary.UsersWithProfile)
	assert.Equal(t, 2, summary.DistinctNumbers)
	assert.Equal(t, 3, summary.ExtensionsLoaded)
	assert.Equal(t, ModeFull, summary.Mode)
	assert.False(t, summary.IncludeInactive)
	assert.Equal(t, srv.URL, summary.BaseURL)
}

func TestBuild_TargetedMode(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, userPage{
			Entities: []genesys.User{
				phoneUser("u1", "Alice", "101"),
				phoneUser("u2", "Bob", "202"),
				phoneUser("u3", "Carol", "303"),
			},
			PageCount: 1,
		})
	})

	var (
		mu      sync.Mutex
		lookups []string
	)

	mux.HandleFunc("/api/v2/telephony/providers/edges/extensions", func(w http.ResponseWriter, r *http.Request) {
		number := r.URL.Query().Get("number")
		if number == "" {
			// Probe: registry too large for a full crawl.
			writeJSON(t, w, extensionPage{PageCount: 40})

			return
		}

		mu.Lock()
		lookups = append(lookups, number)
		mu.Unlock()

		if number == "202" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))

			return
		}

		writeJSON(t, w, extensionPage{
			Entities:  []genesys.Extension{{ID: "e-" + number, Number: number, OwnerType: "USER"}},
			PageCount: 1,
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBuilder(t, srv.URL, BuilderOptions{})

	ac, summary, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ModeTargeted, ac.Mode)
	assert.Equal(t, []string{"101", "202", "303"}, lookups)

	// The failed lookup is skipped; the rest of the batch still loads.
	assert.Len(t, ac.Extensions, 2)
	assert.Empty(t, ac.Records("202"))
	assert.Len(t, ac.Records("101"), 1)
	assert.Equal(t, ModeTargeted, summary.Mode)
	assert.Equal(t, 2, summary.ExtensionsLoaded)
}

func TestBuild_UsersPaginationFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"missing permission"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBuilder(t, srv.URL, BuilderOptions{})

	_, _, err := b.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, genesys.ErrForbidden)
}

func TestBuild_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, userPage{PageCount: 1})
	}))
	defer srv.Close()

	b := newTestBuilder(t, srv.URL, BuilderOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := b.Build(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistinctNumbers(t *testing.T) {
	claims := []ProfileClaim{
		{Extension: " 300 "},
		{Extension: "100"},
		{Extension: "300"},
		{Extension: "  "},
		{Extension: "200"},
	}

	assert.Equal(t, []string{"100", "200", "300"}, distinctNumbers(claims))
}

func TestIndexByNumber(t *testing.T) {
	idx := indexByNumber([]genesys.Extension{
		{ID: "e1", Number: "100"},
		{ID: "e2", Number: " 100 "},
		{ID: "e3", Number: "200"},
		{ID: "e4", Number: ""},
	})

	assert.Len(t, idx["100"], 2)
	assert.Len(t, idx["200"], 1)
	assert.Len(t, idx, 2)
}
