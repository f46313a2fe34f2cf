package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

// fakeSheet emulates the two Values endpoints the store calls.
type fakeSheet struct {
	mu      sync.Mutex
	rows    [][]any
	gets    int
	appends int
	lastOpt string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		f.gets++
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Expenses!A2:E", "values": f.rows})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.appends++
		f.lastOpt = r.URL.Query().Get("valueInputOption")
		var vr struct {
			Values [][]any `json:"values"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestStore(t *testing.T, fake *fakeSheet, ttl time.Duration) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	s, err := NewWithService(svc, Config{SpreadsheetID: "sheet-1", SheetName: "Expenses", CacheTTL: ttl}, nil)
	require.NoError(t, err)
	return s
}

func TestStoreCreateThenList(t *testing.T) {
	fake := &fakeSheet{}
	s := newTestStore(t, fake, 0)
	ctx := context.Background()

	created, err := s.Create(ctx, core.Expense{Date: "2024-03-01", Category: "Food", Amount: "12,50", Description: "lunch"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "RAW", fake.lastOpt)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])
}

func TestStoreListUsesCacheUntilCreate(t *testing.T) {
	fake := &fakeSheet{rows: [][]any{{"a", "2024-01-01", "Rent", "900", "jan"}}}
	s := newTestStore(t, fake, time.Minute)
	ctx := context.Background()

	_, err := s.List(ctx)
	require.NoError(t, err)
	_, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.gets)

	_, err = s.Create(ctx, core.Expense{Date: "2024-01-02", Category: "Food", Amount: "5", Description: "bread"})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, fake.gets)
}

func TestStoreCreateValidates(t *testing.T) {
	fake := &fakeSheet{}
	s := newTestStore(t, fake, 0)
	_, err := s.Create(context.Background(), core.Expense{Date: "2024-01-01"})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, 0, fake.appends)
}

func TestParseRows(t *testing.T) {
	rows := [][]interface{}{
		{"id-1", "2024-01-01", "Food", "12.5", "lunch"},
		{},
		{"", "", ""},
		{"", "2024-01-02", "Rent", 900},
		{"id-3", "2024-01-03", "Fun"},
	}
	got := parseRows(rows)
	require.Len(t, got, 3)

	assert.Equal(t, core.Expense{ID: "id-1", Date: "2024-01-01", Category: "Food", Amount: "12.5", Description: "lunch"}, got[0])
	assert.Equal(t, "row-5", got[1].ID)
	assert.Equal(t, "900", got[1].Amount)
	assert.Equal(t, "", got[1].Description)
	assert.Equal(t, "", got[2].Amount)
}

func TestLoadCredentials(t *testing.T) {
	b, err := loadCredentials(Config{CredentialsJSON: `{"type":"service_account"}`})
	require.NoError(t, err)
	assert.Contains(t, string(b), "service_account")

	_, err = loadCredentials(Config{})
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = loadCredentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "read service account file")
}

func TestNewWithServiceValidation(t *testing.T) {
	_, err := NewWithService(nil, Config{SpreadsheetID: "x"}, nil)
	assert.Error(t, err)

	svc, err := gsheet.NewService(context.Background(), goption.WithoutAuthentication())
	require.NoError(t, err)
	_, err = NewWithService(svc, Config{}, nil)
	assert.ErrorContains(t, err, "missing spreadsheet id")

	s, err := NewWithService(svc, Config{SpreadsheetID: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Expenses!A2:E", s.readRange())
	assert.Nil(t, s.Cache())
}
