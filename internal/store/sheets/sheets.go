// Package sheets stores expenses as rows of a Google Sheets tab.
//
// Row layout, starting at row 2 (row 1 is a header):
//
//	A: id | B: date | C: category | D: amount | E: description
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const listCacheKey = "expenses"

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// CacheTTL bounds how long a List result is reused. Zero disables caching.
	CacheTTL time.Duration
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	cache         *cache.LRUCache[[]core.Expense]
	logger        *log.Logger
	newID         func() string
}

var _ store.Store = (*Store)(nil)

// New creates a Sheets-backed store using service account credentials.
// Extra client options are appended after the credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Store, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) (*Store, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     strings.TrimSpace(cfg.SheetName),
		logger:        logger.WithComponent(log.ComponentSheets),
		newID:         uuid.NewString,
	}
	if s.sheetName == "" {
		s.sheetName = "Expenses"
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.NewLRUCache[[]core.Expense](1, cfg.CacheTTL)
	}
	return s, nil
}

// Cache exposes the list cache so callers can register it for sweeping.
// It is nil when caching is disabled.
func (s *Store) Cache() *cache.LRUCache[[]core.Expense] { return s.cache }

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

func (s *Store) readRange() string   { return fmt.Sprintf("%s!A2:E", s.sheetName) }
func (s *Store) appendRange() string { return fmt.Sprintf("%s!A:E", s.sheetName) }

// List returns every expense row, served from cache while it is fresh.
func (s *Store) List(ctx context.Context) ([]core.Expense, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(listCacheKey); ok {
			return cloneExpenses(cached), nil
		}
	}

	rng := s.readRange()
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := parseRows(resp.Values)

	if s.cache != nil {
		s.cache.Set(listCacheKey, cloneExpenses(out))
	}
	s.logger.DebugContext(ctx, "Expenses read from sheet", log.FieldCount, len(out), "range", rng)
	return out, nil
}

// Create appends a row and invalidates the list cache.
func (s *Store) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	out, err := store.Prepare(e, s.newID)
	if err != nil {
		return core.Expense{}, err
	}

	vr := &gsheet.ValueRange{Values: [][]any{toRow(out)}}
	// RAW keeps amounts as typed ("12,50" must not become a number or date).
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.appendRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Expense{}, fmt.Errorf("append to sheet %s: %w", s.sheetName, err)
	}
	if s.cache != nil {
		s.cache.Delete(listCacheKey)
	}

	s.logger.InfoContext(ctx, "Expense appended to sheet",
		log.FieldExpenseID, out.ID,
		log.FieldCategory, out.Category,
		log.FieldAmount, out.Amount)
	return out, nil
}

func (s *Store) Close() error { return nil }

func toRow(e core.Expense) []any {
	return []any{e.ID, e.Date, e.Category, e.Amount, e.Description}
}

// parseRows maps sheet rows to expenses. Blank rows are skipped; rows
// without an id get one derived from their sheet row number.
func parseRows(values [][]interface{}) []core.Expense {
	out := make([]core.Expense, 0, len(values))
	for i, raw := range values {
		cells := toStrings(raw)
		if isBlank(cells) {
			continue
		}
		e := core.Expense{
			ID:          safeGet(cells, 0),
			Date:        safeGet(cells, 1),
			Category:    safeGet(cells, 2),
			Amount:      safeGet(cells, 3),
			Description: safeGet(cells, 4),
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("row-%d", i+2)
		}
		out = append(out, e)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func cloneExpenses(in []core.Expense) []core.Expense {
	out := make([]core.Expense, len(in))
	copy(out, in)
	return out
}
