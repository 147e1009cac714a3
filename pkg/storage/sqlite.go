package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"

	_ "modernc.org/sqlite"
)

const alertColumns = `id, owner_id, label, categories, locations, keywords, min_budget, max_budget,
	email_enabled, push_enabled, frequency, active, match_count, last_notified_at, created_at, updated_at`

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates an SQLite database at the given path.
// Migrations run only when autoMigrate is set; otherwise reads against a
// database without schema return empty results.
func NewSQLite(dbPath string, autoMigrate bool) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers, which keeps the quota insert atomic.
	db.SetMaxOpenConns(1)

	s := NewWithDB(db)
	if autoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLite) GetAlert(ctx context.Context, id, ownerID string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE id = ? AND owner_id = ?", id, ownerID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) || notProvisioned(err) {
		return nil, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *SQLite) ListAlertsByOwner(ctx context.Context, ownerID string) ([]model.Alert, error) {
	return s.queryAlerts(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE owner_id = ? ORDER BY created_at DESC, id",
		ownerID)
}

func (s *SQLite) ListActiveImmediateAlerts(ctx context.Context) ([]model.Alert, error) {
	return s.queryAlerts(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE active = 1 AND frequency = ? ORDER BY created_at, id",
		string(model.FrequencyImmediate))
}

func (s *SQLite) queryAlerts(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if notProvisioned(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) CreateAlert(ctx context.Context, alert *model.Alert, maxPerOwner int) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := s.now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now

	args, err := alertArgs(alert)
	if err != nil {
		return err
	}

	query := `INSERT INTO alerts (` + alertColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	if maxPerOwner > 0 {
		query += ` WHERE (SELECT COUNT(*) FROM alerts WHERE owner_id = ?) < ?`
		args = append(args, alert.OwnerID, maxPerOwner)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	if n == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *SQLite) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	alert.UpdatedAt = s.now()

	categories, locations, keywords, err := encodeFilters(alert.Filters)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET
		   label = ?, categories = ?, locations = ?, keywords = ?, min_budget = ?, max_budget = ?,
		   email_enabled = ?, push_enabled = ?, frequency = ?, active = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		alert.Label, categories, locations, keywords, alert.Budget.Min, nullableFloat(alert.Budget.Max),
		alert.Channels.EmailEnabled, alert.Channels.PushEnabled, string(alert.Frequency), alert.Active,
		alert.UpdatedAt, alert.ID, alert.OwnerID,
	)
	if notProvisioned(err) {
		return fmt.Errorf("alert %q: %w", alert.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	return expectOne(res, "alert", alert.ID)
}

func (s *SQLite) DeleteAlert(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ? AND owner_id = ?", id, ownerID)
	if notProvisioned(err) {
		return fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return expectOne(res, "alert", id)
}

func (s *SQLite) CountAlertsByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts WHERE owner_id = ?", ownerID).Scan(&n)
	if notProvisioned(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

func (s *SQLite) IncrementMatchStats(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET match_count = match_count + 1, last_notified_at = ? WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("increment match stats: %w", err)
	}
	return expectOne(res, "alert", id)
}

func (s *SQLite) GetUsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	users := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, display_name FROM users WHERE id IN ("+placeholders+")", args...)
	if notProvisioned(err) {
		return users, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u     model.User
			email sql.NullString
		)
		if err := rows.Scan(&u.ID, &email, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		if email.Valid {
			u.Email = &email.String
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (s *SQLite) UpsertUser(ctx context.Context, user *model.User) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email = excluded.email,
		   display_name = excluded.display_name,
		   updated_at = excluded.updated_at`,
		user.ID, nullableString(user.Email), user.DisplayName, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var (
		a                               model.Alert
		categories, locations, keywords string
		frequency                       string
		maxBudget                       sql.NullFloat64
		lastNotified                    sql.NullTime
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Label, &categories, &locations, &keywords,
		&a.Budget.Min, &maxBudget, &a.Channels.EmailEnabled, &a.Channels.PushEnabled,
		&frequency, &a.Active, &a.MatchCount, &lastNotified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Frequency = model.Frequency(frequency)
	if maxBudget.Valid {
		a.Budget.Max = &maxBudget.Float64
	}
	if lastNotified.Valid {
		t := lastNotified.Time
		a.LastNotifiedAt = &t
	}
	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{categories, &a.Categories},
		{locations, &a.Locations},
		{keywords, &a.Keywords},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decode filters of alert %q: %w", a.ID, err)
		}
	}
	return &a, nil
}

func alertArgs(a *model.Alert) ([]any, error) {
	categories, locations, keywords, err := encodeFilters(a.Filters)
	if err != nil {
		return nil, err
	}
	var lastNotified any
	if a.LastNotifiedAt != nil {
		lastNotified = a.LastNotifiedAt.UTC()
	}
	return []any{
		a.ID, a.OwnerID, a.Label, categories, locations, keywords,
		a.Budget.Min, nullableFloat(a.Budget.Max), a.Channels.EmailEnabled, a.Channels.PushEnabled,
		string(a.Frequency), a.Active, a.MatchCount, lastNotified, a.CreatedAt, a.UpdatedAt,
	}, nil
}

func encodeFilters(f model.Filters) (categories, locations, keywords string, err error) {
	encode := func(values []string) (string, error) {
		if values == nil {
			values = []string{}
		}
		b, err := json.Marshal(values)
		return string(b), err
	}
	if categories, err = encode(f.Categories); err != nil {
		return "", "", "", fmt.Errorf("encode categories: %w", err)
	}
	if locations, err = encode(f.Locations); err != nil {
		return "", "", "", fmt.Errorf("encode locations: %w", err)
	}
	if keywords, err = encode(f.Keywords); err != nil {
		return "", "", "", fmt.Errorf("encode keywords: %w", err)
	}
	return categories, locations, keywords, nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

// notProvisioned reports whether err comes from a database whose schema was never created.
func notProvisioned(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
