package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/models"
	"meditation-bot/internal/session"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("record not found")

type Storage struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(databasePath string, logger *zap.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", databasePath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db, logger: logger}
	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return storage, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initDB() error {
	query := `
    CREATE TABLE IF NOT EXISTS sessions (
        user_id INTEGER NOT NULL,
        key TEXT NOT NULL,
        value TEXT NOT NULL,
        PRIMARY KEY (user_id, key)
    );
    CREATE TABLE IF NOT EXISTS backgrounds (
        id TEXT PRIMARY KEY,
        user_id INTEGER NOT NULL,
        filename TEXT NOT NULL,
        custom_name TEXT,
        custom_description TEXT,
        icon TEXT,
        color TEXT,
        created_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_backgrounds_user ON backgrounds (user_id);
    CREATE TABLE IF NOT EXISTS activities (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        organizer_id INTEGER NOT NULL,
        starts_at TIMESTAMP NOT NULL,
        max_participants INTEGER NOT NULL,
        cancelled INTEGER NOT NULL DEFAULT 0
    );
    CREATE TABLE IF NOT EXISTS activity_members (
        activity_id TEXT NOT NULL REFERENCES activities (id) ON DELETE CASCADE,
        user_id INTEGER NOT NULL,
        name TEXT,
        list TEXT NOT NULL,
        position INTEGER NOT NULL,
        PRIMARY KEY (activity_id, user_id)
    );`
	_, err := s.db.Exec(query)
	return err
}

// Session returns the preference store of a single user.
func (s *Storage) Session(userID int64) session.Store {
	return &userSession{db: s.db, userID: userID}
}

type userSession struct {
	db     *sql.DB
	userID int64
}

func (u *userSession) Get(ctx context.Context, key, def string) (string, error) {
	var value string
	err := u.db.QueryRowContext(ctx, `SELECT value FROM sessions WHERE user_id = ? AND key = ?`, u.userID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("failed to read session key %s for user %d: %w", key, u.userID, err)
	}
	return value, nil
}

func (u *userSession) Set(ctx context.Context, key, value string) error {
	_, err := u.db.ExecContext(ctx, `INSERT OR REPLACE INTO sessions (user_id, key, value) VALUES (?, ?, ?)`, u.userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write session key %s for user %d: %w", key, u.userID, err)
	}
	return nil
}

func (s *Storage) SaveBackground(ctx context.Context, b models.Background) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO backgrounds (id, user_id, filename, custom_name, custom_description, icon, color, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		b.ID, b.UserID, b.Filename, b.CustomName, b.CustomDescription, b.Icon, b.Color, b.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save background %s: %w", b.ID, err)
	}
	s.logger.Info("Background saved", zap.String("background_id", b.ID), zap.Int64("user_id", b.UserID))
	return nil
}

func (s *Storage) ListBackgrounds(ctx context.Context, userID int64) ([]models.Background, error) {
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, user_id, filename, custom_name, custom_description, icon, color, created_at
    FROM backgrounds WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backgrounds for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []models.Background
	for rows.Next() {
		b, err := scanBackground(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Storage) GetBackground(ctx context.Context, id string) (models.Background, error) {
	row := s.db.QueryRowContext(ctx, `
    SELECT id, user_id, filename, custom_name, custom_description, icon, color, created_at
    FROM backgrounds WHERE id = ?`, id)
	b, err := scanBackground(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Background{}, ErrNotFound
	}
	return b, err
}

func (s *Storage) DeleteBackground(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM backgrounds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete background %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBackground(row scanner) (models.Background, error) {
	var b models.Background
	var name, desc, icon, color sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &b.Filename, &name, &desc, &icon, &color, &b.CreatedAt); err != nil {
		return models.Background{}, err
	}
	b.CustomName = name.String
	b.CustomDescription = desc.String
	b.Icon = icon.String
	b.Color = color.String
	return b, nil
}

func (s *Storage) CreateActivity(ctx context.Context, a activity.Activity, maxParticipants int) error {
	_, err := s.db.ExecContext(ctx, `
    INSERT INTO activities (id, title, organizer_id, starts_at, max_participants) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.OrganizerID, a.StartsAt.UTC(), maxParticipants,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity %s: %w", a.ID, err)
	}
	return nil
}

func (s *Storage) ListActivities(ctx context.Context) ([]activity.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, title, organizer_id, starts_at FROM activities WHERE cancelled = 0 ORDER BY starts_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var out []activity.Activity
	for rows.Next() {
		var a activity.Activity
		if err := rows.Scan(&a.ID, &a.Title, &a.OrganizerID, &a.StartsAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Storage) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	var a activity.Activity
	err := s.db.QueryRowContext(ctx, `SELECT id, title, organizer_id, starts_at FROM activities WHERE id = ?`, id).
		Scan(&a.ID, &a.Title, &a.OrganizerID, &a.StartsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Activity{}, activity.ErrNotFound
	}
	return a, err
}

func (s *Storage) GetRoster(ctx context.Context, id string) (activity.Roster, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return activity.Roster{}, err
	}
	defer tx.Rollback()
	return loadRoster(ctx, tx, id)
}

// Join is the authoritative join: participant while seats remain, waitlist afterwards.
func (s *Storage) Join(ctx context.Context, id string, m activity.Member) (activity.Roster, error) {
	return s.mutateRoster(ctx, id, func(r activity.Roster) (activity.Roster, error) {
		if r.IsMember(m.UserID) {
			return r, activity.ErrAlreadyJoined
		}
		return activity.ApplyJoin(r, m), nil
	})
}

// Leave removes the user and promotes the head of the waitlist into a freed seat.
func (s *Storage) Leave(ctx context.Context, id string, userID int64) (activity.Roster, error) {
	return s.mutateRoster(ctx, id, func(r activity.Roster) (activity.Roster, error) {
		if !r.IsMember(userID) {
			return r, activity.ErrNotMember
		}
		return activity.ApplyLeave(r, userID), nil
	})
}

func (s *Storage) Cancel(ctx context.Context, id string, organizerID int64) (activity.Roster, error) {
	a, err := s.GetActivity(ctx, id)
	if err != nil {
		return activity.Roster{}, err
	}
	if a.OrganizerID != organizerID {
		return activity.Roster{}, activity.ErrNotOrganizer
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE activities SET cancelled = 1 WHERE id = ?`, id); err != nil {
		return activity.Roster{}, fmt.Errorf("failed to cancel activity %s: %w", id, err)
	}
	s.logger.Info("Activity cancelled", zap.String("activity_id", id))
	return s.GetRoster(ctx, id)
}

func (s *Storage) mutateRoster(ctx context.Context, id string, mutate func(activity.Roster) (activity.Roster, error)) (activity.Roster, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return activity.Roster{}, err
	}
	defer tx.Rollback()

	current, err := loadRoster(ctx, tx, id)
	if err != nil {
		return activity.Roster{}, err
	}
	if current.Cancelled {
		return current, activity.ErrCancelled
	}

	next, err := mutate(current)
	if err != nil {
		return current, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_members WHERE activity_id = ?`, id); err != nil {
		return activity.Roster{}, err
	}
	if err := insertMembers(ctx, tx, id, "participant", next.Participants); err != nil {
		return activity.Roster{}, err
	}
	if err := insertMembers(ctx, tx, id, "waitlist", next.Waitlist); err != nil {
		return activity.Roster{}, err
	}
	if err := tx.Commit(); err != nil {
		return activity.Roster{}, fmt.Errorf("failed to commit roster of %s: %w", id, err)
	}
	return next, nil
}

func loadRoster(ctx context.Context, tx *sql.Tx, id string) (activity.Roster, error) {
	r := activity.Roster{ActivityID: id}
	var cancelled int
	err := tx.QueryRowContext(ctx, `SELECT max_participants, cancelled FROM activities WHERE id = ?`, id).
		Scan(&r.MaxParticipants, &cancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return r, activity.ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("failed to load activity %s: %w", id, err)
	}
	r.Cancelled = cancelled != 0

	rows, err := tx.QueryContext(ctx, `
    SELECT user_id, name, list FROM activity_members WHERE activity_id = ? ORDER BY position`, id)
	if err != nil {
		return r, fmt.Errorf("failed to load members of %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var m activity.Member
		var name sql.NullString
		var list string
		if err := rows.Scan(&m.UserID, &name, &list); err != nil {
			return r, err
		}
		m.Name = name.String
		if list == "waitlist" {
			r.Waitlist = append(r.Waitlist, m)
		} else {
			r.Participants = append(r.Participants, m)
		}
	}
	return r, rows.Err()
}

func insertMembers(ctx context.Context, tx *sql.Tx, id, list string, members []activity.Member) error {
	for i, m := range members {
		_, err := tx.ExecContext(ctx, `
        INSERT INTO activity_members (activity_id, user_id, name, list, position) VALUES (?, ?, ?, ?, ?)`,
			id, m.UserID, m.Name, list, i)
		if err != nil {
			return fmt.Errorf("failed to store member %d of %s: %w", m.UserID, id, err)
		}
	}
	return nil
}
