package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "modernc.org/sqlite"

	"github.com/blastus/confabulator/state"
)

//go:embed migrations/*
var migrations embed.FS

// SQLiteStore implements Store over a single SQLite database file,
// created and migrated automatically on first use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path
// and brings its schema up to date.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys=on", path))
	if err != nil {
		return nil, err
	}
	// Serialize all access: modernc.org/sqlite has no built-in
	// connection-level locking story, and this server's write volume
	// never justifies more than one open connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("prepare migration subdirectory: %w", err)
	}
	source, err := httpfs.New(http.FS(sub), ".")
	if err != nil {
		return fmt.Errorf("create source instance: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("httpfs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadAccounts(ctx context.Context) ([]AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, password, administrator, forgiven FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AccountRecord
	for rows.Next() {
		var r AccountRecord
		if err := rows.Scan(&r.Name, &r.Password, &r.Administrator, &r.Forgiven); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		contacts, err := s.loadContacts(ctx, records[i].Name)
		if err != nil {
			return nil, err
		}
		records[i].Contacts = contacts

		messages, err := s.loadMessages(ctx, records[i].Name)
		if err != nil {
			return nil, err
		}
		records[i].Messages = messages
	}
	return records, nil
}

func (s *SQLiteStore) loadContacts(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT contact FROM contacts WHERE owner = ?`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *SQLiteStore) loadMessages(ctx context.Context, owner string) ([]state.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, text, new FROM messages WHERE owner = ? ORDER BY seq`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []state.Message
	for rows.Next() {
		var m state.Message
		if err := rows.Scan(&m.Source, &m.Text, &m.New); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SaveAccounts replaces the entire account table with records, inside
// a single transaction.
func (s *SQLiteStore) SaveAccounts(ctx context.Context, records []AccountRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM messages`,
		`DELETE FROM contacts`,
		`DELETE FROM accounts`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (name, password, administrator, forgiven) VALUES (?, ?, ?, ?)`,
			r.Name, r.Password, r.Administrator, r.Forgiven,
		); err != nil {
			return err
		}
		for _, c := range r.Contacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contacts (owner, contact) VALUES (?, ?)`, r.Name, c,
			); err != nil {
				return err
			}
		}
		for seq, m := range r.Messages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO messages (owner, seq, source, text, new) VALUES (?, ?, ?, ?, ?)`,
				r.Name, seq, m.Source, m.Text, m.New,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadBans(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address FROM bans`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (s *SQLiteStore) SaveBans(ctx context.Context, addresses []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bans`); err != nil {
		return err
	}
	for _, a := range addresses {
		if _, err := tx.ExecContext(ctx, `INSERT INTO bans (address) VALUES (?)`, a); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadChannels(ctx context.Context) ([]ChannelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, owner, password, buf_size, replay_size FROM channels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ChannelRecord
	for rows.Next() {
		var r ChannelRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Owner, &r.Password, &r.BufSize, &r.Replay); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		banned, err := s.loadChannelBans(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Banned = banned

		muted, err := s.loadChannelMutes(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Muted = muted
	}
	return records, nil
}

func (s *SQLiteStore) loadChannelBans(ctx context.Context, channelID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM channel_bans WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) loadChannelMutes(ctx context.Context, channelID int) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT target, muter FROM channel_mutes WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	muted := make(map[string][]string)
	for rows.Next() {
		var target, muter string
		if err := rows.Scan(&target, &muter); err != nil {
			return nil, err
		}
		muted[target] = append(muted[target], muter)
	}
	return muted, rows.Err()
}

func (s *SQLiteStore) SaveChannels(ctx context.Context, records []ChannelRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM channel_mutes`,
		`DELETE FROM channel_bans`,
		`DELETE FROM channels`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (id, name, owner, password, buf_size, replay_size) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Owner, r.Password, r.BufSize, r.Replay,
		); err != nil {
			return err
		}
		for _, name := range r.Banned {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO channel_bans (channel_id, name) VALUES (?, ?)`, r.ID, name,
			); err != nil {
				return err
			}
		}
		for target, muters := range r.Muted {
			for _, muter := range muters {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO channel_mutes (channel_id, target, muter) VALUES (?, ?, ?)`, r.ID, target, muter,
				); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM global_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	return value, err
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// DeleteSetting removes key from the global settings table. The
// original implementation bound a hardcoded literal here instead of
// the requested key, so every delete silently removed (or no-op'd on)
// a setting named "test" regardless of what the caller asked for;
// this corrects it to delete the actual key.
func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM global_settings WHERE key = ?`, key)
	return err
}

// PrivilegeGroupCreate registers a named privilege group, matching the
// original db_api.py's privilege_group_create.
func (s *SQLiteStore) PrivilegeGroupCreate(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO privilege_groups (name) VALUES (?)`, name)
	return err
}

// PrivilegeRelationshipCreate records that child inherits from parent,
// matching the original db_api.py's privilege_relationship_create.
func (s *SQLiteStore) PrivilegeRelationshipCreate(ctx context.Context, parent, child string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO privilege_relationships (parent, child) VALUES (?, ?)`, parent, child)
	return err
}

// DescendantGroups walks the privilege-group graph from root via a
// recursive common table expression, returning root and every group
// reachable by following parent -> child edges.
func (s *SQLiteStore) DescendantGroups(ctx context.Context, root string) ([]string, error) {
	const q = `
		WITH RECURSIVE descendants(name) AS (
			SELECT ?
			UNION
			SELECT privilege_relationships.child
			FROM privilege_relationships
			JOIN descendants ON privilege_relationships.parent = descendants.name
		)
		SELECT name FROM descendants
	`
	rows, err := s.db.QueryContext(ctx, q, root)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
