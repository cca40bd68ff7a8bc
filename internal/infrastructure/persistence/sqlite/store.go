package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"yamBot/internal/domain"
)

// Store guarda comandos, ajustes de funciones y flags de idioma en un único
// archivo SQLite. Una sola conexión: el bot es el único proceso que escribe.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const commandsTable = `
CREATE TABLE IF NOT EXISTS commands (
	name TEXT PRIMARY KEY,
	action_kind TEXT NOT NULL DEFAULT 'send',
	response TEXT NOT NULL,
	allow_subs INTEGER NOT NULL DEFAULT 1,
	allow_vips INTEGER NOT NULL DEFAULT 1,
	allow_mods INTEGER NOT NULL DEFAULT 1,
	cooldown_seconds INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(commandsTable); err != nil {
		return fmt.Errorf("sqlite: migrate commands: %w", err)
	}
	if _, err := db.Exec(`ALTER TABLE commands ADD COLUMN cooldown_seconds INTEGER NOT NULL DEFAULT 0;`); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return fmt.Errorf("sqlite: add cooldown column: %w", err)
		}
	}

	const featureSettingsTable = `
CREATE TABLE IF NOT EXISTS feature_settings (
	feature TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1,
	volume REAL NOT NULL DEFAULT 0.5,
	allow_subs INTEGER NOT NULL DEFAULT 1,
	allow_vips INTEGER NOT NULL DEFAULT 1,
	allow_mods INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(featureSettingsTable); err != nil {
		return fmt.Errorf("sqlite: migrate feature_settings: %w", err)
	}

	const settingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(settingsTable); err != nil {
		return fmt.Errorf("sqlite: migrate settings: %w", err)
	}

	const languagesTable = `
CREATE TABLE IF NOT EXISTS tts_languages (
	code TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(languagesTable); err != nil {
		return fmt.Errorf("sqlite: migrate tts_languages: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ----- Comandos -----

func (s *Store) UpsertCommand(ctx context.Context, def *domain.CommandDefinition) error {
	if def == nil {
		return fmt.Errorf("sqlite: command nil")
	}

	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	if def.UpdatedAt.IsZero() {
		def.UpdatedAt = now
	}

	const stmt = `
INSERT INTO commands (name, action_kind, response, allow_subs, allow_vips, allow_mods, cooldown_seconds, enabled, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	action_kind=excluded.action_kind,
	response=excluded.response,
	allow_subs=excluded.allow_subs,
	allow_vips=excluded.allow_vips,
	allow_mods=excluded.allow_mods,
	cooldown_seconds=excluded.cooldown_seconds,
	enabled=excluded.enabled,
	updated_at=excluded.updated_at;
`

	_, err := s.db.ExecContext(
		ctx,
		stmt,
		def.Trigger,
		string(def.Action.Kind),
		def.Action.Text,
		def.Permissions.Subs,
		def.Permissions.VIPs,
		def.Permissions.Mods,
		int64(def.Cooldown/time.Second),
		def.Enabled,
		def.CreatedAt,
		def.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert command: %w", err)
	}

	return nil
}

func (s *Store) ListCommands(ctx context.Context) ([]*domain.CommandDefinition, error) {
	const query = `
SELECT name, action_kind, response, allow_subs, allow_vips, allow_mods, cooldown_seconds, enabled, created_at, updated_at
FROM commands;
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list commands: %w", err)
	}
	defer rows.Close()

	var out []*domain.CommandDefinition
	for rows.Next() {
		var (
			record          domain.CommandDefinition
			kind            string
			cooldownSeconds int64
			createdAt       sql.NullTime
			updatedAt       sql.NullTime
		)

		if err := rows.Scan(
			&record.Trigger,
			&kind,
			&record.Action.Text,
			&record.Permissions.Subs,
			&record.Permissions.VIPs,
			&record.Permissions.Mods,
			&cooldownSeconds,
			&record.Enabled,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan command: %w", err)
		}

		record.Action.Kind = domain.ActionKind(kind)
		record.Cooldown = time.Duration(cooldownSeconds) * time.Second
		record.CreatedAt = createdAt.Time
		record.UpdatedAt = updatedAt.Time

		out = append(out, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list command rows: %w", err)
	}

	return out, nil
}

func (s *Store) DeleteCommand(ctx context.Context, trigger string) error {
	const stmt = `DELETE FROM commands WHERE LOWER(name) = LOWER(?);`
	if _, err := s.db.ExecContext(ctx, stmt, trigger); err != nil {
		return fmt.Errorf("sqlite: delete command: %w", err)
	}
	return nil
}

// ----- Ajustes de funciones -----

func (s *Store) FeatureSettings(ctx context.Context, feature string) (domain.FeatureSettings, error) {
	const query = `
SELECT enabled, volume, allow_subs, allow_vips, allow_mods
FROM feature_settings
WHERE feature = ?
LIMIT 1;
`

	row := s.db.QueryRowContext(ctx, query, feature)

	var settings domain.FeatureSettings
	if err := row.Scan(
		&settings.Enabled,
		&settings.Volume,
		&settings.Permissions.Subs,
		&settings.Permissions.VIPs,
		&settings.Permissions.Mods,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.DefaultFeatureSettings(), nil
		}
		return domain.FeatureSettings{}, fmt.Errorf("sqlite: get feature settings: %w", err)
	}

	return settings, nil
}

func (s *Store) SaveFeatureSettings(ctx context.Context, feature string, settings domain.FeatureSettings) error {
	if strings.TrimSpace(feature) == "" {
		return fmt.Errorf("sqlite: empty feature")
	}

	const stmt = `
INSERT INTO feature_settings (feature, enabled, volume, allow_subs, allow_vips, allow_mods, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(feature) DO UPDATE SET
	enabled=excluded.enabled,
	volume=excluded.volume,
	allow_subs=excluded.allow_subs,
	allow_vips=excluded.allow_vips,
	allow_mods=excluded.allow_mods,
	updated_at=excluded.updated_at;
`

	_, err := s.db.ExecContext(
		ctx,
		stmt,
		feature,
		settings.Enabled,
		settings.Volume,
		settings.Permissions.Subs,
		settings.Permissions.VIPs,
		settings.Permissions.Mods,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save feature settings: %w", err)
	}

	return nil
}

// ----- Voz del TTS -----

const ttsVoiceKey = "tts_voice"

func (s *Store) SetTTSVoice(ctx context.Context, code string) error {
	return s.setSetting(ctx, ttsVoiceKey, code)
}

func (s *Store) TTSVoice(ctx context.Context) (string, error) {
	return s.getSetting(ctx, ttsVoiceKey)
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sqlite: empty setting key")
	}

	const stmt = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value,
	updated_at=excluded.updated_at;
`

	if _, err := s.db.ExecContext(ctx, stmt, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: set setting: %w", err)
	}

	return nil
}

func (s *Store) getSetting(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("sqlite: empty setting key")
	}

	const query = `SELECT value FROM settings WHERE key = ? LIMIT 1;`
	row := s.db.QueryRowContext(ctx, query, key)

	var value sql.NullString
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: get setting: %w", err)
	}

	return value.String, nil
}

// ----- Idiomas del TTS -----

func (s *Store) LanguageOverrides(ctx context.Context) (map[string]bool, error) {
	const query = `SELECT code, enabled FROM tts_languages;`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list languages: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]bool)
	for rows.Next() {
		var code string
		var enabled bool
		if err := rows.Scan(&code, &enabled); err != nil {
			return nil, fmt.Errorf("sqlite: scan language: %w", err)
		}
		overrides[code] = enabled
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: language rows: %w", err)
	}

	return overrides, nil
}

func (s *Store) SetLanguageEnabled(ctx context.Context, code string, enabled bool) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("sqlite: empty language code")
	}

	const stmt = `
INSERT INTO tts_languages (code, enabled, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(code) DO UPDATE SET
	enabled=excluded.enabled,
	updated_at=excluded.updated_at;
`

	if _, err := s.db.ExecContext(ctx, stmt, code, enabled, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: set language: %w", err)
	}

	return nil
}

var _ domain.CommandRepository = (*Store)(nil)
var _ domain.SettingsRepository = (*Store)(nil)
