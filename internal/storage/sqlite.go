package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	secureDBName  = "secure.db"
	secretName    = "secure.key"
	secretSize    = 32
	secretFileLen = secretSize + saltSize
)

// SecureStore is the native backend: a sqlite key/value table whose values
// are sealed with a per-install key. Reads go to disk every time, so it
// does not implement SyncReader.
type SecureStore struct {
	db     *sql.DB
	sealer *Sealer
}

// OpenSecure opens or creates the secure store in dir
func OpenSecure(dir string) (*SecureStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	secret, salt, err := loadOrCreateSecret(filepath.Join(dir, secretName))
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", filepath.Join(dir, secureDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SecureStore{db: sqlDB, sealer: NewSealer(secret, salt)}
	if err := RunMigrations(context.Background(), sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func loadOrCreateSecret(path string) ([]byte, []byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) == secretFileLen {
		return data[:secretSize], data[secretSize:], nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read storage key: %w", err)
	}
	if err == nil {
		return nil, nil, fmt.Errorf("storage key %s is corrupt (%d bytes)", path, len(data))
	}

	data = make([]byte, secretFileLen)
	if _, err := rand.Read(data); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to write storage key: %w", err)
	}
	return data[:secretSize], data[secretSize:], nil
}

// Get implements Backend
func (s *SecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secure_kv WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to unseal %s: %w", key, err)
	}
	return string(plain), true, nil
}

// Set implements Backend
func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO secure_kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, sealed, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend
func (s *SecureStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secure_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database
func (s *SecureStore) Close() error {
	return s.db.Close()
}
