// Package store is the SQLite-backed persistence layer behind
// internal/reconnectpolicy (SPEC §4.8/§6, A3): the last successful
// ConnectionConfig snapshot, the auto-connect intent, the per-device
// service map, and the detected cable protocol. Grounded in the teacher's
// SQLiteStore (mu/cond/activeOps/closing lifecycle around a single *sql.DB,
// originally built for a document index) generalized to this smaller
// key/value + device-map schema.
package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Keys used in the scalar kv table (SPEC §6's persisted state layout).
const (
	KeyLastConnectionConfig   = "last_connection_config"
	KeyConnectedDeviceID      = "connected_device_id"
	KeyAutoConnectEnabled     = "auto_connect_enabled"
	KeyDetectedCableProtocol  = "detected_cable_protocol"
	KeyDetectedCableProtoTime = "detected_cable_protocol_at"
)

// DeviceServiceRecord is the per-device-id map entry of SPEC §4.8/§6.
type DeviceServiceRecord struct {
	DeviceID    string
	ServiceName string
	Host        string
	Port        int
	LastSeen    time.Time
}

// Store is the SQLite-backed persistence handle. The mu/cond/activeOps/
// closing fields implement the same graceful-close discipline as the
// teacher's SQLiteStore: Close() waits for in-flight operations to finish
// and blocks new ones from starting mid-close.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB

	activeOps int
	closing   bool
	cond      *sync.Cond
}

func New(path string) *Store {
	s := &Store{path: path}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Store) initLocked(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}
	schema := `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS device_services (
  device_id TEXT PRIMARY KEY,
  service_name TEXT NOT NULL,
  host TEXT NOT NULL,
  port INTEGER NOT NULL,
  last_seen_unix INTEGER NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Store) ensureDB(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil, errors.New("store is closing")
	}
	if s.db == nil {
		if err := s.initLocked(ctx); err != nil {
			return nil, err
		}
	}
	s.activeOps++
	return s.db, nil
}

func (s *Store) releaseDB() {
	s.mu.Lock()
	if s.activeOps > 0 {
		s.activeOps--
	}
	if s.activeOps == 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Store) Close() error {
	s.mu.Lock()
	for s.closing {
		s.cond.Wait()
	}
	if s.db == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	db := s.db
	s.db = nil
	for s.activeOps > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()

	err := db.Close()

	s.mu.Lock()
	s.closing = false
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

// SetKV upserts a scalar key/value pair.
func (s *Store) SetKV(ctx context.Context, key, value string) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	defer s.releaseDB()

	_, err = db.ExecContext(ctx,
		`INSERT INTO kv(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// GetKV returns a scalar value, ok=false if the key is unset.
func (s *Store) GetKV(ctx context.Context, key string) (value string, ok bool, err error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.releaseDB()

	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// DeleteKV removes a scalar key, a no-op if absent.
func (s *Store) DeleteKV(ctx context.Context, key string) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	defer s.releaseDB()

	_, err = db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// UpsertDeviceService records the most recent advertised endpoint for a
// known device id (SPEC §4.8).
func (s *Store) UpsertDeviceService(ctx context.Context, rec DeviceServiceRecord) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	defer s.releaseDB()

	_, err = db.ExecContext(ctx,
		`INSERT INTO device_services(device_id, service_name, host, port, last_seen_unix)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		   service_name=excluded.service_name,
		   host=excluded.host,
		   port=excluded.port,
		   last_seen_unix=excluded.last_seen_unix`,
		rec.DeviceID, rec.ServiceName, rec.Host, rec.Port, rec.LastSeen.Unix())
	return err
}

// LookupDeviceService returns the stored endpoint for a device id, if any.
func (s *Store) LookupDeviceService(ctx context.Context, deviceID string) (DeviceServiceRecord, bool, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return DeviceServiceRecord{}, false, err
	}
	defer s.releaseDB()

	var rec DeviceServiceRecord
	var lastSeenUnix int64
	err = db.QueryRowContext(ctx,
		`SELECT device_id, service_name, host, port, last_seen_unix FROM device_services WHERE device_id = ?`,
		deviceID,
	).Scan(&rec.DeviceID, &rec.ServiceName, &rec.Host, &rec.Port, &lastSeenUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return DeviceServiceRecord{}, false, nil
	}
	if err != nil {
		return DeviceServiceRecord{}, false, err
	}
	rec.LastSeen = time.Unix(lastSeenUnix, 0)
	return rec, true, nil
}
