package tripinfo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS trip_summaries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        vehicle_id TEXT NOT NULL,
        charging_station TEXT,
        detours INTEGER,
        stranded INTEGER,
        tick INTEGER,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trip_summaries (vehicle_id, charging_station, detours, stranded, tick, record) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.VehicleID, rec.ChargingStation, rec.Detours, rec.Stranded, rec.Tick, string(b))
	return err
}

// Query returns records matching q.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM trip_summaries WHERE 1=1`
	if q.VehicleID != "" {
		query += ` AND vehicle_id = ?`
		args = append(args, q.VehicleID)
	}
	if q.ChargingStation != "" {
		query += ` AND charging_station = ?`
		args = append(args, q.ChargingStation)
	}
	if q.MinDetours > 0 {
		query += ` AND detours >= ?`
		args = append(args, q.MinDetours)
	}
	if q.OnlyStranded {
		query += ` AND stranded = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
