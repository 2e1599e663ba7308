package storage

import (
	"context"
	"fmt"
	"time"
)

// Download is an entry of the download ledger.
type Download struct {
	File         string    `json:"file"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// HasDownloaded reports whether file (a URL or bibspec resource) was ingested before.
func (s *Store) HasDownloaded(ctx context.Context, file string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloaded_files WHERE file = ?", file).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking ledger for %s: %w", file, err)
	}
	return n > 0, nil
}

// RegisterDownloaded records a successful ingestion of file.
func (s *Store) RegisterDownloaded(ctx context.Context, file string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO downloaded_files (file, downloaded_at) VALUES (?, ?)
	`, file, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("registering %s: %w", file, err)
	}
	return nil
}

// ForgetDownloaded drops file from the ledger, so the next add downloads it again.
func (s *Store) ForgetDownloaded(ctx context.Context, file string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM downloaded_files WHERE file = ?", file); err != nil {
		return fmt.Errorf("forgetting %s: %w", file, err)
	}
	return nil
}

// Downloads lists the ledger, most recent first.
func (s *Store) Downloads(ctx context.Context) ([]Download, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file, downloaded_at FROM downloaded_files ORDER BY downloaded_at DESC, file")
	if err != nil {
		return nil, fmt.Errorf("listing downloads: %w", err)
	}
	defer rows.Close()

	var out []Download
	for rows.Next() {
		var d Download
		var ts int64
		if err := rows.Scan(&d.File, &ts); err != nil {
			return nil, err
		}
		d.DownloadedAt = time.Unix(ts, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}
