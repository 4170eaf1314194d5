// Package mediastore is a reference content source: a SQLite-backed registry
// of content items and image assets with size-variant generation. It
// implements edgepurge.ContentSource so the engine and its tests can run
// against real state; a production deployment would typically adapt the
// hosting CMS instead.
package mediastore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/edgepurge"
)

// SizeSpec names a registered image size and its maximum width.
type SizeSpec struct {
	Name     string
	MaxWidth int
}

// DefaultSizes are the variants generated for every uploaded image. A size
// wider than the original is skipped, so small uploads register fewer
// variants.
var DefaultSizes = []SizeSpec{
	{Name: "thumbnail", MaxWidth: 150},
	{Name: "medium", MaxWidth: 300},
	{Name: "large", MaxWidth: 1024},
}

// Store wraps a SQLite database plus an uploads directory.
type Store struct {
	db         *sql.DB
	baseURL    string
	uploadsDir string
	sizes      []SizeSpec
}

// NewStore opens (or creates) the media database at dbPath. Uploaded files
// and generated variants land under uploadsDir and are served under baseURL.
func NewStore(dbPath, uploadsDir, baseURL string) (*Store, error) {
	for _, dir := range []string{filepath.Dir(dbPath), uploadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{
		db:         db,
		baseURL:    baseURL,
		uploadsDir: uploadsDir,
		sizes:      DefaultSizes,
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL DEFAULT '',
    blocks TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS item_media (
    item_id INTEGER NOT NULL,
    asset_id INTEGER NOT NULL,
    PRIMARY KEY (item_id, asset_id)
);
CREATE TABLE IF NOT EXISTS assets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    rel_path TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    file_size INTEGER NOT NULL,
    modified_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS variants (
    asset_id INTEGER NOT NULL,
    size_name TEXT NOT NULL,
    rel_path TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    PRIMARY KEY (asset_id, size_name)
);
`)
	return err
}

// SaveItem inserts a content item and returns its identifier.
func (s *Store) SaveItem(item edgepurge.ContentItem) (int64, error) {
	blocks, err := json.Marshal(item.Blocks)
	if err != nil {
		return 0, fmt.Errorf("mediastore: encode blocks: %w", err)
	}
	published := 0
	if item.Published {
		published = 1
	}
	kind := item.Kind
	if kind == "" {
		kind = edgepurge.KindPost
	}
	res, err := s.db.Exec(
		`INSERT INTO items (kind, published, content, blocks) VALUES (?, ?, ?, ?)`,
		string(kind), published, item.Content, string(blocks),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AttachMedia links an asset to an item.
func (s *Store) AttachMedia(itemID, assetID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO item_media (item_id, asset_id) VALUES (?, ?)`,
		itemID, assetID,
	)
	return err
}

// Item returns the content item with the given identifier.
func (s *Store) Item(id int64) (edgepurge.ContentItem, error) {
	var kind, content, blocksRaw string
	var published int
	err := s.db.QueryRow(`SELECT kind, published, content, blocks FROM items WHERE id = ?`, id).
		Scan(&kind, &published, &content, &blocksRaw)
	if err != nil {
		return edgepurge.ContentItem{}, err
	}
	var blocks []edgepurge.ContentBlock
	if err := json.Unmarshal([]byte(blocksRaw), &blocks); err != nil {
		return edgepurge.ContentItem{}, fmt.Errorf("mediastore: decode blocks for item %d: %w", id, err)
	}
	attached, err := s.AttachedMedia(id)
	if err != nil {
		return edgepurge.ContentItem{}, err
	}
	return edgepurge.ContentItem{
		ID:            id,
		Kind:          edgepurge.ItemKind(kind),
		Published:     published == 1,
		Content:       content,
		Blocks:        blocks,
		AttachedMedia: attached,
	}, nil
}

// AttachedMedia lists asset identifiers attached to an item.
func (s *Store) AttachedMedia(itemID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT asset_id FROM item_media WHERE item_id = ? ORDER BY asset_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CanonicalURL returns the full-size URL of an asset, or "" when unknown.
func (s *Store) CanonicalURL(assetID int64) (string, error) {
	var rel string
	err := s.db.QueryRow(`SELECT rel_path FROM assets WHERE id = ?`, assetID).Scan(&rel)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return edgepurge.JoinUploadURL(s.baseURL, rel), nil
}

// VariantURL returns the URL of one registered size variant, or "" when the
// asset has no variant of that size.
func (s *Store) VariantURL(assetID int64, size string) (string, error) {
	var rel string
	err := s.db.QueryRow(
		`SELECT rel_path FROM variants WHERE asset_id = ? AND size_name = ?`,
		assetID, size,
	).Scan(&rel)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return edgepurge.JoinUploadURL(s.baseURL, rel), nil
}

// SizeNames returns the registered size names in registry order.
func (s *Store) SizeNames() []string {
	names := make([]string, len(s.sizes))
	for i, spec := range s.sizes {
		names[i] = spec.Name
	}
	return names
}

// RelativeFilePath returns the asset's path relative to the uploads base,
// or "" when the asset is unknown.
func (s *Store) RelativeFilePath(assetID int64) (string, error) {
	var rel string
	err := s.db.QueryRow(`SELECT rel_path FROM assets WHERE id = ?`, assetID).Scan(&rel)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rel, nil
}

// BaseUploadURL returns the public base URL for uploaded files.
func (s *Store) BaseUploadURL() string {
	return s.baseURL
}

// Meta returns the asset attributes the replacement heuristics compare.
func (s *Store) Meta(assetID int64) (edgepurge.MediaMeta, error) {
	var m edgepurge.MediaMeta
	err := s.db.QueryRow(
		`SELECT filename, width, height, file_size FROM assets WHERE id = ?`,
		assetID,
	).Scan(&m.Filename, &m.Width, &m.Height, &m.FileSize)
	if err != nil {
		return edgepurge.MediaMeta{}, err
	}
	return m, nil
}

// ModifiedAt returns the asset's last-modified marker, used to distinguish a
// true file replacement from a metadata-only update.
func (s *Store) ModifiedAt(assetID int64) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRow(`SELECT modified_at FROM assets WHERE id = ?`, assetID).Scan(&at)
	return at, err
}
