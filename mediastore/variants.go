package mediastore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/eringen/edgepurge"
)

const jpegQuality = 80

// AddImage decodes an uploaded image, writes the original, generates every
// registered size variant narrower than the original, and records all of it.
// It returns the new asset's identifier and metadata.
func (s *Store) AddImage(name string, data []byte) (int64, edgepurge.MediaMeta, error) {
	img, meta, err := decodeImage(name, data)
	if err != nil {
		return 0, edgepurge.MediaMeta{}, err
	}

	if err := s.writeFile(meta.Filename, data); err != nil {
		return 0, edgepurge.MediaMeta{}, err
	}

	res, err := s.db.Exec(
		`INSERT INTO assets (filename, rel_path, width, height, file_size, modified_at) VALUES (?, ?, ?, ?, ?, ?)`,
		meta.Filename, meta.Filename, meta.Width, meta.Height, meta.FileSize, time.Now().UTC(),
	)
	if err != nil {
		return 0, edgepurge.MediaMeta{}, err
	}
	assetID, err := res.LastInsertId()
	if err != nil {
		return 0, edgepurge.MediaMeta{}, err
	}

	if err := s.generateVariants(assetID, meta.Filename, img); err != nil {
		return 0, edgepurge.MediaMeta{}, err
	}
	return assetID, meta, nil
}

// ReplaceImage swaps an asset's file for new content: the original and all
// variants are rewritten and the last-modified marker is updated. The asset
// keeps its identifier and stored filename.
func (s *Store) ReplaceImage(assetID int64, data []byte) (edgepurge.MediaMeta, error) {
	var filename string
	if err := s.db.QueryRow(`SELECT filename FROM assets WHERE id = ?`, assetID).Scan(&filename); err != nil {
		return edgepurge.MediaMeta{}, err
	}

	img, meta, err := decodeImage(filename, data)
	if err != nil {
		return edgepurge.MediaMeta{}, err
	}
	meta.Filename = filename

	if err := s.writeFile(filename, data); err != nil {
		return edgepurge.MediaMeta{}, err
	}
	if _, err := s.db.Exec(
		`UPDATE assets SET width = ?, height = ?, file_size = ?, modified_at = ? WHERE id = ?`,
		meta.Width, meta.Height, meta.FileSize, time.Now().UTC(), assetID,
	); err != nil {
		return edgepurge.MediaMeta{}, err
	}
	if _, err := s.db.Exec(`DELETE FROM variants WHERE asset_id = ?`, assetID); err != nil {
		return edgepurge.MediaMeta{}, err
	}
	if err := s.generateVariants(assetID, filename, img); err != nil {
		return edgepurge.MediaMeta{}, err
	}
	return meta, nil
}

// generateVariants scales img to every registered size narrower than the
// original and records one variant row per size.
func (s *Store) generateVariants(assetID int64, filename string, img image.Image) error {
	origW := img.Bounds().Dx()
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	for _, spec := range s.sizes {
		if spec.MaxWidth >= origW {
			continue
		}
		scaled := scaleToWidth(img, spec.MaxWidth)
		w, h := scaled.Bounds().Dx(), scaled.Bounds().Dy()
		rel := fmt.Sprintf("%s-%dx%d.jpg", base, w, h)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("mediastore: encode %s variant: %w", spec.Name, err)
		}
		if err := s.writeFile(rel, buf.Bytes()); err != nil {
			return err
		}
		if _, err := s.db.Exec(
			`INSERT OR REPLACE INTO variants (asset_id, size_name, rel_path, width, height) VALUES (?, ?, ?, ?, ?)`,
			assetID, spec.Name, rel, w, h,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeFile(rel string, data []byte) error {
	path := filepath.Join(s.uploadsDir, rel)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("mediastore: write %s: %w", rel, err)
	}
	return nil
}

func decodeImage(name string, data []byte) (image.Image, edgepurge.MediaMeta, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, edgepurge.MediaMeta{}, fmt.Errorf("mediastore: decode image: %w", err)
	}
	bounds := img.Bounds()
	return img, edgepurge.MediaMeta{
		FileSize: int64(len(data)),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Filename: filepath.Base(name),
	}, nil
}

func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
