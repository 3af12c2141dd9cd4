package utils

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// StartUploadCleaner periodically deletes stored uploads older than retention.
// It stops when ctx is cancelled. A non-positive retention disables it.
func StartUploadCleaner(ctx context.Context, dir string, retention, interval time.Duration) {
	if retention <= 0 || dir == "" {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := CleanUploads(dir, time.Now().Add(-retention))
				if err != nil {
					Sugar.Warnw("upload cleaner failed", "dir", dir, "error", err)
					continue
				}
				if n > 0 {
					Sugar.Infow("upload cleaner removed files", "count", n)
				}
			}
		}
	}()
}

// CleanUploads removes regular files under dir last modified before cutoff and returns how many were removed.
func CleanUploads(dir string, cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
