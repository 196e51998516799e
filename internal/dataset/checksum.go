package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Checksum returns the hex sha256 of a file's contents.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksums computes the checksums of several files concurrently, at most
// limit at a time (limit <= 0 means unbounded).
func Checksums(ctx context.Context, paths []string, limit int) (map[string]string, error) {
	var mu sync.Mutex
	sums := make(map[string]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := Checksum(p)
			if err != nil {
				return err
			}
			mu.Lock()
			sums[p] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

// LocalizeAll localizes several filesets concurrently and returns their
// local paths in order.
func LocalizeAll(ctx context.Context, repo Repository, filesets []*Fileset, limit int) ([]string, error) {
	paths := make([]string, len(filesets))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, fs := range filesets {
		g.Go(func() error {
			p, err := repo.Localize(gctx, fs)
			if err != nil {
				return fmt.Errorf("failed to localize %s at %s: %w", fs.Name, fs.Key, err)
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
