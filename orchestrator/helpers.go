package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/maastricht-university/emusync/cache"
	"github.com/maastricht-university/emusync/storage"
)

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// ErrNoListing is returned when a default input has to be discovered on a
// store that cannot list files.
var ErrNoListing = errors.New("store cannot list files; pass input paths explicitly")

// Latest resolves the newest stored file matching pattern.
func Latest(ctx context.Context, store storage.FileStore, pattern string) (string, error) {
	g, ok := store.(storage.Globber)
	if !ok {
		return "", ErrNoListing
	}
	return g.Latest(ctx, pattern)
}

// responseKey identifies a classifier response by the media content and the
// request that produced it, so a moved file still hits and a changed
// service or parameter misses.
func responseKey(kind, mediaPath, url string, params ...int) (string, error) {
	digest, err := cache.FileDigest(mediaPath)
	if err != nil {
		return "", fmt.Errorf("%s input: %w", kind, err)
	}
	parts := []string{kind, digest, url}
	for _, p := range params {
		parts = append(parts, strconv.Itoa(p))
	}
	return cache.Key(parts...), nil
}
