// Package store places file content into snapshot directories, deduplicating
// identical content across the whole backup history via hard links.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"dhb-go/internal/checksum"
	"dhb-go/internal/model"
)

// Place copies the file at src to dest, preferring a hard link. Linking may be
// refused by the filesystem (cross-device, unsupported, permissions); that is
// expected and falls back to a full byte copy. Returns the content size.
func Place(src, dest string) (int64, error) {
	if err := os.Link(src, dest); err == nil {
		info, err := os.Stat(dest)
		if err != nil {
			return 0, fmt.Errorf("stat linked file %s: %w", dest, err)
		}
		return info.Size(), nil
	}
	n, _, err := copyContents(src, dest)
	return n, err
}

// ResolveAndPlace materializes src at dest, reusing previously stored bytes
// when the index already knows this content:
//
//  1. Checksum src.
//  2. On an index hit, link dest to the stored path (full copy on link
//     failure; copy from src if the stored path itself is unreadable).
//  3. On a miss, copy src to dest, hashing the bytes as they are written,
//     and publish dest in the index so later files in the run dedup too.
//  4. Preserve the source modification time onto dest either way.
//
// The returned record's checksum always describes the bytes backing dest.
func ResolveAndPlace(src, dest, relativePath string, index *Index) (model.FileRecord, error) {
	sum, err := checksum.File(src)
	if err != nil {
		return model.FileRecord{}, err
	}

	info, err := os.Stat(src)
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("stat %s: %w", src, err)
	}

	var size int64
	if existing, ok := index.Lookup(sum); ok {
		size, err = Place(existing, dest)
		if err != nil {
			// The stored copy has gone bad under us; the source still has
			// the bytes, so take them from there instead.
			size, sum, err = copyContents(src, dest)
		}
	} else {
		size, sum, err = copyContents(src, dest)
		if err == nil {
			// First writer wins: a concurrent copy of the same content keeps
			// its own bytes but later files link to whichever landed first.
			index.InsertIfAbsent(sum, dest)
		}
	}
	if err != nil {
		return model.FileRecord{}, err
	}

	if err := os.Chtimes(dest, time.Time{}, info.ModTime()); err != nil {
		return model.FileRecord{}, fmt.Errorf("preserving mtime on %s: %w", dest, err)
	}

	return model.FileRecord{
		RelativePath: relativePath,
		SizeBytes:    size,
		ModifiedAt:   info.ModTime(),
		Checksum:     sum,
	}, nil
}

// copyContents performs a full byte copy from src to dest, hashing the bytes
// as they pass through. The returned checksum therefore describes exactly what
// was written, even if src changed after an earlier read.
func copyContents(src, dest string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, "", fmt.Errorf("creating %s: %w", dest, err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return 0, "", fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return 0, "", fmt.Errorf("closing %s: %w", dest, err)
	}

	return n, hex.EncodeToString(h.Sum(nil)), nil
}
