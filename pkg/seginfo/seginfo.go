// Package seginfo provides utilities for naming and discovering the two
// families of on-disk names used by a cinder index (spec.md §6):
//
//   - Per-segment codec files: "<segid>.<ext>", where segid is a random
//     16-byte hex string assigned once at segment creation. Segments are
//     never renumbered, so segid carries no ordering information; a
//     segment's generation is determined solely by which TOC references it.
//   - Generation-numbered TOC files: "_<indexname>_<generation>.toc", where
//     generation is a monotonically increasing int64 assigned at publish
//     time. The highest generation present for an index is its current one.
//
// Example filenames:
//
//	3f9a1c7b2e4d6a81.pst
//	3f9a1c7b2e4d6a81.trm
//	_products_17.toc
package seginfo

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cinderfts/cinder/pkg/filesys"
)

// segmentIDBytes is the width, in raw bytes, of a generated segment id.
// Hex-encoded this yields a 32-character string.
const segmentIDBytes = 16

// NewSegmentID generates a fresh random segment id, hex-encoded. Collisions
// are astronomically unlikely at 128 bits of entropy and are not checked
// for; callers that need a hard guarantee should verify the id is not
// already present among the storage's files before use.
func NewSegmentID() (string, error) {
	buf := make([]byte, segmentIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate segment id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SegmentFileName builds the on-disk file name for one of a segment's codec
// files, e.g. SegmentFileName("3f9a...", "pst") -> "3f9a....pst".
func SegmentFileName(segmentID, ext string) string {
	return segmentID + "." + strings.TrimPrefix(ext, ".")
}

// ParseSegmentFileName splits a codec file's base name back into its
// segment id and extension.
func ParseSegmentFileName(fileName string) (segmentID, ext string, err error) {
	base := filepath.Base(fileName)
	idx := strings.Index(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return "", "", fmt.Errorf("seginfo: %q is not a valid segment file name", fileName)
	}
	return base[:idx], base[idx+1:], nil
}

// TOCFileName builds the on-disk file name for a TOC at the given
// generation, e.g. TOCFileName("products", 17) -> "_products_17.toc".
func TOCFileName(indexName string, generation int64) string {
	return fmt.Sprintf("_%s_%d.toc", indexName, generation)
}

// ParseTOCFileName extracts the index name and generation from a TOC file
// name previously produced by TOCFileName.
func ParseTOCFileName(fileName string) (indexName string, generation int64, err error) {
	base := filepath.Base(fileName)
	if !strings.HasPrefix(base, "_") || !strings.HasSuffix(base, ".toc") {
		return "", 0, fmt.Errorf("seginfo: %q is not a valid TOC file name", fileName)
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(base, "_"), ".toc")

	lastUnderscore := strings.LastIndex(trimmed, "_")
	if lastUnderscore <= 0 {
		return "", 0, fmt.Errorf("seginfo: %q is not a valid TOC file name", fileName)
	}

	indexName = trimmed[:lastUnderscore]
	generationStr := trimmed[lastUnderscore+1:]
	generation, err = strconv.ParseInt(generationStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("seginfo: failed to parse generation from %q: %w", fileName, err)
	}
	return indexName, generation, nil
}

// FindLatestTOC searches dataDir for TOC files belonging to indexName and
// returns the path and generation of the highest one found. If no TOC file
// exists for the index, it returns an empty path, generation 0, and a nil
// error — callers distinguish "bootstrap" (empty path) from "corrupted"
// (a non-nil error) rather than having the former reported as a failure.
func FindLatestTOC(dataDir, indexName string) (path string, generation int64, err error) {
	if dataDir == "" || indexName == "" {
		return "", 0, fmt.Errorf("seginfo: dataDir and indexName must be non-empty")
	}

	pattern := filepath.Join(dataDir, fmt.Sprintf("_%s_*.toc", indexName))
	matches, err := filesys.ReadDir(pattern)
	if err != nil {
		return "", 0, fmt.Errorf("seginfo: failed to search %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", 0, nil
	}

	// Sort by parsed generation rather than lexicographically: unlike the
	// fixed-width zero-padded counters this package used to manage,
	// generations have no guaranteed width.
	type candidate struct {
		path string
		gen  int64
	}
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		_, gen, perr := ParseTOCFileName(m)
		if perr != nil {
			continue
		}
		candidates = append(candidates, candidate{path: m, gen: gen})
	}
	if len(candidates) == 0 {
		return "", 0, nil
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		switch {
		case a.gen < b.gen:
			return -1
		case a.gen > b.gen:
			return 1
		default:
			return 0
		}
	})

	best := candidates[len(candidates)-1]
	return best.path, best.gen, nil
}

// GetFileInfo safely retrieves file system metadata for a given path.
func GetFileInfo(filePath string) (os.FileInfo, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filePath, closeErr)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info for %s: %w", filePath, err)
	}
	return stat, nil
}
