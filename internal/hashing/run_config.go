package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
)

type countEntry struct {
	Dataset string `json:"dataset"`
	Count   int64  `json:"count"`
}

type runConfigHashPayload struct {
	Seed      int64        `json:"seed"`
	OutputDir string       `json:"output_dir"`
	Counts    []countEntry `json:"counts"`
}

// HashRunConfig fingerprints everything that determines a run's output
// bytes: seed, resolved counts, and destination.
func HashRunConfig(seed int64, counts map[string]int64, outputDir string) (string, error) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := runConfigHashPayload{
		Seed:      seed,
		OutputDir: filepath.Clean(outputDir),
		Counts:    make([]countEntry, 0, len(keys)),
	}
	for _, k := range keys {
		p.Counts = append(p.Counts, countEntry{Dataset: k, Count: counts[k]})
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
