// Package profile loads saved generation settings (seed, output directory and
// per-dataset counts) from YAML or JSON files.
package profile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"gopkg.in/yaml.v3"
)

var ErrProfileNotFound = errors.New("profile not found")

type Profile struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Seed        *int64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	OutputDir   string         `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Counts      map[string]any `json:"counts,omitempty" yaml:"counts,omitempty"`
}

// RunRequest converts the profile into a request. Counts are passed through
// untouched so validation sees exactly what the file said.
func (p *Profile) RunRequest() *domain.RunRequest {
	return &domain.RunRequest{
		Seed:      p.Seed,
		OutputDir: p.OutputDir,
		Counts:    p.Counts,
	}
}

type Repository interface {
	List() ([]*Profile, error)
	Get(id string) (*Profile, error)
	GetByPath(path string) (*Profile, error)
}

type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func (r *FileRepository) List() ([]*Profile, error) {
	if _, err := os.Stat(r.baseDir); os.IsNotExist(err) {
		return []*Profile{}, nil
	}

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read profile dir %s", r.baseDir)
	}

	profiles := make([]*Profile, 0)
	for _, entry := range entries {
		if entry.IsDir() || !isProfileFile(entry.Name()) {
			continue
		}
		p, err := Load(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func (r *FileRepository) Get(id string) (*Profile, error) {
	profiles, err := r.List()
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.ID == id || p.Name == id {
			return p, nil
		}
	}

	return nil, errors.Wrapf(ErrProfileNotFound, "%s", id)
}

// GetByPath loads a profile file that must live under the repository's base
// directory. Relative paths are resolved against it.
func (r *FileRepository) GetByPath(path string) (*Profile, error) {
	base, err := filepath.Abs(r.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve profile dir")
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, domain.InvalidArgumentf("profile path %s escapes %s", path, r.baseDir)
	}
	return Load(target)
}

// Load reads one profile file. JSON is used for .json, YAML otherwise. A
// profile without an id takes its file name.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read profile %s", path)
	}

	var p Profile
	if filepath.Ext(path) == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse profile %s", path)
	}

	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	return &p, nil
}

func isProfileFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
