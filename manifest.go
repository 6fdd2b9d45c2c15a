package agentos

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Manifest file names probed in each module directory, in order of
// preference. YAML is the primary format; TOML is accepted for modules that
// already carry TOML tooling.
var manifestNames = []string{"module.yaml", "module.yml", "module.toml"}

// manifest is the on-disk shape of a module descriptor. Field defaults are
// applied after decoding; only Name is required.
type manifest struct {
	Name         string         `yaml:"name" toml:"name"`
	Version      string         `yaml:"version" toml:"version"`
	Type         string         `yaml:"type" toml:"type"`
	Dependencies []string       `yaml:"dependencies" toml:"dependencies"`
	Enabled      *bool          `yaml:"enabled" toml:"enabled"`
	Config       map[string]any `yaml:"config" toml:"config"`
	Metadata     map[string]any `yaml:"metadata" toml:"metadata"`
	Exports      []ExportSpec   `yaml:"exports" toml:"exports"`
	Commands     []CommandSpec  `yaml:"commands" toml:"commands"`
}

// ManifestReader discovers module descriptors by walking the immediate
// subdirectories of configured module roots.
type ManifestReader struct {
	logger Logger
}

// NewManifestReader creates a manifest reader that logs skipped directories
// through the provided logger.
func NewManifestReader(logger Logger) *ManifestReader {
	return &ManifestReader{logger: logger}
}

// ReadRoots scans every root in order and concatenates the results. Roots
// that do not exist are skipped with a warning: a missing module tree is an
// operator concern, not a discovery failure.
func (r *ManifestReader) ReadRoots(roots ...string) ([]Descriptor, error) {
	var descriptors []Descriptor
	for _, root := range roots {
		descs, err := r.ReadRoot(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("Module root does not exist, skipping", "root", root)
				continue
			}
			return nil, err
		}
		descriptors = append(descriptors, descs...)
	}
	return descriptors, nil
}

// ReadRoot walks the immediate subdirectories of root and parses a manifest
// from each. Directories without a manifest are silently skipped. A manifest
// that fails to parse or is missing its name is logged and skipped — one bad
// module must not abort discovery of the rest.
//
// Results follow directory order (os.ReadDir sorts by name), so repeated
// scans of the same tree are deterministic.
func (r *ManifestReader) ReadRoot(root string) ([]Descriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read module root %s: %w", root, err)
	}

	var descriptors []Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		desc, found, err := r.ReadDir(dir)
		if err != nil {
			r.logger.Error("Skipping module with invalid manifest", "dir", dir, "error", err)
			continue
		}
		if !found {
			r.logger.Debug("No manifest in directory, skipping", "dir", dir)
			continue
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

// ReadDir reads the manifest in a single module directory. The second return
// value is false when the directory has no manifest file at all.
func (r *ManifestReader) ReadDir(dir string) (Descriptor, bool, error) {
	for _, name := range manifestNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Descriptor{}, false, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}
		desc, err := parseManifest(data, name, dir)
		if err != nil {
			return Descriptor{}, true, err
		}
		return desc, true, nil
	}
	return Descriptor{}, false, nil
}

func parseManifest(data []byte, filename, dir string) (Descriptor, error) {
	var m manifest
	var err error
	if filepath.Ext(filename) == ".toml" {
		err = toml.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s: %v", ErrManifestInvalid, filepath.Join(dir, filename), err)
	}

	if m.Name == "" {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrManifestNameMissing, filepath.Join(dir, filename))
	}

	desc := Descriptor{
		Name:         m.Name,
		Version:      m.Version,
		Type:         ModuleType(m.Type),
		Path:         dir,
		Dependencies: dedupe(m.Dependencies),
		Enabled:      true,
		Config:       m.Config,
		Metadata:     m.Metadata,
		Exports:      m.Exports,
		Commands:     m.Commands,
	}
	if desc.Version == "" {
		desc.Version = "1.0.0"
	}
	if m.Type == "" {
		desc.Type = ModuleTypeService
	} else if !desc.Type.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %s: unknown module type %q",
			ErrManifestInvalid, filepath.Join(dir, filename), m.Type)
	}
	if m.Enabled != nil {
		desc.Enabled = *m.Enabled
	}
	return desc, nil
}

// dedupe removes repeated dependency names while preserving declaration
// order. Duplicate edges are idempotent per the descriptor contract.
func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
