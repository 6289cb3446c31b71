package covey

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigSource supplies per-pool override records. The absence of a record
// for a name is legal and yields pure defaults.
type ConfigSource interface {
	Overrides(name string) (Overrides, bool)
}

// StaticSource is an in-memory ConfigSource, handy for tests and for callers
// that resolve configuration themselves.
type StaticSource map[string]Overrides

// Overrides implements ConfigSource.
func (s StaticSource) Overrides(name string) (Overrides, bool) {
	o, ok := s[name]
	return o, ok
}

// FileSource reads override records from a YAML document of the form:
//
//	pools:
//	  indexer:
//	    min_workers: 2
//	    max_workers: 8
//	    queue_capacity: 256
//	    idle_timeout: 30s
//	    overflow: caller_runs
type FileSource struct {
	pools map[string]Overrides
}

// LoadFile reads and parses a YAML override file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOverrides(data)
}

// ParseOverrides parses a YAML override document.
func ParseOverrides(data []byte) (*FileSource, error) {
	var doc struct {
		Pools map[string]Overrides `yaml:"pools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &FileSource{pools: doc.Pools}, nil
}

// Overrides implements ConfigSource.
func (s *FileSource) Overrides(name string) (Overrides, bool) {
	o, ok := s.pools[name]
	return o, ok
}
