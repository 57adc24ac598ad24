package story

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mjuvonen/truthseeker/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed pool.json
var defaultPool []byte

var ErrEmptyPool = errors.NewSentinel("story pool contains no stories")

// Pool is the loaded, ordered collection of stories. It is read-only after
// loading and safe for concurrent use.
type Pool struct {
	Stories []Story `json:"stories" yaml:"stories"`
}

// Default returns the pool embedded in the binary.
func Default() (*Pool, error) {
	return parse(defaultPool, ".json")
}

// Load reads a pool from a JSON or YAML file, chosen by file extension.
func Load(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read pool file", slog.String("path", path))
	}
	return parse(data, strings.ToLower(filepath.Ext(path)))
}

func parse(data []byte, extension string) (*Pool, error) {
	var (
		pool Pool
		err  error
	)
	switch extension {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pool)
	default:
		err = json.Unmarshal(data, &pool)
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse pool")
	}
	if len(pool.Stories) == 0 {
		return nil, ErrEmptyPool
	}
	return &pool, nil
}

// Len returns the number of stories in the pool.
func (p *Pool) Len() int {
	return len(p.Stories)
}

// Story returns the story at index, or false when the index is out of range.
func (p *Pool) Story(index int) (Story, bool) {
	if index < 0 || index >= len(p.Stories) {
		return Story{}, false
	}
	return p.Stories[index], true
}

// Listings returns the client-facing summary of every story in pool order.
func (p *Pool) Listings() []Listing {
	listings := make([]Listing, len(p.Stories))
	for i, s := range p.Stories {
		listings[i] = s.Listing()
	}
	return listings
}
