// Package profile holds the static content of the site: who the researcher
// is, their education records and research interests. Content is loaded from
// YAML once at start-up and treated as read-only afterwards.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalid is returned when profile content fails validation.
var ErrInvalid = errors.New("invalid profile")

type Profile struct {
	Name        string      `yaml:"name"`
	Field       string      `yaml:"field"`
	Institution string      `yaml:"institution"`
	Summary     string      `yaml:"summary"`
	Image       Image       `yaml:"image"`
	Email       string      `yaml:"email"`
	Education   []Education `yaml:"education"`
	Interests   []string    `yaml:"research_interests"`
}

type Image struct {
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
}

// Education is one degree record. Label is what the degree selector shows.
type Education struct {
	Label       string `yaml:"label"`
	Degree      string `yaml:"degree"`
	Institution string `yaml:"institution"`
	Years       string `yaml:"years"`
	Thesis      string `yaml:"thesis"`
	Focus       string `yaml:"focus"`
}

// Fields returns the record as ordered label/value pairs for tabular display.
func (e Education) Fields() [][2]string {
	return [][2]string{
		{"Degree", e.Degree},
		{"Institution", e.Institution},
		{"Years", e.Years},
		{"Thesis", e.Thesis},
		{"Focus", e.Focus},
	}
}

// Load reads profile content from path, or the built-in profile when path is
// empty.
func Load(path string) (*Profile, error) {
	data := defaultYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading profile %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates YAML profile content.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(p.Education) == 0 {
		return fmt.Errorf("%w: at least one education record is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(p.Education))
	for i, e := range p.Education {
		if e.Label == "" {
			return fmt.Errorf("%w: education record %d has no label", ErrInvalid, i)
		}
		if seen[e.Label] {
			return fmt.Errorf("%w: duplicate education label %q", ErrInvalid, e.Label)
		}
		seen[e.Label] = true
	}
	return nil
}

// DegreeLabels lists the education labels in configured order.
func (p *Profile) DegreeLabels() []string {
	labels := make([]string, len(p.Education))
	for i, e := range p.Education {
		labels[i] = e.Label
	}
	return labels
}

// Degree looks up an education record by label. An empty label selects the
// first record.
func (p *Profile) Degree(label string) (Education, bool) {
	if label == "" {
		return p.Education[0], true
	}
	for _, e := range p.Education {
		if e.Label == label {
			return e, true
		}
	}
	return Education{}, false
}
