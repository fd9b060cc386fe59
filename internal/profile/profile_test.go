package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Dr. Tendai Muronzi", p.Name)
	assert.Equal(t, "tendai.muronzi@ru.ac.za", p.Email)
	assert.Equal(t, []string{"PhD in Bioinformatics", "MSc in Bioinformatics", "BSc in Biochemistry"}, p.DegreeLabels())
	assert.NotEmpty(t, p.Interests)
	assert.NotEmpty(t, p.Image.URL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
name: Test Researcher
education:
  - label: MSc
    degree: MSc in Testing
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Researcher", p.Name)
	assert.Equal(t, []string{"MSc"}, p.DegreeLabels())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no name", "education: [{label: A}]"},
		{"no education", "name: X"},
		{"blank label", "name: X\neducation: [{degree: A}]"},
		{"duplicate label", "name: X\neducation: [{label: A}, {label: A}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("name: [unterminated"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalid))
	})
}

func TestDegree(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)

	first, ok := p.Degree("")
	require.True(t, ok)
	assert.Equal(t, "PhD in Bioinformatics", first.Label)

	msc, ok := p.Degree("MSc in Bioinformatics")
	require.True(t, ok)
	assert.Equal(t, "Rhodes University", msc.Institution)
	assert.Equal(t, "Degree", msc.Fields()[0][0])

	_, ok = p.Degree("Diploma")
	assert.False(t, ok)
}
