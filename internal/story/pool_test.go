package story

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPool(t *testing.T) {
	pool, err := Default()
	require.NoError(t, err)
	require.GreaterOrEqual(t, pool.Len(), 2)

	// The shipped pool must not reference variables it does not declare.
	require.NoError(t, pool.Validate())

	first, ok := pool.Story(0)
	require.True(t, ok)
	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, first.Templates.QuizQuestions)

	_, ok = pool.Story(pool.Len())
	require.False(t, ok)
	_, ok = pool.Story(-1)
	require.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	asset := `stories:
  - id: wharf
    title: The Wharf Affair
    tags: [theft]
    variables:
      cargo:
        - silver ingots
        - sealed letters
    templates:
      descriptionBeats:
        - id: beat-1
          text: "The missing cargo was {{cargo}}."
      quizQuestions:
        - id: q1
          question: "What went missing?"
          options: [silver ingots, sealed letters]
          answer: "{{cargo}}"
          tags: [quiz:final]
      solution:
        summary: "It was {{cargo}} all along."
`
	require.NoError(t, os.WriteFile(path, []byte(asset), 0o600))

	pool, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, pool.Len())
	require.NoError(t, pool.Validate())

	s, ok := pool.Story(0)
	require.True(t, ok)
	require.Equal(t, "wharf", s.ID)
	require.Len(t, s.Templates.QuizQuestions, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestValidateReportsUnresolvedPaths(t *testing.T) {
	pool := &Pool{Stories: []Story{{
		ID: "broken",
		Variables: map[string]any{
			"victim": []any{map[string]any{"name": "A"}},
		},
		Templates: Templates{
			DescriptionBeats: []Beat{
				{ID: "ok", Text: "{{victim.name}} is dead."},
				{ID: "bad", Text: "The weapon was ${weapon.name}."},
				{ID: "bad-field", Text: "{{victim.shoeSize}}"},
			},
		},
	}}}

	err := pool.Validate()
	require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	require.Contains(t, err.Error(), "weapon.name")
	require.Contains(t, err.Error(), "victim.shoeSize")
	require.NotContains(t, err.Error(), `"victim.name"`)
}

func TestListings(t *testing.T) {
	pool, err := Default()
	require.NoError(t, err)
	listings := pool.Listings()
	require.Len(t, listings, pool.Len())
	for _, l := range listings {
		require.NotEmpty(t, l.ID)
		require.NotEmpty(t, l.Title)
		require.NotNil(t, l.Tags)
		require.NotNil(t, l.Metadata)
	}
}
