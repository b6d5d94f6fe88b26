package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanDocumentName(t *testing.T) {
	name, err := CleanDocumentName("  Fall 2026 ")
	assert.NoError(t, err)
	assert.Equal(t, "Fall 2026", name)

	for _, bad := range []string{"", "   ", "a/b", `a\b`, ".."} {
		_, err := CleanDocumentName(bad)
		assert.True(t, errors.Is(err, ErrValidation), "name %q", bad)
	}
}

func TestMostRecent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []DocumentInfo{
		{Name: "old", ModifiedAt: base},
		{Name: "newest", ModifiedAt: base.Add(2 * time.Hour)},
		{Name: "middle", ModifiedAt: base.Add(time.Hour)},
	}

	got, ok := MostRecent(docs)
	assert.True(t, ok)
	assert.Equal(t, "newest", got.Name)

	got, ok = MostRecent(docs, "newest")
	assert.True(t, ok)
	assert.Equal(t, "middle", got.Name)

	_, ok = MostRecent(docs, "old", "newest", "middle")
	assert.False(t, ok)
}

func TestMostRecentTieBreaksByName(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []DocumentInfo{{Name: "b", ModifiedAt: at}, {Name: "a", ModifiedAt: at}, {Name: "c", ModifiedAt: at}}

	got, _ := MostRecent(docs)
	assert.Equal(t, "a", got.Name)
}

func TestNextFreeName(t *testing.T) {
	taken := map[string]bool{UntitledSemester: true, UntitledSemester + " (1)": true}
	assert.Equal(t, "Untitled Semester (2)", NextFreeName(UntitledSemester, func(n string) bool { return taken[n] }))
}
