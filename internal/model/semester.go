package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// UntitledSemester is the base name for semester documents the user has not named.
const UntitledSemester = "Untitled Semester"

// DocumentInfo describes one stored semester document.
type DocumentInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}

// CleanDocumentName trims a semester name and rejects names that cannot be
// used as a storage key.
func CleanDocumentName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("semester name is empty: %w", ErrValidation)
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return "", fmt.Errorf("semester name %q: %w", name, ErrValidation)
	}
	return name, nil
}

// SortByRecent orders documents newest first. Documents sharing a
// modification time are ordered by name so the choice is stable.
func SortByRecent(docs []DocumentInfo) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].ModifiedAt.Equal(docs[j].ModifiedAt) {
			return docs[i].ModifiedAt.After(docs[j].ModifiedAt)
		}
		return docs[i].Name < docs[j].Name
	})
}

// MostRecent returns the newest document not named in exclude.
func MostRecent(docs []DocumentInfo, exclude ...string) (DocumentInfo, bool) {
	candidates := make([]DocumentInfo, 0, len(docs))
outer:
	for _, d := range docs {
		for _, ex := range exclude {
			if d.Name == ex {
				continue outer
			}
		}
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		return DocumentInfo{}, false
	}
	SortByRecent(candidates)
	return candidates[0], true
}

// SortByName orders documents case-insensitively by name, the order clients
// list them in.
func SortByName(docs []DocumentInfo) {
	sort.SliceStable(docs, func(i, j int) bool {
		return strings.ToLower(docs[i].Name) < strings.ToLower(docs[j].Name)
	})
}
