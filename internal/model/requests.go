package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarkInput is a mark as typed by a user: empty, a percentage ("75") or a
// fraction ("14/20"). JSON null, numbers and strings are all accepted.
type MarkInput string

func (m *MarkInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MarkInput(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("mark must be a number, a fraction or null")
		}
		*m = MarkInput(n.String())
	}
	return nil
}

// AssessmentRequest is the payload for adding or replacing an assessment.
type AssessmentRequest struct {
	Name   string    `json:"name" binding:"required,max=200"`
	Kind   string    `json:"kind" binding:"max=100"`
	Weight *float64  `json:"weight" binding:"required,gte=0,lte=1000"`
	Mark   MarkInput `json:"mark"`
}

// CreateSubjectRequest is the payload for adding a subject. A blank title
// picks the next free "New Subject" title.
type CreateSubjectRequest struct {
	Title string `json:"title" binding:"max=200"`
}

// RenameSubjectRequest is the payload for renaming a subject.
type RenameSubjectRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// OpenSemesterRequest selects a stored semester document.
type OpenSemesterRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// RenameSemesterRequest renames the active semester document.
type RenameSemesterRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	Overwrite bool   `json:"overwrite"`
}

// PassMarkRequest sets the pass threshold.
type PassMarkRequest struct {
	PassMark *float64 `json:"pass_mark" binding:"required,gte=0,lte=100"`
}
