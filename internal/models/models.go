package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CurrentSchemaVersion is the record version written by this build.
const CurrentSchemaVersion = 3

const (
	MaxDescriptionLength = 500
	MaxNotesLength       = 2000
)

var (
	ErrEmptyDescription   = errors.New("description must not be empty")
	ErrDescriptionTooLong = errors.New("description must be at most 500 characters")
	ErrNotesTooLong       = errors.New("notes must be at most 2000 characters")
	ErrInvalidPriority    = errors.New("priority must be one of low, medium, high")
	ErrInvalidImage       = errors.New("invalid image")
)

// Priority ranks a task or subtask.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities enumerates the accepted priority values.
var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

// SubtaskImage is an image attached to a subtask, stored inline.
type SubtaskImage struct {
	ID             string `json:"id"`
	Data           string `json:"data"`
	Name           string `json:"name"`
	Size           int64  `json:"size"`
	CompressedSize int64  `json:"compressedSize"`
	UploadedAt     int64  `json:"uploadedAt"`
}

// Validate checks that the payload is base64, optionally wrapped in a data
// URL, and that the name and sizes are present.
func (img SubtaskImage) Validate() error {
	if strings.TrimSpace(img.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidImage)
	}
	if img.Size < 0 || img.CompressedSize < 0 {
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidImage)
	}
	payload := img.Data
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ";base64,")
		if i < 0 {
			return fmt.Errorf("%w: data URL is not base64", ErrInvalidImage)
		}
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return fmt.Errorf("%w: data is empty", ErrInvalidImage)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// Subtask is a child work item owned by exactly one Task.
type Subtask struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	Completed     bool           `json:"completed"`
	CreatedAt     int64          `json:"createdAt"`
	Priority      Priority       `json:"priority,omitempty"`
	DueDate       *int64         `json:"dueDate,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Images        []SubtaskImage `json:"images"`
	SchemaVersion int            `json:"_version,omitempty"`
}

// Task is a top-level to-do entry. Timestamps are epoch milliseconds.
type Task struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	Completed        bool      `json:"completed"`
	CreatedAt        int64     `json:"createdAt"`
	CompletedAt      *int64    `json:"completedAt,omitempty"`
	DueDate          *int64    `json:"dueDate,omitempty"`
	EstimatedMinutes *int      `json:"estimatedMinutes,omitempty"`
	ActualMinutes    *int      `json:"actualMinutes,omitempty"`
	Priority         Priority  `json:"priority,omitempty"`
	Tags             []string  `json:"tags"`
	Subtasks         []Subtask `json:"subtasks"`
	SchemaVersion    int       `json:"_version"`
}

// AllSubtasksCompleted reports whether the task has subtasks and all of them are done.
func (t Task) AllSubtasksCompleted() bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	for _, st := range t.Subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

// Clone returns a copy of the task that shares no slices with the receiver.
func (t Task) Clone() Task {
	out := t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		out.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, st := range t.Subtasks {
			out.Subtasks[i] = st.Clone()
		}
	}
	return out
}

// Clone returns a copy of the subtask with its own image slice.
func (s Subtask) Clone() Subtask {
	out := s
	if s.Images != nil {
		out.Images = append([]SubtaskImage(nil), s.Images...)
	}
	return out
}

// NewTask builds a current-version task after validating its description.
func NewTask(id, description string, createdAt int64) (Task, error) {
	desc, err := NormalizeDescription(description)
	if err != nil {
		return Task{}, err
	}
	zero := 0
	return Task{
		ID:            id,
		Description:   desc,
		CreatedAt:     createdAt,
		ActualMinutes: &zero,
		Priority:      PriorityMedium,
		Tags:          []string{},
		Subtasks:      []Subtask{},
		SchemaVersion: CurrentSchemaVersion,
	}, nil
}

// NewSubtask builds a subtask after validating its description.
func NewSubtask(id, description string, createdAt int64) (Subtask, error) {
	desc, err := NormalizeDescription(description)
	if err != nil {
		return Subtask{}, err
	}
	return Subtask{
		ID:            id,
		Description:   desc,
		CreatedAt:     createdAt,
		Images:        []SubtaskImage{},
		SchemaVersion: CurrentSchemaVersion,
	}, nil
}

// NormalizeDescription trims the input and enforces the 1-500 character rule.
func NormalizeDescription(description string) (string, error) {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return "", ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return desc, nil
}

// ValidateNotes enforces the notes length limit.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// ParsePriority accepts a priority name, case-insensitively.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := ValidPriorities[p]; !ok {
		return "", ErrInvalidPriority
	}
	return p, nil
}
