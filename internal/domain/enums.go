package domain

import (
	"fmt"
	"strings"
)

// Level is a node's fixed depth in the breakdown: project, phase, activity.
type Level int

const (
	LevelProject  Level = 1
	LevelPhase    Level = 2
	LevelActivity Level = 3
)

// AllLevels lists the hierarchy levels from the top down.
var AllLevels = []Level{LevelProject, LevelPhase, LevelActivity}

// Valid reports whether l is one of the three hierarchy levels.
func (l Level) Valid() bool {
	return l >= LevelProject && l <= LevelActivity
}

func (l Level) String() string {
	switch l {
	case LevelProject:
		return "project"
	case LevelPhase:
		return "phase"
	case LevelActivity:
		return "activity"
	default:
		return fmt.Sprintf("level-%d", int(l))
	}
}

// ParseLevel accepts a level name (project, phase, activity) or its number.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "project":
		return LevelProject, nil
	case "2", "phase":
		return LevelPhase, nil
	case "3", "activity":
		return LevelActivity, nil
	}
	return 0, fmt.Errorf("invalid level %q (want project|phase|activity or 1-3)", s)
}

// ParseLevels parses every entry of ss; empty entries are skipped.
func ParseLevels(ss []string) ([]Level, error) {
	var out []Level
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		l, err := ParseLevel(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Status is the user-set completion state of a leaf node.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ValidStatuses is the canonical set of accepted status strings.
var ValidStatuses = map[string]bool{
	string(StatusNotStarted): true,
	string(StatusInProgress): true,
	string(StatusCompleted):  true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return ValidStatuses[string(s)]
}

// Weight is the completion weight used by progress rollups.
func (s Status) Weight() float64 {
	switch s {
	case StatusCompleted:
		return 1
	case StatusInProgress:
		return 0.5
	default:
		return 0
	}
}

// ParseStatus accepts the canonical form plus the underscore spelling.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "":
		return "", nil
	case "not-started", "not_started", "todo":
		return StatusNotStarted, nil
	case "in-progress", "in_progress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status %q (want not-started|in-progress|completed)", s)
}
