package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// New builds a fresh task for ownerID with defaults applied.
func New(ownerID, title, description string, now time.Time) (Task, error) {
	if strings.TrimSpace(title) == "" {
		return Task{}, ErrValidation
	}

	return Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
