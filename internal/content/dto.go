package content

import (
	"time"

	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/google/uuid"
)

// ItemDTO is a content entry as seen by a member. URL is withheld while locked.
type ItemDTO struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Type         string     `json:"type"`
	URL          *string    `json:"url,omitempty"`
	Restricted   bool       `json:"restricted"`
	Locked       bool       `json:"locked"`
	Favorite     bool       `json:"favorite"`
	PlanID       *uuid.UUID `json:"planId,omitempty"`
	ViewCount    int64      `json:"viewCount"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Input captures admin create and update payloads.
type Input struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Type        enums.ContentType `json:"type" validate:"required,enum"`
	URL         *string           `json:"url" validate:"omitempty,url"`
	Restricted  *bool             `json:"restricted"`
	PlanID      *uuid.UUID        `json:"planId"`
}

// Item pairs content with the caller's access to it.
type Item struct {
	Content  models.Content
	Locked   bool
	Favorite bool
}

func toDTO(item Item) ItemDTO {
	c := item.Content
	dto := ItemDTO{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Type:         string(c.Type),
		Restricted:   c.Restricted,
		Locked:       item.Locked,
		Favorite:     item.Favorite,
		PlanID:       c.PlanID,
		ViewCount:    c.ViewCount,
		LastViewedAt: c.LastViewedAt,
		CreatedAt:    c.CreatedAt,
	}
	if !item.Locked {
		dto.URL = c.URL
	}
	return dto
}

func ToDTO(item Item) ItemDTO {
	return toDTO(item)
}

func ToDTOs(items []Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toDTO(item))
	}
	return out
}

// AdminDTO exposes every field, including the URL of restricted content.
func AdminDTO(c *models.Content) ItemDTO {
	return toDTO(Item{Content: *c})
}
