package domain

import (
	"time"

	"github.com/google/uuid"
)

// File is owned by the external upload service; only the reference data
// needed to validate and render attachments is consumed here.
type File struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Extension string    `json:"extension"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type FilePublic struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Size int64     `json:"size"`
	URL  string    `json:"url"`
}

func (f File) Public() FilePublic {
	return FilePublic{ID: f.ID, Name: f.Name, Size: f.Size, URL: f.URL}
}
