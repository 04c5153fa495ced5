package model

import "time"

// Workspace is the tenant boundary. Every journey, broadcast and tracked
// event belongs to exactly one workspace.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
