package domain

import "time"

// Workspace is a tenant whose mention stream is monitored.
type Workspace struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
