package models

import "time"

type VersionInfo struct {
	VersionID   int
	VersionName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	IsActive    bool
	SourceURL   string
	Description string
}
