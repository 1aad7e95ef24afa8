package models

import (
	"time"

	"github.com/google/uuid"
)

type Folder struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"not null;uniqueIndex:idx_folder_name_per_parent"`
	ParentID    *uuid.UUID `json:"parentId" gorm:"type:uuid;index;uniqueIndex:idx_folder_name_per_parent"` // nil = project root
	ProjectID   uuid.UUID  `json:"projectId" gorm:"type:uuid;index;not null;uniqueIndex:idx_folder_name_per_parent"`
	CreatedByID uuid.UUID  `json:"createdBy" gorm:"type:uuid;not null"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
}
