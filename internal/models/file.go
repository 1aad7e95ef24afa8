package models

import (
	"time"

	"github.com/google/uuid"
)

type FileRecord struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OriginalName string    `json:"originalName" gorm:"not null"`
	// StoredName is the content-store-local name; it never changes on rename.
	StoredName string `json:"-" gorm:"not null"`
	FileType   string `json:"fileType" gorm:"index;not null"` // extension, e.g. ".pdf"
	MimeType   string `json:"mimeType" gorm:"not null"`
	FileSize   int64  `json:"fileSize" gorm:"not null"` // bytes

	StorageKey    string `json:"-" gorm:"index;not null"`
	StorageBucket string `json:"-" gorm:"not null"`

	ProjectID    uuid.UUID  `json:"projectId" gorm:"type:uuid;index:idx_file_listing;not null"`
	FolderID     *uuid.UUID `json:"folder" gorm:"type:uuid;index:idx_file_listing"` // nil = project root
	UploadedByID uuid.UUID  `json:"uploadedBy" gorm:"type:uuid;index;not null"`

	Description string   `json:"description" gorm:"size:500"`
	Tags        []string `json:"tags" gorm:"serializer:json"`

	DownloadCount    int64      `json:"downloadCount" gorm:"not null;default:0"`
	LastDownloadedAt *time.Time `json:"lastDownloadedAt"`

	IsActive    bool       `json:"isActive" gorm:"index:idx_file_listing;not null;default:true"`
	DeletedAt   *time.Time `json:"deletedAt"`
	DeletedByID *uuid.UUID `json:"deletedBy" gorm:"type:uuid"`

	LastModifiedByID *uuid.UUID `json:"lastModifiedBy" gorm:"type:uuid"`
	CreatedAt        time.Time  `json:"uploadedAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// MarkDeleted is the single transition out of the active state. The inactive
// flag, deletion timestamp and deleter are always set together so a record can
// never be half-deleted.
func (f *FileRecord) MarkDeleted(by uuid.UUID, at time.Time) {
	f.IsActive = false
	f.DeletedAt = &at
	f.DeletedByID = &by
}

// PublicData is the projection of a file record returned to clients. Storage
// keys and bucket names never leave the server.
type PublicData struct {
	ID            uuid.UUID  `json:"id"`
	OriginalName  string     `json:"originalName"`
	FileType      string     `json:"fileType"`
	MimeType      string     `json:"mimeType"`
	FileSize      int64      `json:"fileSize"`
	Description   string     `json:"description"`
	Tags          []string   `json:"tags"`
	Folder        *uuid.UUID `json:"folder"`
	DownloadCount int64      `json:"downloadCount"`
	UploadedAt    time.Time  `json:"uploadedAt"`
	UploadedBy    uuid.UUID  `json:"uploadedBy"`
}

func (f *FileRecord) GetPublicData() PublicData {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return PublicData{
		ID:            f.ID,
		OriginalName:  f.OriginalName,
		FileType:      f.FileType,
		MimeType:      f.MimeType,
		FileSize:      f.FileSize,
		Description:   f.Description,
		Tags:          tags,
		Folder:        f.FolderID,
		DownloadCount: f.DownloadCount,
		UploadedAt:    f.CreatedAt,
		UploadedBy:    f.UploadedByID,
	}
}
