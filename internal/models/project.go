package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collaborator roles.
const (
	RoleOwner     = "owner"
	RoleEditor    = "editor"
	RoleViewer    = "viewer"
	RoleCommenter = "commenter"
)

// Grantable collaborator permissions.
const (
	PermRead                = "read"
	PermWrite               = "write"
	PermDelete              = "delete"
	PermManageCollaborators = "manage_collaborators"
	PermManageSettings      = "manage_settings"

	// File-specific grants checked by the file handlers.
	PermEditFiles   = "edit_files"
	PermDeleteFiles = "delete_files"
)

// Upload policy values for Project.WhoCanUpload.
const (
	UploadOwnerOnly     = "owner_only"
	UploadCollaborators = "collaborators"
	UploadEveryone      = "everyone"
)

// Delete policy values for Project.WhoCanDelete.
const (
	DeleteOwnerOnly        = "owner_only"
	DeleteUploaderAndOwner = "uploader_and_owner"
	DeleteCollaborators    = "collaborators"
)

type Collaborator struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   uuid.UUID `json:"projectId" gorm:"type:uuid;index;not null"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Role        string    `json:"role" gorm:"not null;default:viewer"`
	Permissions []string  `json:"permissions" gorm:"serializer:json"`
	JoinedAt    time.Time `json:"joinedAt" gorm:"autoCreateTime"`
}

// HasPermission reports whether this collaborator carries the given grant.
func (c *Collaborator) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type Project struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;index;not null"`

	Collaborators []Collaborator `json:"collaborators" gorm:"foreignKey:ProjectID"`

	// Storage settings.
	TotalSizeBytes    int64    `json:"totalSizeBytes" gorm:"not null;default:0"`
	MaxSizeBytes      int64    `json:"maxSizeBytes" gorm:"not null"`
	AllowedExtensions []string `json:"allowedExtensions" gorm:"serializer:json"`

	// File-permission policy.
	WhoCanUpload string `json:"whoCanUpload" gorm:"not null;default:collaborators"`
	WhoCanDelete string `json:"whoCanDelete" gorm:"not null;default:uploader_and_owner"`

	InviteCode string    `json:"inviteCode" gorm:"uniqueIndex"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DefaultAllowedExtensions is the upload whitelist applied to new projects.
var DefaultAllowedExtensions = []string{
	".pdf", ".doc", ".docx", ".txt", ".jpg", ".png", ".gif", ".svg",
	".zip", ".py", ".js", ".html", ".css",
}

// Collaborator returns the roster entry for the given user, or nil.
func (p *Project) Collaborator(userID uuid.UUID) *Collaborator {
	for i := range p.Collaborators {
		if p.Collaborators[i].UserID == userID {
			return &p.Collaborators[i]
		}
	}
	return nil
}

// AllowsExtension reports whether the project accepts uploads with the given
// file extension. An empty whitelist allows everything.
func (p *Project) AllowsExtension(ext string) bool {
	if len(p.AllowedExtensions) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	for _, allowed := range p.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
