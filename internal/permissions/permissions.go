// Package permissions is the single decision point for project authorization.
// Every handler consults these functions instead of re-deriving membership
// rules inline; they are pure and re-evaluated on every request because
// collaborator roles can change between requests.
package permissions

import (
	"github.com/google/uuid"

	"github.com/collabforge/collabforge/internal/models"
)

// HasAccess is the baseline gate: the owner or any collaborator, regardless of
// role. Used for downloads, folder operations and file detail reads.
func HasAccess(p *models.Project, userID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	return p.Collaborator(userID) != nil
}

// CanUpload applies the project's whoCanUpload policy. The owner is always
// allowed.
func CanUpload(p *models.Project, userID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	switch p.WhoCanUpload {
	case models.UploadEveryone:
		return true
	case models.UploadOwnerOnly:
		return false
	default:
		return p.Collaborator(userID) != nil
	}
}

// CanDeleteFile decides whether userID may delete a file uploaded by
// uploaderID. The uploader-based policy rule and the explicit delete_files
// grant are alternatives, not exclusive.
func CanDeleteFile(p *models.Project, userID, uploaderID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	if collab := p.Collaborator(userID); collab != nil && collab.HasPermission(models.PermDeleteFiles) {
		return true
	}
	switch p.WhoCanDelete {
	case models.DeleteOwnerOnly:
		return false
	case models.DeleteUploaderAndOwner:
		return userID == uploaderID
	default:
		return p.Collaborator(userID) != nil
	}
}

// CanEditFile decides whether userID may rename a file or edit its metadata:
// the owner, the uploader, or a collaborator holding edit_files.
func CanEditFile(p *models.Project, userID, uploaderID uuid.UUID) bool {
	if p.OwnerID == userID || userID == uploaderID {
		return true
	}
	collab := p.Collaborator(userID)
	return collab != nil && collab.HasPermission(models.PermEditFiles)
}

// CanRead decides whether userID may list files or category aggregates: the
// owner, or a collaborator holding the read grant.
func CanRead(p *models.Project, userID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	collab := p.Collaborator(userID)
	return collab != nil && collab.HasPermission(models.PermRead)
}

// CanManageCollaborators decides whether userID may change the roster.
func CanManageCollaborators(p *models.Project, userID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	collab := p.Collaborator(userID)
	return collab != nil && collab.HasPermission(models.PermManageCollaborators)
}
