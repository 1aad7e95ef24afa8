package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/models"
	"github.com/collabforge/collabforge/internal/permissions"
	"github.com/collabforge/collabforge/internal/utils"
)

// ProjectService covers the minimum project lifecycle the file subsystem
// needs: create, fetch, and roster changes.
type ProjectService struct {
	db              *gorm.DB
	defaultMaxBytes int64
}

func NewProjectService(db *gorm.DB, defaultMaxBytes int64) *ProjectService {
	return &ProjectService{db: db, defaultMaxBytes: defaultMaxBytes}
}

// Create sets up a project owned by the actor with default storage settings
// and file-permission policy, plus a fresh invite code.
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}

	code, err := utils.GenerateInviteCode(6)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		ID:                uuid.New(),
		Name:              name,
		Description:       description,
		OwnerID:           ownerID,
		MaxSizeBytes:      s.defaultMaxBytes,
		AllowedExtensions: models.DefaultAllowedExtensions,
		WhoCanUpload:      models.UploadCollaborators,
		WhoCanDelete:      models.DeleteUploaderAndOwner,
		InviteCode:        code,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Get returns a project with its roster for any participant.
func (s *ProjectService) Get(ctx context.Context, actorID, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Preload("Collaborators").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}
	if !permissions.HasAccess(&project, actorID) {
		return nil, ErrForbidden
	}
	return &project, nil
}

// AddCollaborator appends a user to the roster. The owner never appears in
// the list (owner rights are implicit) and a user can only appear once.
func (s *ProjectService) AddCollaborator(ctx context.Context, actorID, projectID, userID uuid.UUID, role string, perms []string) (*models.Collaborator, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Preload("Collaborators").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}

	if !permissions.CanManageCollaborators(&project, actorID) {
		return nil, ErrForbidden
	}
	if userID == project.OwnerID {
		return nil, fmt.Errorf("%w: owner is already a member", ErrValidation)
	}
	if project.Collaborator(userID) != nil {
		return nil, fmt.Errorf("%w: user is already a collaborator", ErrValidation)
	}

	switch role {
	case models.RoleOwner, models.RoleEditor, models.RoleViewer, models.RoleCommenter:
	case "":
		role = models.RoleViewer
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	collab := models.Collaborator{
		ID:          uuid.New(),
		ProjectID:   projectID,
		UserID:      userID,
		Role:        role,
		Permissions: perms,
	}
	if err := s.db.WithContext(ctx).Create(&collab).Error; err != nil {
		return nil, err
	}
	return &collab, nil
}
