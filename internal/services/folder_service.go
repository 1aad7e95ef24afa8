package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/models"
	"github.com/collabforge/collabforge/internal/permissions"
)

// maxFolderDepth caps path building. Creation can't produce cycles, but the
// builder refuses to follow a corrupted parent chain forever.
const maxFolderDepth = 64

// FolderService owns the per-project folder hierarchy.
type FolderService struct {
	db *gorm.DB
}

func NewFolderService(db *gorm.DB) *FolderService {
	return &FolderService{db: db}
}

// CreatedFolder is a folder annotated with its resolved parent name.
type CreatedFolder struct {
	models.Folder
	ParentName string `json:"parentName,omitempty"`
}

// FolderNode is a folder with its nested children, for the hierarchy view.
type FolderNode struct {
	models.Folder
	Children []*FolderNode `json:"children"`
}

// FlatFolder is the flattened view used by folder pickers. ID is a string so
// the synthetic "root" entry fits alongside real folder ids.
type FlatFolder struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	FullPath string     `json:"fullPath"`
	ParentID *uuid.UUID `json:"parentId"`
	Depth    int        `json:"depth"`
}

// FolderTree is the dual representation returned by Tree.
type FolderTree struct {
	Hierarchy []*FolderNode `json:"hierarchy"`
	Flat      []FlatFolder  `json:"flat"`
	Count     int           `json:"count"`
}

// SubfolderEntry is an immediate child annotated with its creator's username.
type SubfolderEntry struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parentId"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt string     `json:"createdAt"`
}

func scopeParent(q *gorm.DB, parentID *uuid.UUID) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

// Create adds a folder under the given parent (nil = project root). Any
// project participant may create folders; the name must be unique among its
// siblings. The duplicate check races with concurrent creates, the composite
// uniqueness index is the backstop.
func (s *FolderService) Create(ctx context.Context, actorID, projectID uuid.UUID, name string, parentID *uuid.UUID) (*CreatedFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrValidation)
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !permissions.HasAccess(project, actorID) {
		return nil, ErrForbidden
	}

	parentName := ""
	if parentID != nil {
		var parent models.Folder
		err := s.db.WithContext(ctx).
			Where("id = ? AND project_id = ?", *parentID, projectID).
			First(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: parent folder", ErrNotFound)
			}
			return nil, err
		}
		parentName = parent.Name
	}

	var count int64
	q := s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("project_id = ? AND name = ?", projectID, name)
	if err := scopeParent(q, parentID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateName
	}

	folder := models.Folder{
		ID:          uuid.New(),
		Name:        name,
		ParentID:    parentID,
		ProjectID:   projectID,
		CreatedByID: actorID,
	}
	if err := s.db.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, err
	}

	return &CreatedFolder{Folder: folder, ParentName: parentName}, nil
}

// Tree returns every folder of a project as a nested hierarchy plus the
// flattened path list, synthetic root first, the rest ordered by full path.
func (s *FolderService) Tree(ctx context.Context, projectID uuid.UUID) (*FolderTree, error) {
	var folders []models.Folder
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}

	nodes := make(map[uuid.UUID]*FolderNode, len(folders))
	for i := range folders {
		nodes[folders[i].ID] = &FolderNode{Folder: folders[i], Children: []*FolderNode{}}
	}

	var roots []*FolderNode
	for i := range folders {
		node := nodes[folders[i].ID]
		if folders[i].ParentID != nil {
			if parent, ok := nodes[*folders[i].ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	paths := buildPaths(folders)
	flat := make([]FlatFolder, 0, len(folders)+1)
	flat = append(flat, FlatFolder{ID: "root", Name: "Root", FullPath: "root", Depth: 0})
	for i := range folders {
		p := paths[folders[i].ID]
		flat = append(flat, FlatFolder{
			ID:       folders[i].ID.String(),
			Name:     folders[i].Name,
			FullPath: p.fullPath,
			ParentID: folders[i].ParentID,
			Depth:    p.depth,
		})
	}
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].ID == "root" {
			return true
		}
		if flat[j].ID == "root" {
			return false
		}
		return flat[i].FullPath < flat[j].FullPath
	})

	return &FolderTree{Hierarchy: roots, Flat: flat, Count: len(folders)}, nil
}

type folderPath struct {
	fullPath string
	depth    int
}

// buildPaths joins ancestor names iteratively over the parent-id adjacency
// map. A missing parent or an over-deep chain degrades to the folder's own
// name instead of failing the whole listing.
func buildPaths(folders []models.Folder) map[uuid.UUID]folderPath {
	byID := make(map[uuid.UUID]*models.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	paths := make(map[uuid.UUID]folderPath, len(folders))
	for i := range folders {
		names := []string{folders[i].Name}
		depth := 0
		parent := folders[i].ParentID
		for parent != nil && depth < maxFolderDepth {
			p, ok := byID[*parent]
			if !ok {
				break
			}
			names = append([]string{p.Name}, names...)
			depth++
			parent = p.ParentID
		}
		paths[folders[i].ID] = folderPath{
			fullPath: strings.Join(names, "/"),
			depth:    depth,
		}
	}
	return paths
}

// Contents lists the immediate child folders of folderID ("root" for the
// project root), each annotated with its creator's username. Requires the
// read grant.
func (s *FolderService) Contents(ctx context.Context, actorID, projectID uuid.UUID, folderID string) ([]SubfolderEntry, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanRead(project, actorID) {
		return nil, ErrForbidden
	}

	q := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	if folderID == "root" || folderID == "" {
		q = q.Where("parent_id IS NULL")
	} else {
		parentID, err := uuid.Parse(folderID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid folder id", ErrValidation)
		}
		q = q.Where("parent_id = ?", parentID)
	}

	var folders []models.Folder
	if err := q.Order("created_at ASC").Find(&folders).Error; err != nil {
		return nil, err
	}

	usernames, err := usernamesByID(ctx, s.db, creatorIDs(folders))
	if err != nil {
		return nil, err
	}

	entries := make([]SubfolderEntry, 0, len(folders))
	for i := range folders {
		entries = append(entries, SubfolderEntry{
			ID:        folders[i].ID,
			Name:      folders[i].Name,
			ParentID:  folders[i].ParentID,
			CreatedBy: usernames[folders[i].CreatedByID],
			CreatedAt: folders[i].CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return entries, nil
}

// Rename changes a folder's name, rejecting a name another sibling already
// carries. Paths derived from the folder recompute implicitly since they are
// built per request.
func (s *FolderService) Rename(ctx context.Context, actorID, folderID uuid.UUID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: folder name is required", ErrValidation)
	}

	folder, project, err := s.loadFolderWithProject(ctx, folderID)
	if err != nil {
		return err
	}
	if !permissions.HasAccess(project, actorID) {
		return ErrForbidden
	}

	var count int64
	q := s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("project_id = ? AND name = ? AND id <> ?", folder.ProjectID, newName, folderID)
	if err := scopeParent(q, folder.ParentID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}

	return s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ?", folderID).
		Update("name", newName).Error
}

// Delete removes a folder only when it owns no subfolders and no active
// files. Deletion is non-recursive by design.
func (s *FolderService) Delete(ctx context.Context, actorID, folderID uuid.UUID) error {
	folder, project, err := s.loadFolderWithProject(ctx, folderID)
	if err != nil {
		return err
	}
	if !permissions.HasAccess(project, actorID) {
		return ErrForbidden
	}

	var subfolders int64
	err = s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("parent_id = ?", folderID).
		Count(&subfolders).Error
	if err != nil {
		return err
	}

	var files int64
	err = s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("folder_id = ? AND is_active = ?", folderID, true).
		Count(&files).Error
	if err != nil {
		return err
	}

	if subfolders > 0 || files > 0 {
		return ErrFolderNotEmpty
	}

	return s.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", folder.ID).Error
}

func (s *FolderService) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Preload("Collaborators").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}
	return &project, nil
}

func (s *FolderService) loadFolderWithProject(ctx context.Context, folderID uuid.UUID) (*models.Folder, *models.Project, error) {
	var folder models.Folder
	err := s.db.WithContext(ctx).First(&folder, "id = ?", folderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: folder", ErrNotFound)
		}
		return nil, nil, err
	}

	project, err := s.loadProject(ctx, folder.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return &folder, project, nil
}

func creatorIDs(folders []models.Folder) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(folders))
	seen := make(map[uuid.UUID]bool, len(folders))
	for i := range folders {
		if !seen[folders[i].CreatedByID] {
			seen[folders[i].CreatedByID] = true
			ids = append(ids, folders[i].CreatedByID)
		}
	}
	return ids
}

// usernamesByID resolves user ids to usernames for listing annotations.
// Unknown ids map to "Unknown" rather than failing the listing.
func usernamesByID(ctx context.Context, db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []models.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		names[users[i].ID] = users[i].Username
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			names[id] = "Unknown"
		}
	}
	return names, nil
}
