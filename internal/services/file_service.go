package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/models"
	"github.com/collabforge/collabforge/internal/permissions"
	"github.com/collabforge/collabforge/internal/repositories"
	"github.com/collabforge/collabforge/internal/utils"
)

// downloadURLTTL is how long presigned download links stay valid.
const downloadURLTTL = time.Hour

// FileService mediates file uploads, listings and deletes between the
// metadata store and the content store.
type FileService struct {
	db    *gorm.DB
	store ObjectStore
}

func NewFileService(db *gorm.DB, store ObjectStore) *FileService {
	return &FileService{db: db, store: store}
}

// UploadInput carries everything the upload sequence needs. FolderID is a
// folder id or "root" (empty counts as root).
type UploadInput struct {
	ProjectID    uuid.UUID
	FolderID     string
	Data         []byte
	OriginalName string
	MimeType     string
	Description  string
	Tags         []string
}

// ListOptions filters and paginates a project file listing.
type ListOptions struct {
	Category string // file type filter, "" or "all" for everything
	FolderID string // "" = any folder, "root" = project root only
	Page     int
	Limit    int
}

// ListEntry is a public file projection annotated for listing consumers.
type ListEntry struct {
	models.PublicData
	Category       string `json:"category"`
	UploadedByName string `json:"uploadedByName"`
}

// Pagination describes a listing page.
type Pagination struct {
	TotalFiles  int64 `json:"totalFiles"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// ListResult is a page of files plus pagination metadata.
type ListResult struct {
	Files      []ListEntry `json:"files"`
	Pagination Pagination  `json:"pagination"`
}

// Category aggregates active files of one type.
type Category struct {
	Name      string `json:"name"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"totalSize"`
}

// DownloadInfo carries a presigned URL plus the identifying file fields a
// download dialog shows.
type DownloadInfo struct {
	URL          string    `json:"downloadUrl"`
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	ReadableSize string    `json:"readableSize"`
	ExpiresIn    string    `json:"expiresIn"`
}

// Detail is the single-file view with resolved display names.
type Detail struct {
	models.PublicData
	ReadableSize       string     `json:"readableSize"`
	ProjectName        string     `json:"projectName"`
	UploadedByName     string     `json:"uploadedByName"`
	LastModifiedByName string     `json:"lastModifiedByName,omitempty"`
	LastDownloadedAt   *time.Time `json:"lastDownloadedAt"`
}

// BulkResult reports the outcome for one id of a bulk delete.
type BulkResult struct {
	FileID  string `json:"fileId"`
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}

// Upload runs the full upload sequence: permission gate, quota check, folder
// resolution, content-store write, then the metadata record. The quota check
// happens before the store write so a rejected upload never leaves an object
// behind; a store failure aborts before any record exists.
func (s *FileService) Upload(ctx context.Context, actorID uuid.UUID, in UploadInput) (*models.PublicData, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", ErrValidation)
	}
	if strings.TrimSpace(in.OriginalName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}

	project, err := s.loadProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	if !permissions.CanUpload(project, actorID) {
		return nil, ErrForbidden
	}

	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	if !project.AllowsExtension(ext) {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}

	size := int64(len(in.Data))
	if !HasSpace(project, size) {
		return nil, ErrQuotaExceeded
	}

	var folderID *uuid.UUID
	if in.FolderID != "" && in.FolderID != "root" {
		id, err := uuid.Parse(in.FolderID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid folder id", ErrValidation)
		}
		var folder models.Folder
		err = s.db.WithContext(ctx).
			Where("id = ? AND project_id = ?", id, in.ProjectID).
			First(&folder).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: folder", ErrNotFound)
			}
			return nil, err
		}
		folderID = &folder.ID
	}

	key := repositories.GenerateObjectKey(actorID, in.ProjectID, in.OriginalName)
	err = s.store.Put(ctx, key, in.Data, in.MimeType, map[string]string{
		"originalName": in.OriginalName,
		"uploadedBy":   actorID.String(),
		"projectId":    in.ProjectID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record := models.FileRecord{
		ID:            uuid.New(),
		OriginalName:  in.OriginalName,
		StoredName:    filepath.Base(key),
		FileType:      ext,
		MimeType:      in.MimeType,
		FileSize:      size,
		StorageKey:    key,
		StorageBucket: s.store.Bucket(),
		ProjectID:     in.ProjectID,
		FolderID:      folderID,
		UploadedByID:  actorID,
		Description:   in.Description,
		Tags:          in.Tags,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	if _, err := RecomputeStorageSize(ctx, s.db, in.ProjectID); err != nil {
		return nil, err
	}

	data := record.GetPublicData()
	return &data, nil
}

// List returns active files of a project, optionally filtered by type and
// folder, paginated. Requires the read grant.
func (s *FileService) List(ctx context.Context, actorID, projectID uuid.UUID, opts ListOptions) (*ListResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanRead(project, actorID) {
		return nil, ErrForbidden
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}

	q := s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("project_id = ? AND is_active = ?", projectID, true)
	if opts.Category != "" && opts.Category != "all" {
		q = q.Where("file_type = ?", opts.Category)
	}
	if opts.FolderID != "" {
		if opts.FolderID == "root" {
			q = q.Where("folder_id IS NULL")
		} else {
			folderID, err := uuid.Parse(opts.FolderID)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid folder id", ErrValidation)
			}
			q = q.Where("folder_id = ?", folderID)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []models.FileRecord
	err = q.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	uploaderIDs := make([]uuid.UUID, 0, len(records))
	for i := range records {
		uploaderIDs = append(uploaderIDs, records[i].UploadedByID)
	}
	usernames, err := usernamesByID(ctx, s.db, dedupe(uploaderIDs))
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(records))
	for i := range records {
		entries = append(entries, ListEntry{
			PublicData:     records[i].GetPublicData(),
			Category:       records[i].FileType,
			UploadedByName: usernames[records[i].UploadedByID],
		})
	}

	totalPages := (total + int64(opts.Limit) - 1) / int64(opts.Limit)
	return &ListResult{
		Files: entries,
		Pagination: Pagination{
			TotalFiles:  total,
			TotalPages:  totalPages,
			CurrentPage: opts.Page,
			HasNext:     int64(opts.Page) < totalPages,
			HasPrev:     opts.Page > 1,
		},
	}, nil
}

// Categories groups a project's active files by type. Requires the read grant.
func (s *FileService) Categories(ctx context.Context, actorID, projectID uuid.UUID) ([]Category, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanRead(project, actorID) {
		return nil, ErrForbidden
	}

	var categories []Category
	err = s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Select("file_type AS name, COUNT(*) AS count, COALESCE(SUM(file_size), 0) AS total_size").
		Where("project_id = ? AND is_active = ?", projectID, true).
		Group("file_type").
		Order("file_type ASC").
		Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

// Download produces a one-hour presigned URL for an active file. Baseline
// project access is enough; the stricter upload/delete rules do not apply to
// reads. The download counter update runs detached so the response never
// waits on it.
func (s *FileService) Download(ctx context.Context, actorID, fileID uuid.UUID) (*DownloadInfo, error) {
	record, project, err := s.loadActiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !permissions.HasAccess(project, actorID) {
		return nil, ErrForbidden
	}

	url, err := s.store.PresignDownload(ctx, record.StorageKey, downloadURLTTL, record.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	go s.recordDownload(record.ID)

	return &DownloadInfo{
		URL:          url,
		ID:           record.ID,
		OriginalName: record.OriginalName,
		FileSize:     record.FileSize,
		ReadableSize: utils.FormatFileSize(record.FileSize),
		ExpiresIn:    "1 hour",
	}, nil
}

// recordDownload bumps the counter and the last-downloaded stamp on a fresh
// context; a failure here only loses a counter tick.
func (s *FileService) recordDownload(fileID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("id = ?", fileID).
		Updates(map[string]any{
			"download_count":     gorm.Expr("download_count + 1"),
			"last_downloaded_at": time.Now(),
		}).Error
	if err != nil {
		log.Warn().Err(err).Str("fileId", fileID.String()).Msg("failed to record download")
	}
}

// Get returns the detail view of an active file for any project participant.
func (s *FileService) Get(ctx context.Context, actorID, fileID uuid.UUID) (*Detail, error) {
	record, project, err := s.loadActiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !permissions.HasAccess(project, actorID) {
		return nil, ErrForbidden
	}

	ids := []uuid.UUID{record.UploadedByID}
	if record.LastModifiedByID != nil {
		ids = append(ids, *record.LastModifiedByID)
	}
	usernames, err := usernamesByID(ctx, s.db, dedupe(ids))
	if err != nil {
		return nil, err
	}

	detail := Detail{
		PublicData:       record.GetPublicData(),
		ReadableSize:     utils.FormatFileSize(record.FileSize),
		ProjectName:      project.Name,
		UploadedByName:   usernames[record.UploadedByID],
		LastDownloadedAt: record.LastDownloadedAt,
	}
	if record.LastModifiedByID != nil {
		detail.LastModifiedByName = usernames[*record.LastModifiedByID]
	}
	return &detail, nil
}

// Rename updates a file's display name. The stored name and content-store key
// never change, which is what makes rename cheap.
func (s *FileService) Rename(ctx context.Context, actorID, fileID uuid.UUID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	record, project, err := s.loadActiveFile(ctx, fileID)
	if err != nil {
		return err
	}
	if !permissions.CanEditFile(project, actorID, record.UploadedByID) {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("id = ?", fileID).
		Updates(map[string]any{
			"original_name":       newName,
			"last_modified_by_id": actorID,
		}).Error
}

// MetadataUpdate carries optional description and tag changes. Nil fields are
// left untouched.
type MetadataUpdate struct {
	Description *string
	Tags        []string
}

// UpdateMetadata edits description and tags under the same gate as rename.
func (s *FileService) UpdateMetadata(ctx context.Context, actorID, fileID uuid.UUID, update MetadataUpdate) (*models.PublicData, error) {
	record, project, err := s.loadActiveFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanEditFile(project, actorID, record.UploadedByID) {
		return nil, ErrForbidden
	}

	if update.Description != nil {
		record.Description = *update.Description
	}
	if update.Tags != nil {
		record.Tags = update.Tags
	}
	record.LastModifiedByID = &actorID

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}

	data := record.GetPublicData()
	return &data, nil
}

// Delete removes the content-store object first and soft-deletes the record
// only once that succeeds, so a record is never marked deleted while its
// object might still exist.
func (s *FileService) Delete(ctx context.Context, actorID, fileID uuid.UUID) error {
	record, project, err := s.loadActiveFile(ctx, fileID)
	if err != nil {
		return err
	}
	if !permissions.CanDeleteFile(project, actorID, record.UploadedByID) {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, record.StorageKey); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record.MarkDeleted(actorID, time.Now())
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return err
	}

	_, err = RecomputeStorageSize(ctx, s.db, record.ProjectID)
	return err
}

// BulkDelete iterates the given ids, skipping anything missing, inactive,
// foreign to the project or not deletable by the actor. Skips never fail the
// batch; the per-item results make them observable. Storage size is
// recomputed once at the end.
func (s *FileService) BulkDelete(ctx context.Context, actorID, projectID uuid.UUID, fileIDs []string) ([]BulkResult, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: no file ids provided", ErrValidation)
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	results := make([]BulkResult, 0, len(fileIDs))
	for _, rawID := range fileIDs {
		fileID, err := uuid.Parse(rawID)
		if err != nil {
			results = append(results, BulkResult{FileID: rawID, Reason: "invalid id"})
			continue
		}

		var record models.FileRecord
		err = s.db.WithContext(ctx).First(&record, "id = ?", fileID).Error
		if err != nil || !record.IsActive || record.ProjectID != projectID {
			results = append(results, BulkResult{FileID: rawID, Reason: "not found"})
			continue
		}

		if !permissions.CanDeleteFile(project, actorID, record.UploadedByID) {
			results = append(results, BulkResult{FileID: rawID, Reason: "permission denied"})
			continue
		}

		if err := s.store.Delete(ctx, record.StorageKey); err != nil {
			results = append(results, BulkResult{FileID: rawID, Reason: "content store failure"})
			continue
		}

		record.MarkDeleted(actorID, time.Now())
		if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
			results = append(results, BulkResult{FileID: rawID, Reason: "metadata update failed"})
			continue
		}
		results = append(results, BulkResult{FileID: rawID, Deleted: true})
	}

	if _, err := RecomputeStorageSize(ctx, s.db, projectID); err != nil {
		return results, err
	}
	return results, nil
}

func (s *FileService) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
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

// loadActiveFile fetches a file record and its owning project. Inactive
// records are reported as not found to every operation that needs an active
// one; direct id lookup for audit goes through FindRecord instead.
func (s *FileService) loadActiveFile(ctx context.Context, fileID uuid.UUID) (*models.FileRecord, *models.Project, error) {
	record, err := s.FindRecord(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if !record.IsActive {
		return nil, nil, fmt.Errorf("%w: file", ErrNotFound)
	}

	project, err := s.loadProject(ctx, record.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return record, project, nil
}

// FindRecord looks a record up by id regardless of its active flag. Soft
// deleted records stay retrievable this way for audit.
func (s *FileService) FindRecord(ctx context.Context, fileID uuid.UUID) (*models.FileRecord, error) {
	var record models.FileRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", fileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file", ErrNotFound)
		}
		return nil, err
	}
	return &record, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
