package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabforge/collabforge/internal/models"
)

func TestUpload(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	project := createProject(t, db, owner.ID, 100)

	t.Run("owner uploads to root", func(t *testing.T) {
		record, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         []byte("0123456789"),
			OriginalName: "notes.txt",
			MimeType:     "text/plain",
			Description:  "scratch notes",
			Tags:         []string{"docs"},
		})
		require.NoError(t, err)

		assert.Equal(t, "notes.txt", record.OriginalName)
		assert.Equal(t, ".txt", record.FileType)
		assert.Equal(t, int64(10), record.FileSize)
		assert.Nil(t, record.Folder)
		assert.Equal(t, 1, store.objectCount())

		// quota recomputed after upload
		assert.Equal(t, int64(10), projectByID(t, db, project.ID).TotalSizeBytes)
	})

	t.Run("stranger is forbidden before any side effect", func(t *testing.T) {
		stranger := createUser(t, db, "stranger")
		before := store.objectCount()

		_, err := svc.Upload(ctx, stranger.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         []byte("x"),
			OriginalName: "x.txt",
			MimeType:     "text/plain",
		})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, before, store.objectCount())
	})

	t.Run("collaborator may upload under collaborators policy", func(t *testing.T) {
		editor := createUser(t, db, "editor")
		addCollaborator(t, db, project.ID, editor.ID, models.RoleEditor, models.PermRead, models.PermWrite)

		_, err := svc.Upload(ctx, editor.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         []byte("y"),
			OriginalName: "y.txt",
			MimeType:     "text/plain",
		})
		assert.NoError(t, err)
	})

	t.Run("quota exceeded leaves no object and no record", func(t *testing.T) {
		before := store.objectCount()

		_, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         make([]byte, 200),
			OriginalName: "big.txt",
			MimeType:     "text/plain",
		})
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Equal(t, before, store.objectCount())

		var count int64
		require.NoError(t, db.Model(&models.FileRecord{}).
			Where("original_name = ?", "big.txt").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("unknown folder", func(t *testing.T) {
		_, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     uuid.NewString(),
			Data:         []byte("z"),
			OriginalName: "z.txt",
			MimeType:     "text/plain",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("folder from another project is rejected", func(t *testing.T) {
		other := createProject(t, db, owner.ID, 1<<20)
		foreign := models.Folder{ID: uuid.New(), Name: "foreign", ProjectID: other.ID, CreatedByID: owner.ID}
		require.NoError(t, db.Create(&foreign).Error)

		_, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     foreign.ID.String(),
			Data:         []byte("z"),
			OriginalName: "z.txt",
			MimeType:     "text/plain",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("store failure aborts without metadata record", func(t *testing.T) {
		store.failPut = true
		defer func() { store.failPut = false }()

		_, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         []byte("w"),
			OriginalName: "w.txt",
			MimeType:     "text/plain",
		})
		assert.ErrorIs(t, err, ErrUpstream)

		var count int64
		require.NoError(t, db.Model(&models.FileRecord{}).
			Where("original_name = ?", "w.txt").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("disallowed extension", func(t *testing.T) {
		restricted := createProject(t, db, owner.ID, 1<<20)
		require.NoError(t, db.Model(&models.Project{}).Where("id = ?", restricted.ID).
			Update("allowed_extensions", []string{".txt"}).Error)

		_, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    restricted.ID,
			FolderID:     "root",
			Data:         []byte("binary"),
			OriginalName: "tool.exe",
			MimeType:     "application/octet-stream",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("upload policy everyone admits strangers", func(t *testing.T) {
		open := createProject(t, db, owner.ID, 1<<20)
		require.NoError(t, db.Model(&models.Project{}).Where("id = ?", open.ID).
			Update("who_can_upload", models.UploadEveryone).Error)

		outsider := createUser(t, db, "outsider")
		_, err := svc.Upload(ctx, outsider.ID, UploadInput{
			ProjectID:    open.ID,
			FolderID:     "root",
			Data:         []byte("hi"),
			OriginalName: "hi.txt",
			MimeType:     "text/plain",
		})
		assert.NoError(t, err)
	})
}

func TestListAndCategories(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	folderSvc := NewFolderService(db)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	reader := createUser(t, db, "reader")
	project := createProject(t, db, owner.ID, 1<<20)
	addCollaborator(t, db, project.ID, reader.ID, models.RoleViewer, models.PermRead)

	docs, err := folderSvc.Create(ctx, owner.ID, project.ID, "Docs", nil)
	require.NoError(t, err)

	upload := func(name, folderID string, size int) *models.PublicData {
		record, err := svc.Upload(ctx, owner.ID, UploadInput{
			ProjectID:    project.ID,
			FolderID:     folderID,
			Data:         make([]byte, size),
			OriginalName: name,
			MimeType:     "application/octet-stream",
		})
		require.NoError(t, err)
		return record
	}

	inDocs := upload("guide.pdf", docs.ID.String(), 100)
	upload("readme.txt", "root", 10)
	upload("spec.pdf", "root", 50)

	t.Run("folder filter round trip", func(t *testing.T) {
		result, err := svc.List(ctx, reader.ID, project.ID, ListOptions{FolderID: docs.ID.String()})
		require.NoError(t, err)
		require.Len(t, result.Files, 1)
		assert.Equal(t, inDocs.ID, result.Files[0].ID)
		assert.Equal(t, "owner", result.Files[0].UploadedByName)

		require.NoError(t, svc.Delete(ctx, owner.ID, inDocs.ID))

		result, err = svc.List(ctx, reader.ID, project.ID, ListOptions{FolderID: docs.ID.String()})
		require.NoError(t, err)
		assert.Empty(t, result.Files)
	})

	t.Run("root filter only matches folderless files", func(t *testing.T) {
		result, err := svc.List(ctx, reader.ID, project.ID, ListOptions{FolderID: "root"})
		require.NoError(t, err)
		assert.Len(t, result.Files, 2)
	})

	t.Run("category filter", func(t *testing.T) {
		result, err := svc.List(ctx, reader.ID, project.ID, ListOptions{Category: ".pdf"})
		require.NoError(t, err)
		require.Len(t, result.Files, 1)
		assert.Equal(t, "spec.pdf", result.Files[0].OriginalName)
	})

	t.Run("pagination metadata", func(t *testing.T) {
		result, err := svc.List(ctx, reader.ID, project.ID, ListOptions{Page: 1, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, result.Files, 1)
		assert.Equal(t, int64(2), result.Pagination.TotalFiles)
		assert.Equal(t, int64(2), result.Pagination.TotalPages)
		assert.True(t, result.Pagination.HasNext)
		assert.False(t, result.Pagination.HasPrev)
	})

	t.Run("requires read grant", func(t *testing.T) {
		norights := createUser(t, db, "norights")
		addCollaborator(t, db, project.ID, norights.ID, models.RoleCommenter)
		_, err := svc.List(ctx, norights.ID, project.ID, ListOptions{})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("categories exclude deleted files", func(t *testing.T) {
		categories, err := svc.Categories(ctx, reader.ID, project.ID)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, ".pdf", categories[0].Name)
		assert.Equal(t, int64(1), categories[0].Count) // guide.pdf is gone
		assert.Equal(t, int64(50), categories[0].TotalSize)
		assert.Equal(t, ".txt", categories[1].Name)
	})
}

func TestDownload(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	viewer := createUser(t, db, "viewer")
	project := createProject(t, db, owner.ID, 1<<20)
	// baseline membership is enough for downloads, no read grant needed
	addCollaborator(t, db, project.ID, viewer.ID, models.RoleViewer)

	record, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         []byte("contents"),
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
	})
	require.NoError(t, err)

	t.Run("member gets a signed url carrying the original name", func(t *testing.T) {
		info, err := svc.Download(ctx, viewer.ID, record.ID)
		require.NoError(t, err)
		assert.Contains(t, info.URL, "filename=report.pdf")
		assert.Equal(t, "1 hour", info.ExpiresIn)
		assert.Equal(t, "8 Bytes", info.ReadableSize)

		// counter update is detached from the response
		require.Eventually(t, func() bool {
			var after models.FileRecord
			if err := db.First(&after, "id = ?", record.ID).Error; err != nil {
				return false
			}
			return after.DownloadCount == 1 && after.LastDownloadedAt != nil
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("stranger denied", func(t *testing.T) {
		stranger := createUser(t, db, "stranger")
		_, err := svc.Download(ctx, stranger.ID, record.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("deleted file is not found", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, owner.ID, record.ID))
		_, err := svc.Download(ctx, owner.ID, record.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRenameAndMetadata(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	uploader := createUser(t, db, "uploader")
	project := createProject(t, db, owner.ID, 1<<20)
	addCollaborator(t, db, project.ID, uploader.ID, models.RoleEditor)

	record, err := svc.Upload(ctx, uploader.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         []byte("data"),
		OriginalName: "draft.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)

	var before models.FileRecord
	require.NoError(t, db.First(&before, "id = ?", record.ID).Error)

	t.Run("uploader renames, stored name untouched", func(t *testing.T) {
		require.NoError(t, svc.Rename(ctx, uploader.ID, record.ID, "final.txt"))

		var after models.FileRecord
		require.NoError(t, db.First(&after, "id = ?", record.ID).Error)
		assert.Equal(t, "final.txt", after.OriginalName)
		assert.Equal(t, before.StoredName, after.StoredName)
		assert.Equal(t, before.StorageKey, after.StorageKey)
		require.NotNil(t, after.LastModifiedByID)
		assert.Equal(t, uploader.ID, *after.LastModifiedByID)
	})

	t.Run("collaborator without edit grant denied", func(t *testing.T) {
		bystander := createUser(t, db, "bystander")
		addCollaborator(t, db, project.ID, bystander.ID, models.RoleViewer, models.PermRead)
		assert.ErrorIs(t, svc.Rename(ctx, bystander.ID, record.ID, "mine.txt"), ErrForbidden)
	})

	t.Run("edit_files grant allows metadata edits", func(t *testing.T) {
		editor := createUser(t, db, "grant-editor")
		addCollaborator(t, db, project.ID, editor.ID, models.RoleEditor, models.PermEditFiles)

		desc := "final version"
		updated, err := svc.UpdateMetadata(ctx, editor.ID, record.ID, MetadataUpdate{
			Description: &desc,
			Tags:        []string{"release", "v2"},
		})
		require.NoError(t, err)
		assert.Equal(t, "final version", updated.Description)
		assert.Equal(t, []string{"release", "v2"}, updated.Tags)
	})

	t.Run("nil fields leave values untouched", func(t *testing.T) {
		updated, err := svc.UpdateMetadata(ctx, uploader.ID, record.ID, MetadataUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "final version", updated.Description)
		assert.Equal(t, []string{"release", "v2"}, updated.Tags)
	})
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	uploader := createUser(t, db, "uploader")
	project := createProject(t, db, owner.ID, 1<<20)
	addCollaborator(t, db, project.ID, uploader.ID, models.RoleEditor)

	upload := func(by uuid.UUID, name string) *models.PublicData {
		record, err := svc.Upload(ctx, by, UploadInput{
			ProjectID:    project.ID,
			FolderID:     "root",
			Data:         []byte("0123456789"),
			OriginalName: name,
			MimeType:     "text/plain",
		})
		require.NoError(t, err)
		return record
	}

	t.Run("uploader deletes own file under uploader_and_owner", func(t *testing.T) {
		record := upload(uploader.ID, "own.txt")

		require.NoError(t, svc.Delete(ctx, uploader.ID, record.ID))

		// record retained for audit with the deletion facts set together
		var after models.FileRecord
		require.NoError(t, db.First(&after, "id = ?", record.ID).Error)
		assert.False(t, after.IsActive)
		require.NotNil(t, after.DeletedAt)
		require.NotNil(t, after.DeletedByID)
		assert.Equal(t, uploader.ID, *after.DeletedByID)

		exists, err := store.Exists(ctx, after.StorageKey)
		require.NoError(t, err)
		assert.False(t, exists)

		assert.Zero(t, projectByID(t, db, project.ID).TotalSizeBytes)
	})

	t.Run("non-uploader collaborator denied without grant", func(t *testing.T) {
		record := upload(owner.ID, "owners.txt")
		assert.ErrorIs(t, svc.Delete(ctx, uploader.ID, record.ID), ErrForbidden)
		require.NoError(t, svc.Delete(ctx, owner.ID, record.ID))
	})

	t.Run("delete_files grant overrides the uploader rule", func(t *testing.T) {
		janitor := createUser(t, db, "janitor")
		addCollaborator(t, db, project.ID, janitor.ID, models.RoleEditor, models.PermDeleteFiles)

		record := upload(owner.ID, "cleanup.txt")
		assert.NoError(t, svc.Delete(ctx, janitor.ID, record.ID))
	})

	t.Run("store failure keeps the record active", func(t *testing.T) {
		record := upload(uploader.ID, "stuck.txt")
		store.failDelete = true
		defer func() { store.failDelete = false }()

		assert.ErrorIs(t, svc.Delete(ctx, uploader.ID, record.ID), ErrUpstream)

		var after models.FileRecord
		require.NoError(t, db.First(&after, "id = ?", record.ID).Error)
		assert.True(t, after.IsActive)
	})

	t.Run("deleting twice reports not found", func(t *testing.T) {
		record := upload(uploader.ID, "twice.txt")
		require.NoError(t, svc.Delete(ctx, uploader.ID, record.ID))
		assert.ErrorIs(t, svc.Delete(ctx, uploader.ID, record.ID), ErrNotFound)
	})
}

func TestBulkDelete(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	project := createProject(t, db, owner.ID, 1<<20)
	otherProject := createProject(t, db, owner.ID, 1<<20)

	valid, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         make([]byte, 40),
		OriginalName: "valid.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)

	keep, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         make([]byte, 10),
		OriginalName: "keep.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)

	foreign, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    otherProject.ID,
		FolderID:     "root",
		Data:         make([]byte, 30),
		OriginalName: "foreign.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)

	inactive, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         make([]byte, 20),
		OriginalName: "gone.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner.ID, inactive.ID))

	results, err := svc.BulkDelete(ctx, owner.ID, project.ID, []string{
		valid.ID.String(),
		foreign.ID.String(),
		inactive.ID.String(),
		"not-a-uuid",
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Deleted)
	assert.False(t, results[1].Deleted)
	assert.Equal(t, "not found", results[1].Reason)
	assert.False(t, results[2].Deleted)
	assert.False(t, results[3].Deleted)
	assert.Equal(t, "invalid id", results[3].Reason)

	// only the valid file transitioned; foreign project untouched
	var foreignAfter models.FileRecord
	require.NoError(t, db.First(&foreignAfter, "id = ?", foreign.ID).Error)
	assert.True(t, foreignAfter.IsActive)

	// usage shrank by exactly the valid file's size, keep.txt remains
	assert.Equal(t, int64(10), projectByID(t, db, project.ID).TotalSizeBytes)
	_ = keep
}

func TestFindRecordAudit(t *testing.T) {
	db := setupDB(t)
	store := newFakeStore()
	svc := NewFileService(db, store)
	ctx := context.Background()

	owner := createUser(t, db, "owner")
	project := createProject(t, db, owner.ID, 1<<20)

	record, err := svc.Upload(ctx, owner.ID, UploadInput{
		ProjectID:    project.ID,
		FolderID:     "root",
		Data:         []byte("x"),
		OriginalName: "audit.txt",
		MimeType:     "text/plain",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner.ID, record.ID))

	// direct id lookup still works after soft delete
	found, err := svc.FindRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)
	assert.Equal(t, "audit.txt", found.OriginalName)
}
