package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/collabforge/collabforge/internal/models"
)

// setupDB opens a fresh in-memory database with the full schema migrated.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Collaborator{},
		&models.Folder{},
		&models.FileRecord{},
	))
	return db
}

// fakeStore is an in-memory ObjectStore with switchable failure modes.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body []byte, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("simulated put failure")
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("simulated delete failure")
	}
	// missing key is success, mirroring the S3 behavior
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PresignDownload(_ context.Context, key string, _ time.Duration, downloadName string) (string, error) {
	return "https://signed.test/" + key + "?filename=" + downloadName, nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Bucket() string { return "test-bucket" }

func (f *fakeStore) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProject(t *testing.T, db *gorm.DB, ownerID uuid.UUID, maxBytes int64) models.Project {
	t.Helper()
	project := models.Project{
		ID:           uuid.New(),
		Name:         "test project",
		OwnerID:      ownerID,
		MaxSizeBytes: maxBytes,
		WhoCanUpload: models.UploadCollaborators,
		WhoCanDelete: models.DeleteUploaderAndOwner,
		InviteCode:   uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func addCollaborator(t *testing.T, db *gorm.DB, projectID, userID uuid.UUID, role string, perms ...string) models.Collaborator {
	t.Helper()
	collab := models.Collaborator{
		ID:          uuid.New(),
		ProjectID:   projectID,
		UserID:      userID,
		Role:        role,
		Permissions: perms,
	}
	require.NoError(t, db.Create(&collab).Error)
	return collab
}

func projectByID(t *testing.T, db *gorm.DB, id uuid.UUID) models.Project {
	t.Helper()
	var project models.Project
	require.NoError(t, db.Preload("Collaborators").First(&project, "id = ?", id).Error)
	return project
}
