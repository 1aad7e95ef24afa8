package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/models"
)

// HasSpace reports whether the project can absorb incomingBytes without
// crossing its ceiling. Checked strictly before any content-store write so a
// rejected upload never leaves an orphaned object. Concurrent uploads race on
// this check-then-put sequence; the quota is best-effort by design and the
// recompute below corrects the running total afterwards.
func HasSpace(p *models.Project, incomingBytes int64) bool {
	return p.TotalSizeBytes+incomingBytes <= p.MaxSizeBytes
}

// RecomputeStorageSize recalculates a project's used bytes as the sum over its
// active file records and persists the result. It is a full scan rather than
// an incremental counter so repeated calls converge instead of drifting; every
// upload, delete and bulk delete calls it once after the metadata mutation.
func RecomputeStorageSize(ctx context.Context, db *gorm.DB, projectID uuid.UUID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("total_size_bytes", total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
