package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/mediabot-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// filterColumns whitelists the columns FindAll may filter on
var filterColumns = map[string]bool{
	"state":    true,
	"platform": true,
	"kind":     true,
	"chat_id":  true,
	"user_id":  true,
	"fallback": true,
}

// SQLiteRequestRepository implements RequestRepository using SQLite
type SQLiteRequestRepository struct {
	db *gorm.DB
}

// NewSQLiteRequestRepository creates a new SQLite repository
func NewSQLiteRequestRepository(dbPath string) (*SQLiteRequestRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema for DownloadRequest
	if err := db.AutoMigrate(&domain.DownloadRequest{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRequestRepository{db: db}, nil
}

// Create creates a new request
func (r *SQLiteRequestRepository) Create(req *domain.DownloadRequest) error {
	return r.db.Create(req).Error
}

// Update updates an existing request
func (r *SQLiteRequestRepository) Update(req *domain.DownloadRequest) error {
	return r.db.Save(req).Error
}

// FindByID finds a request by ID
func (r *SQLiteRequestRepository) FindByID(id string) (*domain.DownloadRequest, error) {
	var req domain.DownloadRequest
	err := r.db.First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &req, nil
}

// FindOffered finds the request still waiting for a format choice on messageID
func (r *SQLiteRequestRepository) FindOffered(chatID int64, messageID int) (*domain.DownloadRequest, error) {
	var req domain.DownloadRequest
	err := r.db.Where("chat_id = ? AND offer_message_id = ? AND state = ?", chatID, messageID, domain.StateFormatOffered).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// ClaimOffered claims an offered request for exactly one format choice
func (r *SQLiteRequestRepository) ClaimOffered(id string, kind domain.MediaKind) (bool, error) {
	// Conditional update; a second claim on the same offer affects no rows
	result := r.db.Model(&domain.DownloadRequest{}).
		Where("id = ? AND state = ?", id, domain.StateFormatOffered).
		Updates(map[string]interface{}{
			"state": domain.StateFormatChosen,
			"kind":  kind,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindAll finds all requests with optional filters. Unknown filter keys are rejected;
// "limit" caps the number of rows.
func (r *SQLiteRequestRepository) FindAll(filters map[string]interface{}) ([]*domain.DownloadRequest, error) {
	var reqs []*domain.DownloadRequest
	query := r.db

	for key, value := range filters {
		if key == "limit" {
			if n, ok := value.(int); ok && n > 0 {
				query = query.Limit(n)
			}
			continue
		}
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

// GetStats returns request statistics
func (r *SQLiteRequestRepository) GetStats() (*domain.RequestStats, error) {
	stats := &domain.RequestStats{ByState: make(map[domain.State]int64)}

	// Get total count
	if err := r.db.Model(&domain.DownloadRequest{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	// Get counts by state
	stateCounts := []struct {
		State domain.State
		Count int64
	}{}

	if err := r.db.Model(&domain.DownloadRequest{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		stats.ByState[sc.State] = sc.Count
		switch {
		case sc.State == domain.StateDone:
			stats.Done += sc.Count
		case sc.State == domain.StateCancelled:
			stats.Cancelled += sc.Count
		case sc.State.IsFailure():
			stats.Failed += sc.Count
		default:
			stats.InFlight += sc.Count
		}
	}

	// Get fallback deliveries
	if err := r.db.Model(&domain.DownloadRequest{}).Where("fallback = ?", true).Count(&stats.Fallbacks).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRequestRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
