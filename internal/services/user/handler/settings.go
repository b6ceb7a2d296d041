package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gestvendas/internal/database/models"
)

var ErrSettingNotFound = errors.New("setting not found")

func (s *UserHandler) GetSetting(ctx context.Context, key string) (*models.Configuration, error) {
	var setting models.Configuration
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &setting, nil
}

func (s *UserHandler) ListSettings(ctx context.Context) ([]models.Configuration, error) {
	var settings []models.Configuration
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// UpsertSetting creates the key or overwrites its value.
func (s *UserHandler) UpsertSetting(ctx context.Context, key, value, dataType string) (*models.Configuration, error) {
	var setting models.Configuration
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		if dataType == "" {
			dataType = "string"
		}
		setting = models.Configuration{Key: key, Value: value, DataType: dataType}
		if err := s.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, fmt.Errorf("create setting: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load setting: %w", err)
	default:
		updates := map[string]interface{}{"value": value, "updated_at": time.Now()}
		if dataType != "" {
			updates["data_type"] = dataType
		}
		if err := s.db.WithContext(ctx).Model(&setting).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update setting: %w", err)
		}
		setting.Value = value
	}
	return &setting, nil
}
