package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID                int64   `gorm:"primaryKey;autoIncrement"`
	Username          string  `gorm:"type:varchar(80);uniqueIndex;not null"`
	Email             string  `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash      string  `gorm:"type:varchar(256);not null"`
	FullName          *string `gorm:"type:varchar(200)"`
	Role              string  `gorm:"type:varchar(50);not null;default:'user'"`
	IsActive          bool    `gorm:"not null;default:true"`
	ConfirmationToken *string `gorm:"type:varchar(100)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Configuration is a key/value settings row (company name, default tax
// rate, currency). DataType hints how Value should be parsed.
type Configuration struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Key         string  `gorm:"type:varchar(100);uniqueIndex;not null"`
	Value       string  `gorm:"type:text"`
	Description *string `gorm:"type:text"`
	DataType    string  `gorm:"type:varchar(50);not null;default:'string'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
