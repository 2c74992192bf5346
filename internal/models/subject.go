package models

// Roles a subject can hold.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Subject is a registered voter or admin account. One-time codes are never
// part of this record.
type Subject struct {
	Roll         string `gorm:"primaryKey;size:64" json:"roll"`
	Email        string `gorm:"size:254;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"passwordHash"`
	Role         string `gorm:"size:16;index;not null" json:"role"`
	HasVoted     bool   `gorm:"not null;default:false" json:"hasVoted"`
}
