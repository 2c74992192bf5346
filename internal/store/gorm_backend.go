package store

import (
	"errors"
	"fmt"

	"github.com/aathi-11/university-voting-portal/internal/database"
	"github.com/aathi-11/university-voting-portal/internal/models"

	"gorm.io/gorm"
)

const announcementRowID = 1

// GormBackend stores subjects, ballots and the announcement in SQL tables.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend migrates the schema and wraps db.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return &GormBackend{db: db}, nil
}

func (g *GormBackend) Load() (*Snapshot, error) {
	snap := &Snapshot{}
	if err := g.db.Order("roll ASC").Find(&snap.Subjects).Error; err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	if err := g.db.Order("voter_roll ASC").Find(&snap.Ballots).Error; err != nil {
		return nil, fmt.Errorf("load ballots: %w", err)
	}

	var a models.Announcement
	err := g.db.First(&a, announcementRowID).Error
	switch {
	case err == nil:
		snap.Announcement = &a
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("load announcement: %w", err)
	}
	return snap, nil
}

func (g *GormBackend) PutSubject(sub models.Subject) error {
	if err := g.db.Save(&sub).Error; err != nil {
		return fmt.Errorf("save subject: %w", err)
	}
	return nil
}

func (g *GormBackend) AppendBallot(b models.Ballot, voter models.Subject) error {
	err := g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		return tx.Save(&voter).Error
	})
	if err != nil {
		return fmt.Errorf("record ballot: %w", err)
	}
	return nil
}

func (g *GormBackend) PutAnnouncement(a models.Announcement) error {
	a.ID = announcementRowID
	if err := g.db.Save(&a).Error; err != nil {
		return fmt.Errorf("save announcement: %w", err)
	}
	return nil
}

func (g *GormBackend) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
