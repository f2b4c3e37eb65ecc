package artistdir

import (
	"context"
	"errors"

	"github.com/tiptune/tipmod/models"

	"gorm.io/gorm"
)

type GormDirectory struct {
	db *gorm.DB
}

var _ Directory = (*GormDirectory)(nil)

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) AddArtist(ctx context.Context, artist *models.Artist) error {
	return d.db.WithContext(ctx).Create(artist).Error
}

func (d *GormDirectory) LookupByUser(ctx context.Context, userID string) (*models.Artist, error) {
	var artist models.Artist
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrArtistNotFound
	} else if err != nil {
		return nil, err
	}
	return &artist, nil
}
