package artistdir

import (
	"context"

	"github.com/tiptune/tipmod/models"

	"github.com/puzpuzpuz/xsync/v3"
)

// In-process directory, keyed by user id.
type MemDirectory struct {
	Artists *xsync.MapOf[string, models.Artist]
}

var _ Directory = (*MemDirectory)(nil)

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		Artists: xsync.NewMapOf[string, models.Artist](),
	}
}

func (d *MemDirectory) AddArtist(ctx context.Context, artist *models.Artist) error {
	d.Artists.Store(artist.UserID, *artist)
	return nil
}

func (d *MemDirectory) LookupByUser(ctx context.Context, userID string) (*models.Artist, error) {
	a, ok := d.Artists.Load(userID)
	if !ok {
		return nil, ErrArtistNotFound
	}
	return &a, nil
}
