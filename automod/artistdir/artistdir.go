// Resolves the artist profile behind a user id.
//
// Artist profiles are owned by the tipping application; moderation only reads them, to pick per-artist keyword rules and to authorize artists managing their own rules.
package artistdir

import (
	"context"
	"errors"

	"github.com/tiptune/tipmod/models"
)

var ErrArtistNotFound = errors.New("artist profile not found")

type Directory interface {
	LookupByUser(ctx context.Context, userID string) (*models.Artist, error)
}
