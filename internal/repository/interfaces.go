package repository

import (
	"context"

	"xupload/internal/domain/album"
)

type AlbumRepository interface {
	// Insert stores a new row and sets a.ID and a.CreatedAt from the database.
	Insert(ctx context.Context, a *album.Album) error
	UpdateImageName(ctx context.Context, id int64, imageName string) error
	DeleteByImageName(ctx context.Context, imageName string) error
}

type ProfileRepository interface {
	// PromoteIfEmpty sets the owner's profile picture to a and flags the album
	// row, but only when the owner has no picture yet. Reports whether it did.
	PromoteIfEmpty(ctx context.Context, kind album.OwnerKind, userID int64, a album.Album) (bool, error)
}
