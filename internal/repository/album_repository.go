package repository

import (
	"context"
	"fmt"

	"xupload/internal/domain/album"
	xupload_errors "xupload/pkg/errors"
)

type albumRepository struct {
	db DBTX
}

func NewAlbumRepository(db DBTX) AlbumRepository {
	return &albumRepository{db: db}
}

func (r *albumRepository) Insert(ctx context.Context, a *album.Album) error {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO albums (user_id, profile_id, image_name, image_folder, profile_image)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at
    `,
		a.UserID,
		a.ProfileID,
		a.ImageName,
		a.ImageFolder,
		a.ProfileImage,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return xupload_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

func (r *albumRepository) UpdateImageName(ctx context.Context, id int64, imageName string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE albums
        SET image_name = $1
        WHERE id = $2
    `, imageName, id)
	if err != nil {
		if isUniqueViolation(err) {
			return xupload_errors.ErrAlreadyExists
		}
		return fmt.Errorf("update album image name: %w", err)
	}
	return expectOneRow(res, xupload_errors.ErrNotFound)
}

func (r *albumRepository) DeleteByImageName(ctx context.Context, imageName string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE image_name = $1`, imageName)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return expectOneRow(res, xupload_errors.ErrNotFound)
}
