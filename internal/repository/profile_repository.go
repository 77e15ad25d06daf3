package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xupload/internal/domain/album"
	xupload_errors "xupload/pkg/errors"
)

type profileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepository{db: db}
}

// ownerTable whitelists the table names that may be interpolated into SQL.
func ownerTable(kind album.OwnerKind) (string, error) {
	switch kind {
	case album.OwnerProfile, album.OwnerAgent:
		return string(kind), nil
	default:
		return "", fmt.Errorf("%w: owner kind %q", xupload_errors.ErrInvalidInput, kind)
	}
}

func (r *profileRepository) PromoteIfEmpty(ctx context.Context, kind album.OwnerKind, userID int64, a album.Album) (bool, error) {
	table, err := ownerTable(kind)
	if err != nil {
		return false, err
	}

	promoted := false
	err = WithTx(ctx, r.db, func(tx DBTX) error {
		var current sql.NullString
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT profile_image FROM %s WHERE user_id = $1 FOR UPDATE`, table), userID).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return xupload_errors.ErrNotFound
			}
			return err
		}
		if current.String != "" {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET profile_image = $1 WHERE user_id = $2`, table),
			a.ProfileImagePath(), userID); err != nil {
			return fmt.Errorf("set profile image: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE albums SET profile_image = 1 WHERE id = $1`, a.ID); err != nil {
			return fmt.Errorf("flag album profile image: %w", err)
		}
		promoted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return promoted, nil
}
