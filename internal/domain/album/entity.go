package album

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Album represents the albums table: one row per uploaded image.
type Album struct {
	ID           int64
	UserID       int64
	ProfileID    int64
	ImageName    string
	ImageFolder  string
	ProfileImage int // 1 when this image is the owner's profile picture
	CreatedAt    time.Time
}

// ProvisionalImageName is the name stored before the row id is known.
func ProvisionalImageName(userID, profileID int64, ext string) string {
	return fmt.Sprintf("%d_%s_image.%s", userID, formatProfileID(profileID), strings.ToLower(ext))
}

// FinalImageName prefixes the provisional name with the row id assigned on insert.
func FinalImageName(rowID, userID, profileID int64, ext string) string {
	return fmt.Sprintf("%d_%s", rowID, ProvisionalImageName(userID, profileID, ext))
}

// ProfileImagePath is the value written into the owner's profile_image column.
func (a Album) ProfileImagePath() string {
	return a.ImageFolder + a.ImageName
}

// Callers without a profile are agents; their profile segment stays empty.
func formatProfileID(profileID int64) string {
	if profileID == 0 {
		return ""
	}
	return strconv.FormatInt(profileID, 10)
}

// OwnerKind selects which table carries the owner's profile picture.
type OwnerKind string

const (
	OwnerProfile OwnerKind = "profiles"
	OwnerAgent   OwnerKind = "agents"
)

// OwnerKindFor mirrors the rule that callers without a profile id are agents.
func OwnerKindFor(profileID int64) OwnerKind {
	if profileID == 0 {
		return OwnerAgent
	}
	return OwnerProfile
}
