// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package keys is the single source of truth for media object addressing.
// Every other component routes through it rather than constructing storage
// paths by hand, so the key scheme cannot drift.
package keys

import (
	"fmt"
	"strings"
)

// Media categories partitioning the storage namespace.
const (
	CategoryProfilePicture = "profile-picture"
	CategorySession        = "session"
	CategoryChallenge      = "challenge"
	CategoryHabit          = "habit"
)

const (
	// ThumbnailSuffix marks the derived thumbnail sharing an object's base key.
	ThumbnailSuffix = "-thumbnail"

	// ProfileObjectID is the fixed instance and object id for profile
	// pictures: exactly one object per user, overwritten in place.
	ProfileObjectID = "profile"

	basePrefix = "media"
)

// ErrInvalidCategory is returned for a category outside the fixed enumeration.
var ErrInvalidCategory = fmt.Errorf("invalid media category")

// ErrInvalidKeyPart is returned for an empty id or one containing a path
// separator. A "/" inside an instance or object id would make distinct inputs
// collapse onto overlapping storage paths, bleeding listings, quota windows
// and prefix deletes across instances.
var ErrInvalidKeyPart = fmt.Errorf("invalid media id segment")

func validSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/")
}

// ValidCategory reports whether category is one of the fixed enumeration.
func ValidCategory(category string) bool {
	switch category {
	case CategoryProfilePicture, CategorySession, CategoryChallenge, CategoryHabit:
		return true
	}
	return false
}

// MakeKey maps (owner, category, instance, object, thumbnail) to the canonical
// storage path: media/{owner}/{category}/{instance}/{object}, with
// ThumbnailSuffix appended for thumbnails. For profile-picture the instance
// and object ids are forced to ProfileObjectID regardless of input.
func MakeKey(ownerUserID, category, categoryInstanceID, objectID string, thumbnail bool) (string, error) {
	if !ValidCategory(category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	if category == CategoryProfilePicture {
		categoryInstanceID = ProfileObjectID
		objectID = ProfileObjectID
	}

	if !validSegment(ownerUserID) || !validSegment(categoryInstanceID) || !validSegment(objectID) {
		return "", fmt.Errorf("%w: %q/%q/%q", ErrInvalidKeyPart, ownerUserID, categoryInstanceID, objectID)
	}

	key := fmt.Sprintf("%s/%s/%s/%s/%s", basePrefix, ownerUserID, category, categoryInstanceID, objectID)
	if thumbnail {
		key += ThumbnailSuffix
	}
	return key, nil
}

// InstancePrefix returns the listing prefix covering all objects (primaries
// and thumbnails) of one quota window.
func InstancePrefix(ownerUserID, category, categoryInstanceID string) (string, error) {
	if !ValidCategory(category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if category == CategoryProfilePicture {
		categoryInstanceID = ProfileObjectID
	}
	if !validSegment(ownerUserID) || !validSegment(categoryInstanceID) {
		return "", fmt.Errorf("%w: %q/%q", ErrInvalidKeyPart, ownerUserID, categoryInstanceID)
	}
	return fmt.Sprintf("%s/%s/%s/%s/", basePrefix, ownerUserID, category, categoryInstanceID), nil
}

// ObjectPrefix returns the prefix covering one object and its thumbnail.
// It equals the primary key; the thumbnail key extends it by ThumbnailSuffix.
func ObjectPrefix(ownerUserID, category, categoryInstanceID, objectID string) (string, error) {
	return MakeKey(ownerUserID, category, categoryInstanceID, objectID, false)
}

// IsThumbnail reports whether key addresses a derived thumbnail.
func IsThumbnail(key string) bool {
	return strings.HasSuffix(key, ThumbnailSuffix)
}

// ObjectIDFromKey extracts the object id (last path segment) from a primary
// key. Thumbnail keys should be stripped with IsThumbnail first.
func ObjectIDFromKey(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return key
	}
	return key[idx+1:]
}
