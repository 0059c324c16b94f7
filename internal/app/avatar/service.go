/*
Package avatar changes a user's profile picture, either from an uploaded image data URL
or by linking an external Roblox account and adopting its headshot.

Uploaded images go to object storage when it is configured; otherwise the data URL itself
becomes the avatar URL. A failed lookup or upload leaves the user record untouched.
*/
package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatyni/internal/app/storage"
	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
)

// cleanupTimeout bounds the background removal of a replaced avatar object.
const cleanupTimeout = 30 * time.Second

// Service updates avatars in the identity store.
type Service struct {
	users      user.Repository
	store      storage.StorageService
	identities IdentityLookup
	images     ImageLookup
	logger     zerolog.Logger
}

// NewService constructs an avatar Service. store may be nil, in which case uploaded data
// URLs are stored inline.
func NewService(users user.Repository, store storage.StorageService, identities IdentityLookup, images ImageLookup) *Service {
	return &Service{
		users:      users,
		store:      store,
		identities: identities,
		images:     images,
		logger:     logx.Component("Avatar"),
	}
}

// SetFromDataURL validates dataURL and makes it the avatar of username. It returns the new
// avatar URL.
func (s *Service) SetFromDataURL(ctx context.Context, username, dataURL string) (string, *errs.CustomError) {
	img, err := ParseDataURL(dataURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("Rejected avatar upload.")
		return "", errs.NewError(errs.ErrAvatarInvalid, MaxImageBytes>>10)
	}

	avatarURL := dataURL
	uploadedKey := ""

	if s.store != nil {
		key := fmt.Sprintf("avatars/%s.%s", uuid.NewString(), img.Extension)

		avatarURL, err = s.store.Upload(ctx, key, img.ContentType, img.Data)
		if err != nil {
			return "", errs.NewError(errs.ErrFileStorageFailed)
		}
		uploadedKey = key
	}

	previous, customErr := s.replaceAvatar(ctx, username, func(u *user.User) {
		u.AvatarURL = avatarURL
	})
	if customErr != nil {
		if uploadedKey != "" {
			s.deleteInBackground(uploadedKey)
		}
		return "", customErr
	}

	s.releasePrevious(previous)
	s.logger.Info().Str("username", username).Bool("stored", uploadedKey != "").Msg("Avatar updated from upload.")
	return avatarURL, nil
}

// LinkRoblox looks up robloxName, stores its canonical spelling on username, and adopts
// its headshot as the avatar. It returns the new avatar URL.
func (s *Service) LinkRoblox(ctx context.Context, username, robloxName string) (string, *errs.CustomError) {
	robloxName = strings.TrimSpace(robloxName)
	if robloxName == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	canonical, id, err := s.identities.LookupByName(ctx, robloxName)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.logger.Info().Str("roblox_username", robloxName).Msg("Roblox user not found.")
			return "", errs.NewError(errs.ErrExternalProfileNotFound)
		}
		s.logger.Error().Err(err).Str("roblox_username", robloxName).Msg("Roblox user lookup failed.")
		return "", errs.NewError(errs.ErrExternalLookupFailed)
	}

	imageURL, err := s.images.HeadshotByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("roblox_id", id).Msg("Roblox headshot lookup failed.")
		return "", errs.NewError(errs.ErrExternalLookupFailed)
	}

	previous, customErr := s.replaceAvatar(ctx, username, func(u *user.User) {
		u.RobloxUsername = canonical
		u.AvatarURL = imageURL
	})
	if customErr != nil {
		return "", customErr
	}

	s.releasePrevious(previous)
	s.logger.Info().Str("username", username).Str("roblox_username", canonical).Msg("Roblox profile linked.")
	return imageURL, nil
}

// replaceAvatar applies set to username and returns the avatar URL it replaced.
func (s *Service) replaceAvatar(ctx context.Context, username string, set func(u *user.User)) (string, *errs.CustomError) {
	var previous string
	_, err := s.users.Update(ctx, username, func(u *user.User) error {
		previous = u.AvatarURL
		set(u)
		return nil
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", errs.NewError(errs.ErrUserNotFound)
		}
		return "", errs.NewError(errs.ErrUnknown, err)
	}

	return previous, nil
}

// releasePrevious removes a replaced avatar object that this service uploaded earlier.
func (s *Service) releasePrevious(previousURL string) {
	if s.store == nil {
		return
	}

	if key, ok := s.store.KeyFromURL(previousURL); ok {
		s.deleteInBackground(key)
	}
}

func (s *Service) deleteInBackground(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete replaced avatar object.")
		}
	}()
}
