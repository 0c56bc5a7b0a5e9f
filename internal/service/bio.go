package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// ReservedUsernames are first path segments owned by the application.
// They are never looked up as bio pages.
var ReservedUsernames = map[string]bool{
	// Application routes
	"api":       true,
	"dashboard": true,
	"login":     true,
	"logout":    true,
	"signup":    true,
	"pricing":   true,
	"tools":     true,
	"auth":      true,

	// Operational and static paths
	"healthz":     true,
	"readyz":      true,
	"metrics":     true,
	"static":      true,
	"assets":      true,
	"favicon.ico": true,
	"robots.txt":  true,
	"sitemap.xml": true,
	"404":         true,
}

// IsReservedUsername reports whether name collides with an application route.
func IsReservedUsername(name string) bool {
	return ReservedUsernames[strings.ToLower(name)]
}

// BioPage is everything rendered on a public bio page.
type BioPage struct {
	Profile *model.Profile
	Links   []*model.BioLink
}

// BioService loads public bio pages.
type BioService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewBioService creates a new BioService.
func NewBioService(store repository.Store, logger *slog.Logger) *BioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BioService{store: store, logger: logger}
}

// Page returns the profile for username and its active links in ascending
// order_index. Unknown or reserved usernames return ErrProfileNotFound.
func (s *BioService) Page(ctx context.Context, username string) (*BioPage, error) {
	if username == "" || IsReservedUsername(username) {
		return nil, ErrProfileNotFound
	}

	profile, err := s.store.GetProfileByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	links, err := s.store.ListActiveBioLinks(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	active := make([]*model.BioLink, 0, len(links))
	for _, l := range links {
		if l.IsActive {
			active = append(active, l)
		}
	}

	return &BioPage{Profile: profile, Links: active}, nil
}
