// Package catalog serves the read-only service catalog with a small TTL
// cache in front of the store.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
	apperrors "github.com/jwalitptl/bookabot/pkg/errors"
)

const listCacheKey = "services:list"

type Service struct {
	repo  repository.ServiceRepository
	cache *gocache.Cache
}

func NewService(repo repository.ServiceRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *Service) ListServices(ctx context.Context) ([]*model.Service, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cached.([]*model.Service), nil
	}

	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	s.cache.Set(listCacheKey, services, gocache.DefaultExpiration)
	return services, nil
}

// GetService resolves a raw selection id from an interactive reply. Anything
// that is not the id of a known service is a not-found, never a crash.
func (s *Service) GetService(ctx context.Context, rawID string) (*model.Service, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.NotFound("service", err)
	}

	if cached, ok := s.cache.Get("service:" + rawID); ok {
		return cached.(*model.Service), nil
	}

	service, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("service", err)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	s.cache.Set("service:"+rawID, service, gocache.DefaultExpiration)
	return service, nil
}
