package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

type CollectionService struct {
	repo ports.CollectionRepository
}

func NewCollectionService(repo ports.CollectionRepository) *CollectionService {
	return &CollectionService{repo: repo}
}

func (s *CollectionService) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	collections, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

// GetCollection returns domain.ErrCollectionNotFound for unknown ids.
func (s *CollectionService) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}
