package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

var ErrInvalid = errors.New("invalid doctor query")

// URLResolver turns a stored photo reference into a fetchable URL.
type URLResolver interface {
	ResolveOrEmpty(ctx context.Context, stored string) string
}

type Service struct {
	repo Repository
	urls URLResolver
}

func NewService(repo Repository, urls URLResolver) *Service {
	return &Service{repo: repo, urls: urls}
}

// List returns verified doctors matching f.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) ([]*Doctor, int, error) {
	f.Sort = strings.ToLower(strings.TrimSpace(f.Sort))
	if f.Sort == "" {
		f.Sort = SortRating
	}
	if _, ok := orderBy[f.Sort]; !ok {
		return nil, 0, fmt.Errorf("%w: sort must be one of %s, %s, %s or %s", ErrInvalid, SortExperience, SortFee, SortRating, SortName)
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Specialization = strings.TrimSpace(f.Specialization)
	f.Language = strings.TrimSpace(f.Language)

	doctors, total, err := s.repo.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	for _, d := range doctors {
		s.resolve(ctx, d)
	}
	return doctors, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolve(ctx, d)
	return d, nil
}

func (s *Service) Specializations(ctx context.Context) ([]Specialization, error) {
	return s.repo.Specializations(ctx)
}

func (s *Service) resolve(ctx context.Context, d *Doctor) {
	if s.urls != nil {
		d.PhotoURL = s.urls.ResolveOrEmpty(ctx, d.ProfilePhoto)
	}
}
