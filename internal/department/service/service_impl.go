package service

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/department/domain"
	"github.com/smallbiznis/workforce/pkg/db"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Repository domain.Repository
	Cache      *cache.Bookkeeper
}

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	cache *cache.Bookkeeper
}

func New(p Params) domain.Service {
	return &service{db: p.DB, repo: p.Repository, cache: p.Cache}
}

func (s *service) List(ctx context.Context) ([]domain.Department, error) {
	key := cache.Key(cache.NamespaceDepartmentList, nil)
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceDepartmentList, key, cache.TTLList,
		func(ctx context.Context) ([]domain.Department, error) {
			return s.repo.List(ctx, s.db)
		})
}

func (s *service) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *service) Create(ctx context.Context, req domain.CreateDepartmentRequest) (*domain.Department, error) {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Description, validation.Length(0, 1000)),
	); err != nil {
		return nil, err
	}

	dept := &domain.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Insert(ctx, s.db, dept); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.invalidate(ctx)
	return dept, nil
}

func (s *service) Update(ctx context.Context, req domain.UpdateDepartmentRequest) (*domain.Department, error) {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&req.Description, validation.Length(0, 1000)),
	); err != nil {
		return nil, err
	}

	var dept *domain.Department
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			found.Name = *req.Name
		}
		if req.Description != nil {
			found.Description = *req.Description
		}
		if err := s.repo.Update(ctx, tx, found); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrNameTaken
			}
			return err
		}
		dept = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Department names are denormalized into employee list responses.
	s.invalidate(ctx)
	return dept, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountEmployees(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrInUse
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrInUse
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *service) Statistics(ctx context.Context) ([]domain.Statistics, error) {
	key := cache.Key(cache.NamespaceDepartmentStat, nil)
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceDepartmentStat, key, cache.TTLStats,
		func(ctx context.Context) ([]domain.Statistics, error) {
			return s.repo.Statistics(ctx, s.db)
		})
}

func (s *service) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateNamespace(ctx,
		cache.NamespaceDepartmentList,
		cache.NamespaceDepartmentStat,
		cache.NamespaceEmployeeList,
	)
}
