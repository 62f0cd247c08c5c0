package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/clock"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	"github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/observability/logger"
	"github.com/smallbiznis/workforce/pkg/db"
	"github.com/smallbiznis/workforce/pkg/db/pagination"
)

const (
	bulkChunkSize      = 100
	purgeChunkSize     = 1000
	defaultRecentLimit = 10
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Repository  domain.Repository
	Departments deptdomain.Repository
	Cache       *cache.Bookkeeper
	Clock       clock.Clock
}

type service struct {
	db          *gorm.DB
	repo        domain.Repository
	departments deptdomain.Repository
	cache       *cache.Bookkeeper
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		repo:        p.Repository,
		departments: p.Departments,
		cache:       p.Cache,
		clock:       p.Clock,
	}
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) (*domain.ListResult, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.NamespaceEmployeeList, filter.CacheParams())
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceEmployeeList, key, cache.TTLList,
		func(ctx context.Context) (*domain.ListResult, error) {
			return s.listDirect(ctx, filter)
		})
}

func (s *service) listDirect(ctx context.Context, filter domain.ListFilter) (*domain.ListResult, error) {
	rows, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	data := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		data = append(data, domain.NewResponseFromRow(row))
	}
	return &domain.ListResult{
		Data: data,
		Meta: pagination.BuildMeta(total, pagination.Pagination{Page: filter.Page, PerPage: filter.PerPage}),
	}, nil
}

func (s *service) GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.Response, error) {
	if includeDeleted {
		// Deleted records bypass the cache; only active entities are tracked.
		return s.getDirect(ctx, id, true)
	}

	key := cache.EntityKey(cache.NamespaceEmployeeEntity, id)
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceEmployeeEntity, key, cache.TTLEntity,
		func(ctx context.Context) (*domain.Response, error) {
			return s.getDirect(ctx, id, false)
		})
}

func (s *service) getDirect(ctx context.Context, id string, includeDeleted bool) (*domain.Response, error) {
	employee, err := s.repo.FindByID(ctx, s.db, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	deptName, err := s.departmentName(ctx, employee.DepartmentID)
	if err != nil {
		return nil, err
	}
	resp := domain.NewResponse(*employee, deptName)
	return &resp, nil
}

func (s *service) Create(ctx context.Context, req domain.CreateEmployeeRequest) (*domain.Response, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	joined, err := s.parseJoinedDate(req.JoinedDate)
	if err != nil {
		return nil, err
	}

	dept, err := s.departments.FindByID(ctx, s.db, req.DepartmentID)
	if err != nil {
		if errors.Is(err, deptdomain.ErrNotFound) {
			return nil, domain.ErrUnknownDepartment
		}
		return nil, err
	}

	employee := &domain.Employee{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
		Detail: &domain.Detail{
			Designation: req.Designation,
			Salary:      req.Salary,
			Address:     req.Address,
			JoinedDate:  joined,
		},
	}
	employee.Detail.EmployeeID = employee.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.repo.EmailExists(ctx, tx, req.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}
		if err := s.repo.Insert(ctx, tx, employee); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			if db.IsForeignKeyErr(err) {
				return domain.ErrUnknownDepartment
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAfterWrite(ctx, employee.ID)
	resp := domain.NewResponse(*employee, dept.Name)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, req domain.UpdateEmployeeRequest) (*domain.Response, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	var employee *domain.Employee
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if found.Detail == nil {
			found.Detail = &domain.Detail{EmployeeID: found.ID}
		}

		if req.Email != nil && *req.Email != found.Email {
			taken, err := s.repo.EmailExists(ctx, tx, *req.Email, found.ID)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrEmailTaken
			}
			found.Email = *req.Email
		}
		if req.DepartmentID != nil && *req.DepartmentID != found.DepartmentID {
			if _, err := s.departments.FindByID(ctx, tx, *req.DepartmentID); err != nil {
				if errors.Is(err, deptdomain.ErrNotFound) {
					return domain.ErrUnknownDepartment
				}
				return err
			}
			found.DepartmentID = *req.DepartmentID
		}
		if req.Name != nil {
			found.Name = *req.Name
		}
		if req.Designation != nil {
			found.Detail.Designation = *req.Designation
		}
		if req.Salary != nil {
			found.Detail.Salary = *req.Salary
		}
		if req.Address != nil {
			found.Detail.Address = *req.Address
		}
		if req.JoinedDate != nil {
			joined, err := s.parseJoinedDate(*req.JoinedDate)
			if err != nil {
				return err
			}
			found.Detail.JoinedDate = joined
		}

		if err := s.repo.Update(ctx, tx, found); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		employee = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAfterWrite(ctx, employee.ID)

	deptName, err := s.departmentName(ctx, employee.DepartmentID)
	if err != nil {
		return nil, err
	}
	resp := domain.NewResponse(*employee, deptName)
	return &resp, nil
}

func (s *service) Delete(ctx context.Context, id string, force bool) error {
	var err error
	if force {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.repo.ForceDelete(ctx, tx, id)
		})
	} else {
		err = s.repo.SoftDelete(ctx, s.db, id)
	}
	if err != nil {
		return err
	}

	s.invalidateAfterWrite(ctx, id)
	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]domain.Response, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	key := cache.Key(cache.NamespaceEmployeeRecent, map[string]any{"limit": limit})
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceEmployeeRecent, key, cache.TTLRecent,
		func(ctx context.Context) ([]domain.Response, error) {
			rows, err := s.repo.Recent(ctx, s.db, limit)
			if err != nil {
				return nil, err
			}
			data := make([]domain.Response, 0, len(rows))
			for _, row := range rows {
				data = append(data, domain.NewResponseFromRow(row))
			}
			return data, nil
		})
}

func (s *service) Count(ctx context.Context) (int64, error) {
	key := cache.Key(cache.NamespaceEmployeeCount, nil)
	return cache.GetOrCompute(ctx, s.cache, cache.NamespaceEmployeeCount, key, cache.TTLStats,
		func(ctx context.Context) (int64, error) {
			return s.repo.Count(ctx, s.db)
		})
}

func (s *service) BulkCreate(ctx context.Context, reqs []domain.CreateEmployeeRequest) (*domain.BulkResult, error) {
	result := &domain.BulkResult{Requested: len(reqs)}

	type prepared struct {
		index    int
		employee *domain.Employee
	}
	valid := make([]prepared, 0, len(reqs))
	for i, req := range reqs {
		if err := validateCreate(req); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		joined, err := s.parseJoinedDate(req.JoinedDate)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		employee := &domain.Employee{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			DepartmentID: req.DepartmentID,
			Detail: &domain.Detail{
				Designation: req.Designation,
				Salary:      req.Salary,
				Address:     req.Address,
				JoinedDate:  joined,
			},
		}
		employee.Detail.EmployeeID = employee.ID
		valid = append(valid, prepared{index: i, employee: employee})
	}

	// One transaction per chunk: a failing chunk rolls back alone and the
	// remaining chunks still commit.
	for start := 0; start < len(valid); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(valid))
		chunk := valid[start:end]

		employees := make([]*domain.Employee, 0, len(chunk))
		for _, item := range chunk {
			employees = append(employees, item.employee)
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.repo.InsertBatch(ctx, tx, employees)
		})
		if err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors,
				fmt.Sprintf("items %d-%d: %v", chunk[0].index, chunk[len(chunk)-1].index, err))
			continue
		}
		result.Succeeded += len(chunk)
	}

	if result.Succeeded > 0 {
		s.invalidateAfterWrite(ctx, "")
	}
	return result, nil
}

func (s *service) BulkDelete(ctx context.Context, ids []string, force bool) (*domain.BulkResult, error) {
	result := &domain.BulkResult{Requested: len(ids)}

	for start := 0; start < len(ids); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(ids))
		chunk := ids[start:end]

		var deleted, missing int
		var missingErrs []string
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			deleted, missing = 0, 0
			missingErrs = missingErrs[:0]
			for _, id := range chunk {
				var err error
				if force {
					err = s.repo.ForceDelete(ctx, tx, id)
				} else {
					err = s.repo.SoftDelete(ctx, tx, id)
				}
				if errors.Is(err, domain.ErrNotFound) {
					missing++
					missingErrs = append(missingErrs, fmt.Sprintf("employee %s: not found", id))
					continue
				}
				if err != nil {
					return err
				}
				deleted++
			}
			return nil
		})
		if err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors, fmt.Sprintf("chunk starting at %s: %v", chunk[0], err))
			continue
		}
		result.Succeeded += deleted
		result.Failed += missing
		result.Errors = append(result.Errors, missingErrs...)
	}

	if result.Succeeded > 0 {
		s.invalidateAfterWrite(ctx, "")
		for _, id := range ids {
			_ = s.cache.InvalidateKeys(ctx, cache.EntityKey(cache.NamespaceEmployeeEntity, id))
		}
	}
	return result, nil
}

func (s *service) PurgeDeleted(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -olderThanDays)
	purged, err := s.repo.PurgeDeletedBefore(ctx, s.db, cutoff, purgeChunkSize)
	if err != nil {
		return purged, err
	}
	if purged > 0 {
		logger.FromContext(ctx).Info("purged soft-deleted employees",
			zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// warmupSorts are the sort orders precomputed by WarmCaches, matching the
// combinations list clients request most.
var warmupSorts = []struct{ by, dir string }{
	{domain.SortByName, domain.SortAsc},
	{domain.SortByEmail, domain.SortAsc},
	{domain.SortByJoinedDate, domain.SortAsc},
	{domain.SortByJoinedDate, domain.SortDesc},
	{domain.SortBySalary, domain.SortAsc},
	{domain.SortBySalary, domain.SortDesc},
}

var warmupPerPages = []int{15, 25, 50}

func (s *service) WarmCaches(ctx context.Context) error {
	for _, perPage := range warmupPerPages {
		for _, sort := range warmupSorts {
			filter, err := normalizeFilter(domain.ListFilter{
				Page:    1,
				PerPage: perPage,
				SortBy:  sort.by,
				SortDir: sort.dir,
			})
			if err != nil {
				return err
			}

			result, err := s.listDirect(ctx, filter)
			if err != nil {
				return err
			}
			key := cache.Key(cache.NamespaceEmployeeList, filter.CacheParams())
			if err := s.cache.Put(ctx, cache.NamespaceEmployeeList, key, result, cache.TTLWarmup); err != nil {
				logger.FromContext(ctx).Warn("cache warmup write failed",
					zap.String("key", key), zap.Error(err))
			}
		}
	}

	if _, err := s.Recent(ctx, defaultRecentLimit); err != nil {
		return err
	}
	_, err := s.Count(ctx)
	return err
}

func (s *service) InvalidateCaches(ctx context.Context) error {
	return s.cache.InvalidateNamespace(ctx,
		cache.NamespaceEmployeeList,
		cache.NamespaceEmployeeEntity,
		cache.NamespaceEmployeeRecent,
		cache.NamespaceEmployeeCount,
		cache.NamespaceDepartmentStat,
	)
}

func (s *service) invalidateAfterWrite(ctx context.Context, id string) {
	_ = s.cache.InvalidateNamespace(ctx,
		cache.NamespaceEmployeeList,
		cache.NamespaceEmployeeRecent,
		cache.NamespaceEmployeeCount,
		cache.NamespaceDepartmentStat,
	)
	if id != "" {
		_ = s.cache.InvalidateKeys(ctx, cache.EntityKey(cache.NamespaceEmployeeEntity, id))
	}
}

func (s *service) departmentName(ctx context.Context, id int64) (string, error) {
	dept, err := s.departments.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, deptdomain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return dept.Name, nil
}

func normalizeFilter(filter domain.ListFilter) (domain.ListFilter, error) {
	page := pagination.Pagination{Page: filter.Page, PerPage: filter.PerPage}.Normalize()
	filter.Page = page.Page
	filter.PerPage = page.PerPage
	if filter.SortBy == "" {
		filter.SortBy = domain.SortByName
	}
	if filter.SortDir == "" {
		filter.SortDir = domain.SortAsc
	}

	err := validation.Errors{
		"sort_by": validation.Validate(filter.SortBy, validation.In(
			domain.SortByName, domain.SortByEmail, domain.SortByJoinedDate, domain.SortBySalary)),
		"sort_dir": validation.Validate(filter.SortDir, validation.In(domain.SortAsc, domain.SortDesc)),
		"max_salary": validation.Validate(filter.MaxSalary,
			validation.When(filter.MaxSalary > 0,
				validation.Min(filter.MinSalary).Error("must be no less than min_salary"))),
	}.Filter()
	if err != nil {
		return filter, err
	}
	return filter, nil
}

func validateCreate(req domain.CreateEmployeeRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		validation.Field(&req.DepartmentID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Designation, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Salary, validation.Required, validation.Min(0.0)),
		validation.Field(&req.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.JoinedDate, validation.Required, validation.Date(domain.DateFormat)),
	)
}

// validateUpdate allows partial bodies for PATCH. A replace request (PUT)
// must carry every field.
func validateUpdate(req domain.UpdateEmployeeRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.When(req.Replace, validation.Required), validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&req.Email, validation.When(req.Replace, validation.Required), validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&req.DepartmentID, validation.When(req.Replace, validation.Required), validation.Min(int64(1))),
		validation.Field(&req.Designation, validation.When(req.Replace, validation.Required), validation.Length(1, 255)),
		validation.Field(&req.Salary, validation.When(req.Replace, validation.Required), validation.Min(0.0)),
		validation.Field(&req.Address, validation.When(req.Replace, validation.Required), validation.Length(1, 255)),
		validation.Field(&req.JoinedDate, validation.When(req.Replace, validation.Required), validation.Date(domain.DateFormat)),
	)
}

func (s *service) parseJoinedDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(domain.DateFormat, raw)
	if err != nil {
		return time.Time{}, validation.Errors{"joined_date": errors.New("must be formatted as YYYY-MM-DD")}
	}
	if parsed.After(s.clock.Now()) {
		return time.Time{}, validation.Errors{"joined_date": errors.New("must not be in the future")}
	}
	return parsed, nil
}
