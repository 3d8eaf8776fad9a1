// Package uni holds the university reference data courses are catalogued
// under: departments and their specialities.
package uni

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrSpecialityNotFound = errors.New("speciality not found")
)

type Department struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type Speciality struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Code         string `json:"code"`
	DepartmentID int    `json:"department_id"`
}

type NewDepartment struct {
	Title string `json:"title" validate:"required,min=2,title"`
}

func (nd *NewDepartment) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	return validate.Struct(nd)
}

type NewSpeciality struct {
	Title        string `json:"title" validate:"required,min=2,title"`
	Code         string `json:"code" validate:"required"`
	DepartmentID int    `json:"department_id" validate:"required"`
}

func (ns *NewSpeciality) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Code = core.CleanString(ns.Code)
	return validate.Struct(ns)
}

type (
	Repository interface {
		CreateDepartment(ctx context.Context, d Department, exec ...core.DBExecutor) (Department, error)
		GetDepartment(ctx context.Context, id int, exec ...core.DBExecutor) (Department, error)
		QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]Department, error)

		CreateSpeciality(ctx context.Context, s Speciality, exec ...core.DBExecutor) (Speciality, error)
		GetSpeciality(ctx context.Context, id int, exec ...core.DBExecutor) (Speciality, error)
		QuerySpecialities(ctx context.Context, departmentID int, exec ...core.DBExecutor) ([]Speciality, error)
	}

	Service interface {
		CreateDepartment(ctx context.Context, nd NewDepartment) (Department, error)
		GetDepartment(ctx context.Context, id int) (Department, error)
		QueryDepartments(ctx context.Context) ([]Department, error)

		CreateSpeciality(ctx context.Context, ns NewSpeciality) (Speciality, error)
		GetSpeciality(ctx context.Context, id int) (Speciality, error)
		// QuerySpecialities lists all specialities, or one department's when
		// departmentID is non-zero.
		QuerySpecialities(ctx context.Context, departmentID int) ([]Speciality, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateDepartment(ctx context.Context, nd NewDepartment) (Department, error) {
	return svc.repo.CreateDepartment(ctx, Department{Title: nd.Title})
}

func (svc *service) GetDepartment(ctx context.Context, id int) (Department, error) {
	return svc.repo.GetDepartment(ctx, id)
}

func (svc *service) QueryDepartments(ctx context.Context) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx)
}

func (svc *service) CreateSpeciality(ctx context.Context, ns NewSpeciality) (Speciality, error) {
	if _, err := svc.repo.GetDepartment(ctx, ns.DepartmentID); err != nil {
		if errors.Cause(err) == ErrDepartmentNotFound {
			return Speciality{}, core.NewValidationError(err, core.FieldError{Field: "department_id", Error: ErrDepartmentNotFound.Error()})
		}
		return Speciality{}, err
	}
	return svc.repo.CreateSpeciality(ctx, Speciality{
		Title:        ns.Title,
		Code:         ns.Code,
		DepartmentID: ns.DepartmentID,
	})
}

func (svc *service) GetSpeciality(ctx context.Context, id int) (Speciality, error) {
	return svc.repo.GetSpeciality(ctx, id)
}

func (svc *service) QuerySpecialities(ctx context.Context, departmentID int) ([]Speciality, error) {
	return svc.repo.QuerySpecialities(ctx, departmentID)
}
