package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/uni"
)

type uniRepository struct {
	exec core.DBExecutor
}

var _ uni.Repository = (*uniRepository)(nil) // interface compliance check

func NewUniRepository(exec core.DBExecutor) *uniRepository {
	return &uniRepository{exec: exec}
}

func (repo uniRepository) CreateDepartment(ctx context.Context, d uni.Department, exec ...core.DBExecutor) (uni.Department, error) {
	err := psql.Insert("department").
		Columns("title").
		Values(d.Title).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&d.ID)
	return d, errors.Wrap(err, "inserting department")
}

func (repo uniRepository) GetDepartment(ctx context.Context, id int, exec ...core.DBExecutor) (uni.Department, error) {
	var d uni.Department
	err := psql.Select("id", "title").From("department").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&d.ID, &d.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return uni.Department{}, uni.ErrDepartmentNotFound
		}
		return uni.Department{}, errors.Wrap(err, "getting department")
	}
	return d, nil
}

func (repo uniRepository) QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]uni.Department, error) {
	rows, err := psql.Select("id", "title").From("department").
		OrderBy("title ASC").
		RunWith(getExec(repo.exec, exec)).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying departments")
	}
	defer func() { _ = rows.Close() }()

	departments := make([]uni.Department, 0)
	for rows.Next() {
		var d uni.Department
		if err = rows.Scan(&d.ID, &d.Title); err != nil {
			return nil, errors.Wrap(err, "scanning department")
		}
		departments = append(departments, d)
	}
	return departments, errors.Wrap(rows.Err(), "querying departments")
}

func (repo uniRepository) CreateSpeciality(ctx context.Context, s uni.Speciality, exec ...core.DBExecutor) (uni.Speciality, error) {
	err := psql.Insert("speciality").
		Columns("title", "code", "department_id").
		Values(s.Title, s.Code, s.DepartmentID).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&s.ID)
	return s, errors.Wrap(err, "inserting speciality")
}

func (repo uniRepository) GetSpeciality(ctx context.Context, id int, exec ...core.DBExecutor) (uni.Speciality, error) {
	var s uni.Speciality
	err := psql.Select("id", "title", "code", "department_id").From("speciality").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&s.ID, &s.Title, &s.Code, &s.DepartmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uni.Speciality{}, uni.ErrSpecialityNotFound
		}
		return uni.Speciality{}, errors.Wrap(err, "getting speciality")
	}
	return s, nil
}

func (repo uniRepository) QuerySpecialities(ctx context.Context, departmentID int, exec ...core.DBExecutor) ([]uni.Speciality, error) {
	q := psql.Select("id", "title", "code", "department_id").From("speciality")
	if departmentID != 0 {
		q = q.Where(sq.Eq{"department_id": departmentID})
	}
	q = q.OrderBy("title ASC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying specialities")
	}
	defer func() { _ = rows.Close() }()

	specialities := make([]uni.Speciality, 0)
	for rows.Next() {
		var s uni.Speciality
		if err = rows.Scan(&s.ID, &s.Title, &s.Code, &s.DepartmentID); err != nil {
			return nil, errors.Wrap(err, "scanning speciality")
		}
		specialities = append(specialities, s)
	}
	return specialities, errors.Wrap(rows.Err(), "querying specialities")
}
