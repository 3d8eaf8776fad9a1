package dummydb

import (
	"context"
	"sort"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/uni"
)

type uniRepository struct {
	db *DB
}

var _ uni.Repository = (*uniRepository)(nil) // interface compliance check

func NewUniRepository(db *DB) uni.Repository {
	return &uniRepository{db: db}
}

func (repo *uniRepository) CreateDepartment(ctx context.Context, d uni.Department, exec ...core.DBExecutor) (uni.Department, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = repo.db.nextPK()
	repo.db.departments[d.ID] = &d
	return d, nil
}

func (repo *uniRepository) GetDepartment(ctx context.Context, id int, exec ...core.DBExecutor) (uni.Department, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.departments[id]; ok {
		return *d, nil
	}
	return uni.Department{}, uni.ErrDepartmentNotFound
}

func (repo *uniRepository) QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]uni.Department, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	departments := make([]uni.Department, 0, len(repo.db.departments))
	for _, d := range repo.db.departments {
		departments = append(departments, *d)
	}
	sort.Slice(departments, func(i, j int) bool { return departments[i].ID < departments[j].ID })
	return departments, nil
}

func (repo *uniRepository) CreateSpeciality(ctx context.Context, s uni.Speciality, exec ...core.DBExecutor) (uni.Speciality, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = repo.db.nextPK()
	repo.db.specialities[s.ID] = &s
	return s, nil
}

func (repo *uniRepository) GetSpeciality(ctx context.Context, id int, exec ...core.DBExecutor) (uni.Speciality, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.specialities[id]; ok {
		return *s, nil
	}
	return uni.Speciality{}, uni.ErrSpecialityNotFound
}

func (repo *uniRepository) QuerySpecialities(ctx context.Context, departmentID int, exec ...core.DBExecutor) ([]uni.Speciality, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	specialities := make([]uni.Speciality, 0)
	for _, s := range repo.db.specialities {
		if departmentID != 0 && s.DepartmentID != departmentID {
			continue
		}
		specialities = append(specialities, *s)
	}
	sort.Slice(specialities, func(i, j int) bool { return specialities[i].ID < specialities[j].ID })
	return specialities, nil
}
