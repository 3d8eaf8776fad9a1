package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

var userColumns = []string{
	"id", "first_name", "last_name", "middle_name", "email", "email_confirmed",
	"two_fa_enabled", "is_active", "is_admin", "password_hash",
	"profile_kind", "scientific_degree", "position", "student_card_id",
	"created_at", "updated_at", "last_login",
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func scanUser(row sq.RowScanner) (user.User, error) {
	var (
		usr       user.User
		profile   user.Profile
		lastLogin null.Time
	)
	err := row.Scan(
		&usr.ID, &usr.FirstName, &usr.LastName, &usr.MiddleName, &usr.Email, &usr.EmailConfirmed,
		&usr.TwoFAEnabled, &usr.IsActive, &usr.IsAdmin, &usr.PasswordHash,
		&profile.Kind, &profile.ScientificDegree, &profile.Position, &profile.StudentCardID,
		&usr.CreatedAt, &usr.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return user.User{}, err
	}
	usr.Profile = &profile
	usr.LastLogin = lastLogin.Time
	return usr, nil
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	q := psql.Select("COUNT(1)").From(`"user"`).Where(sq.Eq{"email": email})
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	var count int
	if err := q.RunWith(getExec(repo.exec, exec)).QueryRowContext(ctx).Scan(&count); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	profile := usr.Profile
	if profile == nil {
		profile = &user.Profile{}
	}
	err := psql.Insert(`"user"`).
		Columns(userColumns[1:]...).
		Values(
			usr.FirstName, usr.LastName, usr.MiddleName, usr.Email, usr.EmailConfirmed,
			usr.TwoFAEnabled, usr.IsActive, usr.IsAdmin, usr.PasswordHash,
			profile.Kind, profile.ScientificDegree, profile.Position, profile.StudentCardID,
			usr.CreatedAt, usr.UpdatedAt, null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
		).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&usr.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, errors.New("empty user filter")
	}

	usr, err := scanUser(q.RunWith(getExec(repo.exec, exec)).QueryRowContext(ctx))
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"first_name": pattern},
				sq.ILike{"last_name": pattern},
				sq.ILike{"middle_name": pattern},
				sq.ILike{"email": pattern},
			})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo})
		}
	}
	for _, ord := range ordering {
		q = q.OrderBy(ord.String())
	}

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]user.User, 0)
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "querying users")
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	profile := usr.Profile
	if profile == nil {
		profile = &user.Profile{}
	}
	res, err := psql.Update(`"user"`).
		Set("first_name", usr.FirstName).
		Set("last_name", usr.LastName).
		Set("middle_name", usr.MiddleName).
		Set("email", usr.Email).
		Set("email_confirmed", usr.EmailConfirmed).
		Set("two_fa_enabled", usr.TwoFAEnabled).
		Set("is_active", usr.IsActive).
		Set("password_hash", usr.PasswordHash).
		Set("scientific_degree", profile.ScientificDegree).
		Set("position", profile.Position).
		Set("student_card_id", profile.StudentCardID).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero())).
		Where(sq.Eq{"id": usr.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete(`"user"`).
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
