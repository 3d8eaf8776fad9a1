package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
)

var (
	courseColumns  = []string{"id", "title", "description", "status", "created_at", "department_id", "speciality_id", "owner_id"}
	memberColumns  = []string{"id", "user_id", "course_id", "role", "created_at"}
	chapterColumns = []string{"id", "title", "description", "created_at", "course_id"}
	postColumns    = []string{"id", "title", "body", "created_at", "edited_at", "published_at", "is_archived", "chapter_id", "author_id"}
	taskColumns    = append(postColumns[:len(postColumns):len(postColumns)], "max_grade", "deadline")
	workColumns    = []string{"id", "task_id", "owner_id", "status", "answer", "submitted_at"}
	gradeColumns   = []string{"id", "description", "amount", "created_at", "work_id", "grader_id"}
	attachColumns  = []string{"id", "parent_kind", "parent_id", "file_name", "file_path"}
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

// courses

func scanCourse(row sq.RowScanner) (course.Course, error) {
	var (
		crs        course.Course
		depID      null.Int
		specID     null.Int
		ownerID    null.Int
	)
	err := row.Scan(&crs.ID, &crs.Title, &crs.Description, &crs.Status, &crs.CreatedAt, &depID, &specID, &ownerID)
	if err != nil {
		return course.Course{}, err
	}
	if depID.Valid {
		crs.DepartmentID = &depID.Int
	}
	if specID.Valid {
		crs.SpecialityID = &specID.Int
	}
	if ownerID.Valid {
		crs.OwnerID = &ownerID.Int
	}
	return crs, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := psql.Insert("course").
		Columns(courseColumns[1:]...).
		Values(c.Title, c.Description, c.Status, c.CreatedAt, null.IntFromPtr(c.DepartmentID), null.IntFromPtr(c.SpecialityID), null.IntFromPtr(c.OwnerID)).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&c.ID)
	return c, errors.Wrap(err, "inserting course")
}

func (repo courseRepository) GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	row := psql.Select(courseColumns...).From("course").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	crs, err := scanCourse(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.CourseFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	q := psql.Select(
		"c.id", "c.title", "c.description", "c.status", "c.created_at", "c.department_id", "c.speciality_id", "c.owner_id",
	).From("course c")
	if filter != nil && filter.EnrolledUserID != 0 {
		q = q.Join("course_member m ON m.course_id = c.id").
			Where(sq.Eq{"m.user_id": filter.EnrolledUserID})
	}
	q = q.OrderBy("c.created_at DESC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	defer func() { _ = rows.Close() }()

	courses := make([]course.Course, 0)
	for rows.Next() {
		crs, err := scanCourse(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning course")
		}
		courses = append(courses, crs)
	}
	return courses, errors.Wrap(rows.Err(), "querying courses")
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	res, err := psql.Update("course").
		Set("title", c.Title).
		Set("description", c.Description).
		Set("status", c.Status).
		Set("department_id", null.IntFromPtr(c.DepartmentID)).
		Set("speciality_id", null.IntFromPtr(c.SpecialityID)).
		Set("owner_id", null.IntFromPtr(c.OwnerID)).
		Where(sq.Eq{"id": c.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("course").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrCourseNotFound
	}
	return nil
}

// members

func scanMember(row sq.RowScanner) (course.CourseMember, error) {
	var m course.CourseMember
	err := row.Scan(&m.ID, &m.UserID, &m.CourseID, &m.Role, &m.CreatedAt)
	return m, err
}

func (repo courseRepository) CreateMember(ctx context.Context, m course.CourseMember, exec ...core.DBExecutor) (course.CourseMember, error) {
	err := psql.Insert("course_member").
		Columns(memberColumns[1:]...).
		Values(m.UserID, m.CourseID, m.Role, m.CreatedAt).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return course.CourseMember{}, course.ErrAlreadyEnrolled
		}
		return course.CourseMember{}, errors.Wrap(err, "inserting course member")
	}
	return m, nil
}

func (repo courseRepository) GetMember(ctx context.Context, courseID, userID int, exec ...core.DBExecutor) (course.CourseMember, error) {
	row := psql.Select(memberColumns...).From("course_member").
		Where(sq.Eq{"course_id": courseID, "user_id": userID}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	m, err := scanMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.CourseMember{}, course.ErrMemberNotFound
		}
		return course.CourseMember{}, errors.Wrap(err, "getting course member")
	}
	return m, nil
}

func (repo courseRepository) GetMemberByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.CourseMember, error) {
	row := psql.Select(memberColumns...).From("course_member").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	m, err := scanMember(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.CourseMember{}, course.ErrMemberNotFound
		}
		return course.CourseMember{}, errors.Wrap(err, "getting course member")
	}
	return m, nil
}

func (repo courseRepository) QueryMembers(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.CourseMember, error) {
	rows, err := psql.Select(memberColumns...).From("course_member").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("created_at ASC").
		RunWith(getExec(repo.exec, exec)).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying course members")
	}
	defer func() { _ = rows.Close() }()

	members := make([]course.CourseMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning course member")
		}
		members = append(members, m)
	}
	return members, errors.Wrap(rows.Err(), "querying course members")
}

// chapters

func scanChapter(row sq.RowScanner) (course.Chapter, error) {
	var ch course.Chapter
	err := row.Scan(&ch.ID, &ch.Title, &ch.Description, &ch.CreatedAt, &ch.CourseID)
	return ch, err
}

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	err := psql.Insert("chapter").
		Columns(chapterColumns[1:]...).
		Values(ch.Title, ch.Description, ch.CreatedAt, ch.CourseID).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&ch.ID)
	return ch, errors.Wrap(err, "inserting chapter")
}

func (repo courseRepository) GetChapter(ctx context.Context, courseID, id int, exec ...core.DBExecutor) (course.Chapter, error) {
	row := psql.Select(chapterColumns...).From("chapter").
		Where(sq.Eq{"course_id": courseID, "id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	ch, err := scanChapter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Chapter{}, course.ErrChapterNotFound
		}
		return course.Chapter{}, errors.Wrap(err, "getting chapter")
	}
	return ch, nil
}

func (repo courseRepository) QueryChapters(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Chapter, error) {
	rows, err := psql.Select(chapterColumns...).From("chapter").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("created_at ASC").
		RunWith(getExec(repo.exec, exec)).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	defer func() { _ = rows.Close() }()

	chapters := make([]course.Chapter, 0)
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning chapter")
		}
		chapters = append(chapters, ch)
	}
	return chapters, errors.Wrap(rows.Err(), "querying chapters")
}

func (repo courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	res, err := psql.Update("chapter").
		Set("title", ch.Title).
		Set("description", ch.Description).
		Where(sq.Eq{"id": ch.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "updating chapter")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	return ch, nil
}

func (repo courseRepository) DeleteChapter(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("chapter").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrChapterNotFound
	}
	return nil
}

// materials

func scanPost(row sq.RowScanner) (course.Post, error) {
	var p course.Post
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt, &p.EditedAt, &p.PublishedAt, &p.IsArchived, &p.ChapterID, &p.AuthorID)
	return p, err
}

// visibleOnly keeps published, non-archived posts.
func visibleOnly(q sq.SelectBuilder, filter *course.PostFilter) sq.SelectBuilder {
	if filter != nil && filter.VisibleOnly {
		q = q.Where(sq.Eq{"is_archived": false}).Where(sq.Expr("published_at <= NOW()"))
	}
	return q
}

func (repo courseRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	err := psql.Insert("material").
		Columns(postColumns[1:]...).
		Values(m.Title, m.Body, m.CreatedAt, m.EditedAt, m.PublishedAt, m.IsArchived, m.ChapterID, m.AuthorID).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&m.ID)
	return m, errors.Wrap(err, "inserting material")
}

func (repo courseRepository) GetMaterial(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (course.Material, error) {
	row := psql.Select(postColumns...).From("material").
		Where(sq.Eq{"chapter_id": chapterID, "id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	p, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Material{}, course.ErrMaterialNotFound
		}
		return course.Material{}, errors.Wrap(err, "getting material")
	}
	return course.Material{Post: p}, nil
}

func (repo courseRepository) QueryMaterials(ctx context.Context, chapterID int, filter *course.PostFilter, exec ...core.DBExecutor) ([]course.Material, error) {
	q := psql.Select(postColumns...).From("material").Where(sq.Eq{"chapter_id": chapterID})
	q = visibleOnly(q, filter).OrderBy("published_at ASC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	defer func() { _ = rows.Close() }()

	materials := make([]course.Material, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning material")
		}
		materials = append(materials, course.Material{Post: p})
	}
	return materials, errors.Wrap(rows.Err(), "querying materials")
}

func (repo courseRepository) UpdateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	res, err := psql.Update("material").
		Set("title", m.Title).
		Set("body", m.Body).
		Set("edited_at", m.EditedAt).
		Set("published_at", m.PublishedAt).
		Set("is_archived", m.IsArchived).
		Where(sq.Eq{"id": m.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "updating material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Material{}, course.ErrMaterialNotFound
	}
	return m, nil
}

func (repo courseRepository) DeleteMaterial(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("material").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrMaterialNotFound
	}
	return nil
}

// tasks

func scanTask(row sq.RowScanner) (course.Task, error) {
	var t course.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Body, &t.CreatedAt, &t.EditedAt, &t.PublishedAt, &t.IsArchived, &t.ChapterID, &t.AuthorID,
		&t.MaxGrade, &t.Deadline,
	)
	return t, err
}

func (repo courseRepository) CreateTask(ctx context.Context, t course.Task, exec ...core.DBExecutor) (course.Task, error) {
	err := psql.Insert("task").
		Columns(taskColumns[1:]...).
		Values(t.Title, t.Body, t.CreatedAt, t.EditedAt, t.PublishedAt, t.IsArchived, t.ChapterID, t.AuthorID, t.MaxGrade, t.Deadline).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&t.ID)
	return t, errors.Wrap(err, "inserting task")
}

func (repo courseRepository) GetTask(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (course.Task, error) {
	row := psql.Select(taskColumns...).From("task").
		Where(sq.Eq{"chapter_id": chapterID, "id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Task{}, course.ErrTaskNotFound
		}
		return course.Task{}, errors.Wrap(err, "getting task")
	}
	return t, nil
}

func (repo courseRepository) GetTaskByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Task, error) {
	row := psql.Select(taskColumns...).From("task").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Task{}, course.ErrTaskNotFound
		}
		return course.Task{}, errors.Wrap(err, "getting task")
	}
	return t, nil
}

func (repo courseRepository) QueryTasks(ctx context.Context, chapterID int, filter *course.PostFilter, exec ...core.DBExecutor) ([]course.Task, error) {
	q := psql.Select(taskColumns...).From("task").Where(sq.Eq{"chapter_id": chapterID})
	q = visibleOnly(q, filter).OrderBy("published_at ASC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]course.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning task")
		}
		tasks = append(tasks, t)
	}
	return tasks, errors.Wrap(rows.Err(), "querying tasks")
}

func (repo courseRepository) UpdateTask(ctx context.Context, t course.Task, exec ...core.DBExecutor) (course.Task, error) {
	res, err := psql.Update("task").
		Set("title", t.Title).
		Set("body", t.Body).
		Set("edited_at", t.EditedAt).
		Set("published_at", t.PublishedAt).
		Set("is_archived", t.IsArchived).
		Set("max_grade", t.MaxGrade).
		Set("deadline", t.Deadline).
		Where(sq.Eq{"id": t.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "updating task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Task{}, course.ErrTaskNotFound
	}
	return t, nil
}

func (repo courseRepository) DeleteTask(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("task").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrTaskNotFound
	}
	return nil
}

// student works

func scanWork(row sq.RowScanner) (course.StudentWork, error) {
	var (
		w           course.StudentWork
		submittedAt null.Time
	)
	err := row.Scan(&w.ID, &w.TaskID, &w.OwnerID, &w.Status, &w.Answer, &submittedAt)
	if err != nil {
		return course.StudentWork{}, err
	}
	w.SubmittedAt = submittedAt.Ptr()
	return w, nil
}

func (repo courseRepository) CreateWork(ctx context.Context, w course.StudentWork, exec ...core.DBExecutor) (course.StudentWork, error) {
	err := psql.Insert("student_work").
		Columns(workColumns[1:]...).
		Values(w.TaskID, w.OwnerID, w.Status, w.Answer, null.TimeFromPtr(w.SubmittedAt)).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&w.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return course.StudentWork{}, course.ErrWorkExists
		}
		return course.StudentWork{}, errors.Wrap(err, "inserting student work")
	}
	return w, nil
}

func (repo courseRepository) GetWork(ctx context.Context, taskID, id int, exec ...core.DBExecutor) (course.StudentWork, error) {
	row := psql.Select(workColumns...).From("student_work").
		Where(sq.Eq{"task_id": taskID, "id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	w, err := scanWork(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.StudentWork{}, course.ErrWorkNotFound
		}
		return course.StudentWork{}, errors.Wrap(err, "getting student work")
	}
	return w, nil
}

func (repo courseRepository) GetWorkByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.StudentWork, error) {
	row := psql.Select(workColumns...).From("student_work").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	w, err := scanWork(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.StudentWork{}, course.ErrWorkNotFound
		}
		return course.StudentWork{}, errors.Wrap(err, "getting student work")
	}
	return w, nil
}

func (repo courseRepository) QueryWorks(ctx context.Context, taskID int, filter *course.WorkFilter, exec ...core.DBExecutor) ([]course.StudentWork, error) {
	q := psql.Select(workColumns...).From("student_work").Where(sq.Eq{"task_id": taskID})
	if filter != nil {
		if filter.OwnerMemberID != 0 {
			q = q.Where(sq.Eq{"owner_id": filter.OwnerMemberID})
		}
		if filter.SubmittedOrGraded {
			q = q.Where(sq.Eq{"status": []string{course.WorkSubmitted, course.WorkGraded}})
		}
	}
	q = q.OrderBy("id ASC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying student works")
	}
	defer func() { _ = rows.Close() }()

	works := make([]course.StudentWork, 0)
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student work")
		}
		works = append(works, w)
	}
	return works, errors.Wrap(rows.Err(), "querying student works")
}

func (repo courseRepository) UpdateWork(ctx context.Context, w course.StudentWork, exec ...core.DBExecutor) (course.StudentWork, error) {
	res, err := psql.Update("student_work").
		Set("status", w.Status).
		Set("answer", w.Answer).
		Set("submitted_at", null.TimeFromPtr(w.SubmittedAt)).
		Where(sq.Eq{"id": w.ID}).
		RunWith(getExec(repo.exec, exec)).
		ExecContext(ctx)
	if err != nil {
		return course.StudentWork{}, errors.Wrap(err, "updating student work")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.StudentWork{}, course.ErrWorkNotFound
	}
	return w, nil
}

func (repo courseRepository) DeleteWork(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("student_work").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting student work")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrWorkNotFound
	}
	return nil
}

// grades

func scanGrade(row sq.RowScanner) (course.Grade, error) {
	var (
		g        course.Grade
		graderID null.Int
	)
	err := row.Scan(&g.ID, &g.Description, &g.Amount, &g.CreatedAt, &g.WorkID, &graderID)
	if err != nil {
		return course.Grade{}, err
	}
	if graderID.Valid {
		g.GraderID = &graderID.Int
	}
	return g, nil
}

func (repo courseRepository) CreateGrade(ctx context.Context, g course.Grade, exec ...core.DBExecutor) (course.Grade, error) {
	err := psql.Insert("grade").
		Columns(gradeColumns[1:]...).
		Values(g.Description, g.Amount, g.CreatedAt, g.WorkID, null.IntFromPtr(g.GraderID)).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Grade{}, course.ErrAlreadyGraded
		}
		return course.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

func (repo courseRepository) GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (course.Grade, error) {
	row := psql.Select(gradeColumns...).From("grade").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	g, err := scanGrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Grade{}, course.ErrGradeNotFound
		}
		return course.Grade{}, errors.Wrap(err, "getting grade")
	}
	return g, nil
}

func (repo courseRepository) QueryGrades(ctx context.Context, courseID int, filter *course.GradeFilter, exec ...core.DBExecutor) ([]course.Grade, error) {
	q := psql.Select("g.id", "g.description", "g.amount", "g.created_at", "g.work_id", "g.grader_id").
		From("grade g").
		Join("student_work w ON w.id = g.work_id").
		Join("task t ON t.id = w.task_id").
		Join("chapter ch ON ch.id = t.chapter_id").
		Where(sq.Eq{"ch.course_id": courseID})
	if filter != nil {
		if filter.OwnerMemberID != 0 {
			q = q.Where(sq.Eq{"w.owner_id": filter.OwnerMemberID})
		}
		if filter.StudentUserID != 0 {
			q = q.Join("course_member m ON m.id = w.owner_id").
				Where(sq.Eq{"m.user_id": filter.StudentUserID})
		}
		if filter.TaskID != 0 {
			q = q.Where(sq.Eq{"w.task_id": filter.TaskID})
		}
	}
	q = q.OrderBy("g.created_at DESC")

	rows, err := q.RunWith(getExec(repo.exec, exec)).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	defer func() { _ = rows.Close() }()

	grades := make([]course.Grade, 0)
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning grade")
		}
		grades = append(grades, g)
	}
	return grades, errors.Wrap(rows.Err(), "querying grades")
}

func (repo courseRepository) DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("grade").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrGradeNotFound
	}
	return nil
}

// attachments

func scanAttachment(row sq.RowScanner) (course.Attachment, error) {
	var a course.Attachment
	err := row.Scan(&a.ID, &a.ParentKind, &a.ParentID, &a.FileName, &a.FilePath)
	return a, err
}

func (repo courseRepository) CreateAttachment(ctx context.Context, a course.Attachment, exec ...core.DBExecutor) (course.Attachment, error) {
	err := psql.Insert("attachment").
		Columns(attachColumns[1:]...).
		Values(a.ParentKind, a.ParentID, a.FileName, a.FilePath).
		Suffix("RETURNING id").
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx).
		Scan(&a.ID)
	return a, errors.Wrap(err, "inserting attachment")
}

func (repo courseRepository) GetAttachment(ctx context.Context, id int, exec ...core.DBExecutor) (course.Attachment, error) {
	row := psql.Select(attachColumns...).From("attachment").
		Where(sq.Eq{"id": id}).
		RunWith(getExec(repo.exec, exec)).
		QueryRowContext(ctx)
	a, err := scanAttachment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Attachment{}, course.ErrAttachmentNotFound
		}
		return course.Attachment{}, errors.Wrap(err, "getting attachment")
	}
	return a, nil
}

func (repo courseRepository) QueryAttachments(ctx context.Context, kind string, parentID int, exec ...core.DBExecutor) ([]course.Attachment, error) {
	rows, err := psql.Select(attachColumns...).From("attachment").
		Where(sq.Eq{"parent_kind": kind, "parent_id": parentID}).
		OrderBy("id ASC").
		RunWith(getExec(repo.exec, exec)).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying attachments")
	}
	defer func() { _ = rows.Close() }()

	attachments := make([]course.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning attachment")
		}
		attachments = append(attachments, a)
	}
	return attachments, errors.Wrap(rows.Err(), "querying attachments")
}

func (repo courseRepository) DeleteAttachment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := psql.Delete("attachment").Where(sq.Eq{"id": id}).RunWith(getExec(repo.exec, exec)).ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "deleting attachment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrAttachmentNotFound
	}
	return nil
}
