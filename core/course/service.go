package course

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

var (
	// errors
	ErrCourseNotFound     = errors.New("course not found")
	ErrMemberNotFound     = errors.New("course member not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrWorkNotFound       = errors.New("student work not found")
	ErrGradeNotFound      = errors.New("grade not found")
	ErrAttachmentNotFound = errors.New("attachment not found")

	ErrAlreadyEnrolled = errors.New("this user is already enrolled in this course")
	ErrWorkExists      = errors.New("you have already created a work for this task")
	ErrAlreadyGraded   = errors.New("This work is already graded or do not exist.")
	ErrGradeTooBig     = errors.New("The amount exceeds the maximum grade for this task.")
)

type (
	// CourseFilter narrows course listings.
	CourseFilter struct {
		EnrolledUserID int // only courses the user is a member of
	}

	// PostFilter narrows material and task listings. VisibleOnly drops
	// archived and still planned posts; it is set for every non-teacher.
	PostFilter struct {
		VisibleOnly bool
	}

	// WorkFilter narrows student work listings. OwnerMemberID restricts to one
	// member's work; SubmittedOrGraded drops work still being drafted.
	WorkFilter struct {
		OwnerMemberID     int
		SubmittedOrGraded bool
	}

	// GradeFilter narrows grade listings. OwnerMemberID restricts to grades of
	// one member's work; StudentUserID and TaskID are the teacher-facing query
	// parameters.
	GradeFilter struct {
		OwnerMemberID int
		StudentUserID int `query:"student_id"`
		TaskID        int `query:"task_id"`
	}

	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter *CourseFilter, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error

		// CreateMember fails with ErrAlreadyEnrolled on a (course, user) duplicate.
		CreateMember(ctx context.Context, m CourseMember, exec ...core.DBExecutor) (CourseMember, error)
		GetMember(ctx context.Context, courseID, userID int, exec ...core.DBExecutor) (CourseMember, error)
		GetMemberByID(ctx context.Context, id int, exec ...core.DBExecutor) (CourseMember, error)
		QueryMembers(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]CourseMember, error)

		CreateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) (Chapter, error)
		GetChapter(ctx context.Context, courseID, id int, exec ...core.DBExecutor) (Chapter, error)
		QueryChapters(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) (Chapter, error)
		DeleteChapter(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		GetMaterial(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (Material, error)
		QueryMaterials(ctx context.Context, chapterID int, filter *PostFilter, exec ...core.DBExecutor) ([]Material, error)
		UpdateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		DeleteMaterial(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (Task, error)
		GetTaskByID(ctx context.Context, id int, exec ...core.DBExecutor) (Task, error)
		QueryTasks(ctx context.Context, chapterID int, filter *PostFilter, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		DeleteTask(ctx context.Context, id int, exec ...core.DBExecutor) error

		// CreateWork fails with ErrWorkExists on a (task, owner) duplicate.
		CreateWork(ctx context.Context, w StudentWork, exec ...core.DBExecutor) (StudentWork, error)
		GetWork(ctx context.Context, taskID, id int, exec ...core.DBExecutor) (StudentWork, error)
		GetWorkByID(ctx context.Context, id int, exec ...core.DBExecutor) (StudentWork, error)
		QueryWorks(ctx context.Context, taskID int, filter *WorkFilter, exec ...core.DBExecutor) ([]StudentWork, error)
		UpdateWork(ctx context.Context, w StudentWork, exec ...core.DBExecutor) (StudentWork, error)
		DeleteWork(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (Grade, error)
		QueryGrades(ctx context.Context, courseID int, filter *GradeFilter, exec ...core.DBExecutor) ([]Grade, error)
		DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateAttachment(ctx context.Context, a Attachment, exec ...core.DBExecutor) (Attachment, error)
		GetAttachment(ctx context.Context, id int, exec ...core.DBExecutor) (Attachment, error)
		QueryAttachments(ctx context.Context, kind string, parentID int, exec ...core.DBExecutor) ([]Attachment, error)
		DeleteAttachment(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service interface {
		// Create opens a course and enrolls the owner as its first teacher
		// member, atomically.
		Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *CourseFilter) ([]Course, error)
		GetByID(ctx context.Context, id int) (Course, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, c Course) error

		// Enroll adds a user to a course. UserID duplicates surface as a
		// validation error, not an internal one.
		Enroll(ctx context.Context, c Course, usr user.User, role string) (CourseMember, error)
		GetMember(ctx context.Context, courseID, userID int) (CourseMember, error)
		QueryMembers(ctx context.Context, c Course) ([]CourseMember, error)

		CreateChapter(ctx context.Context, c Course, nc NewChapter) (Chapter, error)
		GetChapter(ctx context.Context, courseID, id int) (Chapter, error)
		QueryChapters(ctx context.Context, c Course) ([]Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter, uc NewChapter) (Chapter, error)
		DeleteChapter(ctx context.Context, ch Chapter) error

		CreateMaterial(ctx context.Context, ch Chapter, author CourseMember, np NewPost) (Material, error)
		// GetMaterial applies per-role visibility: planned or archived
		// materials exist only for course teachers.
		GetMaterial(ctx context.Context, ch Chapter, member CourseMember, id int) (Material, error)
		QueryMaterials(ctx context.Context, ch Chapter, member CourseMember) ([]Material, error)
		UpdateMaterial(ctx context.Context, m Material, up UpdatePost) (Material, error)
		DeleteMaterial(ctx context.Context, m Material) error

		CreateTask(ctx context.Context, ch Chapter, author CourseMember, nt NewTask) (Task, error)
		GetTask(ctx context.Context, ch Chapter, member CourseMember, id int) (Task, error)
		QueryTasks(ctx context.Context, ch Chapter, member CourseMember) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, ut UpdateTask) (Task, error)
		DeleteTask(ctx context.Context, t Task) error

		CreateWork(ctx context.Context, t Task, owner CourseMember, nw NewStudentWork) (StudentWork, error)
		// GetWork shows a member their own work in any status; teachers see
		// other members' work only once it is submitted or graded.
		GetWork(ctx context.Context, t Task, member CourseMember, id int) (StudentWork, error)
		QueryWorks(ctx context.Context, t Task, member CourseMember) ([]StudentWork, error)
		UpdateWork(ctx context.Context, w StudentWork, uw UpdateStudentWork) (StudentWork, error)
		DeleteWork(ctx context.Context, w StudentWork) error
		SubmitWork(ctx context.Context, w StudentWork) (StudentWork, error)
		UnsubmitWork(ctx context.Context, w StudentWork) (StudentWork, error)

		// CreateGrade validates the work against the course and the amount
		// against the task's maximum, then writes the grade and flips the work
		// to Graded in one transaction.
		CreateGrade(ctx context.Context, c Course, grader CourseMember, ng NewGrade) (Grade, error)
		GetGrade(ctx context.Context, c Course, member CourseMember, id int) (Grade, error)
		QueryGrades(ctx context.Context, c Course, member CourseMember, filter *GradeFilter) ([]Grade, error)
		// DeleteGrade removes the grade and reverts its work to Submitted in
		// one transaction.
		DeleteGrade(ctx context.Context, g Grade) error

		AddAttachment(ctx context.Context, parent AttachmentParent, fileName string, file io.Reader) (Attachment, error)
		GetAttachment(ctx context.Context, parent AttachmentParent, id int) (Attachment, error)
		QueryAttachments(ctx context.Context, parent AttachmentParent) ([]Attachment, error)
		RemoveAttachment(ctx context.Context, parent AttachmentParent, a Attachment) error
	}

	service struct {
		db    core.DB
		repo  Repository
		files core.FileStorage
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, files core.FileStorage) Service {
	return &service{
		db:    db,
		repo:  repo,
		files: files,
	}
}

// withTx runs fn inside a transaction when a database handle is available.
// The in-memory repository used in tests carries no handle; its operations
// apply directly.
func (svc *service) withTx(ctx context.Context, fn func(exec ...core.DBExecutor) error) error {
	if svc.db == nil {
		return fn()
	}
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (svc *service) Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error) {
	crs := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Status:       CourseOngoing,
		CreatedAt:    NowFunc().UTC(),
		DepartmentID: nc.DepartmentID,
		SpecialityID: nc.SpecialityID,
		OwnerID:      &owner.ID,
	}

	err := svc.withTx(ctx, func(exec ...core.DBExecutor) error {
		var err error
		if crs, err = svc.repo.CreateCourse(ctx, crs, exec...); err != nil {
			return errors.Wrap(err, "creating course")
		}
		_, err = svc.repo.CreateMember(ctx, CourseMember{
			UserID:    owner.ID,
			CourseID:  crs.ID,
			Role:      RoleTeacher,
			CreatedAt: NowFunc().UTC(),
		}, exec...)
		return errors.Wrap(err, "enrolling course owner")
	})
	if err != nil {
		return Course{}, err
	}
	return crs, nil
}

func (svc *service) Query(ctx context.Context, filter *CourseFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	if uc.Status != "" {
		c.Status = uc.Status
	}
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *service) Delete(ctx context.Context, c Course) error {
	return svc.repo.DeleteCourse(ctx, c.ID)
}

func (svc *service) Enroll(ctx context.Context, c Course, usr user.User, role string) (CourseMember, error) {
	m, err := svc.repo.CreateMember(ctx, CourseMember{
		UserID:    usr.ID,
		CourseID:  c.ID,
		Role:      role,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return CourseMember{}, core.NewValidationError(err, core.FieldError{Field: "user_id", Error: ErrAlreadyEnrolled.Error()})
		}
		return CourseMember{}, err
	}
	return m, nil
}

func (svc *service) GetMember(ctx context.Context, courseID, userID int) (CourseMember, error) {
	return svc.repo.GetMember(ctx, courseID, userID)
}

func (svc *service) QueryMembers(ctx context.Context, c Course) ([]CourseMember, error) {
	return svc.repo.QueryMembers(ctx, c.ID)
}

func (svc *service) CreateChapter(ctx context.Context, c Course, nc NewChapter) (Chapter, error) {
	return svc.repo.CreateChapter(ctx, Chapter{
		Title:       nc.Title,
		Description: nc.Description,
		CreatedAt:   NowFunc().UTC(),
		CourseID:    c.ID,
	})
}

func (svc *service) GetChapter(ctx context.Context, courseID, id int) (Chapter, error) {
	return svc.repo.GetChapter(ctx, courseID, id)
}

func (svc *service) QueryChapters(ctx context.Context, c Course) ([]Chapter, error) {
	return svc.repo.QueryChapters(ctx, c.ID)
}

func (svc *service) UpdateChapter(ctx context.Context, ch Chapter, uc NewChapter) (Chapter, error) {
	ch.Title = uc.Title
	ch.Description = uc.Description
	return svc.repo.UpdateChapter(ctx, ch)
}

func (svc *service) DeleteChapter(ctx context.Context, ch Chapter) error {
	return svc.repo.DeleteChapter(ctx, ch.ID)
}

func (svc *service) CreateMaterial(ctx context.Context, ch Chapter, author CourseMember, np NewPost) (Material, error) {
	return svc.repo.CreateMaterial(ctx, Material{Post: np.post(ch, author)})
}

func (svc *service) GetMaterial(ctx context.Context, ch Chapter, member CourseMember, id int) (Material, error) {
	m, err := svc.repo.GetMaterial(ctx, ch.ID, id)
	if err != nil {
		return Material{}, err
	}
	if !member.IsTeacher() && (m.IsArchived || m.IsPlanned()) {
		return Material{}, ErrMaterialNotFound
	}
	return m, nil
}

func (svc *service) QueryMaterials(ctx context.Context, ch Chapter, member CourseMember) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, ch.ID, &PostFilter{VisibleOnly: !member.IsTeacher()})
}

func (svc *service) UpdateMaterial(ctx context.Context, m Material, up UpdatePost) (Material, error) {
	up.apply(&m.Post)
	return svc.repo.UpdateMaterial(ctx, m)
}

func (svc *service) DeleteMaterial(ctx context.Context, m Material) error {
	return svc.repo.DeleteMaterial(ctx, m.ID)
}

func (svc *service) CreateTask(ctx context.Context, ch Chapter, author CourseMember, nt NewTask) (Task, error) {
	return svc.repo.CreateTask(ctx, Task{
		Post:     nt.post(ch, author),
		MaxGrade: nt.MaxGrade,
		Deadline: nt.Deadline,
	})
}

func (svc *service) GetTask(ctx context.Context, ch Chapter, member CourseMember, id int) (Task, error) {
	t, err := svc.repo.GetTask(ctx, ch.ID, id)
	if err != nil {
		return Task{}, err
	}
	if !member.IsTeacher() && (t.IsArchived || t.IsPlanned()) {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (svc *service) QueryTasks(ctx context.Context, ch Chapter, member CourseMember) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, ch.ID, &PostFilter{VisibleOnly: !member.IsTeacher()})
}

func (svc *service) UpdateTask(ctx context.Context, t Task, ut UpdateTask) (Task, error) {
	ut.apply(&t.Post)
	if ut.MaxGrade != nil {
		t.MaxGrade = *ut.MaxGrade
	}
	if ut.Deadline != nil {
		t.Deadline = *ut.Deadline
	}
	return svc.repo.UpdateTask(ctx, t)
}

func (svc *service) DeleteTask(ctx context.Context, t Task) error {
	return svc.repo.DeleteTask(ctx, t.ID)
}

func (svc *service) CreateWork(ctx context.Context, t Task, owner CourseMember, nw NewStudentWork) (StudentWork, error) {
	w, err := svc.repo.CreateWork(ctx, StudentWork{
		TaskID:  t.ID,
		OwnerID: owner.ID,
		Status:  WorkAssigned,
		Answer:  nw.Answer,
	})
	if err != nil {
		if errors.Cause(err) == ErrWorkExists {
			return StudentWork{}, core.NewValidationError(err, core.FieldError{Field: "task_id", Error: ErrWorkExists.Error()})
		}
		return StudentWork{}, err
	}
	return w, nil
}

func (svc *service) GetWork(ctx context.Context, t Task, member CourseMember, id int) (StudentWork, error) {
	w, err := svc.repo.GetWork(ctx, t.ID, id)
	if err != nil {
		return StudentWork{}, err
	}
	if w.OwnerID == member.ID {
		return w, nil
	}
	// drafts of other members do not exist for anyone else
	if !member.IsTeacher() || (!w.IsSubmitted() && !w.IsGraded()) {
		return StudentWork{}, ErrWorkNotFound
	}
	return w, nil
}

func (svc *service) QueryWorks(ctx context.Context, t Task, member CourseMember) ([]StudentWork, error) {
	if member.IsTeacher() {
		return svc.repo.QueryWorks(ctx, t.ID, &WorkFilter{SubmittedOrGraded: true})
	}
	return svc.repo.QueryWorks(ctx, t.ID, &WorkFilter{OwnerMemberID: member.ID})
}

func (svc *service) UpdateWork(ctx context.Context, w StudentWork, uw UpdateStudentWork) (StudentWork, error) {
	w.Answer = uw.Answer
	return svc.repo.UpdateWork(ctx, w)
}

func (svc *service) DeleteWork(ctx context.Context, w StudentWork) error {
	return svc.repo.DeleteWork(ctx, w.ID)
}

func (svc *service) SubmitWork(ctx context.Context, w StudentWork) (StudentWork, error) {
	if err := w.Submit(); err != nil {
		return StudentWork{}, err
	}
	return svc.repo.UpdateWork(ctx, w)
}

func (svc *service) UnsubmitWork(ctx context.Context, w StudentWork) (StudentWork, error) {
	if err := w.Unsubmit(); err != nil {
		return StudentWork{}, err
	}
	return svc.repo.UpdateWork(ctx, w)
}

func (svc *service) CreateGrade(ctx context.Context, c Course, grader CourseMember, ng NewGrade) (Grade, error) {
	w, err := svc.repo.GetWorkByID(ctx, ng.WorkID)
	if err != nil {
		if errors.Cause(err) == ErrWorkNotFound {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "work_id", Error: ErrAlreadyGraded.Error()})
		}
		return Grade{}, err
	}
	if err = svc.checkWorkInCourse(ctx, c, w); err != nil {
		return Grade{}, err
	}
	// only submitted work can be graded; anything else reads as already
	// graded or missing
	if !w.IsSubmitted() {
		return Grade{}, core.NewValidationError(ErrAlreadyGraded, core.FieldError{Field: "work_id", Error: ErrAlreadyGraded.Error()})
	}

	task, err := svc.repo.GetTaskByID(ctx, w.TaskID)
	if err != nil {
		return Grade{}, err
	}
	if ng.Amount > task.MaxGrade {
		return Grade{}, core.NewValidationError(ErrGradeTooBig, core.FieldError{Field: "amount", Error: ErrGradeTooBig.Error()})
	}

	grade := Grade{
		Description: ng.Description,
		Amount:      ng.Amount,
		CreatedAt:   NowFunc().UTC(),
		WorkID:      w.ID,
		GraderID:    &grader.ID,
	}
	err = svc.withTx(ctx, func(exec ...core.DBExecutor) error {
		var err error
		if grade, err = svc.repo.CreateGrade(ctx, grade, exec...); err != nil {
			return errors.Wrap(err, "creating grade")
		}
		w.Status = WorkGraded
		_, err = svc.repo.UpdateWork(ctx, w, exec...)
		return errors.Wrap(err, "marking work graded")
	})
	if err != nil {
		return Grade{}, err
	}
	return grade, nil
}

// checkWorkInCourse walks the work's task up to its chapter within the course.
// A miss anywhere means the work belongs to another course.
func (svc *service) checkWorkInCourse(ctx context.Context, c Course, w StudentWork) error {
	task, err := svc.repo.GetTaskByID(ctx, w.TaskID)
	if err != nil {
		return err
	}
	if _, err = svc.repo.GetChapter(ctx, c.ID, task.ChapterID); err != nil {
		if errors.Cause(err) == ErrChapterNotFound {
			return ErrWorkNotFound
		}
		return err
	}
	return nil
}

func (svc *service) GetGrade(ctx context.Context, c Course, member CourseMember, id int) (Grade, error) {
	g, err := svc.repo.GetGrade(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if member.IsTeacher() {
		return g, nil
	}
	w, err := svc.repo.GetWorkByID(ctx, g.WorkID)
	if err != nil {
		return Grade{}, err
	}
	if w.OwnerID != member.ID {
		return Grade{}, ErrGradeNotFound
	}
	return g, nil
}

func (svc *service) QueryGrades(ctx context.Context, c Course, member CourseMember, filter *GradeFilter) ([]Grade, error) {
	if filter == nil {
		filter = &GradeFilter{}
	}
	if !member.IsTeacher() {
		// non-teachers only ever see grades of their own work
		filter.OwnerMemberID = member.ID
		filter.StudentUserID = 0
	}
	return svc.repo.QueryGrades(ctx, c.ID, filter)
}

func (svc *service) DeleteGrade(ctx context.Context, g Grade) error {
	w, err := svc.repo.GetWorkByID(ctx, g.WorkID)
	if err != nil {
		return err
	}
	return svc.withTx(ctx, func(exec ...core.DBExecutor) error {
		if err := svc.repo.DeleteGrade(ctx, g.ID, exec...); err != nil {
			return errors.Wrap(err, "deleting grade")
		}
		w.Status = WorkSubmitted
		_, err := svc.repo.UpdateWork(ctx, w, exec...)
		return errors.Wrap(err, "reverting work status")
	})
}

func (svc *service) AddAttachment(ctx context.Context, parent AttachmentParent, fileName string, file io.Reader) (Attachment, error) {
	path, err := svc.files.Save(fileName, file)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "saving attachment file")
	}

	att, err := svc.repo.CreateAttachment(ctx, Attachment{
		ParentKind: parent.AttachmentKind(),
		ParentID:   parent.AttachmentParentID(),
		FileName:   fileName,
		FilePath:   path,
	})
	if err != nil {
		_ = svc.files.Delete(path)
		return Attachment{}, err
	}
	if err = svc.touchParent(ctx, parent); err != nil {
		return Attachment{}, err
	}
	return att, nil
}

func (svc *service) GetAttachment(ctx context.Context, parent AttachmentParent, id int) (Attachment, error) {
	att, err := svc.repo.GetAttachment(ctx, id)
	if err != nil {
		return Attachment{}, err
	}
	if att.ParentKind != parent.AttachmentKind() || att.ParentID != parent.AttachmentParentID() {
		return Attachment{}, ErrAttachmentNotFound
	}
	return att, nil
}

func (svc *service) QueryAttachments(ctx context.Context, parent AttachmentParent) ([]Attachment, error) {
	return svc.repo.QueryAttachments(ctx, parent.AttachmentKind(), parent.AttachmentParentID())
}

func (svc *service) RemoveAttachment(ctx context.Context, parent AttachmentParent, a Attachment) error {
	if err := svc.repo.DeleteAttachment(ctx, a.ID); err != nil {
		return err
	}
	if err := svc.files.Delete(a.FilePath); err != nil {
		return errors.Wrap(err, "deleting attachment file")
	}
	return svc.touchParent(ctx, parent)
}

// touchParent refreshes the edited timestamp on post parents so attachment
// changes show up as content changes.
func (svc *service) touchParent(ctx context.Context, parent AttachmentParent) error {
	switch p := parent.(type) {
	case Material:
		p.EditedAt = NowFunc().UTC()
		_, err := svc.repo.UpdateMaterial(ctx, p)
		return err
	case Task:
		p.EditedAt = NowFunc().UTC()
		_, err := svc.repo.UpdateTask(ctx, p)
		return err
	}
	return nil
}
