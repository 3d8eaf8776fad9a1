package course_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
	mediasvc "github.com/kokokojo2/desk2-virtual-university-backend/services/media"
	dummydb "github.com/kokokojo2/desk2-virtual-university-backend/storage/database/dummy"
)

type fixture struct {
	repo course.Repository
	svc  course.Service

	owner   user.User
	student user.User

	course  course.Course
	teacher course.CourseMember
	member  course.CourseMember
	chapter course.Chapter
	task    course.Task
}

// newFixture seeds a course with one teacher (the owner), one student member
// and one active task worth 10 points.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	f := &fixture{repo: dummydb.NewCourseRepository(db)}
	f.svc = course.NewService(nil, f.repo, mediaStorage(t))

	f.owner = user.User{ID: 1, FirstName: "Jane", Profile: &user.Profile{Kind: user.ProfileTeacher}}
	f.student = user.User{ID: 2, FirstName: "John", Profile: &user.Profile{Kind: user.ProfileStudent}}

	if f.course, err = f.svc.Create(ctx, f.owner, course.NewCourse{Title: "Databases"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if f.teacher, err = f.svc.GetMember(ctx, f.course.ID, f.owner.ID); err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if f.member, err = f.svc.Enroll(ctx, f.course, f.student, course.RoleStudent); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if f.chapter, err = f.svc.CreateChapter(ctx, f.course, course.NewChapter{Title: "SQL", Description: "Basics"}); err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	f.task, err = f.svc.CreateTask(ctx, f.chapter, f.teacher, course.NewTask{
		NewPost: course.NewPost{
			Title:       "First query",
			Body:        "Write a SELECT.",
			PublishedAt: time.Now().Add(-time.Hour),
		},
		MaxGrade: 10,
		Deadline: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return f
}

func mediaStorage(t *testing.T) core.FileStorage {
	t.Helper()
	origRoot := core.Conf.MediaRoot
	core.Conf.MediaRoot = t.TempDir()
	t.Cleanup(func() { core.Conf.MediaRoot = origRoot })
	return mediasvc.NewLocalStorage(core.Conf)
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("error = %v, want *core.ValidationError", err)
	}
	if len(vErr.Fields) == 0 {
		return ""
	}
	return vErr.Fields[0].Field
}

func TestService_Create_enrollsOwner(t *testing.T) {
	f := newFixture(t)

	if f.course.Status != course.CourseOngoing {
		t.Errorf("Create() status = %q, want %q", f.course.Status, course.CourseOngoing)
	}
	if f.course.OwnerUserID() != f.owner.ID {
		t.Errorf("Create() owner = %d, want %d", f.course.OwnerUserID(), f.owner.ID)
	}
	if !f.teacher.IsTeacher() {
		t.Errorf("Create() owner role = %q, want %q", f.teacher.Role, course.RoleTeacher)
	}
}

func TestService_Enroll_duplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Enroll(context.Background(), f.course, f.student, course.RoleAuditor)
	if field := validationField(t, err); field != "user_id" {
		t.Errorf("Enroll() field = %q, want %q", field, "user_id")
	}
}

func TestService_grading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, err := f.svc.CreateWork(ctx, f.task, f.member, course.NewStudentWork{Answer: "SELECT 1;"})
	if err != nil {
		t.Fatalf("CreateWork() failed: %v", err)
	}

	// assigned work cannot be graded
	_, err = f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: work.ID, Amount: 5})
	if field := validationField(t, err); field != "work_id" {
		t.Errorf("CreateGrade() field = %q, want %q", field, "work_id")
	}

	if work, err = f.svc.SubmitWork(ctx, work); err != nil {
		t.Fatalf("SubmitWork() failed: %v", err)
	}

	// amount capped by the task's max grade
	_, err = f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: work.ID, Amount: 11})
	if field := validationField(t, err); field != "amount" {
		t.Errorf("CreateGrade() field = %q, want %q", field, "amount")
	}

	grade, err := f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: work.ID, Amount: 8, Description: "good"})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	if work, err = f.repo.GetWorkByID(ctx, work.ID); err != nil {
		t.Fatalf("GetWorkByID() failed: %v", err)
	}
	if !work.IsGraded() {
		t.Errorf("CreateGrade() work status = %q, want %q", work.Status, course.WorkGraded)
	}

	// graded work is frozen
	if _, err = f.svc.SubmitWork(ctx, work); !core.IsPermissionError(err) {
		t.Errorf("SubmitWork() error = %v, want permission error", err)
	}
	// one grade per work
	_, err = f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: work.ID, Amount: 5})
	if field := validationField(t, err); field != "work_id" {
		t.Errorf("CreateGrade() field = %q, want %q", field, "work_id")
	}

	// deleting the grade reverts the work
	if err = f.svc.DeleteGrade(ctx, grade); err != nil {
		t.Fatalf("DeleteGrade() failed: %v", err)
	}
	if work, err = f.repo.GetWorkByID(ctx, work.ID); err != nil {
		t.Fatalf("GetWorkByID() failed: %v", err)
	}
	if !work.IsSubmitted() {
		t.Errorf("DeleteGrade() work status = %q, want %q", work.Status, course.WorkSubmitted)
	}
}

func TestService_CreateGrade_foreignWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a second course with its own task and submitted work
	other, err := f.svc.Create(ctx, f.owner, course.NewCourse{Title: "Algorithms"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	otherTeacher, err := f.svc.GetMember(ctx, other.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	otherMember, err := f.svc.Enroll(ctx, other, f.student, course.RoleStudent)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	otherChapter, err := f.svc.CreateChapter(ctx, other, course.NewChapter{Title: "Sorting", Description: "Basics"})
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	otherTask, err := f.svc.CreateTask(ctx, otherChapter, otherTeacher, course.NewTask{
		NewPost: course.NewPost{
			Title:       "Quicksort",
			Body:        "Implement it.",
			PublishedAt: time.Now().Add(-time.Hour),
		},
		MaxGrade: 10,
		Deadline: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	work, err := f.svc.CreateWork(ctx, otherTask, otherMember, course.NewStudentWork{})
	if err != nil {
		t.Fatalf("CreateWork() failed: %v", err)
	}
	if work, err = f.svc.SubmitWork(ctx, work); err != nil {
		t.Fatalf("SubmitWork() failed: %v", err)
	}

	// grading it through the first course must fail
	_, err = f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: work.ID, Amount: 5})
	if errors.Cause(err) != course.ErrWorkNotFound {
		t.Errorf("CreateGrade() error = %v, want %v", err, course.ErrWorkNotFound)
	}
}

func TestService_postVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	planned, err := f.svc.CreateMaterial(ctx, f.chapter, f.teacher, course.NewPost{
		Title:       "Coming soon",
		Body:        "...",
		PublishedAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	archived, err := f.svc.CreateMaterial(ctx, f.chapter, f.teacher, course.NewPost{
		Title:       "Old notes",
		Body:        "...",
		PublishedAt: time.Now().Add(-time.Hour),
		IsArchived:  true,
	})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	visible, err := f.svc.CreateMaterial(ctx, f.chapter, f.teacher, course.NewPost{
		Title:       "Lecture notes",
		Body:        "...",
		PublishedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	// students only see published, non-archived materials
	materials, err := f.svc.QueryMaterials(ctx, f.chapter, f.member)
	if err != nil {
		t.Fatalf("QueryMaterials() failed: %v", err)
	}
	if len(materials) != 1 || materials[0].ID != visible.ID {
		t.Errorf("QueryMaterials() = %v, want only %d", materials, visible.ID)
	}
	for _, hidden := range []course.Material{planned, archived} {
		if _, err = f.svc.GetMaterial(ctx, f.chapter, f.member, hidden.ID); errors.Cause(err) != course.ErrMaterialNotFound {
			t.Errorf("GetMaterial(%d) error = %v, want %v", hidden.ID, err, course.ErrMaterialNotFound)
		}
	}

	// teachers see everything
	materials, err = f.svc.QueryMaterials(ctx, f.chapter, f.teacher)
	if err != nil {
		t.Fatalf("QueryMaterials() failed: %v", err)
	}
	if len(materials) != 3 {
		t.Errorf("QueryMaterials() returned %d materials, want 3", len(materials))
	}
	if _, err = f.svc.GetMaterial(ctx, f.chapter, f.teacher, planned.ID); err != nil {
		t.Errorf("GetMaterial() failed for teacher: %v", err)
	}
}

func TestService_workVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, err := f.svc.CreateWork(ctx, f.task, f.member, course.NewStudentWork{Answer: "draft"})
	if err != nil {
		t.Fatalf("CreateWork() failed: %v", err)
	}

	// drafts are invisible to teachers
	if _, err = f.svc.GetWork(ctx, f.task, f.teacher, work.ID); errors.Cause(err) != course.ErrWorkNotFound {
		t.Errorf("GetWork() error = %v, want %v", err, course.ErrWorkNotFound)
	}
	works, err := f.svc.QueryWorks(ctx, f.task, f.teacher)
	if err != nil {
		t.Fatalf("QueryWorks() failed: %v", err)
	}
	if len(works) != 0 {
		t.Errorf("QueryWorks() returned %d works, want 0", len(works))
	}

	// the owner always sees their own work
	if _, err = f.svc.GetWork(ctx, f.task, f.member, work.ID); err != nil {
		t.Errorf("GetWork() failed for owner: %v", err)
	}

	if work, err = f.svc.SubmitWork(ctx, work); err != nil {
		t.Fatalf("SubmitWork() failed: %v", err)
	}
	if _, err = f.svc.GetWork(ctx, f.task, f.teacher, work.ID); err != nil {
		t.Errorf("GetWork() failed for teacher after submission: %v", err)
	}
	works, err = f.svc.QueryWorks(ctx, f.task, f.teacher)
	if err != nil {
		t.Fatalf("QueryWorks() failed: %v", err)
	}
	if len(works) != 1 {
		t.Errorf("QueryWorks() returned %d works, want 1", len(works))
	}
}

func TestService_QueryGrades_scoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// second student with a graded work
	other := user.User{ID: 3, FirstName: "Eve", Profile: &user.Profile{Kind: user.ProfileStudent}}
	otherMember, err := f.svc.Enroll(ctx, f.course, other, course.RoleStudent)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	otherWork, err := f.svc.CreateWork(ctx, f.task, otherMember, course.NewStudentWork{})
	if err != nil {
		t.Fatalf("CreateWork() failed: %v", err)
	}
	if otherWork, err = f.svc.SubmitWork(ctx, otherWork); err != nil {
		t.Fatalf("SubmitWork() failed: %v", err)
	}
	otherGrade, err := f.svc.CreateGrade(ctx, f.course, f.teacher, course.NewGrade{WorkID: otherWork.ID, Amount: 7})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}

	// the first student has no grades; a student_id filter cannot widen that
	grades, err := f.svc.QueryGrades(ctx, f.course, f.member, &course.GradeFilter{StudentUserID: other.ID})
	if err != nil {
		t.Fatalf("QueryGrades() failed: %v", err)
	}
	if len(grades) != 0 {
		t.Errorf("QueryGrades() returned %d grades for non-owner, want 0", len(grades))
	}
	if _, err = f.svc.GetGrade(ctx, f.course, f.member, otherGrade.ID); errors.Cause(err) != course.ErrGradeNotFound {
		t.Errorf("GetGrade() error = %v, want %v", err, course.ErrGradeNotFound)
	}

	// teachers can filter by student
	grades, err = f.svc.QueryGrades(ctx, f.course, f.teacher, &course.GradeFilter{StudentUserID: other.ID})
	if err != nil {
		t.Fatalf("QueryGrades() failed: %v", err)
	}
	if len(grades) != 1 || grades[0].ID != otherGrade.ID {
		t.Errorf("QueryGrades() = %v, want only %d", grades, otherGrade.ID)
	}
}

func TestService_attachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	att, err := f.svc.AddAttachment(ctx, f.task, "syllabus.pdf", bytes.NewBufferString("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AddAttachment() failed: %v", err)
	}
	if att.ParentKind != course.AttachTask || att.ParentID != f.task.ID {
		t.Errorf("AddAttachment() parent = (%q, %d), want (%q, %d)", att.ParentKind, att.ParentID, course.AttachTask, f.task.ID)
	}
	path := filepath.Join(core.Conf.MediaRoot, att.FilePath)
	if _, err = os.Stat(path); err != nil {
		t.Errorf("AddAttachment() file not saved: %v", err)
	}

	// a material cannot claim the task's attachment
	material, err := f.svc.CreateMaterial(ctx, f.chapter, f.teacher, course.NewPost{
		Title:       "Lecture notes",
		Body:        "...",
		PublishedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	if _, err = f.svc.GetAttachment(ctx, material, att.ID); errors.Cause(err) != course.ErrAttachmentNotFound {
		t.Errorf("GetAttachment() error = %v, want %v", err, course.ErrAttachmentNotFound)
	}

	atts, err := f.svc.QueryAttachments(ctx, f.task)
	if err != nil {
		t.Fatalf("QueryAttachments() failed: %v", err)
	}
	if len(atts) != 1 {
		t.Errorf("QueryAttachments() returned %d attachments, want 1", len(atts))
	}

	// removal re-saves the parent, like adding does
	removedAt := time.Now().Add(time.Hour).UTC()
	course.NowFunc = func() time.Time { return removedAt }
	defer func() { course.NowFunc = time.Now }()

	if err = f.svc.RemoveAttachment(ctx, f.task, att); err != nil {
		t.Fatalf("RemoveAttachment() failed: %v", err)
	}
	if _, err = os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("RemoveAttachment() file still exists: %v", err)
	}
	task, err := f.svc.GetTask(ctx, f.chapter, f.teacher, f.task.ID)
	if err != nil {
		t.Fatalf("GetTask() failed: %v", err)
	}
	if !task.EditedAt.Equal(removedAt) {
		t.Errorf("RemoveAttachment() parent EditedAt = %v, want %v", task.EditedAt, removedAt)
	}
}
