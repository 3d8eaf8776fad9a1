package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

// courseFixture wires a course with one teacher owner, an extra teacher, two
// students and an auditor, plus a published and a planned task.
type courseFixture struct {
	env *testEnv

	teacher  user.User // course owner
	teacher2 user.User
	student1 user.User
	student2 user.User
	auditor  user.User
	outsider user.User

	crs           course.Course
	teacherMember course.CourseMember
	chapter       course.Chapter
	task          course.Task
	plannedTask   course.Task
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	env := setupEnv(t)
	ctx := context.Background()
	f := &courseFixture{env: env}

	f.teacher = createUser(t, env, "Ada", "Lovelace", "ada@desk2.com", "Str0ngPassw0rd", user.ProfileTeacher, false)
	f.teacher2 = createUser(t, env, "Edsger", "Dijkstra", "edsger@desk2.com", "Str0ngPassw0rd", user.ProfileTeacher, false)
	f.student1 = createUser(t, env, "Alice", "Henderson", "alice@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	f.student2 = createUser(t, env, "Bob", "Jenkins", "bob@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	f.auditor = createUser(t, env, "Eve", "Monitor", "eve@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	f.outsider = createUser(t, env, "Oscar", "Wilder", "oscar@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)

	var err error
	if f.crs, err = env.courseSvc.Create(ctx, f.teacher, course.NewCourse{Title: "Databases", Description: "Relational systems"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if f.teacherMember, err = env.courseSvc.GetMember(ctx, f.crs.ID, f.teacher.ID); err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	enroll := func(usr user.User, role string) course.CourseMember {
		m, err := env.courseSvc.Enroll(ctx, f.crs, usr, role)
		if err != nil {
			t.Fatalf("Enroll(%s) failed: %v", usr.Email, err)
		}
		return m
	}
	enroll(f.teacher2, course.RoleTeacher)
	enroll(f.student1, course.RoleStudent)
	enroll(f.student2, course.RoleStudent)
	enroll(f.auditor, course.RoleAuditor)

	if f.chapter, err = env.courseSvc.CreateChapter(ctx, f.crs, course.NewChapter{Title: "SQL Basics", Description: "Queries and joins"}); err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}

	now := time.Now().UTC()
	f.task, err = env.courseSvc.CreateTask(ctx, f.chapter, f.teacherMember, course.NewTask{
		NewPost:  course.NewPost{Title: "Normalize a schema", Body: "Bring it to 3NF.", PublishedAt: now.Add(-time.Hour)},
		MaxGrade: 10,
		Deadline: now.Add(7 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	f.plannedTask, err = env.courseSvc.CreateTask(ctx, f.chapter, f.teacherMember, course.NewTask{
		NewPost:  course.NewPost{Title: "Indexes deep dive", Body: "Coming soon.", PublishedAt: now.Add(time.Hour)},
		MaxGrade: 5,
		Deadline: now.Add(14 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return f
}

func (f *courseFixture) coursePath() string {
	return fmt.Sprintf("/v1/courses/%d", f.crs.ID)
}

func (f *courseFixture) taskPath(taskID int) string {
	return fmt.Sprintf("%s/chapters/%d/tasks/%d", f.coursePath(), f.chapter.ID, taskID)
}

func permErr(t *testing.T, msg string) []byte {
	return marchallObj(t, httpErr{Error: msg})
}

func TestCourseApi_create(t *testing.T) {
	f := newCourseFixture(t)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "teacher account only", token: getToken(t, f.student1),
			body:     marchallObj(t, course.NewCourse{Title: "Sneaky Course"}),
			wantCode: http.StatusForbidden, wantData: permErr(t, "Only teacher account can perform this action."),
		},
		{
			name: "invalid title", token: getToken(t, f.teacher),
			body:     []byte(`{"title": "!bad"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "please enter a valid title"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.env.do(http.MethodPost, "/v1/courses", tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, "/v1/courses", getToken(t, f.teacher2),
			marchallObj(t, course.NewCourse{Title: "Algorithms", Description: "Sorting and graphs"}))
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var crs course.Course
		decodeObj(t, rec, &crs)
		if crs.Status != course.CourseOngoing {
			t.Errorf("status = %q; want %q", crs.Status, course.CourseOngoing)
		}
		if crs.OwnerID == nil || *crs.OwnerID != f.teacher2.ID {
			t.Errorf("owner = %v; want %d", crs.OwnerID, f.teacher2.ID)
		}

		// the owner is enrolled as the first teacher member
		m, err := f.env.courseSvc.GetMember(context.Background(), crs.ID, f.teacher2.ID)
		if err != nil {
			t.Fatalf("GetMember() failed: %v", err)
		}
		if !m.IsTeacher() {
			t.Errorf("owner member role = %q; want %q", m.Role, course.RoleTeacher)
		}
	})

	t.Run("enrolled filter", func(t *testing.T) {
		rec := f.env.do(http.MethodGet, "/v1/courses?enrolled=true", getToken(t, f.outsider))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})
}

func TestCourseApi_enrollment(t *testing.T) {
	f := newCourseFixture(t)
	path := f.coursePath() + "/members"

	tests := []httpTest{
		{
			name: "non-members are rejected", method: http.MethodGet, path: f.coursePath(),
			token:    getToken(t, f.outsider),
			wantCode: http.StatusForbidden, wantData: permErr(t, "You are not enrolled in this course."),
		},
		{
			name: "no self-service teacher seats", method: http.MethodPost, path: path,
			token: getToken(t, f.outsider), body: marchallObj(t, course.NewCourseMember{Role: course.RoleTeacher}),
			wantCode: http.StatusForbidden, wantData: permErr(t, "This action is not allowed."),
		},
		{
			name: "non-members cannot enroll others", method: http.MethodPost, path: path,
			token: getToken(t, f.outsider), body: marchallObj(t, course.NewCourseMember{UserID: f.student2.ID, Role: course.RoleStudent}),
			wantCode: http.StatusForbidden, wantData: permErr(t, "You are not enrolled in this course."),
		},
		{
			name: "students cannot enroll others", method: http.MethodPost, path: path,
			token: getToken(t, f.student1), body: marchallObj(t, course.NewCourseMember{UserID: f.outsider.ID, Role: course.RoleStudent}),
			wantCode: http.StatusForbidden, wantData: permErr(t, "You are not a teacher in this course."),
		},
		{
			name: "teacher enrolls an unknown user", method: http.MethodPost, path: path,
			token: getToken(t, f.teacher), body: marchallObj(t, course.NewCourseMember{UserID: 9999, Role: course.RoleStudent}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": user.ErrNotFound.Error()}),
		},
		{
			name: "self-enroll as student", method: http.MethodPost, path: path,
			token:    getToken(t, f.outsider),
			body:     marchallObj(t, course.NewCourseMember{Role: course.RoleStudent}),
			wantCode: http.StatusCreated,
		},
		{
			name: "duplicate enrollment", method: http.MethodPost, path: path,
			token: getToken(t, f.outsider), body: marchallObj(t, course.NewCourseMember{Role: course.RoleStudent}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": course.ErrAlreadyEnrolled.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestCourseApi_update(t *testing.T) {
	f := newCourseFixture(t)

	want := f.crs
	want.Title = "Advanced Databases"

	tests := []httpTest{
		{
			name: "teacher account only", token: getToken(t, f.student1),
			body:     []byte(`{"title": "New Name"}`),
			wantCode: http.StatusForbidden, wantData: permErr(t, "Only teacher account can perform this action."),
		},
		{
			name: "owner only", token: getToken(t, f.teacher2),
			body:     []byte(`{"title": "New Name"}`),
			wantCode: http.StatusForbidden, wantData: permErr(t, "You are not the owner of this object."),
		},
		{
			name: "owner renames", token: getToken(t, f.teacher),
			body:     []byte(`{"title": "Advanced Databases"}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, want),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.env.do(http.MethodPut, f.coursePath(), tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestCourseApi_chapters(t *testing.T) {
	f := newCourseFixture(t)
	path := f.coursePath() + "/chapters"

	tests := []httpTest{
		{
			name: "course teachers only", method: http.MethodPost, path: path,
			token: getToken(t, f.student1), body: marchallObj(t, course.NewChapter{Title: "Transactions", Description: "ACID"}),
			wantCode: http.StatusForbidden, wantData: permErr(t, "You are not a teacher in this course."),
		},
		{
			name: "teacher creates", method: http.MethodPost, path: path,
			token: getToken(t, f.teacher), body: marchallObj(t, course.NewChapter{Title: "Transactions", Description: "ACID"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "students read", method: http.MethodGet, path: fmt.Sprintf("%s/%d", path, f.chapter.ID),
			token:    getToken(t, f.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, f.chapter),
		},
		{
			name: "unknown chapter", method: http.MethodGet, path: path + "/999",
			token:    getToken(t, f.student1),
			wantCode: http.StatusNotFound, wantData: permErr(t, "This course does not have chapter with id 999."),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestCourseApi_taskVisibility(t *testing.T) {
	f := newCourseFixture(t)

	tests := []httpTest{
		{
			name: "student sees published task", path: f.taskPath(f.task.ID), token: getToken(t, f.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, f.task),
		},
		{
			name: "planned task hidden from students", path: f.taskPath(f.plannedTask.ID), token: getToken(t, f.student1),
			wantCode: http.StatusNotFound,
			wantData: permErr(t, fmt.Sprintf("This chapter does not have task with id %d.", f.plannedTask.ID)),
		},
		{
			name: "planned task visible to teachers", path: f.taskPath(f.plannedTask.ID), token: getToken(t, f.teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, f.plannedTask),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.env.do(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestCourseApi_workFlow(t *testing.T) {
	f := newCourseFixture(t)
	worksPath := f.taskPath(f.task.ID) + "/works"
	gradesPath := f.coursePath() + "/grades"

	studentToken := getToken(t, f.student1)
	teacherToken := getToken(t, f.teacher)

	t.Run("students only", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, worksPath, getToken(t, f.auditor), []byte(`{"answer": "lurking"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: permErr(t, "You are not a student in this course."),
		}, rec)
	})

	var work course.StudentWork
	t.Run("student creates a work", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, worksPath, studentToken, []byte(`{"answer": "first draft"}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		decodeObj(t, rec, &work)
		if work.Status != course.WorkAssigned {
			t.Errorf("status = %q; want %q", work.Status, course.WorkAssigned)
		}
	})
	workPath := fmt.Sprintf("%s/%d", worksPath, work.ID)

	t.Run("drafts are invisible to everyone else", func(t *testing.T) {
		notFound := marchallObj(t, httpErr{Error: course.ErrWorkNotFound.Error()})
		for _, token := range []string{getToken(t, f.student2), teacherToken} {
			rec := f.env.do(http.MethodGet, workPath, token)
			checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: notFound}, rec)
		}
	})

	t.Run("grading an unsubmitted work fails", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, gradesPath, teacherToken,
			marchallObj(t, course.NewGrade{WorkID: work.ID, Amount: 5}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"work_id": course.ErrAlreadyGraded.Error()}),
		}, rec)
	})

	t.Run("submit", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, workPath+"/submit", studentToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		decodeObj(t, rec, &work)
		if work.Status != course.WorkSubmitted || work.SubmittedAt == nil {
			t.Errorf("work = %+v; want submitted", work)
		}

		// now the teacher can see it
		rec = f.env.do(http.MethodGet, workPath, teacherToken)
		if rec.Code != http.StatusOK {
			t.Errorf("teacher GET after submit: code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("work listings require a course seat", func(t *testing.T) {
		rec := f.env.do(http.MethodGet, worksPath, getToken(t, f.auditor))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: permErr(t, "You are not a teacher in this course."),
		}, rec)

		rec = f.env.do(http.MethodGet, worksPath, teacherToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, work)}, rec)
	})

	t.Run("submitted work is frozen", func(t *testing.T) {
		rec := f.env.do(http.MethodPut, workPath, studentToken, []byte(`{"answer": "sneaky edit"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: permErr(t, "This StudentWork is submitted or graded and therefore cannot be editable."),
		}, rec)
	})

	t.Run("unsubmit reopens the work", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, workPath+"/unsubmit", studentToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		decodeObj(t, rec, &work)
		if work.Status != course.WorkAssigned || work.SubmittedAt != nil {
			t.Errorf("work = %+v; want assigned", work)
		}

		rec = f.env.do(http.MethodPut, workPath, studentToken, []byte(`{"answer": "final answer"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("edit after unsubmit: code = %v; body = %s", rec.Code, rec.Body.String())
		}
		rec = f.env.do(http.MethodPost, workPath+"/submit", studentToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("resubmit: code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("grading is a teacher's call", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, gradesPath, studentToken,
			marchallObj(t, course.NewGrade{WorkID: work.ID, Amount: 10}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: permErr(t, "You are not a teacher in this course."),
		}, rec)
	})

	t.Run("amount cannot exceed the task maximum", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, gradesPath, teacherToken,
			marchallObj(t, course.NewGrade{WorkID: work.ID, Amount: 11}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": course.ErrGradeTooBig.Error()}),
		}, rec)
	})

	var grade course.Grade
	t.Run("teacher grades", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, gradesPath, teacherToken,
			marchallObj(t, course.NewGrade{WorkID: work.ID, Amount: 9, Description: "Good work"}))
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		decodeObj(t, rec, &grade)
		if grade.Amount != 9 || grade.WorkID != work.ID {
			t.Errorf("grade = %+v", grade)
		}

		rec = f.env.do(http.MethodGet, workPath, studentToken)
		decodeObj(t, rec, &work)
		if work.Status != course.WorkGraded {
			t.Errorf("status = %q; want %q", work.Status, course.WorkGraded)
		}
	})

	t.Run("graded work cannot move", func(t *testing.T) {
		rec := f.env.do(http.MethodPost, workPath+"/unsubmit", studentToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: permErr(t, "This work is graded and cannot be submitted or unsubmitted."),
		}, rec)
	})

	t.Run("grade listings are scoped to the owner", func(t *testing.T) {
		rec := f.env.do(http.MethodGet, gradesPath, getToken(t, f.student2))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)

		rec = f.env.do(http.MethodGet, gradesPath, studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, grade)}, rec)

		// the student_id filter is a teacher-only knob, silently dropped otherwise
		rec = f.env.do(http.MethodGet, fmt.Sprintf("%s?student_id=%d", gradesPath, f.student1.ID), getToken(t, f.student2))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})

	t.Run("malformed grade filter is rejected", func(t *testing.T) {
		rec := f.env.do(http.MethodGet, gradesPath+"?student_id=abc", teacherToken)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("deleting the grade reverts the work", func(t *testing.T) {
		rec := f.env.do(http.MethodDelete, fmt.Sprintf("%s/%d", gradesPath, grade.ID), teacherToken)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		rec = f.env.do(http.MethodGet, workPath, studentToken)
		decodeObj(t, rec, &work)
		if work.Status != course.WorkSubmitted {
			t.Errorf("status = %q; want %q", work.Status, course.WorkSubmitted)
		}
	})
}
