package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

// Course statuses
const (
	CourseOngoing  = "O"
	CourseArchived = "A"
)

// CourseMember roles
const (
	RoleStudent = "S"
	RoleTeacher = "T"
	RoleAuditor = "A"
)

// StudentWork statuses
const (
	WorkAssigned  = "A"
	WorkSubmitted = "S"
	WorkGraded    = "G"
)

// Attachment parent kinds
const (
	AttachMaterial    = "material"
	AttachTask        = "task"
	AttachStudentWork = "student_work"
)

var (
	NowFunc = time.Now // mockable

	// ErrWorkGraded is returned by state transitions that are forbidden once a
	// grade exists. It is surfaced as a conflict, never silently ignored.
	ErrWorkGraded = core.NewPermissionError("This work is graded and cannot be submitted or unsubmitted.")
)

// UserOwned is implemented by entities owned directly by a user account.
type UserOwned interface {
	OwnerUserID() int
}

// MemberOwned is implemented by course-scoped entities whose owner is a
// CourseMember. Ownership checks on these always compare through the
// membership, never through the raw user.
type MemberOwned interface {
	OwnerMemberID() int
}

type Course struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	DepartmentID *int      `json:"department_id"`
	SpecialityID *int      `json:"speciality_id"`
	OwnerID      *int      `json:"owner_id"` // cleared when the owner account is deleted
}

var _ UserOwned = Course{}

func (c Course) OwnerUserID() int {
	if c.OwnerID == nil {
		return 0
	}
	return *c.OwnerID
}

func (c Course) IsArchived() bool { return c.Status == CourseArchived }

// CourseMember binds a user to a course with a per-course role. It is the unit
// of course-scoped authorization: everything below the course level resolves
// permissions through it.
type CourseMember struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	CourseID  int       `json:"course_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

var _ UserOwned = CourseMember{}

func (m CourseMember) OwnerUserID() int { return m.UserID }

func (m CourseMember) IsTeacher() bool { return m.Role == RoleTeacher }
func (m CourseMember) IsStudent() bool { return m.Role == RoleStudent }
func (m CourseMember) IsAuditor() bool { return m.Role == RoleAuditor }

type Chapter struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	CourseID    int       `json:"course_id"`
}

// Post is the shared shape of Material and Task.
type Post struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	EditedAt    time.Time `json:"edited_at"`  // UTC, touched on every save
	PublishedAt time.Time `json:"published_at"`
	IsArchived  bool      `json:"is_archived"`
	ChapterID   int       `json:"chapter_id"`
	AuthorID    int       `json:"author_id"` // CourseMember, ties authorship to role at time of writing
}

func (p Post) OwnerMemberID() int { return p.AuthorID }

// IsPlanned reports whether the post's publish time is still in the future.
// Planned posts are invisible to non-teachers.
func (p Post) IsPlanned() bool { return p.PublishedAt.After(NowFunc()) }

type Material struct {
	Post
}

var _ MemberOwned = Material{}

type Task struct {
	Post
	MaxGrade int       `json:"max_grade"`
	Deadline time.Time `json:"deadline"`
}

var _ MemberOwned = Task{}

func (t Task) DeadlinePassed() bool { return t.Deadline.Before(NowFunc()) }

// IsActive reports whether the task accepts student activity: it must be
// published and not archived.
func (t Task) IsActive() bool { return !t.IsPlanned() && !t.IsArchived }

// StudentWork is a student's submission instance against a Task, unique per
// (task, owner). Its status walks Assigned -> Submitted -> Graded; Graded is
// only reachable via grade creation and only leavable via grade deletion.
type StudentWork struct {
	ID          int        `json:"id"`
	TaskID      int        `json:"task_id"`
	OwnerID     int        `json:"owner_id"` // CourseMember
	Status      string     `json:"status"`
	Answer      string     `json:"answer"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

var _ MemberOwned = StudentWork{}

func (w StudentWork) OwnerMemberID() int { return w.OwnerID }

func (w StudentWork) IsSubmitted() bool { return w.Status == WorkSubmitted }
func (w StudentWork) IsGraded() bool    { return w.Status == WorkGraded }

// Submit moves the work to Submitted and records the time. Graded work cannot
// be resubmitted.
func (w *StudentWork) Submit() error {
	if w.IsGraded() {
		return ErrWorkGraded
	}
	now := NowFunc().UTC()
	w.Status = WorkSubmitted
	w.SubmittedAt = &now
	return nil
}

// Unsubmit reverts the work to Assigned and clears the submission time.
func (w *StudentWork) Unsubmit() error {
	if w.IsGraded() {
		return ErrWorkGraded
	}
	w.Status = WorkAssigned
	w.SubmittedAt = nil
	return nil
}

// Grade is one-to-one with StudentWork; creating it is the only way a work
// reaches the Graded status.
type Grade struct {
	ID          int       `json:"id"`
	Description string    `json:"description"`
	Amount      int       `json:"amount"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	WorkID      int       `json:"work_id"`
	GraderID    *int      `json:"grader_id"` // CourseMember, cleared when the grader leaves
}

var _ MemberOwned = Grade{}

func (g Grade) OwnerMemberID() int {
	if g.GraderID == nil {
		return 0
	}
	return *g.GraderID
}

// Attachment references a parent from the closed set of attachable kinds.
type Attachment struct {
	ID         int    `json:"id"`
	ParentKind string `json:"parent_kind"`
	ParentID   int    `json:"parent_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"-"`
}

// AttachmentParent is implemented by entities that can carry attachments.
type AttachmentParent interface {
	MemberOwned
	AttachmentKind() string
	AttachmentParentID() int
}

func (m Material) AttachmentKind() string     { return AttachMaterial }
func (m Material) AttachmentParentID() int    { return m.ID }
func (t Task) AttachmentKind() string         { return AttachTask }
func (t Task) AttachmentParentID() int        { return t.ID }
func (w StudentWork) AttachmentKind() string  { return AttachStudentWork }
func (w StudentWork) AttachmentParentID() int { return w.ID }

// Input models

type NewCourse struct {
	Title        string `json:"title" validate:"required,min=2,title"`
	Description  string `json:"description"`
	DepartmentID *int   `json:"department_id"`
	SpecialityID *int   `json:"speciality_id"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,min=2,title"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=O A"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

// NewCourseMember enrolls a user in a course. UserID may be zero for
// self-enrollment; course teachers may enroll others.
type NewCourseMember struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role" validate:"required,oneof=S T A"`
}

func (nm NewCourseMember) Validate(validate *validator.Validate) error {
	return validate.Struct(nm)
}

type NewChapter struct {
	Title       string `json:"title" validate:"required,min=3,title"`
	Description string `json:"description" validate:"required"`
}

func (nc *NewChapter) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type NewPost struct {
	Title       string    `json:"title" validate:"required,min=4,title"`
	Body        string    `json:"body" validate:"required"`
	PublishedAt time.Time `json:"published_at" validate:"required"`
	IsArchived  bool      `json:"is_archived"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	return validate.Struct(np)
}

func (np NewPost) post(chapter Chapter, author CourseMember) Post {
	now := NowFunc().UTC()
	return Post{
		Title:       np.Title,
		Body:        np.Body,
		CreatedAt:   now,
		EditedAt:    now,
		PublishedAt: np.PublishedAt,
		IsArchived:  np.IsArchived,
		ChapterID:   chapter.ID,
		AuthorID:    author.ID,
	}
}

type NewTask struct {
	NewPost
	MaxGrade int       `json:"max_grade" validate:"required,gt=0"`
	Deadline time.Time `json:"deadline" validate:"required"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	return validate.Struct(nt)
}

type UpdatePost struct {
	Title       string     `json:"title" validate:"omitempty,min=4,title"`
	Body        string     `json:"body"`
	PublishedAt *time.Time `json:"published_at"`
	IsArchived  *bool      `json:"is_archived"`
}

func (up *UpdatePost) Validate(validate *validator.Validate) error {
	up.Title = core.CleanString(up.Title)
	return validate.Struct(up)
}

func (up UpdatePost) apply(p *Post) {
	if up.Title != "" {
		p.Title = up.Title
	}
	if up.Body != "" {
		p.Body = up.Body
	}
	if up.PublishedAt != nil {
		p.PublishedAt = *up.PublishedAt
	}
	if up.IsArchived != nil {
		p.IsArchived = *up.IsArchived
	}
	p.EditedAt = NowFunc().UTC()
}

type UpdateTask struct {
	UpdatePost
	MaxGrade *int       `json:"max_grade" validate:"omitempty,gt=0"`
	Deadline *time.Time `json:"deadline"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	return validate.Struct(ut)
}

type NewStudentWork struct {
	Answer string `json:"answer"`
}

type UpdateStudentWork struct {
	Answer string `json:"answer"`
}

type NewGrade struct {
	WorkID      int    `json:"work_id" validate:"required"`
	Amount      int    `json:"amount" validate:"min=0"`
	Description string `json:"description"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Description = core.CleanString(ng.Description)
	return validate.Struct(ng)
}
