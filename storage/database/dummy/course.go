package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// courses

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextPK()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.CourseFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrolled := make(map[int]bool)
	if filter != nil && filter.EnrolledUserID != 0 {
		for _, m := range repo.db.members {
			if m.UserID == filter.EnrolledUserID {
				enrolled[m.CourseID] = true
			}
		}
	}

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter != nil && filter.EnrolledUserID != 0 && !enrolled[c.ID] {
			continue
		}
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrCourseNotFound
	}
	delete(repo.db.courses, id)
	return nil
}

// members

func (repo *courseRepository) CreateMember(ctx context.Context, m course.CourseMember, exec ...core.DBExecutor) (course.CourseMember, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.members {
		if existing.UserID == m.UserID && existing.CourseID == m.CourseID {
			return course.CourseMember{}, course.ErrAlreadyEnrolled
		}
	}
	m.ID = repo.db.nextPK()
	repo.db.members[m.ID] = &m
	return m, nil
}

func (repo *courseRepository) GetMember(ctx context.Context, courseID, userID int, exec ...core.DBExecutor) (course.CourseMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.db.members {
		if m.CourseID == courseID && m.UserID == userID {
			return *m, nil
		}
	}
	return course.CourseMember{}, course.ErrMemberNotFound
}

func (repo *courseRepository) GetMemberByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.CourseMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.members[id]; ok {
		return *m, nil
	}
	return course.CourseMember{}, course.ErrMemberNotFound
}

func (repo *courseRepository) QueryMembers(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.CourseMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]course.CourseMember, 0)
	for _, m := range repo.db.members {
		if m.CourseID == courseID {
			members = append(members, *m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// chapters

func (repo *courseRepository) CreateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ch.ID = repo.db.nextPK()
	repo.db.chapters[ch.ID] = &ch
	return ch, nil
}

func (repo *courseRepository) GetChapter(ctx context.Context, courseID, id int, exec ...core.DBExecutor) (course.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ch, ok := repo.db.chapters[id]; ok && ch.CourseID == courseID {
		return *ch, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) QueryChapters(ctx context.Context, courseID int, exec ...core.DBExecutor) ([]course.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, *ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].ID < chapters[j].ID })
	return chapters, nil
}

func (repo *courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[ch.ID]; !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	repo.db.chapters[ch.ID] = &ch
	return ch, nil
}

func (repo *courseRepository) DeleteChapter(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[id]; !ok {
		return course.ErrChapterNotFound
	}
	delete(repo.db.chapters, id)
	return nil
}

// materials

func postVisible(p course.Post, filter *course.PostFilter) bool {
	if filter == nil || !filter.VisibleOnly {
		return true
	}
	return !p.IsArchived && !p.PublishedAt.After(time.Now())
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = repo.db.nextPK()
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseRepository) GetMaterial(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (course.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.materials[id]; ok && m.ChapterID == chapterID {
		return *m, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) QueryMaterials(ctx context.Context, chapterID int, filter *course.PostFilter, exec ...core.DBExecutor) ([]course.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	materials := make([]course.Material, 0)
	for _, m := range repo.db.materials {
		if m.ChapterID == chapterID && postVisible(m.Post, filter) {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ID < materials[j].ID })
	return materials, nil
}

func (repo *courseRepository) UpdateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.materials[m.ID]; !ok {
		return course.Material{}, course.ErrMaterialNotFound
	}
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseRepository) DeleteMaterial(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.materials[id]; !ok {
		return course.ErrMaterialNotFound
	}
	delete(repo.db.materials, id)
	return nil
}

// tasks

func (repo *courseRepository) CreateTask(ctx context.Context, t course.Task, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = repo.db.nextPK()
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *courseRepository) GetTask(ctx context.Context, chapterID, id int, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tasks[id]; ok && t.ChapterID == chapterID {
		return *t, nil
	}
	return course.Task{}, course.ErrTaskNotFound
}

func (repo *courseRepository) GetTaskByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return *t, nil
	}
	return course.Task{}, course.ErrTaskNotFound
}

func (repo *courseRepository) QueryTasks(ctx context.Context, chapterID int, filter *course.PostFilter, exec ...core.DBExecutor) ([]course.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := make([]course.Task, 0)
	for _, t := range repo.db.tasks {
		if t.ChapterID == chapterID && postVisible(t.Post, filter) {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (repo *courseRepository) UpdateTask(ctx context.Context, t course.Task, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.tasks[t.ID]; !ok {
		return course.Task{}, course.ErrTaskNotFound
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *courseRepository) DeleteTask(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.tasks[id]; !ok {
		return course.ErrTaskNotFound
	}
	delete(repo.db.tasks, id)
	return nil
}

// student works

func (repo *courseRepository) CreateWork(ctx context.Context, w course.StudentWork, exec ...core.DBExecutor) (course.StudentWork, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.works {
		if existing.TaskID == w.TaskID && existing.OwnerID == w.OwnerID {
			return course.StudentWork{}, course.ErrWorkExists
		}
	}
	w.ID = repo.db.nextPK()
	repo.db.works[w.ID] = &w
	return w, nil
}

func (repo *courseRepository) GetWork(ctx context.Context, taskID, id int, exec ...core.DBExecutor) (course.StudentWork, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if w, ok := repo.db.works[id]; ok && w.TaskID == taskID {
		return *w, nil
	}
	return course.StudentWork{}, course.ErrWorkNotFound
}

func (repo *courseRepository) GetWorkByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.StudentWork, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if w, ok := repo.db.works[id]; ok {
		return *w, nil
	}
	return course.StudentWork{}, course.ErrWorkNotFound
}

func (repo *courseRepository) QueryWorks(ctx context.Context, taskID int, filter *course.WorkFilter, exec ...core.DBExecutor) ([]course.StudentWork, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	works := make([]course.StudentWork, 0)
	for _, w := range repo.db.works {
		if w.TaskID != taskID {
			continue
		}
		if filter != nil {
			if filter.OwnerMemberID != 0 && w.OwnerID != filter.OwnerMemberID {
				continue
			}
			if filter.SubmittedOrGraded && !w.IsSubmitted() && !w.IsGraded() {
				continue
			}
		}
		works = append(works, *w)
	}
	sort.Slice(works, func(i, j int) bool { return works[i].ID < works[j].ID })
	return works, nil
}

func (repo *courseRepository) UpdateWork(ctx context.Context, w course.StudentWork, exec ...core.DBExecutor) (course.StudentWork, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.works[w.ID]; !ok {
		return course.StudentWork{}, course.ErrWorkNotFound
	}
	repo.db.works[w.ID] = &w
	return w, nil
}

func (repo *courseRepository) DeleteWork(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.works[id]; !ok {
		return course.ErrWorkNotFound
	}
	delete(repo.db.works, id)
	return nil
}

// grades

func (repo *courseRepository) CreateGrade(ctx context.Context, g course.Grade, exec ...core.DBExecutor) (course.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.grades {
		if existing.WorkID == g.WorkID {
			return course.Grade{}, course.ErrAlreadyGraded
		}
	}
	g.ID = repo.db.nextPK()
	repo.db.grades[g.ID] = &g
	return g, nil
}

func (repo *courseRepository) GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (course.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.grades[id]; ok {
		return *g, nil
	}
	return course.Grade{}, course.ErrGradeNotFound
}

func (repo *courseRepository) QueryGrades(ctx context.Context, courseID int, filter *course.GradeFilter, exec ...core.DBExecutor) ([]course.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]course.Grade, 0)
	for _, g := range repo.db.grades {
		w, ok := repo.db.works[g.WorkID]
		if !ok {
			continue
		}
		t, ok := repo.db.tasks[w.TaskID]
		if !ok {
			continue
		}
		ch, ok := repo.db.chapters[t.ChapterID]
		if !ok || ch.CourseID != courseID {
			continue
		}
		if filter != nil {
			if filter.OwnerMemberID != 0 && w.OwnerID != filter.OwnerMemberID {
				continue
			}
			if filter.StudentUserID != 0 {
				m, ok := repo.db.members[w.OwnerID]
				if !ok || m.UserID != filter.StudentUserID {
					continue
				}
			}
			if filter.TaskID != 0 && w.TaskID != filter.TaskID {
				continue
			}
		}
		grades = append(grades, *g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (repo *courseRepository) DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return course.ErrGradeNotFound
	}
	delete(repo.db.grades, id)
	return nil
}

// attachments

func (repo *courseRepository) CreateAttachment(ctx context.Context, a course.Attachment, exec ...core.DBExecutor) (course.Attachment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = repo.db.nextPK()
	repo.db.attachments[a.ID] = &a
	return a, nil
}

func (repo *courseRepository) GetAttachment(ctx context.Context, id int, exec ...core.DBExecutor) (course.Attachment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.attachments[id]; ok {
		return *a, nil
	}
	return course.Attachment{}, course.ErrAttachmentNotFound
}

func (repo *courseRepository) QueryAttachments(ctx context.Context, kind string, parentID int, exec ...core.DBExecutor) ([]course.Attachment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attachments := make([]course.Attachment, 0)
	for _, a := range repo.db.attachments {
		if a.ParentKind == kind && a.ParentID == parentID {
			attachments = append(attachments, *a)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].ID < attachments[j].ID })
	return attachments, nil
}

func (repo *courseRepository) DeleteAttachment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.attachments[id]; !ok {
		return course.ErrAttachmentNotFound
	}
	delete(repo.db.attachments, id)
	return nil
}
