package course

import (
	"testing"
	"time"
)

func TestStudentWork_stateMachine(t *testing.T) {
	now := time.Date(2021, 5, 10, 12, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	w := StudentWork{Status: WorkAssigned}

	if err := w.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !w.IsSubmitted() {
		t.Errorf("Submit() status = %q, want %q", w.Status, WorkSubmitted)
	}
	if w.SubmittedAt == nil || !w.SubmittedAt.Equal(now) {
		t.Errorf("Submit() submittedAt = %v, want %v", w.SubmittedAt, now)
	}

	if err := w.Unsubmit(); err != nil {
		t.Fatalf("Unsubmit() error = %v", err)
	}
	if w.Status != WorkAssigned {
		t.Errorf("Unsubmit() status = %q, want %q", w.Status, WorkAssigned)
	}
	if w.SubmittedAt != nil {
		t.Errorf("Unsubmit() submittedAt = %v, want nil", w.SubmittedAt)
	}

	// graded work is frozen
	w.Status = WorkGraded
	if err := w.Submit(); err != ErrWorkGraded {
		t.Errorf("Submit() error = %v, want %v", err, ErrWorkGraded)
	}
	if err := w.Unsubmit(); err != ErrWorkGraded {
		t.Errorf("Unsubmit() error = %v, want %v", err, ErrWorkGraded)
	}
}

func TestTask_IsActive(t *testing.T) {
	now := time.Date(2021, 5, 10, 12, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "published", task: Task{Post: Post{PublishedAt: now.Add(-time.Hour)}}, want: true},
		{name: "planned", task: Task{Post: Post{PublishedAt: now.Add(time.Hour)}}},
		{name: "archived", task: Task{Post: Post{PublishedAt: now.Add(-time.Hour), IsArchived: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsActive(); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}
