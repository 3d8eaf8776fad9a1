// Package dummydb is a map-backed database used by tests.
package dummydb

import (
	"sync"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/uni"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

type DB struct {
	sync.RWMutex
	pkCount int

	users        map[int]*user.User
	courses      map[int]*course.Course
	members      map[int]*course.CourseMember
	chapters     map[int]*course.Chapter
	materials    map[int]*course.Material
	tasks        map[int]*course.Task
	works        map[int]*course.StudentWork
	grades       map[int]*course.Grade
	attachments  map[int]*course.Attachment
	departments  map[int]*uni.Department
	specialities map[int]*uni.Speciality
}

func Open() (*DB, error) {
	return &DB{
		users:        make(map[int]*user.User),
		courses:      make(map[int]*course.Course),
		members:      make(map[int]*course.CourseMember),
		chapters:     make(map[int]*course.Chapter),
		materials:    make(map[int]*course.Material),
		tasks:        make(map[int]*course.Task),
		works:        make(map[int]*course.StudentWork),
		grades:       make(map[int]*course.Grade),
		attachments:  make(map[int]*course.Attachment),
		departments:  make(map[int]*uni.Department),
		specialities: make(map[int]*uni.Speciality),
	}, nil
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}
