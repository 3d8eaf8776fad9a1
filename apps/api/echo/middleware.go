package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

var (
	contextCourseKey  = "course"
	contextMemberKey  = "courseMember"
	contextChapterKey = "chapter"
	contextTaskKey    = "task"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func pathID(ctx echo.Context, param string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(param))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// courseCtxMiddleware resolves the :courseID path param to a Course and the
// requesting user's membership in it, making both available to everything
// below. Non-members are rejected here, with one exception: enrolling into the
// course is allowed so self-enrollment can exist at all.
func courseCtxMiddleware(svc course.Service, usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			courseID, err := pathID(ctx, "courseID")
			if err != nil {
				return err
			}

			crs, err := svc.GetByID(ctx.Request().Context(), courseID)
			if err != nil {
				return errors.Wrap(err, "getting course")
			}
			ctx.Set(contextCourseKey, crs)

			usr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			member, err := svc.GetMember(ctx.Request().Context(), crs.ID, usr.ID)
			if err != nil {
				if errors.Cause(err) != course.ErrMemberNotFound {
					return errors.Wrap(err, "getting course member")
				}
				if !isEnrollRequest(ctx) {
					return course.ErrNotEnrolled
				}
				return next(ctx)
			}
			ctx.Set(contextMemberKey, member)
			return next(ctx)
		}
	}
}

// isEnrollRequest matches POST on the course's members collection.
func isEnrollRequest(ctx echo.Context) bool {
	return ctx.Request().Method == http.MethodPost && strings.HasSuffix(ctx.Path(), "/members")
}

// chapterCtxMiddleware resolves :chapterID within the already resolved course.
func chapterCtxMiddleware(svc course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			chapterID, err := pathID(ctx, "chapterID")
			if err != nil {
				return err
			}

			crs := getContextCourse(ctx)
			chapter, err := svc.GetChapter(ctx.Request().Context(), crs.ID, chapterID)
			if err != nil {
				if errors.Cause(err) == course.ErrChapterNotFound {
					return echo.NewHTTPError(http.StatusNotFound,
						fmt.Sprintf("This course does not have chapter with id %d.", chapterID))
				}
				return errors.Wrap(err, "getting chapter")
			}
			ctx.Set(contextChapterKey, chapter)
			return next(ctx)
		}
	}
}

// taskCtxMiddleware resolves :taskID within the already resolved chapter.
// Unlike detail lookups, it resolves regardless of visibility; the work
// handlers behind it enforce activity themselves.
func taskCtxMiddleware(svc course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			taskID, err := pathID(ctx, "taskID")
			if err != nil {
				return err
			}

			chapter := getContextChapter(ctx)
			member := getContextMember(ctx)
			task, err := svc.GetTask(ctx.Request().Context(), chapter, derefMember(member), taskID)
			if err != nil {
				if errors.Cause(err) == course.ErrTaskNotFound {
					return echo.NewHTTPError(http.StatusNotFound,
						fmt.Sprintf("This chapter does not have task with id %d.", taskID))
				}
				return errors.Wrap(err, "getting task")
			}
			ctx.Set(contextTaskKey, task)
			return next(ctx)
		}
	}
}

func getContextCourse(ctx echo.Context) course.Course {
	crs, _ := ctx.Get(contextCourseKey).(course.Course)
	return crs
}

func getContextMember(ctx echo.Context) *course.CourseMember {
	if m, ok := ctx.Get(contextMemberKey).(course.CourseMember); ok {
		return &m
	}
	return nil
}

func getContextChapter(ctx echo.Context) course.Chapter {
	ch, _ := ctx.Get(contextChapterKey).(course.Chapter)
	return ch
}

func getContextTask(ctx echo.Context) *course.Task {
	if t, ok := ctx.Get(contextTaskKey).(course.Task); ok {
		return &t
	}
	return nil
}

func derefMember(m *course.CourseMember) course.CourseMember {
	if m == nil {
		return course.CourseMember{}
	}
	return *m
}

// checkPermission evaluates the predicates against the request's resolved
// authorization context.
func checkPermission(ctx echo.Context, usrSvc user.Service, preds ...course.Predicate) error {
	usr, err := getContextUser(ctx, usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	req := course.AccessRequest{
		User:   usr,
		Member: getContextMember(ctx),
		Task:   getContextTask(ctx),
		Method: ctx.Request().Method,
	}
	return course.AllOf(preds...)(req)
}
