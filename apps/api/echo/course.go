package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

type courseApi struct {
	svc      course.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, usrSvc user.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)

	dg := cg.Group("/:courseID", courseCtxMiddleware(svc, usrSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	dg.POST("/members", api.enroll)
	dg.GET("/members", api.queryMembers)

	dg.POST("/grades", api.createGrade)
	dg.GET("/grades", api.queryGrades)
	dg.GET("/grades/:gradeID", api.retrieveGrade)
	dg.DELETE("/grades/:gradeID", api.destroyGrade)

	dg.POST("/chapters", api.createChapter)
	dg.GET("/chapters", api.queryChapters)

	chg := dg.Group("/chapters/:chapterID", chapterCtxMiddleware(svc))
	chg.GET("", api.retrieveChapter)
	chg.PUT("", api.updateChapter)
	chg.DELETE("", api.destroyChapter)

	chg.POST("/materials", api.createMaterial)
	chg.GET("/materials", api.queryMaterials)
	chg.GET("/materials/:materialID", api.retrieveMaterial)
	chg.PUT("/materials/:materialID", api.updateMaterial)
	chg.DELETE("/materials/:materialID", api.destroyMaterial)
	chg.POST("/materials/:materialID/attachments", api.addMaterialAttachment)
	chg.GET("/materials/:materialID/attachments", api.queryMaterialAttachments)
	chg.DELETE("/materials/:materialID/attachments/:attachmentID", api.destroyMaterialAttachment)

	chg.POST("/tasks", api.createTask)
	chg.GET("/tasks", api.queryTasks)

	tg := chg.Group("/tasks/:taskID", taskCtxMiddleware(svc))
	tg.GET("", api.retrieveTask)
	tg.PUT("", api.updateTask)
	tg.DELETE("", api.destroyTask)
	tg.POST("/attachments", api.addTaskAttachment)
	tg.GET("/attachments", api.queryTaskAttachments)
	tg.DELETE("/attachments/:attachmentID", api.destroyTaskAttachment)

	tg.POST("/works", api.createWork)
	tg.GET("/works", api.queryWorks)
	tg.GET("/works/:workID", api.retrieveWork)
	tg.PUT("/works/:workID", api.updateWork)
	tg.DELETE("/works/:workID", api.destroyWork)
	tg.POST("/works/:workID/submit", api.submitWork)
	tg.POST("/works/:workID/unsubmit", api.unsubmitWork)
	tg.POST("/works/:workID/attachments", api.addWorkAttachment)
	tg.GET("/works/:workID/attachments", api.queryWorkAttachments)
	tg.DELETE("/works/:workID/attachments/:attachmentID", api.destroyWorkAttachment)
}

// Course handlers

func (api *courseApi) create(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsGlobalTeacher); err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	var filter course.CourseFilter
	if ctx.QueryParam("enrolled") == "true" {
		ctxUsr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		filter.EnrolledUserID = ctxUsr.ID
	}

	courses, err := api.svc.Query(ctx.Request().Context(), &filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextCourse(ctx))
}

func (api *courseApi) update(ctx echo.Context) error {
	crs := getContextCourse(ctx)
	if err := checkPermission(ctx, api.usrSvc, course.IsGlobalTeacherOrReadOnly, ownerOrReadOnly(crs)); err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), crs, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs := getContextCourse(ctx)
	if err := checkPermission(ctx, api.usrSvc, course.IsGlobalTeacherOrReadOnly, ownerOrReadOnly(crs)); err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Member handlers

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.NewCourseMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourseMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	target := ctxUsr
	if data.UserID != 0 && data.UserID != ctxUsr.ID {
		// enrolling someone else is a course teacher's call
		if getContextMember(ctx) == nil {
			return course.ErrNotEnrolled
		}
		if err = checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
			return err
		}
		if target, err = api.usrSvc.GetByID(ctx.Request().Context(), data.UserID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: user.ErrNotFound.Error()})
			}
			return errors.Wrap(err, "finding user by ID")
		}
	} else if data.Role == course.RoleTeacher {
		// no self-service teacher seats
		return course.ErrActionNotAllowed
	}

	member, err := api.svc.Enroll(ctx.Request().Context(), getContextCourse(ctx), target, data.Role)
	if err != nil {
		return errors.Wrap(err, "enrolling member")
	}
	return ctx.JSON(http.StatusCreated, member)
}

func (api *courseApi) queryMembers(ctx echo.Context) error {
	members, err := api.svc.QueryMembers(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []course.CourseMember{}
	}
	return ctx.JSON(http.StatusOK, members)
}

// Grade handlers

func (api *courseApi) createGrade(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	var data course.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.CreateGrade(ctx.Request().Context(), getContextCourse(ctx), derefMember(getContextMember(ctx)), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *courseApi) queryGrades(ctx echo.Context) error {
	filter := new(course.GradeFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to GradeFilter")
	}

	grades, err := api.svc.QueryGrades(ctx.Request().Context(), getContextCourse(ctx), derefMember(getContextMember(ctx)), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []course.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *courseApi) retrieveGrade(ctx echo.Context) error {
	id, err := pathID(ctx, "gradeID")
	if err != nil {
		return err
	}
	grade, err := api.svc.GetGrade(ctx.Request().Context(), getContextCourse(ctx), derefMember(getContextMember(ctx)), id)
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *courseApi) destroyGrade(ctx echo.Context) error {
	id, err := pathID(ctx, "gradeID")
	if err != nil {
		return err
	}
	grade, err := api.svc.GetGrade(ctx.Request().Context(), getContextCourse(ctx), derefMember(getContextMember(ctx)), id)
	if err != nil {
		return errors.Wrap(err, "getting grade")
	}
	if err = checkPermission(ctx, api.usrSvc, course.IsTeacher, course.MemberOwnerOr(grade)); err != nil {
		return err
	}

	if err = api.svc.DeleteGrade(ctx.Request().Context(), grade); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownerOrReadOnly reserves writes on a user-owned object for its owner.
func ownerOrReadOnly(obj course.UserOwned) course.Predicate {
	return course.UserOwnerOr(obj, http.MethodGet, http.MethodHead, http.MethodOptions)
}

// memberOwnerOrReadOnly reserves writes on a member-owned object for the
// owning course member.
func memberOwnerOrReadOnly(obj course.MemberOwned) course.Predicate {
	return course.MemberOwnerOr(obj, http.MethodGet, http.MethodHead, http.MethodOptions)
}
