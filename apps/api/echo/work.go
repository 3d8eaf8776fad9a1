package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
)

// StudentWork handlers

func (api *courseApi) createWork(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsStudent, course.IsActiveTask); err != nil {
		return err
	}

	var data course.NewStudentWork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudentWork")
	}

	task := getContextTask(ctx)
	work, err := api.svc.CreateWork(ctx.Request().Context(), *task, derefMember(getContextMember(ctx)), data)
	if err != nil {
		return errors.Wrap(err, "creating student work")
	}
	return ctx.JSON(http.StatusCreated, work)
}

func (api *courseApi) queryWorks(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.AnyOf(course.IsTeacher, course.IsStudent)); err != nil {
		return err
	}

	task := getContextTask(ctx)
	works, err := api.svc.QueryWorks(ctx.Request().Context(), *task, derefMember(getContextMember(ctx)))
	if err != nil {
		return errors.Wrap(err, "querying student works")
	}
	if works == nil {
		works = []course.StudentWork{}
	}
	return ctx.JSON(http.StatusOK, works)
}

func (api *courseApi) contextWork(ctx echo.Context) (course.StudentWork, error) {
	id, err := pathID(ctx, "workID")
	if err != nil {
		return course.StudentWork{}, err
	}
	task := getContextTask(ctx)
	work, err := api.svc.GetWork(ctx.Request().Context(), *task, derefMember(getContextMember(ctx)), id)
	return work, errors.Wrap(err, "getting student work")
}

func (api *courseApi) retrieveWork(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, work)
}

func (api *courseApi) updateWork(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsEditableWork(work), course.IsActiveTask); err != nil {
		return err
	}

	var data course.UpdateStudentWork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudentWork")
	}

	work, err = api.svc.UpdateWork(ctx.Request().Context(), work, data)
	if err != nil {
		return errors.Wrap(err, "updating student work")
	}
	return ctx.JSON(http.StatusOK, work)
}

func (api *courseApi) destroyWork(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsEditableWork(work), course.IsActiveTask); err != nil {
		return err
	}

	if err = api.svc.DeleteWork(ctx.Request().Context(), work); err != nil {
		return errors.Wrap(err, "deleting student work")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) submitWork(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsActiveTask); err != nil {
		return err
	}

	work, err = api.svc.SubmitWork(ctx.Request().Context(), work)
	if err != nil {
		return errors.Wrap(err, "submitting student work")
	}
	return ctx.JSON(http.StatusOK, work)
}

func (api *courseApi) unsubmitWork(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsActiveTask); err != nil {
		return err
	}

	work, err = api.svc.UnsubmitWork(ctx.Request().Context(), work)
	if err != nil {
		return errors.Wrap(err, "unsubmitting student work")
	}
	return ctx.JSON(http.StatusOK, work)
}
