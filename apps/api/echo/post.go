package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
)

// Chapter handlers

func (api *courseApi) createChapter(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chapter, err := api.svc.CreateChapter(ctx.Request().Context(), getContextCourse(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return ctx.JSON(http.StatusCreated, chapter)
}

func (api *courseApi) queryChapters(ctx echo.Context) error {
	chapters, err := api.svc.QueryChapters(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	if chapters == nil {
		chapters = []course.Chapter{}
	}
	return ctx.JSON(http.StatusOK, chapters)
}

func (api *courseApi) retrieveChapter(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextChapter(ctx))
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	chapter, err := api.svc.UpdateChapter(ctx.Request().Context(), getContextChapter(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating chapter")
	}
	return ctx.JSON(http.StatusOK, chapter)
}

func (api *courseApi) destroyChapter(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	if err := api.svc.DeleteChapter(ctx.Request().Context(), getContextChapter(ctx)); err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Material handlers

func (api *courseApi) createMaterial(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	var data course.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	material, err := api.svc.CreateMaterial(ctx.Request().Context(), getContextChapter(ctx), derefMember(getContextMember(ctx)), data)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, material)
}

func (api *courseApi) queryMaterials(ctx echo.Context) error {
	materials, err := api.svc.QueryMaterials(ctx.Request().Context(), getContextChapter(ctx), derefMember(getContextMember(ctx)))
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if materials == nil {
		materials = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *courseApi) contextMaterial(ctx echo.Context) (course.Material, error) {
	id, err := pathID(ctx, "materialID")
	if err != nil {
		return course.Material{}, err
	}
	material, err := api.svc.GetMaterial(ctx.Request().Context(), getContextChapter(ctx), derefMember(getContextMember(ctx)), id)
	return material, errors.Wrap(err, "getting material")
}

func (api *courseApi) retrieveMaterial(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, material)
}

func (api *courseApi) updateMaterial(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(material)); err != nil {
		return err
	}

	var data course.UpdatePost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	material, err = api.svc.UpdateMaterial(ctx.Request().Context(), material, data)
	if err != nil {
		return errors.Wrap(err, "updating material")
	}
	return ctx.JSON(http.StatusOK, material)
}

func (api *courseApi) destroyMaterial(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(material)); err != nil {
		return err
	}

	if err = api.svc.DeleteMaterial(ctx.Request().Context(), material); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Task handlers

func (api *courseApi) createTask(ctx echo.Context) error {
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher); err != nil {
		return err
	}

	var data course.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	task, err := api.svc.CreateTask(ctx.Request().Context(), getContextChapter(ctx), derefMember(getContextMember(ctx)), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *courseApi) queryTasks(ctx echo.Context) error {
	tasks, err := api.svc.QueryTasks(ctx.Request().Context(), getContextChapter(ctx), derefMember(getContextMember(ctx)))
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []course.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *courseApi) retrieveTask(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, *task)
}

func (api *courseApi) updateTask(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(*task)); err != nil {
		return err
	}

	var data course.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	updated, err := api.svc.UpdateTask(ctx.Request().Context(), *task, data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *courseApi) destroyTask(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(*task)); err != nil {
		return err
	}

	if err := api.svc.DeleteTask(ctx.Request().Context(), *task); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}
