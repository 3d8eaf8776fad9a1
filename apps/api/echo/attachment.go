package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
)

// Attachment handlers. The parent is resolved (with its visibility rules) by
// the per-kind wrappers; everything else is shared.

func (api *courseApi) addAttachment(ctx echo.Context, parent course.AttachmentParent) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a file upload is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	att, err := api.svc.AddAttachment(ctx.Request().Context(), parent, fileHeader.Filename, file)
	if err != nil {
		return errors.Wrap(err, "adding attachment")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *courseApi) queryAttachments(ctx echo.Context, parent course.AttachmentParent) error {
	atts, err := api.svc.QueryAttachments(ctx.Request().Context(), parent)
	if err != nil {
		return errors.Wrap(err, "querying attachments")
	}
	if atts == nil {
		atts = []course.Attachment{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *courseApi) destroyAttachment(ctx echo.Context, parent course.AttachmentParent) error {
	id, err := pathID(ctx, "attachmentID")
	if err != nil {
		return err
	}
	att, err := api.svc.GetAttachment(ctx.Request().Context(), parent, id)
	if err != nil {
		return errors.Wrap(err, "getting attachment")
	}

	if err = api.svc.RemoveAttachment(ctx.Request().Context(), parent, att); err != nil {
		return errors.Wrap(err, "removing attachment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Material attachments

func (api *courseApi) addMaterialAttachment(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(material)); err != nil {
		return err
	}
	return api.addAttachment(ctx, material)
}

func (api *courseApi) queryMaterialAttachments(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	return api.queryAttachments(ctx, material)
}

func (api *courseApi) destroyMaterialAttachment(ctx echo.Context) error {
	material, err := api.contextMaterial(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(material)); err != nil {
		return err
	}
	return api.destroyAttachment(ctx, material)
}

// Task attachments

func (api *courseApi) addTaskAttachment(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(*task)); err != nil {
		return err
	}
	return api.addAttachment(ctx, *task)
}

func (api *courseApi) queryTaskAttachments(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	return api.queryAttachments(ctx, *task)
}

func (api *courseApi) destroyTaskAttachment(ctx echo.Context) error {
	task := getContextTask(ctx)
	if task == nil {
		return errHttpNotFound
	}
	if err := checkPermission(ctx, api.usrSvc, course.IsTeacher, memberOwnerOrReadOnly(*task)); err != nil {
		return err
	}
	return api.destroyAttachment(ctx, *task)
}

// StudentWork attachments

func (api *courseApi) addWorkAttachment(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsEditableWork(work), course.IsActiveTask); err != nil {
		return err
	}
	return api.addAttachment(ctx, work)
}

func (api *courseApi) queryWorkAttachments(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	return api.queryAttachments(ctx, work)
}

func (api *courseApi) destroyWorkAttachment(ctx echo.Context) error {
	work, err := api.contextWork(ctx)
	if err != nil {
		return err
	}
	if err = checkPermission(ctx, api.usrSvc, course.MemberOwnerOr(work), course.IsEditableWork(work), course.IsActiveTask); err != nil {
		return err
	}
	return api.destroyAttachment(ctx, work)
}
