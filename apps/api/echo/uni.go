package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/uni"
)

type uniApi struct {
	svc      uni.Service
	validate *validator.Validate
}

func registerUniAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc uni.Service, validate *validator.Validate) {
	api := uniApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/departments", jwt)
	dg.POST("", api.createDepartment, adminMiddleware())
	dg.GET("", api.queryDepartments)
	dg.GET("/:id", api.retrieveDepartment)
	dg.GET("/:id/specialities", api.querySpecialities)

	sg := g.Group("/specialities", jwt)
	sg.POST("", api.createSpeciality, adminMiddleware())
	sg.GET("", api.queryAllSpecialities)
	sg.GET("/:id", api.retrieveSpeciality)
}

// Handlers

func (api *uniApi) createDepartment(ctx echo.Context) error {
	var data uni.NewDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dep, err := api.svc.CreateDepartment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dep)
}

func (api *uniApi) queryDepartments(ctx echo.Context) error {
	deps, err := api.svc.QueryDepartments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	if deps == nil {
		deps = []uni.Department{}
	}
	return ctx.JSON(http.StatusOK, deps)
}

func (api *uniApi) retrieveDepartment(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	dep, err := api.svc.GetDepartment(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting department")
	}
	return ctx.JSON(http.StatusOK, dep)
}

func (api *uniApi) querySpecialities(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = api.svc.GetDepartment(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "getting department")
	}

	specs, err := api.svc.QuerySpecialities(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying specialities")
	}
	if specs == nil {
		specs = []uni.Speciality{}
	}
	return ctx.JSON(http.StatusOK, specs)
}

func (api *uniApi) createSpeciality(ctx echo.Context) error {
	var data uni.NewSpeciality
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSpeciality")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	spec, err := api.svc.CreateSpeciality(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating speciality")
	}
	return ctx.JSON(http.StatusCreated, spec)
}

func (api *uniApi) queryAllSpecialities(ctx echo.Context) error {
	var departmentID int
	if raw := ctx.QueryParam("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return errHttpNotFound
		}
		departmentID = id
	}

	specs, err := api.svc.QuerySpecialities(ctx.Request().Context(), departmentID)
	if err != nil {
		return errors.Wrap(err, "querying specialities")
	}
	if specs == nil {
		specs = []uni.Speciality{}
	}
	return ctx.JSON(http.StatusOK, specs)
}

func (api *uniApi) retrieveSpeciality(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	spec, err := api.svc.GetSpeciality(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting speciality")
	}
	return ctx.JSON(http.StatusOK, spec)
}
