package echoapi

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/schedule"
	metricsvc "github.com/trezcool/madrasa/services/metrics"
)

const (
	documentField = "document"

	// room left for the multipart envelope around the document
	multipartOverhead = 64 << 10
)

type scheduleApi struct {
	svc     *schedule.Service
	metrics *metricsvc.Recorder
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, conf *core.Config, metrics *metricsvc.Recorder) {
	api := scheduleApi{svc: svc, metrics: metrics}

	dg := registerPanelAPI(g, jwt, &panelApi[schedule.Entry, *schedule.Entry]{
		store:   svc.Store(),
		alt:     schedule.AltMode,
		metrics: metrics,
		sanitize: func(orig schedule.Entry, draft *schedule.Entry) {
			draft.KeepDocument(orig)
		},
		remove: svc.Remove,
	})
	// reject oversized requests before the multipart form is parsed
	bodyLimit := middleware.BodyLimit(strconv.FormatInt(conf.Upload.MaxBytes+multipartOverhead, 10))
	dg.PUT("/document", api.upload, bodyLimit)
	dg.GET("/document", api.download)
	dg.DELETE("/document", api.detach)
}

// upload accepts a multipart `document` file, then attaches it to the entry.
// The entry is resolved again once the file is stored: it may have been deleted meanwhile.
func (api *scheduleApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile(documentField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: documentField, Error: "this field is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	reqCtx := ctx.Request().Context()
	doc, err := api.svc.Acquire(reqCtx, file, fh.Filename, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		api.metrics.Upload(metricsvc.Rejected)
		return errors.Wrap(err, "acquiring document")
	}
	entry, err := api.svc.Attach(reqCtx, ctx.Param("id"), doc)
	if err != nil {
		api.metrics.Upload(metricsvc.Rejected)
		return errors.Wrap(err, "attaching document")
	}
	api.metrics.Upload(metricsvc.Created)
	return ctx.JSON(http.StatusOK, entry)
}

// download redirects to the document when the blob store can sign URLs, streams it otherwise.
func (api *scheduleApi) download(ctx echo.Context) error {
	dl, err := api.svc.Open(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	if dl.URL != "" {
		return ctx.Redirect(http.StatusTemporaryRedirect, dl.URL)
	}
	defer dl.Body.Close()

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": dl.Entry.DocumentName.String})
	if disposition != "" {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	}
	return ctx.Stream(http.StatusOK, dl.Info.ContentType, dl.Body)
}

func (api *scheduleApi) detach(ctx echo.Context) error {
	entry, err := api.svc.Detach(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "removing document")
	}
	api.metrics.Upload(metricsvc.Removed)
	return ctx.JSON(http.StatusOK, entry)
}
