package webservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/callsense/callsense/internal/pkg/api"
	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/pipeline"
	"github.com/callsense/callsense/internal/pkg/status"
	"github.com/callsense/callsense/internal/pkg/utils"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// DB provides call records
type DB interface {
	InsertCall(ctx context.Context, call *persistence.Call) error
	LoadCall(ctx context.Context, id string) (*persistence.Call, error)
}

// OrgDB loads the tenant for the plan limit check
type OrgDB interface {
	LoadOrganization(ctx context.Context, id string) (*persistence.Organization, error)
}

// Runner invokes the processing pipeline
type Runner interface {
	Process(ctx context.Context, callID string) (*pipeline.Outcome, error)
}

// Reporter makes a human readable report from the analysis
type Reporter interface {
	GenerateReport(ctx context.Context, text string, als *persistence.Analysis) (string, error)
}

// WSConnHandler manages websocket subscriber connections
type WSConnHandler interface {
	HandleConnection(WsConn) error
	GetConnections(id string) ([]WsConn, bool)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Saver     FileSaver
	DB        DB
	Orgs      OrgDB
	MsgSender MsgSender
	Pipeline  Runner
	Reporter  Reporter
	WSHandler WSConnHandler
	JWTSecret string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	zlog.Info().Msgf("Starting HTTP callsense service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 60 * time.Second

	gracehttp.SetLogger(log.New(zlog.Logger, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Orgs == nil {
		return errors.New("no Orgs")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	if data.Pipeline == nil {
		return errors.New("no pipeline")
	}
	if data.Reporter == nil {
		return errors.New("no reporter")
	}
	if data.WSHandler == nil {
		return errors.New("no WSHandler")
	}
	if data.JWTSecret == "" {
		return errors.New("no JWT secret")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("callsense", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)
	e.HTTPErrorHandler = errorHandler

	auth := JWTAuth(data.JWTSecret)
	e.POST("/upload", upload(data), auth)
	e.POST("/calls/:id/process", process(data), auth)
	e.GET("/calls/:id/status", callStatus(data), auth)
	e.GET("/calls/:id/report", report(data), auth)
	e.GET("/subscribe", subscribe(data))
	e.GET("/live", live(data))

	zlog.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		zlog.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

// errorHandler wraps all failures into the JSON envelope
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if err := c.JSON(code, api.Envelope{Success: false, Error: msg}); err != nil {
		zlog.Error().Err(err).Msg("can't write error response")
	}
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		org := orgID(c)

		orgData, err := data.Orgs.LoadOrganization(ctx, org)
		if err != nil {
			zlog.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if orgData == nil {
			return echo.NewHTTPError(http.StatusForbidden, "unknown organization")
		}
		if orgData.CallLimit > 0 && orgData.MonthlyCalls >= orgData.CallLimit {
			return echo.NewHTTPError(http.StatusForbidden, "monthly call limit reached")
		}

		file, header, err := c.Request().FormFile(api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'file'")
		}
		defer file.Close()

		id := uuid.New().String()
		objName, err := utils.MakeObjectName(org, id, header.Filename)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		call := &persistence.Call{ID: id, OrganizationID: org, AudioReference: objName,
			Status: status.Uploading.String(), Email: c.FormValue(api.PrmEmail), Created: time.Now()}
		if err := data.Saver.SaveFile(ctx, objName, file, header.Size); err != nil {
			zlog.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.DB.InsertCall(ctx, call); err != nil {
			zlog.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.MsgSender.SendMessage(ctx, &messages.ProcessMessage{ID: id}, messages.Process); err != nil {
			zlog.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		zlog.Info().Str("ID", id).Str("file", objName).Msg("uploaded")

		return c.JSON(http.StatusOK, api.Envelope{Success: true, Data: api.UploadResult{ID: id}})
	}
}

func process(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		call, err := loadOwned(ctx, data, c)
		if err != nil {
			return err
		}
		if !status.CanTransition(status.From(call.Status), status.Processing) {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("can't process call in status '%s'", call.Status))
		}
		res, err := data.Pipeline.Process(ctx, call.ID)
		if err != nil {
			return mapPipelineErr(err)
		}
		return c.JSON(http.StatusOK, api.Envelope{Success: true,
			Data: api.ProcessResult{ID: call.ID, Status: status.Completed.String(),
				Processed:  res.Processed.Format(time.RFC3339),
				Transcript: res.Transcript, Analysis: res.Analysis}})
	}
}

func mapPipelineErr(err error) error {
	if errors.Is(err, pipeline.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "call not found")
	}
	var isErr *pipeline.InvalidStateError
	if errors.As(err, &isErr) {
		return echo.NewHTTPError(http.StatusBadRequest, isErr.Reason)
	}
	zlog.Error().Err(err).Send()
	var stErr *pipeline.StageError
	if errors.As(err, &stErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, stErr.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func callStatus(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		call, err := loadOwned(c.Request().Context(), data, c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.Envelope{Success: true, Data: mapStatus(call)})
	}
}

func report(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		call, err := loadOwned(ctx, data, c)
		if err != nil {
			return err
		}
		if call.Transcript == nil || call.Analysis == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "call is not analyzed")
		}
		res, err := data.Reporter.GenerateReport(ctx, call.Transcript.Text, call.Analysis)
		if err != nil {
			zlog.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, api.Envelope{Success: true, Data: api.Report{ID: call.ID, Report: res}})
	}
}

// loadOwned loads the call and hides other tenants' calls as not found
func loadOwned(ctx context.Context, data *Data, c echo.Context) (*persistence.Call, error) {
	id := c.Param("id")
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no ID")
	}
	call, err := data.DB.LoadCall(ctx, id)
	if err != nil {
		zlog.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	if call == nil || call.OrganizationID != orgID(c) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "call not found")
	}
	return call, nil
}

func mapStatus(call *persistence.Call) api.CallStatus {
	res := api.CallStatus{ID: call.ID, Status: call.Status, Error: call.Error,
		Created: call.Created.Format(time.RFC3339)}
	if call.Processed != nil {
		res.Processed = call.Processed.Format(time.RFC3339)
	}
	return res
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			zlog.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}
