package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/triagelab/feedlens/internal/models"
)

// Controller serves the HTTP API.
type Controller struct {
	engine Engine
	logger *slog.Logger
}

// NewController returns a Controller backed by engine.
func NewController(engine Engine, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{engine: engine, logger: logger}
}

// NewRouter registers the HTTP routes on a fresh gin engine.
func NewRouter(engine Engine, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	ctrl := NewController(engine, logger)

	router := gin.New()
	router.Use(gin.Recovery(), ctrl.logRequests)

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "SERVING"}) })
	router.POST("/query", ctrl.QueryHandler)
	router.POST("/groups", ctrl.GroupsHandler)
	router.GET("/tags", ctrl.TagsHandler)
	router.POST("/aifilter", ctrl.AIFilterHandler)
	return router
}

// QueryHandler serves POST /query.
func (ctrl *Controller) QueryHandler(c *gin.Context) {
	spec, session, ok := ctrl.bindFilter(c)
	if !ok {
		return
	}
	res, err := ctrl.engine.ApplyFilter(c.Request.Context(), spec)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	recordSession(ctrl.engine, session, spec)
	c.JSON(http.StatusOK, ToQueryResponse(res))
}

// GroupsHandler serves POST /groups.
func (ctrl *Controller) GroupsHandler(c *gin.Context) {
	spec, session, ok := ctrl.bindFilter(c)
	if !ok {
		return
	}
	res, err := ctrl.engine.Aggregate(c.Request.Context(), spec)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	recordSession(ctrl.engine, session, spec)
	c.JSON(http.StatusOK, ToGroupsResponse(res))
}

// TagsHandler serves GET /tags.
func (ctrl *Controller) TagsHandler(c *gin.Context) {
	v, err := ctrl.engine.Vocabulary(c.Request.Context())
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToTagsResponse(v))
}

// AIFilterHandler serves POST /aifilter.
func (ctrl *Controller) AIFilterHandler(c *gin.Context) {
	var req AIFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	current, err := currentFilter(ctrl.engine, req)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	res, err := ctrl.engine.TranslateAndMerge(c.Request.Context(), req.Session, req.Query, current)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToAIFilterResponse(res))
}

// bindFilter decodes an optional QueryRequest body. An empty body is the
// empty filter with no session.
func (ctrl *Controller) bindFilter(c *gin.Context) (models.FilterSpec, string, bool) {
	var req QueryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Code: "INVALID_REQUEST", Message: err.Error()})
			return models.FilterSpec{}, "", false
		}
	}
	spec, err := FilterFromPayload(req.Filters)
	if err != nil {
		ctrl.fail(c, err)
		return models.FilterSpec{}, "", false
	}
	return spec, req.Session, true
}

func (ctrl *Controller) fail(c *gin.Context, err error) {
	code, body := HTTPError(err)
	if code >= http.StatusInternalServerError {
		ctrl.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Int("status", code), slog.Any("error", err))
	}
	c.AbortWithStatusJSON(code, body)
}

func (ctrl *Controller) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	ctrl.logger.Debug("http request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", time.Since(start)),
	)
}

// HTTPServer wraps net/http lifecycle around the gin router.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer binds addr and serves handler on it.
func NewHTTPServer(addr string, handler http.Handler) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &HTTPServer{
		server:   &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		listener: lis,
	}, nil
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Start() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the bound listener address.
func (s *HTTPServer) Address() string {
	return s.listener.Addr().String()
}
