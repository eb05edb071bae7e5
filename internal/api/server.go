// Package api serves conversions over HTTP.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/samcharles93/setupconv/internal/version"
)

// DefaultMaxBody bounds request bodies. Setup images are well under a
// megabyte.
const DefaultMaxBody = 16 << 20

type Config struct {
	Logger  logger.Logger
	MaxBody int64
	// Includes overrides the include lines of text output.
	Includes []string
}

type Server struct {
	log      logger.Logger
	maxBody  int64
	includes []string
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	return &Server{
		log:      cfg.Logger,
		maxBody:  cfg.MaxBody,
		includes: cfg.Includes,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(s.requestID)
	e.GET("/v1/health", s.handleHealth)
	e.POST("/v1/convert", s.handleConvert)
	e.POST("/v1/inspect", s.handleInspect)
	e.POST("/v1/verify", s.handleVerify)
}

// requestID tags every response with an X-Request-Id, keeping one the
// client sent.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = newRequestID()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		log := s.log.With("request_id", id)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), log)))
		return next(c)
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleConvert(c *echo.Context) error {
	opts, err := conversionOptions(c, true)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	opts.Includes = s.includes
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeConversionError(c, err)
	}
	res, err := convert.Convert(c.Request().Context(), data, opts)
	if err != nil {
		return writeConversionError(c, err)
	}
	h := c.Response().Header()
	h.Set("X-Run-Id", res.RunID)
	h.Set("X-Unresolved-Pointers", strconv.Itoa(res.Unresolved))
	return c.Blob(http.StatusOK, contentType(opts.To), res.Data)
}

func (s *Server) handleInspect(c *echo.Context) error {
	opts, err := conversionOptions(c, false)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeConversionError(c, err)
	}
	g, err := convert.Load(opts.Kind, opts.From, data, opts.Beta)
	if err != nil {
		return writeConversionError(c, err)
	}
	sum, err := convert.Inspect(g)
	if err != nil {
		return writeConversionError(c, err)
	}
	return writeJSON(c, http.StatusOK, sum)
}

func (s *Server) handleVerify(c *echo.Context) error {
	opts, err := conversionOptions(c, false)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if opts.From != convert.FormatBinary {
		return writeBadRequest(c, "verify takes a binary image")
	}
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeConversionError(c, err)
	}
	rep, err := convert.Verify(c.Request().Context(), data, opts.Kind, opts.Beta)
	if err != nil {
		return writeConversionError(c, err)
	}
	resp := VerifyResponse{SHA256: rep.Hash, OK: rep.OK()}
	for _, ch := range rep.Checks {
		resp.Checks = append(resp.Checks, VerifyCheck{Via: ch.Via.String(), SHA256: ch.Hash, OK: ch.OK})
	}
	return writeJSON(c, http.StatusOK, resp)
}
