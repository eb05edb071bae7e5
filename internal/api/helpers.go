package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/setupconv/internal/convert"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
		},
	})
}

func writeConversionError(c *echo.Context, err error) error {
	status, errType := classify(err)
	return writeError(c, status, errType, err.Error())
}

// writeJSON encodes v with go-json and writes it as the response body.
func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSONCharsetUTF8, b)
}

func readBody(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// conversionOptions reads kind, from, to and beta from the query string.
// Output format is optional for endpoints that do not emit.
func conversionOptions(c *echo.Context, needTo bool) (convert.Options, error) {
	var opts convert.Options
	kind := c.QueryParam("kind")
	if kind == "" {
		return opts, newInvalidRequest("kind is required")
	}
	k, err := convert.ParseKind(kind)
	if err != nil {
		return opts, newInvalidRequest(err.Error())
	}
	opts.Kind = k

	from := c.QueryParam("from")
	if from == "" {
		from = convert.FormatBinary.String()
	}
	if opts.From, err = convert.ParseFormat(from); err != nil {
		return opts, newInvalidRequest(err.Error())
	}
	if to := c.QueryParam("to"); to != "" {
		if opts.To, err = convert.ParseFormat(to); err != nil {
			return opts, newInvalidRequest(err.Error())
		}
	} else if needTo {
		return opts, newInvalidRequest("to is required")
	}
	if beta := c.QueryParam("beta"); beta != "" {
		if opts.Beta, err = strconv.ParseBool(beta); err != nil {
			return opts, newInvalidRequest("beta must be a boolean")
		}
	}
	opts.Source = c.QueryParam("source")
	return opts, nil
}

func contentType(f convert.Format) string {
	switch f {
	case convert.FormatText:
		return echo.MIMETextPlainCharsetUTF8
	case convert.FormatDocument:
		return echo.MIMEApplicationJSONCharsetUTF8
	}
	return echo.MIMEOctetStream
}

func newRequestID() string {
	return "req_" + uuid.NewString()
}
