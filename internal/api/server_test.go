package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/setupconv/internal/convert"
)

const stanText = `StandFileHeader stan_header = {
    0x00000001,
    &stan_tile_0,
    { NULL, 0x00, 0x00, 0x00, 0x00, NULL },
};

StandTile stan_tile_0 = {
    0x000001, 0x01, 0x00, 0x7F, 1, 0x01, 0x02, 0x03,
    {
        { 1, 2, 3, 0 },
    },
};

StandFileFooter stan_footer = {
    0x00000000, 0x00000000, "unstric", 0x00000007, 0x00000009
};
`

func newTestEcho(maxBody int64) *echo.Echo {
	server := NewServer(Config{MaxBody: maxBody})
	e := echo.New()
	server.Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func stanImage(t *testing.T) []byte {
	t.Helper()
	res, err := convert.Convert(context.Background(), []byte(stanText), convert.Options{
		Kind: convert.KindStan,
		From: convert.FormatText,
		To:   convert.FormatBinary,
	})
	if err != nil {
		t.Fatalf("convert fixture: %v", err)
	}
	return res.Data
}

type errorBody struct {
	Error ResponseError `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ResponseError {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	rec := do(t, e, http.MethodGet, "/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "ok" || got.Version == "" {
		t.Fatalf("health: %+v", got)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("missing request id")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req_fixed")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "req_fixed" {
		t.Fatalf("request id: got %q", got)
	}
}

func TestConvertTextToBinaryAndBack(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	rec := do(t, e, http.MethodPost, "/v1/convert?kind=stan&from=c&to=bin", []byte(stanText))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != echo.MIMEOctetStream {
		t.Fatalf("content type: got %q", got)
	}
	if rec.Header().Get("X-Unresolved-Pointers") != "0" {
		t.Fatalf("unresolved header: %q", rec.Header().Get("X-Unresolved-Pointers"))
	}
	bin := rec.Body.Bytes()
	if !bytes.Equal(bin, stanImage(t)) {
		t.Fatalf("binary differs from direct conversion")
	}

	rec = do(t, e, http.MethodPost, "/v1/convert?kind=stan&from=bin&to=c", bin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "StandFileFooter stan_footer") {
		t.Fatalf("text output: %s", rec.Body.String())
	}
}

func TestConvertErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		typ    string
	}{
		{"missing kind", "/v1/convert?from=c&to=bin", stanText, http.StatusBadRequest, "invalid_request_error"},
		{"unknown format", "/v1/convert?kind=stan&from=xml&to=bin", stanText, http.StatusBadRequest, "invalid_request_error"},
		{"missing to", "/v1/convert?kind=stan&from=c", stanText, http.StatusBadRequest, "invalid_request_error"},
		{"bad beta", "/v1/convert?kind=stan&to=c&beta=maybe", stanText, http.StatusBadRequest, "invalid_request_error"},
		{"missing section", "/v1/convert?kind=setup&from=c&to=bin", "", http.StatusUnprocessableEntity, "missing_section_error"},
		{"corrupt image", "/v1/convert?kind=stan&from=bin&to=c", "short", http.StatusUnprocessableEntity, "corrupt_image_error"},
	}
	for _, tc := range tests {
		rec := do(t, e, http.MethodPost, tc.path, []byte(tc.body))
		if rec.Code != tc.status {
			t.Fatalf("%s: status got %d want %d body=%s", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		if got := decodeError(t, rec); got.Type != tc.typ || got.Message == "" {
			t.Fatalf("%s: error %+v", tc.name, got)
		}
	}
}

func TestConvertRejectsLargeBody(t *testing.T) {
	t.Parallel()

	e := newTestEcho(16)
	rec := do(t, e, http.MethodPost, "/v1/convert?kind=stan&from=c&to=bin", []byte(stanText))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	rec := do(t, e, http.MethodPost, "/v1/inspect?kind=stan", stanImage(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var sum convert.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Kind != "stan" || sum.Size != len(stanImage(t)) || len(sum.Parts) != 3 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	rec := do(t, e, http.MethodPost, "/v1/verify?kind=stan", stanImage(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var got VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.OK || len(got.Checks) != 3 {
		t.Fatalf("verify: %+v", got)
	}

	rec = do(t, e, http.MethodPost, "/v1/verify?kind=stan&from=c", []byte(stanText))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("verify text: got %d", rec.Code)
	}
}
