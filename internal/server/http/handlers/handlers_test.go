package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/server/http/dto"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, path string, handler gin.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestServiceHandlerRoot(t *testing.T) {
	handler := NewServiceHandler(&testhelpers.RelayFacadeStub{}, testhelpers.DiscardLogger())
	resp := performRequest(t, http.MethodGet, "/", handler.Root, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var info dto.ServiceInfo
	if err := json.Unmarshal(resp.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Message == "" || info.Path != "/" || info.Timestamp.IsZero() {
		t.Fatalf("unexpected body %+v", info)
	}
}

func TestServiceHandlerHealth(t *testing.T) {
	healthy := NewServiceHandler(&testhelpers.RelayFacadeStub{}, testhelpers.DiscardLogger())
	resp := performRequest(t, http.MethodGet, "/health", healthy.Health, nil, nil)
	var status dto.HealthStatus
	_ = json.Unmarshal(resp.Body.Bytes(), &status)
	if resp.Code != http.StatusOK || status.Status != "healthy" {
		t.Fatalf("expected healthy, got %d %+v", resp.Code, status)
	}

	unhealthy := NewServiceHandler(&testhelpers.RelayFacadeStub{HealthFn: func(context.Context) error {
		return errors.New("db down")
	}}, testhelpers.DiscardLogger())
	resp = performRequest(t, http.MethodGet, "/health", unhealthy.Health, nil, nil)
	_ = json.Unmarshal(resp.Body.Bytes(), &status)
	if resp.Code != http.StatusServiceUnavailable || status.Status != "unhealthy" {
		t.Fatalf("expected unhealthy, got %d %+v", resp.Code, status)
	}
}

func TestWebhookHandlerRecordsBySource(t *testing.T) {
	facade := &testhelpers.RelayFacadeStub{}
	handler := NewWebhookHandler(facade, testhelpers.DiscardLogger())
	payload := []byte(`{"type":"order.paid"}`)

	resp := performRequest(t, http.MethodPost, "/webhook/fourthwall", handler.Storefront, payload, nil)
	if resp.Code != http.StatusOK || resp.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", resp.Code, resp.Body.String())
	}
	resp = performRequest(t, http.MethodPost, "/webhook/cdclick", handler.CDClick, payload, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	if len(facade.Webhooks) != 2 {
		t.Fatalf("expected two recorded webhooks, got %d", len(facade.Webhooks))
	}
	if facade.Webhooks[0].Source != model.WebhookSourceStorefront || facade.Webhooks[1].Source != model.WebhookSourceCDClick {
		t.Fatalf("unexpected sources %+v", facade.Webhooks)
	}
	if string(facade.Webhooks[0].Payload) != string(payload) {
		t.Fatalf("unexpected payload %q", facade.Webhooks[0].Payload)
	}
}

func TestWebhookHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"invalid payload", domainErrors.ErrInvalidPayload, http.StatusBadRequest, "Invalid payload"},
		{"storage failure", domainErrors.Fatal(errors.New("db down")), http.StatusInternalServerError, "Error processing webhook"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := &testhelpers.RelayFacadeStub{RecordFn: func(context.Context, model.WebhookSource, []byte) error { return tc.err }}
			handler := NewWebhookHandler(facade, testhelpers.DiscardLogger())
			resp := performRequest(t, http.MethodPost, "/webhook/fourthwall", handler.Storefront, []byte("{}"), nil)
			if resp.Code != tc.status || resp.Body.String() != tc.body {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.body, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestWebhookHandlerGitHub(t *testing.T) {
	facade := &testhelpers.RelayFacadeStub{}
	handler := NewWebhookHandler(facade, testhelpers.DiscardLogger())
	resp := performRequest(t, http.MethodPost, "/webhook/github", handler.GitHub, []byte(`{"action":"opened"}`),
		map[string]string{GitHubEventHeader: "pull_request"})
	if resp.Code != http.StatusOK || resp.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", resp.Code, resp.Body.String())
	}
	if len(facade.GitHub) != 1 || facade.GitHub[0].EventType != "pull_request" {
		t.Fatalf("unexpected github calls %+v", facade.GitHub)
	}

	failing := &testhelpers.RelayFacadeStub{GitHubFn: func(context.Context, string, []byte) error { return errors.New("rate limited") }}
	resp = performRequest(t, http.MethodPost, "/webhook/github", NewWebhookHandler(failing, testhelpers.DiscardLogger()).GitHub, []byte("{}"), nil)
	if resp.Code != http.StatusInternalServerError || resp.Body.String() != "Error processing webhook" {
		t.Fatalf("expected generic 500, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestRespondErrorSignatureMessages(t *testing.T) {
	for err, want := range map[error]string{
		domainErrors.ErrMissingSignature: "Missing signature",
		domainErrors.ErrInvalidSignature: "Invalid signature",
	} {
		resp := performRequest(t, http.MethodPost, "/", func(c *gin.Context) { RespondError(c, err) }, nil, nil)
		if resp.Code != http.StatusUnauthorized || resp.Body.String() != want {
			t.Fatalf("expected 401 %q, got %d %q", want, resp.Code, resp.Body.String())
		}
	}
}
