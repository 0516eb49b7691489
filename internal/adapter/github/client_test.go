package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var testRef = model.PullRequestRef{InstallationID: 1, Owner: "acme", Repo: "services", Number: 7, HeadSHA: "abc123"}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.Client(), srv.URL+"/api/v3", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient(nil, "://bad", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewClient(nil, "api/v3", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
	if _, err := NewClient(nil, "", testLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListReviewsPaginates(t *testing.T) {
	var baseURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/services/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/repos/acme/services/pulls/7/reviews?page=2>; rel="next"`, baseURL))
			_, _ = io.WriteString(w, `[{"id":1,"user":{"id":10,"login":"alice"},"state":"APPROVED","submitted_at":"2024-01-01T10:00:00Z"}]`)
		case "2":
			_, _ = io.WriteString(w, `[{"id":2,"user":{"id":11,"login":"bob"},"state":"COMMENTED","submitted_at":"2024-01-02T10:00:00Z"}]`)
		default:
			t.Fatalf("unexpected page %s", r.URL.Query().Get("page"))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	baseURL = srv.URL

	client, err := NewClient(srv.Client(), srv.URL+"/api/v3/", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	reviews, err := client.ListReviews(context.Background(), testRef)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected two reviews, got %d", len(reviews))
	}
	if reviews[0].ReviewerID != 10 || reviews[0].ReviewerLogin != "alice" || reviews[0].State != model.ReviewApproved {
		t.Fatalf("unexpected review: %+v", reviews[0])
	}
	if reviews[1].SubmittedAt.Day() != 2 {
		t.Fatalf("unexpected submitted at: %v", reviews[1].SubmittedAt)
	}
}

func TestListReviewsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/services/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, mux)
	if _, err := client.ListReviews(context.Background(), testRef); err == nil {
		t.Fatal("expected error")
	}
}

func TestFindCheckRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/services/commits/abc123/check-runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("check_name") == "" {
			t.Fatal("expected check_name filter")
		}
		_, _ = io.WriteString(w, `{"total_count":2,"check_runs":[
			{"id":4,"name":"lint","head_sha":"abc123","status":"completed","conclusion":"success"},
			{"id":5,"name":"Approval Check","head_sha":"abc123","status":"completed","conclusion":"success"}]}`)
	})
	client := newTestClient(t, mux)

	run, err := client.FindCheckRun(context.Background(), testRef, "Approval Check")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != 5 || run.Conclusion != model.CheckConclusionSuccess {
		t.Fatalf("unexpected run: %+v", run)
	}

	if _, err := client.FindCheckRun(context.Background(), testRef, "Approval Check (dev)"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateAndCompleteCheckRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/services/check-runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Approval Check" || body["head_sha"] != "abc123" || body["status"] != "in_progress" {
			t.Fatalf("unexpected create body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":9,"name":"Approval Check","head_sha":"abc123","status":"in_progress"}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/services/check-runs/9", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body struct {
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
			Output     struct {
				Title   string `json:"title"`
				Summary string `json:"summary"`
				Text    string `json:"text"`
			} `json:"output"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Status != "completed" || body.Conclusion != "success" || body.Output.Text != "details" {
			t.Fatalf("unexpected update body: %+v", body)
		}
		_, _ = io.WriteString(w, `{"id":9}`)
	})
	client := newTestClient(t, mux)

	run, err := client.CreateCheckRun(context.Background(), testRef, "Approval Check", model.CheckOutput{Title: "Approval Check", Summary: "Validating"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != 9 || run.Status != model.CheckStatusInProgress {
		t.Fatalf("unexpected run: %+v", run)
	}

	output := model.CheckOutput{Title: "Approval Check", Summary: "ok", Text: "details"}
	if err := client.CompleteCheckRun(context.Background(), testRef, 9, "Approval Check", model.CheckConclusionSuccess, output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.CompleteCheckRun(context.Background(), testRef, 10, "Approval Check", model.CheckConclusionSuccess, output); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestFactoryForInstallation(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	factory := NewFactory(42, string(pemKey), "https://ghe.example.com/api/v3/", testLogger())
	client, err := factory.ForInstallation(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.api.BaseURL.String() != "https://ghe.example.com/api/v3/" {
		t.Fatalf("unexpected base url: %s", client.api.BaseURL)
	}

	broken := NewFactory(42, "not a key", "", testLogger())
	if _, err := broken.ForInstallation(7); err == nil {
		t.Fatal("expected error for invalid key")
	}
}
