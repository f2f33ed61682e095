package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/radiomute/internal/mute"
	"github.com/danmuck/radiomute/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

type stubController struct {
	snap    mute.Snapshot
	resyncs int
	err     error
}

func (s *stubController) Snapshot() mute.Snapshot { return s.snap }

func (s *stubController) Resync() error {
	s.resyncs++
	return s.err
}

type stubHost bool

func (h stubHost) Attached() bool { return bool(h) }

func serve(t *testing.T, r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAdminStatusReportsSnapshot(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	ctl := &stubController{snap: mute.Snapshot{
		State: mute.State{Policy: true, PolicyKnown: true, CommandedMuted: true, Commanded: true},
		Phase: mute.PhaseMuted,
	}}
	r := NewAdminRouter(AdminConfig{Token: "secret"}, ctl, stubHost(true))

	rr := serve(t, r, http.MethodGet, "/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Snapshot     mute.Snapshot `json:"snapshot"`
		DesiredMuted bool          `json:"desired_muted"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Snapshot.Phase != mute.PhaseMuted || !body.DesiredMuted || !body.Snapshot.State.CommandedMuted {
		t.Fatalf("unexpected status body: %s", rr.Body.String())
	}
}

func TestAdminReadyFollowsAttachState(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	ctl := &stubController{}

	if rr := serve(t, NewAdminRouter(AdminConfig{}, ctl, stubHost(false)), http.MethodGet, "/ready", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while detached, got %d", rr.Code)
	}
	if rr := serve(t, NewAdminRouter(AdminConfig{}, ctl, stubHost(true)), http.MethodGet, "/ready", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 once attached, got %d", rr.Code)
	}
	if rr := serve(t, NewAdminRouter(AdminConfig{}, ctl, nil), http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rr.Code)
	}
}

func TestAdminResyncRequiresToken(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	ctl := &stubController{}
	r := NewAdminRouter(AdminConfig{Token: "secret"}, ctl, stubHost(true))

	if rr := serve(t, r, http.MethodPost, "/resync", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if ctl.resyncs != 0 {
		t.Fatalf("unauthorized request reached the controller")
	}
	if rr := serve(t, r, http.MethodPost, "/resync", "secret"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body=%s", rr.Code, rr.Body.String())
	}
	if ctl.resyncs != 1 {
		t.Fatalf("expected one resync, got %d", ctl.resyncs)
	}

	ctl.err = mute.ErrClosed
	if rr := serve(t, r, http.MethodPost, "/resync", "secret"); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 after shutdown, got %d", rr.Code)
	}
}

func TestAdminResyncDisabledWithoutToken(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := NewAdminRouter(AdminConfig{}, &stubController{}, stubHost(true))
	if rr := serve(t, r, http.MethodPost, "/resync", "anything"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no token is configured, got %d", rr.Code)
	}
}

func TestAdminMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	RecordDecodeError(nil)
	r := NewAdminRouter(AdminConfig{}, &stubController{}, stubHost(true))
	rr := serve(t, r, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "radiomute_osc_decode_errors_total") {
		t.Fatalf("expected radiomute metrics, got %d", rr.Code)
	}
}
