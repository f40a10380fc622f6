package codes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codegate/entity"
	"codegate/impl/core"
	"codegate/lib/api/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeCore is an in-memory Core for handler tests.
type fakeCore struct {
	codes map[string]*entity.Code
}

func newFakeCore() *fakeCore {
	return &fakeCore{codes: make(map[string]*entity.Code)}
}

func (f *fakeCore) AddCode(value string) (*entity.Code, error) {
	code := &entity.Code{Code: value, AddedAt: testNow}
	f.codes[value] = code
	return code, nil
}

func (f *fakeCore) GenerateCode() (*entity.Code, error) {
	return f.AddCode("ABCD1234")
}

func (f *fakeCore) DeleteCode(value string) error {
	if _, ok := f.codes[value]; !ok {
		return core.ErrCodeNotFound
	}
	delete(f.codes, value)
	return nil
}

func (f *fakeCore) CheckCode(value string) (*entity.Code, error) {
	code, ok := f.codes[value]
	if !ok {
		return nil, core.ErrCodeNotFound
	}
	return code, nil
}

func (f *fakeCore) UseCode(value string) error {
	code, ok := f.codes[value]
	if !ok {
		return core.ErrCodeNotFound
	}
	switch code.Status(testNow).State {
	case entity.StateUsed:
		return core.ErrCodeUsed
	case entity.StateExpired:
		return core.ErrCodeExpired
	}
	code.Used = true
	return nil
}

func (f *fakeCore) ListCodes() ([]*entity.Code, error) {
	var codes []*entity.Code
	for _, code := range f.codes {
		codes = append(codes, code)
	}
	return codes, nil
}

func (f *fakeCore) PurgeExpired() (int64, error) {
	cutoff := testNow.AddDate(0, 0, -entity.RetentionDays)
	var removed int64
	for value, code := range f.codes {
		if code.AddedAt.Before(cutoff) {
			delete(f.codes, value)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeCore) Now() time.Time {
	return testNow
}

func newTestRouter(fc *fakeCore) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))
	router.Get("/codes", List(log, fc))
	router.Post("/codes", Add(log, fc))
	router.Post("/codes/generate", Generate(log, fc))
	router.Get("/codes/{code}", Status(log, fc))
	router.Delete("/codes/{code}", Delete(log, fc))
	router.Post("/codes/{code}/use", Use(log, fc))
	router.Post("/purge", Purge(log, fc))
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestAddCode(t *testing.T) {
	fc := newFakeCore()
	router := newTestRouter(fc)

	rec, resp := doRequest(t, router, http.MethodPost, "/codes", `{"code":"PROMO2024"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.StatusMessage)
	}
	if _, ok := fc.codes["PROMO2024"]; !ok {
		t.Fatal("code not stored")
	}

	view, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if view["status"] != "ACTIVE - 30 days left" {
		t.Fatalf("unexpected status: %v", view["status"])
	}
}

func TestAddCode_EmptyRejected(t *testing.T) {
	router := newTestRouter(newFakeCore())

	rec, resp := doRequest(t, router, http.MethodPost, "/codes", `{"code":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestStatus(t *testing.T) {
	fc := newFakeCore()
	fc.codes["PROMO2024"] = &entity.Code{Code: "PROMO2024", AddedAt: testNow.AddDate(0, 0, -12)}
	router := newTestRouter(fc)

	rec, resp := doRequest(t, router, http.MethodGet, "/codes/PROMO2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	view := resp.Data.(map[string]interface{})
	if view["state"] != "active" {
		t.Fatalf("unexpected state: %v", view["state"])
	}
	if view["days_left"] != float64(18) {
		t.Fatalf("unexpected days_left: %v", view["days_left"])
	}
}

func TestStatus_NotFound(t *testing.T) {
	router := newTestRouter(newFakeCore())

	rec, resp := doRequest(t, router, http.MethodGet, "/codes/MISSING", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestUseCode_StatusMapping(t *testing.T) {
	fc := newFakeCore()
	fc.codes["FRESH"] = &entity.Code{Code: "FRESH", AddedAt: testNow}
	fc.codes["TAKEN"] = &entity.Code{Code: "TAKEN", AddedAt: testNow, Used: true}
	fc.codes["STALE"] = &entity.Code{Code: "STALE", AddedAt: testNow.AddDate(0, 0, -31)}
	router := newTestRouter(fc)

	cases := []struct {
		code string
		want int
	}{
		{"FRESH", http.StatusOK},
		{"TAKEN", http.StatusConflict},
		{"STALE", http.StatusGone},
		{"MISSING", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec, _ := doRequest(t, router, http.MethodPost, "/codes/"+tc.code+"/use", "")
		if rec.Code != tc.want {
			t.Errorf("use %s: expected %d, got %d", tc.code, tc.want, rec.Code)
		}
	}

	if !fc.codes["FRESH"].Used {
		t.Fatal("fresh code not marked used")
	}
}

func TestDeleteCode(t *testing.T) {
	fc := newFakeCore()
	fc.codes["GONE"] = &entity.Code{Code: "GONE", AddedAt: testNow}
	router := newTestRouter(fc)

	rec, _ := doRequest(t, router, http.MethodDelete, "/codes/GONE", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec, _ = doRequest(t, router, http.MethodDelete, "/codes/GONE", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestList(t *testing.T) {
	fc := newFakeCore()
	fc.codes["A1"] = &entity.Code{Code: "A1", AddedAt: testNow}
	fc.codes["B2"] = &entity.Code{Code: "B2", AddedAt: testNow.AddDate(0, 0, -40)}
	router := newTestRouter(fc)

	rec, resp := doRequest(t, router, http.MethodGet, "/codes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	views, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(views))
	}
}

func TestPurge(t *testing.T) {
	fc := newFakeCore()
	fc.codes["OLD"] = &entity.Code{Code: "OLD", AddedAt: testNow.AddDate(0, 0, -61)}
	fc.codes["NEW"] = &entity.Code{Code: "NEW", AddedAt: testNow}
	router := newTestRouter(fc)

	rec, resp := doRequest(t, router, http.MethodPost, "/purge", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["removed"] != float64(1) {
		t.Fatalf("expected 1 removed, got %v", data["removed"])
	}
	if _, ok := fc.codes["NEW"]; !ok {
		t.Fatal("fresh code must survive the purge")
	}
}
