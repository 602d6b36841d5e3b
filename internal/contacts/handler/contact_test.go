package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"contactfix/internal/contacts/validator"
	apperrors "contactfix/pkg/errors"
	"contactfix/pkg/logger"
	"contactfix/pkg/model"
)

type mockContactService struct {
	createFunc      func(ctx context.Context, c *model.Contact) error
	getByIDFunc     func(ctx context.Context, id string) (*model.Contact, error)
	getAllFunc      func(ctx context.Context, limit int, offset int64, onlyNeedsFix bool) ([]*model.Contact, int64, error)
	findByPhoneFunc func(ctx context.Context, phone string, limit int, offset int64) ([]*model.Contact, int64, error)
	previewFunc     func(ctx context.Context, id string) (*model.FixResult, error)
	fixFunc         func(ctx context.Context, id string) (*model.FixResult, error)
	fixBatchFunc    func(ctx context.Context, ids []string) (*model.BatchResult, error)
}

func (m *mockContactService) Create(ctx context.Context, c *model.Contact) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, c)
	}
	return nil
}

func (m *mockContactService) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Contact{ID: id}, nil
}

func (m *mockContactService) GetAll(ctx context.Context, limit int, offset int64, onlyNeedsFix bool) ([]*model.Contact, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset, onlyNeedsFix)
	}
	return []*model.Contact{}, 0, nil
}

func (m *mockContactService) FindByPhone(ctx context.Context, phone string, limit int, offset int64) ([]*model.Contact, int64, error) {
	if m.findByPhoneFunc != nil {
		return m.findByPhoneFunc(ctx, phone, limit, offset)
	}
	return []*model.Contact{}, 0, nil
}

func (m *mockContactService) Preview(ctx context.Context, id string) (*model.FixResult, error) {
	if m.previewFunc != nil {
		return m.previewFunc(ctx, id)
	}
	return &model.FixResult{ContactID: id}, nil
}

func (m *mockContactService) Fix(ctx context.Context, id string) (*model.FixResult, error) {
	if m.fixFunc != nil {
		return m.fixFunc(ctx, id)
	}
	return &model.FixResult{ContactID: id}, nil
}

func (m *mockContactService) FixBatch(ctx context.Context, ids []string) (*model.BatchResult, error) {
	if m.fixBatchFunc != nil {
		return m.fixBatchFunc(ctx, ids)
	}
	return model.NewBatchResult(), nil
}

func (m *mockContactService) FixAll(ctx context.Context) (*model.BatchResult, error) {
	return m.FixBatch(ctx, nil)
}

func newTestRouter(svc *mockContactService) *httprouter.Router {
	router := httprouter.New()
	NewContactHandler(svc, validator.NewContactValidator(), logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetAll_QueryParameters(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantStatus   int
		wantLimit    int
		wantOffset   int64
		wantNeedsFix bool
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10},
		{name: "explicit values", query: "?limit=5&offset=20&needs_fix=true", wantStatus: http.StatusOK, wantLimit: 5, wantOffset: 20, wantNeedsFix: true},
		{name: "limit capped", query: "?limit=5000", wantStatus: http.StatusOK, wantLimit: 100},
		{name: "negative offset", query: "?offset=-3", wantStatus: http.StatusOK, wantLimit: 10},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "invalid offset", query: "?offset=1.5", wantStatus: http.StatusBadRequest},
		{name: "invalid needs_fix", query: "?needs_fix=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockContactService{
				getAllFunc: func(_ context.Context, limit int, offset int64, onlyNeedsFix bool) ([]*model.Contact, int64, error) {
					called = true
					if limit != tt.wantLimit || offset != tt.wantOffset || onlyNeedsFix != tt.wantNeedsFix {
						t.Errorf("service got limit=%d offset=%d needs_fix=%v", limit, offset, onlyNeedsFix)
					}
					return []*model.Contact{{ID: "c1", NeedsFix: true}}, 1, nil
				},
			}

			w := serve(newTestRouter(svc), http.MethodGet, "/api/v1/contacts"+tt.query, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if called {
					t.Error("service should not be called on invalid input")
				}
				return
			}

			var resp struct {
				Data       []map[string]any `json:"data"`
				TotalCount int64            `json:"total_count"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.TotalCount != 1 || len(resp.Data) != 1 || resp.Data[0]["needs_fix"] != true {
				t.Errorf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := &mockContactService{
		getByIDFunc: func(_ context.Context, id string) (*model.Contact, error) {
			if id == "missing" {
				return nil, apperrors.NotFoundWithID("Contact", id)
			}
			return &model.Contact{ID: id, Name: "Jean"}, nil
		},
	}
	router := newTestRouter(svc)

	if w := serve(router, http.MethodGet, "/api/v1/contacts/id/c1", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Jean"`) {
		t.Errorf("found: status %d body %s", w.Code, w.Body.String())
	}
	if w := serve(router, http.MethodGet, "/api/v1/contacts/id/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing: status %d, want 404", w.Code)
	}
}

func TestFix(t *testing.T) {
	svc := &mockContactService{
		fixFunc: func(_ context.Context, id string) (*model.FixResult, error) {
			return &model.FixResult{ContactID: id, Changed: false, Added: []model.PhoneNumber{}}, nil
		},
	}

	w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/contacts/id/c1/fix", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data model.FixResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ContactID != "c1" || resp.Data.Changed {
		t.Errorf("unexpected result: %+v", resp.Data)
	}
}

func TestFix_Forbidden(t *testing.T) {
	svc := &mockContactService{
		fixFunc: func(context.Context, string) (*model.FixResult, error) {
			return nil, apperrors.Forbidden("Permission to access contacts denied")
		},
	}

	w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/contacts/id/c1/fix", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestPreview(t *testing.T) {
	svc := &mockContactService{
		previewFunc: func(_ context.Context, id string) (*model.FixResult, error) {
			return &model.FixResult{
				ContactID: id,
				Changed:   true,
				Added:     []model.PhoneNumber{{Label: "mobile'", Number: "+250788123456"}},
			}, nil
		},
	}

	w := serve(newTestRouter(svc), http.MethodGet, "/api/v1/contacts/id/c1/preview", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"+250788123456"`) {
		t.Errorf("status %d body %s", w.Code, w.Body.String())
	}
}

func TestFixBatch(t *testing.T) {
	validID := "507f1f77bcf86cd799439011"

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantIDs    []string
		wantCalled bool
	}{
		{name: "explicit ids", body: `{"ids":["` + validID + `"]}`, wantStatus: http.StatusOK, wantIDs: []string{validID}, wantCalled: true},
		{name: "empty list fixes all", body: `{"ids":[]}`, wantStatus: http.StatusOK, wantIDs: []string{}, wantCalled: true},
		{name: "no body fixes all", body: "", wantStatus: http.StatusOK, wantIDs: nil, wantCalled: true},
		{name: "malformed body", body: `{"ids":`, wantStatus: http.StatusBadRequest},
		{name: "invalid id", body: `{"ids":["nope"]}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockContactService{
				fixBatchFunc: func(_ context.Context, ids []string) (*model.BatchResult, error) {
					called = true
					if !reflect.DeepEqual(ids, tt.wantIDs) {
						t.Errorf("ids = %#v, want %#v", ids, tt.wantIDs)
					}
					res := model.NewBatchResult()
					res.Fixed = append(res.Fixed, ids...)
					return res, nil
				},
			}

			w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/contacts/fix", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if called != tt.wantCalled {
				t.Errorf("service called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestFixBatch_ReportsPartialFailures(t *testing.T) {
	svc := &mockContactService{
		fixBatchFunc: func(context.Context, []string) (*model.BatchResult, error) {
			res := model.NewBatchResult()
			res.Fixed = []string{"a"}
			res.Failed["b"] = "Failed to fix contact"
			return res, nil
		},
	}

	w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/contacts/fix", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Data model.BatchResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Failed["b"] == "" || len(resp.Data.Fixed) != 1 {
		t.Errorf("unexpected result: %+v", resp.Data)
	}
}

func TestFixBatch_InterruptedKeepsPartialResult(t *testing.T) {
	svc := &mockContactService{
		fixBatchFunc: func(context.Context, []string) (*model.BatchResult, error) {
			res := model.NewBatchResult()
			res.Fixed = []string{"a"}
			return res, apperrors.Timeout("Batch fix interrupted before all contacts were processed")
		},
	}

	w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/contacts/fix", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}
	var resp struct {
		Code    string `json:"code"`
		Details struct {
			PartialResult model.BatchResult `json:"partial_result"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != apperrors.CodeTimeout {
		t.Errorf("code = %q, want %q", resp.Code, apperrors.CodeTimeout)
	}
	if !reflect.DeepEqual(resp.Details.PartialResult.Fixed, []string{"a"}) {
		t.Errorf("partial result = %+v, want fixed [a]", resp.Details.PartialResult)
	}
}

func TestCreate(t *testing.T) {
	svc := &mockContactService{
		createFunc: func(_ context.Context, c *model.Contact) error {
			if c.Name == "" {
				return apperrors.Validation("Contact validation failed", nil)
			}
			c.ID = "new"
			return nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodPost, "/api/v1/contacts", `{"name":"Jean","phone_numbers":[{"label":"mobile","number":"0788123456"}]}`)
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"id":"new"`) {
		t.Errorf("create: status %d body %s", w.Code, w.Body.String())
	}

	if w := serve(router, http.MethodPost, "/api/v1/contacts", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed: status %d, want 400", w.Code)
	}
	if w := serve(router, http.MethodPost, "/api/v1/contacts", `{"name":""}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid: status %d, want 422", w.Code)
	}
}

func TestGetByPhone(t *testing.T) {
	var gotPhone string
	svc := &mockContactService{
		findByPhoneFunc: func(_ context.Context, phone string, _ int, _ int64) ([]*model.Contact, int64, error) {
			gotPhone = phone
			return []*model.Contact{{ID: "c1"}}, 1, nil
		},
	}

	w := serve(newTestRouter(svc), http.MethodGet, "/api/v1/contacts/phone/%2B250788123456", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if gotPhone != "+250788123456" {
		t.Errorf("phone = %q, want %q", gotPhone, "+250788123456")
	}
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	svc := &mockContactService{
		getByIDFunc: func(context.Context, string) (*model.Contact, error) {
			return nil, errors.New("boom")
		},
	}

	w := serve(newTestRouter(svc), http.MethodGet, "/api/v1/contacts/id/c1", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("internal error details leaked to the client")
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
	}{
		{name: "health ignores database", path: "/health", pingErr: errors.New("down"), wantStatus: http.StatusOK},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK},
		{name: "not ready", path: "/ready", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(fakePinger{err: tt.pingErr}, logger.Discard()).RegisterRoutes(router)

			w := serve(router, http.MethodGet, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
