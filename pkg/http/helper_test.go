package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"contactfix/pkg/config"
	apperrors "contactfix/pkg/errors"
)

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{name: "defaults", query: "", wantLimit: 10, wantOffset: 0},
		{name: "explicit values", query: "?limit=25&offset=50", wantLimit: 25, wantOffset: 50},
		{name: "limit capped", query: "?limit=100000", wantLimit: config.DefaultPaginationLimit, wantOffset: 0},
		{name: "negative offset clamped", query: "?offset=-3", wantLimit: 10, wantOffset: 0},
		{name: "bad limit", query: "?limit=abc", wantErr: true},
		{name: "bad offset", query: "?offset=1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/contacts"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
					t.Fatalf("expected INVALID_INPUT error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestExtractBool(t *testing.T) {
	tests := []struct {
		query   string
		want    bool
		wantErr bool
	}{
		{query: "", want: false},
		{query: "?needs_fix=true", want: true},
		{query: "?needs_fix=1", want: true},
		{query: "?needs_fix=false", want: false},
		{query: "?needs_fix=maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/contacts"+tt.query, nil)
			got, err := ExtractBool(r, "needs_fix")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractBool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "app error keeps its status",
			err:        apperrors.Forbidden("access to contacts denied"),
			wantStatus: http.StatusForbidden,
			wantCode:   apperrors.CodeForbidden,
			wantMsg:    "access to contacts denied",
		},
		{
			name:       "plain error hides its message",
			err:        errors.New("mongo: connection string leaked"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() returned %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.wantCode || body.Error != tt.wantMsg {
				t.Errorf("body = %+v, want code %s message %q", body, tt.wantCode, tt.wantMsg)
			}
		})
	}
}
