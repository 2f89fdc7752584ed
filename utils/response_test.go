package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
)

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("%w: title is required", services.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: task 9", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: admin role required", services.ErrAuthorization), http.StatusForbidden},
		{fmt.Errorf("%w: task 9 is open", services.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: db down", services.ErrExternal), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteServiceError(rec, tc.err)
		if rec.Code != tc.wantStatus {
			t.Errorf("err %v: status = %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var resp APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if resp.Success {
			t.Errorf("err %v: success = true", tc.err)
		}
	}
}

func TestWriteServiceErrorHidesExternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("%w: presign proof object: credentials expired", services.ErrExternal))

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Message != "Something went wrong, please try again" {
		t.Errorf("message = %q, leaked internal detail", resp.Message)
	}
}
