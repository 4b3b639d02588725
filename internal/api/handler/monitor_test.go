package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMonitorHandler() *Monitor {
	return &Monitor{}
}

// --- Enable ---

func TestMonitorEnable_EmptyTenantID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants//waf-monitors", map[string]any{
		"account_id":  "111122223333",
		"web_acl_arn": "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/shop/abc",
	})
	r = withChiURLParam(r, "tenantID", "")

	h.Enable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestMonitorEnable_InvalidJSON(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/tenants/"+validID+"/waf-monitors", "{bad json")
	r = withChiURLParam(r, "tenantID", validID)

	h.Enable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestMonitorEnable_MissingWebACLArn(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants/"+validID+"/waf-monitors", map[string]any{
		"account_id": "111122223333",
	})
	r = withChiURLParam(r, "tenantID", validID)

	h.Enable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestMonitorEnable_BadAccountID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants/"+validID+"/waf-monitors", map[string]any{
		"account_id":  "not-an-account",
		"web_acl_arn": "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/shop/abc",
	})
	r = withChiURLParam(r, "tenantID", validID)

	h.Enable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestMonitorEnable_BadFilterMode(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants/"+validID+"/waf-monitors", map[string]any{
		"account_id":  "111122223333",
		"web_acl_arn": "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/shop/abc",
		"filter_mode": "everything",
	})
	r = withChiURLParam(r, "tenantID", validID)

	h.Enable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

// --- Get ---

func TestMonitorGet_EmptyID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/waf-monitors/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- ListByTenant ---

func TestMonitorListByTenant_EmptyTenantID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/tenants//waf-monitors", nil)
	r = withChiURLParam(r, "tenantID", "")

	h.ListByTenant(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- Disable ---

func TestMonitorDisable_EmptyID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/waf-monitors/", nil)
	r = withChiURLParam(r, "id", "")

	h.Disable(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

// --- ListResources ---

func TestMonitorListResources_MissingAccountID(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/tenants/"+validID+"/waf-resources", nil)
	r = withChiURLParam(r, "tenantID", validID)

	h.ListResources(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "account_id")
}

// --- TestSetup ---

func TestMonitorTestSetup_InvalidJSON(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/tenants/"+validID+"/waf-monitors/test-setup", "{bad json")
	r = withChiURLParam(r, "tenantID", validID)

	h.TestSetup(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestMonitorTestSetup_MissingFields(t *testing.T) {
	h := newMonitorHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants/"+validID+"/waf-monitors/test-setup", map[string]any{})
	r = withChiURLParam(r, "tenantID", validID)

	h.TestSetup(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}
