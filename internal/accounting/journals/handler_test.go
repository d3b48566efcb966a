package journals

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(r)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const balancedBody = `{"description":"Gutter job","lines":[
	{"accountCode":"1010","debit":"100"},
	{"accountCode":"4010","credit":"100"}]}`

func TestHandlerCreateAndFetch(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/journal-entries", balancedBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "DRAFT", body["status"])
	assert.Equal(t, "JE-2025-000001", body["number"])
	id := body["id"].(string)

	rec, body = do(t, h, http.MethodGet, "/journal-entries/"+id+"?shape=legacy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JE-2025-000001", body["entryNumber"])
	assert.Equal(t, "100", body["totalDebits"])
	assert.Equal(t, false, body["isPosted"])
	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.Equal(t, "1010", first["accountId"])
	assert.Equal(t, "100", first["debit_amount"])
}

func TestHandlerErrorStatuses(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/journal-entries", `{"description":"x","lines":[
		{"accountCode":"1010","debit":"100"},{"accountCode":"4010","credit":"90"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "Total debits (100.00) must equal total credits (90.00)")

	rec, _ = do(t, h, http.MethodPost, "/journal-entries", `{"description":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/journal-entries/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/journal-entries/7f0c1c4e-4a57-4a0e-9d0e-3f6f1c1b2a10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerLifecycleConflicts(t *testing.T) {
	h, _ := newTestRouter(t)

	_, body := do(t, h, http.MethodPost, "/journal-entries", balancedBody)
	id := body["id"].(string)

	rec, _ := do(t, h, http.MethodPost, "/journal-entries/"+id+"/approve", `{"userId":"controller"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = do(t, h, http.MethodPost, "/journal-entries/"+id+"/post", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POSTED", body["status"])

	rec, _ = do(t, h, http.MethodPut, "/journal-entries/"+id, `{"description":"changed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = do(t, h, http.MethodDelete, "/journal-entries/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/journal-entries/"+id+"/reverse", `{"userId":"controller"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["isReversing"])
	assert.Equal(t, id, body["originalEntryId"])

	rec, _ = do(t, h, http.MethodPost, "/journal-entries/"+id+"/reverse", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerQuickAndWizard(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/quick-entries", `{"template":"customer-payment","amount":"500"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "POSTED", body["status"])

	rec, _ = do(t, h, http.MethodPost, "/wizard/entries", `{"template":"loan-payment","amount":"1200","description":"Loan"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/wizard/templates", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	var templates []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &templates))
	assert.Len(t, templates, 8)
	for _, tmpl := range templates {
		if tmpl["key"] == "loan-payment" {
			assert.Equal(t, []any{"interestAmount"}, tmpl["prompts"])
		}
	}

	rec, body = do(t, h, http.MethodGet, "/journal-entries/suggestions?description=fuel+for+truck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"6250", "1500", "2100"}, body["suggestions"])
}

func TestHandlerListFilters(t *testing.T) {
	h, _ := newTestRouter(t)
	for i := 0; i < 3; i++ {
		do(t, h, http.MethodPost, "/journal-entries", balancedBody)
	}
	do(t, h, http.MethodPost, "/quick-entries", `{"template":"cash-sale","amount":"80"}`)

	rec, body := do(t, h, http.MethodGet, "/journal-entries?status=POSTED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 1)

	rec, body = do(t, h, http.MethodGet, "/journal-entries?limit=2&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["entries"], 2)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 4, pagination["total"])
	assert.EqualValues(t, 2, pagination["pages"])

	rec, _ = do(t, h, http.MethodGet, "/journal-entries?startDate=March", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
