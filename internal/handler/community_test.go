package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/handler"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository/sqlite"
	"github.com/sakif/coursemate/internal/service"
)

func newCommunityHandler(t *testing.T) (*handler.CommunityHandler, *auth.TokenService) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	logger := testLogger()
	svc := service.NewCommunityService(db.Communities(), logger)
	return handler.NewCommunityHandler(svc, logger), tokens
}

func createCommunity(t *testing.T, h *handler.CommunityHandler, body string) model.Community {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/communities", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created model.Community
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	return created
}

func TestCommunityHandleCreate(t *testing.T) {
	h, _ := newCommunityHandler(t)

	created := createCommunity(t, h, `{"code":"CSCI-201","name":"Software Development","number":"201","type":"course"}`)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.DefaultQRCode, created.QRCode)
}

func TestCommunityHandleCreate_InvalidType(t *testing.T) {
	h, _ := newCommunityHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/communities",
		bytes.NewBufferString(`{"code":"X","name":"Y","type":"club"}`))
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCommunityHandleCreate_RequiresAuth(t *testing.T) {
	h, tokens := newCommunityHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/communities",
		bytes.NewBufferString(`{"code":"X","name":"Y","type":"course"}`))
	rr := httptest.NewRecorder()

	protected := auth.RequireAuth(tokens)(http.HandlerFunc(h.HandleCreate))
	protected.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCommunityHandleList_PublicAndFiltered(t *testing.T) {
	h, _ := newCommunityHandler(t)

	createCommunity(t, h, `{"code":"CSCI-201","name":"Software Development","type":"course"}`)
	createCommunity(t, h, `{"code":"CS","name":"Computer Science Majors","type":"major"}`)

	// Reads are public — no middleware needed
	req := httptest.NewRequest(http.MethodGet, "/api/communities", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var all []model.Community
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&all))
	assert.Len(t, all, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/communities?type=major", nil)
	rr = httptest.NewRecorder()
	h.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var majors []model.Community
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&majors))
	require.Len(t, majors, 1)
	assert.Equal(t, "CS", majors[0].Code)
}

func TestCommunityHandleList_EmptyIsArray(t *testing.T) {
	h, _ := newCommunityHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/communities", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestCommunityHandleUpdate(t *testing.T) {
	h, _ := newCommunityHandler(t)

	created := createCommunity(t, h, `{"code":"CSCI-201","name":"Old Name","type":"course"}`)

	req := httptest.NewRequest(http.MethodPut, "/api/communities/"+created.ID,
		bytes.NewBufferString(`{"code":"CSCI-201","name":"New Name","type":"course"}`))
	req.SetPathValue("id", created.ID)
	rr := httptest.NewRecorder()
	h.HandleUpdate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var updated model.Community
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, "New Name", updated.Name)
}

func TestCommunityHandleDelete_ThenGet(t *testing.T) {
	h, _ := newCommunityHandler(t)

	created := createCommunity(t, h, `{"code":"CSCI-201","name":"Software Development","type":"course"}`)

	del := httptest.NewRequest(http.MethodDelete, "/api/communities/"+created.ID, nil)
	del.SetPathValue("id", created.ID)
	rr := httptest.NewRecorder()
	h.HandleDelete(rr, del)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	get := httptest.NewRequest(http.MethodGet, "/api/communities/"+created.ID, nil)
	get.SetPathValue("id", created.ID)
	rr = httptest.NewRecorder()
	h.HandleGet(rr, get)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "not_found", resp["error"])
}
