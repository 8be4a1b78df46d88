package admind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrzejkrzywda/ircd/irc"
	"github.com/andrzejkrzywda/ircd/irc/config"
)

func testAdmin() *Server {
	cfg := config.Default()
	cfg.Admin.BearerTokens = []string{"good-token"}
	return New(irc.NewServer(cfg), cfg)
}

func request(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestRequiresBearerToken(t *testing.T) {
	s := testAdmin()

	assert.Equal(t, http.StatusUnauthorized, request(s, "GET", "/api/users", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(s, "GET", "/api/users", "bad-token", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(s, "POST", "/api/notice", "", `{"channel":"#go","message":"x"}`).Code)
}

func TestUsersAndChannelsEmpty(t *testing.T) {
	s := testAdmin()

	rec := request(s, "GET", "/api/users", "good-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = request(s, "GET", "/api/channels", "good-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestChannelsListing(t *testing.T) {
	s := testAdmin()
	s.irc.Channels().GetOrCreate("#go")

	rec := request(s, "GET", "/api/channels", "good-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"#go"`)
	assert.Contains(t, rec.Body.String(), irc.DefaultTopic)
}

func TestStatusEndpoint(t *testing.T) {
	s := testAdmin()
	s.irc.Channels().GetOrCreate("#go")

	assert.Equal(t, http.StatusUnauthorized, request(s, "GET", "/api/status", "", "").Code)

	rec := request(s, "GET", "/api/status", "good-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"goircd.local"`)
	assert.Contains(t, rec.Body.String(), `"version":"`+irc.Version+`"`)
	assert.Contains(t, rec.Body.String(), `"users":0`)
	assert.Contains(t, rec.Body.String(), `"channels":1`)
}

func TestNoticeUnknownChannel(t *testing.T) {
	s := testAdmin()

	rec := request(s, "POST", "/api/notice", "good-token", `{"channel":"#nope","message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoticeValidation(t *testing.T) {
	s := testAdmin()

	rec := request(s, "POST", "/api/notice", "good-token", `{"channel":"","message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := testAdmin()

	rec := request(s, "GET", "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ircd_connections_total")
}
