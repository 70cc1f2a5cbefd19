package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	j := JWT{Secret: []byte("secret"), TokenTTL: time.Hour, Issuer: "homelab-chronicle"}
	tok, exp, err := j.Sign("ops", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "write", claims.Scope)

	_, err = JWT{Secret: []byte("other"), Issuer: "homelab-chronicle"}.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = JWT{Secret: []byte("secret"), Issuer: "someone-else"}.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = JWT{}.Sign("ops", time.Minute)
	require.Error(t, err)
}

func TestRequireWriteToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("secret"), TokenTTL: time.Hour}
	r := gin.New()
	r.Use(RequireWriteToken(j))
	r.GET("/api/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/events", func(c *gin.Context) { c.String(http.StatusCreated, Actor(c)) })

	do := func(method, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/events", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "Bearer garbage").Code)

	tok, _, err := j.Sign("alice", 0)
	require.NoError(t, err)
	w := do(http.MethodPost, "Bearer "+tok)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	open := gin.New()
	open.Use(RequireWriteToken(JWT{}))
	open.POST("/api/events", func(c *gin.Context) { c.Status(http.StatusCreated) })
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}
