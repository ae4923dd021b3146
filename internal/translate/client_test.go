package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleClientTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "en", r.URL.Query().Get("sl"))
		assert.Equal(t, "vi", r.URL.Query().Get("tl"))
		assert.Equal(t, "hello world", r.URL.Query().Get("q"))
		w.Write([]byte(`[[["xin chào ","hello ",null],["thế giới","world",null]],null,"en"]`))
	}))
	defer srv.Close()

	c := NewGoogleClient(GoogleConfig{BaseURL: srv.URL, Source: "en", Target: "vi"})
	got, err := c.Translate(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "xin chào thế giới", got)
}

func TestGoogleClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGoogleClient(GoogleConfig{BaseURL: srv.URL})
	_, err := c.Translate(context.Background(), "hello")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "google", svcErr.Backend)
}

func TestGoogleClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewGoogleClient(GoogleConfig{BaseURL: srv.URL})
	_, err := c.Translate(context.Background(), "hello")

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestModelClientTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"translatedText":"xin chào"}`))
	}))
	defer srv.Close()

	c := NewModelClient(ModelConfig{BaseURL: srv.URL})
	got, err := c.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "xin chào", got)
}

func TestModelClientReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	c := NewModelClient(ModelConfig{BaseURL: srv.URL})
	_, err := c.Translate(context.Background(), "hello")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Error(), "model not loaded")
}

func TestModelClientUnreachable(t *testing.T) {
	c := NewModelClient(ModelConfig{BaseURL: "http://127.0.0.1:1/translate"})
	_, err := c.Translate(context.Background(), "hello")

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
}
