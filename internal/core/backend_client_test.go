package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskSendsFormEncodedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Chat/ask", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "What is our PTO policy?", r.PostForm.Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"See HR portal."}`))
	}))
	defer srv.Close()

	answer, err := NewBackendClient(srv.URL, 0).Ask(context.Background(), "user-1", "What is our PTO policy?")
	require.NoError(t, err)
	assert.Equal(t, "See HR portal.", answer)
}

func TestAskEmptyUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user_id=", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewBackendClient(srv.URL, 0).Ask(context.Background(), "", "hello")
	require.NoError(t, err)
}

func TestAskResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
		wantErr  bool
	}{
		{name: "answer present", status: 200, body: `{"answer":"hi"}`, expected: "hi"},
		{name: "answer absent", status: 200, body: `{}`, expected: ""},
		{name: "answer null", status: 200, body: `{"answer":null}`, expected: ""},
		{name: "answer empty", status: 200, body: `{"answer":""}`, expected: ""},
		{name: "answer false", status: 200, body: `{"answer":false}`, expected: ""},
		{name: "answer number", status: 200, body: `{"answer":42}`, expected: "42"},
		{name: "array body", status: 200, body: `[1,2]`, expected: ""},
		{name: "error status with json", status: 500, body: `{"detail":"boom"}`, expected: ""},
		{name: "error status with answer", status: 500, body: `{"answer":"partial"}`, expected: "partial"},
		{name: "html body", status: 502, body: `<html>bad gateway</html>`, wantErr: true},
		{name: "null body", status: 200, body: `null`, wantErr: true},
		{name: "empty body", status: 200, body: ``, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			answer, err := NewBackendClient(srv.URL, 0).Ask(context.Background(), "u", "q")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, answer)
		})
	}
}

func TestAskTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewBackendClient(url, 0).Ask(context.Background(), "u", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send chat request")
}

func TestLoginURL(t *testing.T) {
	c := NewBackendClient("http://localhost:8000/", 0)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "http://localhost:8000/login", c.LoginURL())
}
