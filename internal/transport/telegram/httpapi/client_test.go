package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "tgnotify/internal/transport"
	logx "tgnotify/pkg/logx"
)

const testToken = "12345:secret-token"

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, logx.Nop())
}

func TestSendPostsSendMessage(t *testing.T) {
	t.Parallel()
	var got sendMessageRequest
	var path string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	err := c.Send(context.Background(), testToken, "-100123", "<b>hi</b>", kit.ParseModeHTML)
	require.NoError(t, err)
	assert.Equal(t, "/bot"+testToken+"/sendMessage", path)
	assert.Equal(t, sendMessageRequest{ChatID: "-100123", Text: "<b>hi</b>", ParseMode: "HTML"}, got)
}

func TestSendClassifiesFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
		contains  string
	}{
		{"chat not found", 400, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, true, "chat not found"},
		{"bad token", 401, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, true, "Unauthorized"},
		{"blocked", 403, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, true, "blocked"},
		{"flood", 429, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3"}`, false, "retry after"},
		{"gateway html", 502, `<html>bad gateway</html>`, false, "Bad Gateway"},
		{"server error", 500, `{"ok":false,"error_code":500,"description":"Internal"}`, false, "Internal"},
		{"ok false on 200", 200, `{"ok":false,"error_code":400,"description":"Bad Request: message text is empty"}`, true, "empty"},
		{"garbage on 200", 200, `not json`, false, "decode response"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.Send(context.Background(), testToken, "1", "x", kit.ParseModeHTML)
			require.Error(t, err)
			assert.Equal(t, tt.permanent, kit.IsPermanent(err))
			if tt.permanent {
				assert.ErrorIs(t, err, kit.ErrPermanent)
			} else {
				assert.ErrorIs(t, err, kit.ErrTransient)
			}
			assert.Contains(t, err.Error(), tt.contains)
			assert.NotContains(t, err.Error(), testToken)
		})
	}
}

func TestSendHonoursContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Send(ctx, testToken, "1", "x", kit.ParseModeHTML)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, kit.IsPermanent(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendNetworkErrorScrubsToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url}, logx.Nop())
	err := c.Send(context.Background(), testToken, "1", "x", kit.ParseModeHTML)
	require.Error(t, err)
	assert.ErrorIs(t, err, kit.ErrTransient)
	assert.NotContains(t, err.Error(), testToken)
}
