package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(contentType string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		defer r.Body.Close()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte("received: " + string(body)))
	}
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		contentType     string
		bodyContains    string
	}

	tests := []struct {
		name         string
		requestBody  string
		headers      map[string]string
		responseType string
		status       int
		want         want
	}{
		{
			name:         "positive: client accepts gzip, html response",
			requestBody:  "test request",
			headers:      map[string]string{"Accept-Encoding": "gzip"},
			responseType: "text/html; charset=utf-8",
			status:       http.StatusOK,
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				contentType:     "text/html; charset=utf-8",
				bodyContains:    "received: test request",
			},
		},
		{
			name:         "positive: json response to a plain request",
			requestBody:  "title=Go",
			headers:      map[string]string{"Accept-Encoding": "gzip", "Content-Type": "application/x-www-form-urlencoded"},
			responseType: "application/json",
			status:       http.StatusCreated,
			want: want{
				statusCode:      http.StatusCreated,
				contentEncoding: "gzip",
				contentType:     "application/json",
				bodyContains:    "received: title=Go",
			},
		},
		{
			name:         "negative: json request, plain text response",
			requestBody:  `{"test":"data"}`,
			headers:      map[string]string{"Accept-Encoding": "gzip", "Content-Type": "application/json"},
			responseType: "text/plain",
			status:       http.StatusOK,
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "",
				contentType:     "text/plain",
				bodyContains:    `received: {"test":"data"}`,
			},
		},
		{
			name:         "negative: client doesn't accept gzip",
			requestBody:  "test request",
			headers:      map[string]string{},
			responseType: "text/html",
			status:       http.StatusOK,
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "",
				contentType:     "text/html",
				bodyContains:    "received: test request",
			},
		},
		{
			name:         "negative: redirect is not compressed",
			requestBody:  "",
			headers:      map[string]string{"Accept-Encoding": "gzip"},
			responseType: "text/html",
			status:       http.StatusTemporaryRedirect,
			want: want{
				statusCode:      http.StatusTemporaryRedirect,
				contentEncoding: "",
				contentType:     "text/html",
				bodyContains:    "received: ",
			},
		},
		{
			name:         "positive: compressed request body",
			requestBody:  "compressed request",
			headers:      map[string]string{"Content-Encoding": "gzip", "Accept-Encoding": "gzip"},
			responseType: "application/json",
			status:       http.StatusOK,
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				contentType:     "application/json",
				bodyContains:    "received: compressed request",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestBody io.Reader
			if strings.Contains(tt.headers["Content-Encoding"], "gzip") {
				var buf bytes.Buffer
				gz := gzip.NewWriter(&buf)
				_, err := gz.Write([]byte(tt.requestBody))
				require.NoError(t, err)
				require.NoError(t, gz.Close())
				requestBody = &buf
			} else {
				requestBody = strings.NewReader(tt.requestBody)
			}

			req := httptest.NewRequest(http.MethodPost, "/test", requestBody)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(echoHandler(tt.responseType, tt.status)).ServeHTTP(w, req)

			result := w.Result()
			defer result.Body.Close()

			assert.Equal(t, tt.want.statusCode, result.StatusCode)
			assert.Equal(t, tt.want.contentEncoding, result.Header.Get("Content-Encoding"))
			assert.Equal(t, tt.want.contentType, result.Header.Get("Content-Type"))

			body := result.Body
			if result.Header.Get("Content-Encoding") == "gzip" {
				assert.Equal(t, "Accept-Encoding", result.Header.Get("Vary"))
				gzReader, err := gzip.NewReader(result.Body)
				require.NoError(t, err)
				defer gzReader.Close()
				body = gzReader
			}

			bodyBytes, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Contains(t, string(bodyBytes), tt.want.bodyContains)
		})
	}
}

func TestGzipMiddleware_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(echoHandler("text/plain", http.StatusOK)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
