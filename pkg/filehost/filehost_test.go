package filehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWithoutURL(t *testing.T) {
	assert.Nil(t, New(Config{}))
}

func TestUploader_Upload(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  error
	}{
		{"plain link", "https://0x0.st/abc.pdf\n", "https://0x0.st/abc.pdf", nil},
		{"json url", `{"url":"https://files.example/x.pdf"}`, "https://files.example/x.pdf", nil},
		{"json nested", `{"status":"ok","data":{"url":"https://tmp.example/dl/1"}}`, "https://tmp.example/dl/1", nil},
		{"json without link", `{"status":"ok"}`, "", ErrNoLink},
		{"garbage", "upload failed", "", ErrNoLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				file, header, err := r.FormFile("file")
				if assert.NoError(t, err) {
					data, _ := io.ReadAll(file)
					assert.Equal(t, "%PDF-1.3", string(data))
					assert.Equal(t, "doc.pdf", header.Filename)
				}
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			u := New(Config{URL: srv.URL})
			link, err := u.Upload(context.Background(), "doc.pdf", []byte("%PDF-1.3"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, link)
		})
	}
}

func TestUploader_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL}).Upload(context.Background(), "a.pdf", []byte("x"))
	assert.Error(t, err)
}

func TestUploader_SizeLimit(t *testing.T) {
	u := New(Config{URL: "http://127.0.0.1:1", MaxBytes: 4})
	_, err := u.Upload(context.Background(), "a.pdf", []byte("too large"))
	assert.Error(t, err)
}
