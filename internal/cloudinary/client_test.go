package cloudinary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1315060510", "public_id": "sample", "api_key": "key", "file": "x"})
	// sha1("public_id=sample&timestamp=1315060510secret")
	assert.Equal(t, "23439cc4b8416c5b1da24eff228cee7968b8f287", got)
}

func TestUploadBase64(t *testing.T) {
	var gotPath, gotFile, gotFolder, gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFile = r.FormValue("file")
		gotFolder = r.FormValue("folder")
		gotSignature = r.FormValue("signature")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"campus/abc","secure_url":"https://res.example/abc.jpg","width":10,"height":20}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "campus")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadBase64(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/abc.jpg", res.SecureURL)
	assert.Equal(t, "/demo/image/upload", gotPath)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", gotFile)
	assert.Equal(t, "campus", gotFolder)
	assert.Equal(t, c.sign(map[string]string{"timestamp": "1700000000", "folder": "campus"}), gotSignature)
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadBytes(context.Background(), []byte("img"), "a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = c.UploadBase64(context.Background(), "")
	assert.Error(t, err)
}
