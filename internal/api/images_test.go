package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/campus"
	"campus/internal/cloudinary"
)

type fakeImages struct {
	fail  bool
	names []string
}

func (f *fakeImages) UploadBase64(_ context.Context, data string) (*cloudinary.UploadResult, error) {
	if f.fail {
		return nil, errors.New("cdn down")
	}
	f.names = append(f.names, "base64")
	return &cloudinary.UploadResult{SecureURL: "https://cdn.test/b64.png"}, nil
}

func (f *fakeImages) UploadBytes(_ context.Context, data []byte, filename string) (*cloudinary.UploadResult, error) {
	if f.fail {
		return nil, errors.New("cdn down")
	}
	f.names = append(f.names, filename)
	return &cloudinary.UploadResult{SecureURL: "https://cdn.test/" + filename}, nil
}

func withImages(u ImageUploader) func(*Deps) {
	return func(d *Deps) { d.Images = u }
}

func reportItem(t *testing.T, e *env) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/lostfound/report", "", map[string]any{"itemName": "Wallet", "status": "found"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[campus.LostFoundItem](t, rec).ID
}

func TestItemImageMultipart(t *testing.T) {
	images := &fakeImages{}
	e := newEnv(t, withImages(images))
	id := reportItem(t, e)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "wallet.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lostfound/"+id+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Item campus.LostFoundItem `json:"item"`
	}](t, rec)
	assert.Equal(t, "https://cdn.test/wallet.jpg", body.Item.ImageURL)
	assert.Equal(t, []string{"wallet.jpg"}, images.names)
}

func TestItemImageBase64(t *testing.T) {
	e := newEnv(t, withImages(&fakeImages{}))
	id := reportItem(t, e)

	rec := e.do(http.MethodPost, "/api/lostfound/"+id+"/image", "", map[string]string{"data": "data:image/png;base64,aGVsbG8="})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/lostfound/"+id, "", nil)
	assert.Equal(t, "https://cdn.test/b64.png", decode[campus.LostFoundItem](t, rec).ImageURL)

	rec = e.do(http.MethodPost, "/api/lostfound/"+id+"/image", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemImageFailures(t *testing.T) {
	e := newEnv(t)
	id := reportItem(t, e)
	rec := e.do(http.MethodPost, "/api/lostfound/"+id+"/image", "", map[string]string{"data": "aGVsbG8="})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	e = newEnv(t, withImages(&fakeImages{fail: true}))
	id = reportItem(t, e)
	rec = e.do(http.MethodPost, "/api/lostfound/missing/image", "", map[string]string{"data": "aGVsbG8="})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, "/api/lostfound/"+id+"/image", "", map[string]string{"data": "aGVsbG8="})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"image upload failed"}`, rec.Body.String())
}

func TestItemImageTooLarge(t *testing.T) {
	images := &fakeImages{}
	e := newEnv(t, withImages(images))
	id := reportItem(t, e)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "huge.jpg")
	require.NoError(t, err)
	_, _ = fw.Write(bytes.Repeat([]byte{0xff}, maxImageBytes+1))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lostfound/"+id+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/lostfound/"+id+"/image", "", map[string]string{"data": strings.Repeat("A", maxImageBytes)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Empty(t, images.names)
}
