package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purpleshop/filebridge/pkg/platform"
	"github.com/purpleshop/filebridge/pkg/platform/platformtest"
	"github.com/purpleshop/filebridge/pkg/resolve"
	"github.com/purpleshop/filebridge/pkg/storage"
)

type webFixture struct {
	client  *platformtest.FakeClient
	gateway *httptest.Server
	files   *httptest.Server
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	client := platformtest.NewFakeClient("g1")
	files := httptest.NewServer(client.FileServer())
	t.Cleanup(files.Close)
	client.BaseFileURL = files.URL

	srv := NewServer(
		resolve.NewResolver(client),
		storage.NewUploader(client, "store-1"),
		NewOrigin("https://share.test", 3000),
		100*1024*1024,
	)
	srv.SetHTTPClient(files.Client())

	gateway := httptest.NewServer(srv.Handler())
	t.Cleanup(gateway.Close)
	return &webFixture{client: client, gateway: gateway, files: files}
}

func (f *webFixture) seed(t *testing.T, name string, data []byte) (msgID, attID string) {
	t.Helper()
	f.client.Files["a1"] = data
	f.client.Seed(&platform.Message{
		ID:        "m1",
		ChannelID: "c1",
		Attachments: []platform.Attachment{{
			ID:          "a1",
			Name:        name,
			Size:        int64(len(data)),
			URL:         f.files.URL + "/a1",
			ContentType: "application/zip",
		}},
	})
	return "m1", "a1"
}

func zipWithIcon(t *testing.T, icon []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("RP/pack_icon.png")
	require.NoError(t, err)
	_, err = f.Write(icon)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestPreviewPage(t *testing.T) {
	f := newWebFixture(t)
	f.seed(t, "pack.mcaddon", []byte("data"))

	resp, err := http.Get(f.gateway.URL + "/f/g1/c1/m1/a1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "pack.mcaddon")
	assert.Contains(t, string(body), "https://share.test/f/g1/c1/m1/a1/download")
	// Archive payloads advertise an icon preview.
	assert.Contains(t, string(body), "/icon/g1/c1/m1/a1")
}

func TestPreviewPage_StaleLink(t *testing.T) {
	f := newWebFixture(t)
	f.seed(t, "pack.mcaddon", []byte("data"))
	f.client.Remove("c1", "m1")

	resp, err := http.Get(f.gateway.URL + "/f/g1/c1/m1/a1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownload_StreamsWithHeaders(t *testing.T) {
	f := newWebFixture(t)
	f.seed(t, "pack.mcaddon", []byte("file body bytes"))

	resp, err := http.Get(f.gateway.URL + "/f/g1/c1/m1/a1/download")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="pack.mcaddon"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "file body bytes", string(body))
}

func TestDownload_NotFound(t *testing.T) {
	f := newWebFixture(t)
	resp, err := http.Get(f.gateway.URL + "/f/g1/c1/missing/a1/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBundlePreviewAndManifest(t *testing.T) {
	f := newWebFixture(t)
	f.client.Files["a1"] = []byte("one")
	f.client.Files["a2"] = []byte("two")
	f.client.Seed(&platform.Message{
		ID:        "m1",
		ChannelID: "c1",
		Attachments: []platform.Attachment{
			{ID: "a1", Name: "a.mcaddon", Size: 3, URL: f.files.URL + "/a1"},
			{ID: "a2", Name: "b.zip", Size: 3, URL: f.files.URL + "/a2"},
		},
	})

	resp, err := http.Get(f.gateway.URL + "/fb/g1/c1/m1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "a.mcaddon")
	assert.Contains(t, string(body), "b.zip")

	resp, err = http.Get(f.gateway.URL + "/fb/g1/c1/m1/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m struct {
		Files []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	require.Len(t, m.Files, 2)
	assert.Equal(t, "a.mcaddon", m.Files[0].Name)
	assert.Equal(t, "https://share.test/f/g1/c1/m1/a1/download", m.Files[0].URL)
}

func TestBundleManifest_NotFound(t *testing.T) {
	f := newWebFixture(t)
	resp, err := http.Get(f.gateway.URL + "/fb/g1/c1/missing/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "not-found", e["error"])
}

func TestIconEndpoint(t *testing.T) {
	f := newWebFixture(t)
	icon := []byte("png-bytes")
	f.seed(t, "pack.mcaddon", zipWithIcon(t, icon))

	resp, err := http.Get(f.gateway.URL + "/icon/g1/c1/m1/a1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, icon, body)
}

func TestIconEndpoint_NoIcon(t *testing.T) {
	f := newWebFixture(t)
	f.seed(t, "pack.mcaddon", []byte("not actually a zip"))

	resp, err := http.Get(f.gateway.URL + "/icon/g1/c1/m1/a1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartBody(t *testing.T, field, filename string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	f := newWebFixture(t)
	body, contentType := multipartBody(t, "file", "my addon!.mcaddon", []byte("upload bytes"), nil)

	resp, err := http.Post(f.gateway.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out["link"], "https://share.test/f/")
	assert.Equal(t, out["link"]+"/download", out["url"])

	// The stored copy exists and carries the sanitized name.
	stored := f.client.StoredMessages("store-1")
	require.Len(t, stored, 1)
	assert.Equal(t, "my_addon_.mcaddon", stored[0].Attachments[0].Name)
}

func TestUpload_ExplicitFileName(t *testing.T) {
	f := newWebFixture(t)
	body, contentType := multipartBody(t, "file", "orig.bin", []byte("x"), map[string]string{"fileName": "renamed.mcaddon"})

	resp, err := http.Post(f.gateway.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored := f.client.StoredMessages("store-1")
	require.Len(t, stored, 1)
	assert.Equal(t, "renamed.mcaddon", stored[0].Attachments[0].Name)
}

func TestUpload_NoFile(t *testing.T) {
	f := newWebFixture(t)
	body, contentType := multipartBody(t, "file", "", nil, map[string]string{"fileName": "x"})

	resp, err := http.Post(f.gateway.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "no-file", e["error"])
}

func TestUpload_BodyTooLarge(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	srv := NewServer(
		resolve.NewResolver(client),
		storage.NewUploader(client, "store-1"),
		NewOrigin("https://share.test", 3000),
		64,
	)
	gateway := httptest.NewServer(srv.Handler())
	defer gateway.Close()

	body, contentType := multipartBody(t, "file", "big.mcaddon", bytes.Repeat([]byte{'x'}, 4096), nil)
	resp, err := http.Post(gateway.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "too-large", e["error"])
	assert.Empty(t, client.StoredMessages("store-1"))
}

func TestUpload_UpstreamFailure(t *testing.T) {
	f := newWebFixture(t)
	f.client.UploadErrAll = platform.ErrUpstream
	body, contentType := multipartBody(t, "file", "a.mcaddon", []byte("x"), nil)

	resp, err := http.Post(f.gateway.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "upload-failed", e["error"])
}

func TestHealthRoot(t *testing.T) {
	f := newWebFixture(t)
	resp, err := http.Get(f.gateway.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b.mcaddon", SanitizeFilename("a b.mcaddon"))
	assert.Equal(t, "file.zip", SanitizeFilename("file.zip"))
	assert.Equal(t, "_.._etc_passwd", SanitizeFilename("/../etc/passwd"))
	assert.Equal(t, "upload.bin", SanitizeFilename(""))
	assert.Equal(t, "upload.bin", SanitizeFilename("!!!"))
}
