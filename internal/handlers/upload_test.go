package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/storage"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
)

type memObjectStorage struct {
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (m *memObjectStorage) EnsureBucket(context.Context) error { return nil }

func (m *memObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) Bucket() string { return "test-bucket" }

// pngBytes is a minimal payload http.DetectContentType reports as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)

type uploadFixture struct {
	router     chi.Router
	backend    *memObjectStorage
	token      string
	adminToken string
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	users := newMemUserRepo()
	user, err := users.Create(context.Background(), types.User{Email: "a@b.com", Role: types.RoleUser})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	admin, err := users.Create(context.Background(), types.User{Email: "admin@b.com", Role: types.RoleAdmin})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	issuer := auth.NewIssuer(config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		AdminTokenTTL: time.Hour,
	})
	guard := auth.NewGuard(users, auth.BearerCarrier(issuer.UserSecret()))
	token, err := issuer.IssueUser(user.ID)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}
	adminToken, err := issuer.IssueUser(admin.ID)
	if err != nil {
		t.Fatalf("IssueUser admin: %v", err)
	}

	backend := newMemObjectStorage()
	store := storage.NewStorage(backend)

	router := chi.NewRouter()
	router.Route("/api/uploads", func(r chi.Router) {
		UploadRouter(r, store, guard)
	})
	router.Route("/api/media", func(r chi.Router) {
		MediaRouter(r, store)
	})
	return &uploadFixture{router: router, backend: backend, token: token, adminToken: adminToken}
}

func (f *uploadFixture) deleteKey(t *testing.T, key, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("DELETE", "/api/uploads/"+key, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *uploadFixture) upload(t *testing.T, filename string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/uploads/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndServe(t *testing.T) {
	f := newUploadFixture(t)

	rec := f.upload(t, "avatar.png", pngBytes, f.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	body := decodeBody(t, rec)
	key, _ := body["key"].(string)
	if key == "" {
		t.Fatal("response missing key")
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %q, want .png extension", key)
	}
	if body["url"] != "/api/media/"+key {
		t.Errorf("url = %v", body["url"])
	}

	get := httptest.NewRequest("GET", "/api/media/"+key, nil)
	getRec := httptest.NewRecorder()
	f.router.ServeHTTP(getRec, get)
	if getRec.Code != http.StatusOK {
		t.Fatalf("serve status = %d", getRec.Code)
	}
	if !bytes.Equal(getRec.Body.Bytes(), pngBytes) {
		t.Error("served bytes differ from uploaded bytes")
	}
}

func TestUploadRequiresAuth(t *testing.T) {
	f := newUploadFixture(t)

	rec := f.upload(t, "avatar.png", pngBytes, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(f.backend.objects) != 0 {
		t.Error("object stored despite rejected upload")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newUploadFixture(t)

	rec := f.upload(t, "notes.txt", []byte("plain text, not an image"), f.token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(f.backend.objects) != 0 {
		t.Error("object stored despite rejected upload")
	}
}

func TestDeleteUpload(t *testing.T) {
	f := newUploadFixture(t)

	rec := f.upload(t, "avatar.png", pngBytes, f.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	key, _ := decodeBody(t, rec)["key"].(string)

	del := f.deleteKey(t, key, f.adminToken)
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", del.Code, del.Body)
	}
	if len(f.backend.objects) != 0 {
		t.Error("object still stored after delete")
	}

	get := httptest.NewRequest("GET", "/api/media/"+key, nil)
	getRec := httptest.NewRecorder()
	f.router.ServeHTTP(getRec, get)
	if getRec.Code != http.StatusNotFound {
		t.Errorf("serve after delete status = %d, want %d", getRec.Code, http.StatusNotFound)
	}
}

func TestDeleteUploadRequiresAdmin(t *testing.T) {
	f := newUploadFixture(t)

	rec := f.upload(t, "avatar.png", pngBytes, f.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	key, _ := decodeBody(t, rec)["key"].(string)

	del := f.deleteKey(t, key, f.token)
	if del.Code != http.StatusForbidden {
		t.Errorf("delete status = %d, want %d", del.Code, http.StatusForbidden)
	}
	if len(f.backend.objects) != 1 {
		t.Error("object removed by non-admin delete")
	}
}

func TestServeMissingObject(t *testing.T) {
	f := newUploadFixture(t)

	req := httptest.NewRequest("GET", "/api/media/nope.png", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
