package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leondli/tagserver/internal/adapter/handler"
	"github.com/leondli/tagserver/internal/adapter/repository"
	"github.com/leondli/tagserver/internal/adapter/storage"
	domainrepo "github.com/leondli/tagserver/internal/domain/repository"
	"github.com/leondli/tagserver/internal/infrastructure/database"
	"github.com/leondli/tagserver/internal/infrastructure/middleware"
	"github.com/leondli/tagserver/internal/testutils"
	"github.com/leondli/tagserver/internal/usecase/tag"
)

const testMAC = "AA:BB:CC:DD:EE:FF"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	repo   domainrepo.TagRepository
}

type serverOptions struct {
	images       storage.ImageStorage
	maxImageSize int64
	bodyLimit    int64
	exposeErrors bool
	limiter      *middleware.IPRateLimiter
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutils.SetupDB(t)
	repo := repository.NewTagRepository(db)

	images := opts.images
	if images == nil {
		local, err := storage.NewLocalImageStorage(t.TempDir())
		require.NoError(t, err)
		images = local
	}
	if opts.maxImageSize == 0 {
		opts.maxImageSize = 1024
	}
	if opts.bodyLimit == 0 {
		opts.bodyLimit = 64 * 1024
	}

	uc := tag.NewUseCase(repo, images, tag.Config{MaxImageSize: opts.maxImageSize})
	handlers := &handler.Handlers{
		Tag: handler.NewTagHandler(uc, opts.exposeErrors),
		Health: handler.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}, time.Second),
	}

	router := gin.New()
	router.Use(middleware.Recovery(opts.exposeErrors))
	handler.RegisterRoutes(router, handlers, handler.RouteOptions{
		UploadBodyLimit: opts.bodyLimit,
		RateLimiter:     opts.limiter,
	})

	return &testServer{router: router, db: db, repo: repo}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) registerMAC(t *testing.T, mac string) string {
	t.Helper()
	w := s.register(t, "/add_tag", fmt.Sprintf(`{"tag_mac_address":%q}`, mac))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	return body["tag_uuid"].(string)
}

// multipartBody builds a form with one file part carrying the given
// Content-Type. An empty field name produces a form with no file.
func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (s *testServer) attach(t *testing.T, path, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, formType := multipartBody(t, handler.ImageField, "photo.jpg", contentType, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", formType)
	return s.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRegisterAttachScenario(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.register(t, "/add_tag", `{"tag_mac_address":"`+testMAC+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, testMAC, body["tag_mac_address"])
	identifier, ok := body["tag_uuid"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(identifier)
	require.NoError(t, err)

	w = s.register(t, "/add_tag", `{"tag_mac_address":"`+testMAC+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], testMAC)

	w = s.attach(t, "/update_tag/"+identifier, "image/jpeg", []byte("0123456789"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]interface{}{"status": "success"}, decode(t, w))

	stored, err := s.repo.FindByIdentifier(context.Background(), identifier)
	require.NoError(t, err)
	require.NotNil(t, stored.Image)
	assert.Equal(t, int64(10), stored.Image.Size)

	w = s.attach(t, "/update_tag/"+uuid.NewString(), "image/jpeg", []byte("0123456789"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Tag not found", decode(t, w)["error"])
}

func TestAPIPrefixRoutes(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.register(t, "/api/tags/add_tag", `{"tag_mac_address":"`+testMAC+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	identifier := decode(t, w)["tag_uuid"].(string)

	w = s.attach(t, "/api/tags/update_tag/"+identifier, "image/jpeg", testutils.MinimalJPEG())
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/health/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestRegisterBadRequests(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", "", tag.MsgMACRequired},
		{"missing field", `{}`, tag.MsgMACRequired},
		{"null field", `{"tag_mac_address":null}`, tag.MsgMACRequired},
		{"too long", `{"tag_mac_address":"AA:BB:CC:DD:EE:FF:00"}`, tag.MsgMACTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.register(t, "/add_tag", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, decode(t, w)["error"])
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		w := s.register(t, "/add_tag", `{"tag_mac_address":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w)["error"], "invalid request body")
	})

	t.Run("wrong type", func(t *testing.T) {
		w := s.register(t, "/add_tag", `{"tag_mac_address":42}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAttachImageRejections(t *testing.T) {
	s := newTestServer(t, serverOptions{maxImageSize: 16, bodyLimit: 4096})
	identifier := s.registerMAC(t, testMAC)
	path := "/update_tag/" + identifier

	fail := func(t *testing.T, w *httptest.ResponseRecorder, msg string) {
		t.Helper()
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "fail", body["status"])
		assert.Equal(t, msg, body["message"])
	}

	t.Run("not a jpeg", func(t *testing.T) {
		fail(t, s.attach(t, path, "image/png", []byte("0123456789")), tag.MsgImageNotJPEG)
	})

	t.Run("over max size", func(t *testing.T) {
		fail(t, s.attach(t, path, "image/jpeg", bytes.Repeat([]byte{1}, 17)), tag.MsgImageSize)
	})

	t.Run("empty file", func(t *testing.T) {
		fail(t, s.attach(t, path, "image/jpeg", nil), tag.MsgImageSize)
	})

	t.Run("body over limit", func(t *testing.T) {
		fail(t, s.attach(t, path, "image/jpeg", bytes.Repeat([]byte{1}, 8192)), tag.MsgImageSize)
	})

	t.Run("no file part", func(t *testing.T) {
		body, formType := multipartBody(t, "", "", "", nil)
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", formType)
		fail(t, s.do(req), tag.MsgImageRequired)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("raw"))
		req.Header.Set("Content-Type", "image/jpeg")
		fail(t, s.do(req), tag.MsgImageRequired)
	})

	stored, err := s.repo.FindByIdentifier(context.Background(), identifier)
	require.NoError(t, err)
	assert.Nil(t, stored.Image)
}

func TestAttachImageUnknownTagBeatsBodyLimit(t *testing.T) {
	s := newTestServer(t, serverOptions{bodyLimit: 1024})

	w := s.attach(t, "/update_tag/"+uuid.NewString(), "image/jpeg", bytes.Repeat([]byte{1}, 4096))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingStorage struct{}

func (failingStorage) Save(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func (failingStorage) GetSize(context.Context, string) (int64, error) { return 0, nil }

func TestAttachImageStorageFailure(t *testing.T) {
	t.Run("exposed", func(t *testing.T) {
		s := newTestServer(t, serverOptions{images: failingStorage{}, exposeErrors: true})
		identifier := s.registerMAC(t, testMAC)

		w := s.attach(t, "/update_tag/"+identifier, "image/jpeg", []byte("0123456789"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		msg := decode(t, w)["error"].(string)
		assert.True(t, strings.HasPrefix(msg, "Internal server error: "))
		assert.Contains(t, msg, "disk full")
	})

	t.Run("hidden", func(t *testing.T) {
		s := newTestServer(t, serverOptions{images: failingStorage{}})
		identifier := s.registerMAC(t, testMAC)

		w := s.attach(t, "/update_tag/"+identifier, "image/jpeg", []byte("0123456789"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decode(t, w)["error"])
	})
}

func TestRateLimitedTagRoutes(t *testing.T) {
	s := newTestServer(t, serverOptions{limiter: middleware.NewIPRateLimiter(0, 1, time.Minute)})

	w := s.register(t, "/add_tag", `{"tag_mac_address":"`+testMAC+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.register(t, "/add_tag", `{"tag_mac_address":"00:00:00:00:00:01"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health is never throttled
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
