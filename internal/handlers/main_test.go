package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/database"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/routes"
	"github.com/example/koino/internal/services"
	"github.com/example/koino/internal/utils"
)

// chainStub fakes the chain gateway over HTTP. Individual endpoints can
// be toggled to fail so tests can assert that nothing is persisted when
// the gateway rejects an operation.
type chainStub struct {
	server *httptest.Server

	mu       sync.Mutex
	failing  map[string]bool
	accounts int
}

func newChainStub(t *testing.T) *chainStub {
	t.Helper()

	stub := &chainStub{failing: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"connected": true})
	}))
	mux.HandleFunc("/balance", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"balance": "1000"})
	}))
	mux.HandleFunc("/members", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.accounts++
		address := fmt.Sprintf("0xaccount%d", stub.accounts)
		stub.mu.Unlock()
		writeJSON(w, map[string]any{
			"address": address,
			"tx":      "0xregister",
			"receipt": stubReceipt(),
		})
	}))
	mux.HandleFunc("/members/", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimPrefix(r.URL.Path, "/members/")
		writeJSON(w, map[string]any{"address": address, "points": 42.0})
	}))
	mux.HandleFunc("/score/", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"points": 7.0})
	}))
	mux.HandleFunc("/points/earn", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xearn", "receipt": stubReceipt()})
	}))
	mux.HandleFunc("/points/use", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xuse", "receipt": stubReceipt()})
	}))
	mux.HandleFunc("/info/partners", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"count": 3})
	}))
	mux.HandleFunc("/info/transactions", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"count": 12})
	}))
	mux.HandleFunc("/funds/promise", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xpromise", "receipt": stubReceipt(), "contract_index": 3})
	}))
	mux.HandleFunc("/funds/receive", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xreceive", "receipt": stubReceipt(), "contract_index": 3})
	}))
	mux.HandleFunc("/funds/revert", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xrevert", "receipt": stubReceipt(), "contract_index": 3})
	}))
	mux.HandleFunc("/funds/spend", stub.handle(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tx": "0xspend", "receipt": stubReceipt(), "contract_index": 3})
	}))

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *chainStub) handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failing := s.failing[r.URL.Path]
		s.mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]any{"error": "chain down"})
			return
		}
		next(w, r)
	}
}

// failOn makes the stub return 500 for the given path.
func (s *chainStub) failOn(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[path] = true
}

func stubReceipt() map[string]any {
	return map[string]any{
		"transactionHash": "0xhash",
		"blockNumber":     17,
		"status":          true,
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	cfg   *config.Config
	chain *chainStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	chain := newChainStub(t)
	cfg := &config.Config{
		AppPort:      "0",
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
		APIBaseURL:   "http://api.test/",
		AssetsDir:    t.TempDir(),
		ChainAPIURL:  chain.server.URL,
		APIVersion:   "1.0",
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{"message": message, "code": code})
		},
	})

	gateway := services.NewBlockchainService(cfg.ChainAPIURL, "")
	files := services.NewFileService(cfg.AssetsDir, cfg.APIBaseURL)
	routes.Register(app, db, cfg, gateway, files, zerolog.Nop())

	return &testEnv{app: app, db: db, cfg: cfg, chain: chain}
}

func (e *testEnv) createUser(t *testing.T, role models.Role, email string) models.User {
	t.Helper()

	name := strings.SplitN(email, "@", 2)[0]
	user := models.User{
		Name:           name,
		Email:          email,
		Card:           "card-" + name,
		PasswordHash:   "not-a-real-hash",
		Slug:           name,
		Role:           role,
		AccountAddress: "0x" + name,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) createCampaign(t *testing.T, merchant models.User, title string, access models.AccessTier) models.Campaign {
	t.Helper()

	campaign := models.Campaign{
		MerchantID:    merchant.ID,
		Title:         title,
		Slug:          strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Access:        access,
		StepAmount:    5,
		MinAllowed:    10,
		MaxAllowed:    500,
		MaxAmount:     10000,
		Address:       "0xcampaign",
		ContractIndex: 3,
	}
	require.NoError(t, e.db.Create(&campaign).Error)
	return campaign
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()

	token, err := utils.GenerateToken(e.cfg.JWTSecret, user.ID, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return e.perform(t, req)
}

func (e *testEnv) formRequest(t *testing.T, method, path, token string, form url.Values) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return e.perform(t, req)
}

func (e *testEnv) multipartRequest(t *testing.T, method, path, token string, fields map[string]string, fileField, fileName string, content []byte) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return e.perform(t, req)
}

func (e *testEnv) perform(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// assetPath maps a stored asset's public URL back to its on-disk location
// under the test assets dir.
func (e *testEnv) assetPath(t *testing.T, publicURL, subdir string) string {
	t.Helper()

	marker := "assets/" + subdir + "/"
	idx := strings.LastIndex(publicURL, marker)
	require.GreaterOrEqual(t, idx, 0, "unexpected asset url %q", publicURL)
	return filepath.Join(e.cfg.AssetsDir, subdir, publicURL[idx+len(marker):])
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}
