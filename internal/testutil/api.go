package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/pis-platform/pis/internal/blob"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/server"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// API is a record store served over real HTTP for client tests
type API struct {
	URL    string
	Token  string
	DB     *gorm.DB
	Signer *Signer
}

// StartAPI serves a fresh record store on a local listener. The returned
// URL includes the /api prefix.
func StartAPI(t testing.TB) *API {
	t.Helper()
	db := OpenDB(t)
	signer := NewSigner(t)

	cfg := &config.Config{
		DBType:         "sqlite",
		DBDatabase:     ":memory:",
		UploadDir:      t.TempDir(),
		UploadURLBase:  "/uploads",
		MaxUploadBytes: 1024 * 1024,
	}
	store, err := blob.NewFilesystem(cfg.UploadDir, cfg.UploadURLBase)
	require.NoError(t, err)

	app, err := server.New(server.Options{Config: cfg, DB: db, Verifier: signer.Verifier(), Store: store})
	require.NoError(t, err)

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	return &API{
		URL:    srv.URL + "/api",
		Token:  signer.Token(t, "Dana Lee", time.Hour),
		DB:     db,
		Signer: signer,
	}
}
