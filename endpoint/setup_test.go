package endpoint

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/genesishealth/genesis-api/util"
)

// TestMain pins the test configuration for every test in the package so the
// singleton config and JWT secret never depend on test order.
func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	os.Setenv("JWTSECRET", "test-secret-123")
	os.Setenv("GINMODE", "release")

	util.SetJWTSecret("test-secret-123")
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}
