package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"

	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

func newTestLogger(t *testing.T) *applog.Logger {
	t.Helper()
	log, err := applog.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log
}

func init() {
	gin.SetMode(gin.TestMode)
}
