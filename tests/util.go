// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/auth"
)

// NewConfig returns the configuration used by tests: TEST mode, in-memory blobs, PDF uploads.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		AppName:   "Madrasa",
		SecretKey: "secret",
		Server: core.ServerConfig{
			Address:                   ":0",
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			DisableReqLogs:            true,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Blob: core.BlobConfig{
			Driver:        string(core.BlobDriverMemory),
			PresignExpiry: 15 * time.Minute,
		},
		Upload: core.UploadConfig{
			MaxBytes:     1 << 10,
			AllowedTypes: []string{"application/pdf"},
		},
	}
}

// GetToken returns a signed token for name.
func GetToken(t *testing.T, conf *core.Config, name string) string {
	token, err := auth.GenerateToken(auth.NewClaims(name, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("GetToken(): %v", err)
	}
	return token
}

// Logger is a core.Logger keeping its messages in memory.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s %v", level, msg, args))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }
