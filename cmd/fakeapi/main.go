package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/septivank/meter-resolution-console/internal/fakeapi"
	"github.com/septivank/meter-resolution-console/internal/logging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := logging.NewLogger(logging.Options{
		ServiceName: "meter-resolution-sandbox",
		Level:       getEnv("LOG_LEVEL", "info"),
	})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if getEnv("GIN_MODE", "") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	requireAuth, _ := strconv.ParseBool(getEnv("FAKEAPI_REQUIRE_AUTH", "true"))
	sandbox := fakeapi.New(fakeapi.Options{
		Secret:      []byte(getEnv("FAKEAPI_SECRET", "sandbox-secret")),
		Logger:      logger,
		RequireAuth: requireAuth,
	})

	addr := getEnv("FAKEAPI_ADDR", ":8088")
	srv := &http.Server{
		Addr:              addr,
		Handler:           sandbox.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("sandbox billing API listening",
			zap.String("addr", addr),
			zap.Bool("require_auth", requireAuth),
			zap.String("login", fakeapi.SandboxEmail))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("sandbox server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error stopping sandbox", zap.Error(err))
	}
	logger.Info("sandbox stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
