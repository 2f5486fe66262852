package servehttp

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 3 * time.Second

// StartHTTPServer serves until SIGINT or SIGTERM, then runs the shutdown hooks and drains the server.
func StartHTTPServer(engine *gin.Engine, addr string, onShutdown ...func()) {
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logrus.Infof("http server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// will call os.Exit(1)
			logrus.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 send syscall.SIGINT
	// kill -9 send syscall.SIGKILL, can't be caught
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Infof("[QUIT] shutdown signal has been received, the service will exit in %s.", shutdownTimeout)

	for _, hook := range onShutdown {
		hook()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// graceful shutdown http.Server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("[QUIT] http server shutdown failed: %v", err)
	}
	logrus.Info("[QUIT] http server is shutdown gracefully, new request will be rejected.")
	logrus.Info("[QUIT] service exiting")
}
