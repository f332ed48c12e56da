package audrey

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"log/slog"
)

// apiServer is the keep-alive HTTP server. Hosting platforms that
// sleep idle services ping it to keep the bot online; it also serves
// as a basic health check.
type apiServer struct {
	config     *APIConfig
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	bot        *Audrey
}

func newAPIServer(
	config *APIConfig,
	bot *Audrey,
	logger *slog.Logger,
) (*apiServer, error) {
	if config == nil {
		return nil, errors.New("nil api config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	api := &apiServer{
		config: config,
		bot:    bot,
		logger: logger.With(loggerNameKey, "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(api.requestLogger())

	engine.GET("/", api.getStatus)
	engine.GET("/healthz", api.getStatus)

	api.httpServer = &http.Server{
		Addr:              config.Listen,
		Handler:           engine,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return api, nil
}

func (a *apiServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug(
			"request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (a *apiServer) getStatus(c *gin.Context) {
	status := gin.H{
		"status":  "ok",
		"version": Version,
	}
	if a.bot != nil {
		status["uptime"] = time.Since(a.bot.startedAt).Round(time.Second).String()
		status["discord_connected"] = a.bot.discord.connected.Load()
	}
	c.JSON(http.StatusOK, status)
}

// Serve runs the HTTP server until ctx is canceled, then shuts it
// down gracefully.
func (a *apiServer) Serve(ctx context.Context) error {
	listener, err := net.Listen(a.config.ListenNetwork, a.config.Listen)
	if err != nil {
		return fmt.Errorf(
			"error listening on %s (%s): %w",
			a.config.Listen,
			a.config.ListenNetwork,
			err,
		)
	}
	a.listener = listener
	a.logger.Info("listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		serveErr := a.httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		DefaultShutdownTimeout,
	)
	defer cancel()
	if err = a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("error shutting down http server", tint.Err(err))
		return err
	}
	a.logger.Info("http server stopped")
	return nil
}
