package admin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/trackify-io/trackify/config/modules"
	"go.uber.org/zap"
)

// Admin is an HTTP Server
type Admin struct {
	cfg *modules.AdminConfig
	s   *http.Server
	log *zap.SugaredLogger
}

func NewAdmin(cfg modules.AdminConfig, handler http.Handler) *Admin {
	s := &http.Server{
		Handler: handler,
		Addr:    cfg.Listen,

		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	admin := &Admin{
		cfg: &cfg,
		s:   s,
		log: zap.S().Named("admin"),
	}

	return admin
}

// Start starts an HTTP server
func (a *Admin) Start() {
	go func() {
		tls := a.cfg.TLS
		if tls.Enabled() {
			if err := a.s.ListenAndServeTLS(tls.Cert, tls.Key); err != nil && err != http.ErrServerClosed {
				zap.S().Errorf("Failed to start Admin : %v", err)
				os.Exit(1)
			}
		} else {
			if err := a.s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.S().Errorf("Failed to start Admin : %v", err)
				os.Exit(1)
			}
		}
	}()

	a.log.Infow(fmt.Sprintf(`listening on address "%s"`, a.cfg.Listen), "tls", a.cfg.TLS.Enabled())
}

// Stop stops the HTTP server
func (a *Admin) Stop(ctx context.Context) error {
	if err := a.s.Shutdown(ctx); err != nil {
		// Error from closing listeners, or context timeout:
		return err
	}
	return nil
}
