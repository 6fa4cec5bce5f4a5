package server

import (
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/service"
)

// NewGinServer builds the HTTP server with the shared middleware chain
// and all API routes mounted.
func NewGinServer(svc *service.Service, port string, logger *zap.Logger) *http.Server {
	r := gin.New()
	r.Use(
		requestid.New(),
		middleware.AccessLogger(logger),
		middleware.SecurityHeaders(),
		gin.Recovery(),
	)

	svc.Register(r)

	s := &http.Server{
		Handler:           r,
		Addr:              net.JoinHostPort("0.0.0.0", port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// SetupTLS applies the TLS policy and returns the certificate pair paths.
func SetupTLS(server *http.Server, config *Config) (string, string) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS13}
	server.TLSConfig = tlsConfig

	if config.Certificate.PublicKey == "" {
		log.Fatal("Invalid certificate configuration. Please add certConfig.cert to the configuration.")
	}

	if config.Certificate.PrivateKey == "" {
		log.Fatal("Invalid certificate configuration. Please add certConfig.key to the configuration.")
	}

	return config.Certificate.PublicKey, config.Certificate.PrivateKey
}
