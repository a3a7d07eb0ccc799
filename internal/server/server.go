// Package server is the credential-holding translation proxy. It exposes
// translate, detect, speech-token, and voice routes over HTTP and a gRPC
// health service for supervisors.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/yatra/internal/azure"
	"github.com/rbright/yatra/internal/gateway"
	"github.com/rbright/yatra/internal/lang"
)

// ServiceName is the gRPC health service name reported by the proxy.
const ServiceName = "yatra.Proxy"

// Upstream is the cloud surface the proxy fronts.
type Upstream interface {
	Translate(ctx context.Context, text string, from string, to string) (string, error)
	Detect(ctx context.Context, text string) (string, error)
	Alternatives(ctx context.Context, text string, from string, to string) ([]string, error)
	IssueToken(ctx context.Context) (azure.Token, error)
	Voices(ctx context.Context) ([]lang.Voice, error)
}

// Server serves proxy routes.
type Server struct {
	logger   *slog.Logger
	upstream Upstream
	engine   *gin.Engine
	health   *health.Server
}

// New constructs the proxy with its routes registered.
func New(logger *slog.Logger, upstream Upstream) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		logger:   logger,
		upstream: upstream,
		engine:   engine,
		health:   health.NewServer(),
	}
	engine.Use(gin.Recovery(), s.requestLogger(), allowCORS())

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)

	translate := api.Group("/translate")
	translate.POST("", s.handleTranslate)
	translate.POST("/alternatives", s.handleAlternatives)
	translate.POST("/detect", s.handleDetect)
	translate.GET("/speech-token", s.handleSpeechToken)
	translate.GET("/voices", s.handleVoices)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Health returns the gRPC health server.
func (s *Server) Health() *health.Server {
	return s.health
}

// Run serves HTTP on httpAddr and gRPC health on grpcAddr until ctx is
// cancelled. An empty grpcAddr disables the gRPC listener.
func (s *Server) Run(ctx context.Context, httpAddr string, grpcAddr string) error {
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", httpAddr, err)
	}

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if strings.TrimSpace(grpcAddr) != "" {
		grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = httpListener.Close()
			return fmt.Errorf("listen grpc %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, s.health)
	}

	httpServer := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("serve grpc: %w", err)
			}
		}()
	}

	s.setServing(true)
	s.logInfo("proxy listening", "http", httpListener.Addr().String(), "grpc", grpcAddr)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.setServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown http: %w", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return runErr
}

func (s *Server) setServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gateway.Health{Status: "OK", Message: "Server is running"})
}

func (s *Server) handleTranslate(c *gin.Context) {
	var req gateway.TranslateRequest
	if !bindTranslate(c, &req) {
		return
	}

	translation, err := s.upstream.Translate(c.Request.Context(), req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		s.logError("translate failed", err)
		c.JSON(http.StatusInternalServerError, gateway.ErrorResponse{Error: "Failed to translate text"})
		return
	}
	c.JSON(http.StatusOK, gateway.TranslateResponse{Translation: translation})
}

func (s *Server) handleAlternatives(c *gin.Context) {
	var req gateway.TranslateRequest
	if !bindTranslate(c, &req) {
		return
	}

	alternatives, err := s.upstream.Alternatives(c.Request.Context(), req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		s.logError("alternatives failed", err)
		alternatives = []string{}
	}
	if alternatives == nil {
		alternatives = []string{}
	}
	c.JSON(http.StatusOK, gateway.AlternativesResponse{Alternatives: alternatives})
}

func (s *Server) handleDetect(c *gin.Context) {
	var req gateway.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gateway.ErrorResponse{Error: "Missing required parameter: text"})
		return
	}

	detected, err := s.upstream.Detect(c.Request.Context(), req.Text)
	if err != nil {
		s.logError("detect failed; defaulting to English", err)
		detected = "en"
	}
	c.JSON(http.StatusOK, gateway.DetectResponse{DetectedLanguage: detected})
}

func (s *Server) handleSpeechToken(c *gin.Context) {
	token, err := s.upstream.IssueToken(c.Request.Context())
	if err != nil {
		s.logError("speech token failed", err)
		c.JSON(http.StatusInternalServerError, gateway.ErrorResponse{Error: "Failed to get speech token"})
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) handleVoices(c *gin.Context) {
	voices, err := s.upstream.Voices(c.Request.Context())
	if err != nil {
		s.logError("voices failed", err)
		voices = nil
	}
	c.JSON(http.StatusOK, gateway.VoicesResponse{Voices: azure.FilterVoices(voices)})
}

// bindTranslate decodes a translate body and rejects it when text or
// targetLanguage is missing.
func bindTranslate(c *gin.Context, req *gateway.TranslateRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil || strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.TargetLanguage) == "" {
		c.JSON(http.StatusBadRequest, gateway.ErrorResponse{
			Error: "Missing required parameters: text and targetLanguage are required",
		})
		return false
	}
	return true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		if s.logger == nil {
			return
		}
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func allowCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg, args...)
}

func (s *Server) logError(msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg, "error", err.Error())
}
