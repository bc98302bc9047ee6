package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"files_manager/internal/metrics"
	"files_manager/internal/models"
	"files_manager/internal/upload"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "X-Token"

const userKey = "userID"

type Catalog interface {
	FindByID(ctx context.Context, id int64, ownerID uuid.UUID) (*models.FileRecord, error)
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID int64, page int) ([]models.FileRecord, error)
	CountFiles(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type Uploader interface {
	Upload(ctx context.Context, token string, req upload.Request) (*upload.Result, error)
}

type Verifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      *models.Config
	log      *slog.Logger
	router   *gin.Engine
	http     *http.Server
	uploads  Uploader
	catalog  Catalog
	verifier Verifier
	tokens   Pinger
}

// NewServer wires the routes. tokens is the token store checked by /status.
func NewServer(cfg *models.Config, log *slog.Logger, uploads Uploader, catalog Catalog, verifier Verifier, tokens Pinger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware(), requestLogger(log))

	s := &Server{
		cfg:      cfg,
		log:      log,
		router:   r,
		uploads:  uploads,
		catalog:  catalog,
		verifier: verifier,
		tokens:   tokens,
	}

	r.GET("/status", s.handleStatus)
	r.GET("/stats", s.handleStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/files", s.handleUpload)
	files := r.Group("/files", s.requireUser)
	files.GET("", s.handleIndex)
	files.GET("/:id", s.handleShow)

	s.http = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server is stopped.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.cfg.ServerAddr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"
	token := c.GetHeader(TokenHeader)

	var req upload.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		// An unauthenticated caller learns nothing about the body.
		if _, authErr := s.verifier.Verify(c.Request.Context(), token); authErr != nil {
			s.fail(c, op, authErr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.uploads.Upload(c.Request.Context(), token, req)
	if err != nil {
		s.fail(c, op, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res.Record.View())
}

func (s *Server) handleShow(c *gin.Context) {
	const op = "server.handleShow"

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, op, models.ErrNotFound)
		return
	}

	rec, err := s.catalog.FindByID(c.Request.Context(), id, userID(c))
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, rec.View())
}

func (s *Server) handleIndex(c *gin.Context) {
	const op = "server.handleIndex"

	parentID, err := strconv.ParseInt(c.Query("parentId"), 10, 64)
	if err != nil {
		parentID = models.RootID
	}
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 0 {
		page = 0
	}

	recs, err := s.catalog.ListChildren(c.Request.Context(), userID(c), parentID, page)
	if err != nil {
		s.fail(c, op, err)
		return
	}

	views := make([]models.FileView, 0, len(recs))
	for i := range recs {
		views = append(views, recs[i].View())
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{
		"redis": s.tokens.Ping(ctx) == nil,
		"db":    s.catalog.Ping(ctx) == nil,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	const op = "server.handleStats"

	n, err := s.catalog.CountFiles(c.Request.Context())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": n})
}

func (s *Server) requireUser(c *gin.Context) {
	id, err := s.verifier.Verify(c.Request.Context(), c.GetHeader(TokenHeader))
	if err != nil {
		s.fail(c, "server.requireUser", err)
		c.Abort()
		return
	}
	c.Set(userKey, id)
	c.Next()
}

func userID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(userKey)
	uid, _ := id.(uuid.UUID)
	return uid
}

// fail maps domain errors to the {error: message} body.
func (s *Server) fail(c *gin.Context, op string, err error) {
	var ve *models.ValidationError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrNotFound.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	default:
		s.log.Error("request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
