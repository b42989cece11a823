// Package api is the HTTP interface of the people counting service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swdee/go-headcount/internal/config"
	"github.com/swdee/go-headcount/tracker"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// default request values
const (
	defaultConfidence     = 0.35
	defaultCameraIndex    = 0
	defaultCameraDuration = 30
)

// videoExtensions are the accepted upload formats
var videoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// VideoResponse is returned after a video upload was processed
type VideoResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	OutputFile        string `json:"output_file"`
	TotalUniquePeople int    `json:"total_unique_people"`
	TotalFrames       int    `json:"total_frames"`
	DownloadURL       string `json:"download_url"`
}

// CameraRequest selects the camera and run length
type CameraRequest struct {
	CameraIndex         int     `json:"camera_index" binding:"gte=0"`
	DurationSeconds     int     `json:"duration_seconds"`
	ConfidenceThreshold float32 `json:"confidence_threshold" binding:"gte=0.1,lte=1"`
}

// CameraResponse is returned after a camera run
type CameraResponse struct {
	Success           bool    `json:"success"`
	Message           string  `json:"message"`
	OutputFile        string  `json:"output_file"`
	TotalUniquePeople int     `json:"total_unique_people"`
	TotalFrames       int     `json:"total_frames"`
	DurationSeconds   float64 `json:"duration_seconds"`
	DownloadURL       string  `json:"download_url"`
}

// Server serves the tracking endpoints
type Server struct {
	cfg    config.Server
	runner Runner
	log    *zap.SugaredLogger
	engine *gin.Engine
	// now is replaced in tests
	now func() time.Time
}

// NewServer creates the upload and output directories and sets up the routes
func NewServer(cfg config.Server, runner Runner, log *zap.SugaredLogger) (*Server, error) {

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "error creating directory %s", dir)
		}
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		runner: runner,
		log:    log,
		engine: gin.New(),
		now:    time.Now,
	}

	s.engine.MaxMultipartMemory = 32 << 20
	s.engine.Use(gin.Recovery(), requestLogger(log))

	s.engine.GET("/", s.root)

	g := s.engine.Group("/api")
	g.POST("/track/video", s.trackVideo)
	g.POST("/track/camera", s.trackCamera)
	g.GET("/download/:filename", s.download)
	g.DELETE("/cleanup", s.cleanup)

	return s, nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on the configured address until ctx is done, then
// waits for running requests to finish
func (s *Server) ListenAndServe(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Infow("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.log.Infow("http server shutting down")

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown")
		}

		return nil
	}
}

// abort writes an error body in the shape {"detail": msg}
func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "People Tracking & Counting API is running!",
		"version": Version,
		"endpoints": gin.H{
			"video":    "/api/track/video",
			"camera":   "/api/track/camera",
			"download": "/api/download/{filename}",
		},
	})
}

// stamp returns a unique name part for generated files
func (s *Server) stamp() string {
	return s.now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

func (s *Server) trackVideo(c *gin.Context) {

	confidence := float32(defaultConfidence)

	if q, ok := c.GetQuery("confidence_threshold"); ok {
		v, err := strconv.ParseFloat(q, 32)

		if err != nil {
			abort(c, http.StatusBadRequest, "confidence_threshold must be a number")
			return
		}

		confidence = float32(v)
	}

	if err := tracker.ValidateConfidence(confidence); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20)

	file, err := c.FormFile("file")

	if err != nil || file.Filename == "" {
		abort(c, http.StatusBadRequest, "No file provided")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))

	if !slices.Contains(videoExtensions, ext) {
		abort(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid file format. Allowed: %v", videoExtensions))
		return
	}

	stamp := s.stamp()
	inputPath := filepath.Join(s.cfg.UploadDir, "input_"+stamp+ext)
	outputName := "output_" + stamp + ".mp4"
	outputPath := filepath.Join(s.cfg.OutputDir, outputName)

	// the upload is only needed while processing
	defer os.Remove(inputPath)

	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.log.Errorw("error saving upload", "file", file.Filename, zap.Error(err))
		abort(c, http.StatusInternalServerError, "Processing error: could not save upload")
		return
	}

	sum, err := s.runner.Video(c.Request.Context(), inputPath, outputPath, confidence)

	if err != nil {
		_ = os.Remove(outputPath)
		s.log.Errorw("video processing failed", "file", file.Filename, zap.Error(err))
		abort(c, http.StatusInternalServerError, "Processing error: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, VideoResponse{
		Success:           true,
		Message:           "Video processed successfully",
		OutputFile:        outputName,
		TotalUniquePeople: sum.TotalUnique,
		TotalFrames:       sum.TotalFrames,
		DownloadURL:       "/api/download/" + outputName,
	})
}

func (s *Server) trackCamera(c *gin.Context) {

	req := CameraRequest{
		CameraIndex:         defaultCameraIndex,
		DurationSeconds:     defaultCameraDuration,
		ConfidenceThreshold: defaultConfidence,
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.DurationSeconds < s.cfg.MinCameraSeconds || req.DurationSeconds > s.cfg.MaxCameraSeconds {
		abort(c, http.StatusUnprocessableEntity,
			fmt.Sprintf("duration_seconds must be between %d and %d",
				s.cfg.MinCameraSeconds, s.cfg.MaxCameraSeconds))
		return
	}

	outputName := "camera_output_" + s.stamp() + ".mp4"
	outputPath := filepath.Join(s.cfg.OutputDir, outputName)

	sum, err := s.runner.Camera(c.Request.Context(), req.CameraIndex, outputPath,
		time.Duration(req.DurationSeconds)*time.Second, req.ConfidenceThreshold)

	if err != nil {
		_ = os.Remove(outputPath)
		s.log.Errorw("camera processing failed", "camera", req.CameraIndex, zap.Error(err))
		abort(c, http.StatusInternalServerError, "Camera processing error: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, CameraResponse{
		Success:           true,
		Message:           "Camera feed processed successfully",
		OutputFile:        outputName,
		TotalUniquePeople: sum.TotalUnique,
		TotalFrames:       sum.TotalFrames,
		DurationSeconds:   sum.VideoSeconds,
		DownloadURL:       "/api/download/" + outputName,
	})
}

// validFilename reports whether name is a plain file name with no path
func validFilename(name string) bool {
	return name != "" && name != "." && name != ".." &&
		filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

func (s *Server) download(c *gin.Context) {

	name := c.Param("filename")

	if !validFilename(name) {
		abort(c, http.StatusBadRequest, "Invalid filename")
		return
	}

	path := filepath.Join(s.cfg.OutputDir, name)

	info, err := os.Stat(path)

	if err != nil || info.IsDir() {
		abort(c, http.StatusNotFound, "File not found")
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(path, name)
}

func (s *Server) cleanup(c *gin.Context) {

	for _, dir := range []string{s.cfg.UploadDir, s.cfg.OutputDir} {
		if err := emptyDir(dir); err != nil {
			s.log.Errorw("cleanup failed", "dir", dir, zap.Error(err))
			abort(c, http.StatusInternalServerError, "Cleanup error: "+err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All files cleaned up successfully",
	})
}

// emptyDir removes every entry of dir
func emptyDir(dir string) error {

	entries, err := os.ReadDir(dir)

	if err != nil {
		return errors.Wrapf(err, "error reading %s", dir)
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrapf(err, "error removing %s", e.Name())
		}
	}

	return nil
}

// requestLogger logs every request with its status and latency
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
