package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tracto-cpk/internal/jobs"
	"tracto-cpk/internal/pipeline"
)

// Server answers pipeline queries over one prepared dataset.
type Server struct {
	pipeline  *pipeline.Pipeline
	dataset   *pipeline.Dataset
	jobs      *jobs.Store
	outputDir string
	uploadDir string
	log       *zap.Logger
}

// Dirs are where export workbooks are written and uploaded tables kept.
type Dirs struct {
	Output string
	Upload string
}

func NewServer(p *pipeline.Pipeline, ds *pipeline.Dataset, store *jobs.Store, dirs Dirs, log *zap.Logger) *Server {
	return &Server{
		pipeline:  p,
		dataset:   ds,
		jobs:      store,
		outputDir: dirs.Output,
		uploadDir: dirs.Upload,
		log:       log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.GET("/health", s.health)
	r.GET("/options", s.options)
	r.GET("/exclusions", s.exclusions)

	r.GET("/routes", s.routes)
	r.GET("/map", s.geoMap)
	r.GET("/summary", s.summary)
	r.GET("/ranking", s.ranking)

	r.POST("/run", s.startExport)
	r.GET("/logs", s.jobLogs)
	r.GET("/status", s.jobStatus)
	r.POST("/cancel", s.cancelJob)
	r.GET("/download-template", s.downloadTemplate)
	r.GET("/download-result/:filename", s.download)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
