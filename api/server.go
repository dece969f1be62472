package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cohortprep/app"
	"cohortprep/domain/core"
	"cohortprep/internal"
	"cohortprep/internal/config"
	"cohortprep/internal/errors"
)

// Server exposes the dataset and preprocessing API
type Server struct {
	router            *gin.Engine
	datasetService    *app.DatasetService
	preprocessService *app.PreprocessService
	cfg               *config.Config
	log               *internal.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(cfg *config.Config, datasetService *app.DatasetService, preprocessService *app.PreprocessService, log *internal.Logger) *Server {
	if log == nil {
		log = internal.DefaultLogger
	}
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router:            gin.Default(),
		datasetService:    datasetService,
		preprocessService: preprocessService,
		cfg:               cfg,
		log:               log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.MaxMultipartMemory = s.cfg.Ingest.MaxUploadBytes

	api := s.router.Group("/api")
	{
		api.POST("/datasets", s.handleDatasetUpload)
		api.GET("/datasets", s.handleDatasetList)
		api.GET("/datasets/:id", s.handleDatasetGet)
		api.DELETE("/datasets/:id", s.handleDatasetDelete)
		api.GET("/datasets/:id/profile", s.handleDatasetProfile)
		api.POST("/datasets/:id/preprocess", s.handlePreprocess)
		api.GET("/datasets/:id/runs", s.handleRunList)
		api.GET("/runs/:id", s.handleRunGet)
		api.GET("/runs/:id/report", s.handleRunReport)
	}
}

// Router exposes the gin engine for testing
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server
func (s *Server) Start() error {
	s.log.Info("API server listening on :%s", s.cfg.Server.Port)
	return s.router.Run(":" + s.cfg.Server.Port)
}

// respondError maps domain and application errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFoundError(err) || errors.GetCode(err) == errors.CodeNotFound:
		status = http.StatusNotFound
	case core.IsShapeError(err) || core.IsDataError(err):
		status = http.StatusUnprocessableEntity
	default:
		switch errors.GetCode(err) {
		case errors.CodeValidationError, errors.CodeInvalidInput:
			status = http.StatusBadRequest
		case errors.CodeIngestionError, errors.CodePipelineError:
			status = http.StatusUnprocessableEntity
		}
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
