package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cohortprep/app"
	"cohortprep/domain/core"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/series"
	"cohortprep/internal/errors"
)

// handleDatasetUpload ingests a multipart file upload
func (s *Server) handleDatasetUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.InvalidInput("missing multipart field 'file'"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".csv" && ext != ".xlsx" && ext != ".xlsm" {
		respondError(c, errors.InvalidInput(fmt.Sprintf("unsupported file type %q", ext)))
		return
	}

	if err := os.MkdirAll(s.cfg.Ingest.DataDir, 0o755); err != nil {
		respondError(c, errors.Wrap(err, "failed to prepare data directory"))
		return
	}

	// Store under a fresh ID so concurrent uploads of the same filename
	// never collide
	dest := filepath.Join(s.cfg.Ingest.DataDir, string(core.NewID())+ext)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		respondError(c, errors.Wrap(err, "failed to save upload"))
		return
	}

	resolution := s.cfg.Ingest.Resolution
	if raw := c.PostForm("resolution"); raw != "" {
		resolution = series.Resolution(raw)
		if !resolution.IsValid() {
			respondError(c, errors.InvalidInput(fmt.Sprintf("invalid resolution %q", raw)))
			return
		}
	}

	result, err := s.datasetService.Ingest(c.Request.Context(), app.IngestRequest{
		Path:             dest,
		OriginalFilename: file.Filename,
		DisplayName:      c.PostForm("display_name"),
		Description:      c.PostForm("description"),
		Source:           "upload",
		Resolution:       resolution,
		MaxGapRatio:      s.cfg.Ingest.MaxGapRatio,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"dataset":  result.Dataset,
		"warnings": result.Warnings,
	})
}

// handleDatasetList lists datasets, newest first
func (s *Server) handleDatasetList(c *gin.Context) {
	limit, offset := pagination(c)
	datasets, err := s.datasetService.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "count": len(datasets)})
}

// handleDatasetGet returns one dataset record
func (s *Server) handleDatasetGet(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	ds, err := s.datasetService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// handleDatasetDelete removes a dataset and its runs
func (s *Server) handleDatasetDelete(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if err := s.datasetService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDatasetProfile returns the cohort profile computed at ingestion
func (s *Server) handleDatasetProfile(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	ds, err := s.datasetService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if ds.Metadata.Profile == nil {
		respondError(c, errors.NotFound("profile"))
		return
	}
	c.JSON(http.StatusOK, ds.Metadata.Profile)
}

// handlePreprocess runs a pipeline against a dataset
func (s *Server) handlePreprocess(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	var pipeline preprocess.Pipeline
	if err := c.ShouldBindJSON(&pipeline); err != nil {
		respondError(c, errors.InvalidInput("malformed pipeline: "+err.Error()))
		return
	}

	run, err := s.preprocessService.Execute(c.Request.Context(), id, pipeline)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

// handleRunList lists a dataset's runs
func (s *Server) handleRunList(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	limit, offset := pagination(c)
	runs, err := s.preprocessService.ListRuns(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// handleRunGet returns one run record
func (s *Server) handleRunGet(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	run, err := s.preprocessService.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleRunReport renders the run report, HTML by default and markdown
// with ?format=md
func (s *Server) handleRunReport(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	rep, err := s.preprocessService.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(rep.Markdown()))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", rep.HTML())
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
