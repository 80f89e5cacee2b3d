package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tracto-cpk/internal/excel"
	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/jobs"
	"tracto-cpk/internal/loader"
	"tracto-cpk/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// startExport writes the outputs for the request's filters to a workbook in
// the background. With a "file" upload the uploaded table is processed
// instead of the loaded dataset. Progress is polled through /logs and /status.
func (s *Server) startExport(c *gin.Context) {
	if _, err := c.FormFile("file"); err == nil {
		s.startUploadExport(c)
		return
	}

	report, ok := s.query(c)
	if !ok {
		return
	}

	job := s.jobs.Create()
	go s.runExport(job, func() (*pipeline.Report, error) { return report, nil })

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func (s *Server) startUploadExport(c *gin.Context) {
	var q selectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	file, _ := c.FormFile("file")
	name := filepath.Base(file.Filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Upload an .xlsx, .xlsm or .csv file"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		s.log.Error("create upload directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Could not store upload"})
		return
	}
	inputPath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), name))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.log.Error("save upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Could not store upload"})
		return
	}

	sel := q.selection()
	job := s.jobs.Create()
	go s.runExport(job, func() (*pipeline.Report, error) {
		job.Log(fmt.Sprintf("Reading %s...", name))
		records, err := loader.ReadFile(inputPath, "")
		if err != nil {
			return nil, err
		}
		job.Log(fmt.Sprintf("%d routes read.", len(records)))

		report, err := s.pipeline.Run(records, sel)
		if err != nil {
			return nil, err
		}
		switch report.Status {
		case filter.StatusNoMatch:
			return nil, fmt.Errorf("no route in the data matches the selected filters (nothing left after %s)", report.EmptiedAt)
		case filter.StatusOversized:
			return nil, fmt.Errorf("%d routes selected, more than the limit of %d", report.Matched, report.MaxRows)
		}
		return report, nil
	})

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func (s *Server) runExport(job *jobs.Job, build func() (*pipeline.Report, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("export panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			job.Fail(fmt.Sprintf("Panic: %v", r))
		}
	}()

	report, err := build()
	if err != nil {
		job.Fail(fmt.Sprintf("Processing error: %v", err))
		return
	}

	job.Log(fmt.Sprintf("Exporting %d routes...", report.Matched))
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		job.Fail(fmt.Sprintf("Output directory error: %v", err))
		return
	}

	filename := fmt.Sprintf("cpk_%s.xlsx", job.ID)
	outputPath := filepath.Join(s.outputDir, filename)

	start := time.Now()
	written := 0
	err = excel.WriteReport(job.Context(), outputPath, report, func(sheet string, rows int) {
		written++
		job.SetProgress(written, excel.ReportSheets, fmt.Sprintf("Sheet %s written (%d rows)", sheet, rows))
	})
	if errors.Is(err, context.Canceled) {
		s.log.Info("export cancelled", zap.String("job_id", job.ID))
		job.Stopped()
		return
	}
	if err != nil {
		s.log.Error("export failed", zap.String("job_id", job.ID), zap.Error(err))
		job.Fail(fmt.Sprintf("Write error: %v", err))
		return
	}

	s.log.Info("export written",
		zap.String("job_id", job.ID),
		zap.String("output", outputPath),
		zap.Duration("elapsed", time.Since(start)),
	)
	job.Finish(jobs.Result{
		Rows:     len(report.Routes),
		Sheets:   written,
		Output:   outputPath,
		Filename: filename,
	})
}

func (s *Server) jobLogs(c *gin.Context) {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (s *Server) jobStatus(c *gin.Context) {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cancelJob(c *gin.Context) {
	job := s.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cancelled": job.Cancel()})
}

func (s *Server) downloadTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := excel.WriteTemplate(&buf); err != nil {
		s.log.Error("write template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Could not build template"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cpk_template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	target := filepath.Join(s.outputDir, filename)
	if _, err := os.Stat(target); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "File not found"})
		return
	}
	c.FileAttachment(target, filename)
}
