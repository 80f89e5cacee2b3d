package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/geo"
	"tracto-cpk/internal/pipeline"
)

type selectionQuery struct {
	OriginState     string `form:"origin_state"`
	OriginCity      string `form:"origin_city"`
	DestinationCity string `form:"destination_city"`
	Vehicle         string `form:"vehicle_id"`
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return filter.Only(v)
}

func (q selectionQuery) selection() filter.Selection {
	return filter.Selection{
		OriginState:     optional(q.OriginState),
		OriginCity:      optional(q.OriginCity),
		DestinationCity: optional(q.DestinationCity),
		Vehicle:         optional(q.Vehicle),
	}
}

type rankingQuery struct {
	selectionQuery
	N *int `form:"n" binding:"omitempty,min=1,max=50"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
}

// query runs the pipeline for the request's filters. It writes the response
// itself and returns false when the filters cannot produce outputs.
func (s *Server) query(c *gin.Context) (*pipeline.Report, bool) {
	var q selectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return nil, false
	}

	report := s.pipeline.Query(s.dataset, q.selection())
	switch report.Status {
	case filter.StatusNoMatch:
		c.JSON(http.StatusNotFound, gin.H{
			"ok":         false,
			"status":     report.Status,
			"emptied_at": report.EmptiedAt,
			"error":      "no route in the data matches the selected filters",
		})
		return nil, false
	case filter.StatusOversized:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"ok":       false,
			"status":   report.Status,
			"matched":  report.Matched,
			"max_rows": report.MaxRows,
			"error":    "too many routes selected, narrow the filters",
		})
		return nil, false
	}
	return report, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"loaded":   s.dataset.Loaded,
		"records":  len(s.dataset.Records),
		"excluded": len(s.dataset.Exclusions),
	})
}

func (s *Server) options(c *gin.Context) {
	var q selectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"options": filter.Options(s.dataset.Records, q.selection()),
	})
}

func (s *Server) exclusions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"counts":     s.dataset.ExclusionCounts(),
		"exclusions": s.dataset.Exclusions,
	})
}

func (s *Server) routes(c *gin.Context) {
	report, ok := s.query(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"status":  report.Status,
		"matched": report.Matched,
		"routes":  report.Routes,
		"records": report.Filtered,
	})
}

func (s *Server) geoMap(c *gin.Context) {
	report, ok := s.query(c)
	if !ok {
		return
	}

	fc, err := geo.FeatureCollection(report.Geo.Valid)
	if err != nil {
		s.log.Error("encode map features", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not encode routes"})
		return
	}

	discards := gin.H{}
	for _, reason := range []geo.DiscardReason{geo.ReasonMissingCoordinates, geo.ReasonOutOfBounds} {
		discards[string(reason)] = gin.H{
			"count":   report.Geo.Report.Count(reason),
			"records": report.Geo.Report.Records(reason),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"status":    report.Status,
		"bounds":    geo.Mexico,
		"viewport":  geo.Viewport,
		"valid":     len(report.Geo.Valid),
		"discarded": report.Geo.Report.Total(),
		"discards":  discards,
		"routes":    fc,
	})
}

func (s *Server) summary(c *gin.Context) {
	report, ok := s.query(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"status": report.Status,
		"groups": report.Groups,
	})
}

func (s *Server) ranking(c *gin.Context) {
	var q rankingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	n := s.pipeline.Options().TopN
	if q.N != nil {
		n = *q.N
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"n":       n,
		"ranking": s.pipeline.Rank(s.dataset, q.selection(), n),
	})
}
