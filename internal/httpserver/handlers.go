package httpserver

import (
	"errors"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/honeywatch/internal/aggregate"
	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/filter"
	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/severity"
)

const maxTopIPs = 1000

type categoryCount struct {
	Name     string `json:"name"`
	Count    int64  `json:"count"`
	Severity string `json:"severity"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindReportGenerationFailed:
		return http.StatusBadGateway
	case apperr.KindArtifactNotFound:
		return http.StatusNotFound
	case apperr.KindReportInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": string(kind)})
}

// snapshot writes a 503 and returns nil when no good snapshot exists yet.
func (s *Server) snapshot(c *gin.Context) *model.Snapshot {
	snap, err := s.query.Snapshot()
	if err != nil {
		writeError(c, err)
		return nil
	}
	return snap
}

// respond adds snapshot metadata to body. A failed latest cycle marks the
// data stale instead of hiding it.
func (s *Server) respond(c *gin.Context, snap *model.Snapshot, body gin.H) {
	body["seq"] = snap.Seq
	body["refreshed_at"] = snap.RefreshedAt
	if err := s.view.LastError(); err != nil {
		body["stale"] = true
		body["last_error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"state":  s.view.State(),
	}
	if snap := s.view.Latest(); snap != nil {
		body["last_refresh"] = snap.RefreshedAt
		body["records"] = len(snap.Records)
	}
	if err := s.view.LastError(); err != nil {
		body["status"] = "degraded"
		body["last_error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"role": c.GetString(roleKey)})
}

func (s *Server) handleLogs(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	s.respond(c, snap, gin.H{
		"records": snap.Records,
		"count":   len(snap.Records),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}

	categories := make([]categoryCount, 0, len(snap.Stats.ByCategory))
	for name, count := range snap.Stats.ByCategory {
		categories = append(categories, categoryCount{
			Name:     name,
			Count:    count,
			Severity: s.catalog.Severity(name),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		if ri, rj := severity.Rank(categories[i].Severity), severity.Rank(categories[j].Severity); ri != rj {
			return ri > rj
		}
		return categories[i].Name < categories[j].Name
	})

	s.respond(c, snap, gin.H{
		"total":       snap.Stats.Total,
		"by_category": snap.Stats.ByCategory,
		"categories":  categories,
	})
}

func (s *Server) handleTimeSeries(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	s.respond(c, snap, gin.H{"buckets": snap.TimeSeries})
}

func (s *Server) handleGeo(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	s.respond(c, snap, gin.H{"clusters": snap.GeoClusters})
}

func (s *Server) handleBreakdowns(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	s.respond(c, snap, gin.H{"breakdowns": snap.Breakdowns})
}

func (s *Server) handleTopIPs(c *gin.Context) {
	limit := model.DefaultTopIPs
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTopIPs {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000", "kind": "bad_request"})
			return
		}
		limit = n
	}

	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	s.respond(c, snap, gin.H{"top_ips": aggregate.TopIPs(snap.Records, limit), "limit": limit})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	records := filter.Apply(snap.Records, query)
	s.respond(c, snap, gin.H{
		"query":   query,
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "refresh rate limit exceeded", "kind": "rate_limited"})
		return
	}
	// Server-owned timeout; the request context is not passed through.
	if err := s.query.Refresh(); err != nil {
		writeError(c, err)
		return
	}
	snap := s.view.Latest()
	c.JSON(http.StatusOK, gin.H{
		"status":       "refreshed",
		"seq":          snap.Seq,
		"refreshed_at": snap.RefreshedAt,
		"records":      len(snap.Records),
	})
}

func (s *Server) handleGenerateReport(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "report generation is not configured", "kind": "not_configured"})
		return
	}
	if err := s.reports.Generate(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "generated"})
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "report generation is not configured", "kind": "not_configured"})
		return
	}
	artifact, err := s.reports.Fetch()
	if err != nil {
		if !errors.Is(err, apperr.ErrArtifactNotFound) {
			s.log.Sugar().Errorw("report fetch failed", "error", err)
		}
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	c.Header("Last-Modified", artifact.ModTime.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, artifactContentType(artifact.Name), artifact.Data)
}

func artifactContentType(name string) string {
	switch filepath.Ext(name) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
