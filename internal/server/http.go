package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seedlabs/seed-server/internal/aggregate"
	"github.com/seedlabs/seed-server/internal/dataset"
	"github.com/seedlabs/seed-server/internal/export"
	"github.com/seedlabs/seed-server/internal/filter"
	"github.com/seedlabs/seed-server/internal/ranking"
	"github.com/seedlabs/seed-server/internal/session"
	"github.com/seedlabs/seed-server/pkg/config"
)

// Store is the dataset access the server needs. *database.DB satisfies it.
type Store interface {
	GetAllCompanies() ([]dataset.Company, error)
	GetAllIncidents() ([]dataset.Incident, error)
}

// ResultCache memoizes computed payloads by filter signature.
// *cache.AggregateCache satisfies it; a nil cache disables memoization.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (interface{}, error)) ([]byte, error)
}

// Server is the dashboard HTTP API.
type Server struct {
	store    Store
	cache    ResultCache
	sessions *session.Manager
	ranking  *config.RankingConfig
	router   *gin.Engine
}

// New creates the API server and registers its routes.
func New(store Store, resultCache ResultCache, sessions *session.Manager, rankingCfg *config.RankingConfig) *Server {
	s := &Server{
		store:    store,
		cache:    resultCache,
		sessions: sessions,
		ranking:  rankingCfg,
	}

	router := gin.Default()
	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/sessions", s.handleCreateSession)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
		api.GET("/companies", s.handleCompanies)
		api.GET("/aggregates/:dimension", s.handleAggregates)
		api.GET("/rankings", s.handleRankings)
		api.GET("/correlations", s.handleCorrelations)
		api.GET("/incidents/geo", s.handleIncidentsGeo)
		api.GET("/export.csv", s.handleExport)
	}
	s.router = router

	return s
}

// Router exposes the underlying gin engine (used by tests).
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": s.sessions.Count(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess, err := s.sessions.Create()
	if err != nil {
		if err == session.ErrMaxSessionsReached {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.sessions.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// parseFilter builds the filter from query parameters, touching the
// caller's session if one is identified. Dimension-style params that are
// not filter keys must be removed by the caller before this runs.
func (s *Server) parseFilter(c *gin.Context, extraKeys ...string) (*filter.Filter, bool) {
	params := map[string][]string{}
	for key, values := range c.Request.URL.Query() {
		skip := false
		for _, extra := range extraKeys {
			if key == extra {
				skip = true
				break
			}
		}
		if !skip {
			params[key] = values
		}
	}

	f, err := filter.FromQuery(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	if id := c.GetHeader("X-Session-ID"); id != "" {
		if err := s.sessions.Touch(id, f.Signature()); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return nil, false
		}
	}

	return f, true
}

func (s *Server) handleCompanies(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}

	companies, err := s.store.GetAllCompanies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filtered := f.Apply(companies)
	c.JSON(http.StatusOK, gin.H{
		"filter_signature": f.Signature(),
		"count":            len(filtered),
		"companies":        filtered,
	})
}

func (s *Server) handleAggregates(c *gin.Context) {
	dimension := c.Param("dimension")
	if !aggregate.ValidDimension(dimension) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown dimension: " + dimension})
		return
	}

	f, ok := s.parseFilter(c)
	if !ok {
		return
	}

	payload, err := s.cached(c, f.Signature()+":agg:"+dimension, func() (interface{}, error) {
		companies, err := s.store.GetAllCompanies()
		if err != nil {
			return nil, err
		}
		return aggregate.Aggregate(f.Apply(companies), dimension)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) handleRankings(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("top", "10"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top parameter"})
		return
	}

	f, ok := s.parseFilter(c, "top")
	if !ok {
		return
	}

	payload, err := s.cached(c, fmt.Sprintf("%s:rank:%d", f.Signature(), n), func() (interface{}, error) {
		companies, err := s.store.GetAllCompanies()
		if err != nil {
			return nil, err
		}

		scored := ranking.Score(f.Apply(companies), s.ranking)
		return gin.H{
			"company_count":       len(scored),
			"leaders":             ranking.Leaders(scored, n),
			"laggards":            ranking.Laggards(scored, n),
			"industry_benchmarks": ranking.BenchmarkByIndustry(scored),
		}, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) handleCorrelations(c *gin.Context) {
	pair := c.Query("pair")

	f, ok := s.parseFilter(c, "pair")
	if !ok {
		return
	}

	companies, err := s.store.GetAllCompanies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filtered := f.Apply(companies)

	if pair != "" {
		corr, err := aggregate.Correlate(filtered, pair)
		if err != nil {
			if errors.Is(err, aggregate.ErrInsufficientData) {
				c.JSON(http.StatusOK, gin.H{"pair": pair, "insufficient_data": true})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, corr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filter_signature": f.Signature(),
		"correlations":     aggregate.CorrelateAll(filtered),
	})
}

func (s *Server) handleIncidentsGeo(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}

	payload, err := s.cached(c, f.Signature()+":incgeo", func() (interface{}, error) {
		companies, err := s.store.GetAllCompanies()
		if err != nil {
			return nil, err
		}
		incidents, err := s.store.GetAllIncidents()
		if err != nil {
			return nil, err
		}

		filtered := f.Apply(companies)
		return gin.H{
			"states": aggregate.IncidentsByState(f.ApplyIncidents(incidents, filtered), filtered),
		}, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) handleExport(c *gin.Context) {
	which := c.DefaultQuery("dataset", "companies")
	if which != "companies" && which != "incidents" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown dataset: " + which})
		return
	}

	f, ok := s.parseFilter(c, "dataset")
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", which))

	companies, err := s.store.GetAllCompanies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filtered := f.Apply(companies)

	if which == "companies" {
		if err := export.WriteCompanies(c.Writer, filtered); err != nil {
			_ = c.Error(err)
		}
		return
	}

	incidents, err := s.store.GetAllIncidents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := export.WriteIncidents(c.Writer, f.ApplyIncidents(incidents, filtered)); err != nil {
		_ = c.Error(err)
	}
}

// cached routes a computation through the result cache when one is
// configured, falling back to direct JSON encoding otherwise.
func (s *Server) cached(c *gin.Context, key string, compute func() (interface{}, error)) ([]byte, error) {
	if s.cache == nil {
		value, err := compute()
		if err != nil {
			return nil, err
		}
		return jsonEncode(value)
	}
	return s.cache.GetOrCompute(c.Request.Context(), key, compute)
}

func jsonEncode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
