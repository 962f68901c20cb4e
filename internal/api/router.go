package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/sirupsen/logrus"

	"marketpages/internal/generator"
	"marketpages/internal/market"
	"marketpages/internal/store"
)

// RegisterRoutes wires the preview server: health, JSON views over the run
// archive, live quotes, an on-demand rebuild trigger, and the generated site
// itself under /site/.
func RegisterRoutes(h *server.Hertz, st *store.Store, gen *generator.Generator, agg *market.Aggregator, outputDir string, defaultSymbols []string, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/v1/summary", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": "store not configured"})
			return
		}
		run, ok, err := st.LatestRun()
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, map[string]any{"ok": false, "error": "no runs yet"})
			return
		}
		snapshots, err := st.SnapshotsByRun(run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "run": run, "snapshots": snapshots})
	})

	h.GET("/api/v1/archive/dates", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": "store not configured"})
			return
		}
		dates, err := st.ListDates(0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "dates": dates})
	})

	h.GET("/api/v1/archive", func(_ context.Context, c *app.RequestContext) {
		if st == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": "store not configured"})
			return
		}
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "date query parameter required"})
			return
		}
		snapshots, err := st.SnapshotsByDate(date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if len(snapshots) == 0 {
			c.JSON(http.StatusNotFound, map[string]any{"ok": false, "error": "no snapshots for " + date})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "date": date, "snapshots": snapshots})
	})

	h.GET("/api/v1/quotes", func(ctx context.Context, c *app.RequestContext) {
		if agg == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": "aggregator not configured"})
			return
		}
		symbols := defaultSymbols
		if raw := c.Query("symbols"); raw != "" {
			symbols = nil
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					symbols = append(symbols, s)
				}
			}
		}
		if len(symbols) == 0 {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "no symbols requested"})
			return
		}
		summary := agg.Aggregate(ctx, symbols)
		c.JSON(http.StatusOK, map[string]any{"ok": true, "summary": summary})
	})

	h.POST("/api/v1/generate", func(ctx context.Context, c *app.RequestContext) {
		if gen == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": "generator not configured"})
			return
		}
		run, err := gen.Run(ctx)
		if err != nil {
			logger.WithError(err).Error("on-demand generation failed")
			c.JSON(http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ok": true, "run": run})
	})

	h.GET("/site/*filepath", func(_ context.Context, c *app.RequestContext) {
		rel := strings.TrimPrefix(c.Param("filepath"), "/")
		if rel == "" {
			rel = "index.html"
		}
		clean := filepath.Clean(rel)
		if clean == ".." || strings.HasPrefix(clean, "../") {
			c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid path"})
			return
		}
		c.File(filepath.Join(outputDir, clean))
	})
}
