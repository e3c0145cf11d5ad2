package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Stateless analytics
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/portfolio/twr", s.handlePortfolioTWR)
	mux.HandleFunc("/api/currency-rate", s.handleCurrencyRate)
	mux.HandleFunc("/api/stock/history/", s.handleStockHistory)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.routePortfolioCollection)
}

// routePortfolioCollection dispatches /api/portfolios by method.
func (s *Server) routePortfolioCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioList(w, r)
	case http.MethodPost:
		s.handlePortfolioCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routePortfolios dispatches /api/portfolios/{name}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	name := PathParam(r, "/api/portfolios/", "")
	if name == "" {
		s.routePortfolioCollection(w, r)
		return
	}

	subpath := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/portfolios/"+name), "/")

	switch subpath {
	case "":
		s.handlePortfolio(w, r, name)
	case "lots":
		s.handleLots(w, r, name)
	case "snapshot":
		s.handlePortfolioSnapshot(w, r, name)
	case "report":
		s.handlePortfolioReport(w, r, name)
	case "analysis":
		s.handlePortfolioAnalysis(w, r, name)
	default:
		switch {
		case strings.HasPrefix(subpath, "lots/"):
			s.handleLot(w, r, name, strings.TrimPrefix(subpath, "lots/"))
		case strings.HasPrefix(subpath, "positions/"):
			s.routePosition(w, r, name, strings.TrimPrefix(subpath, "positions/"))
		case strings.HasPrefix(subpath, "charts/") && strings.HasSuffix(subpath, ".png"):
			kind := strings.TrimSuffix(strings.TrimPrefix(subpath, "charts/"), ".png")
			s.handlePortfolioChart(w, r, name, kind)
		default:
			WriteError(w, http.StatusNotFound, "Not found")
		}
	}
}

// routePosition dispatches /api/portfolios/{name}/positions/{ticker}/lots[/{id}].
func (s *Server) routePosition(w http.ResponseWriter, r *http.Request, name, subpath string) {
	parts := strings.SplitN(subpath, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != "lots" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	lotID := ""
	if len(parts) == 3 {
		lotID = parts[2]
	}
	s.handlePositionLotDelete(w, r, name, parts[0], lotID)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.app.StartupTime).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}
