package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/portfolio"
)

// --- Portfolio handlers ---

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.app.PortfolioService.ListPortfolios(r.Context(), common.ResolveUserID(r.Context()))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": portfolios,
	})
}

func (s *Server) handlePortfolioCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	p, err := s.app.PortfolioService.CreatePortfolio(r.Context(), common.ResolveUserID(r.Context()), req.Name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	userID := common.ResolveUserID(ctx)

	switch r.Method {
	case http.MethodGet:
		p, err := s.app.PortfolioService.GetPortfolio(ctx, userID, name)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.app.PortfolioService.DeletePortfolio(ctx, userID, name); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleLots serves /api/portfolios/{name}/lots: list, add and clear.
func (s *Server) handleLots(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	userID := common.ResolveUserID(ctx)

	switch r.Method {
	case http.MethodGet:
		p, err := s.app.PortfolioService.GetPortfolio(ctx, userID, name)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"lots": p.Lots})
	case http.MethodPost:
		var lot models.Lot
		if !DecodeJSON(w, r, &lot) {
			return
		}
		added, err := s.app.PortfolioService.AddLot(ctx, userID, name, lot)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	case http.MethodDelete:
		if err := s.app.PortfolioService.ClearLots(ctx, userID, name); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleLot serves /api/portfolios/{name}/lots/{id}: update and delete.
func (s *Server) handleLot(w http.ResponseWriter, r *http.Request, name, lotID string) {
	ctx := r.Context()
	userID := common.ResolveUserID(ctx)

	switch r.Method {
	case http.MethodPut:
		var lot models.Lot
		if !DecodeJSON(w, r, &lot) {
			return
		}
		updated, err := s.app.PortfolioService.UpdateLot(ctx, userID, name, lotID, lot)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.app.PortfolioService.DeleteLot(ctx, userID, name, lotID); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handlePositionLotDelete removes one lot of a position. Without a lot id
// the position must hold exactly one lot.
func (s *Server) handlePositionLotDelete(w http.ResponseWriter, r *http.Request, name, ticker, lotID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := s.app.PortfolioService.DeletePositionLot(r.Context(), common.ResolveUserID(r.Context()), name, ticker, lotID); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// snapshotOptions reads ?currency= and ?twr= into SnapshotOptions.
func snapshotOptions(r *http.Request) interfaces.SnapshotOptions {
	return interfaces.SnapshotOptions{
		Currency:   strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))),
		IncludeTWR: QueryBool(r, "twr"),
	}
}

func (s *Server) handlePortfolioSnapshot(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snap, err := s.app.PortfolioService.Snapshot(r.Context(), common.ResolveUserID(r.Context()), name, snapshotOptions(r))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// handlePortfolioReport returns the report as JSON by default, or raw
// markdown or HTML with ?format=markdown|html.
func (s *Server) handlePortfolioReport(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	withHTML := format == "html" || format == "json" || format == ""

	report, err := s.app.ReportService.GenerateReport(r.Context(), common.ResolveUserID(r.Context()), name, snapshotOptions(r), withHTML)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	switch format {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.Markdown))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.HTML))
	default:
		WriteJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, name, kind string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := snapshotOptions(r)
	if kind == portfolio.ChartPerformance {
		opts.IncludeTWR = true
	}

	snap, err := s.app.PortfolioService.Snapshot(r.Context(), common.ResolveUserID(r.Context()), name, opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	png, err := s.app.PortfolioService.RenderAllocationChart(snap, kind)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handlePortfolioAnalysis returns the cached AI review. POST or ?refresh=true
// forces a new one.
func (s *Server) handlePortfolioAnalysis(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	refresh := r.Method == http.MethodPost || QueryBool(r, "refresh")
	result, err := s.app.AnalysisService.Analyze(r.Context(), common.ResolveUserID(r.Context()), name, refresh)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
