package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sw33tLie/tenderscope/internal/utils"
	"github.com/sw33tLie/tenderscope/pkg/storage"
)

type scanResponse struct {
	Scan    *storage.Scan        `json:"scan"`
	Tenders []storage.ScanTender `json:"tenders"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	scans, err := s.DB.ListScans(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, scans)
}

func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	scan, items, err := s.DB.LatestScan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, scanResponse{Scan: scan, Tenders: items})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	scan, items, err := s.DB.GetScan(r.Context(), chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, scanResponse{Scan: scan, Tenders: items})
}

// handleNewTenders accepts since as RFC 3339 or as a day (2006-01-02).
func (s *Server) handleNewTenders(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			since, err = time.Parse("2006-01-02", v)
		}
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
	}
	items, err := s.DB.ListNewTenders(r.Context(), since, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, items)
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Warnf("Could not write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrBatchNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	utils.Log.Errorf("API error: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
