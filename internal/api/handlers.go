// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/plutosync/internal/cache"
	"github.com/ManuGH/plutosync/internal/catalog"
	"github.com/ManuGH/plutosync/internal/jobs"
	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/region"
	"github.com/ManuGH/plutosync/internal/userdata"
)

type statusResponse struct {
	jobs.Status
	NextRun *time.Time `json:"nextRun,omitempty"`
	Regions []string   `json:"regions"`
}

type regionResponse struct {
	region.Region
	Configured bool `json:"configured"`
}

type syncRequest struct {
	Regions []string `json:"regions"`
}

type resumeRequest struct {
	Position *int64 `json:"position"`
	Length   int64  `json:"length"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPIDocument)
}

func (s *Server) configured() []string {
	regions := s.deps.Configured()
	if regions == nil {
		regions = []string{}
	}
	return regions
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.deps.Sync.Status(), Regions: s.configured()}
	if next := s.deps.NextRun(); !next.IsZero() {
		resp.NextRun = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	regions := s.configured()
	if len(req.Regions) > 0 {
		regions = make([]string, 0, len(req.Regions))
		for _, code := range req.Regions {
			rg, err := s.deps.Regions.Lookup(code)
			if err != nil {
				writeError(w, err)
				return
			}
			regions = append(regions, rg.Code)
		}
	}
	if len(regions) == 0 {
		writeError(w, errors.New("no regions configured"))
		return
	}
	if !s.deps.Sync.RunBackground(regions) {
		msg, _ := jobs.StateAlreadyRunning.Message()
		writeErrorCode(w, http.StatusConflict, msg)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.sync_started").
		Strs("regions", regions).
		Msg("update started on request")
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true, "regions": regions})
}

func (s *Server) handleSyncCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Sync.Cancel() {
		writeErrorCode(w, http.StatusConflict, "no update in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "cancellation requested"})
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	configured := s.configured()
	all := s.deps.Regions.All()
	out := make([]regionResponse, 0, len(all))
	for _, rg := range all {
		out = append(out, regionResponse{Region: rg, Configured: slices.Contains(configured, rg.Code)})
	}
	writeJSON(w, http.StatusOK, out)
}

// lookupRegion resolves the {region} parameter or writes a 404.
func (s *Server) lookupRegion(w http.ResponseWriter, r *http.Request) (region.Region, bool) {
	rg, err := s.deps.Regions.Lookup(chi.URLParam(r, "region"))
	if err != nil {
		writeNotFound(w, err.Error())
		return region.Region{}, false
	}
	return rg, true
}

func (s *Server) handleVOD(w http.ResponseWriter, r *http.Request) {
	rg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	cats := cache.Fetch(r.Context(), s.deps.Cache, "vod:"+rg.Code, s.cfg.CacheTTL,
		func(ctx context.Context) ([]catalog.VODCategory, bool) {
			cats := s.deps.VOD.VODCategories(ctx, rg)
			return cats, len(cats) > 0
		})
	if cats == nil {
		cats = []catalog.VODCategory{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	rg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	series := cache.Fetch(r.Context(), s.deps.Cache, "seasons:"+rg.Code+":"+id, s.cfg.CacheTTL,
		func(ctx context.Context) (catalog.VODSeries, bool) {
			series := s.deps.VOD.Seasons(ctx, rg, id)
			return series, len(series.Seasons) > 0
		})
	if len(series.Seasons) == 0 {
		writeNotFound(w, "no seasons for series "+id)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleResumeGet(w http.ResponseWriter, r *http.Request) {
	rp, ok, err := s.deps.UserData.ResumePoint(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, userdata.ErrInvalidKey):
		writeNotFound(w, "")
	case err != nil:
		s.logStoreError(r, err)
		writeInternal(w)
	case !ok:
		writeNotFound(w, "no resume point")
	default:
		writeJSON(w, http.StatusOK, rp)
	}
}

func (s *Server) handleResumePut(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Position == nil || *req.Position < 0 || req.Length < 0 {
		writeError(w, errors.New("position must be a non-negative integer"))
		return
	}
	err := s.deps.UserData.SetResumePoint(r.Context(), chi.URLParam(r, "id"), *req.Position, req.Length)
	switch {
	case errors.Is(err, userdata.ErrInvalidKey):
		writeError(w, err)
	case err != nil:
		s.logStoreError(r, err)
		writeInternal(w)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	rg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	favs, err := s.deps.UserData.Favorites(r.Context(), rg.Code)
	if err != nil {
		s.logStoreError(r, err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (s *Server) handleFavoriteAdd(w http.ResponseWriter, r *http.Request) {
	rg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	var item catalog.VODItem
	if err := decodeBody(w, r, &item); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	id := chi.URLParam(r, "id")
	if item.ID != "" && item.ID != id {
		writeError(w, errors.New("item id does not match the path"))
		return
	}
	item.ID = id
	if err := s.deps.UserData.AddFavorite(r.Context(), rg.Code, item); err != nil {
		if errors.Is(err, userdata.ErrInvalidKey) {
			writeError(w, err)
			return
		}
		s.logStoreError(r, err)
		writeInternal(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavoriteRemove(w http.ResponseWriter, r *http.Request) {
	rg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	removed, err := s.deps.UserData.RemoveFavorite(r.Context(), rg.Code, chi.URLParam(r, "id"))
	switch {
	case err != nil && !errors.Is(err, userdata.ErrInvalidKey):
		s.logStoreError(r, err)
		writeInternal(w)
	case !removed:
		writeNotFound(w, "no such favorite")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) logStoreError(r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "userdata.failed").
		Str(log.FieldPath, r.URL.Path).
		Msg("user data operation failed")
}
