package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/opendiary/diary/internal/models"
	"github.com/opendiary/diary/pkg/utils"
)

// createEntryRequest is the POST /entries payload
type createEntryRequest struct {
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

// updateEntryRequest is the PUT /entries/{id} payload; nil fields are left unchanged
type updateEntryRequest struct {
	Content *string `json:"content,omitempty"`
	Pinned  *bool   `json:"pinned,omitempty"`
}

// listEntriesResponse is the GET /entries payload
type listEntriesResponse struct {
	Entries []*models.Entry `json:"entries"`
	Total   int64           `json:"total"`
	Page    int64           `json:"page"`
	PerPage int64           `json:"per_page"`
}

func (s *HTTPServer) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}

	if req.Content == "" {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Content must be provided", ""))
		return
	}

	entry, err := s.storage.CreateEntry(r.Context(), req.Content, req.Pinned)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *HTTPServer) getEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.storage.GetEntry(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) listEntriesHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := filter.Normalize(); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid entry filter", err.Error()))
		return
	}

	entries, err := s.storage.GetEntries(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	total, err := s.storage.CountEntries(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if entries == nil {
		entries = []*models.Entry{}
	}

	s.writeJSON(w, http.StatusOK, listEntriesResponse{
		Entries: entries,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	})
}

func (s *HTTPServer) updateEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}

	entry, err := s.storage.UpdateEntry(r.Context(), id, req.Content, req.Pinned)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) deleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.storage.DeleteEntry(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseEntryID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeValidation, "Invalid entry id", raw)
	}
	return id, nil
}

func parseEntryFilter(r *http.Request) (models.EntryFilter, error) {
	filter := models.EntryFilter{}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid page parameter", v)
		}
		filter.Page = page
	}

	if v := q.Get("per_page"); v != "" {
		perPage, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid per_page parameter", v)
		}
		filter.PerPage = perPage
	}

	if v := q.Get("sort"); v != "" {
		sort, err := models.ParseSortOrder(v)
		if err != nil {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid sort parameter", err.Error())
		}
		filter.Sort = sort
	}

	if v := q.Get("pinned"); v != "" {
		pinned, err := strconv.ParseBool(v)
		if err != nil {
			return filter, utils.NewAppError(utils.ErrCodeValidation, "Invalid pinned parameter", v)
		}
		filter.Pinned = &pinned
	}

	if v := q.Get("substr"); v != "" {
		filter.Substring = &v
	}

	return filter, nil
}
