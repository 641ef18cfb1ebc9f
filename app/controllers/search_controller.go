package controllers

import (
	"net/http"

	"blogapi/app/services"

	"go.uber.org/zap"
)

type SearchController struct {
	searchService *services.SearchService
	logger        *zap.Logger
}

func NewSearchController(search *services.SearchService, logger *zap.Logger) *SearchController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchController{searchService: search, logger: logger}
}

// Search handles GET /api/search?q=...
func (sc *SearchController) Search(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := pageParams(r)
	if err != nil {
		sendError(w, r, sc.logger, err)
		return
	}
	result, err := sc.searchService.Search(r.Context(), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		sendError(w, r, sc.logger, err)
		return
	}

	resp := searchResponse{
		Query:   result.Query,
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
		Pages:   result.Pages,
		Results: make([]searchResult, 0, len(result.Results)),
	}
	for _, post := range result.Results {
		resp.Results = append(resp.Results, searchResult{
			ID:        post.ID,
			Title:     post.Title,
			Author:    post.Author,
			Score:     post.Score,
			CreatedAt: post.CreatedAt,
		})
	}
	sendJSON(w, http.StatusOK, resp)
}
