package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/seenimoa/smartreviewer/internal/ai"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// maxSearchResults is the largest page GNews serves.
const maxSearchResults = 100

// handleNewsSearch searches the configured news source.
// Query: q (required), max (optional, 1-100).
func (s *Server) handleNewsSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 0
	if m := r.URL.Query().Get("max"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > maxSearchResults {
			writeError(w, http.StatusBadRequest, "max must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	articles, err := s.news.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("news search failed", "query", q, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to fetch news articles")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

// handleNewsTrending returns the current top headlines.
func (s *Server) handleNewsTrending(w http.ResponseWriter, r *http.Request) {
	articles, err := s.news.Trending(r.Context())
	if err != nil {
		s.logger.Error("trending news failed", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to fetch trending news")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

// handleAnalyze summarizes and classifies a search result and stores
// the analyzed article.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var article models.SearchResultArticle
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(article.AnalysisText()) == "" {
		writeError(w, http.StatusBadRequest, "article needs content or a description")
		return
	}

	analyzed, err := s.analyzer.Analyze(r.Context(), article)
	if err != nil {
		msg := "Failed to analyze article"
		if errors.Is(err, ai.ErrSummaryGeneration) {
			msg = "Failed to generate summary"
		}
		writeError(w, http.StatusBadGateway, msg)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: analyzed})
}
