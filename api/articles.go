package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/smartreviewer/internal/store"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// serverKeys are assigned by the server and ignored in request bodies.
var serverKeys = map[string]bool{"id": true, "_id": true, "created_at": true}

// articleKeys are the JSON keys bound to AnalyzedArticle fields.
// Any other key is kept as extra data.
var articleKeys = map[string]bool{
	"title": true, "description": true, "url": true, "image": true,
	"published_at": true, "source": true, "summary": true,
	"sentiment": true, "sentiment_score": true, "analyzed_at": true,
}

// handleListArticles returns every stored document, newest analysis first.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	docs, err := s.repo.List(r.Context())
	if err != nil {
		s.logger.Error("listing articles failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch articles")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleCreateArticle stores an analyzed article. An empty analyzed_at
// is set to the current time.
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	article, extra, err := decodeArticle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.repo.Insert(r.Context(), article, extra)
	if err != nil {
		s.logger.Error("saving article failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save article")
		return
	}

	s.wsHub.Broadcast(WSMessage{Type: EventArticleAnalyzed, Data: doc})
	writeJSON(w, http.StatusCreated, doc)
}

// handleDeleteArticle removes a stored document.
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.repo.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Article not found")
		return
	case err != nil:
		s.logger.Error("deleting article failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete article")
		return
	}

	s.wsHub.Broadcast(WSMessage{Type: EventArticleDeleted, Data: map[string]string{"id": id}})
	writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

// decodeArticle reads an article from the request body and separates
// out keys that are not article fields.
func decodeArticle(r *http.Request) (models.AnalyzedArticle, map[string]json.RawMessage, error) {
	var article models.AnalyzedArticle

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return article, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if fields == nil {
		return article, nil, errors.New("invalid JSON body: expected an object")
	}

	known := make(map[string]json.RawMessage, len(fields))
	var extra map[string]json.RawMessage
	for k, v := range fields {
		switch {
		case serverKeys[k]:
		case articleKeys[k]:
			known[k] = v
		default:
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[k] = v
		}
	}

	var body struct {
		models.AnalyzedArticle
		AnalyzedAt *string `json:"analyzed_at"`
	}
	raw, err := json.Marshal(known)
	if err != nil {
		return article, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return article, nil, fmt.Errorf("invalid article: %w", err)
	}
	article = body.AnalyzedArticle

	if body.AnalyzedAt == nil || strings.TrimSpace(*body.AnalyzedAt) == "" {
		article.AnalyzedAt = time.Now().UTC()
	} else {
		t, err := time.Parse(time.RFC3339Nano, *body.AnalyzedAt)
		if err != nil {
			return article, nil, fmt.Errorf("invalid analyzed_at: %w", err)
		}
		article.AnalyzedAt = t
	}
	return article, extra, nil
}

// eventStore persists articles produced by the analyzer and announces
// them on the WebSocket hub.
type eventStore struct {
	srv *Server
}

// Create implements analyzer.Store.
func (e *eventStore) Create(ctx context.Context, article models.AnalyzedArticle) error {
	if e.srv.repo == nil {
		return fmt.Errorf("%w: no repository configured", store.ErrStorePersist)
	}
	doc, err := e.srv.repo.Insert(ctx, article, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorePersist, err)
	}
	e.srv.wsHub.Broadcast(WSMessage{Type: EventArticleAnalyzed, Data: doc})
	return nil
}
