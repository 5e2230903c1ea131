package models

import "time"

// --- News search results ---

// Source identifies the publisher of a search result.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SearchResultArticle is a news article as returned by a search or
// headlines provider. It has no identity and is never persisted.
type SearchResultArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      Source `json:"source"`
}

// AnalysisText returns the text sent for summarization: the article
// content, or the description when the provider returned no content.
func (a SearchResultArticle) AnalysisText() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Description
}

// SentimentText returns the text sent for sentiment classification.
func (a SearchResultArticle) SentimentText() string {
	return a.Title + " " + a.Description
}

// --- Analyzed articles ---

// AnalyzedArticle is a search result augmented with an AI summary and a
// sentiment classification. ID is empty until the store assigns one.
type AnalyzedArticle struct {
	ID             string    `json:"id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	Image          string    `json:"image"`
	PublishedAt    string    `json:"published_at"`
	Source         string    `json:"source"`
	Summary        string    `json:"summary"`
	Sentiment      Sentiment `json:"sentiment"`
	SentimentScore int       `json:"sentiment_score"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// NewAnalyzedArticle merges a search result with its summary and
// sentiment into a record ready to be persisted.
func NewAnalyzedArticle(article SearchResultArticle, summary string, result SentimentResult, analyzedAt time.Time) AnalyzedArticle {
	return AnalyzedArticle{
		Title:          article.Title,
		Description:    article.Description,
		URL:            article.URL,
		Image:          article.Image,
		PublishedAt:    article.PublishedAt,
		Source:         article.Source.Name,
		Summary:        summary,
		Sentiment:      result.Sentiment,
		SentimentScore: result.Score,
		AnalyzedAt:     analyzedAt,
	}
}
