// Package ai turns article text into a short summary and a sentiment
// classification using a chat completion endpoint.
package ai

const summarySystemPrompt = "You are a professional news summarizer. Provide a concise, objective summary of the given article in 2-3 sentences."

const summaryUserPrompt = "Please summarize this article: "

const sentimentSystemPrompt = `You are a sentiment analysis expert. Analyze the sentiment of the given text and respond with ONLY a JSON object containing "sentiment" (positive/neutral/negative) and "score" (0-100 where 0 is very negative, 50 is neutral, 100 is very positive).`

const sentimentUserPrompt = "Analyze the sentiment of this text: "

// Request parameters per task.
const (
	summaryMaxTokens     = 150
	summaryTemperature   = 0.3
	sentimentMaxTokens   = 50
	sentimentTemperature = 0.1
)
