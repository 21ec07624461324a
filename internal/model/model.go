// Package model holds the documents that move through the intake pipeline:
// user records, patient form submissions, and the reports returned by the
// narrative-analysis service. JSON tags follow the wire shapes the analysis
// service and the dashboards already speak.
package model

import (
	"encoding/json"
	"fmt"
)

// Role values for user records.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// User is one account. Patients carry a patient identifier that keys their
// form and report documents; doctors do not.
type User struct {
	UserID       string `json:"user_id"`
	PatientID    string `json:"patient_id,omitempty"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password,omitempty"`
	Role         string `json:"role"`
	IsReport     bool   `json:"isReport"`
}

// Public returns a copy safe to hand back to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// WordcloudEntry is one (word, count) pair. The analysis service encodes the
// wordcloud as an ordered array of two-element tuples: ["pain", 3].
type WordcloudEntry struct {
	Word  string
	Count int
}

func (e WordcloudEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Word, e.Count})
}

func (e *WordcloudEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("wordcloud entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Word); err != nil {
		return fmt.Errorf("wordcloud word: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Count); err != nil {
		return fmt.Errorf("wordcloud count: %w", err)
	}
	return nil
}

// Sentiment is a label with its confidence.
type Sentiment struct {
	Label string  `json:"Label"`
	Score float64 `json:"Score"`
}

// DetectedThemes carries the theme names the model surfaced and a confidence
// score per theme in [0,1].
type DetectedThemes struct {
	Themes           []string           `json:"Detected_Themes"`
	ConfidenceScores map[string]float64 `json:"Confidence_Scores"`
}

// SentimentAnalysis is the overall tone plus per-emotion scores.
type SentimentAnalysis struct {
	OverallSentiment Sentiment          `json:"Overall_Sentiment"`
	TopEmotions      map[string]float64 `json:"Top_Emotions"`
}

// ReportBody is the analysis payload for one patient. Metadata echoes the
// submitted form and is kept opaque; the dashboards pass it through.
type ReportBody struct {
	Metadata       json.RawMessage    `json:"metadata"`
	DetectedThemes DetectedThemes     `json:"detected_themes"`
	Sentiment      SentimentAnalysis  `json:"sentiment_and_emotion_analysis"`
	ZeroShot       map[string]float64 `json:"zero_shot_classification"`
	Summary        string             `json:"qol_summary"`
	Wordcloud      []WordcloudEntry   `json:"wordcloud"`
}

// Report is the stored document: at most one per patient identifier.
type Report struct {
	PatientID string     `json:"Patient_ID"`
	Body      ReportBody `json:"report"`
}

// Aggregate is the clinician dashboard rollup across every stored report.
type Aggregate struct {
	TotalPatients          int                `json:"total_patients"`
	AverageThemeConfidence map[string]float64 `json:"average_theme_confidence"`
	AverageEmotions        map[string]float64 `json:"average_emotions"`
	AggregatedWordcloud    []WordcloudEntry   `json:"aggregated_wordcloud"`
}
