// Package explainclient calls the external explanation service, which turns
// the structured reasons of a suggestion into human-readable rationale.
package explainclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// explanationPaths are the response fields the rationale may be found in,
// in order of preference
var explanationPaths = []string{
	"explanation",
	"data.explanation",
	"choices.0.message.content",
}

// Request is the structured input the service explains
type Request struct {
	SuggestionID    string         `json:"suggestionId"`
	PatientID       int64          `json:"patientId"`
	ServiceTypeID   int64          `json:"serviceTypeId"`
	StaffID         *int64         `json:"staffId"`
	MatchTier       string         `json:"matchTier"`
	ConfidenceScore *float64       `json:"confidenceScore"`
	Reasons         []model.Reason `json:"reasons"`
	Warnings        []string       `json:"warnings"`
}

// NewRequest builds the request for a suggestion
func NewRequest(s *model.Suggestion) Request {
	warnings := make([]string, len(s.Warnings))
	for i, w := range s.Warnings {
		warnings[i] = w.String()
	}
	return Request{
		SuggestionID:    s.ID,
		PatientID:       s.PatientID,
		ServiceTypeID:   s.ServiceTypeID,
		StaffID:         s.SuggestedStaffID,
		MatchTier:       string(s.MatchTier),
		ConfidenceScore: s.ConfidenceScore,
		Reasons:         s.ScoringFactors,
		Warnings:        warnings,
	}
}

// Client is the explanation service client
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	return &Client{httpClient: httpClient}
}

// Explain returns the rationale text for a suggestion
func (c *Client) Explain(ctx context.Context, s *model.Suggestion) (string, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(NewRequest(s)).
		Post("/v1/explanations")
	if err != nil {
		return "", fmt.Errorf("failed to call explanation service: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("explanation service returned %d: %s", resp.StatusCode(), gjson.GetBytes(resp.Body(), "error").String())
	}

	for _, path := range explanationPaths {
		if text := gjson.GetBytes(resp.Body(), path).String(); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("explanation service returned no explanation")
}
