// Package spoonacular is a small client for the Spoonacular recipe API.
//
// It only does what the app needs: one random recipe, a search by
// ingredients, and the details of one recipe. Responses are reshaped into
// the model types the front end expects, with placeholders for missing
// titles, images and instructions.
//
// ERRORS:
// Every failure comes back as an *apperror.AppError with a message that can
// be shown to the user as-is:
//
//	timeout / deadline          → apperror.ErrUpstreamTimeout     (408)
//	DNS failure, conn refused   → apperror.ErrUpstreamUnavailable (503)
//	upstream 401                → apperror.ErrUpstreamAuth        (401)
//	upstream 404                → apperror.ErrNotFound            (404)
//	upstream 429                → apperror.ErrRateLimited         (429)
//	upstream 5xx                → apperror.ErrUpstreamUnavailable (503)
//	anything else               → apperror.ErrUpstream            (502)
package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
)

const (
	DefaultBaseURL = "https://api.spoonacular.com"

	// placeholderKey is the value shipped in the example .env file. It is
	// treated the same as no key at all.
	placeholderKey = "your_api_key_here"

	placeholderTitle        = "Untitled Recipe"
	placeholderImage        = "/placeholder-recipe.jpg"
	placeholderInstructions = "No instructions available."
	placeholderSummary      = "No summary available."
)

// User-facing messages.
const (
	msgNoAPIKey      = "API key not configured. Please set up your Spoonacular API key."
	msgInvalidAPIKey = "Invalid API key. Please check your Spoonacular API configuration."
	msgRateLimited   = "API rate limit exceeded. Please try again later."
	msgServiceDown   = "Spoonacular service is temporarily unavailable."
	msgUnreachable   = "Unable to connect to recipe service. Please check your internet connection."
	msgNoIngredients = "Ingredients parameter is required and cannot be empty."
)

// Timeouts bounds each kind of call. Search gets longer because
// findByIngredients is noticeably slower upstream.
type Timeouts struct {
	Random      time.Duration
	Search      time.Duration
	Information time.Duration
}

// DefaultTimeouts are 10 s for single recipes and 15 s for a search.
var DefaultTimeouts = Timeouts{
	Random:      10 * time.Second,
	Search:      15 * time.Second,
	Information: 10 * time.Second,
}

// Client calls the Spoonacular API. It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	timeouts Timeouts
	http     *http.Client
	logger   *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTimeouts overrides DefaultTimeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) { c.timeouts = t }
}

// New creates a client. An empty baseURL means DefaultBaseURL.
func New(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		timeouts: DefaultTimeouts,
		http:     &http.Client{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a usable API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey
}

// operation holds the messages that differ between the three calls.
type operation struct {
	name     string
	timeout  string
	notFound string
	failed   string
}

var (
	opRandom = operation{
		name:     "random",
		timeout:  "Request timed out. Please try again.",
		notFound: "No random recipe found. Please try again.",
		failed:   "Failed to fetch random recipe. Please try again later.",
	}
	opSearch = operation{
		name:     "search",
		timeout:  "Search request timed out. Please try again with fewer ingredients.",
		notFound: "No recipes found for the given ingredients.",
		failed:   "Failed to search recipes. Please try again later.",
	}
	opInformation = operation{
		name:     "information",
		timeout:  "Request timed out. Please try again.",
		notFound: "Recipe not found. It may have been removed or the ID is incorrect.",
		failed:   "Failed to fetch recipe details. Please try again later.",
	}
)

// =========================================================================
// UPSTREAM SHAPES
// =========================================================================

type apiStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

type apiRecipe struct {
	ID                   int64             `json:"id"`
	Title                string            `json:"title"`
	Image                string            `json:"image"`
	Summary              string            `json:"summary"`
	ReadyInMinutes       int               `json:"readyInMinutes"`
	Instructions         string            `json:"instructions"`
	ExtendedIngredients  []json.RawMessage `json:"extendedIngredients"`
	AnalyzedInstructions []struct {
		Steps []apiStep `json:"steps"`
	} `json:"analyzedInstructions"`
}

type apiSearchResult struct {
	ID                int64             `json:"id"`
	Title             string            `json:"title"`
	Image             string            `json:"image"`
	UsedIngredients   []json.RawMessage `json:"usedIngredients"`
	MissedIngredients []json.RawMessage `json:"missedIngredients"`
}

// instructions prefers the free-text field and falls back to the numbered
// steps of the first analyzed instruction block: "1. Mix. 2. Bake."
func (r apiRecipe) instructions() string {
	if r.Instructions != "" {
		return r.Instructions
	}
	if len(r.AnalyzedInstructions) == 0 {
		return placeholderInstructions
	}

	steps := make([]string, 0, len(r.AnalyzedInstructions[0].Steps))
	for _, s := range r.AnalyzedInstructions[0].Steps {
		steps = append(steps, fmt.Sprintf("%d. %s", s.Number, s.Step))
	}
	if len(steps) == 0 {
		return placeholderInstructions
	}
	return strings.Join(steps, " ")
}

// ingredientLines pulls the human-readable "original" line out of each
// extended ingredient.
func (r apiRecipe) ingredientLines() []string {
	lines := make([]string, 0, len(r.ExtendedIngredients))
	for _, raw := range r.ExtendedIngredients {
		var ing struct {
			Original string `json:"original"`
		}
		if err := json.Unmarshal(raw, &ing); err == nil {
			lines = append(lines, ing.Original)
		}
	}
	return lines
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func nonNil(raw []json.RawMessage) []json.RawMessage {
	if raw == nil {
		return []json.RawMessage{}
	}
	return raw
}

// =========================================================================
// OPERATIONS
// =========================================================================

// Random returns one random recipe.
func (c *Client) Random(ctx context.Context) (*model.RecipeSummary, error) {
	var body struct {
		Recipes []apiRecipe `json:"recipes"`
	}
	params := url.Values{"number": {"1"}}
	if err := c.get(ctx, opRandom, c.timeouts.Random, "/recipes/random", params, &body); err != nil {
		return nil, err
	}
	if len(body.Recipes) == 0 {
		return nil, apperror.NotFoundMessage(opRandom.notFound)
	}

	r := body.Recipes[0]
	return &model.RecipeSummary{
		ID:           r.ID,
		Title:        orDefault(r.Title, placeholderTitle),
		Image:        orDefault(r.Image, placeholderImage),
		Instructions: r.instructions(),
		Ingredients:  r.ingredientLines(),
	}, nil
}

// Search finds recipes that use the given comma-separated ingredients.
func (c *Client) Search(ctx context.Context, ingredients string) ([]model.SearchResult, error) {
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return nil, apperror.ValidationFailed("ingredients", msgNoIngredients)
	}

	var body []apiSearchResult
	params := url.Values{
		"ingredients":  {ingredients},
		"number":       {"12"},
		"ranking":      {"1"},
		"ignorePantry": {"true"},
	}
	if err := c.get(ctx, opSearch, c.timeouts.Search, "/recipes/findByIngredients", params, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, apperror.NotFoundMessage(opSearch.notFound)
	}

	results := make([]model.SearchResult, 0, len(body))
	for _, r := range body {
		results = append(results, model.SearchResult{
			ID:                r.ID,
			Title:             orDefault(r.Title, placeholderTitle),
			Image:             orDefault(r.Image, placeholderImage),
			UsedIngredients:   nonNil(r.UsedIngredients),
			MissedIngredients: nonNil(r.MissedIngredients),
		})
	}
	return results, nil
}

// RecipeInformation returns the details of one recipe.
func (c *Client) RecipeInformation(ctx context.Context, id int64) (*model.RecipeDetail, error) {
	var r apiRecipe
	path := "/recipes/" + strconv.FormatInt(id, 10) + "/information"
	params := url.Values{"includeNutrition": {"false"}}
	if err := c.get(ctx, opInformation, c.timeouts.Information, path, params, &r); err != nil {
		return nil, err
	}

	detail := &model.RecipeDetail{
		ID:                  r.ID,
		Title:               orDefault(r.Title, placeholderTitle),
		Image:               orDefault(r.Image, placeholderImage),
		Summary:             orDefault(r.Summary, placeholderSummary),
		Instructions:        r.instructions(),
		ExtendedIngredients: nonNil(r.ExtendedIngredients),
	}
	if r.ReadyInMinutes > 0 {
		minutes := r.ReadyInMinutes
		detail.ReadyInMinutes = &minutes
	}
	return detail, nil
}

// =========================================================================
// TRANSPORT
// =========================================================================

// get performs one GET with its own deadline and decodes the JSON body
// into out. Every error it returns is already an *apperror.AppError.
func (c *Client) get(ctx context.Context, op operation, timeout time.Duration, path string, params url.Values, out any) error {
	if !c.Configured() {
		return apperror.Internal(msgNoAPIKey, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return apperror.Internal(op.failed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return c.statusError(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return c.transportError(op, err)
		}
		c.logger.Warn("spoonacular: undecodable response",
			slog.String("op", op.name),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream(apperror.ErrUpstream, op.failed)
	}
	return nil
}

// statusError maps a non-200 upstream status.
func (c *Client) statusError(op operation, status int) error {
	c.logger.Warn("spoonacular: upstream error",
		slog.String("op", op.name),
		slog.Int("status", status),
	)

	switch {
	case status == http.StatusUnauthorized:
		return apperror.Upstream(apperror.ErrUpstreamAuth, msgInvalidAPIKey)
	case status == http.StatusNotFound:
		return apperror.NotFoundMessage(op.notFound)
	case status == http.StatusTooManyRequests:
		return apperror.Upstream(apperror.ErrRateLimited, msgRateLimited)
	case status >= 500:
		return apperror.Upstream(apperror.ErrUpstreamUnavailable, msgServiceDown)
	default:
		return apperror.Upstream(apperror.ErrUpstream, op.failed)
	}
}

// transportError maps a failure to get any response at all.
func (c *Client) transportError(op operation, err error) error {
	c.logger.Warn("spoonacular: request failed",
		slog.String("op", op.name),
		slog.String("error", err.Error()),
	)

	var dnsErr *net.DNSError
	switch {
	case isTimeout(err):
		return apperror.Upstream(apperror.ErrUpstreamTimeout, op.timeout)
	case errors.As(err, &dnsErr), errors.Is(err, syscall.ECONNREFUSED):
		return apperror.Upstream(apperror.ErrUpstreamUnavailable, msgUnreachable)
	default:
		return apperror.Upstream(apperror.ErrUpstream, op.failed)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
