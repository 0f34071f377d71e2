package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ListingResponse — объявление из API.
type ListingResponse struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Address      string   `json:"address"`
	Price        float64  `json:"price"`
	Bedrooms     float64  `json:"bedrooms,omitempty"`
	Bathrooms    float64  `json:"bathrooms,omitempty"`
	Images       []string `json:"images"`
	QualityScore float64  `json:"quality_score"`
}

// FeedbackResponse — открытый feedback-запрос из API.
type FeedbackResponse struct {
	RunID      string            `json:"run_id"`
	AfterPhase string            `json:"after_phase"`
	Candidates []ListingResponse `json:"candidates"`
	CreatedAt  string            `json:"created_at"`
}

// ReportItemResponse — элемент итогового отчёта.
type ReportItemResponse struct {
	Listing ListingResponse `json:"listing"`
	Location struct {
		OverallScore  float64  `json:"overall_score"`
		Advantages    []string `json:"advantages"`
		Disadvantages []string `json:"disadvantages"`
	} `json:"location"`
	Design struct {
		Style string `json:"style"`
		Rooms []struct {
			Room      string `json:"room"`
			BeforeURL string `json:"before_url"`
			AfterURL  string `json:"after_url"`
			Error     string `json:"error,omitempty"`
		} `json:"rooms"`
	} `json:"design"`
}

// ReportResponse — итоговый отчёт из API.
type ReportResponse struct {
	Metadata struct {
		PropertiesFound    int    `json:"properties_found"`
		PropertiesAnalyzed int    `json:"properties_analyzed"`
		RoomsRedesigned    int    `json:"rooms_redesigned"`
		GeneratedAt        string `json:"generated_at"`
	} `json:"metadata"`
	Items []ReportItemResponse `json:"items"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Phase       string `json:"phase,omitempty"`
	Criteria    struct {
		Location     string  `json:"location"`
		PropertyType string  `json:"property_type"`
		Bedrooms     int     `json:"bedrooms,omitempty"`
		MaxPrice     float64 `json:"max_price,omitempty"`
	} `json:"criteria"`
	DesignStyle     string            `json:"design_style,omitempty"`
	Amendments      []string          `json:"amendments,omitempty"`
	Rewinds         int               `json:"rewinds"`
	PendingFeedback *FeedbackResponse `json:"pending_feedback,omitempty"`
	Report          *ReportResponse   `json:"report,omitempty"`
	Error           string            `json:"error,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// --- Request types ---

// StartRunRequest — создание run.
type StartRunRequest struct {
	Criteria    CriteriaRequest `json:"criteria"`
	DesignStyle string          `json:"design_style,omitempty"`
}

// CriteriaRequest — критерии поиска.
type CriteriaRequest struct {
	Location               string  `json:"location"`
	PropertyType           string  `json:"property_type"`
	Bedrooms               int     `json:"bedrooms,omitempty"`
	Bathrooms              int     `json:"bathrooms,omitempty"`
	MaxPrice               float64 `json:"max_price,omitempty"`
	RentFrequency          string  `json:"rent_frequency,omitempty"`
	AdditionalRequirements string  `json:"additional_requirements,omitempty"`
}

// SubmitFeedbackRequest — решение по открытому запросу.
type SubmitFeedbackRequest struct {
	Type       string            `json:"type"`
	ListingIDs []string          `json:"listing_ids,omitempty"`
	Style      string            `json:"style,omitempty"`
	Styles     map[string]string `json:"styles,omitempty"`
	Amendment  string            `json:"amendment,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Hestia API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// StartRun создаёт новый run.
func (c *Client) StartRun(req StartRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs", req, &run)
	return &run, err
}

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// GetReport возвращает итоговый отчёт завершённого run'а.
func (c *Client) GetReport(id string) (*ReportResponse, error) {
	var report ReportResponse
	err := c.get("/api/v1/runs/"+id+"/report", &report)
	return &report, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// GetFeedback возвращает открытый feedback-запрос run'а.
func (c *Client) GetFeedback(runID string) (*FeedbackResponse, error) {
	var fb FeedbackResponse
	err := c.get("/api/v1/runs/"+runID+"/feedback", &fb)
	return &fb, err
}

// SubmitFeedback отправляет решение по открытому запросу.
func (c *Client) SubmitFeedback(runID string, req SubmitFeedbackRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+runID+"/feedback", req, &run)
	return &run, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
