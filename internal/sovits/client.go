package sovits

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API endpoints and paths.
const (
	apiTTS           = "/tts"
	apiCharacterList = "/character_list"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// maxErrorBodyBytes bounds how much of a failed response is kept for the log.
const maxErrorBodyBytes = 4096

// Error messages.
const (
	errFmtServiceNonOKStatus = "GPT-SoVITS backend returned non-OK status: %s, body: %s"
	errFmtSendRequest        = "failed to send request to GPT-SoVITS backend at %s: %w"
)

// ErrReceivedEmptyAudio is returned when the backend answers 200 with no body.
var ErrReceivedEmptyAudio = errors.New("received empty audio data")

// HTTPClient talks to a GPT-SoVITS inference backend.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// TTSRequest is the JSON body of POST /tts. Field order matches the
// backend's documented payload.
type TTSRequest struct {
	CharacterName    string   `json:"cha_name"`
	CharacterEmotion string   `json:"character_emotion"`
	Text             string   `json:"text"`
	TextLanguage     Language `json:"text_language"`
	BatchSize        int      `json:"batch_size"`
	Speed            float64  `json:"speed"`
	TopK             int      `json:"top_k"`
	TopP             float64  `json:"top_p"`
	Temperature      float64  `json:"temperature"`
}

// NewHTTPClient creates a client for the backend at baseURL
// (e.g. "http://localhost:9880"). A zero timeout leaves the http.Client default.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the endpoint every request is sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// GenerateSpeech posts req to {baseURL}/tts and returns the raw response
// body. The body is not decoded or transcoded.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiTTS

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(errFmtSendRequest, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// Characters fetches the character list from the backend, keyed by
// character name with that character's emotion presets as values.
func (c *HTTPClient) Characters(ctx context.Context) (map[string][]string, error) {
	url := c.baseURL + apiCharacterList

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create character list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtSendRequest, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var characters map[string][]string

	err = json.NewDecoder(resp.Body).Decode(&characters)
	if err != nil {
		return nil, fmt.Errorf("failed to decode character list: %w", err)
	}

	return characters, nil
}

// parseErrorResponse keeps the status and a bounded prefix of the body,
// which is usually the backend's JSON or plain-text error detail.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		strings.TrimSpace(string(body)),
	)
}
