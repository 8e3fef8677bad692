package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Telegram Bot API client. Hand-rolled over net/http; only the methods
// this bot needs.

type telegramAPI struct {
	http    *http.Client
	baseURL string
	token   string
}

func newTelegramAPI(httpClient *http.Client, baseURL, token string) *telegramAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &telegramAPI{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type telegramUpdate struct {
	UpdateID    int64                `json:"update_id"`
	Message     *telegramMessage     `json:"message,omitempty"`
	InlineQuery *telegramInlineQuery `json:"inline_query,omitempty"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Date      int64         `json:"date,omitempty"`
	Chat      *telegramChat `json:"chat,omitempty"`
	From      *telegramUser `json:"from,omitempty"`
	Text      string        `json:"text,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type telegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type telegramInlineQuery struct {
	ID     string        `json:"id"`
	From   *telegramUser `json:"from,omitempty"`
	Query  string        `json:"query"`
	Offset string        `json:"offset,omitempty"`
}

type telegramGetUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramGetMeResponse struct {
	OK     bool         `json:"ok"`
	Result telegramUser `json:"result"`
}

type telegramOKResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// telegramRequestError keeps the pieces a caller may match on: the
// HTTP status, Telegram's own error code and description, and a body
// snippet for logs.
type telegramRequestError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *telegramRequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	if desc != "" {
		if e.StatusCode > 0 {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, desc)
		}
		return "telegram: " + desc
	}
	body := strings.TrimSpace(e.Body)
	if e.StatusCode > 0 {
		if body != "" {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, body)
		}
		return fmt.Sprintf("telegram http %d", e.StatusCode)
	}
	if body != "" {
		return "telegram: " + body
	}
	return "telegram request failed"
}

func (api *telegramAPI) getMe(ctx context.Context) (*telegramUser, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", api.baseURL, api.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out telegramGetMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getMe: ok=false")
	}
	return &out.Result, nil
}

func (api *telegramAPI) getUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramUpdate, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", api.baseURL, api.token, secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	// Telegram holds the request open for the poll timeout; allow a
	// grace period on top before giving up on the connection.
	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, offset, err
	}
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, offset, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, offset, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out telegramGetUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

func isTelegramPollTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

func (api *telegramAPI) postJSON(ctx context.Context, method string, body any) error {
	b, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/bot%s/%s", api.baseURL, api.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var out telegramOKResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return &telegramRequestError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	return nil
}

type telegramSendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

func (api *telegramAPI) sendMessage(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(empty)"
	}
	return api.postJSON(ctx, "sendMessage", telegramSendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
}

type telegramSendMediaRequest struct {
	ChatID    int64  `json:"chat_id"`
	Photo     string `json:"photo,omitempty"`
	Animation string `json:"animation,omitempty"`
}

// sendPhotoByURL hands the URL to Telegram, which fetches it itself.
func (api *telegramAPI) sendPhotoByURL(ctx context.Context, chatID int64, url string) error {
	return api.postJSON(ctx, "sendPhoto", telegramSendMediaRequest{ChatID: chatID, Photo: url})
}

func (api *telegramAPI) sendAnimationByURL(ctx context.Context, chatID int64, url string) error {
	return api.postJSON(ctx, "sendAnimation", telegramSendMediaRequest{ChatID: chatID, Animation: url})
}

// sendPhotoUpload streams the bytes as a multipart upload.
func (api *telegramAPI) sendPhotoUpload(ctx context.Context, chatID int64, r io.Reader, filename string) error {
	return api.sendMediaUpload(ctx, "sendPhoto", "photo", chatID, r, filename)
}

func (api *telegramAPI) sendAnimationUpload(ctx context.Context, chatID int64, r io.Reader, filename string) error {
	return api.sendMediaUpload(ctx, "sendAnimation", "animation", chatID, r, filename)
}

func (api *telegramAPI) sendMediaUpload(ctx context.Context, method, field string, chatID int64, r io.Reader, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = field
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mw.Close()

		_ = mw.WriteField("chat_id", strconv.FormatInt(chatID, 10))

		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
	}()

	url := fmt.Sprintf("%s/bot%s/%s", api.baseURL, api.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := api.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var out telegramOKResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return &telegramRequestError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	return nil
}

// sendPhotoFile uploads a local file without loading it into memory.
func (api *telegramAPI) sendPhotoFile(ctx context.Context, chatID int64, path string) error {
	return api.sendMediaFile(ctx, "sendPhoto", "photo", chatID, path)
}

func (api *telegramAPI) sendAnimationFile(ctx context.Context, chatID int64, path string) error {
	return api.sendMediaFile(ctx, "sendAnimation", "animation", chatID, path)
}

func (api *telegramAPI) sendMediaFile(ctx context.Context, method, field string, chatID int64, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("missing file path")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}
	return api.sendMediaUpload(ctx, method, field, chatID, f, filepath.Base(path))
}

type telegramAnswerInlineQueryRequest struct {
	InlineQueryID string `json:"inline_query_id"`
	Results       []any  `json:"results"`
	CacheTime     int    `json:"cache_time,omitempty"`
}

func (api *telegramAPI) answerInlineQuery(ctx context.Context, queryID string, results []any, cacheTime int) error {
	if results == nil {
		results = []any{}
	}
	return api.postJSON(ctx, "answerInlineQuery", telegramAnswerInlineQueryRequest{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     cacheTime,
	})
}
