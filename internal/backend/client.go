// Package backend 封装对外部 RAG 处理服务的 HTTP 调用
//
// 对端是独立部署的检索/生成服务，本服务只消费其 HTTP 接口：
// /chat、/generate_title、/upload、/files/{filename}、/settings/system-prompt
package backend

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
	"net/url"
	"strings"
	"time"

	"brandchat/internal/config"
)

// 错误分类，处理方按类别决定呈现给用户的文案
var (
	// ErrTimeout 调用超出客户端超时
	ErrTimeout = errors.New("backend: request timed out")
	// ErrUnreachable 连接被拒绝或服务离线
	ErrUnreachable = errors.New("backend: service unreachable")
	// ErrMalformed 响应不是 JSON 或缺少预期字段
	ErrMalformed = errors.New("backend: malformed response")
)

// Client RAG 后端客户端
type Client struct {
	baseURL string
	http    *http.Client
	cfg     config.BackendConfig
}

// NewClient 创建客户端
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		cfg:     cfg,
	}
}

// NewClientWithHTTP 创建带自定义 http.Client 的客户端，测试用
func NewClientWithHTTP(cfg config.BackendConfig, httpClient *http.Client) *Client {
	c := NewClient(cfg)
	if httpClient != nil {
		c.http = httpClient
	}
	return c
}

// HistoryEntry 发给后端的历史消息
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message string         `json:"message"`
	UserID  string         `json:"userId"`
	ChatID  string         `json:"chatId"`
	History []HistoryEntry `json:"history"`
}

// chatResponse 聊天响应
// 后端的响应字段历经过多次变化，按 response → message → answer 依次取值
type chatResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
	Answer   string `json:"answer"`
}

// ReplyText 按字段优先级取出回复文本
func (r *chatResponse) ReplyText() string {
	if r.Response != "" {
		return r.Response
	}
	if r.Message != "" {
		return r.Message
	}
	return r.Answer
}

// Chat 请求一条助手回复
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ChatDeadline())
	defer cancel()

	var resp chatResponse
	if err := c.postJSON(ctx, "/chat", req, &resp); err != nil {
		return "", err
	}

	reply := resp.ReplyText()
	if reply == "" {
		return "", fmt.Errorf("%w: no reply field in response", ErrMalformed)
	}
	return reply, nil
}

// TitleRequest 标题生成请求
type TitleRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

// GenerateTitle 根据首条消息生成会话标题
func (c *Client) GenerateTitle(ctx context.Context, message, chatID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TitleDeadline())
	defer cancel()

	var resp struct {
		Title string `json:"title"`
	}
	if err := c.postJSON(ctx, "/generate_title", &TitleRequest{Message: message, ChatID: chatID}, &resp); err != nil {
		return "", err
	}

	title := strings.Trim(strings.TrimSpace(resp.Title), `"'`)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrMalformed)
	}
	return title, nil
}

// UploadResult 文档索引结果
type UploadResult struct {
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	ChunkCount int    `json:"chunk_count"`
	FileType   string `json:"file_type"`
}

// Upload 上传文档进行切分和索引
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadDeadline())
	defer cancel()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: upload failed with status %d", httpResp.StatusCode)
	}

	var result UploadResult
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Filename == "" {
		result.Filename = filename
	}
	return &result, nil
}

// DeleteFile 删除文件在向量库中的全部切片
func (c *Client) DeleteFile(ctx context.Context, filename string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TitleDeadline())
	defer cancel()

	u := c.baseURL + "/files/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: delete failed with status %d", httpResp.StatusCode)
	}
	return nil
}

// UpdateSystemPrompt 将系统提示词推送到后端
func (c *Client) UpdateSystemPrompt(ctx context.Context, prompt string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TitleDeadline())
	defer cancel()

	payload, err := json.Marshal(map[string]string{"system_prompt": prompt})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/settings/system-prompt", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: update system prompt failed with status %d", httpResp.StatusCode)
	}
	return nil
}

// Health 探测后端的状态接口
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: status %d", httpResp.StatusCode)
	}
	return nil
}

// postJSON 发送 JSON 请求并解码响应
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: status %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// classify 把传输层错误归入超时/不可达两类
// 超时与离线对用户呈现不同的提示文案，必须区分
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
