package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("resource not found")

	// ErrNotYetAvailable 资源尚未生成（转录还没开始/完成），
	// 属于预期内的暂时缺失，调用方静默重试即可
	ErrNotYetAvailable = errors.New("resource not yet available")
)

// Client 处理管线 API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 API 客户端
// baseURL 形如 http://localhost:8080/api
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope 服务端统一响应格式
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doJSON 发送请求并解包响应
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API 返回错误: %d - %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("API 错误: %s", env.Message)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("解析数据失败: %w", err)
		}
	}

	return nil
}

// GetVideo 获取视频任务状态
func (c *Client) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	if err := c.doJSON(ctx, "GET", "/videos/"+id, nil, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// ListVideos 获取所有视频任务
func (c *Client) ListVideos(ctx context.Context) ([]*models.Video, error) {
	var videos []*models.Video
	if err := c.doJSON(ctx, "GET", "/videos", nil, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// DeleteVideo 删除视频任务
func (c *Client) DeleteVideo(ctx context.Context, id string) error {
	return c.doJSON(ctx, "DELETE", "/videos/"+id, nil, nil)
}

// UpdateVideo 更新视频元数据（如播放端探测到的时长）
func (c *Client) UpdateVideo(ctx context.Context, id string, updates map[string]any) (*models.Video, error) {
	var video models.Video
	if err := c.doJSON(ctx, "PATCH", "/videos/"+id, updates, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// GetTranscript 获取视频的转录结果。
// 转录尚未开始时服务端返回 404，这里映射为 ErrNotYetAvailable。
func (c *Client) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	var transcript models.Transcript
	if err := c.doJSON(ctx, "GET", "/transcripts/video/"+videoID, nil, &transcript); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("transcript for %s: %w", videoID, ErrNotYetAvailable)
		}
		return nil, err
	}
	return &transcript, nil
}

// Transcribe 触发（或重试）转录
func (c *Client) Transcribe(ctx context.Context, videoID string) error {
	return c.doJSON(ctx, "GET", "/transcripts/transcribe/"+videoID, nil, nil)
}

// GetQuestions 获取视频的独立题目记录。
// 尚无题目时返回空列表而不是错误。
func (c *Client) GetQuestions(ctx context.Context, videoID string) ([]models.Question, error) {
	var questions []models.Question
	if err := c.doJSON(ctx, "GET", "/questions/video/"+videoID, nil, &questions); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Question{}, nil
		}
		return nil, err
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return questions, nil
}

// GenerateQuestions 触发题目生成
func (c *Client) GenerateQuestions(ctx context.Context, videoID string) ([]models.Question, error) {
	var questions []models.Question
	if err := c.doJSON(ctx, "POST", "/questions/generate/"+videoID, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// UploadVideo 上传视频文件并创建处理任务
func (c *Client) UploadVideo(ctx context.Context, path, title, language string) (*models.Video, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("创建表单失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("复制文件失败: %w", err)
	}

	writer.WriteField("title", title)
	if language != "" {
		writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/videos/upload", body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 返回错误: %d - %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("API 错误: %s", env.Message)
	}

	var video models.Video
	if err := json.Unmarshal(env.Data, &video); err != nil {
		return nil, fmt.Errorf("解析数据失败: %w", err)
	}
	return &video, nil
}
