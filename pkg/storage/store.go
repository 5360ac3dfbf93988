package storage

import (
	"errors"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Store 管线数据存储接口
type Store interface {
	// SaveVideo 保存视频任务
	SaveVideo(video *models.Video) error

	// GetVideo 获取视频任务
	GetVideo(id string) (*models.Video, error)

	// UpdateVideo 更新视频任务（使用回调函数模式）
	UpdateVideo(id string, updateFn func(*models.Video)) error

	// ListVideos 列出所有视频任务
	ListVideos() ([]*models.Video, error)

	// DeleteVideo 删除视频任务及其关联数据
	DeleteVideo(id string) error

	// SaveTranscript 保存转录
	SaveTranscript(transcript *models.Transcript) error

	// GetTranscriptByVideo 按视频 id 获取转录
	GetTranscriptByVideo(videoID string) (*models.Transcript, error)

	// UpdateTranscript 更新转录（题目生成时逐片段写入）
	UpdateTranscript(videoID string, updateFn func(*models.Transcript)) error

	// SaveQuestions 保存视频的独立题目记录
	SaveQuestions(videoID string, questions []models.Question) error

	// GetQuestionsByVideo 按视频 id 获取独立题目记录
	GetQuestionsByVideo(videoID string) ([]models.Question, error)

	// Close 关闭存储连接
	Close() error
}
