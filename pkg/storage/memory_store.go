package storage

import (
	"fmt"
	"sync"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// MemoryStore 内存存储（RWMutex 保证并发安全）
type MemoryStore struct {
	mu          sync.RWMutex
	videos      map[string]*models.Video
	transcripts map[string]*models.Transcript // 按 videoID 索引
	questions   map[string][]models.Question  // 按 videoID 索引
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:      make(map[string]*models.Video),
		transcripts: make(map[string]*models.Transcript),
		questions:   make(map[string][]models.Question),
	}
}

// SaveVideo 保存视频任务
func (ms *MemoryStore) SaveVideo(video *models.Video) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.videos[video.ID] = video
	return nil
}

// GetVideo 获取视频任务
func (ms *MemoryStore) GetVideo(id string) (*models.Video, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	video, exists := ms.videos[id]
	if !exists {
		return nil, fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}
	return video, nil
}

// UpdateVideo 更新视频任务
func (ms *MemoryStore) UpdateVideo(id string, updateFn func(*models.Video)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	video, exists := ms.videos[id]
	if !exists {
		return fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}

	updateFn(video)
	return nil
}

// ListVideos 列出所有视频任务
func (ms *MemoryStore) ListVideos() ([]*models.Video, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	videos := make([]*models.Video, 0, len(ms.videos))
	for _, video := range ms.videos {
		videos = append(videos, video)
	}
	return videos, nil
}

// DeleteVideo 删除视频任务及关联数据
func (ms *MemoryStore) DeleteVideo(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.videos[id]; !exists {
		return fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}

	delete(ms.videos, id)
	delete(ms.transcripts, id)
	delete(ms.questions, id)
	return nil
}

// SaveTranscript 保存转录
func (ms *MemoryStore) SaveTranscript(transcript *models.Transcript) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.transcripts[transcript.VideoID] = transcript
	return nil
}

// GetTranscriptByVideo 按视频 id 获取转录
func (ms *MemoryStore) GetTranscriptByVideo(videoID string) (*models.Transcript, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	transcript, exists := ms.transcripts[videoID]
	if !exists {
		return nil, fmt.Errorf("视频 %s 的转录: %w", videoID, ErrNotFound)
	}
	return transcript, nil
}

// UpdateTranscript 更新转录
func (ms *MemoryStore) UpdateTranscript(videoID string, updateFn func(*models.Transcript)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	transcript, exists := ms.transcripts[videoID]
	if !exists {
		return fmt.Errorf("视频 %s 的转录: %w", videoID, ErrNotFound)
	}

	updateFn(transcript)
	return nil
}

// SaveQuestions 保存独立题目记录
func (ms *MemoryStore) SaveQuestions(videoID string, questions []models.Question) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.questions[videoID] = questions
	return nil
}

// GetQuestionsByVideo 按视频 id 获取独立题目记录
func (ms *MemoryStore) GetQuestionsByVideo(videoID string) ([]models.Question, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	questions, exists := ms.questions[videoID]
	if !exists {
		return []models.Question{}, nil
	}
	return questions, nil
}

// Close 关闭存储（内存存储无需关闭）
func (ms *MemoryStore) Close() error {
	return nil
}
