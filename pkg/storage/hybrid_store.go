package storage

import (
	"log"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// HybridStore 混合存储：Redis（热数据） + PostgreSQL（冷数据）。
// 写入先进 Redis，视频到达终态时异步批量同步到数据库；
// 读取优先 Redis，未命中回源数据库并回写缓存。
type HybridStore struct {
	redis     Store
	db        Store
	syncQueue chan *models.Video
	stopCh    chan struct{}
}

// NewHybridStore 创建混合存储
func NewHybridStore(redis, db Store) *HybridStore {
	store := &HybridStore{
		redis:     redis,
		db:        db,
		syncQueue: make(chan *models.Video, 100),
		stopCh:    make(chan struct{}),
	}

	go store.syncWorker()

	log.Println("✓ 混合存储初始化成功（Redis + PostgreSQL）")
	return store
}

// SaveVideo 保存：立即写 Redis，终态任务异步写数据库
func (s *HybridStore) SaveVideo(video *models.Video) error {
	if err := s.redis.SaveVideo(video); err != nil {
		log.Printf("⚠️ Redis 写入失败: %v", err)
		// Redis 失败不影响业务，直接落库
		return s.db.SaveVideo(video)
	}

	if video.IsTerminal() {
		s.asyncSyncToDB(video)
	}
	return nil
}

// GetVideo 读取：优先 Redis，未命中查数据库并回写
func (s *HybridStore) GetVideo(id string) (*models.Video, error) {
	video, err := s.redis.GetVideo(id)
	if err == nil {
		return video, nil
	}

	video, err = s.db.GetVideo(id)
	if err != nil {
		return nil, err
	}

	// 回写 Redis 预热缓存
	go func() {
		if err := s.redis.SaveVideo(video); err != nil {
			log.Printf("⚠️ 回写 Redis 失败: %v", err)
		}
	}()
	return video, nil
}

// UpdateVideo 更新：优先 Redis，终态时同步数据库
func (s *HybridStore) UpdateVideo(id string, updateFn func(*models.Video)) error {
	if err := s.redis.UpdateVideo(id, updateFn); err != nil {
		return s.db.UpdateVideo(id, updateFn)
	}

	video, _ := s.redis.GetVideo(id)
	if video != nil && video.IsTerminal() {
		s.asyncSyncToDB(video)
	}
	return nil
}

// ListVideos 列表：优先 Redis，失败降级数据库
func (s *HybridStore) ListVideos() ([]*models.Video, error) {
	videos, err := s.redis.ListVideos()
	if err != nil || len(videos) == 0 {
		return s.db.ListVideos()
	}
	return videos, nil
}

// DeleteVideo 删除：两边都删
func (s *HybridStore) DeleteVideo(id string) error {
	if err := s.redis.DeleteVideo(id); err != nil {
		log.Printf("⚠️ Redis 删除失败: %v", err)
	}
	return s.db.DeleteVideo(id)
}

// SaveTranscript 转录直接双写（体量小、写入频率低）
func (s *HybridStore) SaveTranscript(transcript *models.Transcript) error {
	if err := s.redis.SaveTranscript(transcript); err != nil {
		log.Printf("⚠️ Redis 写入转录失败: %v", err)
	}
	return s.db.SaveTranscript(transcript)
}

// GetTranscriptByVideo 优先 Redis
func (s *HybridStore) GetTranscriptByVideo(videoID string) (*models.Transcript, error) {
	transcript, err := s.redis.GetTranscriptByVideo(videoID)
	if err == nil {
		return transcript, nil
	}
	return s.db.GetTranscriptByVideo(videoID)
}

// UpdateTranscript 在数据库上更新后刷新缓存
func (s *HybridStore) UpdateTranscript(videoID string, updateFn func(*models.Transcript)) error {
	if err := s.db.UpdateTranscript(videoID, updateFn); err != nil {
		return err
	}

	transcript, err := s.db.GetTranscriptByVideo(videoID)
	if err == nil {
		if err := s.redis.SaveTranscript(transcript); err != nil {
			log.Printf("⚠️ 刷新转录缓存失败: %v", err)
		}
	}
	return nil
}

// SaveQuestions 题目双写
func (s *HybridStore) SaveQuestions(videoID string, questions []models.Question) error {
	if err := s.redis.SaveQuestions(videoID, questions); err != nil {
		log.Printf("⚠️ Redis 写入题目失败: %v", err)
	}
	return s.db.SaveQuestions(videoID, questions)
}

// GetQuestionsByVideo 优先 Redis
func (s *HybridStore) GetQuestionsByVideo(videoID string) ([]models.Question, error) {
	questions, err := s.redis.GetQuestionsByVideo(videoID)
	if err == nil && len(questions) > 0 {
		return questions, nil
	}
	return s.db.GetQuestionsByVideo(videoID)
}

// Close 关闭存储
func (s *HybridStore) Close() error {
	close(s.stopCh)

	// 等待同步队列清空（最多 5 秒）
	timeout := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for len(s.syncQueue) > 0 {
		select {
		case <-timeout:
			log.Printf("⚠️ 同步队列清空超时，剩余 %d 个任务", len(s.syncQueue))
			goto cleanup
		case <-ticker.C:
		}
	}

cleanup:
	s.redis.Close()
	s.db.Close()
	return nil
}

// asyncSyncToDB 异步同步到数据库
func (s *HybridStore) asyncSyncToDB(video *models.Video) {
	select {
	case s.syncQueue <- video:
	default:
		// 队列满，降级为同步写入
		log.Printf("⚠️ 同步队列已满，同步写入数据库")
		if err := s.db.SaveVideo(video); err != nil {
			log.Printf("❌ 同步写入数据库失败: %v", err)
		}
	}
}

// syncWorker 后台同步 Worker（批量：50 条或 5 秒）
func (s *HybridStore) syncWorker() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	batch := make([]*models.Video, 0, 50)

	for {
		select {
		case video := <-s.syncQueue:
			batch = append(batch, video)
			if len(batch) >= 50 {
				s.batchSave(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.batchSave(batch)
				batch = batch[:0]
			}

		case <-s.stopCh:
			s.batchSave(batch)
			return
		}
	}
}

// batchSave 批量保存到数据库
func (s *HybridStore) batchSave(videos []*models.Video) {
	if len(videos) == 0 {
		return
	}

	successCount := 0
	for _, video := range videos {
		if err := s.db.SaveVideo(video); err != nil {
			log.Printf("❌ 同步视频 %s 失败: %v", video.ID, err)
		} else {
			successCount++
		}
	}
	log.Printf("✓ 已同步 %d/%d 个视频到数据库", successCount, len(videos))
}
