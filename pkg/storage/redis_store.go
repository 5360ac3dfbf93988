package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// RedisStore Redis 存储，带 TTL 的热数据层
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	ctx    context.Context
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		ctx:    ctx,
	}, nil
}

// key 格式: "snaplearn:video:{id}" / "snaplearn:transcript:{videoID}" / "snaplearn:questions:{videoID}"
func videoKey(id string) string          { return "snaplearn:video:" + id }
func transcriptKey(videoID string) string { return "snaplearn:transcript:" + videoID }
func questionsKey(videoID string) string  { return "snaplearn:questions:" + videoID }

const videoIndexKey = "snaplearn:videos:index"

// setJSON 序列化后写入，带过期时间
func (rs *RedisStore) setJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}
	if err := rs.client.Set(rs.ctx, key, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("保存到 Redis 失败: %w", err)
	}
	return nil
}

// getJSON 读取并反序列化
func (rs *RedisStore) getJSON(key string, out any) error {
	data, err := rs.client.Get(rs.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("从 Redis 获取失败: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}
	return nil
}

// SaveVideo 保存视频任务并加入索引
func (rs *RedisStore) SaveVideo(video *models.Video) error {
	if err := rs.setJSON(videoKey(video.ID), video); err != nil {
		return err
	}

	// Sorted Set 索引，score 为创建时间戳
	if err := rs.client.ZAdd(rs.ctx, videoIndexKey, redis.Z{
		Score:  float64(video.CreatedAt.Unix()),
		Member: video.ID,
	}).Err(); err != nil {
		return fmt.Errorf("添加到索引失败: %w", err)
	}
	return nil
}

// GetVideo 获取视频任务
func (rs *RedisStore) GetVideo(id string) (*models.Video, error) {
	var video models.Video
	if err := rs.getJSON(videoKey(id), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// UpdateVideo 更新视频任务
func (rs *RedisStore) UpdateVideo(id string, updateFn func(*models.Video)) error {
	video, err := rs.GetVideo(id)
	if err != nil {
		return err
	}

	updateFn(video)
	return rs.SaveVideo(video)
}

// ListVideos 列出所有视频任务（按创建时间倒序）
func (rs *RedisStore) ListVideos() ([]*models.Video, error) {
	ids, err := rs.client.ZRevRange(rs.ctx, videoIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("获取索引失败: %w", err)
	}

	videos := make([]*models.Video, 0, len(ids))
	for _, id := range ids {
		video, err := rs.GetVideo(id)
		if err != nil {
			// 数据可能已过期，从索引中清理
			rs.client.ZRem(rs.ctx, videoIndexKey, id)
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}

// DeleteVideo 删除视频任务及关联数据
func (rs *RedisStore) DeleteVideo(id string) error {
	deleted, err := rs.client.Del(rs.ctx, videoKey(id)).Result()
	if err != nil {
		return fmt.Errorf("删除失败: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}

	rs.client.Del(rs.ctx, transcriptKey(id), questionsKey(id))
	rs.client.ZRem(rs.ctx, videoIndexKey, id)
	return nil
}

// SaveTranscript 保存转录
func (rs *RedisStore) SaveTranscript(transcript *models.Transcript) error {
	return rs.setJSON(transcriptKey(transcript.VideoID), transcript)
}

// GetTranscriptByVideo 按视频 id 获取转录
func (rs *RedisStore) GetTranscriptByVideo(videoID string) (*models.Transcript, error) {
	var transcript models.Transcript
	if err := rs.getJSON(transcriptKey(videoID), &transcript); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// UpdateTranscript 更新转录
func (rs *RedisStore) UpdateTranscript(videoID string, updateFn func(*models.Transcript)) error {
	transcript, err := rs.GetTranscriptByVideo(videoID)
	if err != nil {
		return err
	}

	updateFn(transcript)
	return rs.SaveTranscript(transcript)
}

// SaveQuestions 保存独立题目记录
func (rs *RedisStore) SaveQuestions(videoID string, questions []models.Question) error {
	return rs.setJSON(questionsKey(videoID), questions)
}

// GetQuestionsByVideo 按视频 id 获取独立题目记录
func (rs *RedisStore) GetQuestionsByVideo(videoID string) ([]models.Question, error) {
	var questions []models.Question
	if err := rs.getJSON(questionsKey(videoID), &questions); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Question{}, nil
		}
		return nil, err
	}
	return questions, nil
}

// Close 关闭 Redis 连接
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
