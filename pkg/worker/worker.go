package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sohan-gupthak/snaplearn/pkg/config"
	"github.com/sohan-gupthak/snaplearn/pkg/models"
	"github.com/sohan-gupthak/snaplearn/pkg/queue"
	"github.com/sohan-gupthak/snaplearn/pkg/storage"
	"github.com/sohan-gupthak/snaplearn/pkg/transcriber"
)

// Transcriber 转录客户端接口
type Transcriber interface {
	TranscribeWithRetry(ctx context.Context, mediaPath string, language string, maxRetries int) (*transcriber.WhisperResponse, error)
}

// QuestionGenerator 题目生成接口
type QuestionGenerator interface {
	GenerateForSegment(ctx context.Context, segmentText string) ([]models.SegmentQuestion, error)
}

// 进度划分：转录阶段 0-60，出题阶段 60-100（按完成片段数推进）
const (
	progressTranscribeStart = 5
	progressTranscribeDone  = 50
	progressQuestionsStart  = 60
)

// Worker 管线任务处理器
type Worker struct {
	queue     queue.Queue
	store     storage.Store
	whisper   Transcriber
	generator QuestionGenerator
	pipeline  config.PipelineConfig
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWorker 创建 Worker
func NewWorker(
	q queue.Queue,
	store storage.Store,
	whisper Transcriber,
	generator QuestionGenerator,
	pipeline config.PipelineConfig,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		queue:     q,
		store:     store,
		whisper:   whisper,
		generator: generator,
		pipeline:  pipeline,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动 Worker 池（每个实例一个 Goroutine）
func (w *Worker) Start() {
	for i := 0; i < w.pipeline.WorkerPoolSize; i++ {
		go w.run(i)
	}
}

// Stop 停止所有 Worker。阻塞在 Dequeue 上的实例
// 在队列关闭或取到下一个任务时退出。
func (w *Worker) Stop() {
	log.Println("正在停止 Worker...")
	w.cancel()
}

// run Worker 主循环
func (w *Worker) run(id int) {
	log.Printf("Worker #%d 已启动，等待任务...", id)

	for {
		select {
		case <-w.ctx.Done():
			log.Printf("Worker #%d 已停止", id)
			return
		default:
		}

		// 从队列获取任务（阻塞）
		task, err := w.queue.Dequeue()
		if err != nil {
			select {
			case <-w.ctx.Done():
				log.Printf("Worker #%d 已停止", id)
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		w.processTask(task)
	}
}

// processTask 处理单个任务，成功 Ack 失败 Nack
func (w *Worker) processTask(task *queue.Task) {
	log.Printf("📝 开始处理任务: %s (视频 %s)", task.Kind, task.VideoID)

	// 每个任务 30 分钟超时
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Minute)
	defer cancel()

	var err error
	switch task.Kind {
	case queue.TaskTranscribe:
		err = w.processTranscribe(ctx, task)
	case queue.TaskGenerateQuestions:
		err = w.processGenerate(ctx, task)
	default:
		err = fmt.Errorf("未知任务类型: %s", task.Kind)
	}

	if err != nil {
		log.Printf("❌ 任务失败 (视频 %s): %v", task.VideoID, err)
		w.markError(task.VideoID, err)
		// 任务已标记失败，不重新入队
		w.queue.Nack(task, false)
		return
	}

	w.queue.Ack(task)
}

// processTranscribe 转录阶段：Whisper 转录 → 按窗口分段 → 保存转录 → 投递出题任务
func (w *Worker) processTranscribe(ctx context.Context, task *queue.Task) error {
	if err := w.transition(task.VideoID, models.StatusTranscribing, progressTranscribeStart); err != nil {
		return err
	}

	startTime := time.Now()
	resp, err := w.whisper.TranscribeWithRetry(ctx, task.FilePath, task.Language, w.pipeline.MaxRetries)
	if err != nil {
		return fmt.Errorf("转录失败: %w", err)
	}

	log.Printf("✓ 转录完成 (视频 %s): %d 个片段, 耗时 %.1f 秒",
		task.VideoID, len(resp.Segments), time.Since(startTime).Seconds())

	segments := transcriber.GroupSegments(resp.Segments, w.pipeline.SegmentWindow)

	now := time.Now()
	transcript := &models.Transcript{
		ID:             uuid.New().String(),
		VideoID:        task.VideoID,
		FullTranscript: resp.Text,
		Segments:       segments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := w.store.SaveTranscript(transcript); err != nil {
		return fmt.Errorf("保存转录失败: %w", err)
	}

	w.setProgress(task.VideoID, progressTranscribeDone)

	// 转录完成后直接投递出题任务，让队列调度下一阶段
	next := &queue.Task{VideoID: task.VideoID, Kind: queue.TaskGenerateQuestions}
	if err := w.queue.Enqueue(next); err != nil {
		return fmt.Errorf("投递出题任务失败: %w", err)
	}

	return nil
}

// processGenerate 出题阶段：按片段并发出题，逐片段写回，进度 60-100
func (w *Worker) processGenerate(ctx context.Context, task *queue.Task) error {
	transcript, err := w.store.GetTranscriptByVideo(task.VideoID)
	if err != nil {
		return fmt.Errorf("读取转录失败: %w", err)
	}

	if err := w.transition(task.VideoID, models.StatusGeneratingQuestions, progressQuestionsStart); err != nil {
		return err
	}

	total := len(transcript.Segments)
	if total == 0 {
		return w.finish(task.VideoID, transcript)
	}

	// 信号量限制并发出题的片段数
	sem := make(chan struct{}, w.pipeline.QuestionConcurrency)
	var wg sync.WaitGroup
	var done atomic.Int64
	var failed atomic.Int64

	for i := range transcript.Segments {
		// 重复投递时跳过已出题的片段
		if transcript.Segments[i].HasQuestions() {
			done.Add(1)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			seg := transcript.Segments[idx]
			generated, err := w.generator.GenerateForSegment(ctx, seg.Text)
			if err != nil {
				log.Printf("⚠️ 片段 %d 出题失败 (视频 %s): %v", idx, task.VideoID, err)
				failed.Add(1)
				done.Add(1)
				return
			}

			// 逐片段写回：轮询端在生成完成前就能看到已出好的题
			if err := w.store.UpdateTranscript(task.VideoID, func(t *models.Transcript) {
				if idx < len(t.Segments) {
					t.Segments[idx].Questions = generated
				}
			}); err != nil {
				log.Printf("⚠️ 片段 %d 写回失败 (视频 %s): %v", idx, task.VideoID, err)
				failed.Add(1)
				done.Add(1)
				return
			}

			n := done.Add(1)
			pct := float64(progressQuestionsStart) + float64(100-progressQuestionsStart)*float64(n)/float64(total)
			w.setProgress(task.VideoID, pct)
			log.Printf("✓ 片段 %d/%d 出题完成 (视频 %s)", n, total, task.VideoID)
		}(i)
	}
	wg.Wait()

	if failed.Load() == int64(total) {
		return fmt.Errorf("全部 %d 个片段出题失败", total)
	}

	// 重新读取，拿到各 Goroutine 写回后的最终版本
	transcript, err = w.store.GetTranscriptByVideo(task.VideoID)
	if err != nil {
		return fmt.Errorf("读取转录失败: %w", err)
	}

	return w.finish(task.VideoID, transcript)
}

// finish 保存独立题目记录并标记完成
func (w *Worker) finish(videoID string, transcript *models.Transcript) error {
	var records []models.Question
	now := time.Now()
	for _, seg := range transcript.Segments {
		for _, sq := range seg.Questions {
			q := sq.Canonical(seg)
			q.VideoID = videoID
			q.CreatedAt = now
			q.UpdatedAt = now
			records = append(records, q)
		}
	}
	if err := w.store.SaveQuestions(videoID, records); err != nil {
		return fmt.Errorf("保存题目记录失败: %w", err)
	}

	if err := w.transition(videoID, models.StatusCompleted, 100); err != nil {
		return err
	}

	log.Printf("🎉 视频 %s 处理完成，共 %d 道题", videoID, len(records))
	return nil
}

// transition 推进视频状态并设置进度，拒绝非法转移
func (w *Worker) transition(videoID string, to models.VideoStatus, progress float64) error {
	var illegal error
	err := w.store.UpdateVideo(videoID, func(v *models.Video) {
		if v.Status == to {
			v.SetProgress(progress)
			return
		}
		if !models.CanTransition(v.Status, to) {
			illegal = fmt.Errorf("非法状态转移: %s -> %s", v.Status, to)
			return
		}
		v.Status = to
		v.SetProgress(progress)
	})
	if err != nil {
		return fmt.Errorf("更新视频状态失败: %w", err)
	}
	return illegal
}

// setProgress 只更新进度
func (w *Worker) setProgress(videoID string, pct float64) {
	if err := w.store.UpdateVideo(videoID, func(v *models.Video) {
		v.SetProgress(pct)
	}); err != nil {
		log.Printf("⚠️ 更新进度失败 (视频 %s): %v", videoID, err)
	}
}

// markError 标记视频处理失败
func (w *Worker) markError(videoID string, cause error) {
	if err := w.store.UpdateVideo(videoID, func(v *models.Video) {
		if models.CanTransition(v.Status, models.StatusError) {
			v.Status = models.StatusError
		}
		v.ErrorMessage = cause.Error()
	}); err != nil {
		log.Printf("⚠️ 标记失败状态出错 (视频 %s): %v", videoID, err)
	}
}
