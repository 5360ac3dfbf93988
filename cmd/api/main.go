package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sohan-gupthak/snaplearn/pkg/config"
	"github.com/sohan-gupthak/snaplearn/pkg/models"
	"github.com/sohan-gupthak/snaplearn/pkg/questions"
	"github.com/sohan-gupthak/snaplearn/pkg/queue"
	"github.com/sohan-gupthak/snaplearn/pkg/storage"
	"github.com/sohan-gupthak/snaplearn/pkg/transcriber"
	"github.com/sohan-gupthak/snaplearn/pkg/worker"
)

// App 应用上下文（依赖注入）
type App struct {
	config *config.Config
	store  storage.Store
	queue  queue.Queue
	worker *worker.Worker
}

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}
	log.Println("✓ 配置加载成功")

	// 2. 确保上传目录存在
	if err := os.MkdirAll("uploads", 0755); err != nil {
		log.Fatalf("❌ 创建 uploads 目录失败: %v", err)
	}

	app := &App{config: cfg}

	// 3. 初始化存储（根据配置选择类型）
	app.store, err = buildStore(cfg)
	if err != nil {
		log.Fatalf("❌ 初始化存储失败: %v", err)
	}
	log.Printf("✓ 使用 %s 存储", cfg.Store.Type)

	// 4. 初始化队列
	switch cfg.Queue.Type {
	case "memory":
		app.queue = queue.NewMemoryQueue(cfg.Queue.BufferSize)
		log.Println("✓ 使用内存队列")
	case "rabbitmq":
		app.queue, err = queue.NewRabbitMQQueue(cfg.Queue.RabbitMQ.URL, cfg.Queue.RabbitMQ.QueueName, cfg.Pipeline.WorkerPoolSize)
		if err != nil {
			log.Fatalf("❌ 初始化 RabbitMQ 失败: %v", err)
		}
	default:
		log.Fatalf("❌ 不支持的队列类型: %s", cfg.Queue.Type)
	}

	// 5. 启动 Worker 池
	whisper := transcriber.NewWhisperClient(cfg.OpenAI.APIKey)
	generator := questions.NewGenerator(cfg.OpenAI.APIKey, cfg.Pipeline.QuestionsPerSegment)
	app.worker = worker.NewWorker(app.queue, app.store, whisper, generator, cfg.Pipeline)
	app.worker.Start()
	log.Printf("✓ Worker 已启动 (池大小 %d)", cfg.Pipeline.WorkerPoolSize)

	// 6. 启动 HTTP 服务器
	router := app.setupRouter()
	port := fmt.Sprintf(":%d", cfg.Server.Port)

	log.Printf("🚀 SnapLearn 服务器启动在 http://localhost:%d", cfg.Server.Port)
	log.Printf("📝 配置信息:")
	log.Printf("   - Worker 池大小: %d", cfg.Pipeline.WorkerPoolSize)
	log.Printf("   - 转录分段窗口: %.0f 秒", cfg.Pipeline.SegmentWindow)
	log.Printf("   - 每段题目数: %d", cfg.Pipeline.QuestionsPerSegment)
	log.Printf("   - 存储类型: %s", cfg.Store.Type)
	log.Printf("   - 队列类型: %s", cfg.Queue.Type)

	go func() {
		if err := router.Run(port); err != nil {
			log.Fatalf("❌ 服务器启动失败: %v", err)
		}
	}()

	// 7. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")
	app.worker.Stop()
	app.queue.Close()
	app.store.Close()
	log.Println("✓ 服务器已关闭")
}

// buildStore 根据配置构建存储
func buildStore(cfg *config.Config) (storage.Store, error) {
	ttl := time.Duration(cfg.Store.Redis.TTLHours) * time.Hour

	switch cfg.Store.Type {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		return storage.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, ttl)
	case "postgres":
		return storage.NewPostgresStore(cfg.Store.Postgres.URL)
	case "hybrid":
		hot, err := storage.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, ttl)
		if err != nil {
			return nil, err
		}
		cold, err := storage.NewPostgresStore(cfg.Store.Postgres.URL)
		if err != nil {
			hot.Close()
			return nil, err
		}
		return storage.NewHybridStore(hot, cold), nil
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Store.Type)
	}
}

// setupRouter 设置路由
func (app *App) setupRouter() *gin.Engine {
	r := gin.Default()

	// 上传的视频文件直接静态托管，供播放器使用
	r.Static("/uploads", "./uploads")

	api := r.Group("/api")
	{
		api.GET("/ping", app.handlePing)

		api.POST("/videos/upload", app.handleUpload)
		api.GET("/videos", app.handleListVideos)
		api.GET("/videos/:id", app.handleGetVideo)
		api.PATCH("/videos/:id", app.handleUpdateVideo)
		api.DELETE("/videos/:id", app.handleDeleteVideo)

		api.GET("/transcripts/video/:id", app.handleGetTranscript)
		api.GET("/transcripts/transcribe/:id", app.handleTranscribe)

		api.GET("/questions/video/:id", app.handleGetQuestions)
		api.POST("/questions/generate/:id", app.handleGenerateQuestions)
	}

	return r
}

// ok 统一成功响应
func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// fail 统一失败响应
func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
	})
}

// isValidVideoFormat 验证上传文件格式
// Whisper API 支持的格式：mp3, mp4, mpeg, mpga, m4a, wav, webm, flac, aac
func isValidVideoFormat(ext string) bool {
	validFormats := map[string]bool{
		".mp4":  true,
		".mpeg": true,
		".webm": true,
		".mp3":  true,
		".mpga": true,
		".m4a":  true,
		".wav":  true,
		".flac": true,
		".aac":  true,
	}

	return validFormats[strings.ToLower(ext)]
}

// handlePing 健康检查
func (app *App) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"version": "0.3.0",
	})
}

// handleUpload 处理视频上传：保存文件、建档、投递转录任务
func (app *App) handleUpload(c *gin.Context) {
	// 1. 获取文件
	file, err := c.FormFile("video")
	if err != nil {
		fail(c, 400, "请上传视频文件")
		return
	}

	// 2. 验证文件格式
	ext := filepath.Ext(file.Filename)
	if !isValidVideoFormat(ext) {
		fail(c, 400, fmt.Sprintf("不支持的文件格式 %s，支持: .mp4, .webm, .mp3, .wav, .m4a, .flac, .aac", ext))
		return
	}

	// 3. 验证文件大小
	if file.Size > app.config.Server.MaxUploadSize {
		fail(c, 400, fmt.Sprintf("文件太大，最大 %.0f MB", float64(app.config.Server.MaxUploadSize)/1024/1024))
		return
	}

	// 4. 生成唯一文件名并保存
	videoID := uuid.New().String()
	filename := videoID + ext
	savePath := filepath.Join("uploads", filename)

	if err := c.SaveUploadedFile(file, savePath); err != nil {
		fail(c, 500, "保存文件失败")
		return
	}

	log.Printf("✓ 文件已保存: %s (%.2f MB)", filename, float64(file.Size)/1024/1024)

	// 5. 创建视频任务
	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(file.Filename, ext)
	}

	now := time.Now()
	video := &models.Video{
		ID:         videoID,
		Title:      title,
		Filename:   filename,
		FilePath:   savePath,
		Filesize:   file.Size,
		Mimetype:   file.Header.Get("Content-Type"),
		Language:   c.PostForm("language"),
		Status:     models.StatusUploaded,
		UploadDate: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := app.store.SaveVideo(video); err != nil {
		fail(c, 500, "保存任务失败")
		return
	}

	// 6. 投递转录任务（异步处理）
	task := &queue.Task{
		VideoID:  videoID,
		Kind:     queue.TaskTranscribe,
		FilePath: savePath,
		Language: video.Language,
	}
	if err := app.queue.Enqueue(task); err != nil {
		fail(c, 500, "任务加入队列失败")
		return
	}

	log.Printf("✓ 转录任务已加入队列: %s", videoID)

	ok(c, "上传成功，正在处理中", video)
}

// handleListVideos 列出所有视频任务
func (app *App) handleListVideos(c *gin.Context) {
	videos, err := app.store.ListVideos()
	if err != nil {
		fail(c, 500, "查询失败: "+err.Error())
		return
	}
	ok(c, "", videos)
}

// handleGetVideo 获取视频任务状态
func (app *App) handleGetVideo(c *gin.Context) {
	video, err := app.store.GetVideo(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "视频不存在")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}
	ok(c, "", video)
}

// UpdateVideoRequest 可更新的视频元数据
type UpdateVideoRequest struct {
	Title    *string  `json:"title"`
	Duration *float64 `json:"duration"`
	Language *string  `json:"language"`
}

// handleUpdateVideo 更新视频元数据（播放端探测到的时长等）
func (app *App) handleUpdateVideo(c *gin.Context) {
	var req UpdateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, "请求参数错误: "+err.Error())
		return
	}

	id := c.Param("id")
	err := app.store.UpdateVideo(id, func(v *models.Video) {
		if req.Title != nil {
			v.Title = *req.Title
		}
		if req.Duration != nil {
			v.Duration = *req.Duration
		}
		if req.Language != nil {
			v.Language = *req.Language
		}
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "视频不存在")
			return
		}
		fail(c, 500, "更新失败: "+err.Error())
		return
	}

	video, err := app.store.GetVideo(id)
	if err != nil {
		fail(c, 500, "查询失败: "+err.Error())
		return
	}
	ok(c, "更新成功", video)
}

// handleDeleteVideo 删除视频任务及关联数据和文件
func (app *App) handleDeleteVideo(c *gin.Context) {
	id := c.Param("id")

	video, err := app.store.GetVideo(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "视频不存在")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}

	if err := app.store.DeleteVideo(id); err != nil {
		fail(c, 500, "删除失败: "+err.Error())
		return
	}

	// 上传文件一并清理，失败只记日志
	if video.FilePath != "" {
		if err := os.Remove(video.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️ 删除文件失败: %v", err)
		}
	}

	log.Printf("✓ 视频已删除: %s", id)
	ok(c, "删除成功", nil)
}

// handleGetTranscript 获取转录结果
// 转录尚未开始时返回 404，客户端据此判断"还没好"
func (app *App) handleGetTranscript(c *gin.Context) {
	transcript, err := app.store.GetTranscriptByVideo(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "转录不存在")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}
	ok(c, "", transcript)
}

// handleTranscribe 触发（或失败后重试）转录
func (app *App) handleTranscribe(c *gin.Context) {
	id := c.Param("id")

	video, err := app.store.GetVideo(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "视频不存在")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}

	// 只有未开始或失败的任务可以（重新）转录
	if !models.CanTransition(video.Status, models.StatusTranscribing) {
		fail(c, 400, fmt.Sprintf("当前状态 %s 不允许转录", video.Status))
		return
	}

	// 重试时清掉上次的错误信息
	if video.Status == models.StatusError {
		if err := app.store.UpdateVideo(id, func(v *models.Video) {
			v.ErrorMessage = ""
			v.Progress = nil
		}); err != nil {
			fail(c, 500, "更新失败: "+err.Error())
			return
		}
	}

	task := &queue.Task{
		VideoID:  id,
		Kind:     queue.TaskTranscribe,
		FilePath: video.FilePath,
		Language: video.Language,
	}
	if err := app.queue.Enqueue(task); err != nil {
		fail(c, 500, "任务加入队列失败")
		return
	}

	log.Printf("✓ 转录任务已加入队列: %s", id)
	ok(c, "转录任务已提交", nil)
}

// handleGetQuestions 获取视频的独立题目记录（尚无题目时返回空列表）
func (app *App) handleGetQuestions(c *gin.Context) {
	qs, err := app.store.GetQuestionsByVideo(c.Param("id"))
	if err != nil {
		fail(c, 500, "查询失败: "+err.Error())
		return
	}
	if qs == nil {
		qs = []models.Question{}
	}
	ok(c, "", qs)
}

// handleGenerateQuestions 触发题目生成（转录必须已存在）
func (app *App) handleGenerateQuestions(c *gin.Context) {
	id := c.Param("id")

	if _, err := app.store.GetVideo(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 404, "视频不存在")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}

	if _, err := app.store.GetTranscriptByVideo(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, 400, "转录尚未完成，无法生成题目")
			return
		}
		fail(c, 500, "查询失败: "+err.Error())
		return
	}

	task := &queue.Task{
		VideoID: id,
		Kind:    queue.TaskGenerateQuestions,
	}
	if err := app.queue.Enqueue(task); err != nil {
		fail(c, 500, "任务加入队列失败")
		return
	}

	log.Printf("✓ 出题任务已加入队列: %s", id)
	ok(c, "出题任务已提交", []models.Question{})
}
