package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// PostgresStore PostgreSQL 持久化存储
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// migrate 建表（幂等）
func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		filename      TEXT NOT NULL,
		file_path     TEXT,
		duration      DOUBLE PRECISION,
		filesize      BIGINT,
		mimetype      TEXT,
		language      TEXT,
		status        TEXT NOT NULL,
		progress      DOUBLE PRECISION,
		error_message TEXT,
		upload_date   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS transcripts (
		video_id        TEXT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
		id              TEXT NOT NULL,
		full_transcript TEXT,
		segments        JSONB NOT NULL DEFAULT '[]',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS video_questions (
		video_id  TEXT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
		questions JSONB NOT NULL DEFAULT '[]'
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("初始化表结构失败: %w", err)
	}
	return nil
}

// SaveVideo 保存视频任务（UPSERT）
func (s *PostgresStore) SaveVideo(video *models.Video) error {
	query := `
	INSERT INTO videos (
		id, title, filename, file_path, duration, filesize, mimetype,
		language, status, progress, error_message, upload_date, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id)
	DO UPDATE SET
		title = EXCLUDED.title,
		file_path = EXCLUDED.file_path,
		duration = EXCLUDED.duration,
		status = EXCLUDED.status,
		progress = EXCLUDED.progress,
		error_message = EXCLUDED.error_message,
		updated_at = EXCLUDED.updated_at
	`

	var progress sql.NullFloat64
	if video.Progress != nil {
		progress = sql.NullFloat64{Float64: *video.Progress, Valid: true}
	}

	_, err := s.db.Exec(query,
		video.ID,
		video.Title,
		video.Filename,
		video.FilePath,
		video.Duration,
		video.Filesize,
		video.Mimetype,
		video.Language,
		video.Status,
		progress,
		video.ErrorMessage,
		video.UploadDate,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存视频失败: %w", err)
	}
	return nil
}

const videoColumns = `
	id, title, filename, file_path, duration, filesize, mimetype,
	language, status, progress, error_message, upload_date, created_at, updated_at
`

// scanVideo 从一行扫描视频记录（处理 NULL 值）
func scanVideo(row interface{ Scan(...any) error }) (*models.Video, error) {
	var video models.Video
	var filePath, language, errorMessage, mimetype sql.NullString
	var duration, progress sql.NullFloat64
	var filesize sql.NullInt64
	var uploadDate sql.NullTime

	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Filename,
		&filePath,
		&duration,
		&filesize,
		&mimetype,
		&language,
		&video.Status,
		&progress,
		&errorMessage,
		&uploadDate,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if filePath.Valid {
		video.FilePath = filePath.String
	}
	if duration.Valid {
		video.Duration = duration.Float64
	}
	if filesize.Valid {
		video.Filesize = filesize.Int64
	}
	if mimetype.Valid {
		video.Mimetype = mimetype.String
	}
	if language.Valid {
		video.Language = language.String
	}
	if progress.Valid {
		video.SetProgress(progress.Float64)
	}
	if errorMessage.Valid {
		video.ErrorMessage = errorMessage.String
	}
	if uploadDate.Valid {
		video.UploadDate = uploadDate.Time
	}
	return &video, nil
}

// GetVideo 获取视频任务
func (s *PostgresStore) GetVideo(id string) (*models.Video, error) {
	row := s.db.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)

	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询视频失败: %w", err)
	}
	return video, nil
}

// UpdateVideo 更新视频任务
func (s *PostgresStore) UpdateVideo(id string, updateFn func(*models.Video)) error {
	video, err := s.GetVideo(id)
	if err != nil {
		return err
	}

	updateFn(video)
	return s.SaveVideo(video)
}

// ListVideos 列出所有视频任务（按创建时间倒序）
func (s *PostgresStore) ListVideos() ([]*models.Video, error) {
	rows, err := s.db.Query(`SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		return nil, fmt.Errorf("查询视频列表失败: %w", err)
	}
	defer rows.Close()

	videos := make([]*models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			continue
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// DeleteVideo 删除视频任务（级联删除转录和题目）
func (s *PostgresStore) DeleteVideo(id string) error {
	result, err := s.db.Exec(`DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("删除视频失败: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取删除结果失败: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("视频 %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveTranscript 保存转录（片段序列化为 JSONB）
func (s *PostgresStore) SaveTranscript(transcript *models.Transcript) error {
	segmentsJSON, err := json.Marshal(transcript.Segments)
	if err != nil {
		return fmt.Errorf("序列化片段失败: %w", err)
	}

	query := `
	INSERT INTO transcripts (video_id, id, full_transcript, segments, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (video_id)
	DO UPDATE SET
		full_transcript = EXCLUDED.full_transcript,
		segments = EXCLUDED.segments,
		updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.Exec(query,
		transcript.VideoID,
		transcript.ID,
		transcript.FullTranscript,
		segmentsJSON,
		transcript.CreatedAt,
		transcript.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存转录失败: %w", err)
	}
	return nil
}

// GetTranscriptByVideo 按视频 id 获取转录
func (s *PostgresStore) GetTranscriptByVideo(videoID string) (*models.Transcript, error) {
	query := `
	SELECT video_id, id, full_transcript, segments, created_at, updated_at
	FROM transcripts WHERE video_id = $1
	`

	var transcript models.Transcript
	var fullTranscript sql.NullString
	var segmentsJSON []byte

	err := s.db.QueryRow(query, videoID).Scan(
		&transcript.VideoID,
		&transcript.ID,
		&fullTranscript,
		&segmentsJSON,
		&transcript.CreatedAt,
		&transcript.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("视频 %s 的转录: %w", videoID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询转录失败: %w", err)
	}

	if fullTranscript.Valid {
		transcript.FullTranscript = fullTranscript.String
	}
	if len(segmentsJSON) > 0 {
		if err := json.Unmarshal(segmentsJSON, &transcript.Segments); err != nil {
			return nil, fmt.Errorf("反序列化片段失败: %w", err)
		}
	}
	return &transcript, nil
}

// UpdateTranscript 更新转录
func (s *PostgresStore) UpdateTranscript(videoID string, updateFn func(*models.Transcript)) error {
	transcript, err := s.GetTranscriptByVideo(videoID)
	if err != nil {
		return err
	}

	updateFn(transcript)
	return s.SaveTranscript(transcript)
}

// SaveQuestions 保存独立题目记录
func (s *PostgresStore) SaveQuestions(videoID string, questions []models.Question) error {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("序列化题目失败: %w", err)
	}

	query := `
	INSERT INTO video_questions (video_id, questions)
	VALUES ($1, $2)
	ON CONFLICT (video_id)
	DO UPDATE SET questions = EXCLUDED.questions
	`
	if _, err := s.db.Exec(query, videoID, questionsJSON); err != nil {
		return fmt.Errorf("保存题目失败: %w", err)
	}
	return nil
}

// GetQuestionsByVideo 按视频 id 获取独立题目记录
func (s *PostgresStore) GetQuestionsByVideo(videoID string) ([]models.Question, error) {
	var questionsJSON []byte
	err := s.db.QueryRow(`SELECT questions FROM video_questions WHERE video_id = $1`, videoID).Scan(&questionsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Question{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询题目失败: %w", err)
	}

	questions := make([]models.Question, 0)
	if len(questionsJSON) > 0 {
		if err := json.Unmarshal(questionsJSON, &questions); err != nil {
			return nil, fmt.Errorf("反序列化题目失败: %w", err)
		}
	}
	return questions, nil
}

// Close 关闭数据库连接
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
