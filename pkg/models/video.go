package models

import "time"

type VideoStatus string

const (
	StatusUploaded            VideoStatus = "uploaded"
	StatusTranscribing        VideoStatus = "transcribing"
	StatusGeneratingQuestions VideoStatus = "generating_questions"
	StatusCompleted           VideoStatus = "completed"
	StatusError               VideoStatus = "error"
)

// Video 一个上传视频的完整处理生命周期
type Video struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Filename string      `json:"filename"`
	FilePath string      `json:"filepath"`
	Duration float64     `json:"duration"`
	Filesize int64       `json:"filesize"`
	Mimetype string      `json:"mimetype"`
	Language string      `json:"language,omitempty"`
	Status   VideoStatus `json:"status"`
	// Progress 百分比 [0,100]。旧版后端用 [0,1] 的小数比例上报，
	// DisplayProgress 两种都能解析。nil 表示后端尚未上报。
	Progress     *float64  `json:"processingProgress,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	UploadDate   time.Time `json:"uploadDate"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsProcessing 是否还在处理中（需要继续轮询）
func (v *Video) IsProcessing() bool {
	return v.Status == StatusTranscribing || v.Status == StatusGeneratingQuestions
}

// IsTerminal 是否已到达终态
func (v *Video) IsTerminal() bool {
	return v.Status == StatusCompleted || v.Status == StatusError
}

// transitions 状态机：严格向前推进，error 只能通过重试回到 transcribing
var transitions = map[VideoStatus][]VideoStatus{
	StatusUploaded:            {StatusTranscribing, StatusError},
	StatusTranscribing:        {StatusGeneratingQuestions, StatusError},
	StatusGeneratingQuestions: {StatusCompleted, StatusError},
	StatusError:               {StatusTranscribing},
	StatusCompleted:           {},
}

// CanTransition 判断状态转移是否合法
func CanTransition(from, to VideoStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetProgress 设置进度（百分比）
func (v *Video) SetProgress(pct float64) {
	v.Progress = &pct
}

// NormalizeProgress 归一化进度值为 [0,100] 的百分比。
// 旧版后端在 (0,1) 区间内上报小数比例，这里按数值大小区分两种表示。
func NormalizeProgress(raw float64) int {
	if raw > 0 && raw < 1 {
		raw = raw * 100
	}
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return int(raw + 0.5)
}

// DisplayProgress 计算用于展示的进度百分比。
// 后端未上报进度时按状态给出默认值。
func (v *Video) DisplayProgress() int {
	if v.Progress != nil {
		return NormalizeProgress(*v.Progress)
	}

	switch v.Status {
	case StatusUploaded:
		return 10
	case StatusTranscribing:
		return 40
	case StatusGeneratingQuestions:
		return 70
	case StatusCompleted, StatusError:
		return 100
	default:
		return 0
	}
}
