package models

import "time"

// Option 题目选项
type Option struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// SegmentQuestion 内嵌在转录片段里的题目（线上格式之一）
type SegmentQuestion struct {
	ID          string   `json:"id,omitempty"`
	Question    string   `json:"question"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

// Question 规范化后的题目记录。
// 两种线上格式（片段内嵌 / 旧版独立记录）在摄入时统一为这一种，
// 之后的代码不再按格式分支。
type Question struct {
	ID                  string    `json:"id,omitempty"`
	VideoID             string    `json:"videoId,omitempty"`
	TranscriptSegmentID string    `json:"transcriptSegmentId,omitempty"`
	SegmentStartTime    float64   `json:"segmentStartTime,omitempty"`
	SegmentEndTime      float64   `json:"segmentEndTime,omitempty"`
	QuestionText        string    `json:"questionText"`
	Options             []Option  `json:"options"`
	Explanation         string    `json:"explanation,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// Canonical 将片段内嵌题目规范化为统一记录
func (sq SegmentQuestion) Canonical(seg Segment) Question {
	return Question{
		ID:                  sq.ID,
		TranscriptSegmentID: seg.ID,
		SegmentStartTime:    seg.StartTime,
		SegmentEndTime:      seg.EndTime,
		QuestionText:        sq.Question,
		Options:             sq.Options,
		Explanation:         sq.Explanation,
	}
}

// CorrectIndex 返回正确选项的下标，没有则返回 -1。
// 不变式：每道题恰好一个 IsCorrect == true。
func CorrectIndex(options []Option) int {
	for i, opt := range options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// ValidQuestion 校验题目不变式（恰好一个正确选项）
func ValidQuestion(text string, options []Option) bool {
	if text == "" || len(options) < 2 {
		return false
	}
	correct := 0
	for _, opt := range options {
		if opt.IsCorrect {
			correct++
		}
	}
	return correct == 1
}
