package models

import "time"

// Transcript 一个视频的转录结果（转录开始后才存在）
type Transcript struct {
	ID             string    `json:"id"`
	VideoID        string    `json:"videoId"`
	FullTranscript string    `json:"fullTranscript"`
	Segments       []Segment `json:"segments"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Segment 转录文本的一个时间片段
// 约定：按 StartTime 升序排列且互不重叠（客户端对违反要防御处理）
type Segment struct {
	ID        string  `json:"id,omitempty"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
	// Questions 该片段的题目。生成进行中时可能缺失或为空，
	// 一旦出现即视为不可变。
	Questions []SegmentQuestion `json:"questions,omitempty"`
}

// Contains 判断播放时间点是否落在该片段内（左闭右开）
func (s *Segment) Contains(t float64) bool {
	return t >= s.StartTime && t < s.EndTime
}

// HasQuestions 该片段是否已有生成好的题目
func (s *Segment) HasQuestions() bool {
	return len(s.Questions) > 0
}

// SortedByStart 片段是否已按 StartTime 升序排列
func SortedByStart(segments []Segment) bool {
	for i := 1; i < len(segments); i++ {
		if segments[i].StartTime < segments[i-1].StartTime {
			return false
		}
	}
	return true
}
