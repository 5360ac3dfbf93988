package transcriber

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// GroupSegments 将 Whisper 返回的细粒度片段按时间窗口合并成讲座分段
// window 为每段的目标时长（秒），片段不会被拆开，只会整体归入某一段
func GroupSegments(whisperSegments []WhisperSegment, window float64) []models.Segment {
	if len(whisperSegments) == 0 {
		return nil
	}
	if window <= 0 {
		window = 60
	}

	var segments []models.Segment
	var current *models.Segment
	var texts []string

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(texts, " "))
		segments = append(segments, *current)
		current = nil
		texts = nil
	}

	for _, ws := range whisperSegments {
		// 当前窗口已满：以窗口起点 + window 为界
		if current != nil && ws.Start >= current.StartTime+window {
			flush()
		}

		if current == nil {
			current = &models.Segment{
				ID:        uuid.New().String(),
				StartTime: ws.Start,
				EndTime:   ws.End,
			}
		}

		if ws.End > current.EndTime {
			current.EndTime = ws.End
		}
		texts = append(texts, strings.TrimSpace(ws.Text))
	}
	flush()

	return segments
}
