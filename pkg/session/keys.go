package session

import (
	"fmt"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// 题目标识。后端不保证给每道题发 id，所以从结构位置确定性地合成键：
// 同一份数据两次轮询必须得到同一个键，且两种题目格式的键空间互不冲突。
//
// 片段内嵌题目:  segment-<片段下标>-question-<片段内位置>[-<后端id>]
// 独立题目记录:  legacy-<后端id> 或 legacy-q-<位置>

// SegmentQuestionKey 片段内嵌题目的键
func SegmentQuestionKey(segmentIndex, position int, q models.Question) string {
	if q.ID != "" {
		return fmt.Sprintf("segment-%d-question-%d-%s", segmentIndex, position, q.ID)
	}
	return fmt.Sprintf("segment-%d-question-%d", segmentIndex, position)
}

// LegacyQuestionKey 独立题目记录的键
func LegacyQuestionKey(position int, q models.Question) string {
	if q.ID != "" {
		return "legacy-" + q.ID
	}
	return fmt.Sprintf("legacy-q-%d", position)
}

// OptionKey 选项的键，挂在题目键下
func OptionKey(questionKey string, position int, opt models.Option) string {
	if opt.ID != "" {
		return fmt.Sprintf("%s-option-%d-%s", questionKey, position, opt.ID)
	}
	return fmt.Sprintf("%s-option-%d", questionKey, position)
}

// segmentKeyPrefix ResetSegment 用的键前缀
func segmentKeyPrefix(segmentIndex int) string {
	return fmt.Sprintf("segment-%d-", segmentIndex)
}

const legacyKeyPrefix = "legacy-"
