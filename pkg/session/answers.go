package session

import (
	"strings"
	"sync"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// AnswerBook 用户答题状态。按题目键记录所选选项，
// 只存在于查看一个视频的生命周期内：数据刷新不清空，切换视频才清空。
type AnswerBook struct {
	mu      sync.RWMutex
	answers map[string]string // 题目键 -> 选项键
}

// NewAnswerBook 创建答题状态
func NewAnswerBook() *AnswerBook {
	return &AnswerBook{
		answers: make(map[string]string),
	}
}

// Record 记录一次作答。每道题只接受第一次作答，
// 之后对同一题目键的调用是 no-op，返回 false。
func (b *AnswerBook) Record(questionKey, optionKey string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, answered := b.answers[questionKey]; answered {
		return false
	}
	b.answers[questionKey] = optionKey
	return true
}

// Answered 该题是否已作答
func (b *AnswerBook) Answered(questionKey string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.answers[questionKey]
	return ok
}

// ChosenOption 返回该题所选的选项键
func (b *AnswerBook) ChosenOption(questionKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key, ok := b.answers[questionKey]
	return key, ok
}

// ExplanationVisible 解析是否应展示。
// 这是派生状态：首次作答即为 true，之后不再回退。
func (b *AnswerBook) ExplanationVisible(questionKey string) bool {
	return b.Answered(questionKey)
}

// ResetSegment 清空某个片段的全部作答（按片段下标）
func (b *AnswerBook) ResetSegment(segmentIndex int) {
	b.resetPrefix(segmentKeyPrefix(segmentIndex))
}

// ResetLegacy 清空所有旧版独立题目的作答
func (b *AnswerBook) ResetLegacy() {
	b.resetPrefix(legacyKeyPrefix)
}

// ResetAll 全部清空（切换到另一个视频时调用）
func (b *AnswerBook) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.answers = make(map[string]string)
}

func (b *AnswerBook) resetPrefix(prefix string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key := range b.answers {
		if strings.HasPrefix(key, prefix) {
			delete(b.answers, key)
		}
	}
}

// Len 已作答题目数
func (b *AnswerBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.answers)
}

// OptionState 作答后选项的展示状态
type OptionState int

const (
	// OptionNeutral 未作答，无标注
	OptionNeutral OptionState = iota
	// OptionChosenCorrect 选中且正确
	OptionChosenCorrect
	// OptionChosenIncorrect 选中且错误
	OptionChosenIncorrect
	// OptionCorrectNotChosen 正确但未选中
	OptionCorrectNotChosen
	// OptionUnchosen 未选中且错误
	OptionUnchosen
)

// ClassifyOption 由 (选项, 所选选项键) 纯函数地推导展示状态。
// chosenKey 为空表示尚未作答。
func ClassifyOption(opt models.Option, optionKey, chosenKey string) OptionState {
	if chosenKey == "" {
		return OptionNeutral
	}

	chosen := optionKey == chosenKey
	switch {
	case chosen && opt.IsCorrect:
		return OptionChosenCorrect
	case chosen && !opt.IsCorrect:
		return OptionChosenIncorrect
	case !chosen && opt.IsCorrect:
		return OptionCorrectNotChosen
	default:
		return OptionUnchosen
	}
}
