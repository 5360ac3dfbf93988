package session

import (
	"strings"
	"testing"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

func TestSegmentQuestionKeyStable(t *testing.T) {
	q := models.Question{ID: "abc", QuestionText: "q"}

	// 同样的输入两次轮询必须得到同一个键
	k1 := SegmentQuestionKey(2, 1, q)
	k2 := SegmentQuestionKey(2, 1, q)
	if k1 != k2 {
		t.Errorf("键不稳定: %q != %q", k1, k2)
	}
	if k1 != "segment-2-question-1-abc" {
		t.Errorf("键 = %q", k1)
	}

	// 后端没发 id 也要有确定性的键
	noID := SegmentQuestionKey(2, 1, models.Question{})
	if noID != "segment-2-question-1" {
		t.Errorf("无 id 键 = %q", noID)
	}
}

func TestKeysDistinct(t *testing.T) {
	q := models.Question{}

	keys := []string{
		SegmentQuestionKey(0, 0, q),
		SegmentQuestionKey(0, 1, q),
		SegmentQuestionKey(1, 0, q),
		LegacyQuestionKey(0, q),
		LegacyQuestionKey(1, q),
	}

	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("键冲突: %q", k)
		}
		seen[k] = true
	}
}

func TestLegacyKeyNamespace(t *testing.T) {
	// 两种格式的键空间互不冲突：legacy 键全部走 legacy- 前缀
	withID := LegacyQuestionKey(0, models.Question{ID: "xyz"})
	if withID != "legacy-xyz" {
		t.Errorf("键 = %q", withID)
	}
	noID := LegacyQuestionKey(3, models.Question{})
	if noID != "legacy-q-3" {
		t.Errorf("键 = %q", noID)
	}
	for _, k := range []string{withID, noID} {
		if !strings.HasPrefix(k, legacyKeyPrefix) {
			t.Errorf("legacy 键 %q 缺少前缀", k)
		}
	}
}

func TestOptionKey(t *testing.T) {
	qKey := SegmentQuestionKey(0, 0, models.Question{})

	withID := OptionKey(qKey, 2, models.Option{ID: "o2"})
	if withID != qKey+"-option-2-o2" {
		t.Errorf("键 = %q", withID)
	}
	noID := OptionKey(qKey, 2, models.Option{})
	if noID != qKey+"-option-2" {
		t.Errorf("键 = %q", noID)
	}
}
