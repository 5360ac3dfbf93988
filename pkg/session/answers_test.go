package session

import (
	"testing"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

func TestAnswerBookFirstAnswerWins(t *testing.T) {
	b := NewAnswerBook()
	qKey := "segment-0-question-0"

	if !b.Record(qKey, qKey+"-option-1") {
		t.Fatal("首答应被接受")
	}
	// 之后的作答是 no-op
	if b.Record(qKey, qKey+"-option-2") {
		t.Error("二次作答应被拒绝")
	}

	chosen, ok := b.ChosenOption(qKey)
	if !ok || chosen != qKey+"-option-1" {
		t.Errorf("ChosenOption = %q, 首答应定格", chosen)
	}
}

func TestAnswerBookExplanationDerived(t *testing.T) {
	b := NewAnswerBook()
	qKey := "segment-0-question-0"

	if b.ExplanationVisible(qKey) {
		t.Error("未作答时解析应隐藏")
	}
	b.Record(qKey, qKey+"-option-0")
	if !b.ExplanationVisible(qKey) {
		t.Error("作答后解析应展示")
	}
}

func TestAnswerBookResetScopes(t *testing.T) {
	b := NewAnswerBook()
	b.Record("segment-0-question-0", "x")
	b.Record("segment-0-question-1", "x")
	b.Record("segment-1-question-0", "x")
	b.Record("legacy-q-0", "x")
	b.Record("legacy-abc", "x")

	// 片段级重置只影响该片段
	b.ResetSegment(0)
	if b.Answered("segment-0-question-0") || b.Answered("segment-0-question-1") {
		t.Error("片段 0 的作答应被清空")
	}
	if !b.Answered("segment-1-question-0") {
		t.Error("片段 1 的作答不应受影响")
	}
	if !b.Answered("legacy-q-0") {
		t.Error("legacy 作答不应受影响")
	}

	// legacy 重置只影响独立题目
	b.ResetLegacy()
	if b.Answered("legacy-q-0") || b.Answered("legacy-abc") {
		t.Error("legacy 作答应被清空")
	}
	if !b.Answered("segment-1-question-0") {
		t.Error("片段作答不应受影响")
	}

	b.ResetAll()
	if b.Len() != 0 {
		t.Errorf("ResetAll 后 Len = %d", b.Len())
	}
}

func TestAnswerBookSurvivesRefresh(t *testing.T) {
	// 数据刷新不触碰 AnswerBook：同一个键在刷新后仍是已作答。
	// 键的稳定性由 keys_test 保证，这里只验证状态本身不丢。
	b := NewAnswerBook()
	q := models.Question{ID: "q1"}

	key := SegmentQuestionKey(3, 0, q)
	b.Record(key, OptionKey(key, 2, models.Option{}))

	refreshedKey := SegmentQuestionKey(3, 0, q)
	if !b.Answered(refreshedKey) {
		t.Error("刷新后同一道题应保持已作答")
	}
}

func TestClassifyOption(t *testing.T) {
	correct := models.Option{Text: "A", IsCorrect: true}
	wrong := models.Option{Text: "B"}

	// 未作答：所有选项无标注
	if got := ClassifyOption(correct, "k-0", ""); got != OptionNeutral {
		t.Errorf("未作答 = %v, want OptionNeutral", got)
	}

	// 作答后的四种展示状态
	cases := []struct {
		name   string
		opt    models.Option
		key    string
		chosen string
		want   OptionState
	}{
		{"选中且正确", correct, "k-0", "k-0", OptionChosenCorrect},
		{"选中且错误", wrong, "k-1", "k-1", OptionChosenIncorrect},
		{"正确但未选中", correct, "k-0", "k-1", OptionCorrectNotChosen},
		{"未选中且错误", wrong, "k-1", "k-0", OptionUnchosen},
	}
	for _, c := range cases {
		if got := ClassifyOption(c.opt, c.key, c.chosen); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}
