package session

import (
	"testing"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

func TestBuildViewsCanonicalizesBothShapes(t *testing.T) {
	snap := Snapshot{
		Transcript: &models.Transcript{
			Segments: []models.Segment{
				{
					ID: "seg-0", StartTime: 0, EndTime: 30,
					Questions: []models.SegmentQuestion{
						{ID: "a", Question: "第一段讲了什么?"},
						{Question: "没有 id 的题"},
					},
				},
				{ID: "seg-1", StartTime: 30, EndTime: 60},
			},
		},
		Questions: []models.Question{{ID: "old-1", QuestionText: "旧版题"}},
	}

	buildViews(&snap)

	if len(snap.SegmentQuestions) != 2 {
		t.Fatalf("SegmentQuestions 长度 = %d", len(snap.SegmentQuestions))
	}
	views := snap.SegmentQuestions[0]
	if len(views) != 2 {
		t.Fatalf("片段 0 题目数 = %d", len(views))
	}
	if views[0].Key != "segment-0-question-0-a" {
		t.Errorf("键 = %q", views[0].Key)
	}
	if views[1].Key != "segment-0-question-1" {
		t.Errorf("无 id 键 = %q", views[1].Key)
	}
	// 规范化后带上片段归属
	if views[0].Question.TranscriptSegmentID != "seg-0" || views[0].Question.SegmentEndTime != 30 {
		t.Errorf("规范化题目 = %+v", views[0].Question)
	}
	if views[0].SegmentIndex != 0 {
		t.Errorf("SegmentIndex = %d", views[0].SegmentIndex)
	}

	if len(snap.LegacyQuestions) != 1 {
		t.Fatalf("LegacyQuestions 长度 = %d", len(snap.LegacyQuestions))
	}
	if snap.LegacyQuestions[0].Key != "legacy-old-1" || snap.LegacyQuestions[0].SegmentIndex != -1 {
		t.Errorf("旧版视图 = %+v", snap.LegacyQuestions[0])
	}
}

func TestOptionViews(t *testing.T) {
	s := New(&fakeClient{}, "video-1", time.Minute)

	q := QuestionView{
		Key:          "segment-0-question-0",
		SegmentIndex: 0,
		Question: models.Question{
			Options: []models.Option{
				{Text: "对", IsCorrect: true},
				{Text: "错"},
			},
		},
	}

	// 未作答：全部中立
	for _, view := range s.OptionViews(q) {
		if view.State != OptionNeutral {
			t.Errorf("未作答选项状态 = %v", view.State)
		}
	}

	// 答错：错的标红、对的标出
	views := s.OptionViews(q)
	s.RecordAnswer(q.Key, views[1].Key)

	views = s.OptionViews(q)
	if views[0].State != OptionCorrectNotChosen {
		t.Errorf("正确选项状态 = %v", views[0].State)
	}
	if views[1].State != OptionChosenIncorrect {
		t.Errorf("所选选项状态 = %v", views[1].State)
	}
}
