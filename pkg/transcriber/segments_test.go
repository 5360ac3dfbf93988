package transcriber

import "testing"

func TestGroupSegments(t *testing.T) {
	whisper := []WhisperSegment{
		{Start: 0, End: 20, Text: " 第一句 "},
		{Start: 20, End: 55, Text: "第二句"},
		{Start: 58, End: 80, Text: "第三句"},
		{Start: 80, End: 130, Text: "第四句"},
	}

	segments := GroupSegments(whisper, 60)

	if len(segments) != 2 {
		t.Fatalf("分段数 = %d, want 2", len(segments))
	}

	// 第一个窗口 [0, 60)：前三句（58 < 0+60）
	if segments[0].StartTime != 0 || segments[0].EndTime != 80 {
		t.Errorf("分段 0 = [%v, %v]", segments[0].StartTime, segments[0].EndTime)
	}
	if segments[0].Text != "第一句 第二句 第三句" {
		t.Errorf("分段 0 文本 = %q", segments[0].Text)
	}

	// 第四句从 80 开始，超出第一个窗口
	if segments[1].StartTime != 80 || segments[1].Text != "第四句" {
		t.Errorf("分段 1 = %+v", segments[1])
	}

	for i, seg := range segments {
		if seg.ID == "" {
			t.Errorf("分段 %d 缺少 id", i)
		}
	}
}

func TestGroupSegmentsEmpty(t *testing.T) {
	if got := GroupSegments(nil, 60); got != nil {
		t.Errorf("空输入应返回 nil, got %v", got)
	}
}

func TestGroupSegmentsDefaultWindow(t *testing.T) {
	whisper := []WhisperSegment{
		{Start: 0, End: 30, Text: "a"},
		{Start: 70, End: 90, Text: "b"},
	}

	// window <= 0 时退回 60 秒默认值
	segments := GroupSegments(whisper, 0)
	if len(segments) != 2 {
		t.Fatalf("分段数 = %d, want 2", len(segments))
	}
}

func TestGroupSegmentsSingleWindow(t *testing.T) {
	whisper := []WhisperSegment{
		{Start: 0, End: 10, Text: "a"},
		{Start: 10, End: 20, Text: "b"},
	}

	segments := GroupSegments(whisper, 60)
	if len(segments) != 1 {
		t.Fatalf("分段数 = %d, want 1", len(segments))
	}
	if segments[0].Text != "a b" {
		t.Errorf("文本 = %q", segments[0].Text)
	}
}
