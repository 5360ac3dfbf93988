package session

import (
	"testing"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

func segs(bounds ...[2]float64) []models.Segment {
	out := make([]models.Segment, len(bounds))
	for i, b := range bounds {
		out[i] = models.Segment{StartTime: b[0], EndTime: b[1]}
	}
	return out
}

// fakeSeeker 记录播放端收到的控制调用
type fakeSeeker struct {
	seekedTo float64
	played   bool
}

func (f *fakeSeeker) Seek(t float64) { f.seekedTo = t }
func (f *fakeSeeker) Play()          { f.played = true }

func TestMapperUpdate(t *testing.T) {
	m := NewSegmentMapper()
	// 两个片段中间有 30-45 的间隙
	m.SetSegments(segs([2]float64{0, 30}, [2]float64{45, 90}))

	cases := []struct {
		time float64
		want int
	}{
		{0, 0},
		{29, 0},
		{31, 0}, // 间隙：保留上一个下标
		{44.9, 0},
		{45, 1},
		{66, 1},
		{95, 1}, // 末尾之后：同样保留
		{10, 0},
	}

	for _, c := range cases {
		if got := m.Update(c.time); got != c.want {
			t.Errorf("Update(%v) = %d, want %d", c.time, got, c.want)
		}
	}
}

func TestMapperEmpty(t *testing.T) {
	m := NewSegmentMapper()

	if got := m.Update(10); got != -1 {
		t.Errorf("无片段时 Update = %d, want -1", got)
	}
	if got := m.Active(); got != -1 {
		t.Errorf("无片段时 Active = %d, want -1", got)
	}
	if m.Select(0) {
		t.Error("无片段时 Select 应失败")
	}
}

func TestMapperSetSegmentsKeepsActive(t *testing.T) {
	m := NewSegmentMapper()
	m.SetSegments(segs([2]float64{0, 30}, [2]float64{30, 60}))
	m.Update(35)
	if m.Active() != 1 {
		t.Fatalf("Active = %d, want 1", m.Active())
	}

	// 片段是追加式到达的，刷新不应改变已激活的下标
	m.SetSegments(segs([2]float64{0, 30}, [2]float64{30, 60}, [2]float64{60, 90}))
	if m.Active() != 1 {
		t.Errorf("刷新后 Active = %d, want 1", m.Active())
	}

	// 清空后回到不工作状态
	m.SetSegments(nil)
	if m.Active() != -1 {
		t.Errorf("清空后 Active = %d, want -1", m.Active())
	}
}

func TestMapperOverlapFirstMatch(t *testing.T) {
	m := NewSegmentMapper()
	// 上游不保证不重叠：25-35 同时被两个片段覆盖，取最靠前的
	m.SetSegments(segs([2]float64{0, 35}, [2]float64{25, 60}))

	if got := m.Update(30); got != 0 {
		t.Errorf("重叠区 Update(30) = %d, want 0", got)
	}
	if got := m.Update(40); got != 1 {
		t.Errorf("Update(40) = %d, want 1", got)
	}
}

func TestMapperSelect(t *testing.T) {
	m := NewSegmentMapper()
	m.SetSegments(segs([2]float64{0, 30}, [2]float64{30, 60}))

	seeker := &fakeSeeker{}
	m.AttachSeeker(seeker)

	if !m.Select(1) {
		t.Fatal("Select(1) 应成功")
	}
	if m.Active() != 1 {
		t.Errorf("Active = %d, want 1", m.Active())
	}
	// 点选片段要跳转到起点并继续播放
	if seeker.seekedTo != 30 {
		t.Errorf("Seek 到 %v, want 30", seeker.seekedTo)
	}
	if !seeker.played {
		t.Error("应调用 Play")
	}

	if m.Select(5) {
		t.Error("越界 Select 应失败")
	}
}

func TestMapperBeforeFirstSegment(t *testing.T) {
	m := NewSegmentMapper()
	m.SetSegments(segs([2]float64{10, 30}))

	// 第一个片段开始前没有命中，保留初始下标 0
	if got := m.Update(5); got != 0 {
		t.Errorf("Update(5) = %d, want 0", got)
	}
}
