package session

import (
	"sort"
	"sync"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// Seeker 播放端控制面。Select 通过它把"选中片段"反向绑定到播放位置。
type Seeker interface {
	// Seek 跳转到指定播放时间（秒）
	Seek(t float64)
	// Play 继续播放
	Play()
}

// SegmentMapper 把连续的播放时间映射到当前转录片段。
// 时间落在片段间隙或末尾之后时保留上一个命中的下标，避免边界抖动。
type SegmentMapper struct {
	mu       sync.RWMutex
	segments []models.Segment
	active   int // 没有任何片段时为 -1
	seeker   Seeker
}

// NewSegmentMapper 创建映射器
func NewSegmentMapper() *SegmentMapper {
	return &SegmentMapper{active: -1}
}

// AttachSeeker 挂载播放端控制面
func (m *SegmentMapper) AttachSeeker(s Seeker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seeker = s
}

// SetSegments 替换片段列表（轮询刷新时调用）。
// 片段是追加式到达的，已有的 active 下标保持不变；
// 列表为空时映射器不工作。
func (m *SegmentMapper) SetSegments(segments []models.Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.segments = segments
	if len(segments) == 0 {
		m.active = -1
		return
	}
	if m.active >= len(segments) {
		m.active = len(segments) - 1
	}
	if m.active < 0 {
		m.active = 0
	}
}

// Active 当前激活片段下标，-1 表示没有片段
func (m *SegmentMapper) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.active
}

// Update 播放时间变化时重新计算激活片段。
// 每次 timeupdate 都会调用，片段有序时用二分查找。
// 没有片段覆盖当前时间时保留之前的下标。
func (m *SegmentMapper) Update(t float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.segments) == 0 {
		return -1
	}

	if idx, ok := m.locate(t); ok {
		m.active = idx
	}
	return m.active
}

// locate 查找覆盖时间 t 的片段，重叠时取最靠前的一个
func (m *SegmentMapper) locate(t float64) (int, bool) {
	// 第一个 StartTime > t 的位置，其前一个是候选
	idx := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].StartTime > t
	}) - 1

	if idx < 0 {
		return 0, false
	}
	if !m.segments[idx].Contains(t) {
		return 0, false
	}

	// 上游不保证片段不重叠，向前回退到第一个命中
	for idx > 0 && m.segments[idx-1].Contains(t) {
		idx--
	}
	return idx, true
}

// Select 用户点选片段：直接设置激活下标，并把播放位置
// 跳转到该片段起点后继续播放。
func (m *SegmentMapper) Select(index int) bool {
	m.mu.Lock()
	if index < 0 || index >= len(m.segments) {
		m.mu.Unlock()
		return false
	}

	m.active = index
	seeker := m.seeker
	start := m.segments[index].StartTime
	m.mu.Unlock()

	if seeker != nil {
		seeker.Seek(start)
		seeker.Play()
	}
	return true
}

// Segment 返回指定下标的片段
func (m *SegmentMapper) Segment(index int) (models.Segment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if index < 0 || index >= len(m.segments) {
		return models.Segment{}, false
	}
	return m.segments[index], true
}

// Len 片段数量
func (m *SegmentMapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.segments)
}
