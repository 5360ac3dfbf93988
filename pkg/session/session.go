package session

import (
	"context"
	"sync"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// PipelineClient 处理管线的只读+触发接口（由 pkg/api 实现）
type PipelineClient interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
	GetQuestions(ctx context.Context, videoID string) ([]models.Question, error)
	Transcribe(ctx context.Context, videoID string) error
	GenerateQuestions(ctx context.Context, videoID string) ([]models.Question, error)
}

// QuestionView 规范化后的题目加上它的稳定键。
// SegmentIndex 为 -1 表示旧版独立题目。
type QuestionView struct {
	Key          string
	SegmentIndex int
	Question     models.Question
}

// OptionView 选项加上它的键和作答后的展示状态
type OptionView struct {
	Key    string
	Option models.Option
	State  OptionState
}

// Snapshot 一次轮询周期发布的不可变状态包。
// Video / Transcript / Questions 总是一起发布：某个子请求失败时
// 保留上一份对应字段，绝不发布半新半旧之外的部分覆盖。
type Snapshot struct {
	Video      *models.Video
	Transcript *models.Transcript
	// Questions 旧版独立题目记录（规范化后）
	Questions []models.Question
	// SegmentQuestions 按片段下标排列的内嵌题目视图
	SegmentQuestions [][]QuestionView
	// LegacyQuestions 独立题目记录的视图
	LegacyQuestions []QuestionView
	FetchedAt       time.Time
	// LastError 最近一次任务状态请求的失败（瞬态，成功后清空）
	LastError error
}

// Session 查看一个视频的同步会话：持有当前快照、片段映射器和答题状态。
// 一个 Session 对应一个视频 id；切换视频必须显式调用 SwitchVideo。
type Session struct {
	client   PipelineClient
	onUpdate func(Snapshot)

	mu      sync.RWMutex
	videoID string
	gen     uint64 // 代数计数，见 poller.go
	snap    Snapshot

	Mapper  *SegmentMapper
	Answers *AnswerBook
	Poller  *Poller
}

// Option Session 配置项
type Option func(*Session)

// WithUpdateFunc 每次发布新快照后回调（视图层刷新用）
func WithUpdateFunc(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// New 创建会话
func New(client PipelineClient, videoID string, pollInterval time.Duration, opts ...Option) *Session {
	s := &Session{
		client:  client,
		videoID: videoID,
		Mapper:  NewSegmentMapper(),
		Answers: NewAnswerBook(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Poller = newPoller(s, pollInterval)
	return s
}

// VideoID 当前查看的视频 id
func (s *Session) VideoID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.videoID
}

// Snapshot 当前快照（只读）
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

// ActiveSegment 当前激活片段下标
func (s *Session) ActiveSegment() int {
	return s.Mapper.Active()
}

// SwitchVideo 切换到另一个视频。
// 显式的生命周期调用：停止轮询、作废在途响应、清空答题状态和快照。
func (s *Session) SwitchVideo(videoID string) {
	s.Poller.Stop()

	s.mu.Lock()
	s.videoID = videoID
	s.gen++ // 作废所有在途周期
	s.snap = Snapshot{}
	s.mu.Unlock()

	s.Answers.ResetAll()
	s.Mapper.SetSegments(nil)
}

// RecordAnswer 记录一次作答（首答定格）
func (s *Session) RecordAnswer(questionKey, optionKey string) bool {
	return s.Answers.Record(questionKey, optionKey)
}

// OptionViews 生成某道题所有选项的展示视图
func (s *Session) OptionViews(q QuestionView) []OptionView {
	chosen, _ := s.Answers.ChosenOption(q.Key)

	views := make([]OptionView, len(q.Question.Options))
	for i, opt := range q.Question.Options {
		key := OptionKey(q.Key, i, opt)
		views[i] = OptionView{
			Key:    key,
			Option: opt,
			State:  ClassifyOption(opt, key, chosen),
		}
	}
	return views
}

// Retry 错误状态下重试转录，成功后重新开始轮询
func (s *Session) Retry(ctx context.Context) error {
	if err := s.client.Transcribe(ctx, s.VideoID()); err != nil {
		return err
	}
	s.Poller.Start(ctx)
	return nil
}

// invalidate 推进代数，作废所有在途周期（Stop / 切换视频时调用）
func (s *Session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
}

// currentGen 读取当前代数
func (s *Session) currentGen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.gen
}

// snapshotForNextCycle 以上一份快照为底稿开始新周期
func (s *Session) snapshotForNextCycle() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

// apply 发布新快照。代数不匹配（会话已切换/停止）时丢弃，
// 保证迟到的响应不会在视图拆除后再写状态。
func (s *Session) apply(gen uint64, next Snapshot) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	buildViews(&next)
	s.snap = next
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if next.Transcript != nil {
		s.Mapper.SetSegments(next.Transcript.Segments)
	}
	if onUpdate != nil {
		onUpdate(next)
	}
	return true
}

// recordError 任务状态请求失败：跳过本周期，只记录瞬态错误
func (s *Session) recordError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.snap.LastError = err
}

// buildViews 规范化两种题目格式并合成稳定键。
// 这是唯一按格式分支的地方，之后的消费方只看 QuestionView。
func buildViews(snap *Snapshot) {
	snap.SegmentQuestions = nil
	snap.LegacyQuestions = nil

	if snap.Transcript != nil {
		snap.SegmentQuestions = make([][]QuestionView, len(snap.Transcript.Segments))
		for i, seg := range snap.Transcript.Segments {
			views := make([]QuestionView, 0, len(seg.Questions))
			for pos, sq := range seg.Questions {
				q := sq.Canonical(seg)
				views = append(views, QuestionView{
					Key:          SegmentQuestionKey(i, pos, q),
					SegmentIndex: i,
					Question:     q,
				})
			}
			snap.SegmentQuestions[i] = views
		}
	}

	for pos, q := range snap.Questions {
		snap.LegacyQuestions = append(snap.LegacyQuestions, QuestionView{
			Key:          LegacyQuestionKey(pos, q),
			SegmentIndex: -1,
			Question:     q,
		})
	}
}
