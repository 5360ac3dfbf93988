package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/api"
	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// fakeClient 可编程的管线客户端
type fakeClient struct {
	mu sync.Mutex

	video         *models.Video
	videoErr      error
	transcript    *models.Transcript
	transcriptErr error
	questions     []models.Question
	questionsErr  error

	videoCalls      int
	transcriptCalls int
	questionCalls   int
}

func (f *fakeClient) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	v := *f.video
	return &v, nil
}

func (f *fakeClient) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptCalls++
	if f.transcriptErr != nil {
		return nil, f.transcriptErr
	}
	return f.transcript, nil
}

func (f *fakeClient) GetQuestions(ctx context.Context, videoID string) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionCalls++
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

func (f *fakeClient) Transcribe(ctx context.Context, videoID string) error { return nil }

func (f *fakeClient) GenerateQuestions(ctx context.Context, videoID string) ([]models.Question, error) {
	return nil, nil
}

func (f *fakeClient) set(fn func(*fakeClient)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeClient) calls() (video, transcript, questions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videoCalls, f.transcriptCalls, f.questionCalls
}

func newTestSession(fc *fakeClient) *Session {
	return New(fc, "video-1", time.Minute)
}

func TestCycleSkipsSubFetchWhileTranscribing(t *testing.T) {
	fc := &fakeClient{video: &models.Video{ID: "video-1", Status: models.StatusTranscribing}}
	s := newTestSession(fc)

	done := s.Poller.cycle(context.Background(), s.currentGen())
	if done {
		t.Fatal("transcribing 阶段不应停止轮询")
	}

	// 纯转录阶段只拉任务状态
	_, tc, qc := fc.calls()
	if tc != 0 || qc != 0 {
		t.Errorf("转录阶段不应拉转录/题目 (transcript=%d, questions=%d)", tc, qc)
	}

	snap := s.Snapshot()
	if snap.Video == nil || snap.Video.Status != models.StatusTranscribing {
		t.Error("任务状态应已发布")
	}
	if snap.Transcript != nil {
		t.Error("不应有转录数据")
	}
}

func TestCycleFetchesEverythingWhenGenerating(t *testing.T) {
	fc := &fakeClient{
		video: &models.Video{ID: "video-1", Status: models.StatusGeneratingQuestions},
		transcript: &models.Transcript{
			VideoID:  "video-1",
			Segments: []models.Segment{{StartTime: 0, EndTime: 30, Text: "intro"}},
		},
		questions: []models.Question{{ID: "q1", QuestionText: "standalone"}},
	}
	s := newTestSession(fc)

	s.Poller.cycle(context.Background(), s.currentGen())

	snap := s.Snapshot()
	if snap.Transcript == nil || len(snap.Transcript.Segments) != 1 {
		t.Fatal("转录应已发布")
	}
	if len(snap.Questions) != 1 {
		t.Fatal("独立题目应已发布")
	}
	if len(snap.LegacyQuestions) != 1 || snap.LegacyQuestions[0].Key != "legacy-q1" {
		t.Errorf("独立题目视图 = %+v", snap.LegacyQuestions)
	}
	// 映射器同步拿到片段
	if s.Mapper.Len() != 1 || s.ActiveSegment() != 0 {
		t.Errorf("映射器片段数 = %d, active = %d", s.Mapper.Len(), s.ActiveSegment())
	}
}

func TestCycleKeepsOldOnSubFetchFailure(t *testing.T) {
	fc := &fakeClient{
		video: &models.Video{ID: "video-1", Status: models.StatusGeneratingQuestions},
		transcript: &models.Transcript{
			VideoID:  "video-1",
			Segments: []models.Segment{{StartTime: 0, EndTime: 30}},
		},
	}
	s := newTestSession(fc)
	s.Poller.cycle(context.Background(), s.currentGen())
	if s.Snapshot().Transcript == nil {
		t.Fatal("第一周期应拿到转录")
	}

	// 转录请求开始失败：保留上一份，状态照常刷新
	fc.set(func(f *fakeClient) {
		f.transcriptErr = errors.New("boom")
		v := *f.video
		v.SetProgress(85)
		f.video = &v
	})
	s.Poller.cycle(context.Background(), s.currentGen())

	snap := s.Snapshot()
	if snap.Transcript == nil {
		t.Error("子请求失败应保留上一份转录")
	}
	if snap.Video.DisplayProgress() != 85 {
		t.Error("任务状态应照常发布")
	}
}

func TestCycleNotYetAvailableIsSilent(t *testing.T) {
	fc := &fakeClient{
		video:         &models.Video{ID: "video-1", Status: models.StatusGeneratingQuestions},
		transcriptErr: api.ErrNotYetAvailable,
	}
	s := newTestSession(fc)

	s.Poller.cycle(context.Background(), s.currentGen())

	snap := s.Snapshot()
	if snap.Transcript != nil {
		t.Error("转录尚未生成时不应有转录数据")
	}
	if snap.LastError != nil {
		t.Error("ErrNotYetAvailable 是预期内的，不应记为错误")
	}
}

func TestCycleVideoFetchFailureSkipsCycle(t *testing.T) {
	fc := &fakeClient{video: &models.Video{ID: "video-1", Status: models.StatusTranscribing}}
	s := newTestSession(fc)
	s.Poller.cycle(context.Background(), s.currentGen())

	fc.set(func(f *fakeClient) { f.videoErr = errors.New("network down") })
	done := s.Poller.cycle(context.Background(), s.currentGen())
	if done {
		t.Error("瞬态失败不应停止轮询")
	}

	snap := s.Snapshot()
	if snap.Video == nil {
		t.Error("失败周期应保留之前的快照")
	}
	if snap.LastError == nil {
		t.Error("瞬态错误应被记录")
	}

	// 恢复后错误清空
	fc.set(func(f *fakeClient) { f.videoErr = nil })
	s.Poller.cycle(context.Background(), s.currentGen())
	if s.Snapshot().LastError != nil {
		t.Error("成功周期应清空瞬态错误")
	}
}

func TestCycleStopsOnTerminal(t *testing.T) {
	fc := &fakeClient{
		video:      &models.Video{ID: "video-1", Status: models.StatusCompleted},
		transcript: &models.Transcript{VideoID: "video-1"},
	}
	s := newTestSession(fc)

	done := s.Poller.cycle(context.Background(), s.currentGen())
	if !done {
		t.Error("completed 的周期应是最后一次")
	}
	// 最后一个周期仍要完整拉取
	if s.Snapshot().Transcript == nil {
		t.Error("终态周期应拿到转录")
	}

	fc.set(func(f *fakeClient) { f.video = &models.Video{ID: "video-1", Status: models.StatusError} })
	done = s.Poller.cycle(context.Background(), s.currentGen())
	if !done {
		t.Error("error 同样停止轮询")
	}
}

func TestStaleCycleDiscardedAfterStop(t *testing.T) {
	fc := &fakeClient{video: &models.Video{ID: "video-1", Status: models.StatusTranscribing}}
	s := newTestSession(fc)

	gen := s.currentGen()
	s.Poller.cycle(context.Background(), gen)

	// Stop 作废在途周期：旧代数的响应不得再写状态
	s.Poller.Stop()
	fc.set(func(f *fakeClient) {
		f.video = &models.Video{ID: "video-1", Status: models.StatusCompleted}
	})
	s.Poller.cycle(context.Background(), gen)

	snap := s.Snapshot()
	if snap.Video.Status != models.StatusTranscribing {
		t.Errorf("Stop 之后旧周期写入了状态: %s", snap.Video.Status)
	}
}

func TestSwitchVideoResetsEverything(t *testing.T) {
	fc := &fakeClient{
		video: &models.Video{ID: "video-1", Status: models.StatusCompleted},
		transcript: &models.Transcript{
			VideoID:  "video-1",
			Segments: []models.Segment{{StartTime: 0, EndTime: 30, Questions: []models.SegmentQuestion{{Question: "q"}}}},
		},
	}
	s := newTestSession(fc)
	gen := s.currentGen()
	s.Poller.cycle(context.Background(), gen)
	s.RecordAnswer("segment-0-question-0", "segment-0-question-0-option-1")

	s.SwitchVideo("video-2")

	if s.VideoID() != "video-2" {
		t.Errorf("VideoID = %q", s.VideoID())
	}
	if s.Snapshot().Video != nil {
		t.Error("切换视频应清空快照")
	}
	if s.Answers.Len() != 0 {
		t.Error("切换视频应清空作答")
	}
	if s.ActiveSegment() != -1 {
		t.Error("切换视频应清空映射器")
	}
	// 旧视频的在途周期被作废
	if s.Poller.cycle(context.Background(), gen); s.Snapshot().Video != nil {
		t.Error("旧代数的周期不应再发布")
	}
}

func TestPollerRunLoop(t *testing.T) {
	fc := &fakeClient{video: &models.Video{ID: "video-1", Status: models.StatusTranscribing}}
	s := New(fc, "video-1", 5*time.Millisecond)

	s.Poller.Start(context.Background())
	if !s.Poller.Running() {
		t.Fatal("Start 后应在轮询中")
	}
	// 重复 Start 是 no-op
	s.Poller.Start(context.Background())

	// 等到至少跑了两个周期再置为终态
	waitFor(t, func() bool { v, _, _ := fc.calls(); return v >= 2 })
	fc.set(func(f *fakeClient) {
		f.video = &models.Video{ID: "video-1", Status: models.StatusCompleted}
	})

	// 终态周期后自然停止
	waitFor(t, func() bool { return !s.Poller.Running() })

	if s.Snapshot().Video.Status != models.StatusCompleted {
		t.Error("终态应已发布")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("等待条件超时")
}
