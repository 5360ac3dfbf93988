package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/api"
	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// DefaultPollInterval 状态轮询默认间隔
const DefaultPollInterval = 5 * time.Second

// Poller 驱动一个处理中任务的周期刷新。
// 并发模型：周期在单个 goroutine 里串行执行，周期 N 不可能覆盖 N+1；
// Stop / SwitchVideo 会推进会话的代数计数，跨越它们的在途响应
// 在 apply 时被作废，保证拆除之后不再有状态写入。
type Poller struct {
	session  *Session
	interval time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	runnerID uint64
}

func newPoller(s *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		session:  s,
		interval: interval,
	}
}

// Start 开始轮询。立即执行一次完整周期，之后按固定间隔重复，
// 直到任务到达终态或 Stop 被调用。已在轮询时是 no-op。
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.runnerID++

	gen := p.session.currentGen()
	go p.run(runCtx, gen, p.runnerID)
}

// Stop 停止轮询并作废所有在途周期
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.running = false
	p.mu.Unlock()

	p.session.invalidate()
	if cancel != nil {
		cancel()
	}
}

// Running 是否在轮询中
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// finish 轮询自然结束（到达终态）时清理自己的运行标记
func (p *Poller) finish(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runnerID == id {
		p.running = false
		p.cancel = nil
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, id uint64) {
	defer p.finish(id)

	// 第一次获取不等 ticker
	if done := p.cycle(ctx, gen); done {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := p.cycle(ctx, gen); done {
				return
			}
		}
	}
}

// cycle 执行一个刷新周期，返回是否应停止轮询。
//
// 顺序约定：先取任务状态；只有在 generating_questions / completed
// 状态下才取转录和题目——纯 transcribing 阶段的半成品转录对视图
// 没有意义，这是刻意的策略。子请求失败不影响本周期：状态更新照常
// 发布，失败的字段保留上一份，下个周期重试。
func (p *Poller) cycle(ctx context.Context, gen uint64) bool {
	videoID := p.session.VideoID()

	video, err := p.session.client.GetVideo(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// 任务状态本身拉不到：跳过本周期，保留之前的快照
		log.Printf("⚠️ 轮询视频 %s 状态失败: %v", videoID, err)
		p.session.recordError(gen, err)
		return false
	}

	next := p.session.snapshotForNextCycle()
	next.Video = video
	next.LastError = nil

	if video.Status == models.StatusGeneratingQuestions || video.Status == models.StatusCompleted {
		if transcript, err := p.session.client.GetTranscript(ctx, videoID); err == nil {
			next.Transcript = transcript
		} else if !errors.Is(err, api.ErrNotYetAvailable) {
			log.Printf("⚠️ 获取转录失败（保留上一份，下周期重试）: %v", err)
		}

		if questions, err := p.session.client.GetQuestions(ctx, videoID); err == nil {
			next.Questions = questions
		} else {
			log.Printf("⚠️ 获取题目失败（保留上一份，下周期重试）: %v", err)
		}
	}

	next.FetchedAt = time.Now()

	if !p.session.apply(gen, next) {
		// 会话已切换或停止，作废本周期
		return true
	}

	// completed 的这一个周期就是最后一次完整拉取；error 停止轮询直到显式重试
	return video.IsTerminal()
}
