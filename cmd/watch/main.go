package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sohan-gupthak/snaplearn/pkg/api"
	"github.com/sohan-gupthak/snaplearn/pkg/export"
	"github.com/sohan-gupthak/snaplearn/pkg/models"
	"github.com/sohan-gupthak/snaplearn/pkg/session"
)

// watch 命令行工具：跟踪一个视频的处理进度，
// 到达终态后可选地把生成的题目导出为 CSV。
func main() {
	server := flag.String("server", "http://localhost:8080/api", "API 服务器地址")
	videoID := flag.String("video", "", "要跟踪的视频 id")
	interval := flag.Int("interval", 5, "轮询间隔（秒）")
	exportCSV := flag.Bool("csv", false, "处理完成后导出题目为 CSV")
	out := flag.String("out", "", "CSV 输出路径（默认按视频标题命名）")
	flag.Parse()

	if *videoID == "" {
		fmt.Fprintln(os.Stderr, "用法: watch -video <id> [-server <url>] [-interval <秒>] [-csv] [-out <路径>]")
		os.Exit(1)
	}

	client := api.NewClient(*server)

	// 终态时通知主 Goroutine
	done := make(chan session.Snapshot, 1)

	var lastStatus models.VideoStatus
	sess := session.New(client, *videoID, time.Duration(*interval)*time.Second,
		session.WithUpdateFunc(func(snap session.Snapshot) {
			printUpdate(snap, &lastStatus)
			if snap.Video != nil && snap.Video.IsTerminal() {
				select {
				case done <- snap:
				default:
				}
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess.Poller.Start(ctx)
	log.Printf("👀 开始跟踪视频 %s (间隔 %d 秒)", *videoID, *interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("🛑 已中断")
		sess.Poller.Stop()
		return
	case snap := <-done:
		sess.Poller.Stop()
		finish(snap, *exportCSV, *out)
	}
}

// printUpdate 每个轮询周期打印一次进展，状态变化时高亮
func printUpdate(snap session.Snapshot, lastStatus *models.VideoStatus) {
	if snap.Video == nil {
		return
	}
	v := snap.Video

	if v.Status != *lastStatus {
		log.Printf("✓ 状态变化: %s -> %s", *lastStatus, v.Status)
		*lastStatus = v.Status
	}

	generated := 0
	total := 0
	if snap.Transcript != nil {
		total = len(snap.Transcript.Segments)
		for _, seg := range snap.Transcript.Segments {
			if seg.HasQuestions() {
				generated++
			}
		}
	}

	log.Printf("   [%s] 进度 %d%%, 片段 %d/%d 已出题, 独立题目 %d 道",
		v.Status, v.DisplayProgress(), generated, total, len(snap.Questions))
}

// finish 处理终态：失败打印原因，成功按需导出 CSV
func finish(snap session.Snapshot, exportCSV bool, out string) {
	v := snap.Video

	if v.Status == models.StatusError {
		log.Printf("❌ 处理失败: %s", v.ErrorMessage)
		os.Exit(1)
	}

	log.Printf("🎉 视频 %s 处理完成", v.ID)

	if !exportCSV {
		return
	}

	// 片段内嵌题目优先，没有时退回独立题目记录
	var qs []models.Question
	for _, views := range snap.SegmentQuestions {
		for _, view := range views {
			qs = append(qs, view.Question)
		}
	}
	if len(qs) == 0 {
		for _, view := range snap.LegacyQuestions {
			qs = append(qs, view.Question)
		}
	}

	if len(qs) == 0 {
		log.Println("⚠️ 没有可导出的题目")
		return
	}

	if out == "" {
		out = export.Filename(v.Title)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("❌ 创建文件失败: %v", err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, qs); err != nil {
		log.Fatalf("❌ 导出失败: %v", err)
	}

	log.Printf("✓ 已导出 %d 道题到 %s", len(qs), out)
}
