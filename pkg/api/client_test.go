package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

func respond(w http.ResponseWriter, code int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func TestGetVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/v1" {
			t.Errorf("路径 = %q", r.URL.Path)
		}
		respond(w, 200, true, "", models.Video{ID: "v1", Status: models.StatusTranscribing})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	video, err := c.GetVideo(context.Background(), "v1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if video.ID != "v1" || video.Status != models.StatusTranscribing {
		t.Errorf("video = %+v", video)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, 404, false, "视频不存在", nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	_, err := c.GetVideo(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTranscriptNotYetAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, 404, false, "转录不存在", nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	_, err := c.GetTranscript(context.Background(), "v1")
	// 转录的 404 是"还没好"，不是资源缺失
	if !errors.Is(err, ErrNotYetAvailable) {
		t.Errorf("err = %v, want ErrNotYetAvailable", err)
	}
}

func TestGetQuestionsEmptyCases(t *testing.T) {
	// 404 和 data: null 都映射为空列表
	for name, handler := range map[string]http.HandlerFunc{
		"404": func(w http.ResponseWriter, r *http.Request) {
			respond(w, 404, false, "没有题目", nil)
		},
		"null data": func(w http.ResponseWriter, r *http.Request) {
			respond(w, 200, true, "", nil)
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := NewClient(srv.URL + "/api")
			qs, err := c.GetQuestions(context.Background(), "v1")
			if err != nil {
				t.Fatalf("GetQuestions: %v", err)
			}
			if qs == nil || len(qs) != 0 {
				t.Errorf("qs = %#v, want 空列表", qs)
			}
		})
	}
}

func TestEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, 200, false, "内部状态不一致", nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	if _, err := c.GetVideo(context.Background(), "v1"); err == nil {
		t.Error("success=false 应返回错误")
	}
}

func TestUpdateVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("方法 = %s", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["duration"] != 123.5 {
			t.Errorf("body = %v", body)
		}
		respond(w, 200, true, "更新成功", models.Video{ID: "v1", Duration: 123.5})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	video, err := c.UpdateVideo(context.Background(), "v1", map[string]any{"duration": 123.5})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if video.Duration != 123.5 {
		t.Errorf("duration = %v", video.Duration)
	}
}

func TestTranscribe(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		if r.URL.Path != "/api/transcripts/transcribe/v1" {
			t.Errorf("路径 = %q", r.URL.Path)
		}
		respond(w, 200, true, "转录任务已提交", nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api")
	if err := c.Transcribe(context.Background(), "v1"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !hit {
		t.Error("未发出请求")
	}
}
