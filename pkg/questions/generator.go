package questions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// Generator AI 选择题生成器
type Generator struct {
	client     *openai.Client
	perSegment int
}

// NewGenerator 创建选择题生成器，perSegment 为每段生成的题目数
func NewGenerator(apiKey string, perSegment int) *Generator {
	if perSegment <= 0 {
		perSegment = 3
	}
	return &Generator{
		client:     openai.NewClient(apiKey),
		perSegment: perSegment,
	}
}

// rawQuestion AI 返回的题目结构
type rawQuestion struct {
	Question string `json:"question"`
	Options  []struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"isCorrect"`
	} `json:"options"`
	Explanation string `json:"explanation"`
}

// GenerateForSegment 为单个讲座分段生成选择题
func (g *Generator) GenerateForSegment(ctx context.Context, segmentText string) ([]models.SegmentQuestion, error) {
	prompt := buildPrompt(segmentText, g.perSegment)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini, // 性价比更高
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert educator who writes multiple-choice comprehension questions for lecture transcripts. Only return JSON data, no other text.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3, // 降低温度，使输出更稳定
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("调用 OpenAI API 失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API 未返回结果")
	}

	content := resp.Choices[0].Message.Content
	var result struct {
		Questions []rawQuestion `json:"questions"`
	}

	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("解析 AI 响应失败: %w, 原始响应: %s", err, content)
	}

	out := make([]models.SegmentQuestion, 0, len(result.Questions))
	for _, rq := range result.Questions {
		q := models.SegmentQuestion{
			ID:          uuid.New().String(),
			Question:    rq.Question,
			Explanation: rq.Explanation,
		}
		for _, opt := range rq.Options {
			q.Options = append(q.Options, models.Option{
				ID:        uuid.New().String(),
				Text:      opt.Text,
				IsCorrect: opt.IsCorrect,
			})
		}
		// 丢弃不合规的题目（选项不足或正确项不唯一）
		if !models.ValidQuestion(q.Question, q.Options) {
			continue
		}
		out = append(out, q)
	}

	return out, nil
}

// buildPrompt 构建提示词
func buildPrompt(text string, count int) string {
	// 限制文本长度，避免超出 token 限制
	const maxLength = 6000
	if len(text) > maxLength {
		text = text[:maxLength] + "..."
	}

	return fmt.Sprintf(`Based on the lecture transcript excerpt below, write %d multiple-choice questions that test comprehension of its content.

Requirements:
1. Each question has exactly 4 options, and exactly one option is correct.
2. Wrong options must be plausible but clearly incorrect given the transcript.
3. Include a short explanation of why the correct answer is right.

Output format (strict JSON):
{
  "questions": [
    {
      "question": "...",
      "options": [
        {"text": "...", "isCorrect": false},
        {"text": "...", "isCorrect": true},
        {"text": "...", "isCorrect": false},
        {"text": "...", "isCorrect": false}
      ],
      "explanation": "..."
    }
  ]
}

Transcript excerpt:
%s

Return strict JSON only, with no extra text.`, count, text)
}
