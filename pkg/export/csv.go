package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sohan-gupthak/snaplearn/pkg/models"
)

// 题目导出：把当前加载的题目集投影成 CSV，一行一题。
// 纯函数，不持有状态；内嵌的逗号和引号按标准 CSV 规则转义。

// maxOptionColumns 导出最多四个选项列（A-D）
const maxOptionColumns = 4

var header = []string{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer", "Explanation"}

var optionLetters = []string{"A", "B", "C", "D"}

// WriteCSV 把题目集写成 CSV
func WriteCSV(w io.Writer, questions []models.Question) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	for _, q := range questions {
		if err := writer.Write(row(q)); err != nil {
			return fmt.Errorf("写入题目失败: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// row 一道题的行：题干、最多四个选项、正确选项字母（按位置）、解析
func row(q models.Question) []string {
	record := make([]string, 0, len(header))
	record = append(record, q.QuestionText)

	for i := 0; i < maxOptionColumns; i++ {
		if i < len(q.Options) {
			record = append(record, q.Options[i].Text)
		} else {
			record = append(record, "")
		}
	}

	correct := models.CorrectIndex(q.Options)
	if correct >= 0 && correct < len(optionLetters) {
		record = append(record, optionLetters[correct])
	} else {
		record = append(record, "")
	}

	record = append(record, q.Explanation)
	return record
}

// Filename 下载文件名
func Filename(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "questions"
	}
	return title + ".csv"
}
