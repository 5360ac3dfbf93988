package queue

// TaskKind 管线任务类型
type TaskKind string

const (
	// TaskTranscribe 转录（含重试）
	TaskTranscribe TaskKind = "transcribe"
	// TaskGenerateQuestions 只做题目生成（转录已存在）
	TaskGenerateQuestions TaskKind = "generate_questions"
)

// Task 一个待处理的管线任务
type Task struct {
	VideoID  string   `json:"video_id"`
	Kind     TaskKind `json:"kind"`
	FilePath string   `json:"file_path"`
	Language string   `json:"language,omitempty"`

	// RabbitMQ 相关（不序列化）
	DeliveryTag uint64 `json:"-"`
	Delivery    any    `json:"-"` // 用于 Ack/Nack
}

// Queue 任务队列接口
type Queue interface {
	// Enqueue 将任务加入队列
	Enqueue(task *Task) error

	// Dequeue 从队列取出任务（阻塞）
	Dequeue() (*Task, error)

	// Ack 确认消息（任务处理成功）
	Ack(task *Task) error

	// Nack 拒绝消息（任务处理失败）
	// requeue: 是否重新入队
	Nack(task *Task, requeue bool) error

	// Close 关闭队列
	Close() error
}
