package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/email"
	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/services"
	"bibliophile/server/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Queue names. Image work gets its own queue so a burst of uploads cannot
// delay notification mail.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

// --- Task Client (Enqueuing tasks) ---

func redisClientOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient creates the asynq client used to enqueue tasks on rdb's server.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisClientOpt(rdb))
}

// Enqueuer is the subset of *asynq.Client used to schedule work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailTaskPayload is the payload of TypeEmailDelivery tasks.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// ImageTaskPayload is the payload of TypeImageProcess tasks.
type ImageTaskPayload struct {
	S3Key  string `json:"s3_key"`
	BookID string `json:"book_id"`
}

// NewImageProcessTask builds the task that normalizes an uploaded cover.
func NewImageProcessTask(bookID, key string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: key, BookID: bookID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue(QueueImages), asynq.MaxRetry(3)), nil
}

// Notifier queues notification emails. It satisfies services.INotifier.
type Notifier struct {
	client Enqueuer
	locale string
}

// NewNotifier creates a Notifier that enqueues through client.
func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client, locale: services.DefaultLocale}
}

func (n *Notifier) Notify(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	payload, err := json.Marshal(EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Locale:     n.locale,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}

	info, err := n.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload), asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email to %s: %w", templateID, to, err)
	}
	logging.L().Debug("email task enqueued", zap.String("task_id", info.ID), zap.String("template_id", templateID))
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	storageService       storage.IS3Storage
	bookService          services.IBookService
	emailTemplateService services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	bookService services.IBookService,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		storageService:       storageService,
		bookService:          bookService,
		emailTemplateService: emailTemplateService,
	}
}

// SetupServer configures an Asynq server and the mux routing task types to
// processor. The caller runs and shuts down the server.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisClientOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueDefault: 6,
				QueueImages:  3,
			},
			Logger: logging.L().Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.L().Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)

	return srv, mux
}
