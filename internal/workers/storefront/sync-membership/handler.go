package syncmembership

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"community-bot/internal/common/errors"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "membership.sync"
	WorkerName = "membership-sync"
)

// Handler runs the sync service for Zeebe jobs of type membership.sync.
type Handler struct {
	config       *Config
	service      *Service
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	Config  *Config
	Service *Service
	Logger  logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", WorkerName, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s handler needs a service", WorkerName)
	}

	log := opts.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       opts.Config,
		service:      opts.Service,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.MembershipSyncs.WithLabelValues(metrics.TriggerJob, string(errors.ErrCodeValidationFailed)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.service.Execute(ctx, metrics.TriggerJob, input)
	if err != nil {
		if stdErr, ok := errors.As(err); ok {
			stdErr.WithMetadata("customerId", input.CustomerID).WithMetadata("membershipMessage", output.Message)
		}
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("job variables are not a JSON object: %v", err))
	}

	result, err := GetInputSchema().ValidateValue(vars)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	return &Input{
		CustomerID:     idString(vars["customerId"]),
		SubscriptionID: idString(vars["subscriptionId"]),
	}, nil
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Job completed", map[string]interface{}{
		"jobKey":           job.GetKey(),
		"membershipStatus": output.Status,
	})
}
