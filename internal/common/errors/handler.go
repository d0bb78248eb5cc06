package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports failed jobs back to the broker as BPMN errors.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr, ok := As(err)
	if !ok {
		stdErr = NewInternalError(err)
	}
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"jobType":            job.GetType(),
		"errorCode":          string(stdErr.Code),
		"bpmnErrorCode":      bpmnErr.Code,
		"message":            bpmnErr.Message,
		"details":            stdErr.Details,
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	cmd := client.NewThrowErrorCommand().
		JobKey(job.GetKey()).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		if _, sendErr := cmd.Send(ctx); sendErr != nil {
			h.logSendFailure(job, sendErr)
		}
		return
	}

	withVars, varErr := cmd.VariablesFromString(string(varsJSON))
	if varErr != nil {
		h.logger.Error("Failed to attach error variables", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  varErr.Error(),
		})
		if _, sendErr := cmd.Send(ctx); sendErr != nil {
			h.logSendFailure(job, sendErr)
		}
		return
	}

	if _, sendErr := withVars.Send(ctx); sendErr != nil {
		h.logSendFailure(job, sendErr)
	}
}

func (h *ErrorHandler) logSendFailure(job entities.Job, err error) {
	h.logger.Error("Failed to send BPMN error to Camunda", map[string]interface{}{
		"jobKey": job.GetKey(),
		"error":  err.Error(),
	})
}
