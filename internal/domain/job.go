package domain

import (
	"time"

	"github.com/google/uuid"
)

// RenderRequest is the body of POST /generate. Both fields are opaque to the
// service: TaskID names the output and RenderURL is handed to the browser as is.
type RenderRequest struct {
	TaskID    string `json:"task_id"`
	RenderURL string `json:"render_url"`
}

// RenderJob is one request's handling of a RenderRequest.
type RenderJob struct {
	ID        uuid.UUID
	Request   RenderRequest
	StartedAt time.Time
}

func NewRenderJob(req RenderRequest) *RenderJob {
	return &RenderJob{ID: uuid.New(), Request: req, StartedAt: time.Now()}
}

// Filename is the attachment name reported to the caller.
func (j *RenderJob) Filename() string {
	return j.Request.TaskID + ".pdf"
}
