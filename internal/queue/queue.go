// Package queue provides the per-stage work queues that drive the outreach
// pipeline. Delivery is at-least-once: a handler error requeues the job with
// exponential backoff until MaxAttempts, after which it is dead-lettered.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Stage names one pipeline work queue.
type Stage string

const (
	StageScrape Stage = "scrape"
	StageEnrich Stage = "enrich"
	StageSite   Stage = "site"
	StageImages Stage = "images"
	StageDeploy Stage = "deploy"
	StageEmail  Stage = "email"
	StageCall   Stage = "call"
)

// Stages lists every pipeline stage in execution order.
var Stages = []Stage{
	StageScrape, StageEnrich, StageSite, StageImages, StageDeploy, StageEmail, StageCall,
}

// Job is one unit of stage work. Payload is the stage-specific job struct
// encoded as JSON; Attempt starts at 1 and increments on each redelivery.
type Job struct {
	ID      string          `json:"id"`
	Stage   Stage           `json:"stage"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	return eris.Wrapf(json.Unmarshal(j.Payload, v), "queue: decode %s job", j.Stage)
}

// NewJob builds a Job for a stage from any JSON-encodable payload.
func NewJob(stage Stage, payload any) (Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, eris.Wrapf(err, "queue: encode %s job", stage)
	}
	return Job{
		ID:      uuid.New().String(),
		Stage:   stage,
		Payload: body,
		Attempt: 1,
	}, nil
}

// Handler processes one job delivery. A nil return acknowledges the job; an
// error schedules a retry or, past the attempt limit, a dead-letter.
type Handler func(ctx context.Context, job Job) error

// PublishOptions carry per-publish settings.
type PublishOptions struct {
	Delay time.Duration
}

// PublishOption mutates PublishOptions.
type PublishOption func(*PublishOptions)

// WithDelay holds a job back for d before its first delivery.
func WithDelay(d time.Duration) PublishOption {
	return func(o *PublishOptions) { o.Delay = d }
}

// DeadLetter is a job that exhausted its attempts, retained for inspection
// and manual requeue.
type DeadLetter struct {
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Broker is a per-stage work queue. Subscribe registers the single handler
// for a stage before Start; Publish may be called from any goroutine once
// the broker is started.
type Broker interface {
	Publish(ctx context.Context, stage Stage, payload any, opts ...PublishOption) error
	Subscribe(stage Stage, h Handler)
	Start(ctx context.Context) error
	Depth(stage Stage) int
	DeadLetters() []DeadLetter
	Close() error
}
