package ingest

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/askdocs-ai/askdocs/pkg/natsutil"
)

const (
	// JobSubject carries single-file ingestion jobs.
	JobSubject = "docs.ingest"
	// DLQSubject receives jobs that exhausted their retries.
	DLQSubject = "docs.ingest.dlq"
	// MaxRetries before a job moves to the DLQ.
	MaxRetries = 3
)

// Job is one file to ingest, relative paths resolved against Root. Retries
// counts failed attempts so far and rides along on re-publish.
type Job struct {
	Root    string `json:"root"`
	Path    string `json:"path"`
	Retries int    `json:"retries,omitempty"`
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// PublishJob queues a single-file ingestion job with the caller's trace
// context propagated through the message headers.
func PublishJob(ctx context.Context, nc *nats.Conn, job Job) error {
	return natsutil.Publish(ctx, nc, JobSubject, job)
}

// StartConsumer subscribes to the job subject and runs each file through
// the pipeline. Failed jobs are re-published with an incremented retry
// count until MaxRetries, then land on the DLQ.
func StartConsumer(nc *nats.Conn, svc *Service) (*nats.Subscription, error) {
	log := svc.log

	return natsutil.Subscribe(nc, JobSubject, func(ctx context.Context, job Job) {
		n, err := svc.IngestFile(ctx, job.Root, job.Path)
		if err == nil {
			log.Info("ingest: job done", "file", job.Path, "chunks", n)
			return
		}

		job.Retries++
		log.Error("ingest: job failed", "file", job.Path, "retry", job.Retries, "error", err)

		subject, payload := routeFailure(job, err)
		if err := natsutil.Publish(ctx, nc, subject, payload); err != nil {
			log.Error("ingest: publish failed", "subject", subject, "error", err)
		}
	})
}

// routeFailure decides where a failed job goes next: back onto the job
// subject for another attempt, or onto the DLQ once retries are exhausted.
func routeFailure(job Job, cause error) (string, any) {
	if job.Retries >= MaxRetries {
		return DLQSubject, dlqMessage{Job: job, Error: cause.Error(), Retries: job.Retries}
	}
	return JobSubject, job
}
