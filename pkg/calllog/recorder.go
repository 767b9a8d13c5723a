// Package calllog records one audit entry per handled or proxied call.
package calllog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

// Publisher mirrors stored entries to an external sink.
type Publisher interface {
	Publish(ctx context.Context, entry models.LogEntry) error
}

type Recorder struct {
	db  storage.Storage
	pub Publisher
	log logrus.FieldLogger
	now func() time.Time
}

type Option func(*Recorder)

// WithPublisher mirrors every persisted entry to pub.
func WithPublisher(pub Publisher) Option {
	return func(r *Recorder) { r.pub = pub }
}

// WithClock replaces the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func New(db storage.Storage, logger logrus.FieldLogger, opts ...Option) *Recorder {
	r := Recorder{db: db, log: logger, now: time.Now}
	for _, opt := range opts {
		opt(&r)
	}
	return &r
}

// Record is Log with a 200 status code.
func (r *Recorder) Record(ctx context.Context, url, callerIP string, responseTime int64, payloadSize int) (models.LogEntry, error) {
	return r.Log(ctx, url, callerIP, responseTime, payloadSize, 200)
}

// Log stamps the current time, persists a new entry and returns it with its assigned id.
// Storage errors are returned unchanged; publish errors are only logged.
func (r *Recorder) Log(ctx context.Context, url, callerIP string, responseTime int64, payloadSize, statusCode int) (models.LogEntry, error) {
	entry := models.LogEntry{
		URL:          url,
		Timestamp:    r.now().UnixMilli(),
		PayloadSize:  payloadSize,
		ResponseTime: responseTime,
		StatusCode:   statusCode,
		CallerIP:     callerIP,
	}

	id, err := r.db.AddEntry(ctx, entry)
	if err != nil {
		return models.LogEntry{}, err
	}
	entry.ID = id

	r.log.Infof("[calllog] IP: %s, URL: %s, status: %d, duration: %d ms, payload: %d bytes",
		callerIP, url, statusCode, responseTime, payloadSize)
	r.log.Debugf("[calllog] entry stored: %v", entry)

	if r.pub != nil {
		if err := r.pub.Publish(ctx, entry); err != nil {
			r.log.Errorf("[calllog] failed to publish entry %d: %v", entry.ID, err)
		}
	}

	return entry, nil
}
