package workerproc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/documents"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/weburis"
)

// Kinds of sync result.
const (
	KindDocument = "document"
	KindWebURI   = "weburi"
)

// Subjects is what the worker subscribes to.
var Subjects = []string{
	queue.SubjectSyncResults,
	queue.SubjectMessengerEvents,
	queue.SubjectMetaWebhook,
}

// SyncResult reports the outcome of an external sync.
type SyncResult struct {
	Kind       string `json:"kind"`
	CompanyID  string `json:"companyId"`
	Filename   string `json:"filename,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
	Status     string `json:"status"`
}

// ErrDecode indicates a payload that cannot be decoded.
type ErrDecode struct {
	EventID string
	Err     error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode sync result"
	}
	return "decode sync result: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidResult indicates a decoded result that names no target or an unknown status.
type ErrInvalidResult struct {
	EventID string
	Reason  string
}

func (e ErrInvalidResult) Error() string { return "invalid sync result: " + e.Reason }

// DocumentMover moves a document to the folder for a status.
type DocumentMover interface {
	MoveTo(ctx context.Context, companyID, filename string, status documents.Status) (documents.Document, error)
}

// WebURIStatusSetter updates a web resource's sync status.
type WebURIStatusSetter interface {
	SetStatus(ctx context.Context, companyID, id string, status weburis.Status) (weburis.Resource, error)
}

// Processor applies delivered events.
type Processor struct {
	Documents DocumentMover
	WebURIs   WebURIStatusSetter
	Now       func() time.Time
}

// ParseSyncResult decodes and validates a sync.results payload.
func ParseSyncResult(ev queue.Event) (SyncResult, error) {
	var res SyncResult
	if err := ev.DecodePayload(&res); err != nil {
		return SyncResult{}, ErrDecode{EventID: ev.ID, Err: err}
	}
	res.Kind = strings.ToLower(strings.TrimSpace(res.Kind))
	res.CompanyID = strings.TrimSpace(res.CompanyID)
	if res.CompanyID == "" {
		res.CompanyID = strings.TrimSpace(ev.CompanyID)
	}
	if res.CompanyID == "" {
		return res, ErrInvalidResult{EventID: ev.ID, Reason: "missing companyId"}
	}
	switch res.Kind {
	case KindDocument:
		if strings.TrimSpace(res.Filename) == "" {
			return res, ErrInvalidResult{EventID: ev.ID, Reason: "missing filename"}
		}
		if _, ok := documents.ParseStatus(res.Status); !ok {
			return res, ErrInvalidResult{EventID: ev.ID, Reason: fmt.Sprintf("unknown status %q", res.Status)}
		}
	case KindWebURI:
		if strings.TrimSpace(res.ResourceID) == "" {
			return res, ErrInvalidResult{EventID: ev.ID, Reason: "missing resourceId"}
		}
		if _, ok := weburis.ParseStatus(res.Status); !ok {
			return res, ErrInvalidResult{EventID: ev.ID, Reason: fmt.Sprintf("unknown status %q", res.Status)}
		}
	default:
		return res, ErrInvalidResult{EventID: ev.ID, Reason: fmt.Sprintf("unknown kind %q", res.Kind)}
	}
	return res, nil
}

// Handle is a queue.Handler. Failures redelivery cannot fix are marked permanent.
func (p *Processor) Handle(ctx context.Context, subject string, ev queue.Event) error {
	start := p.now()
	ctx = telemetry.WithRequestID(ctx, ev.RequestID)

	var err error
	switch subject {
	case queue.SubjectSyncResults:
		err = p.applySyncResult(ctx, ev)
	case queue.SubjectMessengerEvents, queue.SubjectMetaWebhook:
		telemetry.Info("worker.event.received", map[string]any{
			"subject":     subject,
			"event_id":    ev.ID,
			"company_id":  ev.CompanyID,
			"request_id":  ev.RequestID,
			"payload_len": len(ev.Payload),
		})
	default:
		err = queue.Permanent(fmt.Errorf("unhandled subject %q", subject))
	}

	outcome := "completed"
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrPermanent):
		outcome = "discarded"
	default:
		outcome = "failed"
	}
	metrics.ObserveJob(subject, outcome, p.now().Sub(start))
	return err
}

func (p *Processor) applySyncResult(ctx context.Context, ev queue.Event) error {
	res, err := ParseSyncResult(ev)
	if err != nil {
		telemetry.Error("worker.sync.invalid", map[string]any{"event_id": ev.ID, "error": err})
		return queue.Permanent(err)
	}
	fields := map[string]any{
		"event_id":   ev.ID,
		"kind":       res.Kind,
		"company_id": res.CompanyID,
		"status":     res.Status,
	}

	switch res.Kind {
	case KindDocument:
		if p.Documents == nil {
			return errors.New("documents service not configured")
		}
		status, _ := documents.ParseStatus(res.Status)
		fields["filename"] = res.Filename
		if _, err := p.Documents.MoveTo(ctx, res.CompanyID, res.Filename, status); err != nil {
			if errors.Is(err, documents.ErrNotFound) || errors.Is(err, documents.ErrInvalidInput) {
				return queue.Permanent(err)
			}
			return err
		}
	case KindWebURI:
		if p.WebURIs == nil {
			return errors.New("weburi service not configured")
		}
		status, _ := weburis.ParseStatus(res.Status)
		fields["resource_id"] = res.ResourceID
		if _, err := p.WebURIs.SetStatus(ctx, res.CompanyID, res.ResourceID, status); err != nil {
			if errors.Is(err, weburis.ErrNotFound) {
				return queue.Permanent(err)
			}
			return err
		}
	}
	telemetry.Info("worker.sync.applied", fields)
	return nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
