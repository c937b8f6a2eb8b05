// Package report implements the shared outcome reporting used by every
// workflow: a message/error status pair, operator logging and an optional
// transient user notice. UI layers never format saga errors themselves.
package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/i18n"
	"github.com/danuputra/tokoku/internal/toast"
)

// Status is the shared message/error pair every workflow writes through the
// Reporter. Error is empty after a success.
type Status struct {
	mu      sync.RWMutex
	message string
	err     string
}

// Snapshot returns the current message and error.
func (s *Status) Snapshot() (message, errText string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message, s.err
}

// Reset clears both fields, typically right before a workflow starts.
func (s *Status) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""
	s.err = ""
}

func (s *Status) set(message, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.err = errText
}

type options struct {
	customMessage string
	showToast     bool
	toastDuration time.Duration
}

// Option tweaks a single report call.
type Option func(*options)

// WithCustomMessage overrides the templated operation message.
func WithCustomMessage(message string) Option {
	return func(o *options) { o.customMessage = message }
}

// WithoutToast suppresses the transient notice for this report.
func WithoutToast() Option {
	return func(o *options) { o.showToast = false }
}

// WithToastDuration overrides the notice lifetime.
func WithToastDuration(d time.Duration) Option {
	return func(o *options) { o.toastDuration = d }
}

// Reporter normalizes workflow outcomes into the shared status, the operator
// log and the toast queue. Its methods never fail and never panic on nil
// collaborators.
type Reporter struct {
	status *Status
	toasts *toast.Queue
	tr     i18n.Translator
	errs   *apperrors.Handler
	log    *slog.Logger
}

// New constructs a Reporter. Sentry escalation follows whether a Sentry
// client is bound to the current hub.
func New(status *Status, toasts *toast.Queue, tr i18n.Translator, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}

	return &Reporter{
		status: status,
		toasts: toasts,
		tr:     tr,
		errs:   apperrors.NewHandler(log, sentry.CurrentHub().Client() != nil),
		log:    log,
	}
}

// Status exposes the shared status for readers (UI bindings, tests).
func (r *Reporter) Status() *Status {
	return r.status
}

// Success records a successful operation. op is an i18n operation key, e.g.
// "register".
func (r *Reporter) Success(ctx context.Context, op string, opts ...Option) {
	if r == nil {
		return
	}

	o := options{showToast: true}
	for _, opt := range opts {
		opt(&o)
	}

	message := o.customMessage
	if message == "" {
		message = r.translate("report.success", op)
	}

	if r.status != nil {
		r.status.set(message, "")
	}

	if o.showToast && r.toasts != nil {
		r.toasts.Show(message, "", o.toastDuration)
	}
}

// Failure records a failed operation. The underlying error is logged with
// its code and severity; the user-facing texts come from the error taxonomy.
func (r *Reporter) Failure(ctx context.Context, op string, err error, opts ...Option) {
	if r == nil {
		return
	}

	o := options{showToast: true}
	for _, opt := range opts {
		opt(&o)
	}

	message := o.customMessage
	if message == "" {
		message = r.translate("report.failure", op)
	}

	errText := "Terjadi kesalahan!"
	if r.tr != nil {
		errText = r.tr.T("report.unknown_error")
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr != nil && appErr.UserMessage != "" {
		errText = appErr.UserMessage
	}

	if r.status != nil {
		r.status.set(message, errText)
	}

	if err != nil {
		r.log.ErrorContext(ctx, "operation failed", slog.String("operation", op))
		r.errs.Handle(ctx, err)
	}

	if o.showToast && r.toasts != nil {
		r.toasts.Show(message, errText, o.toastDuration)
	}
}

func (r *Reporter) translate(templateKey, op string) string {
	if r.tr == nil {
		return op
	}

	return r.tr.Tf(templateKey, r.tr.T("op."+op))
}
