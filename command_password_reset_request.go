package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (p RequestPasswordResetMessage) Type() string { return "user.password_reset.request" }

func (p RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// RequestPasswordResetResponse deliberately carries no hint of whether
// the account exists; unknown emails produce the exact same shape.
type RequestPasswordResetResponse struct {
	Success bool
}

type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewRequestPasswordResetHandler creates a handler with sane defaults.
func NewRequestPasswordResetHandler(repo RepositoryManager) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the channel reset tokens are delivered through.
func (h *RequestPasswordResetHandler) WithNotifier(n Notifier) *RequestPasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	resp := &RequestPasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password reset request")
	}

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// same success response as for existing accounts, so the
			// endpoint cannot be used to enumerate accounts
			h.respond(event, resp)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := h.repo.ResetTokens().RequestReset(ctx, user.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create reset token")
	}

	if err := h.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		// delivery failures must not reveal anything to the requester
		h.logger.Error("password reset notification error: %v", err)
	}

	h.recordActivity(ctx, user)

	h.respond(event, resp)
	return nil
}

func (h *RequestPasswordResetHandler) respond(event RequestPasswordResetMessage, resp *RequestPasswordResetResponse) {
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
}

func (h *RequestPasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
