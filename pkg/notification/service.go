package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/mail"
	"github.com/userhub/notifier/pkg/metrics"
	"github.com/userhub/notifier/pkg/sink"
)

// FallbackMode says what to do when the sink rejects a publish.
type FallbackMode int

const (
	// FallbackLogOnly records the failure and moves on.
	FallbackLogOnly FallbackMode = iota
	// FallbackDirectSend sends the email over SMTP, skipping the broker.
	FallbackDirectSend
)

// FallbackPolicy maps each event kind to its fallback behavior.
type FallbackPolicy map[event.Kind]FallbackMode

// DefaultFallbackPolicy direct-sends the notifications a user is actively
// waiting on; the rest only log.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		event.KindEmailVerification:         FallbackDirectSend,
		event.KindAccountLocked:             FallbackDirectSend,
		event.KindAccountUnlocked:           FallbackLogOnly,
		event.KindRoleUpgrade:               FallbackLogOnly,
		event.KindProfessionalStatusUpgrade: FallbackLogOnly,
	}
}

// VerificationURL builds the link a user follows to confirm their address.
func VerificationURL(baseURL, userID, token string) string {
	return fmt.Sprintf("%s/verify-email/%s/%s", baseURL, userID, token)
}

// Service publishes account lifecycle events. Methods never return errors:
// a failed publish falls back per policy and is otherwise only logged, so
// callers in the signup/login path are not disturbed.
type Service struct {
	sink    sink.Sink
	sender  mail.Sender
	policy  FallbackPolicy
	baseURL string
	logger  *zap.SugaredLogger
}

// NewService wires the notification service. A nil policy means the default
// fallback policy.
func NewService(s sink.Sink, sender mail.Sender, policy FallbackPolicy, baseURL string, logger *zap.SugaredLogger) *Service {
	if policy == nil {
		policy = DefaultFallbackPolicy()
	}
	logger.Infow("notification service initialized", "sink", s.Name())
	return &Service{
		sink:    s,
		sender:  sender,
		policy:  policy,
		baseURL: baseURL,
		logger:  logger,
	}
}

// SendVerificationEmail publishes an email verification event.
func (s *Service) SendVerificationEmail(ctx context.Context, user User) {
	payload := event.Payload{
		"id":                 user.ID.String(),
		"email":              user.Email,
		"first_name":         user.FirstName,
		"verification_token": user.VerificationToken,
	}
	s.publish(ctx, event.KindEmailVerification, user, payload)
}

// SendAccountLockedNotification publishes an account locked event.
func (s *Service) SendAccountLockedNotification(ctx context.Context, user User) {
	payload := event.Payload{
		"id":         user.ID.String(),
		"email":      user.Email,
		"first_name": user.FirstName,
	}
	s.publish(ctx, event.KindAccountLocked, user, payload)
}

// SendAccountUnlockedNotification publishes an account unlocked event.
func (s *Service) SendAccountUnlockedNotification(ctx context.Context, user User) {
	payload := event.Payload{
		"id":         user.ID.String(),
		"email":      user.Email,
		"first_name": user.FirstName,
	}
	s.publish(ctx, event.KindAccountUnlocked, user, payload)
}

// SendRoleUpgradeNotification publishes a role change event.
func (s *Service) SendRoleUpgradeNotification(ctx context.Context, user User, newRole Role) {
	payload := event.Payload{
		"id":         user.ID.String(),
		"email":      user.Email,
		"first_name": user.FirstName,
		"new_role":   string(newRole),
	}
	s.publish(ctx, event.KindRoleUpgrade, user, payload)
}

// SendProfessionalStatusNotification publishes a professional status event.
func (s *Service) SendProfessionalStatusNotification(ctx context.Context, user User) {
	payload := event.Payload{
		"id":              user.ID.String(),
		"email":           user.Email,
		"first_name":      user.FirstName,
		"is_professional": user.IsProfessional,
	}
	s.publish(ctx, event.KindProfessionalStatusUpgrade, user, payload)
}

func (s *Service) publish(ctx context.Context, kind event.Kind, user User, payload event.Payload) {
	err := s.sink.Publish(ctx, kind, payload)
	if err == nil {
		s.logger.Infow("event published", "kind", string(kind), "email", user.Email)
		return
	}

	s.logger.Errorw("failed to publish event",
		"kind", string(kind), "email", user.Email, "error", err)

	if s.policy[kind] != FallbackDirectSend {
		return
	}
	s.directSend(kind, payload)
}

// directSend delivers the email over SMTP when the broker path failed. The
// email is built from the event payload, same as the worker would have.
func (s *Service) directSend(kind event.Kind, payload event.Payload) {
	subject, err := mail.Subject(kind)
	if err != nil {
		s.logger.Errorw("fallback skipped", "kind", string(kind), "error", err)
		return
	}

	name := payload.String("first_name", "User")
	email := payload.String("email", "")

	var body string
	switch kind {
	case event.KindEmailVerification:
		body, err = mail.RenderVerification(mail.VerificationParams{
			Name:  name,
			Email: email,
			VerificationURL: VerificationURL(s.baseURL,
				payload.String("id", ""), payload.String("verification_token", "")),
		})
	case event.KindAccountLocked:
		body, err = mail.RenderAccountLocked(mail.AccountLockedParams{
			Name:         name,
			Email:        email,
			SupportEmail: mail.SupportEmail,
		})
	case event.KindAccountUnlocked:
		body, err = mail.RenderAccountUnlocked(mail.AccountUnlockedParams{
			Name:  name,
			Email: email,
		})
	case event.KindRoleUpgrade:
		newRole := payload.String("new_role", "")
		body, err = mail.RenderRoleUpgrade(mail.RoleUpgradeParams{
			Name:            name,
			Email:           email,
			NewRole:         newRole,
			RoleDescription: mail.RoleDescription(newRole),
		})
	case event.KindProfessionalStatusUpgrade:
		isProfessional := payload.Bool("is_professional", false)
		body, err = mail.RenderProfessionalStatus(mail.ProfessionalStatusParams{
			Name:           name,
			Email:          email,
			IsProfessional: isProfessional,
			StatusText:     mail.ProfessionalStatusText(isProfessional),
		})
	default:
		s.logger.Errorw("no direct-send template for kind", "kind", string(kind))
		return
	}
	if err != nil {
		s.logger.Errorw("fallback template rendering failed",
			"kind", string(kind), "email", email, "error", err)
		return
	}

	if err := s.sender.Send(email, subject, body); err != nil {
		s.logger.Errorw("fallback direct send failed",
			"kind", string(kind), "email", email, "error", err)
		return
	}

	metrics.FallbackSends.WithLabelValues(string(kind)).Inc()
	s.logger.Infow("fallback email sent directly", "kind", string(kind), "email", email)
}
