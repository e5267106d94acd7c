package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/userhub/notifier/pkg/config"
	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/mail"
	"github.com/userhub/notifier/pkg/notification"
	"github.com/userhub/notifier/pkg/sink"
	"github.com/userhub/notifier/pkg/system"
)

type sendOptions struct {
	Kind         string
	UserID       string
	Email        string
	Name         string
	Token        string
	Role         string
	Professional bool
}

func newSendCommand(opts *rootOptions) *cobra.Command {
	send := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a single notification event",
		Long:  "Builds the producer stack and publishes one event, mainly for smoke-testing a deployment.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd.Context(), opts, send)
		},
	}

	cmd.Flags().StringVar(&send.Kind, "kind", "", "Event kind (email_verification, account_locked, account_unlocked, role_upgrade, professional_status_upgrade)")
	cmd.Flags().StringVar(&send.UserID, "user-id", "", "User ID (defaults to a random UUID)")
	cmd.Flags().StringVar(&send.Email, "email", "", "Recipient email address")
	cmd.Flags().StringVar(&send.Name, "name", "", "Recipient first name")
	cmd.Flags().StringVar(&send.Token, "token", "", "Verification token (email_verification only)")
	cmd.Flags().StringVar(&send.Role, "role", string(notification.RoleAuthenticated), "New role (role_upgrade only)")
	cmd.Flags().BoolVar(&send.Professional, "professional", false, "New professional status (professional_status_upgrade only)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runSend(ctx context.Context, opts *rootOptions, send *sendOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading notifier config: %w", err)
	}

	log := system.NewLogger(opts.Debug)
	defer func() { _ = log.Sync() }()

	userID := uuid.New()
	if send.UserID != "" {
		userID, err = uuid.Parse(send.UserID)
		if err != nil {
			return fmt.Errorf("invalid --user-id: %w", err)
		}
	}

	kafkaSink, err := sink.NewKafkaSink(sink.KafkaSinkConfig{
		Name:         "notifier-send",
		Brokers:      cfg.Broker.Addresses,
		WriteTimeout: cfg.Broker.WriteTimeout,
	}, log.Desugar())
	if err != nil {
		return fmt.Errorf("building Kafka sink: %w", err)
	}
	defer func() { _ = kafkaSink.Close() }()

	breaker := sink.NewBreakerSink(kafkaSink, sink.BreakerConfig{}, log.Desugar())
	capture := sink.NewRecorderSink()
	gate := sink.NewGate(cfg.TestModeProbe())
	gated := sink.NewGatedSink(breaker, capture, gate, log.Desugar())

	sender := mail.NewSender(cfg.Mail)
	svc := notification.NewService(gated, sender, nil, cfg.Server.BaseURL, log)

	user := notification.User{
		ID:                userID,
		Email:             send.Email,
		FirstName:         send.Name,
		VerificationToken: send.Token,
		IsProfessional:    send.Professional,
	}

	switch event.Kind(send.Kind) {
	case event.KindEmailVerification:
		svc.SendVerificationEmail(ctx, user)
	case event.KindAccountLocked:
		svc.SendAccountLockedNotification(ctx, user)
	case event.KindAccountUnlocked:
		svc.SendAccountUnlockedNotification(ctx, user)
	case event.KindRoleUpgrade:
		svc.SendRoleUpgradeNotification(ctx, user, notification.Role(send.Role))
	case event.KindProfessionalStatusUpgrade:
		svc.SendProfessionalStatusNotification(ctx, user)
	default:
		return fmt.Errorf("unknown event kind %q", send.Kind)
	}

	if n := capture.Len(); n > 0 {
		log.Infow("Event captured instead of published", "captured", n)
	}
	return nil
}
