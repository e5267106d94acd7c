package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/sink"
)

// failSink rejects every publish.
type failSink struct{}

func (failSink) Publish(context.Context, event.Kind, event.Payload) error {
	return errors.New("broker unreachable")
}

func (failSink) Close() error { return nil }

func (failSink) Name() string { return "fail" }

// fakeSender records sent mails.
type fakeSender struct {
	mu    sync.Mutex
	sends []sentMail
	err   error
}

type sentMail struct {
	recipient string
	subject   string
	body      string
}

func (f *fakeSender) Send(recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, sentMail{recipient, subject, body})
	return nil
}

func (f *fakeSender) GetHost() string { return "fake" }

func (f *fakeSender) GetPort() int { return 0 }

func (f *fakeSender) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sends))
	copy(out, f.sends)
	return out
}

func testUser() User {
	return User{
		ID:                uuid.MustParse("a6f2e8d4-1b3c-4a5e-9f70-123456789abc"),
		Email:             "ada@example.com",
		FirstName:         "Ada",
		VerificationToken: "tok-123",
	}
}

func TestService_PublishesVerificationEvent(t *testing.T) {
	recorder := sink.NewRecorderSink()
	sender := &fakeSender{}
	svc := NewService(recorder, sender, nil, "http://localhost:8000", zaptest.NewLogger(t).Sugar())

	svc.SendVerificationEmail(context.Background(), testUser())

	records := recorder.All()
	require.Len(t, records, 1)
	assert.Equal(t, event.KindEmailVerification, records[0].Kind)
	assert.Equal(t, "a6f2e8d4-1b3c-4a5e-9f70-123456789abc", records[0].Payload.String("id", ""))
	assert.Equal(t, "ada@example.com", records[0].Payload.String("email", ""))
	assert.Equal(t, "tok-123", records[0].Payload.String("verification_token", ""))

	// No fallback when the sink accepts the event.
	assert.Empty(t, sender.all())
}

func TestService_PublishesAllKinds(t *testing.T) {
	recorder := sink.NewRecorderSink()
	svc := NewService(recorder, &fakeSender{}, nil, "http://localhost:8000", zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	user := testUser()

	svc.SendVerificationEmail(ctx, user)
	svc.SendAccountLockedNotification(ctx, user)
	svc.SendAccountUnlockedNotification(ctx, user)
	svc.SendRoleUpgradeNotification(ctx, user, RoleAdmin)
	svc.SendProfessionalStatusNotification(ctx, user)

	records := recorder.All()
	require.Len(t, records, 5)
	assert.Equal(t, event.KindRoleUpgrade, records[3].Kind)
	assert.Equal(t, "ADMIN", records[3].Payload.String("new_role", ""))
	assert.Equal(t, event.KindProfessionalStatusUpgrade, records[4].Kind)
	assert.False(t, records[4].Payload.Bool("is_professional", true))
}

func TestService_FallbackDirectSendOnPublishFailure(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(failSink{}, sender, nil, "https://app.example.com", zaptest.NewLogger(t).Sugar())

	svc.SendVerificationEmail(context.Background(), testUser())

	sends := sender.all()
	require.Len(t, sends, 1, "fallback must send exactly once")
	assert.Equal(t, "ada@example.com", sends[0].recipient)
	assert.Equal(t, "Verify Your Account", sends[0].subject)
	assert.Contains(t, sends[0].body,
		"https://app.example.com/verify-email/a6f2e8d4-1b3c-4a5e-9f70-123456789abc/tok-123")
}

func TestService_FallbackDirectSendAccountLocked(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(failSink{}, sender, nil, "https://app.example.com", zaptest.NewLogger(t).Sugar())

	svc.SendAccountLockedNotification(context.Background(), testUser())

	sends := sender.all()
	require.Len(t, sends, 1)
	assert.Equal(t, "Account Locked Notification", sends[0].subject)
	assert.Contains(t, sends[0].body, "support@example.com")
}

func TestService_LogOnlyKindsDoNotDirectSend(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(failSink{}, sender, nil, "https://app.example.com", zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	user := testUser()

	svc.SendAccountUnlockedNotification(ctx, user)
	svc.SendRoleUpgradeNotification(ctx, user, RoleManager)
	svc.SendProfessionalStatusNotification(ctx, user)

	assert.Empty(t, sender.all())
}

func TestService_CustomPolicy(t *testing.T) {
	sender := &fakeSender{}
	policy := FallbackPolicy{
		event.KindAccountUnlocked: FallbackDirectSend,
	}
	svc := NewService(failSink{}, sender, policy, "https://app.example.com", zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	user := testUser()

	// Verification is not in the custom policy, so it only logs.
	svc.SendVerificationEmail(ctx, user)
	assert.Empty(t, sender.all())

	svc.SendAccountUnlockedNotification(ctx, user)
	sends := sender.all()
	require.Len(t, sends, 1)
	assert.Equal(t, "Account Unlocked Notification", sends[0].subject)
}

func TestService_FallbackSendFailureDoesNotPanic(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	svc := NewService(failSink{}, sender, nil, "https://app.example.com", zaptest.NewLogger(t).Sugar())

	svc.SendVerificationEmail(context.Background(), testUser())
	assert.Empty(t, sender.all())
}

func TestVerificationURL(t *testing.T) {
	url := VerificationURL("https://app.example.com", "u1", "tok")
	assert.Equal(t, "https://app.example.com/verify-email/u1/tok", url)
}
