package worker

import (
	"fmt"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/mail"
	"github.com/userhub/notifier/pkg/notification"
)

// Executor turns one task into an email. It returns a human-readable
// success message for the result store.
type Executor func(task *Task) (string, error)

// Executors builds the kind-to-executor table. Every kind in the catalog
// has exactly one executor; consumers reject kinds outside this table.
func Executors(sender mail.Sender, baseURL string) map[event.Kind]Executor {
	return map[event.Kind]Executor{
		event.KindEmailVerification:         verificationExecutor(sender, baseURL),
		event.KindAccountLocked:             accountLockedExecutor(sender),
		event.KindAccountUnlocked:           accountUnlockedExecutor(sender),
		event.KindRoleUpgrade:               roleUpgradeExecutor(sender),
		event.KindProfessionalStatusUpgrade: professionalStatusExecutor(sender),
	}
}

func verificationExecutor(sender mail.Sender, baseURL string) Executor {
	return func(task *Task) (string, error) {
		email := task.Payload.String("email", "")
		body, err := mail.RenderVerification(mail.VerificationParams{
			Name:  task.Payload.String("first_name", "User"),
			Email: email,
			VerificationURL: notification.VerificationURL(baseURL,
				task.Payload.String("id", ""), task.Payload.String("verification_token", "")),
		})
		if err != nil {
			return "", err
		}
		subject, err := mail.Subject(task.Kind)
		if err != nil {
			return "", err
		}
		if err := sender.Send(email, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("Verification email sent to %s", email), nil
	}
}

func accountLockedExecutor(sender mail.Sender) Executor {
	return func(task *Task) (string, error) {
		email := task.Payload.String("email", "")
		body, err := mail.RenderAccountLocked(mail.AccountLockedParams{
			Name:         task.Payload.String("first_name", "User"),
			Email:        email,
			SupportEmail: mail.SupportEmail,
		})
		if err != nil {
			return "", err
		}
		subject, err := mail.Subject(task.Kind)
		if err != nil {
			return "", err
		}
		if err := sender.Send(email, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("Account locked email sent to %s", email), nil
	}
}

func accountUnlockedExecutor(sender mail.Sender) Executor {
	return func(task *Task) (string, error) {
		email := task.Payload.String("email", "")
		body, err := mail.RenderAccountUnlocked(mail.AccountUnlockedParams{
			Name:  task.Payload.String("first_name", "User"),
			Email: email,
		})
		if err != nil {
			return "", err
		}
		subject, err := mail.Subject(task.Kind)
		if err != nil {
			return "", err
		}
		if err := sender.Send(email, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("Account unlocked email sent to %s", email), nil
	}
}

func roleUpgradeExecutor(sender mail.Sender) Executor {
	return func(task *Task) (string, error) {
		email := task.Payload.String("email", "")
		newRole := task.Payload.String("new_role", "")
		body, err := mail.RenderRoleUpgrade(mail.RoleUpgradeParams{
			Name:            task.Payload.String("first_name", "User"),
			Email:           email,
			NewRole:         newRole,
			RoleDescription: mail.RoleDescription(newRole),
		})
		if err != nil {
			return "", err
		}
		subject, err := mail.Subject(task.Kind)
		if err != nil {
			return "", err
		}
		if err := sender.Send(email, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("Role upgrade email sent to %s", email), nil
	}
}

func professionalStatusExecutor(sender mail.Sender) Executor {
	return func(task *Task) (string, error) {
		email := task.Payload.String("email", "")
		isProfessional := task.Payload.Bool("is_professional", false)
		body, err := mail.RenderProfessionalStatus(mail.ProfessionalStatusParams{
			Name:           task.Payload.String("first_name", "User"),
			Email:          email,
			IsProfessional: isProfessional,
			StatusText:     mail.ProfessionalStatusText(isProfessional),
		})
		if err != nil {
			return "", err
		}
		subject, err := mail.Subject(task.Kind)
		if err != nil {
			return "", err
		}
		if err := sender.Send(email, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("Professional status email sent to %s", email), nil
	}
}
