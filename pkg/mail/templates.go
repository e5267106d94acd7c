package mail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/userhub/notifier/pkg/event"
)

// VerificationParams fills the account verification email.
type VerificationParams struct {
	Name            string
	Email           string
	VerificationURL string
}

// AccountLockedParams fills the account locked email.
type AccountLockedParams struct {
	Name         string
	Email        string
	SupportEmail string
}

// AccountUnlockedParams fills the account unlocked email.
type AccountUnlockedParams struct {
	Name  string
	Email string
}

// RoleUpgradeParams fills the role change email.
type RoleUpgradeParams struct {
	Name            string
	Email           string
	NewRole         string
	RoleDescription string
}

// ProfessionalStatusParams fills the professional status email.
type ProfessionalStatusParams struct {
	Name           string
	Email          string
	IsProfessional bool
	StatusText     string
}

var (
	verificationTemplate       = template.New("verification")
	accountLockedTemplate      = template.New("accountLocked")
	accountUnlockedTemplate    = template.New("accountUnlocked")
	roleUpgradeTemplate        = template.New("roleUpgrade")
	professionalStatusTemplate = template.New("professionalStatus")

	//go:embed templates/email_verification.html
	verificationTemplateRaw string
	//go:embed templates/account_locked.html
	accountLockedTemplateRaw string
	//go:embed templates/account_unlocked.html
	accountUnlockedTemplateRaw string
	//go:embed templates/role_upgrade.html
	roleUpgradeTemplateRaw string
	//go:embed templates/professional_status_upgrade.html
	professionalStatusTemplateRaw string
)

func init() {
	if _, err := verificationTemplate.Parse(verificationTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := accountLockedTemplate.Parse(accountLockedTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := accountUnlockedTemplate.Parse(accountUnlockedTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := roleUpgradeTemplate.Parse(roleUpgradeTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := professionalStatusTemplate.Parse(professionalStatusTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

func RenderVerification(p VerificationParams) (string, error) {
	return render(verificationTemplate, p)
}

func RenderAccountLocked(p AccountLockedParams) (string, error) {
	return render(accountLockedTemplate, p)
}

func RenderAccountUnlocked(p AccountUnlockedParams) (string, error) {
	return render(accountUnlockedTemplate, p)
}

func RenderRoleUpgrade(p RoleUpgradeParams) (string, error) {
	return render(roleUpgradeTemplate, p)
}

func RenderProfessionalStatus(p ProfessionalStatusParams) (string, error) {
	return render(professionalStatusTemplate, p)
}

var subjects = map[event.Kind]string{
	event.KindEmailVerification:         "Verify Your Account",
	event.KindAccountLocked:             "Account Locked Notification",
	event.KindAccountUnlocked:           "Account Unlocked Notification",
	event.KindRoleUpgrade:               "Role Update Notification",
	event.KindProfessionalStatusUpgrade: "Professional Status Update",
}

// Subject returns the email subject line for a notification kind.
func Subject(kind event.Kind) (string, error) {
	s, ok := subjects[kind]
	if !ok {
		return "", fmt.Errorf("no subject for notification kind %q", kind)
	}
	return s, nil
}

var roleDescriptions = map[string]string{
	"AUTHENTICATED": "regular authenticated user",
	"MANAGER":       "manager with additional privileges",
	"ADMIN":         "administrator with full system access",
}

// RoleDescription returns the human-readable description shown in role
// change emails. Unknown roles fall back to a generic description.
func RoleDescription(role string) string {
	if d, ok := roleDescriptions[role]; ok {
		return d
	}
	return "user with updated permissions"
}

// ProfessionalStatusText renders the direction of a professional status
// change.
func ProfessionalStatusText(isProfessional bool) string {
	if isProfessional {
		return "upgraded to professional status"
	}
	return "changed from professional status"
}

// SupportEmail is the contact address shown in account locked emails.
const SupportEmail = "support@example.com"
