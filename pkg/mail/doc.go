// Package mail provides email delivery for the notifier, including SMTP
// sending with retry logic and HTML template rendering for every
// notification kind.
package mail
