package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// EmailService handles sending emails via SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	appURL   string
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	return &EmailService{
		host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnvOrDefault("SMTP_FROM", "noreply@lms.aparai.tech"),
		appURL:   getEnvOrDefault("APP_URL", "http://localhost:3000"),
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendEnrollmentConfirmation sends a confirmation email after a
// successful purchase. Callers treat failures as non-fatal.
func (e *EmailService) SendEnrollmentConfirmation(toEmail, userName, courseTitle string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured, skipping enrollment email for %s", toEmail)
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("You're enrolled in %s", courseTitle)
	body := e.buildEnrollmentEmailBody(userName, courseTitle)

	return e.sendEmail(toEmail, subject, body)
}

// buildEnrollmentEmailBody creates the HTML email body for the enrollment confirmation
func (e *EmailService) buildEnrollmentEmailBody(userName, courseTitle string) string {
	if userName == "" {
		userName = "Student"
	}

	coursesLink := fmt.Sprintf("%s/my-enrollments", e.appURL)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Enrollment Confirmed</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Arial,Helvetica,sans-serif;">
    <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
        <tr>
            <td align="center" style="padding:32px 16px;">
                <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
                    <tr>
                        <td style="background:#1f2937;padding:24px 32px;">
                            <h1 style="margin:0;color:#ffffff;font-size:20px;">Enrollment Confirmed</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding:32px;">
                            <p style="margin:0 0 16px;color:#111827;font-size:15px;">Hi %s,</p>
                            <p style="margin:0 0 16px;color:#374151;font-size:15px;line-height:1.5;">
                                Your payment went through and you now have full access to
                                <strong>%s</strong>. All lectures and course resources are
                                unlocked for your account.
                            </p>
                            <p style="margin:0 0 24px;color:#374151;font-size:15px;line-height:1.5;">
                                Head over to your enrollments to start learning.
                            </p>
                            <a href="%s" style="display:inline-block;background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 24px;border-radius:6px;font-size:15px;">Go to my courses</a>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding:16px 32px;background:#f9fafb;">
                            <p style="margin:0;color:#9ca3af;font-size:12px;">
                                If you did not make this purchase, reply to this email and we will look into it.
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`, userName, courseTitle, coursesLink)
}

func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("Aparai LMS <%s>", e.from)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Printf("Enrollment confirmation email sent to: %s", to)
	return nil
}
