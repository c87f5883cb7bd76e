// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
)

type NotificationService struct {
	cfg *config.Config
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{cfg: cfg}
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<h2>¡Bienvenido a CISNET, {{.Name}}!</h2>
<p>Tu cuenta ha sido creada. Ya puedes explorar nuestro catálogo de software y realizar compras.</p>
<p>— El equipo de CISNET</p>
`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(`
<h2>Recuperación de contraseña</h2>
<p>Hola {{.Name}},</p>
<p>Recibimos una solicitud para restablecer tu contraseña. El enlace vence en 1 hora:</p>
<p><a href="{{.ResetURL}}">Restablecer contraseña</a></p>
<p>Si no solicitaste este cambio, ignora este correo.</p>
`))

var purchaseTemplate = template.Must(template.New("purchase").Parse(`
<h2>Gracias por tu compra, {{.Name}}</h2>
<p>Orden <strong>{{.OrderID}}</strong> por un total de <strong>${{printf "%.2f" .Total}}</strong>.</p>
<ul>
{{range .Products}}<li>{{.Name}} — ${{printf "%.2f" .Price}}</li>{{end}}
</ul>
<p>El acceso a tus archivos fue otorgado a esta dirección de correo. Revisa la carpeta compartida en tu Google Drive.</p>
`))

func (s *NotificationService) SendWelcomeEmail(email, name string) {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, map[string]interface{}{"Name": name}); err != nil {
		logrus.WithError(err).Error("Failed to render welcome email")
		return
	}
	s.send(email, "Bienvenido a CISNET", body.String())
}

func (s *NotificationService) SendPasswordResetEmail(email, name, token string) {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.Frontend.BaseURL, token)

	var body bytes.Buffer
	err := passwordResetTemplate.Execute(&body, map[string]interface{}{
		"Name":     name,
		"ResetURL": resetURL,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to render password reset email")
		return
	}
	s.send(email, "Recuperación de contraseña", body.String())
}

func (s *NotificationService) SendPurchaseConfirmation(email, name string, order *models.Order, products []models.Product) {
	var body bytes.Buffer
	err := purchaseTemplate.Execute(&body, map[string]interface{}{
		"Name":     name,
		"OrderID":  order.ID.String(),
		"Total":    order.TotalAmount,
		"Products": products,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to render purchase confirmation email")
		return
	}
	s.send(email, "Confirmación de compra", body.String())
}

// send delivers a single HTML email. Without SMTP credentials the message
// is logged instead so local development works without a mail server.
func (s *NotificationService) send(to, subject, htmlBody string) {
	if s.cfg.Email.SMTPUsername == "" || s.cfg.Email.SMTPPassword == "" {
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("SMTP not configured, skipping email delivery")
		return
	}

	from := s.cfg.Email.FromEmail
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.cfg.Email.FromName, from, to, subject, htmlBody)

	addr := s.cfg.Email.SMTPHost + ":" + s.cfg.Email.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.Email.SMTPUsername, s.cfg.Email.SMTPPassword, s.cfg.Email.SMTPHost)

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		logrus.WithError(err).WithField("to", to).Error("Failed to send email")
		return
	}

	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email sent")
}
