package services

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"pulsecrm/internal/config"
	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EmailService delivers outbound automation email over SMTP and keeps an
// EmailMessage audit row per attempt. With SMTP disabled in config it logs
// the message instead of delivering, which is what dev and test setups run.
type EmailService struct {
	cfg    config.SMTPConfig
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEmailService(cfg config.SMTPConfig, db *gorm.DB, logger *logrus.Logger) *EmailService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EmailService{cfg: cfg, db: db, logger: logger}
}

// Send delivers one message. A delivery failure is recorded and returned so
// the action executor reports it as a failed action.
func (s *EmailService) Send(ctx context.Context, msg OutboundEmail) error {
	var sendErr error
	if s.cfg.Enabled {
		sendErr = s.deliver(msg)
	} else {
		s.logger.Infof("email (smtp disabled): to=%s subject=%q", msg.To, msg.Subject)
	}
	s.record(ctx, msg, sendErr)
	return sendErr
}

func (s *EmailService) deliver(msg OutboundEmail) error {
	from := s.cfg.FromAddress
	body := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		s.cfg.FromName, from, msg.To, msg.Subject, msg.Body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *EmailService) record(ctx context.Context, msg OutboundEmail, sendErr error) {
	if s.db == nil {
		return
	}
	row := &models.EmailMessage{
		UserID:       msg.UserID,
		ContactID:    msg.ContactID,
		AutomationID: msg.AutomationID,
		ToAddress:    msg.To,
		Subject:      msg.Subject,
		Body:         msg.Body,
		Status:       "sent",
		CreatedAt:    time.Now(),
	}
	if sendErr != nil {
		row.Status = "failed"
		row.Error = sendErr.Error()
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.logger.Warnf("email: record message failed: %v", err)
	}
}
