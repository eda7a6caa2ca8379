package services

import (
	"fmt"

	"tradehub_backend/internal/email"
)

// EmailService - уведомления, привязанные к событиям продукта.
// Все отправки best-effort: вызывающий код логирует ошибку и продолжает.
type EmailService interface {
	SendInvite(to, companyName, inviteToken string) error
	SendWelcome(to, userName string) error
	SendPaymentFailedNotice(to, companyName string) error
}

type EmailServiceImpl struct {
	sender email.Sender
}

func NewEmailService(sender email.Sender) EmailService {
	return &EmailServiceImpl{sender: sender}
}

func (s *EmailServiceImpl) SendInvite(to, companyName, inviteToken string) error {
	subject := fmt.Sprintf("You have been invited to join %s on TradeHub", companyName)
	body := fmt.Sprintf(
		"<p>You have been invited to join <b>%s</b> on TradeHub.</p>"+
			"<p>Use the code below to activate your account:</p>"+
			"<p><code>%s</code></p>"+
			"<p>The invitation expires in 7 days.</p>",
		companyName, inviteToken,
	)
	return s.sender.Send(to, subject, body)
}

func (s *EmailServiceImpl) SendWelcome(to, userName string) error {
	subject := "Welcome to TradeHub"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your TradeHub account is ready. "+
			"Log in to set up your company and start managing jobs.</p>",
		userName,
	)
	return s.sender.Send(to, subject, body)
}

func (s *EmailServiceImpl) SendPaymentFailedNotice(to, companyName string) error {
	subject := "Payment failed for your TradeHub subscription"
	body := fmt.Sprintf(
		"<p>The latest payment for <b>%s</b> did not go through.</p>"+
			"<p>Please update your payment method to keep your subscription active. "+
			"We will retry the charge automatically.</p>",
		companyName,
	)
	return s.sender.Send(to, subject, body)
}
