// Package email entrega los códigos one-time fuera de banda.
//
//	accounts ──► Notifier ──► Sender (SMTPSender | LogSender)
//
// Notifier arma el mensaje (asunto + templates txt/html) y Sender lo envía.
// Sin SMTP configurado se usa LogSender, que solo registra el envío.
package email
