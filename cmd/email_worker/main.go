package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/config"
	"github.com/yudhapratama/contactbook/pkg/helpers"
	"github.com/yudhapratama/contactbook/pkg/mailer"
	tpl "github.com/yudhapratama/contactbook/pkg/mailer/templates"
)

// email_worker consumes EmailJob messages from RabbitMQ and delivers them
// through Mailgun. Jobs either carry a rendered body or name a template.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
		log.Fatal("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the email worker")
	}
	mgSender := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}
	if err := ch.Qos(5, 0, false); err != nil {
		log.Fatalf("failed to set qos: %v", err)
	}

	deliveries, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to start consumer: %v", err)
	}

	logger.Infof("email worker consuming from %q", cfg.RabbitMQEmailQueue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker shutting down")
			os.Exit(0)
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handleDelivery(ctx, logger, mgSender, d)
		}
	}
}

func handleDelivery(ctx context.Context, logger *logrus.Logger, mg *mailer.Mailgun, d amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Errorf("dropping malformed email job: %v", err)
		_ = d.Nack(false, false) // do not requeue garbage
		return
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = tpl.Render(job.Template, job.Data)
		if err != nil {
			logger.Errorf("render template %q: %v", job.Template, err)
			_ = d.Nack(false, false)
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := mg.Send(sendCtx, job.To, subject, text, html)
	cancel()
	if err != nil {
		logger.Errorf("send email to %s: %v", job.To, err)
		_ = d.Nack(false, true) // transient failure, requeue
		return
	}

	logger.Infof("email sent to %s (%s)", job.To, subject)
	_ = d.Ack(false)
}
