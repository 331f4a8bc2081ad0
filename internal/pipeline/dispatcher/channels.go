package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	httpclient "rfq-pipeline/internal/common/http"
	"rfq-pipeline/internal/models"
)

// Payload is the rendered notification content handed to a channel.
type Payload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Channel is one notification transport. Recipient reports whether the
// supplier is reachable on this channel; the dispatcher picks the first
// channel in priority order that returns ok.
type Channel interface {
	Name() models.Channel
	Recipient(supplier models.SupplierProfile) (string, bool)
	Send(ctx context.Context, recipient string, payload Payload) error
}

// SESService abstracts the SES client for testing.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService abstracts the SNS client for testing.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EmailChannel delivers via AWS SES. Only suppliers with a verified email
// address are reachable.
type EmailChannel struct {
	ses       SESService
	fromEmail string
}

func NewEmailChannel(sesClient SESService, fromEmail string) *EmailChannel {
	return &EmailChannel{ses: sesClient, fromEmail: fromEmail}
}

func (c *EmailChannel) Name() models.Channel { return models.ChannelEmail }

func (c *EmailChannel) Recipient(supplier models.SupplierProfile) (string, bool) {
	if supplier.Email == "" || !supplier.EmailVerified {
		return "", false
	}
	return supplier.Email, true
}

func (c *EmailChannel) Send(ctx context.Context, recipient string, payload Payload) error {
	input := &ses.SendEmailInput{
		Source: aws.String(c.fromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(payload.Subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(payload.Body)},
			},
		},
	}

	_, err := c.ses.SendEmail(ctx, input)
	return err
}

// SMSChannel delivers via AWS SNS to the supplier's phone number.
type SMSChannel struct {
	sns      SNSService
	senderID string
}

func NewSMSChannel(snsClient SNSService, senderID string) *SMSChannel {
	return &SMSChannel{sns: snsClient, senderID: senderID}
}

func (c *SMSChannel) Name() models.Channel { return models.ChannelSMS }

func (c *SMSChannel) Recipient(supplier models.SupplierProfile) (string, bool) {
	if supplier.Phone == "" {
		return "", false
	}
	return supplier.Phone, true
}

func (c *SMSChannel) Send(ctx context.Context, recipient string, payload Payload) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(payload.Body),
	}
	if c.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(c.senderID),
			},
		}
	}

	_, err := c.sns.Publish(ctx, input)
	return err
}

// WebhookChannel POSTs the payload as JSON to the supplier's webhook URL.
type WebhookChannel struct {
	client *httpclient.Client
}

func NewWebhookChannel(client *httpclient.Client) *WebhookChannel {
	return &WebhookChannel{client: client}
}

func (c *WebhookChannel) Name() models.Channel { return models.ChannelWebhook }

func (c *WebhookChannel) Recipient(supplier models.SupplierProfile) (string, bool) {
	if supplier.WebhookURL == "" {
		return "", false
	}
	return supplier.WebhookURL, true
}

func (c *WebhookChannel) Send(ctx context.Context, recipient string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, recipient, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.DoWithContext(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
