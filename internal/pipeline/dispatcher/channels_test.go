package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "rfq-pipeline/internal/common/http"
	"rfq-pipeline/internal/models"
)

type mockSES struct {
	lastInput *ses.SendEmailInput
	err       error
}

func (m *mockSES) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	lastInput *sns.PublishInput
	err       error
}

func (m *mockSNS) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

func TestEmailChannel_RequiresVerifiedEmail(t *testing.T) {
	ch := NewEmailChannel(&mockSES{}, "rfq@platform.test")

	_, ok := ch.Recipient(models.SupplierProfile{Email: "a@test", EmailVerified: false})
	assert.False(t, ok)

	_, ok = ch.Recipient(models.SupplierProfile{EmailVerified: true})
	assert.False(t, ok)

	recipient, ok := ch.Recipient(models.SupplierProfile{Email: "a@test", EmailVerified: true})
	assert.True(t, ok)
	assert.Equal(t, "a@test", recipient)
}

func TestEmailChannel_SendBuildsSESInput(t *testing.T) {
	mock := &mockSES{}
	ch := NewEmailChannel(mock, "rfq@platform.test")

	err := ch.Send(context.Background(), "acme@test", Payload{Subject: "s", Body: "b"})
	require.NoError(t, err)

	require.NotNil(t, mock.lastInput)
	assert.Equal(t, "rfq@platform.test", *mock.lastInput.Source)
	assert.Equal(t, []string{"acme@test"}, mock.lastInput.Destination.ToAddresses)
	assert.Equal(t, "s", *mock.lastInput.Message.Subject.Data)
	assert.Equal(t, "b", *mock.lastInput.Message.Body.Text.Data)
}

func TestSMSChannel_SendPublishes(t *testing.T) {
	mock := &mockSNS{}
	ch := NewSMSChannel(mock, "RFQ")

	recipient, ok := ch.Recipient(models.SupplierProfile{Phone: "+91999"})
	require.True(t, ok)

	err := ch.Send(context.Background(), recipient, Payload{Body: "you matched"})
	require.NoError(t, err)

	require.NotNil(t, mock.lastInput)
	assert.Equal(t, "+91999", *mock.lastInput.PhoneNumber)
	assert.Equal(t, "you matched", *mock.lastInput.Message)
}

func TestWebhookChannel_PostsJSON(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(httpclient.NewClient(5 * time.Second))

	recipient, ok := ch.Recipient(models.SupplierProfile{WebhookURL: srv.URL})
	require.True(t, ok)

	err := ch.Send(context.Background(), recipient, Payload{Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
}

func TestWebhookChannel_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(httpclient.NewClient(5 * time.Second))

	err := ch.Send(context.Background(), srv.URL, Payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
