// internal/sms/providers.go

package sms

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Provider defines the SMS gateway interface
type Provider interface {
	SendSMS(ctx context.Context, toMobile int64, text string) error
}

// TwilioProvider implements Provider using Twilio
type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioProvider creates a new Twilio SMS provider
func NewTwilioProvider(accountSID, authToken, fromNumber string) Provider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{
		client: client,
		from:   fromNumber,
	}
}

// SendSMS sends an SMS using Twilio
func (p *TwilioProvider) SendSMS(ctx context.Context, toMobile int64, text string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(fmt.Sprintf("+%d", toMobile))
	params.SetFrom(p.from)
	params.SetBody(text)

	if _, err := p.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

// MockProvider logs messages instead of sending them (development mode)
type MockProvider struct{}

// NewMockProvider creates a new mock SMS provider
func NewMockProvider() Provider {
	return &MockProvider{}
}

// SendSMS logs the SMS instead of sending it
func (p *MockProvider) SendSMS(ctx context.Context, toMobile int64, text string) error {
	log.Printf("[MOCK SMS] to +%d: %s", toMobile, text)
	return nil
}
