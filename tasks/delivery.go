package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clinic-waitlist/models"
)

// Deliverer sends one rendered message to one contact. Implementations
// report failure through the result; the caller decides about retries.
type Deliverer interface {
	Send(ctx context.Context, phone, message string) models.DeliveryResult
}

// MockSMS logs messages instead of sending them. Used whenever no real
// SMS provider is configured, matching the development mode of the
// clinic frontend.
type MockSMS struct {
	logger *slog.Logger
}

func NewMockSMS(logger *slog.Logger) *MockSMS {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSMS{logger: logger}
}

func (m *MockSMS) Send(_ context.Context, phone, message string) models.DeliveryResult {
	m.logger.Info("MOCK SMS", "to", phone, "message", message)
	return models.DeliveryResult{
		Status:    "mock_sent",
		MessageID: fmt.Sprintf("mock_%d", time.Now().UnixNano()),
	}
}
