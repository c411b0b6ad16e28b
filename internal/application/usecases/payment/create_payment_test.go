package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/novafin/wallet/internal/application/dtos"
	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// TestCreatePayment_Success тестирует создание checkout-сессии
func TestCreatePayment_Success(t *testing.T) {
	var created *entities.Transaction
	txRepo := &mockTxRepo{
		createFunc: func(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error) {
			created = tx
			return tx, nil
		},
	}
	var gotParams ports.CheckoutParams
	gw := &mockGateway{
		createCheckoutSessionFunc: func(ctx context.Context, params ports.CheckoutParams) (string, error) {
			gotParams = params
			return "https://checkout.stripe.com/pay/cs_123", nil
		},
	}
	uc := NewCreatePaymentUseCase(&mockWalletRepo{}, txRepo, &mockCache{}, &mockResolver{gateway: gw}, &mockUoW{}, testLogger())

	out, err := uc.Execute(context.Background(), dtos.CreatePaymentCommand{
		UserID:         4,
		Amount:         "250.00",
		Currency:       "USD",
		Gateway:        "stripe",
		IdempotencyKey: "idem-pay-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RedirectURL != "https://checkout.stripe.com/pay/cs_123" {
		t.Errorf("redirect_url = %s", out.RedirectURL)
	}

	if created == nil {
		t.Fatal("transaction must be persisted before checkout")
	}
	if created.Status() != entities.StatusPending {
		t.Errorf("deposit must stay pending until webhook, got %s", created.Status())
	}
	if created.Provider() != "stripe" {
		t.Errorf("provider = %s, want stripe", created.Provider())
	}
	if gotParams.WalletID != 104 {
		t.Errorf("checkout wallet_id = %d, want 104", gotParams.WalletID)
	}
	if gotParams.IdempotencyKey != "idem-pay-1" {
		t.Errorf("checkout idempotency_key = %s", gotParams.IdempotencyKey)
	}
}

// TestCreatePayment_UnknownGateway тестирует отказ на неизвестном провайдере
func TestCreatePayment_UnknownGateway(t *testing.T) {
	uc := NewCreatePaymentUseCase(&mockWalletRepo{}, &mockTxRepo{}, &mockCache{}, &mockResolver{}, &mockUoW{}, testLogger())

	_, err := uc.Execute(context.Background(), dtos.CreatePaymentCommand{
		UserID:         4,
		Amount:         "10.00",
		Currency:       "USD",
		Gateway:        "paypal",
		IdempotencyKey: "idem-gw",
	})
	if !errors.Is(err, domainErrors.ErrUnsupportedGateway) {
		t.Errorf("expected ErrUnsupportedGateway, got %v", err)
	}
}

// TestCreatePayment_Duplicate тестирует идемпотентный повтор
func TestCreatePayment_Duplicate(t *testing.T) {
	uc := NewCreatePaymentUseCase(
		&mockWalletRepo{},
		&mockTxRepo{},
		&mockCache{existsFunc: func(ctx context.Context, key string) (bool, error) { return true, nil }},
		&mockResolver{gateway: &mockGateway{}},
		&mockUoW{},
		testLogger(),
	)

	_, err := uc.Execute(context.Background(), dtos.CreatePaymentCommand{
		UserID:         4,
		Amount:         "10.00",
		Currency:       "USD",
		Gateway:        "stripe",
		IdempotencyKey: "idem-pay-dup",
	})
	if !errors.Is(err, domainErrors.ErrIdempotentlyDone) {
		t.Errorf("expected ErrIdempotentlyDone, got %v", err)
	}
}

// TestCreatePayment_BadAmount тестирует валидацию суммы
func TestCreatePayment_BadAmount(t *testing.T) {
	uc := NewCreatePaymentUseCase(&mockWalletRepo{}, &mockTxRepo{}, &mockCache{}, &mockResolver{gateway: &mockGateway{}}, &mockUoW{}, testLogger())

	for _, amount := range []string{"0", "-5", "abc"} {
		_, err := uc.Execute(context.Background(), dtos.CreatePaymentCommand{
			UserID:         4,
			Amount:         amount,
			Currency:       "USD",
			Gateway:        "stripe",
			IdempotencyKey: "idem-bad",
		})
		if !domainErrors.IsValidation(err) {
			t.Errorf("amount %q: expected validation error, got %v", amount, err)
		}
	}
}
