package services

import (
	"github.com/terralotes/terralotes-api/internal/models"
)

// PricingTerms are the reservation-time inputs for a single lot
type PricingTerms struct {
	AgreedPrice   *float64
	PaymentMethod string
	FirstPayment  *float64
	Installments  *int
}

// PricingSnapshot is the monetary snapshot persisted per reservation line
type PricingSnapshot struct {
	AgreedPrice  float64
	FirstPayment *float64
	Installments *int
}

// ComputePricing derives the per-lot monetary snapshot from the lot's
// base price and the negotiated terms. Lump-sum payment methods (cash,
// transfer, check) carry no partial-payment fields, so firstPayment and
// installments are dropped regardless of input. Pure function, same
// inputs always yield the same snapshot.
func ComputePricing(lot *models.Lot, terms PricingTerms) PricingSnapshot {
	snapshot := PricingSnapshot{
		AgreedPrice: lot.Price,
	}

	if terms.AgreedPrice != nil && *terms.AgreedPrice > 0 {
		snapshot.AgreedPrice = *terms.AgreedPrice
	}

	if models.IsLumpSum(terms.PaymentMethod) {
		return snapshot
	}

	snapshot.FirstPayment = terms.FirstPayment
	snapshot.Installments = terms.Installments
	return snapshot
}

// ValidatePricingTerms checks the reservation-time inputs before any
// storage is touched
func ValidatePricingTerms(terms PricingTerms) error {
	if !models.IsValidPaymentMethod(terms.PaymentMethod) {
		return NewValidationError("payment_method", "método de pago inválido")
	}
	if terms.AgreedPrice != nil && *terms.AgreedPrice < 0 {
		return NewValidationError("agreed_price", "el precio acordado no puede ser negativo")
	}
	if !models.IsLumpSum(terms.PaymentMethod) {
		if terms.FirstPayment != nil && *terms.FirstPayment < 0 {
			return NewValidationError("first_payment", "la prima no puede ser negativa")
		}
		if terms.Installments != nil && *terms.Installments <= 0 {
			return NewValidationError("installments", "el número de cuotas debe ser mayor que 0")
		}
	}
	return nil
}
