package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestComputePricing_FinancingKeepsPartialFields(t *testing.T) {
	lot := &models.Lot{ID: 1, Price: 500000, SizeM2: 250}

	snapshot := ComputePricing(lot, PricingTerms{
		AgreedPrice:   floatPtr(480000),
		PaymentMethod: models.PaymentMethodFinancing,
		FirstPayment:  floatPtr(48000),
		Installments:  intPtr(36),
	})

	assert.Equal(t, 480000.0, snapshot.AgreedPrice)
	assert.NotNil(t, snapshot.FirstPayment)
	assert.Equal(t, 48000.0, *snapshot.FirstPayment)
	assert.NotNil(t, snapshot.Installments)
	assert.Equal(t, 36, *snapshot.Installments)
}

func TestComputePricing_LumpSumDropsPartialFields(t *testing.T) {
	lot := &models.Lot{ID: 1, Price: 500000, SizeM2: 250}

	for _, method := range []string{
		models.PaymentMethodCash,
		models.PaymentMethodTransfer,
		models.PaymentMethodCheck,
	} {
		snapshot := ComputePricing(lot, PricingTerms{
			AgreedPrice:   floatPtr(480000),
			PaymentMethod: method,
			FirstPayment:  floatPtr(48000),
			Installments:  intPtr(36),
		})

		assert.Equal(t, 480000.0, snapshot.AgreedPrice, method)
		assert.Nil(t, snapshot.FirstPayment, method)
		assert.Nil(t, snapshot.Installments, method)
	}
}

func TestComputePricing_DefaultsToBasePrice(t *testing.T) {
	lot := &models.Lot{ID: 1, Price: 350000, SizeM2: 200}

	snapshot := ComputePricing(lot, PricingTerms{PaymentMethod: models.PaymentMethodCash})

	assert.Equal(t, 350000.0, snapshot.AgreedPrice)
}

func TestComputePricing_Idempotent(t *testing.T) {
	lot := &models.Lot{ID: 1, Price: 500000, SizeM2: 250}
	terms := PricingTerms{
		AgreedPrice:   floatPtr(475000),
		PaymentMethod: models.PaymentMethodFinancing,
		FirstPayment:  floatPtr(50000),
		Installments:  intPtr(24),
	}

	first := ComputePricing(lot, terms)
	second := ComputePricing(lot, terms)

	assert.Equal(t, first, second)
}

func TestValidatePricingTerms(t *testing.T) {
	tests := []struct {
		name    string
		terms   PricingTerms
		wantErr bool
	}{
		{
			name:  "valid financing",
			terms: PricingTerms{PaymentMethod: models.PaymentMethodFinancing, FirstPayment: floatPtr(1000), Installments: intPtr(12)},
		},
		{
			name:  "valid cash",
			terms: PricingTerms{PaymentMethod: models.PaymentMethodCash},
		},
		{
			name:    "unknown method",
			terms:   PricingTerms{PaymentMethod: "barter"},
			wantErr: true,
		},
		{
			name:    "negative agreed price",
			terms:   PricingTerms{PaymentMethod: models.PaymentMethodCash, AgreedPrice: floatPtr(-1)},
			wantErr: true,
		},
		{
			name:    "zero installments on financing",
			terms:   PricingTerms{PaymentMethod: models.PaymentMethodFinancing, Installments: intPtr(0)},
			wantErr: true,
		},
		{
			name:    "negative first payment on financing",
			terms:   PricingTerms{PaymentMethod: models.PaymentMethodFinancing, FirstPayment: floatPtr(-100)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePricingTerms(tt.terms)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
