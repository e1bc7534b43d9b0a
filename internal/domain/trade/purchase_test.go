package trade

import (
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func gst18() pricing.TaxSnapshot {
	return pricing.TaxSnapshot{
		ProfileID:  "tax_gst18",
		TotalRate:  dec("18"),
		Components: []pricing.TaxComponent{{Name: "CGST", Rate: dec("9")}, {Name: "SGST", Rate: dec("9")}},
	}
}

func scenarioCItem() PurchaseItem {
	return PurchaseItem{
		MedicineID:          "M",
		BatchNo:             "B3",
		ExpiryDate:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PackQuantity:        2,
		FreePackQuantity:    1,
		ItemsPerPack:        10,
		PurchaseCostPerPack: dec("100"),
		MRPPerItem:          dec("15"),
	}
}

func TestPurchaseItem_Price(t *testing.T) {
	t.Run("free packs are received but not charged", func(t *testing.T) {
		item := scenarioCItem()
		require.NoError(t, item.Price(gst18()))

		assert.Equal(t, 30, item.TotalReceivedQuantity)
		assert.Equal(t, "200.00", item.LineItemTaxableAmount.StringFixed(2))
		assert.Equal(t, "36.00", item.LineItemTaxAmount.StringFixed(2))
		assert.Equal(t, "236.00", item.LineItemTotalAmount.StringFixed(2))
		require.Len(t, item.TaxComponents, 2)
		assert.True(t, item.TaxComponents[0].Amount.Equal(dec("18")))
		assert.True(t, item.TaxComponents[1].Amount.Equal(dec("18")))
		assert.Equal(t, "tax_gst18", item.TaxProfileID)
		assert.True(t, item.CostPerItem().Equal(dec("10")))
	})

	t.Run("invalid quantities", func(t *testing.T) {
		for _, mutate := range []func(*PurchaseItem){
			func(i *PurchaseItem) { i.PackQuantity, i.FreePackQuantity = 0, 0 },
			func(i *PurchaseItem) { i.ItemsPerPack = 0 },
			func(i *PurchaseItem) { i.FreePackQuantity = -1 },
			func(i *PurchaseItem) { i.MRPPerItem = dec("-1") },
		} {
			item := scenarioCItem()
			mutate(&item)
			assert.True(t, shared.IsValidation(item.Price(pricing.NoTax())))
		}
	})
}

func TestPurchase_Payments(t *testing.T) {
	newPurchase := func(paid string) *Purchase {
		item := scenarioCItem()
		require.NoError(t, item.Price(gst18()))
		p := &Purchase{ID: "pur1", Items: []PurchaseItem{item}, AmountPaid: dec(paid)}
		totals, err := pricing.Summarize(p.LineAmounts(), nil)
		require.NoError(t, err)
		p.ApplyTotals(totals)
		return p
	}

	t.Run("partial payment at receipt", func(t *testing.T) {
		p := newPurchase("100")
		require.NoError(t, p.ValidatePayment())
		assert.True(t, p.TotalAmount.Equal(dec("236")))
		assert.True(t, p.DueAmount.Equal(dec("136")))
		assert.Equal(t, pricing.PaymentPartiallyPaid, p.PaymentStatus)
	})

	t.Run("overpayment at receipt", func(t *testing.T) {
		p := newPurchase("300")
		assert.True(t, shared.IsValidation(p.ValidatePayment()))
	})

	t.Run("later payments settle the invoice", func(t *testing.T) {
		p := newPurchase("0")
		assert.Equal(t, pricing.PaymentPending, p.PaymentStatus)

		require.NoError(t, p.RecordPayment(dec("36")))
		assert.Equal(t, pricing.PaymentPartiallyPaid, p.PaymentStatus)
		assert.True(t, shared.IsValidation(p.RecordPayment(dec("200.01"))))
		require.NoError(t, p.RecordPayment(dec("200")))
		assert.Equal(t, pricing.PaymentPaid, p.PaymentStatus)
		assert.True(t, p.DueAmount.IsZero())
	})
}

func TestPurchase_RecordReturn(t *testing.T) {
	item := scenarioCItem()
	require.NoError(t, item.Price(gst18()))
	p := &Purchase{ID: "pur1", Items: []PurchaseItem{item}, TotalAmount: dec("236")}

	idx := p.FindItem("M", "B3")
	require.Equal(t, 0, idx)
	assert.Equal(t, -1, p.FindItem("M", "nope"))

	// 236 billed over 30 received units, free pack included
	assert.Equal(t, "7.8667", p.UnitCost(idx).StringFixed(4))

	credit, err := p.RecordReturn(idx, 25)
	require.NoError(t, err)
	assert.Equal(t, "196.67", credit.StringFixed(2))
	assert.Equal(t, 5, p.Items[0].ReturnableQuantity())

	_, err = p.RecordReturn(idx, 6)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 25, p.Items[0].ReturnedQuantity)

	_, err = p.RecordReturn(-1, 1)
	assert.True(t, shared.IsValidation(err))

	credit, err = p.RecordReturn(idx, 5)
	require.NoError(t, err)
	assert.Equal(t, "39.33", credit.StringFixed(2))
	assert.True(t, p.Items[0].ReturnedAmount.Equal(dec("236")))
	assert.True(t, p.FullyReturned())
}

func TestPurchase_SettleReturn(t *testing.T) {
	newPurchase := func(t *testing.T, paid string, adj *pricing.Adjustment) *Purchase {
		t.Helper()
		first := scenarioCItem()
		require.NoError(t, first.Price(gst18()))
		second := scenarioCItem()
		second.BatchNo, second.FreePackQuantity, second.PurchaseCostPerPack = "B4", 0, dec("33.33")
		require.NoError(t, second.Price(pricing.NoTax()))
		p := &Purchase{ID: "pur1", Items: []PurchaseItem{first, second}, AmountPaid: dec(paid)}
		totals, err := pricing.Summarize(p.LineAmounts(), adj)
		require.NoError(t, err)
		p.ApplyTotals(totals)
		return p
	}

	t.Run("whole purchase returned unpaid", func(t *testing.T) {
		p := newPurchase(t, "0", nil)
		require.True(t, p.TotalAmount.Equal(dec("302.66")))

		total := decimal.Zero
		for i, qty := range []int{30, 20} {
			credit, err := p.RecordReturn(i, qty)
			require.NoError(t, err)
			total = total.Add(credit)
		}
		credited := p.SettleReturn(total)

		assert.True(t, credited.Equal(p.TotalAmount))
		assert.True(t, p.DueAmount.IsZero())
		assert.True(t, p.NetAmount().IsZero())
		assert.True(t, shared.IsValidation(p.RecordPayment(dec("0.01"))))
	})

	t.Run("partial return lowers the due", func(t *testing.T) {
		p := newPurchase(t, "100", nil)
		credit, err := p.RecordReturn(0, 15)
		require.NoError(t, err)
		assert.True(t, p.SettleReturn(credit).Equal(dec("118")))

		assert.True(t, p.DueAmount.Equal(dec("84.66")))
		assert.Equal(t, pricing.PaymentPartiallyPaid, p.PaymentStatus)
		require.NoError(t, p.RecordPayment(dec("84.66")))
		assert.Equal(t, pricing.PaymentPaid, p.PaymentStatus)
	})

	t.Run("return after full payment leaves no negative due", func(t *testing.T) {
		p := newPurchase(t, "302.66", nil)
		credit, err := p.RecordReturn(1, 10)
		require.NoError(t, err)
		p.SettleReturn(credit)

		assert.True(t, p.DueAmount.IsZero())
		assert.Equal(t, pricing.PaymentPaid, p.PaymentStatus)
	})

	t.Run("overall discount is shared across lines", func(t *testing.T) {
		p := newPurchase(t, "0", &pricing.Adjustment{Type: pricing.FixedDiscount, Value: dec("10")})
		require.True(t, p.TotalAmount.Equal(dec("292.66")))

		total := decimal.Zero
		for i, qty := range []int{30, 20} {
			credit, err := p.RecordReturn(i, qty)
			require.NoError(t, err)
			total = total.Add(credit)
		}
		assert.True(t, p.SettleReturn(total).Equal(dec("292.66")))
		assert.True(t, p.DueAmount.IsZero())
		assert.True(t, p.TotalReturnedAmount.Equal(p.TotalAmount))
	})
}

func TestPurchaseReturn_Settle(t *testing.T) {
	ret := &PurchaseReturn{Items: []PurchaseReturnItem{
		{LineItemReturnValue: dec("10.01")},
		{LineItemReturnValue: dec("20.00")},
	}}
	ret.Summarize()
	require.True(t, ret.TotalReturnedAmount.Equal(dec("30.01")))

	ret.Settle(dec("30.02"))
	assert.True(t, ret.TotalReturnedAmount.Equal(dec("30.02")))
	assert.True(t, ret.Items[1].LineItemReturnValue.Equal(dec("20.01")))
	assert.True(t, ret.Items[0].LineItemReturnValue.Equal(dec("10.01")))
}
