package procurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBuildJournalEntry は掛仕入の転記ルールのテスト
func TestBuildJournalEntry(t *testing.T) {
	invoice := &Invoice{
		ID:          "INV-2026-042",
		DeliveryID:  "DLV-001",
		TotalAmount: 125000000,
	}
	delivery := &Delivery{
		ID:         "DLV-001",
		VendorName: "テクノロジー商事株式会社",
	}
	postedAt := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	entry := BuildJournalEntry(invoice, delivery, postedAt)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, postedAt, entry.Date)
	assert.Equal(t, "INV-2026-042", entry.InvoiceID)
	assert.Equal(t, "掛仕入 - テクノロジー商事株式会社 (Ref: INV-2026-042)", entry.Description)

	// 借方: 商品勘定、貸方: 買掛金勘定、どちらも請求金額
	assert.Len(t, entry.DebitLines, 1)
	assert.Equal(t, AccountInventoryAsset, entry.DebitLines[0].Account)
	assert.Equal(t, float64(125000000), entry.DebitLines[0].Amount)

	assert.Len(t, entry.CreditLines, 1)
	assert.Equal(t, AccountTradePayables, entry.CreditLines[0].Account)
	assert.Equal(t, float64(125000000), entry.CreditLines[0].Amount)

	assert.True(t, entry.IsBalanced())
}

// TestJournalEntry_IsBalanced は貸借一致チェックのテスト
func TestJournalEntry_IsBalanced(t *testing.T) {
	entry := &JournalEntry{
		DebitLines: []JournalLine{
			{Account: AccountInventoryAsset, Amount: 3000},
			{Account: AccountInventoryAsset, Amount: 2000},
		},
		CreditLines: []JournalLine{
			{Account: AccountTradePayables, Amount: 5000},
		},
	}

	assert.Equal(t, float64(5000), entry.TotalDebit())
	assert.Equal(t, float64(5000), entry.TotalCredit())
	assert.True(t, entry.IsBalanced())

	entry.CreditLines[0].Amount = 4999
	assert.False(t, entry.IsBalanced())
}

// TestLineTotal は発注明細合計のテスト
func TestLineTotal(t *testing.T) {
	lines := []LineItem{
		{Name: "鋼板5mm", Quantity: 40, UnitPrice: 500000},
		{Name: "梱包箱", Quantity: 100, UnitPrice: 5000},
	}

	assert.Equal(t, float64(20500000), LineTotal(lines))
	assert.Equal(t, float64(0), LineTotal(nil))
}
