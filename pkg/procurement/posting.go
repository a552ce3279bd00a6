package procurement

import (
	"fmt"
	"time"
)

// Chart-of-accounts strings used by the posting rule
// 転記ルールが使用する勘定科目
const (
	// AccountInventoryAsset is the merchandise inventory asset account
	// 商品（棚卸資産）勘定
	AccountInventoryAsset = "1140 - 商品"

	// AccountTradePayables is the trade payables account
	// 買掛金勘定
	AccountTradePayables = "2110 - 買掛金"
)

// BuildJournalEntry applies the fixed posting rule for a credit purchase:
// one debit on merchandise inventory and one credit on trade payables,
// both equal to the invoice total. Never fails for a valid invoice/delivery pair.
// 掛仕入の固定転記ルールを適用する。借方は商品勘定、貸方は買掛金勘定、
// どちらも請求金額と等しい。
func BuildJournalEntry(invoice *Invoice, delivery *Delivery, postedAt time.Time) *JournalEntry {
	return &JournalEntry{
		ID:          NewJournalEntryID(),
		Date:        postedAt,
		Description: fmt.Sprintf("掛仕入 - %s (Ref: %s)", delivery.VendorName, invoice.ID),
		InvoiceID:   invoice.ID,
		DebitLines: []JournalLine{
			{Account: AccountInventoryAsset, Amount: invoice.TotalAmount},
		},
		CreditLines: []JournalLine{
			{Account: AccountTradePayables, Amount: invoice.TotalAmount},
		},
	}
}
