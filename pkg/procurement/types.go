// Package procurement provides the procure-to-pay document workflow engine
package procurement

import (
	"time"

	"github.com/google/uuid"
)

// Supplier represents an approved vendor
// 承認済み仕入先を表現
type Supplier struct {
	ID      string `json:"id" db:"id"`           // 仕入先ID
	Name    string `json:"name" db:"name"`       // 仕入先名
	Address string `json:"address" db:"address"` // 住所
	Contact string `json:"contact" db:"contact"` // 連絡先
	Email   string `json:"email" db:"email"`     // メールアドレス
}

// InventoryItem represents a stock-keeping item with its reorder threshold
// 発注点付きの在庫品目を表現
type InventoryItem struct {
	ID          string  `json:"id" db:"id"`                     // 品目ID
	Name        string  `json:"name" db:"name"`                 // 品目名
	Stock       int64   `json:"stock" db:"stock"`               // 現在庫数
	SafetyStock int64   `json:"safety_stock" db:"safety_stock"` // 安全在庫数
	Unit        string  `json:"unit" db:"unit"`                 // 単位
	LastPrice   float64 `json:"last_price" db:"last_price"`     // 最終仕入単価
}

// IsLowStock reports whether the item is at or below its safety stock
// 在庫が安全在庫数以下かチェック
func (i *InventoryItem) IsLowStock() bool {
	return i.Stock <= i.SafetyStock
}

// RequisitionStatus defines the lifecycle of a purchase requisition
// 購買依頼のライフサイクルを定義
type RequisitionStatus string

const (
	RequisitionStatusPending  RequisitionStatus = "PENDING"  // 承認待ち
	RequisitionStatusApproved RequisitionStatus = "APPROVED" // 承認済み（発注書作成済み）
)

// Requisition represents an internal request to replenish a stock item
// 在庫補充のための購買依頼を表現
type Requisition struct {
	ID                string            `json:"id" db:"id"`                                 // 依頼ID
	ItemID            string            `json:"item_id" db:"item_id"`                       // 品目ID
	ItemName          string            `json:"item_name" db:"item_name"`                   // 品目名（作成時に非正規化）
	QuantityRequested int64             `json:"quantity_requested" db:"quantity_requested"` // 依頼数量
	RequestDate       time.Time         `json:"request_date" db:"request_date"`             // 依頼日
	Status            RequisitionStatus `json:"status" db:"status"`                         // ステータス
	Requester         string            `json:"requester" db:"requester"`                   // 依頼元
}

// OrderStatus defines the lifecycle of a purchase order
// 発注書のライフサイクルを定義
type OrderStatus string

const (
	OrderStatusSent OrderStatus = "SENT" // 仕入先送付済み
)

// LineItem represents a single order line
// 発注明細行を表現
type LineItem struct {
	Name      string  `json:"name" db:"name"`             // 品名
	Quantity  int64   `json:"quantity" db:"quantity"`     // 数量
	UnitPrice float64 `json:"unit_price" db:"unit_price"` // 単価
}

// Order represents a purchase order committed to a supplier
// 仕入先への発注書を表現
type Order struct {
	ID            string      `json:"id" db:"id"`                         // 発注ID
	RequisitionID string      `json:"requisition_id" db:"requisition_id"` // 元の購買依頼ID（依頼なし発注の場合は空）
	VendorID      string      `json:"vendor_id" db:"vendor_id"`           // 仕入先ID
	VendorName    string      `json:"vendor_name" db:"vendor_name"`       // 仕入先名（作成時に非正規化）
	LineItems     []LineItem  `json:"line_items" db:"line_items"`         // 明細行
	TotalAmount   float64     `json:"total_amount" db:"total_amount"`     // 合計金額（作成時に一度だけ計算）
	OrderDate     time.Time   `json:"order_date" db:"order_date"`         // 発注日
	Status        OrderStatus `json:"status" db:"status"`                 // ステータス
}

// LineTotal calculates the sum of quantity * unit price over order lines
// 明細行の数量×単価の合計を計算
func LineTotal(lines []LineItem) float64 {
	total := 0.0
	for _, l := range lines {
		total += float64(l.Quantity) * l.UnitPrice
	}
	return total
}

// DeliveryStatus defines the lifecycle of a delivery note
// 納品書のライフサイクルを定義
type DeliveryStatus string

const (
	DeliveryStatusSent     DeliveryStatus = "SENT"     // 輸送中（検収待ち）
	DeliveryStatusReceived DeliveryStatus = "RECEIVED" // 検収済み
	DeliveryStatusInvoiced DeliveryStatus = "INVOICED" // 請求書処理済み
)

// LineCondition describes the recorded condition of a received line
// 受領明細行の状態を表現
type LineCondition string

const (
	ConditionGood    LineCondition = "GOOD"    // 良品
	ConditionDamaged LineCondition = "DAMAGED" // 破損
)

// ReceivedLine represents a single received delivery line
// 納品書の受領明細行を表現
type ReceivedLine struct {
	Name      string        `json:"name" db:"name"`           // 品名
	Quantity  int64         `json:"quantity" db:"quantity"`   // 数量
	Condition LineCondition `json:"condition" db:"condition"` // 状態
}

// Delivery represents a supplier shipment record against an order
// 発注に対する仕入先の納品書を表現
type Delivery struct {
	ID            string         `json:"id" db:"id"`                         // 納品書ID
	OrderID       string         `json:"order_id" db:"order_id"`             // 発注ID
	VendorName    string         `json:"vendor_name" db:"vendor_name"`       // 仕入先名（作成時に非正規化）
	DeliveryDate  time.Time      `json:"delivery_date" db:"delivery_date"`   // 納品日
	Status        DeliveryStatus `json:"status" db:"status"`                 // ステータス
	VerifiedAt    *time.Time     `json:"verified_at" db:"verified_at"`       // 検収日時
	ReceivedLines []ReceivedLine `json:"received_lines" db:"received_lines"` // 受領明細行
}

// InvoiceStatus defines the payment state of an invoice
// 請求書の支払状態を定義
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "UNPAID" // 未払い
	InvoiceStatusPaid   InvoiceStatus = "PAID"   // 支払済み
)

// Invoice represents a supplier bill for a verified delivery
// 検収済み納品に対する仕入先の請求書を表現
type Invoice struct {
	ID          string        `json:"id" db:"id"`                     // 請求書ID（仕入先採番）
	DeliveryID  string        `json:"delivery_id" db:"delivery_id"`   // 納品書ID
	InvoiceDate time.Time     `json:"invoice_date" db:"invoice_date"` // 請求日
	DueDate     time.Time     `json:"due_date" db:"due_date"`         // 支払期日
	TotalAmount float64       `json:"total_amount" db:"total_amount"` // 請求金額
	Status      InvoiceStatus `json:"status" db:"status"`             // ステータス
}

// JournalLine represents one side of a double-entry posting
// 複式簿記の片側の仕訳行を表現
type JournalLine struct {
	Account string  `json:"account" db:"account"` // 勘定科目
	Amount  float64 `json:"amount" db:"amount"`   // 金額
}

// JournalEntry represents a balanced double-entry ledger posting
// 貸借一致の仕訳を表現
type JournalEntry struct {
	ID          string        `json:"id" db:"id"`                   // 仕訳ID
	Date        time.Time     `json:"date" db:"date"`               // 計上日
	Description string        `json:"description" db:"description"` // 摘要
	InvoiceID   string        `json:"invoice_id" db:"invoice_id"`   // 請求書ID
	DebitLines  []JournalLine `json:"debit_lines" db:"debit_lines"` // 借方
	CreditLines []JournalLine `json:"credit_lines" db:"credit_lines"` // 貸方
}

// TotalDebit calculates the debit side total
// 借方合計を計算
func (j *JournalEntry) TotalDebit() float64 {
	total := 0.0
	for _, l := range j.DebitLines {
		total += l.Amount
	}
	return total
}

// TotalCredit calculates the credit side total
// 貸方合計を計算
func (j *JournalEntry) TotalCredit() float64 {
	total := 0.0
	for _, l := range j.CreditLines {
		total += l.Amount
	}
	return total
}

// IsBalanced reports whether debits equal credits
// 貸借が一致しているかチェック
func (j *JournalEntry) IsBalanced() bool {
	return j.TotalDebit() == j.TotalCredit()
}

// NewRequisitionID generates a new requisition ID
// 新しい購買依頼IDを生成
func NewRequisitionID() string {
	return "REQ-" + uuid.New().String()
}

// NewOrderID generates a new purchase order ID
// 新しい発注IDを生成
func NewOrderID() string {
	return "ORD-" + uuid.New().String()
}

// NewDeliveryID generates a new delivery note ID
// 新しい納品書IDを生成
func NewDeliveryID() string {
	return "DLV-" + uuid.New().String()
}

// NewItemID generates a new inventory item ID
// 新しい品目IDを生成
func NewItemID() string {
	return "ITEM-" + uuid.New().String()
}

// NewSupplierID generates a new supplier ID
// 新しい仕入先IDを生成
func NewSupplierID() string {
	return "SUP-" + uuid.New().String()
}

// NewJournalEntryID generates a new journal entry ID
// 新しい仕訳IDを生成
func NewJournalEntryID() string {
	return "JRN-" + uuid.New().String()
}
