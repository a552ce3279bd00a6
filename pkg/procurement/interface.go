package procurement

import (
	"context"
	"time"
)

// WorkflowEngine defines the core interface for the procure-to-pay workflow
// 購買から支払までのワークフローのコアインターフェースを定義
type WorkflowEngine interface {
	// 状態遷移操作 - State-changing operations
	SubmitRequisition(ctx context.Context, itemID string, quantity int64) (*Requisition, error)
	CreateOrder(ctx context.Context, requisitionID, vendorID string, unitPrice float64) (*Order, error)
	VerifyDelivery(ctx context.Context, deliveryID string, isMatch bool) (*Delivery, error)
	ProcessInvoice(ctx context.Context, invoiceID, deliveryID string, amount float64, dueDate time.Time) (*Invoice, error)
	SettleInvoice(ctx context.Context, invoiceID string) (*Invoice, error)

	// 帳票照会 - Register snapshots for polling views
	Suppliers(ctx context.Context) ([]Supplier, error)
	Items(ctx context.Context) ([]InventoryItem, error)
	Requisitions(ctx context.Context) ([]Requisition, error)
	Orders(ctx context.Context) ([]Order, error)
	Deliveries(ctx context.Context) ([]Delivery, error)
	Invoices(ctx context.Context) ([]Invoice, error)
	JournalEntries(ctx context.Context) ([]JournalEntry, error)

	// 集計レポート - Derived reporting projections
	VendorDebtReport(ctx context.Context) ([]VendorDebt, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)

	// 仕訳監査 - Advisory journal audit
	AuditJournalEntry(ctx context.Context, entryID string) (string, error)
}

// MasterDataManager defines interface for supplier and item master data
// 仕入先と品目のマスタデータ管理インターフェースを定義
type MasterDataManager interface {
	CreateSupplier(ctx context.Context, supplier *Supplier) error
	CreateItem(ctx context.Context, item *InventoryItem) error
}

// Storage defines the interface for the document registers
// 帳票レジスタの永続化層インターフェースを定義
type Storage interface {
	// Item register
	CreateItem(ctx context.Context, item *InventoryItem) error
	GetItem(ctx context.Context, itemID string) (*InventoryItem, error)
	UpdateItem(ctx context.Context, item *InventoryItem) error
	ListItems(ctx context.Context) ([]InventoryItem, error)

	// Supplier register
	CreateSupplier(ctx context.Context, supplier *Supplier) error
	GetSupplier(ctx context.Context, supplierID string) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// Requisition register
	CreateRequisition(ctx context.Context, req *Requisition) error
	GetRequisition(ctx context.Context, requisitionID string) (*Requisition, error)
	UpdateRequisition(ctx context.Context, req *Requisition) error
	ListRequisitions(ctx context.Context) ([]Requisition, error)

	// Order register
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)

	// Delivery register
	CreateDelivery(ctx context.Context, delivery *Delivery) error
	GetDelivery(ctx context.Context, deliveryID string) (*Delivery, error)
	UpdateDelivery(ctx context.Context, delivery *Delivery) error
	ListDeliveries(ctx context.Context) ([]Delivery, error)

	// Invoice register
	CreateInvoice(ctx context.Context, invoice *Invoice) error
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	UpdateInvoice(ctx context.Context, invoice *Invoice) error
	ListInvoices(ctx context.Context) ([]Invoice, error)

	// Journal (append-only)
	CreateJournalEntry(ctx context.Context, entry *JournalEntry) error
	GetJournalEntry(ctx context.Context, entryID string) (*JournalEntry, error)
	ListJournalEntries(ctx context.Context) ([]JournalEntry, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines interface for publishing workflow events
// ワークフローイベント発行のインターフェースを定義
type EventPublisher interface {
	PublishRequisitionSubmitted(ctx context.Context, event RequisitionSubmittedEvent) error
	PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error
	PublishDeliveryArrived(ctx context.Context, event DeliveryArrivedEvent) error
	PublishDeliveryVerified(ctx context.Context, event DeliveryVerifiedEvent) error
	PublishInvoicePosted(ctx context.Context, event InvoicePostedEvent) error
}

// Advisor provides free-text commentary on a journal entry.
// It has no authority over state and may be unavailable.
// 仕訳に対する講評を返す外部アドバイザー。状態への権限は持たない。
type Advisor interface {
	AuditJournalEntry(ctx context.Context, entry *JournalEntry) (string, error)
}

// Events for workflow operations
// ワークフロー操作のイベント定義

// RequisitionSubmittedEvent represents a new purchase requisition
// 購買依頼の提出イベントを表現
type RequisitionSubmittedEvent struct {
	RequisitionID string    `json:"requisition_id"`
	ItemID        string    `json:"item_id"`
	Quantity      int64     `json:"quantity"`
	Requester     string    `json:"requester"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderCreatedEvent represents a purchase order created from a requisition
// 購買依頼からの発注書作成イベントを表現
type OrderCreatedEvent struct {
	OrderID       string    `json:"order_id"`
	RequisitionID string    `json:"requisition_id"`
	VendorID      string    `json:"vendor_id"`
	TotalAmount   float64   `json:"total_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// DeliveryArrivedEvent represents the arrival of a simulated vendor delivery
// 仕入先納品の到着イベントを表現
type DeliveryArrivedEvent struct {
	DeliveryID string    `json:"delivery_id"`
	OrderID    string    `json:"order_id"`
	VendorName string    `json:"vendor_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeliveryVerifiedEvent represents a successful goods receipt verification
// 検収完了イベントを表現
type DeliveryVerifiedEvent struct {
	DeliveryID     string    `json:"delivery_id"`
	OrderID        string    `json:"order_id"`
	StockIncrement int64     `json:"stock_increment"` // 連鎖が切れている場合は0
	ItemID         string    `json:"item_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// InvoicePostedEvent represents an invoice insert plus its ledger posting
// 請求書登録と仕訳転記のイベントを表現
type InvoicePostedEvent struct {
	InvoiceID      string    `json:"invoice_id"`
	DeliveryID     string    `json:"delivery_id"`
	JournalEntryID string    `json:"journal_entry_id"`
	Amount         float64   `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}
