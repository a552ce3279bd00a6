// Package storage provides Storage implementations for the workflow engine
package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
)

// MemoryStorage implements the Storage interface with in-process maps.
// It is the default backend for the single-tenant deployment and for tests.
// Register order is preserved and every read returns a defensive copy.
// プロセス内マップによるStorageインターフェースの実装。
// シングルテナント運用とテストのデフォルトバックエンド。
// 帳票の登録順を保持し、読み取りは常に防御的コピーを返す。
type MemoryStorage struct {
	mu sync.RWMutex

	items        map[string]*procurement.InventoryItem
	itemOrder    []string
	suppliers    map[string]*procurement.Supplier
	supplierOrder []string
	requisitions map[string]*procurement.Requisition
	reqOrder     []string
	orders       map[string]*procurement.Order
	orderOrder   []string
	deliveries   map[string]*procurement.Delivery
	deliveryOrder []string
	invoices     map[string]*procurement.Invoice
	invoiceOrder []string
	journal      map[string]*procurement.JournalEntry
	journalOrder []string

	logger *zap.Logger
}

// インターフェースを実装することを明示
var _ procurement.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new empty in-memory storage
// 新しい空のインメモリストレージを作成
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		items:        make(map[string]*procurement.InventoryItem),
		suppliers:    make(map[string]*procurement.Supplier),
		requisitions: make(map[string]*procurement.Requisition),
		orders:       make(map[string]*procurement.Order),
		deliveries:   make(map[string]*procurement.Delivery),
		invoices:     make(map[string]*procurement.Invoice),
		journal:      make(map[string]*procurement.JournalEntry),
		logger:       logger,
	}
}

// Seed loads the default single-tenant master data
// シングルテナント用の初期マスタデータを投入
func (s *MemoryStorage) Seed(ctx context.Context) error {
	suppliers := []*procurement.Supplier{
		{ID: "SUP-001", Name: "テクノロジー商事株式会社", Address: "東京都千代田区1-1", Contact: "03-1234-5678", Email: "sales@tech-shoji.example.jp"},
		{ID: "SUP-002", Name: "オフィスサプライ有限会社", Address: "大阪府大阪市2-2", Contact: "06-9876-5432", Email: "info@office-supply.example.jp"},
		{ID: "SUP-003", Name: "鋼材工業株式会社", Address: "工業団地A1", Contact: "052-555-6666", Email: "orders@kozai.example.jp"},
	}
	items := []*procurement.InventoryItem{
		{ID: "ITEM-001", Name: "プロセッサチップセットX1", Stock: 15, SafetyStock: 20, Unit: "個", LastPrice: 2500000},
		{ID: "ITEM-002", Name: "鋼板5mm", Stock: 100, SafetyStock: 50, Unit: "枚", LastPrice: 500000},
		{ID: "ITEM-003", Name: "梱包箱", Stock: 20, SafetyStock: 200, Unit: "個", LastPrice: 5000},
	}

	for _, sup := range suppliers {
		if err := s.CreateSupplier(ctx, sup); err != nil {
			return err
		}
	}
	for _, item := range items {
		if err := s.CreateItem(ctx, item); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("初期マスタデータ投入完了",
			zap.Int("suppliers", len(suppliers)),
			zap.Int("items", len(items)),
		)
	}

	return nil
}

// Item register
// 品目レジスタ

func (s *MemoryStorage) CreateItem(ctx context.Context, item *procurement.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return procurement.ErrDuplicateItem
	}
	s.items[item.ID] = copyItem(item)
	s.itemOrder = append(s.itemOrder, item.ID)
	return nil
}

func (s *MemoryStorage) GetItem(ctx context.Context, itemID string) (*procurement.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, procurement.ErrItemNotFound
	}
	return copyItem(item), nil
}

func (s *MemoryStorage) UpdateItem(ctx context.Context, item *procurement.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return procurement.ErrItemNotFound
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *MemoryStorage) ListItems(ctx context.Context) ([]procurement.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]procurement.InventoryItem, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		items = append(items, *copyItem(s.items[id]))
	}
	return items, nil
}

// Supplier register
// 仕入先レジスタ

func (s *MemoryStorage) CreateSupplier(ctx context.Context, supplier *procurement.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[supplier.ID]; ok {
		return procurement.ErrDuplicateSupplier
	}
	cp := *supplier
	s.suppliers[supplier.ID] = &cp
	s.supplierOrder = append(s.supplierOrder, supplier.ID)
	return nil
}

func (s *MemoryStorage) GetSupplier(ctx context.Context, supplierID string) (*procurement.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	supplier, ok := s.suppliers[supplierID]
	if !ok {
		return nil, procurement.ErrSupplierNotFound
	}
	cp := *supplier
	return &cp, nil
}

func (s *MemoryStorage) ListSuppliers(ctx context.Context) ([]procurement.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	suppliers := make([]procurement.Supplier, 0, len(s.supplierOrder))
	for _, id := range s.supplierOrder {
		suppliers = append(suppliers, *s.suppliers[id])
	}
	return suppliers, nil
}

// Requisition register
// 購買依頼レジスタ

func (s *MemoryStorage) CreateRequisition(ctx context.Context, req *procurement.Requisition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requisitions[req.ID] = &cp
	s.reqOrder = append(s.reqOrder, req.ID)
	return nil
}

func (s *MemoryStorage) GetRequisition(ctx context.Context, requisitionID string) (*procurement.Requisition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requisitions[requisitionID]
	if !ok {
		return nil, procurement.ErrRequisitionNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStorage) UpdateRequisition(ctx context.Context, req *procurement.Requisition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requisitions[req.ID]; !ok {
		return procurement.ErrRequisitionNotFound
	}
	cp := *req
	s.requisitions[req.ID] = &cp
	return nil
}

func (s *MemoryStorage) ListRequisitions(ctx context.Context) ([]procurement.Requisition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reqs := make([]procurement.Requisition, 0, len(s.reqOrder))
	for _, id := range s.reqOrder {
		reqs = append(reqs, *s.requisitions[id])
	}
	return reqs, nil
}

// Order register
// 発注書レジスタ

func (s *MemoryStorage) CreateOrder(ctx context.Context, order *procurement.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = copyOrder(order)
	s.orderOrder = append(s.orderOrder, order.ID)
	return nil
}

func (s *MemoryStorage) GetOrder(ctx context.Context, orderID string) (*procurement.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, procurement.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (s *MemoryStorage) ListOrders(ctx context.Context) ([]procurement.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]procurement.Order, 0, len(s.orderOrder))
	for _, id := range s.orderOrder {
		orders = append(orders, *copyOrder(s.orders[id]))
	}
	return orders, nil
}

// Delivery register
// 納品書レジスタ

func (s *MemoryStorage) CreateDelivery(ctx context.Context, delivery *procurement.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[delivery.ID] = copyDelivery(delivery)
	s.deliveryOrder = append(s.deliveryOrder, delivery.ID)
	return nil
}

func (s *MemoryStorage) GetDelivery(ctx context.Context, deliveryID string) (*procurement.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delivery, ok := s.deliveries[deliveryID]
	if !ok {
		return nil, procurement.ErrDeliveryNotFound
	}
	return copyDelivery(delivery), nil
}

func (s *MemoryStorage) UpdateDelivery(ctx context.Context, delivery *procurement.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[delivery.ID]; !ok {
		return procurement.ErrDeliveryNotFound
	}
	s.deliveries[delivery.ID] = copyDelivery(delivery)
	return nil
}

func (s *MemoryStorage) ListDeliveries(ctx context.Context) ([]procurement.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deliveries := make([]procurement.Delivery, 0, len(s.deliveryOrder))
	for _, id := range s.deliveryOrder {
		deliveries = append(deliveries, *copyDelivery(s.deliveries[id]))
	}
	return deliveries, nil
}

// Invoice register
// 請求書レジスタ

func (s *MemoryStorage) CreateInvoice(ctx context.Context, invoice *procurement.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[invoice.ID]; ok {
		return procurement.ErrDuplicateInvoice
	}
	cp := *invoice
	s.invoices[invoice.ID] = &cp
	s.invoiceOrder = append(s.invoiceOrder, invoice.ID)
	return nil
}

func (s *MemoryStorage) GetInvoice(ctx context.Context, invoiceID string) (*procurement.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoice, ok := s.invoices[invoiceID]
	if !ok {
		return nil, procurement.ErrInvoiceNotFound
	}
	cp := *invoice
	return &cp, nil
}

func (s *MemoryStorage) UpdateInvoice(ctx context.Context, invoice *procurement.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[invoice.ID]; !ok {
		return procurement.ErrInvoiceNotFound
	}
	cp := *invoice
	s.invoices[invoice.ID] = &cp
	return nil
}

func (s *MemoryStorage) ListInvoices(ctx context.Context) ([]procurement.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invoices := make([]procurement.Invoice, 0, len(s.invoiceOrder))
	for _, id := range s.invoiceOrder {
		invoices = append(invoices, *s.invoices[id])
	}
	return invoices, nil
}

// Journal (append-only)
// 仕訳帳（追記専用）

func (s *MemoryStorage) CreateJournalEntry(ctx context.Context, entry *procurement.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[entry.ID] = copyJournalEntry(entry)
	s.journalOrder = append(s.journalOrder, entry.ID)
	return nil
}

func (s *MemoryStorage) GetJournalEntry(ctx context.Context, entryID string) (*procurement.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.journal[entryID]
	if !ok {
		return nil, procurement.ErrJournalEntryNotFound
	}
	return copyJournalEntry(entry), nil
}

func (s *MemoryStorage) ListJournalEntries(ctx context.Context) ([]procurement.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]procurement.JournalEntry, 0, len(s.journalOrder))
	for _, id := range s.journalOrder {
		entries = append(entries, *copyJournalEntry(s.journal[id]))
	}
	return entries, nil
}

// Ping always succeeds for the in-memory backend
// インメモリバックエンドのPingは常に成功
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend
// インメモリバックエンドのCloseは何もしない
func (s *MemoryStorage) Close() error {
	return nil
}

// 防御的コピーのヘルパー

func copyItem(item *procurement.InventoryItem) *procurement.InventoryItem {
	cp := *item
	return &cp
}

func copyOrder(order *procurement.Order) *procurement.Order {
	cp := *order
	cp.LineItems = append([]procurement.LineItem(nil), order.LineItems...)
	return &cp
}

func copyDelivery(delivery *procurement.Delivery) *procurement.Delivery {
	cp := *delivery
	cp.ReceivedLines = append([]procurement.ReceivedLine(nil), delivery.ReceivedLines...)
	if delivery.VerifiedAt != nil {
		t := *delivery.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}

func copyJournalEntry(entry *procurement.JournalEntry) *procurement.JournalEntry {
	cp := *entry
	cp.DebitLines = append([]procurement.JournalLine(nil), entry.DebitLines...)
	cp.CreditLines = append([]procurement.JournalLine(nil), entry.CreditLines...)
	return &cp
}
