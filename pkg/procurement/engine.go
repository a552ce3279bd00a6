package procurement

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Engine implements the WorkflowEngine interface. It is the sole writer
// to every document register; all mutating operations serialize through
// a single lock and readers observe consistent snapshots.
// WorkflowEngineインターフェースの実装。すべての帳票レジスタへの唯一の書き込み者であり、
// 変更操作は単一ロックで直列化され、読み取りは一貫したスナップショットを観測する。
type Engine struct {
	storage   Storage        // ストレージ層
	publisher EventPublisher // イベント発行者
	advisor   Advisor        // 仕訳監査アドバイザー
	clock     clock.Clock    // 時計（テストでは仮想時計）
	logger    *zap.Logger    // ログ
	config    *Config        // 設定
	mu        sync.RWMutex   // 帳票レジスタ全体の直列化ポイント
}

// すべてのインターフェースを実装することを明示
var (
	_ WorkflowEngine    = (*Engine)(nil)
	_ MasterDataManager = (*Engine)(nil)
)

// Config holds configuration for the workflow engine
// ワークフローエンジンの設定を保持
type Config struct {
	DeliveryLeadTime    time.Duration `yaml:"delivery_lead_time"`    // 発注から納品到着までのリードタイム
	VerificationLatency time.Duration `yaml:"verification_latency"`  // 検収処理の固定遅延
	InvoiceLatency      time.Duration `yaml:"invoice_latency"`       // 請求書処理の固定遅延
	DefaultRequester    string        `yaml:"default_requester"`     // 依頼元のデフォルト値
}

// NewEngine creates a new workflow engine
// 新しいワークフローエンジンを作成
func NewEngine(storage Storage, publisher EventPublisher, advisor Advisor, clk clock.Clock, logger *zap.Logger, config *Config) *Engine {
	if config == nil {
		config = &Config{
			DeliveryLeadTime:    5 * time.Second,
			VerificationLatency: 600 * time.Millisecond,
			InvoiceLatency:      800 * time.Millisecond,
			DefaultRequester:    "production",
		}
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Engine{
		storage:   storage,
		publisher: publisher,
		advisor:   advisor,
		clock:     clk,
		logger:    logger,
		config:    config,
	}
}

// SubmitRequisition creates a new purchase requisition in PENDING status.
// Multiple outstanding requisitions for the same item are permitted.
// 新しい購買依頼をPENDINGステータスで作成する。
// 同一品目に対する複数の未処理依頼は許可される。
func (e *Engine) SubmitRequisition(ctx context.Context, itemID string, quantity int64) (*Requisition, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := ValidateDocumentID("item_id", itemID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.storage.GetItem(ctx, itemID)
	if err != nil {
		if err == ErrItemNotFound {
			return nil, ErrItemNotFound
		}
		return nil, NewStorageError("get_item", "品目取得に失敗しました", err)
	}

	req := &Requisition{
		ID:                NewRequisitionID(),
		ItemID:            item.ID,
		ItemName:          item.Name,
		QuantityRequested: quantity,
		RequestDate:       e.clock.Now(),
		Status:            RequisitionStatusPending,
		Requester:         e.getUserFromContext(ctx),
	}

	if err := e.storage.CreateRequisition(ctx, req); err != nil {
		return nil, NewStorageError("create_requisition", "購買依頼作成に失敗しました", err)
	}

	if e.publisher != nil {
		event := RequisitionSubmittedEvent{
			RequisitionID: req.ID,
			ItemID:        req.ItemID,
			Quantity:      req.QuantityRequested,
			Requester:     req.Requester,
			Timestamp:     e.clock.Now(),
		}
		if err := e.publisher.PublishRequisitionSubmitted(ctx, event); err != nil {
			e.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	e.logger.Info("購買依頼提出完了",
		zap.String("requisition_id", req.ID),
		zap.String("item_id", req.ItemID),
		zap.Int64("quantity", quantity),
		zap.String("requester", req.Requester),
	)

	return req, nil
}

// CreateOrder builds a single-line purchase order from a PENDING requisition,
// marks the requisition APPROVED (terminal), and schedules the simulated
// vendor delivery. A second call against the same requisition fails because
// the status has already left PENDING.
// PENDING状態の購買依頼から単一明細の発注書を作成し、依頼をAPPROVED（終端）にして
// 仕入先納品シミュレーションをスケジュールする。同一依頼への再実行は
// ステータスが既にPENDINGでないため失敗する。
func (e *Engine) CreateOrder(ctx context.Context, requisitionID, vendorID string, unitPrice float64) (*Order, error) {
	if err := ValidateDocumentID("requisition_id", requisitionID); err != nil {
		return nil, err
	}
	if err := ValidateDocumentID("vendor_id", vendorID); err != nil {
		return nil, err
	}
	if err := ValidateAmount("unit_price", unitPrice); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.storage.GetRequisition(ctx, requisitionID)
	if err != nil {
		if err == ErrRequisitionNotFound {
			return nil, ErrRequisitionNotFound
		}
		return nil, NewStorageError("get_requisition", "購買依頼取得に失敗しました", err)
	}
	if req.Status != RequisitionStatusPending {
		return nil, NewStateError("requisition", req.ID, string(req.Status), string(RequisitionStatusPending))
	}

	vendor, err := e.storage.GetSupplier(ctx, vendorID)
	if err != nil {
		if err == ErrSupplierNotFound {
			return nil, ErrSupplierNotFound
		}
		return nil, NewStorageError("get_supplier", "仕入先取得に失敗しました", err)
	}

	lines := []LineItem{
		{Name: req.ItemName, Quantity: req.QuantityRequested, UnitPrice: unitPrice},
	}
	order := &Order{
		ID:            NewOrderID(),
		RequisitionID: req.ID,
		VendorID:      vendor.ID,
		VendorName:    vendor.Name,
		LineItems:     lines,
		TotalAmount:   LineTotal(lines),
		OrderDate:     e.clock.Now(),
		Status:        OrderStatusSent,
	}

	// 依頼の承認と発注書の登録は同一クリティカルセクションで適用
	req.Status = RequisitionStatusApproved
	if err := e.storage.UpdateRequisition(ctx, req); err != nil {
		return nil, NewStorageError("update_requisition", "購買依頼更新に失敗しました", err)
	}
	if err := e.storage.CreateOrder(ctx, order); err != nil {
		return nil, NewStorageError("create_order", "発注書作成に失敗しました", err)
	}

	// 仕入先納品シミュレーション: リードタイム経過後に一度だけ発火、キャンセル不可
	e.clock.AfterFunc(e.config.DeliveryLeadTime, func() {
		e.arriveDelivery(order.ID)
	})

	if e.publisher != nil {
		event := OrderCreatedEvent{
			OrderID:       order.ID,
			RequisitionID: req.ID,
			VendorID:      vendor.ID,
			TotalAmount:   order.TotalAmount,
			Timestamp:     e.clock.Now(),
		}
		if err := e.publisher.PublishOrderCreated(ctx, event); err != nil {
			e.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	e.logger.Info("発注書作成完了",
		zap.String("order_id", order.ID),
		zap.String("requisition_id", req.ID),
		zap.String("vendor_id", vendor.ID),
		zap.Float64("total_amount", order.TotalAmount),
	)

	return order, nil
}

// arriveDelivery is the system-initiated delivery arrival fired by the
// scheduled effect from CreateOrder. Received lines mirror the order 1:1
// with condition defaulted to GOOD.
// CreateOrderがスケジュールした効果により発火する納品到着処理。
// 受領明細行は発注明細を1:1でミラーし、状態はGOODで初期化される。
func (e *Engine) arriveDelivery(orderID string) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.storage.GetOrder(ctx, orderID)
	if err != nil {
		e.logger.Error("納品到着処理で発注書取得に失敗しました",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	lines := make([]ReceivedLine, 0, len(order.LineItems))
	for _, l := range order.LineItems {
		lines = append(lines, ReceivedLine{
			Name:      l.Name,
			Quantity:  l.Quantity,
			Condition: ConditionGood,
		})
	}

	delivery := &Delivery{
		ID:            NewDeliveryID(),
		OrderID:       order.ID,
		VendorName:    order.VendorName,
		DeliveryDate:  e.clock.Now(),
		Status:        DeliveryStatusSent,
		ReceivedLines: lines,
	}

	if err := e.storage.CreateDelivery(ctx, delivery); err != nil {
		e.logger.Error("納品書作成に失敗しました",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	if e.publisher != nil {
		event := DeliveryArrivedEvent{
			DeliveryID: delivery.ID,
			OrderID:    order.ID,
			VendorName: order.VendorName,
			Timestamp:  e.clock.Now(),
		}
		if err := e.publisher.PublishDeliveryArrived(ctx, event); err != nil {
			e.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	e.logger.Info("納品到着",
		zap.String("delivery_id", delivery.ID),
		zap.String("order_id", order.ID),
		zap.String("vendor_name", order.VendorName),
	)
}

type deliveryResult struct {
	delivery *Delivery
	err      error
}

// VerifyDelivery performs goods receipt verification after a fixed latency.
// On success the status flip and the stock increment are applied as one
// atomic unit. The scheduled effect completes even if the caller stops
// waiting; only the caller's wait respects ctx.
// 固定遅延の後に検収を実行する。成功時はステータス変更と在庫加算を
// 単一の不可分な単位として適用する。呼び出し元が待機をやめても
// スケジュールされた効果は完了する。
func (e *Engine) VerifyDelivery(ctx context.Context, deliveryID string, isMatch bool) (*Delivery, error) {
	if err := ValidateDocumentID("delivery_id", deliveryID); err != nil {
		return nil, err
	}

	result := make(chan deliveryResult, 1)
	e.clock.AfterFunc(e.config.VerificationLatency, func() {
		d, err := e.applyVerification(deliveryID, isMatch)
		result <- deliveryResult{delivery: d, err: err}
	})

	select {
	case r := <-result:
		return r.delivery, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// applyVerification applies the verification outcome atomically
// 検収結果を不可分に適用
func (e *Engine) applyVerification(deliveryID string, isMatch bool) (*Delivery, error) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	delivery, err := e.storage.GetDelivery(ctx, deliveryID)
	if err != nil {
		if err == ErrDeliveryNotFound {
			return nil, ErrDeliveryNotFound
		}
		return nil, NewStorageError("get_delivery", "納品書取得に失敗しました", err)
	}
	if delivery.Status != DeliveryStatusSent {
		// 再検収は在庫の二重加算になるため拒否
		return nil, NewStateError("delivery", delivery.ID, string(delivery.Status), string(DeliveryStatusSent))
	}

	if !isMatch {
		// 状態は一切変更しない
		e.logger.Warn("検収失敗",
			zap.String("delivery_id", delivery.ID),
			zap.String("order_id", delivery.OrderID),
		)
		return nil, ErrVerificationMismatch
	}

	verifiedAt := e.clock.Now()
	delivery.Status = DeliveryStatusReceived
	delivery.VerifiedAt = &verifiedAt
	if err := e.storage.UpdateDelivery(ctx, delivery); err != nil {
		return nil, NewStorageError("update_delivery", "納品書更新に失敗しました", err)
	}

	// 納品書→発注書→購買依頼→品目の連鎖で在庫を加算する。
	// 連鎖のどこかが欠けている場合はスキップであり、エラーではない。
	increment, itemID := e.applyStockIncrement(ctx, delivery)

	if e.publisher != nil {
		event := DeliveryVerifiedEvent{
			DeliveryID:     delivery.ID,
			OrderID:        delivery.OrderID,
			StockIncrement: increment,
			ItemID:         itemID,
			Timestamp:      e.clock.Now(),
		}
		if err := e.publisher.PublishDeliveryVerified(ctx, event); err != nil {
			e.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	e.logger.Info("検収完了",
		zap.String("delivery_id", delivery.ID),
		zap.String("order_id", delivery.OrderID),
		zap.Int64("stock_increment", increment),
	)

	return delivery, nil
}

// applyStockIncrement increments stock by the originating requisition's
// quantity when the full document chain resolves. Returns the applied
// increment and the affected item id (0 and "" when the chain is broken).
// 帳票連鎖が完全に辿れる場合のみ、元の購買依頼数量で在庫を加算する。
func (e *Engine) applyStockIncrement(ctx context.Context, delivery *Delivery) (int64, string) {
	order, err := e.storage.GetOrder(ctx, delivery.OrderID)
	if err != nil || order.RequisitionID == "" {
		return 0, ""
	}
	req, err := e.storage.GetRequisition(ctx, order.RequisitionID)
	if err != nil {
		return 0, ""
	}
	item, err := e.storage.GetItem(ctx, req.ItemID)
	if err != nil {
		return 0, ""
	}

	item.Stock += req.QuantityRequested
	if err := e.storage.UpdateItem(ctx, item); err != nil {
		e.logger.Error("在庫加算に失敗しました",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return 0, ""
	}

	e.logger.Info("在庫加算完了",
		zap.String("item_id", item.ID),
		zap.Int64("increment", req.QuantityRequested),
		zap.Int64("new_stock", item.Stock),
	)

	return req.QuantityRequested, item.ID
}

type invoiceResult struct {
	invoice *Invoice
	err     error
}

// ProcessInvoice inserts an UNPAID invoice against a RECEIVED delivery,
// advances the delivery to INVOICED, and applies the posting rule, all in
// the same critical section. RECEIVED is a strict precondition and
// INVOICED is terminal.
// 検収済み納品に対して未払請求書を登録し、納品書をINVOICEDへ進め、
// 転記ルールを同一クリティカルセクション内で適用する。
// RECEIVEDは厳密な前提条件であり、INVOICEDは終端状態である。
func (e *Engine) ProcessInvoice(ctx context.Context, invoiceID, deliveryID string, amount float64, dueDate time.Time) (*Invoice, error) {
	if err := ValidateDocumentID("invoice_id", invoiceID); err != nil {
		return nil, err
	}
	if err := ValidateDocumentID("delivery_id", deliveryID); err != nil {
		return nil, err
	}
	if err := ValidateAmount("amount", amount); err != nil {
		return nil, err
	}

	result := make(chan invoiceResult, 1)
	e.clock.AfterFunc(e.config.InvoiceLatency, func() {
		inv, err := e.applyInvoice(invoiceID, deliveryID, amount, dueDate)
		result <- invoiceResult{invoice: inv, err: err}
	})

	select {
	case r := <-result:
		return r.invoice, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// applyInvoice applies the invoice insert, status flip and ledger posting atomically
// 請求書登録、ステータス変更、仕訳転記を不可分に適用
func (e *Engine) applyInvoice(invoiceID, deliveryID string, amount float64, dueDate time.Time) (*Invoice, error) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	delivery, err := e.storage.GetDelivery(ctx, deliveryID)
	if err != nil {
		if err == ErrDeliveryNotFound {
			return nil, ErrDeliveryNotFound
		}
		return nil, NewStorageError("get_delivery", "納品書取得に失敗しました", err)
	}
	if delivery.Status != DeliveryStatusReceived {
		return nil, NewStateError("delivery", delivery.ID, string(delivery.Status), string(DeliveryStatusReceived))
	}

	// 請求書IDは仕入先採番のため一意性を確認
	if _, err := e.storage.GetInvoice(ctx, invoiceID); err == nil {
		return nil, ErrDuplicateInvoice
	} else if err != ErrInvoiceNotFound {
		return nil, NewStorageError("get_invoice", "請求書取得に失敗しました", err)
	}

	invoice := &Invoice{
		ID:          invoiceID,
		DeliveryID:  delivery.ID,
		InvoiceDate: e.clock.Now(),
		DueDate:     dueDate,
		TotalAmount: amount,
		Status:      InvoiceStatusUnpaid,
	}

	if err := e.storage.CreateInvoice(ctx, invoice); err != nil {
		return nil, NewStorageError("create_invoice", "請求書作成に失敗しました", err)
	}

	delivery.Status = DeliveryStatusInvoiced
	if err := e.storage.UpdateDelivery(ctx, delivery); err != nil {
		return nil, NewStorageError("update_delivery", "納品書更新に失敗しました", err)
	}

	entry := BuildJournalEntry(invoice, delivery, e.clock.Now())
	if err := e.storage.CreateJournalEntry(ctx, entry); err != nil {
		return nil, NewStorageError("create_journal_entry", "仕訳作成に失敗しました", err)
	}

	if e.publisher != nil {
		event := InvoicePostedEvent{
			InvoiceID:      invoice.ID,
			DeliveryID:     delivery.ID,
			JournalEntryID: entry.ID,
			Amount:         invoice.TotalAmount,
			Timestamp:      e.clock.Now(),
		}
		if err := e.publisher.PublishInvoicePosted(ctx, event); err != nil {
			e.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	e.logger.Info("請求書処理完了",
		zap.String("invoice_id", invoice.ID),
		zap.String("delivery_id", delivery.ID),
		zap.String("journal_entry_id", entry.ID),
		zap.Float64("amount", amount),
	)

	return invoice, nil
}

// SettleInvoice marks an UNPAID invoice as PAID
// 未払請求書を支払済みにする
func (e *Engine) SettleInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if err := ValidateDocumentID("invoice_id", invoiceID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	invoice, err := e.storage.GetInvoice(ctx, invoiceID)
	if err != nil {
		if err == ErrInvoiceNotFound {
			return nil, ErrInvoiceNotFound
		}
		return nil, NewStorageError("get_invoice", "請求書取得に失敗しました", err)
	}
	if invoice.Status != InvoiceStatusUnpaid {
		return nil, NewStateError("invoice", invoice.ID, string(invoice.Status), string(InvoiceStatusUnpaid))
	}

	invoice.Status = InvoiceStatusPaid
	if err := e.storage.UpdateInvoice(ctx, invoice); err != nil {
		return nil, NewStorageError("update_invoice", "請求書更新に失敗しました", err)
	}

	e.logger.Info("請求書支払完了",
		zap.String("invoice_id", invoice.ID),
		zap.Float64("amount", invoice.TotalAmount),
	)

	return invoice, nil
}

// CreateSupplier registers a new supplier
// 新しい仕入先を登録
func (e *Engine) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	if err := ValidateSupplier(supplier); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if supplier.ID == "" {
		supplier.ID = NewSupplierID()
	}
	if _, err := e.storage.GetSupplier(ctx, supplier.ID); err == nil {
		return ErrDuplicateSupplier
	} else if err != ErrSupplierNotFound {
		return NewStorageError("get_supplier", "仕入先取得に失敗しました", err)
	}

	if err := e.storage.CreateSupplier(ctx, supplier); err != nil {
		return NewStorageError("create_supplier", "仕入先登録に失敗しました", err)
	}

	e.logger.Info("仕入先登録完了",
		zap.String("supplier_id", supplier.ID),
		zap.String("name", supplier.Name),
	)

	return nil
}

// CreateItem registers a new inventory item
// 新しい在庫品目を登録
func (e *Engine) CreateItem(ctx context.Context, item *InventoryItem) error {
	if err := ValidateItem(item); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if item.ID == "" {
		item.ID = NewItemID()
	}
	if _, err := e.storage.GetItem(ctx, item.ID); err == nil {
		return ErrDuplicateItem
	} else if err != ErrItemNotFound {
		return NewStorageError("get_item", "品目取得に失敗しました", err)
	}

	if err := e.storage.CreateItem(ctx, item); err != nil {
		return NewStorageError("create_item", "品目登録に失敗しました", err)
	}

	e.logger.Info("品目登録完了",
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
	)

	return nil
}

// 帳票照会 - Register snapshots

// Suppliers returns the current supplier register
// 現在の仕入先レジスタを取得
func (e *Engine) Suppliers(ctx context.Context) ([]Supplier, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListSuppliers(ctx)
}

// Items returns the current inventory register
// 現在の在庫品目レジスタを取得
func (e *Engine) Items(ctx context.Context) ([]InventoryItem, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListItems(ctx)
}

// Requisitions returns the current requisition register
// 現在の購買依頼レジスタを取得
func (e *Engine) Requisitions(ctx context.Context) ([]Requisition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListRequisitions(ctx)
}

// Orders returns the current order register
// 現在の発注書レジスタを取得
func (e *Engine) Orders(ctx context.Context) ([]Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListOrders(ctx)
}

// Deliveries returns the current delivery register
// 現在の納品書レジスタを取得
func (e *Engine) Deliveries(ctx context.Context) ([]Delivery, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListDeliveries(ctx)
}

// Invoices returns the current invoice register
// 現在の請求書レジスタを取得
func (e *Engine) Invoices(ctx context.Context) ([]Invoice, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListInvoices(ctx)
}

// JournalEntries returns the append-only journal
// 追記専用の仕訳帳を取得
func (e *Engine) JournalEntries(ctx context.Context) ([]JournalEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.storage.ListJournalEntries(ctx)
}

// ヘルパーメソッド

// getUserFromContext extracts user ID from context
// コンテキストからユーザーIDを取得
func (e *Engine) getUserFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return e.config.DefaultRequester
}
