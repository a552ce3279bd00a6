package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
)

// PostgreSQLStorage implements the Storage interface using PostgreSQL
// PostgreSQLを使用したStorageインターフェースの実装
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// インターフェースを実装することを明示
var _ procurement.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}, nil
}

// Item register
// 品目レジスタ

func (s *PostgreSQLStorage) CreateItem(ctx context.Context, item *procurement.InventoryItem) error {
	query := `
		INSERT INTO items (id, name, stock, safety_stock, unit, last_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.Stock,
		item.SafetyStock,
		item.Unit,
		item.LastPrice,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return procurement.ErrDuplicateItem
		}
		return fmt.Errorf("品目作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetItem(ctx context.Context, itemID string) (*procurement.InventoryItem, error) {
	query := `
		SELECT id, name, stock, safety_stock, unit, last_price
		FROM items
		WHERE id = $1`

	item := &procurement.InventoryItem{}
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID,
		&item.Name,
		&item.Stock,
		&item.SafetyStock,
		&item.Unit,
		&item.LastPrice,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrItemNotFound
		}
		return nil, fmt.Errorf("品目取得に失敗しました: %w", err)
	}

	return item, nil
}

func (s *PostgreSQLStorage) UpdateItem(ctx context.Context, item *procurement.InventoryItem) error {
	query := `
		UPDATE items
		SET name = $2, stock = $3, safety_stock = $4, unit = $5, last_price = $6
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.Stock,
		item.SafetyStock,
		item.Unit,
		item.LastPrice,
	)
	if err != nil {
		return fmt.Errorf("品目更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return procurement.ErrItemNotFound
	}

	return nil
}

func (s *PostgreSQLStorage) ListItems(ctx context.Context) ([]procurement.InventoryItem, error) {
	query := `
		SELECT id, name, stock, safety_stock, unit, last_price
		FROM items
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("品目一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []procurement.InventoryItem
	for rows.Next() {
		var item procurement.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Stock, &item.SafetyStock, &item.Unit, &item.LastPrice); err != nil {
			return nil, fmt.Errorf("品目スキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Supplier register
// 仕入先レジスタ

func (s *PostgreSQLStorage) CreateSupplier(ctx context.Context, supplier *procurement.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, address, contact, email)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		supplier.ID,
		supplier.Name,
		supplier.Address,
		supplier.Contact,
		supplier.Email,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return procurement.ErrDuplicateSupplier
		}
		return fmt.Errorf("仕入先作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetSupplier(ctx context.Context, supplierID string) (*procurement.Supplier, error) {
	query := `
		SELECT id, name, address, contact, email
		FROM suppliers
		WHERE id = $1`

	supplier := &procurement.Supplier{}
	err := s.db.QueryRowContext(ctx, query, supplierID).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Address,
		&supplier.Contact,
		&supplier.Email,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("仕入先取得に失敗しました: %w", err)
	}

	return supplier, nil
}

func (s *PostgreSQLStorage) ListSuppliers(ctx context.Context) ([]procurement.Supplier, error) {
	query := `
		SELECT id, name, address, contact, email
		FROM suppliers
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("仕入先一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var suppliers []procurement.Supplier
	for rows.Next() {
		var supplier procurement.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Address, &supplier.Contact, &supplier.Email); err != nil {
			return nil, fmt.Errorf("仕入先スキャンに失敗しました: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	return suppliers, rows.Err()
}

// Requisition register
// 購買依頼レジスタ

func (s *PostgreSQLStorage) CreateRequisition(ctx context.Context, req *procurement.Requisition) error {
	query := `
		INSERT INTO requisitions (id, item_id, item_name, quantity_requested, request_date, status, requester)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		req.ID,
		req.ItemID,
		req.ItemName,
		req.QuantityRequested,
		req.RequestDate,
		req.Status,
		req.Requester,
	)
	if err != nil {
		return fmt.Errorf("購買依頼作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetRequisition(ctx context.Context, requisitionID string) (*procurement.Requisition, error) {
	query := `
		SELECT id, item_id, item_name, quantity_requested, request_date, status, requester
		FROM requisitions
		WHERE id = $1`

	req := &procurement.Requisition{}
	err := s.db.QueryRowContext(ctx, query, requisitionID).Scan(
		&req.ID,
		&req.ItemID,
		&req.ItemName,
		&req.QuantityRequested,
		&req.RequestDate,
		&req.Status,
		&req.Requester,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrRequisitionNotFound
		}
		return nil, fmt.Errorf("購買依頼取得に失敗しました: %w", err)
	}

	return req, nil
}

func (s *PostgreSQLStorage) UpdateRequisition(ctx context.Context, req *procurement.Requisition) error {
	query := `
		UPDATE requisitions
		SET status = $2
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, req.ID, req.Status)
	if err != nil {
		return fmt.Errorf("購買依頼更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return procurement.ErrRequisitionNotFound
	}

	return nil
}

func (s *PostgreSQLStorage) ListRequisitions(ctx context.Context) ([]procurement.Requisition, error) {
	query := `
		SELECT id, item_id, item_name, quantity_requested, request_date, status, requester
		FROM requisitions
		ORDER BY request_date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("購買依頼一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reqs []procurement.Requisition
	for rows.Next() {
		var req procurement.Requisition
		if err := rows.Scan(&req.ID, &req.ItemID, &req.ItemName, &req.QuantityRequested, &req.RequestDate, &req.Status, &req.Requester); err != nil {
			return nil, fmt.Errorf("購買依頼スキャンに失敗しました: %w", err)
		}
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

// Order register
// 発注書レジスタ

func (s *PostgreSQLStorage) CreateOrder(ctx context.Context, order *procurement.Order) error {
	linesJSON, err := json.Marshal(order.LineItems)
	if err != nil {
		return fmt.Errorf("明細行のJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO orders (id, requisition_id, vendor_id, vendor_name, line_items, total_amount, order_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		order.ID,
		nullableString(order.RequisitionID),
		order.VendorID,
		order.VendorName,
		linesJSON,
		order.TotalAmount,
		order.OrderDate,
		order.Status,
	)
	if err != nil {
		return fmt.Errorf("発注書作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetOrder(ctx context.Context, orderID string) (*procurement.Order, error) {
	query := `
		SELECT id, requisition_id, vendor_id, vendor_name, line_items, total_amount, order_date, status
		FROM orders
		WHERE id = $1`

	order := &procurement.Order{}
	var requisitionID sql.NullString
	var linesJSON []byte
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&requisitionID,
		&order.VendorID,
		&order.VendorName,
		&linesJSON,
		&order.TotalAmount,
		&order.OrderDate,
		&order.Status,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrOrderNotFound
		}
		return nil, fmt.Errorf("発注書取得に失敗しました: %w", err)
	}

	order.RequisitionID = requisitionID.String
	if err := json.Unmarshal(linesJSON, &order.LineItems); err != nil {
		return nil, fmt.Errorf("明細行のJSON解析に失敗しました: %w", err)
	}

	return order, nil
}

func (s *PostgreSQLStorage) ListOrders(ctx context.Context) ([]procurement.Order, error) {
	query := `
		SELECT id, requisition_id, vendor_id, vendor_name, line_items, total_amount, order_date, status
		FROM orders
		ORDER BY order_date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("発注書一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var orders []procurement.Order
	for rows.Next() {
		var order procurement.Order
		var requisitionID sql.NullString
		var linesJSON []byte
		if err := rows.Scan(&order.ID, &requisitionID, &order.VendorID, &order.VendorName, &linesJSON, &order.TotalAmount, &order.OrderDate, &order.Status); err != nil {
			return nil, fmt.Errorf("発注書スキャンに失敗しました: %w", err)
		}
		order.RequisitionID = requisitionID.String
		if err := json.Unmarshal(linesJSON, &order.LineItems); err != nil {
			return nil, fmt.Errorf("明細行のJSON解析に失敗しました: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Delivery register
// 納品書レジスタ

func (s *PostgreSQLStorage) CreateDelivery(ctx context.Context, delivery *procurement.Delivery) error {
	linesJSON, err := json.Marshal(delivery.ReceivedLines)
	if err != nil {
		return fmt.Errorf("受領明細行のJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO deliveries (id, order_id, vendor_name, delivery_date, status, verified_at, received_lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.db.ExecContext(ctx, query,
		delivery.ID,
		delivery.OrderID,
		delivery.VendorName,
		delivery.DeliveryDate,
		delivery.Status,
		delivery.VerifiedAt,
		linesJSON,
	)
	if err != nil {
		return fmt.Errorf("納品書作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetDelivery(ctx context.Context, deliveryID string) (*procurement.Delivery, error) {
	query := `
		SELECT id, order_id, vendor_name, delivery_date, status, verified_at, received_lines
		FROM deliveries
		WHERE id = $1`

	delivery := &procurement.Delivery{}
	var linesJSON []byte
	err := s.db.QueryRowContext(ctx, query, deliveryID).Scan(
		&delivery.ID,
		&delivery.OrderID,
		&delivery.VendorName,
		&delivery.DeliveryDate,
		&delivery.Status,
		&delivery.VerifiedAt,
		&linesJSON,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("納品書取得に失敗しました: %w", err)
	}

	if err := json.Unmarshal(linesJSON, &delivery.ReceivedLines); err != nil {
		return nil, fmt.Errorf("受領明細行のJSON解析に失敗しました: %w", err)
	}

	return delivery, nil
}

func (s *PostgreSQLStorage) UpdateDelivery(ctx context.Context, delivery *procurement.Delivery) error {
	query := `
		UPDATE deliveries
		SET status = $2, verified_at = $3
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, delivery.ID, delivery.Status, delivery.VerifiedAt)
	if err != nil {
		return fmt.Errorf("納品書更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return procurement.ErrDeliveryNotFound
	}

	return nil
}

func (s *PostgreSQLStorage) ListDeliveries(ctx context.Context) ([]procurement.Delivery, error) {
	query := `
		SELECT id, order_id, vendor_name, delivery_date, status, verified_at, received_lines
		FROM deliveries
		ORDER BY delivery_date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("納品書一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var deliveries []procurement.Delivery
	for rows.Next() {
		var delivery procurement.Delivery
		var linesJSON []byte
		if err := rows.Scan(&delivery.ID, &delivery.OrderID, &delivery.VendorName, &delivery.DeliveryDate, &delivery.Status, &delivery.VerifiedAt, &linesJSON); err != nil {
			return nil, fmt.Errorf("納品書スキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(linesJSON, &delivery.ReceivedLines); err != nil {
			return nil, fmt.Errorf("受領明細行のJSON解析に失敗しました: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, rows.Err()
}

// Invoice register
// 請求書レジスタ

func (s *PostgreSQLStorage) CreateInvoice(ctx context.Context, invoice *procurement.Invoice) error {
	query := `
		INSERT INTO invoices (id, delivery_id, invoice_date, due_date, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.DeliveryID,
		invoice.InvoiceDate,
		invoice.DueDate,
		invoice.TotalAmount,
		invoice.Status,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return procurement.ErrDuplicateInvoice
		}
		return fmt.Errorf("請求書作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetInvoice(ctx context.Context, invoiceID string) (*procurement.Invoice, error) {
	query := `
		SELECT id, delivery_id, invoice_date, due_date, total_amount, status
		FROM invoices
		WHERE id = $1`

	invoice := &procurement.Invoice{}
	err := s.db.QueryRowContext(ctx, query, invoiceID).Scan(
		&invoice.ID,
		&invoice.DeliveryID,
		&invoice.InvoiceDate,
		&invoice.DueDate,
		&invoice.TotalAmount,
		&invoice.Status,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("請求書取得に失敗しました: %w", err)
	}

	return invoice, nil
}

func (s *PostgreSQLStorage) UpdateInvoice(ctx context.Context, invoice *procurement.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $2
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, invoice.ID, invoice.Status)
	if err != nil {
		return fmt.Errorf("請求書更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return procurement.ErrInvoiceNotFound
	}

	return nil
}

func (s *PostgreSQLStorage) ListInvoices(ctx context.Context) ([]procurement.Invoice, error) {
	query := `
		SELECT id, delivery_id, invoice_date, due_date, total_amount, status
		FROM invoices
		ORDER BY invoice_date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("請求書一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var invoices []procurement.Invoice
	for rows.Next() {
		var invoice procurement.Invoice
		if err := rows.Scan(&invoice.ID, &invoice.DeliveryID, &invoice.InvoiceDate, &invoice.DueDate, &invoice.TotalAmount, &invoice.Status); err != nil {
			return nil, fmt.Errorf("請求書スキャンに失敗しました: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// Journal (append-only: no UPDATE or DELETE statements exist for this table)
// 仕訳帳（追記専用: このテーブルにUPDATE/DELETE文は存在しない）

func (s *PostgreSQLStorage) CreateJournalEntry(ctx context.Context, entry *procurement.JournalEntry) error {
	debitJSON, err := json.Marshal(entry.DebitLines)
	if err != nil {
		return fmt.Errorf("借方行のJSON変換に失敗しました: %w", err)
	}
	creditJSON, err := json.Marshal(entry.CreditLines)
	if err != nil {
		return fmt.Errorf("貸方行のJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO journal_entries (id, date, description, invoice_id, debit_lines, credit_lines)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Date,
		entry.Description,
		entry.InvoiceID,
		debitJSON,
		creditJSON,
	)
	if err != nil {
		return fmt.Errorf("仕訳作成に失敗しました: %w", err)
	}

	return nil
}

func (s *PostgreSQLStorage) GetJournalEntry(ctx context.Context, entryID string) (*procurement.JournalEntry, error) {
	query := `
		SELECT id, date, description, invoice_id, debit_lines, credit_lines
		FROM journal_entries
		WHERE id = $1`

	entry := &procurement.JournalEntry{}
	var debitJSON, creditJSON []byte
	err := s.db.QueryRowContext(ctx, query, entryID).Scan(
		&entry.ID,
		&entry.Date,
		&entry.Description,
		&entry.InvoiceID,
		&debitJSON,
		&creditJSON,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, procurement.ErrJournalEntryNotFound
		}
		return nil, fmt.Errorf("仕訳取得に失敗しました: %w", err)
	}

	if err := json.Unmarshal(debitJSON, &entry.DebitLines); err != nil {
		return nil, fmt.Errorf("借方行のJSON解析に失敗しました: %w", err)
	}
	if err := json.Unmarshal(creditJSON, &entry.CreditLines); err != nil {
		return nil, fmt.Errorf("貸方行のJSON解析に失敗しました: %w", err)
	}

	return entry, nil
}

func (s *PostgreSQLStorage) ListJournalEntries(ctx context.Context) ([]procurement.JournalEntry, error) {
	query := `
		SELECT id, date, description, invoice_id, debit_lines, credit_lines
		FROM journal_entries
		ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("仕訳一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []procurement.JournalEntry
	for rows.Next() {
		var entry procurement.JournalEntry
		var debitJSON, creditJSON []byte
		if err := rows.Scan(&entry.ID, &entry.Date, &entry.Description, &entry.InvoiceID, &debitJSON, &creditJSON); err != nil {
			return nil, fmt.Errorf("仕訳スキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(debitJSON, &entry.DebitLines); err != nil {
			return nil, fmt.Errorf("借方行のJSON解析に失敗しました: %w", err)
		}
		if err := json.Unmarshal(creditJSON, &entry.CreditLines); err != nil {
			return nil, fmt.Errorf("貸方行のJSON解析に失敗しました: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}

// nullableString converts an empty string to a SQL NULL
// 空文字列をSQL NULLに変換
func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
