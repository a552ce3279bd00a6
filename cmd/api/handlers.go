package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
)

// Handlers holds HTTP handlers for the procurement API
// 調達API用のHTTPハンドラーを保持
type Handlers struct {
	engine procurement.WorkflowEngine
	master procurement.MasterDataManager
	logger *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(engine procurement.WorkflowEngine, master procurement.MasterDataManager, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		master: master,
		logger: logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SubmitRequisitionRequest represents request to submit a purchase requisition
// 購買依頼提出リクエストを表現
type SubmitRequisitionRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// CreateOrderRequest represents request to create a purchase order
// 発注書作成リクエストを表現
type CreateOrderRequest struct {
	RequisitionID string  `json:"requisition_id"`
	VendorID      string  `json:"vendor_id"`
	UnitPrice     float64 `json:"unit_price"`
}

// VerifyDeliveryRequest represents request to verify a delivery
// 検収リクエストを表現
type VerifyDeliveryRequest struct {
	IsMatch bool `json:"is_match"`
}

// ProcessInvoiceRequest represents request to process a vendor invoice
// 請求書処理リクエストを表現
type ProcessInvoiceRequest struct {
	InvoiceID  string    `json:"invoice_id"`
	DeliveryID string    `json:"delivery_id"`
	Amount     float64   `json:"amount"`
	DueDate    time.Time `json:"due_date"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "chotatsuGoFramework",
		},
	}

	json.NewEncoder(w).Encode(response)
}

// SubmitRequisition handles requisition submission requests
// 購買依頼提出リクエストを処理
func (h *Handlers) SubmitRequisition(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequisitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	ctx := context.WithValue(r.Context(), "user_id", "api_user")
	requisition, err := h.engine.SubmitRequisition(ctx, req.ItemID, req.Quantity)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, requisition)
}

// ListRequisitions handles requisition register queries
// 購買依頼レジスタ照会を処理
func (h *Handlers) ListRequisitions(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.engine.Requisitions(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, reqs)
}

// CreateOrder handles purchase order creation requests
// 発注書作成リクエストを処理
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	order, err := h.engine.CreateOrder(r.Context(), req.RequisitionID, req.VendorID, req.UnitPrice)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, order)
}

// ListOrders handles order register queries
// 発注書レジスタ照会を処理
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.Orders(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, orders)
}

// ListDeliveries handles delivery register queries
// 納品書レジスタ照会を処理
func (h *Handlers) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.engine.Deliveries(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, deliveries)
}

// VerifyDelivery handles goods receipt verification requests
// 検収リクエストを処理
func (h *Handlers) VerifyDelivery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deliveryID := vars["deliveryId"]

	var req VerifyDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	delivery, err := h.engine.VerifyDelivery(r.Context(), deliveryID, req.IsMatch)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, delivery)
}

// ProcessInvoice handles vendor invoice processing requests
// 請求書処理リクエストを処理
func (h *Handlers) ProcessInvoice(w http.ResponseWriter, r *http.Request) {
	var req ProcessInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	invoice, err := h.engine.ProcessInvoice(r.Context(), req.InvoiceID, req.DeliveryID, req.Amount, req.DueDate)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, invoice)
}

// ListInvoices handles invoice register queries
// 請求書レジスタ照会を処理
func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.engine.Invoices(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, invoices)
}

// SettleInvoice handles invoice settlement requests
// 請求書支払リクエストを処理
func (h *Handlers) SettleInvoice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	invoiceID := vars["invoiceId"]

	invoice, err := h.engine.SettleInvoice(r.Context(), invoiceID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, invoice)
}

// ListJournalEntries handles journal queries
// 仕訳帳照会を処理
func (h *Handlers) ListJournalEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.JournalEntries(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, entries)
}

// AuditJournalEntry handles advisory journal audit requests
// 仕訳監査リクエストを処理
func (h *Handlers) AuditJournalEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entryID := vars["entryId"]

	commentary, err := h.engine.AuditJournalEntry(r.Context(), entryID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{
		"entry_id":   entryID,
		"commentary": commentary,
	})
}

// CreateSupplier handles supplier registration requests
// 仕入先登録リクエストを処理
func (h *Handlers) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier procurement.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.master.CreateSupplier(r.Context(), &supplier); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, supplier)
}

// ListSuppliers handles supplier register queries
// 仕入先レジスタ照会を処理
func (h *Handlers) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.engine.Suppliers(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, suppliers)
}

// CreateItem handles inventory item registration requests
// 品目登録リクエストを処理
func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item procurement.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.master.CreateItem(r.Context(), &item); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, item)
}

// ListItems handles inventory register queries
// 在庫品目レジスタ照会を処理
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.Items(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, items)
}

// VendorDebtReport handles vendor debt report requests
// 仕入先債務レポートリクエストを処理
func (h *Handlers) VendorDebtReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.VendorDebtReport(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, report)
}

// DashboardStats handles dashboard statistics requests
// ダッシュボード統計リクエストを処理
func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.DashboardStats(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, stats)
}

// sendDomainError maps domain errors to HTTP status codes
// ドメインエラーをHTTPステータスコードに変換して送信
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	var validationErr *procurement.ValidationError
	var stateErr *procurement.StateError

	switch {
	case errors.As(err, &validationErr):
		h.sendError(w, http.StatusBadRequest, err.Error())
	case procurement.IsNotFound(err):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stateErr):
		h.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, procurement.ErrVerificationMismatch):
		h.sendError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, procurement.ErrDuplicateInvoice),
		errors.Is(err, procurement.ErrDuplicateSupplier),
		errors.Is(err, procurement.ErrDuplicateItem):
		h.sendError(w, http.StatusConflict, err.Error())
	default:
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
