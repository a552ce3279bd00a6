package procurement

import (
	"context"

	"go.uber.org/zap"
)

// VendorDebt represents per-vendor purchase and outstanding debt totals
// 仕入先ごとの仕入高と未払残高を表現
type VendorDebt struct {
	Vendor        string  `json:"vendor"`         // 仕入先名
	TotalPurchase float64 `json:"total_purchase"` // 仕入高合計（支払済み含む）
	Outstanding   float64 `json:"outstanding"`    // 未払残高（UNPAIDのみ）
	InvoiceCount  int     `json:"invoice_count"`  // 請求書件数
}

// DashboardStats represents the on-demand dashboard counters
// ダッシュボード用の集計値を表現
type DashboardStats struct {
	LowStockCount     int     `json:"low_stock_count"`    // 安全在庫割れ品目数
	PendingDeliveries int     `json:"pending_deliveries"` // 検収待ち納品書数
	OpenInvoices      int     `json:"open_invoices"`      // 未払請求書件数
	TotalDebt         float64 `json:"total_debt"`         // 未払残高合計
}

// VendorDebtReport groups invoices by the vendor of their linked delivery.
// Recomputed on every call, never cached.
// 請求書を紐づく納品書の仕入先ごとに集計する。毎回再計算し、キャッシュしない。
func (e *Engine) VendorDebtReport(ctx context.Context) ([]VendorDebt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	invoices, err := e.storage.ListInvoices(ctx)
	if err != nil {
		return nil, NewStorageError("list_invoices", "請求書一覧取得に失敗しました", err)
	}

	index := make(map[string]int)
	report := make([]VendorDebt, 0)
	for _, inv := range invoices {
		vendor := "Unknown"
		if delivery, err := e.storage.GetDelivery(ctx, inv.DeliveryID); err == nil {
			vendor = delivery.VendorName
		}

		i, ok := index[vendor]
		if !ok {
			i = len(report)
			index[vendor] = i
			report = append(report, VendorDebt{Vendor: vendor})
		}

		report[i].TotalPurchase += inv.TotalAmount
		report[i].InvoiceCount++
		if inv.Status == InvoiceStatusUnpaid {
			report[i].Outstanding += inv.TotalAmount
		}
	}

	return report, nil
}

// DashboardStats computes the dashboard counters over the current registers
// 現在の帳票レジスタからダッシュボード集計値を計算
func (e *Engine) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items, err := e.storage.ListItems(ctx)
	if err != nil {
		return nil, NewStorageError("list_items", "品目一覧取得に失敗しました", err)
	}
	deliveries, err := e.storage.ListDeliveries(ctx)
	if err != nil {
		return nil, NewStorageError("list_deliveries", "納品書一覧取得に失敗しました", err)
	}
	invoices, err := e.storage.ListInvoices(ctx)
	if err != nil {
		return nil, NewStorageError("list_invoices", "請求書一覧取得に失敗しました", err)
	}

	stats := &DashboardStats{}
	for i := range items {
		if items[i].IsLowStock() {
			stats.LowStockCount++
		}
	}
	for i := range deliveries {
		if deliveries[i].Status == DeliveryStatusSent {
			stats.PendingDeliveries++
		}
	}
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusUnpaid {
			stats.OpenInvoices++
			stats.TotalDebt += inv.TotalAmount
		}
	}

	e.logger.Debug("ダッシュボード集計完了",
		zap.Int("low_stock_count", stats.LowStockCount),
		zap.Int("pending_deliveries", stats.PendingDeliveries),
		zap.Int("open_invoices", stats.OpenInvoices),
	)

	return stats, nil
}
