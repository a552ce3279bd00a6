package procurement_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement/storage"
)

// newWorkflowEngine builds an engine over seeded in-memory storage with
// latencies short enough for tests
// テスト向けの短いリードタイムでシード済みインメモリストレージ上のエンジンを構築
func newWorkflowEngine(t *testing.T) *procurement.Engine {
	t.Helper()

	store := storage.NewMemoryStorage(zap.NewNop())
	require.NoError(t, store.Seed(context.Background()))

	config := &procurement.Config{
		DeliveryLeadTime:    10 * time.Millisecond,
		VerificationLatency: 0,
		InvoiceLatency:      0,
		DefaultRequester:    "test",
	}
	return procurement.NewEngine(store, nil, nil, nil, zap.NewNop(), config)
}

// waitForDelivery polls the delivery register until the simulated
// vendor shipment arrives
// 仕入先納品シミュレーションの到着まで納品書レジスタをポーリング
func waitForDelivery(t *testing.T, engine *procurement.Engine, count int) []procurement.Delivery {
	t.Helper()

	var deliveries []procurement.Delivery
	require.Eventually(t, func() bool {
		var err error
		deliveries, err = engine.Deliveries(context.Background())
		return err == nil && len(deliveries) >= count
	}, 2*time.Second, 5*time.Millisecond, "納品書が到着しませんでした")
	return deliveries
}

// TestWorkflow_FullProcureToPay は購買から支払までの一連の流れのテスト
func TestWorkflow_FullProcureToPay(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	// 購買依頼
	req, err := engine.SubmitRequisition(ctx, "ITEM-001", 50)
	require.NoError(t, err)
	assert.Equal(t, procurement.RequisitionStatusPending, req.Status)

	// 発注（依頼はAPPROVEDへ）
	order, err := engine.CreateOrder(ctx, req.ID, "SUP-001", 2500000)
	require.NoError(t, err)
	assert.Equal(t, float64(50)*2500000, order.TotalAmount)

	reqs, err := engine.Requisitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, procurement.RequisitionStatusApproved, reqs[0].Status)

	// 納品到着（リードタイム経過後にシステムが登録する）
	deliveries := waitForDelivery(t, engine, 1)
	delivery := deliveries[0]
	assert.Equal(t, order.ID, delivery.OrderID)
	assert.Equal(t, procurement.DeliveryStatusSent, delivery.Status)
	require.Len(t, delivery.ReceivedLines, 1)
	assert.Equal(t, procurement.ConditionGood, delivery.ReceivedLines[0].Condition)

	// 検収（在庫は依頼数量ぶん増える: 15 + 50 = 65）
	verified, err := engine.VerifyDelivery(ctx, delivery.ID, true)
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusReceived, verified.Status)
	require.NotNil(t, verified.VerifiedAt)

	items, err := engine.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(65), items[0].Stock)

	// 請求書処理（納品書はINVOICEDへ、仕訳が転記される）
	dueDate := time.Now().AddDate(0, 1, 0)
	invoice, err := engine.ProcessInvoice(ctx, "INV-2026-100", delivery.ID, order.TotalAmount, dueDate)
	require.NoError(t, err)
	assert.Equal(t, procurement.InvoiceStatusUnpaid, invoice.Status)

	deliveries, err = engine.Deliveries(ctx)
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusInvoiced, deliveries[0].Status)

	entries, err := engine.JournalEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.True(t, entry.IsBalanced())
	assert.Equal(t, order.TotalAmount, entry.TotalDebit())
	assert.Equal(t, "INV-2026-100", entry.InvoiceID)
	assert.Contains(t, entry.Description, "掛仕入")
	assert.Contains(t, entry.Description, "INV-2026-100")

	// 仕入先債務レポート
	report, err := engine.VendorDebtReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "テクノロジー商事株式会社", report[0].Vendor)
	assert.Equal(t, order.TotalAmount, report[0].TotalPurchase)
	assert.Equal(t, order.TotalAmount, report[0].Outstanding)
	assert.Equal(t, 1, report[0].InvoiceCount)

	// 支払（未払残高は0になるが仕入高は残る）
	settled, err := engine.SettleInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.InvoiceStatusPaid, settled.Status)

	report, err = engine.VendorDebtReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, report[0].TotalPurchase)
	assert.Equal(t, float64(0), report[0].Outstanding)

	// 仕訳監査（アドバイザー未設定なので固定講評）
	commentary, err := engine.AuditJournalEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.StaticAdvisoryMessage, commentary)
}

// TestWorkflow_VerificationMismatch は検収失敗時に状態が変わらないことのテスト
func TestWorkflow_VerificationMismatch(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-002", 40)
	require.NoError(t, err)
	_, err = engine.CreateOrder(ctx, req.ID, "SUP-003", 500000)
	require.NoError(t, err)

	delivery := waitForDelivery(t, engine, 1)[0]

	// 検収失敗
	_, err = engine.VerifyDelivery(ctx, delivery.ID, false)
	assert.ErrorIs(t, err, procurement.ErrVerificationMismatch)

	// 納品書はSENTのまま、在庫も変わらない
	deliveries, err := engine.Deliveries(ctx)
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusSent, deliveries[0].Status)

	items, err := engine.Items(ctx)
	require.NoError(t, err)
	for _, item := range items {
		if item.ID == "ITEM-002" {
			assert.Equal(t, int64(100), item.Stock)
		}
	}

	// 差異解消後の再検収は成功する
	verified, err := engine.VerifyDelivery(ctx, delivery.ID, true)
	require.NoError(t, err)
	assert.Equal(t, procurement.DeliveryStatusReceived, verified.Status)
}

// TestWorkflow_DoubleVerificationRejected は検収の二重実行拒否のテスト
func TestWorkflow_DoubleVerificationRejected(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-001", 10)
	require.NoError(t, err)
	_, err = engine.CreateOrder(ctx, req.ID, "SUP-001", 2500000)
	require.NoError(t, err)

	delivery := waitForDelivery(t, engine, 1)[0]

	_, err = engine.VerifyDelivery(ctx, delivery.ID, true)
	require.NoError(t, err)

	// 二重検収は在庫の二重加算になるため拒否される
	_, err = engine.VerifyDelivery(ctx, delivery.ID, true)
	var stateErr *procurement.StateError
	assert.ErrorAs(t, err, &stateErr)

	items, err := engine.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), items[0].Stock)
}

// TestWorkflow_SecondOrderRejected は同一依頼への再発注拒否のテスト
func TestWorkflow_SecondOrderRejected(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-003", 300)
	require.NoError(t, err)

	_, err = engine.CreateOrder(ctx, req.ID, "SUP-002", 5000)
	require.NoError(t, err)

	_, err = engine.CreateOrder(ctx, req.ID, "SUP-002", 5000)
	var stateErr *procurement.StateError
	assert.ErrorAs(t, err, &stateErr)
}

// TestWorkflow_DuplicateInvoiceRejected は請求書ID重複拒否のテスト
func TestWorkflow_DuplicateInvoiceRejected(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-001", 10)
	require.NoError(t, err)
	order, err := engine.CreateOrder(ctx, req.ID, "SUP-001", 2500000)
	require.NoError(t, err)

	delivery := waitForDelivery(t, engine, 1)[0]
	_, err = engine.VerifyDelivery(ctx, delivery.ID, true)
	require.NoError(t, err)

	dueDate := time.Now().AddDate(0, 1, 0)
	_, err = engine.ProcessInvoice(ctx, "INV-DUP", delivery.ID, order.TotalAmount, dueDate)
	require.NoError(t, err)

	// 同じIDでの再処理は拒否される（納品書が既にINVOICEDのためステータスエラー）
	_, err = engine.ProcessInvoice(ctx, "INV-DUP", delivery.ID, order.TotalAmount, dueDate)
	assert.Error(t, err)

	// 仕訳は1件のまま
	entries, err := engine.JournalEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// TestWorkflow_InvoiceRequiresVerifiedDelivery は未検収納品への請求書拒否のテスト
func TestWorkflow_InvoiceRequiresVerifiedDelivery(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-002", 20)
	require.NoError(t, err)
	order, err := engine.CreateOrder(ctx, req.ID, "SUP-003", 500000)
	require.NoError(t, err)

	delivery := waitForDelivery(t, engine, 1)[0]

	// SENTのまま請求書を処理しようとするとステータスエラー
	_, err = engine.ProcessInvoice(ctx, "INV-EARLY", delivery.ID, order.TotalAmount, time.Now())
	var stateErr *procurement.StateError
	assert.ErrorAs(t, err, &stateErr)

	// 請求書も仕訳も登録されない
	invoices, err := engine.Invoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	entries, err := engine.JournalEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestWorkflow_DeliveryLeadTimeWithMockClock は仮想時計での納品リードタイムのテスト
func TestWorkflow_DeliveryLeadTimeWithMockClock(t *testing.T) {
	store := storage.NewMemoryStorage(zap.NewNop())
	require.NoError(t, store.Seed(context.Background()))

	mockClock := clock.NewMock()
	config := &procurement.Config{
		DeliveryLeadTime:    5 * time.Second,
		VerificationLatency: 600 * time.Millisecond,
		InvoiceLatency:      800 * time.Millisecond,
		DefaultRequester:    "test",
	}
	engine := procurement.NewEngine(store, nil, nil, mockClock, zap.NewNop(), config)
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, "ITEM-001", 5)
	require.NoError(t, err)
	_, err = engine.CreateOrder(ctx, req.ID, "SUP-001", 2500000)
	require.NoError(t, err)

	// リードタイム前は納品書は存在しない
	deliveries, err := engine.Deliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, deliveries)

	mockClock.Add(4 * time.Second)
	deliveries, err = engine.Deliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, deliveries)

	// リードタイム経過で到着
	mockClock.Add(1 * time.Second)
	waitForDelivery(t, engine, 1)
}

// runToInvoice は1件の請求書処理までのフローを実行するヘルパー
func runToInvoice(t *testing.T, engine *procurement.Engine, itemID, vendorID, invoiceID string, quantity int64, unitPrice float64, deliveryCount int) *procurement.Invoice {
	t.Helper()
	ctx := context.Background()

	req, err := engine.SubmitRequisition(ctx, itemID, quantity)
	require.NoError(t, err)
	order, err := engine.CreateOrder(ctx, req.ID, vendorID, unitPrice)
	require.NoError(t, err)

	deliveries := waitForDelivery(t, engine, deliveryCount)
	var delivery procurement.Delivery
	for _, d := range deliveries {
		if d.OrderID == order.ID {
			delivery = d
		}
	}
	require.NotEmpty(t, delivery.ID)

	_, err = engine.VerifyDelivery(ctx, delivery.ID, true)
	require.NoError(t, err)

	invoice, err := engine.ProcessInvoice(ctx, invoiceID, delivery.ID, order.TotalAmount, time.Now().AddDate(0, 1, 0))
	require.NoError(t, err)
	return invoice
}

// TestWorkflow_VendorDebtAggregation は同一仕入先への複数請求書の集計のテスト
func TestWorkflow_VendorDebtAggregation(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	// 同一仕入先に3件の請求書、うち1件を支払済みにする
	inv1 := runToInvoice(t, engine, "ITEM-001", "SUP-001", "INV-A", 10, 2500000, 1)
	inv2 := runToInvoice(t, engine, "ITEM-001", "SUP-001", "INV-B", 20, 2500000, 2)
	inv3 := runToInvoice(t, engine, "ITEM-002", "SUP-001", "INV-C", 40, 500000, 3)

	_, err := engine.SettleInvoice(ctx, inv3.ID)
	require.NoError(t, err)

	report, err := engine.VendorDebtReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)

	total := inv1.TotalAmount + inv2.TotalAmount + inv3.TotalAmount
	outstanding := inv1.TotalAmount + inv2.TotalAmount

	// 仕入高は支払済みを含む、未払残高はUNPAIDのみ
	assert.Equal(t, "テクノロジー商事株式会社", report[0].Vendor)
	assert.Equal(t, total, report[0].TotalPurchase)
	assert.Equal(t, outstanding, report[0].Outstanding)
	assert.Equal(t, 3, report[0].InvoiceCount)
}

// TestWorkflow_DashboardStats はダッシュボード集計のテスト
func TestWorkflow_DashboardStats(t *testing.T) {
	engine := newWorkflowEngine(t)
	ctx := context.Background()

	// シードデータではITEM-001(15/20)とITEM-003(20/200)が安全在庫割れ
	stats, err := engine.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LowStockCount)
	assert.Equal(t, 0, stats.PendingDeliveries)
	assert.Equal(t, 0, stats.OpenInvoices)

	req, err := engine.SubmitRequisition(ctx, "ITEM-001", 10)
	require.NoError(t, err)
	order, err := engine.CreateOrder(ctx, req.ID, "SUP-001", 2500000)
	require.NoError(t, err)

	waitForDelivery(t, engine, 1)
	stats, err = engine.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingDeliveries)

	deliveries, err := engine.Deliveries(ctx)
	require.NoError(t, err)
	_, err = engine.VerifyDelivery(ctx, deliveries[0].ID, true)
	require.NoError(t, err)

	_, err = engine.ProcessInvoice(ctx, "INV-STATS", deliveries[0].ID, order.TotalAmount, time.Now())
	require.NoError(t, err)

	// 検収で在庫25になりITEM-001の安全在庫割れは解消される
	stats, err = engine.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Equal(t, 0, stats.PendingDeliveries)
	assert.Equal(t, 1, stats.OpenInvoices)
	assert.Equal(t, order.TotalAmount, stats.TotalDebt)
}
