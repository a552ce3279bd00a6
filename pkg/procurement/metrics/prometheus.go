// Package metrics provides a prometheus-backed workflow event publisher
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
)

// Publisher implements procurement.EventPublisher by incrementing
// prometheus counters for every workflow event.
// ワークフローイベントごとにprometheusカウンターを加算する
// EventPublisherの実装。
type Publisher struct {
	documentsTotal   *prometheus.CounterVec // 作成帳票数（種別ラベル付き）
	stockReceived    prometheus.Counter     // 検収による在庫受入数量
	journalAmount    prometheus.Counter     // 転記された仕訳金額
	orderAmountTotal prometheus.Counter     // 発注金額合計
}

// インターフェースを実装することを明示
var _ procurement.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new prometheus publisher and registers its
// collectors with the given registerer
// 新しいprometheusパブリッシャーを作成し、コレクターを登録する
func NewPublisher(reg prometheus.Registerer) *Publisher {
	p := &Publisher{
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chotatsu",
			Name:      "documents_total",
			Help:      "Number of workflow documents created by type",
		}, []string{"type"}),
		stockReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chotatsu",
			Name:      "stock_received_total",
			Help:      "Total stock quantity received through goods receipt verification",
		}),
		journalAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chotatsu",
			Name:      "journal_amount_total",
			Help:      "Total amount posted to the ledger",
		}),
		orderAmountTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chotatsu",
			Name:      "order_amount_total",
			Help:      "Total amount of purchase orders sent",
		}),
	}

	if reg != nil {
		reg.MustRegister(p.documentsTotal, p.stockReceived, p.journalAmount, p.orderAmountTotal)
	}

	return p
}

// PublishRequisitionSubmitted counts a new requisition
// 購買依頼の提出を記録
func (p *Publisher) PublishRequisitionSubmitted(ctx context.Context, event procurement.RequisitionSubmittedEvent) error {
	p.documentsTotal.WithLabelValues("requisition").Inc()
	return nil
}

// PublishOrderCreated counts a new purchase order
// 発注書の作成を記録
func (p *Publisher) PublishOrderCreated(ctx context.Context, event procurement.OrderCreatedEvent) error {
	p.documentsTotal.WithLabelValues("order").Inc()
	p.orderAmountTotal.Add(event.TotalAmount)
	return nil
}

// PublishDeliveryArrived counts a new delivery note
// 納品書の到着を記録
func (p *Publisher) PublishDeliveryArrived(ctx context.Context, event procurement.DeliveryArrivedEvent) error {
	p.documentsTotal.WithLabelValues("delivery").Inc()
	return nil
}

// PublishDeliveryVerified counts a verification and the received stock
// 検収と受入在庫数量を記録
func (p *Publisher) PublishDeliveryVerified(ctx context.Context, event procurement.DeliveryVerifiedEvent) error {
	p.documentsTotal.WithLabelValues("verification").Inc()
	if event.StockIncrement > 0 {
		p.stockReceived.Add(float64(event.StockIncrement))
	}
	return nil
}

// PublishInvoicePosted counts an invoice and its posted amount
// 請求書と転記金額を記録
func (p *Publisher) PublishInvoicePosted(ctx context.Context, event procurement.InvoicePostedEvent) error {
	p.documentsTotal.WithLabelValues("invoice").Inc()
	p.documentsTotal.WithLabelValues("journal_entry").Inc()
	p.journalAmount.Add(event.Amount)
	return nil
}
