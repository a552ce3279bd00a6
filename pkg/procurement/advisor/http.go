// Package advisor provides clients for the external journal audit collaborator
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nemonet1337/chotatsuGoFramework/pkg/procurement"
)

// HTTPAdvisor calls an external audit service over HTTP. The service
// receives a serialized journal entry and returns free-text commentary.
// HTTP経由で外部監査サービスを呼び出す。サービスはシリアライズされた
// 仕訳を受け取り、講評テキストを返す。
type HTTPAdvisor struct {
	endpoint string       // 監査サービスのエンドポイント
	client   *http.Client // HTTPクライアント
	logger   *zap.Logger  // ログ
}

// インターフェースを実装することを明示
var _ procurement.Advisor = (*HTTPAdvisor)(nil)

// auditResponse is the expected response body of the audit service
// 監査サービスの期待レスポンス形式
type auditResponse struct {
	Commentary string `json:"commentary"`
}

// NewHTTPAdvisor creates a new HTTP advisor client
// 新しいHTTP監査アドバイザークライアントを作成
func NewHTTPAdvisor(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPAdvisor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAdvisor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// AuditJournalEntry posts the journal entry and returns the commentary
// 仕訳を送信して講評を取得
func (a *HTTPAdvisor) AuditJournalEntry(ctx context.Context, entry *procurement.JournalEntry) (string, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("仕訳のJSON変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("監査リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("監査サービス呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("監査サービスがエラーを返しました: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("監査レスポンス読み取りに失敗しました: %w", err)
	}

	var parsed auditResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Commentary == "" {
		// 構造化されていないレスポンスはそのまま講評として扱う
		return string(raw), nil
	}

	a.logger.Info("仕訳監査完了",
		zap.String("entry_id", entry.ID),
	)

	return parsed.Commentary, nil
}
