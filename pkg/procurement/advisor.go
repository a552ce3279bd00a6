package procurement

import (
	"context"

	"go.uber.org/zap"
)

// StaticAdvisoryMessage is returned when no advisor is configured or the
// advisor is unreachable. The advisory path never fails the caller.
// アドバイザー未設定または到達不能時に返す固定の講評メッセージ。
const StaticAdvisoryMessage = "簡易監査: 借方「" + AccountInventoryAsset + "」と貸方「" + AccountTradePayables +
	"」が請求金額と一致していることを確認してください。外部監査アドバイザーは現在利用できません。"

// AuditJournalEntry asks the advisory collaborator for commentary on a
// journal entry. The advisor only reads the entry and never affects state;
// its absence degrades to a static advisory message.
// 仕訳に対する講評を外部アドバイザーに依頼する。アドバイザーは仕訳を
// 読むだけで状態には影響しない。利用不能時は固定メッセージに縮退する。
func (e *Engine) AuditJournalEntry(ctx context.Context, entryID string) (string, error) {
	if err := ValidateDocumentID("entry_id", entryID); err != nil {
		return "", err
	}

	e.mu.RLock()
	entry, err := e.storage.GetJournalEntry(ctx, entryID)
	e.mu.RUnlock()
	if err != nil {
		if err == ErrJournalEntryNotFound {
			return "", ErrJournalEntryNotFound
		}
		return "", NewStorageError("get_journal_entry", "仕訳取得に失敗しました", err)
	}

	if e.advisor == nil {
		return StaticAdvisoryMessage, nil
	}

	// アドバイザー呼び出しはロック外で行う
	commentary, err := e.advisor.AuditJournalEntry(ctx, entry)
	if err != nil {
		e.logger.Warn("監査アドバイザー呼び出しに失敗しました",
			zap.String("entry_id", entryID),
			zap.Error(err),
		)
		return StaticAdvisoryMessage, nil
	}

	return commentary, nil
}
