package procurement

import (
	"errors"
	"fmt"
)

// Common workflow errors
// 共通のワークフローエラー定義

var (
	// ErrItemNotFound is returned when an inventory item doesn't exist
	// 在庫品目が存在しない場合のエラー
	ErrItemNotFound = errors.New("在庫品目が見つかりません")

	// ErrSupplierNotFound is returned when a supplier doesn't exist
	// 仕入先が存在しない場合のエラー
	ErrSupplierNotFound = errors.New("仕入先が見つかりません")

	// ErrRequisitionNotFound is returned when a requisition doesn't exist
	// 購買依頼が存在しない場合のエラー
	ErrRequisitionNotFound = errors.New("購買依頼が見つかりません")

	// ErrOrderNotFound is returned when a purchase order doesn't exist
	// 発注書が存在しない場合のエラー
	ErrOrderNotFound = errors.New("発注書が見つかりません")

	// ErrDeliveryNotFound is returned when a delivery note doesn't exist
	// 納品書が存在しない場合のエラー
	ErrDeliveryNotFound = errors.New("納品書が見つかりません")

	// ErrInvoiceNotFound is returned when an invoice doesn't exist
	// 請求書が存在しない場合のエラー
	ErrInvoiceNotFound = errors.New("請求書が見つかりません")

	// ErrJournalEntryNotFound is returned when a journal entry doesn't exist
	// 仕訳が存在しない場合のエラー
	ErrJournalEntryNotFound = errors.New("仕訳が見つかりません")

	// ErrDuplicateSupplier is returned when trying to register an existing supplier
	// 既に存在する仕入先を登録しようとした場合のエラー
	ErrDuplicateSupplier = errors.New("仕入先は既に存在します")

	// ErrDuplicateItem is returned when trying to register an existing item
	// 既に存在する品目を登録しようとした場合のエラー
	ErrDuplicateItem = errors.New("品目は既に存在します")

	// ErrDuplicateInvoice is returned when the vendor-supplied invoice id already exists
	// 仕入先採番の請求書IDが既に存在する場合のエラー
	ErrDuplicateInvoice = errors.New("請求書IDは既に使用されています")

	// ErrVerificationMismatch is returned when goods receipt verification is rejected
	// 検収で現物と納品書が一致しない場合のエラー
	ErrVerificationMismatch = errors.New("検収失敗: 現物と納品書が一致しません")
)

// ValidationError represents a malformed or out-of-range input
// 不正または範囲外の入力を表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// StateError represents an operation attempted against an entity
// that is not in the required status
// 必要なステータスにないエンティティへの操作を表現
type StateError struct {
	Entity   string `json:"entity"`   // エンティティ種別
	ID       string `json:"id"`       // エンティティID
	Current  string `json:"current"`  // 現在のステータス
	Required string `json:"required"` // 必要なステータス
}

func (e StateError) Error() string {
	return fmt.Sprintf("ステータスエラー [%s:%s]: 現在 %s、必要 %s", e.Entity, e.ID, e.Current, e.Required)
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewStateError creates a new state error
// 新しいステータスエラーを作成
func NewStateError(entity, id, current, required string) *StateError {
	return &StateError{
		Entity:   entity,
		ID:       id,
		Current:  current,
		Required: required,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// IsNotFound reports whether the error is one of the not-found sentinels
// 存在しないエンティティのエラーかチェック
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrSupplierNotFound) ||
		errors.Is(err, ErrRequisitionNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrDeliveryNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrJournalEntryNotFound)
}
