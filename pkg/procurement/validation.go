package procurement

import (
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateDocumentID 帳票IDの形式をバリデーション
func ValidateDocumentID(field, id string) error {
	if id == "" {
		return NewValidationError(field, "IDが空です", id)
	}
	if len(id) > 255 {
		return NewValidationError(field, "IDが長すぎます", id)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(id) {
		return NewValidationError(field, "IDに無効な文字が含まれています", id)
	}
	return nil
}

// ValidateQuantity 依頼数量をバリデーション
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return NewValidationError("quantity", "数量は正の値である必要があります", fmt.Sprintf("%d", quantity))
	}
	if quantity > 999999999 {
		return NewValidationError("quantity", "数量が有効範囲を超えています", fmt.Sprintf("%d", quantity))
	}
	return nil
}

// ValidateAmount 金額をバリデーション
func ValidateAmount(field string, amount float64) error {
	if amount <= 0 {
		return NewValidationError(field, "金額は正の値である必要があります", fmt.Sprintf("%g", amount))
	}
	return nil
}

// ValidateSupplier 仕入先マスタをバリデーション
func ValidateSupplier(supplier *Supplier) error {
	if supplier == nil {
		return NewValidationError("supplier", "仕入先が指定されていません", "")
	}
	if strings.TrimSpace(supplier.Name) == "" {
		return NewValidationError("name", "仕入先名が空です", supplier.Name)
	}
	if len(supplier.Name) > 500 {
		return NewValidationError("name", "仕入先名が長すぎます", supplier.Name)
	}
	if supplier.ID != "" {
		return ValidateDocumentID("supplier_id", supplier.ID)
	}
	return nil
}

// ValidateItem 品目マスタをバリデーション
func ValidateItem(item *InventoryItem) error {
	if item == nil {
		return NewValidationError("item", "品目が指定されていません", "")
	}
	if strings.TrimSpace(item.Name) == "" {
		return NewValidationError("name", "品目名が空です", item.Name)
	}
	if item.Stock < 0 {
		return NewValidationError("stock", "在庫数は0以上である必要があります", fmt.Sprintf("%d", item.Stock))
	}
	if item.ID != "" {
		return ValidateDocumentID("item_id", item.ID)
	}
	return nil
}
