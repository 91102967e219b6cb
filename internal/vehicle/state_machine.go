package vehicle

import "time"

// SaleStatus 车辆销售状态（available 不落库，由销售记录是否存在推导）。
type SaleStatus string

const (
	StatusAvailable SaleStatus = "available" // 在售（无销售记录）
	StatusDraft     SaleStatus = "draft"     // 已发起销售，待支付确认
	StatusSold      SaleStatus = "sold"      // 已成交
)

// AllowTransition 定义销售状态机的允许流转关系。
var AllowTransition = map[SaleStatus][]SaleStatus{
	StatusAvailable: {StatusDraft},
	StatusDraft:     {StatusSold, StatusAvailable},
	// 终态：成交后不允许任何流转
	StatusSold: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to SaleStatus) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// SaleState 由销售记录推导车辆当前状态。
func SaleState(rec *SaleRecord) SaleStatus {
	if rec == nil {
		return StatusAvailable
	}
	return rec.Status
}

// ApplyConfirm 将草稿销售记录置为 sold：
// 按车辆当前价格刷新成交价，并写入成交时间。
func ApplyConfirm(rec *SaleRecord, price float64, now time.Time) error {
	if rec == nil {
		return ErrSaleNotInitialized
	}
	if !CanTransition(rec.Status, StatusSold) {
		return ErrAlreadySold
	}
	rec.Status = StatusSold
	rec.SoldPrice = price
	t := now
	rec.SoldDate = &t
	return nil
}

// ApplyRevert 校验草稿销售记录可以被撤销（删除动作由仓储层执行）。
// 已成交的记录不允许经由撤销路径回退。
func ApplyRevert(rec *SaleRecord) error {
	if rec == nil {
		return ErrSaleNotInitialized
	}
	if !CanTransition(rec.Status, StatusAvailable) {
		return ErrAlreadySold
	}
	return nil
}
