package vehicle

import (
	"strings"
	"time"
)

const (
	maxBrandLen = 100
	maxModelLen = 100
	maxColorLen = 50
	minYear     = 1886 // 第一辆汽车问世的年份
)

// Brand 是 brands 表的 GORM 模型。
// name 唯一，首次出现时由仓储层在同一事务内自动创建。
type Brand struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:100;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Vehicle 是 vehicles 表的 GORM 模型。Sold 为空表示在售。
type Vehicle struct {
	ID        uint        `gorm:"primaryKey"`
	BrandID   uint        `gorm:"index;not null"`
	Model     string      `gorm:"uniqueIndex;size:100;not null"`
	Year      int         `gorm:"not null"`
	Color     string      `gorm:"size:50;not null"`
	Price     float64     `gorm:"not null"`
	Brand     Brand       `gorm:"foreignKey:BrandID"`
	Sold      *SaleRecord `gorm:"foreignKey:VehicleID"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

// BrandName 车辆品牌名（读取路径上由仓储层 Preload）。
func (v *Vehicle) BrandName() string {
	if v == nil {
		return ""
	}
	return v.Brand.Name
}

// SaleRecord 是 sale_records 表的 GORM 模型。
// vehicle_id 上的唯一索引保证一辆车至多一条销售记录：
// 并发重复发起销售由该约束在存储层兜底（见 Repo.InitializeSale）。
type SaleRecord struct {
	OrderID   uint       `gorm:"primaryKey;column:order_id"`
	VehicleID uint       `gorm:"uniqueIndex;not null"`
	Status    SaleStatus `gorm:"type:varchar(16);not null"`
	SoldPrice float64    `gorm:"not null"`
	SoldDate  *time.Time
	UserID    string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Input 注册/更新车辆的入参（可作为传输层 DTO 的基础）。
type Input struct {
	BrandName string
	Model     string
	Year      int
	Color     string
	Price     float64
}

// New 校验入参并构造 Vehicle。
// 校验失败返回 *ValidationError；BrandID 由仓储层在写入时解析。
func New(in Input) (*Vehicle, error) {
	brand := strings.TrimSpace(in.BrandName)
	model := strings.TrimSpace(in.Model)
	color := strings.TrimSpace(in.Color)

	if brand == "" || len(brand) > maxBrandLen {
		return nil, &ValidationError{Field: "brand_name", Constraint: "length must be 1-100"}
	}
	if model == "" || len(model) > maxModelLen {
		return nil, &ValidationError{Field: "model", Constraint: "length must be 1-100"}
	}
	if in.Year < minYear {
		return nil, &ValidationError{Field: "year", Constraint: "must be >= 1886"}
	}
	if color == "" || len(color) > maxColorLen {
		return nil, &ValidationError{Field: "color", Constraint: "length must be 1-50"}
	}
	if in.Price <= 0 {
		return nil, &ValidationError{Field: "price", Constraint: "must be > 0"}
	}

	return &Vehicle{
		Brand: Brand{Name: brand},
		Model: model,
		Year:  in.Year,
		Color: color,
		Price: in.Price,
	}, nil
}
