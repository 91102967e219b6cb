package vehicle

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository 车辆与销售记录的存储端口。
// 实现方负责把底层错误映射到领域错误分类（ErrNotFound / ConflictError / ...）。
type Repository interface {
	Save(ctx context.Context, v *Vehicle) (*Vehicle, error)
	Update(ctx context.Context, id uint, v *Vehicle) (*Vehicle, error)
	Get(ctx context.Context, id uint) (*Vehicle, error)
	GetWithSale(ctx context.Context, id uint) (*Vehicle, error)
	ListAvailable(ctx context.Context) ([]Vehicle, error)
	ListSold(ctx context.Context) ([]Vehicle, error)
	InitializeSale(ctx context.Context, v *Vehicle, userID string) (*SaleRecord, error)
	ConfirmSale(ctx context.Context, v *Vehicle) error
	RevertSale(ctx context.Context, v *Vehicle) error
	GetBrand(ctx context.Context, name string) (*Brand, error)
	CreateBrand(ctx context.Context, name string) (*Brand, error)
}

// Repo 是 Repository 的 GORM 实现。
// 依赖打开连接时启用 TranslateError，使唯一键冲突统一表现为 gorm.ErrDuplicatedKey。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// Save 解析/创建品牌并插入车辆，两者在同一事务内，避免品牌竞态产生孤儿。
func (r *Repo) Save(ctx context.Context, v *Vehicle) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if v == nil {
		return nil, fmt.Errorf("vehicle is nil")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		brand, err := resolveBrand(tx, v.Brand.Name)
		if err != nil {
			return err
		}
		v.BrandID = brand.ID
		v.Brand = *brand
		return tx.Omit("Brand", "Sold").Create(v).Error
	})
	if err != nil {
		return nil, mapStoreErr("save vehicle", err, "model")
	}
	return r.Get(ctx, v.ID)
}

// Update 覆盖车辆字段并按需重新解析品牌；车辆不存在返回 ErrNotFound。
func (r *Repo) Update(ctx context.Context, id uint, v *Vehicle) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if v == nil {
		return nil, fmt.Errorf("vehicle is nil")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing Vehicle
		if err := tx.First(&existing, id).Error; err != nil {
			return err
		}
		brand, err := resolveBrand(tx, v.Brand.Name)
		if err != nil {
			return err
		}
		return tx.Model(&Vehicle{}).Where("id = ?", id).Updates(map[string]any{
			"brand_id": brand.ID,
			"model":    v.Model,
			"year":     v.Year,
			"color":    v.Color,
			"price":    v.Price,
		}).Error
	})
	if err != nil {
		return nil, mapStoreErr("update vehicle", err, "model")
	}
	return r.Get(ctx, id)
}

func (r *Repo) Get(ctx context.Context, id uint) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Preload("Brand").First(&v, id).Error; err != nil {
		return nil, mapStoreErr("get vehicle", err, "")
	}
	return &v, nil
}

// GetWithSale 连同销售记录一起加载车辆，供状态机检查使用。
func (r *Repo) GetWithSale(ctx context.Context, id uint) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Preload("Brand").Preload("Sold").First(&v, id).Error; err != nil {
		return nil, mapStoreErr("get vehicle with sale", err, "")
	}
	return &v, nil
}

// ListAvailable 无销售记录的车辆，按价格升序。
func (r *Repo) ListAvailable(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	sub := db.Model(&SaleRecord{}).Select("vehicle_id")
	var vehicles []Vehicle
	err := db.Preload("Brand").
		Where("id NOT IN (?)", sub).
		Order("price asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, mapStoreErr("list available vehicles", err, "")
	}
	return vehicles, nil
}

// ListSold 有销售记录的车辆（含草稿），按价格升序，销售详情内嵌。
func (r *Repo) ListSold(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	sub := db.Model(&SaleRecord{}).Select("vehicle_id")
	var vehicles []Vehicle
	err := db.Preload("Brand").Preload("Sold").
		Where("id IN (?)", sub).
		Order("price asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, mapStoreErr("list sold vehicles", err, "")
	}
	return vehicles, nil
}

// InitializeSale 为车辆创建草稿销售记录。
// vehicle_id 唯一索引是并发兜底：第二条并发插入在这里被翻译成 ErrAlreadySold，
// 而不是悄悄产生第二条记录。
func (r *Repo) InitializeSale(ctx context.Context, v *Vehicle, userID string) (*SaleRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if v == nil || v.ID == 0 {
		return nil, fmt.Errorf("vehicle is nil or unsaved")
	}

	rec := &SaleRecord{
		VehicleID: v.ID,
		Status:    StatusDraft,
		SoldPrice: v.Price,
		UserID:    userID,
	}
	if err := db.Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadySold
		}
		return nil, &StorageError{Op: "initialize sale", Err: err}
	}
	return rec, nil
}

// ConfirmSale 持久化已确认的销售记录。
// 条件更新（status=draft）让并发的确认/撤销由存储层串行化：
// 没有命中行时再回读一次，区分“记录没了”与“已被确认”。
func (r *Repo) ConfirmSale(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if v == nil || v.Sold == nil {
		return ErrSaleNotInitialized
	}

	res := db.Model(&SaleRecord{}).
		Where("vehicle_id = ? AND status = ?", v.ID, StatusDraft).
		Updates(map[string]any{
			"status":     v.Sold.Status,
			"sold_price": v.Sold.SoldPrice,
			"sold_date":  v.Sold.SoldDate,
		})
	if res.Error != nil {
		return &StorageError{Op: "confirm sale", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return r.saleRaceErr(ctx, v.ID)
	}
	return nil
}

// RevertSale 删除草稿销售记录，使车辆回到在售状态。
func (r *Repo) RevertSale(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if v == nil || v.Sold == nil {
		return ErrSaleNotInitialized
	}

	res := db.Where("vehicle_id = ? AND status = ?", v.ID, StatusDraft).Delete(&SaleRecord{})
	if res.Error != nil {
		return &StorageError{Op: "revert sale", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return r.saleRaceErr(ctx, v.ID)
	}
	return nil
}

// saleRaceErr 条件写没有命中行时回读销售记录，给出准确的失败原因。
func (r *Repo) saleRaceErr(ctx context.Context, vehicleID uint) error {
	var rec SaleRecord
	err := r.withCtx(ctx).Where("vehicle_id = ?", vehicleID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSaleNotInitialized
	}
	if err != nil {
		return &StorageError{Op: "reload sale record", Err: err}
	}
	return ErrAlreadySold
}

// GetBrand 按名称查找品牌；不存在返回 (nil, nil)。
func (r *Repo) GetBrand(ctx context.Context, name string) (*Brand, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var b Brand
	err := db.Where("name = ?", name).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get brand", Err: err}
	}
	return &b, nil
}

func (r *Repo) CreateBrand(ctx context.Context, name string) (*Brand, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	b := Brand{Name: name}
	if err := db.Create(&b).Error; err != nil {
		return nil, mapStoreErr("create brand", err, "brand")
	}
	return &b, nil
}

// resolveBrand 查找或创建品牌。
// 并发下两个事务同时创建同名品牌时，后者撞唯一索引后回退为再次查询。
func resolveBrand(tx *gorm.DB, name string) (*Brand, error) {
	var b Brand
	err := tx.Where("name = ?", name).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	b = Brand{Name: name}
	if err := tx.Create(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var again Brand
			if err2 := tx.Where("name = ?", name).First(&again).Error; err2 == nil {
				return &again, nil
			}
		}
		return nil, err
	}
	return &b, nil
}

// mapStoreErr 将 GORM 错误映射到领域错误分类。
func mapStoreErr(op string, err error, conflictField string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Field: conflictField}
	default:
		return &StorageError{Op: op, Err: err}
	}
}
