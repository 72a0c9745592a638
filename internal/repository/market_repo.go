package repository

import (
	"context"
	"fmt"

	"MilestoneMarket/internal/model"

	"gorm.io/gorm"
)

// GormStore markets 表存储：每个市场一行，Save 在一个事务内替换整张快照
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GormStore（表结构由 main 中 AutoMigrate 保证）
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load 按集合内顺序读取全部市场
func (r *GormStore) Load(ctx context.Context) ([]*model.Market, error) {
	var records []*model.MarketRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询 markets 失败: %w", err)
	}
	markets := make([]*model.Market, 0, len(records))
	for _, rec := range records {
		m, err := rec.ToMarket()
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// Save 整集合覆盖：清空后按顺序写入
func (r *GormStore) Save(ctx context.Context, markets []*model.Market) error {
	records := make([]*model.MarketRecord, 0, len(markets))
	for i, m := range markets {
		rec, err := model.NewMarketRecord(m, i)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	// 1. 清空旧快照
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.MarketRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("清空 markets 失败: %w", err)
	}

	// 2. 写入新快照
	for _, rec := range records {
		if err := tx.Create(rec).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存 market 失败: %w, id: %s", err, rec.ID)
		}
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
