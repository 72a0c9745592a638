package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"MilestoneMarket/internal/model"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore 嵌入式 KV 存储，整个集合存放在单个 key 下
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// BadgerOptions 打开参数。InMemory 为 true 时忽略 Path（测试用）
type BadgerOptions struct {
	Path     string
	Key      string
	InMemory bool
}

// OpenBadgerStore 打开（或创建）badger 数据目录
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		return nil, errors.New("badger store: key is required")
	}
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("badger store: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("打开 badger 失败: %w", err)
	}
	return &BadgerStore{db: db, key: []byte(key)}, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) Load(ctx context.Context) ([]*model.Market, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", s.key, err)
	}
	return decodeSnapshot(data)
}

func (s *BadgerStore) Save(ctx context.Context, markets []*model.Market) error {
	data, err := encodeSnapshot(markets)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	}); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", s.key, err)
	}
	return nil
}
