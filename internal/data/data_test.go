package data

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"describe-service/internal/data/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// newTestData 每个测试独立的内存 sqlite 和 miniredis
func newTestData(t *testing.T) (*Data, *miniredis.Miniredis) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		sqlDB.Close()
	})
	return &Data{db: db, rdb: rdb}, mr
}

// newFileTestData 文件 sqlite，允许多个连接同时开启事务，写事务在 BEGIN 时等待写锁
func newFileTestData(t *testing.T, conns int) *Data {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return &Data{db: db}
}

// seedUser 创建用户，并写入与余额一致的购买流水
func seedUser(t *testing.T, d *Data, id string, credits int64) {
	t.Helper()
	require.NoError(t, d.db.Create(&model.User{
		ID:       id,
		Email:    id + "@example.com",
		Name:     "User " + id,
		Role:     "USER",
		Credits:  credits,
		IsActive: true,
	}).Error)
	if credits > 0 {
		require.NoError(t, d.db.Create(newTransaction(id, "general", credits, "PURCHASE", "seed")).Error)
	}
}
