package svc

import (
	"fmt"
	"log"
	"sync"
	"time"

	"stablewallet/internal/client"
	"stablewallet/internal/config"
	"stablewallet/internal/crypto"
	"stablewallet/internal/logic/monitor"
	"stablewallet/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ServiceContext is the explicit session root for the wallet core. All state
// hangs off it and is passed by reference; there is no package-level mutable
// state anywhere in the service.
type ServiceContext struct {
	Config    config.Config
	DB        *gorm.DB
	Storage   model.Storage
	Encryptor *crypto.Encryptor
	Monitor   *monitor.TxMonitor

	mu      sync.Mutex
	clients map[string]client.ChainClient
}

func NewServiceContext(c config.Config) *ServiceContext {
	db, err := initDB(c.Postgres.DSN)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	svcCtx := &ServiceContext{
		Config:    c,
		DB:        db,
		Storage:   model.NewKvStorage(db),
		Encryptor: crypto.NewEncryptor(crypto.NewAESGCMProvider()),
		clients:   make(map[string]client.ChainClient),
	}

	defaultClient, _, err := svcCtx.ChainClient(c.DefaultChain)
	if err != nil {
		log.Fatalf("failed to connect to default chain %s: %v", c.DefaultChain, err)
	}

	svcCtx.Monitor = monitor.NewTxMonitor(
		svcCtx.Storage,
		defaultClient,
		time.Duration(c.Monitor.PollIntervalMs)*time.Millisecond,
		time.Duration(c.Monitor.TimeoutMs)*time.Millisecond,
	)
	// 每笔交易的回执查询走它自己所在链的客户端
	svcCtx.Monitor.SetClientResolver(svcCtx.ChainClientByID)

	return svcCtx
}

// ChainClient returns a cached RPC client for the named chain, dialing on
// first use.
func (s *ServiceContext) ChainClient(chain string) (client.ChainClient, config.ChainConf, error) {
	chainConf, ok := s.Config.Chains[chain]
	if !ok {
		return nil, config.ChainConf{}, fmt.Errorf("unsupported chain: %s", chain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[chain]; ok {
		return c, chainConf, nil
	}

	c, err := client.Dial(chainConf.RpcUrl)
	if err != nil {
		return nil, config.ChainConf{}, fmt.Errorf("failed to connect to chain %s: %v", chain, err)
	}
	s.clients[chain] = c
	return c, chainConf, nil
}

// ChainClientByID resolves a cached RPC client by numeric chain id. Used by
// the transaction monitor, which only carries the chain id on its records.
func (s *ServiceContext) ChainClientByID(chainID int64) (client.ChainClient, error) {
	for name, chainConf := range s.Config.Chains {
		if chainConf.ChainId == chainID {
			c, _, err := s.ChainClient(name)
			return c, err
		}
	}
	return nil, fmt.Errorf("no chain configured for id %d", chainID)
}

// StopMonitor cancels every active transaction watcher.
func (s *ServiceContext) StopMonitor() {
	if s.Monitor != nil {
		s.Monitor.Stop()
	}
}

func initDB(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.KvEntry{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}
