package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/internal/tokens/store/drivers/file"
	"github.com/aussiebroadwan/adsync/internal/tokens/store/drivers/sqlite"
	"github.com/aussiebroadwan/adsync/pkg/cryptox"
)

// OpenStore opens the credential store selected by cfg.CredentialsStore.
func OpenStore(cfg Config, logger *slog.Logger) (store.Credentials, error) {
	switch cfg.CredentialsStore {
	case StoreSQLite:
		return openSQLite(cfg, logger)
	case StoreFile, "":
		st, err := file.NewStore(cfg.CredentialsFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential file: %w", err)
		}
		logger.Info("credential store opened", "driver", StoreFile, "path", st.Path())
		return st, nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.CredentialsStore)
	}
}

func openSQLite(cfg Config, logger *slog.Logger) (store.Credentials, error) {
	sealer, err := loadSealer(cfg, logger)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.CredentialsDatabaseFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.CredentialsDatabaseFile)
	st, err := sqlite.NewStore(dsn, sealer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("credential store opened", "driver", StoreSQLite, "path", cfg.CredentialsDatabaseFile)
	return st, nil
}

// loadSealer derives the at-rest key. Only dev may fall back to an
// ephemeral key.
func loadSealer(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	key, err := cryptox.LoadMasterKey(cfg.MasterKeyPath, cfg.MasterKey)
	switch {
	case errors.Is(err, cryptox.ErrNoMasterKey) && cfg.Env == "dev":
		logger.Warn("no credentials master key configured, using an ephemeral key; stored credentials will not survive a restart")
		return cryptox.NewEphemeralSealer()
	case errors.Is(err, cryptox.ErrNoMasterKey):
		return nil, errors.New("CREDENTIALS_MASTER_KEY or CREDENTIALS_MASTER_KEY_PATH is required for the sqlite store")
	case err != nil:
		return nil, err
	}
	return cryptox.NewSealer(key)
}
