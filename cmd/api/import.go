package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smartsahuji/internal/cache"
	"smartsahuji/internal/database"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importOwner        string
	importFile         string
	importTransactions bool
)

// smartsahuji import --owner shop@example.com --file stock.xlsx [--transactions]
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an inventory or transaction spreadsheet for one user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importOwner == "" || importFile == "" {
			return errors.New("--owner and --file are required")
		}

		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := database.NewConnection(cfg.Database, log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		owner, err := findOwner(ctx, repository.NewUserRepository(db), importOwner)
		if err != nil {
			return fmt.Errorf("owner %s: %w", importOwner, err)
		}

		invRepo := repository.NewInventoryRepository(db)
		auditRepo := repository.NewAuditRepository(db)
		txManager := repository.NewTransactionManager(db)
		// with a shared redis this also drops the server's cached inventory reads
		appCache := cache.New(ctx, cfg.Redis, log)

		inventory := service.NewInventoryService(invRepo, auditRepo, txManager, appCache, nil, log)
		transactions := service.NewTransactionService(repository.NewTransactionRepository(db), invRepo, auditRepo, txManager, appCache, nil, log)
		imports := service.NewImportService(inventory, transactions, invRepo, auditRepo, nil, log)

		var res *service.ImportResult
		if importTransactions {
			res, err = imports.ImportTransactionsFile(ctx, owner.ID, importFile)
		} else {
			res, err = imports.ImportInventoryFile(ctx, owner.ID, importFile)
		}
		if err != nil {
			return err
		}

		for _, rowErr := range res.Errors {
			log.Warn("row not imported", zap.Int("row", rowErr.Row), zap.String("reason", rowErr.Reason))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d row(s), %d skipped\n", res.Count, len(res.Errors))
		return nil
	},
}

// findOwner accepts a user id or an email address.
func findOwner(ctx context.Context, users repository.UserRepository, ref string) (*model.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, id)
	}
	return users.GetByEmail(ctx, strings.ToLower(ref))
}

func init() {
	importCmd.Flags().StringVar(&importOwner, "owner", "", "id or email of the user who owns the data")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a .xlsx or .csv file")
	importCmd.Flags().BoolVar(&importTransactions, "transactions", false, "import transactions instead of inventory")
}
