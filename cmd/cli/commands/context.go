package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/internal/config"
	"github.com/carebridge/care-matching/pkg/clients/sheetsclient"
	"github.com/carebridge/care-matching/pkg/core/services"
	"github.com/carebridge/care-matching/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database *postgres.DB
	Engine   *services.Engine
	Sheets   *sheetsclient.Client
	Logger   *zap.Logger
	Ctx      context.Context
}
