package wire

import (
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"

	chrepo "github.com/mentionwatch/mentionwatch/internal/repository/clickhouse"
	pgrepo "github.com/mentionwatch/mentionwatch/internal/repository/postgres"
)

// RepositorySet provides all repository instances.
var RepositorySet = wire.NewSet(
	// PostgreSQL repositories
	ProvideAlertRepository,
	ProvideImportRepository,
	// ClickHouse repositories
	ProvideMentionRepository,
	ProvideDocumentRepository,
)

// ProvideAlertRepository creates a new AlertRepository.
func ProvideAlertRepository(db *pgxpool.Pool) *pgrepo.AlertRepository {
	return pgrepo.NewAlertRepository(db)
}

// ProvideImportRepository creates a new ImportRepository.
func ProvideImportRepository(db *pgxpool.Pool) *pgrepo.ImportRepository {
	return pgrepo.NewImportRepository(db)
}

// ProvideMentionRepository creates a new MentionRepository.
func ProvideMentionRepository(conn clickhouse.Conn) *chrepo.MentionRepository {
	return chrepo.NewMentionRepository(conn)
}

// ProvideDocumentRepository creates a new DocumentRepository.
func ProvideDocumentRepository(conn clickhouse.Conn) *chrepo.DocumentRepository {
	return chrepo.NewDocumentRepository(conn)
}
