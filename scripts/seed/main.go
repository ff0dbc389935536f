package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentionwatch/mentionwatch/internal/domain"
	"github.com/mentionwatch/mentionwatch/internal/repository/postgres"
)

// Sample data
var (
	senders = []string{
		"cfo@acme-corp.com", "legal@acme-corp.com", "jane.smith@acme-corp.com",
		"procurement@northwind.io", "press@globex.com", "m.jones@initech.net",
		"compliance@acme-corp.com", "sales@northwind.io",
	}
	subjects = []string{
		"Q3 forecast review", "Contract renewal - Northwind", "Wire transfer approval",
		"Board meeting minutes", "Vendor onboarding checklist", "Press release draft",
		"Audit findings follow-up", "Travel booking confirmation",
	}
	entityValues = map[string][]string{
		"PERSON":  {"Jane Smith", "Michael Jones", "Ana Pereira", "Li Wei"},
		"ORG":     {"Acme Corp", "Northwind", "Globex", "Initech"},
		"GPE":     {"London", "Singapore", "New York", "Zurich"},
		"MONEY":   {"$1.2M", "$45,000", "€250,000", "$8,900"},
		"DATE":    {"next Friday", "Q3 2026", "September 15", "end of month"},
		"PRODUCT": {"Falcon-9000", "LedgerSync", "MailVault"},
	}
	fileFormats = []string{"csv", "eml", "pst", "json", "xml"}
	errorTypes  = []string{"format_error", "missing_fields", "encoding_issue", "size_limit", "corruption", "duplicate_data"}
)

func main() {
	log.Println("MentionWatch Database Seeder")
	log.Println("============================")

	pgHost := getEnv("POSTGRES_HOST", "localhost")
	pgPort := getEnv("POSTGRES_PORT", "5432")
	pgUser := getEnv("POSTGRES_USER", "mentionwatch")
	pgPass := getEnv("POSTGRES_PASSWORD", "mentionwatch")
	pgDB := getEnv("POSTGRES_DB", "mentionwatch")

	chHost := getEnv("CLICKHOUSE_HOST", "localhost")
	chPort := getEnv("CLICKHOUSE_PORT", "9000")
	chDB := getEnv("CLICKHOUSE_DB", "mentionwatch")

	pgDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPass, pgDB)

	pgConfig, err := pgxpool.ParseConfig(pgDSN)
	if err != nil {
		log.Fatalf("Failed to parse PostgreSQL config: %v", err)
	}

	pgConn, err := pgxpool.NewWithConfig(context.Background(), pgConfig)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgConn.Close()
	log.Println("✓ Connected to PostgreSQL")

	chConn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", chHost, chPort)},
		Auth: clickhouse.Auth{
			Database: chDB,
		},
	})
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chConn.Close()
	log.Println("✓ Connected to ClickHouse")

	ctx := context.Background()

	log.Println("\nCreating ClickHouse tables...")
	createClickHouseTables(ctx, chConn)

	log.Println("\nSeeding ClickHouse...")
	seedClickHouse(ctx, chConn)

	log.Println("\nSeeding PostgreSQL...")
	seedPostgres(ctx, pgConn)

	log.Println("\n============================")
	log.Println("Seeding complete!")
}

func createClickHouseTables(ctx context.Context, conn clickhouse.Conn) {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id          String,
			subject     String,
			sender      String,
			recipients  Array(String),
			received_at DateTime('UTC'),
			preview     String,
			embedding   Array(Float32)
		) ENGINE = MergeTree()
		ORDER BY (received_at, id)`,
		`CREATE TABLE IF NOT EXISTS mentions (
			document_id  String,
			entity_type  LowCardinality(String),
			entity_value String,
			occurred_at  DateTime('UTC')
		) ENGINE = MergeTree()
		ORDER BY (entity_type, occurred_at)`,
	}
	for _, stmt := range ddl {
		if err := conn.Exec(ctx, stmt); err != nil {
			log.Fatalf("Failed to create ClickHouse table: %v", err)
		}
	}
	log.Println("  ✓ Tables ready")
}

func seedClickHouse(ctx context.Context, conn clickhouse.Conn) {
	now := time.Now().UTC().Truncate(time.Hour)
	numDocuments := 2000

	log.Printf("  Generating %d documents over the last 14 days...", numDocuments)

	docBatch, err := conn.PrepareBatch(ctx, `
		INSERT INTO documents (id, subject, sender, recipients, received_at, preview, embedding)
	`)
	if err != nil {
		log.Fatalf("Failed to prepare document batch: %v", err)
	}

	mentionBatch, err := conn.PrepareBatch(ctx, `
		INSERT INTO mentions (document_id, entity_type, entity_value, occurred_at)
	`)
	if err != nil {
		log.Fatalf("Failed to prepare mention batch: %v", err)
	}

	entityTypes := make([]string, 0, len(entityValues))
	for et := range entityValues {
		entityTypes = append(entityTypes, et)
	}

	for i := 0; i < numDocuments; i++ {
		docID := uuid.New().String()
		receivedAt := now.Add(-time.Duration(rand.Intn(14*24)) * time.Hour).
			Add(-time.Duration(rand.Intn(3600)) * time.Second)

		// A burst of activity yesterday afternoon so the anomaly charts have
		// something to show out of the box.
		if i%25 == 0 {
			receivedAt = now.Add(-20 * time.Hour).Add(-time.Duration(rand.Intn(3600)) * time.Second)
		}

		subject := subjects[rand.Intn(len(subjects))]
		sender := senders[rand.Intn(len(senders))]
		recipients := []string{senders[rand.Intn(len(senders))]}

		embedding := make([]float32, 64)
		for j := range embedding {
			embedding[j] = rand.Float32()*2 - 1
		}

		err = docBatch.Append(
			docID,
			subject,
			sender,
			recipients,
			receivedAt,
			fmt.Sprintf("Preview of %q sent by %s", subject, sender),
			embedding,
		)
		if err != nil {
			log.Printf("Warning: Could not append document: %v", err)
		}

		numMentions := rand.Intn(4) + 1
		for j := 0; j < numMentions; j++ {
			et := entityTypes[rand.Intn(len(entityTypes))]
			values := entityValues[et]
			err = mentionBatch.Append(docID, et, values[rand.Intn(len(values))], receivedAt)
			if err != nil {
				log.Printf("Warning: Could not append mention: %v", err)
			}
		}
	}

	if err := docBatch.Send(); err != nil {
		log.Fatalf("Failed to send document batch: %v", err)
	}
	log.Printf("  ✓ Created %d documents", numDocuments)

	if err := mentionBatch.Send(); err != nil {
		log.Fatalf("Failed to send mention batch: %v", err)
	}
	log.Println("  ✓ Created entity mentions")
}

func seedPostgres(ctx context.Context, db *pgxpool.Pool) {
	now := time.Now().UTC()

	// Sample import records so data-quality alerts have a log to scan.
	imports := postgres.NewImportRepository(db)
	numImports := 40
	for i := 0; i < numImports; i++ {
		importedAt := now.Add(-time.Duration(rand.Intn(48)) * time.Hour)
		format := fileFormats[rand.Intn(len(fileFormats))]
		fileSize := int64(rand.Intn(50_000_000) + 1000)

		var errorType, errorDetails *string
		affected := 0
		if rand.Float32() < 0.3 {
			et := errorTypes[rand.Intn(len(errorTypes))]
			details := fmt.Sprintf("import checker flagged %s in row group %d", et, rand.Intn(40)+1)
			errorType = &et
			errorDetails = &details
			affected = rand.Intn(200) + 1
		}

		err := imports.Record(ctx, &domain.ImportRecord{
			FileName:        fmt.Sprintf("batch-%03d.%s", i+1, format),
			FileFormat:      format,
			FileSize:        fileSize,
			ErrorType:       errorType,
			ErrorDetails:    errorDetails,
			AffectedRecords: affected,
			ImportedAt:      importedAt,
		})
		if err != nil {
			log.Printf("Warning: Could not create import record: %v", err)
		}
	}
	log.Printf("  ✓ Created %d import records", numImports)

	// One starter alert per category.
	_, err := db.Exec(ctx, `
		INSERT INTO data_quality_alerts (id, name, description, quality_type, file_format, severity, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, uuid.New(), "CSV format failures", "Fires on malformed CSV imports", "format_error", "csv", "medium", true, now)
	if err != nil {
		log.Printf("Warning: Could not create data-quality alert: %v", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO entity_type_alerts (id, name, description, entity_type, detection_algorithm,
			dbscan_eps, dbscan_min_samples, kmeans_clusters, sensitivity, window_hours, baseline_days,
			severity, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, uuid.New(), "Money mention spikes", "Unusual volume of MONEY mentions", "MONEY", "dbscan",
		0.5, 5, 3, 2.0, 24, 7, "high", true, now)
	if err != nil {
		log.Printf("Warning: Could not create entity-type alert: %v", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO smart_ai_alerts (id, name, description, detection_algorithm, similarity_threshold, severity, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, uuid.New(), "Acquisition chatter", "discussions about acquiring or merging with another company",
		"dbscan", 0.7, "critical", true, now)
	if err != nil {
		log.Printf("Warning: Could not create smart-AI alert: %v", err)
	}
	log.Println("  ✓ Created 3 starter alerts")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
