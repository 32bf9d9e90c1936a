// Command rehash-change-hashes recomputes change_hash for every legislation
// row in the database. Run it after any change to the hash algorithm or to
// the set of fields that feed it, otherwise the next sync re-processes every
// bill as changed.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./scripts/rehash-change-hashes
//
// The script reads each bill's hashed fields, recomputes the fingerprint with
// the current algorithm, and updates rows where the stored hash differs. It
// prints the number of rows fixed and exits.
//
// Safe to run multiple times. Once all hashes match, it reports 0 updates.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/policypulse/policypulse/internal/ingest"
	"github.com/policypulse/policypulse/internal/model"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx,
		`SELECT id, external_id, bill_type, title, description, bill_status,
		        url, state_link, bill_introduced_date, bill_last_action_date,
		        bill_status_date, raw_api_response, change_hash
		 FROM legislation
		 ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	type staleRow struct {
		id       int64
		expected string
	}

	var stale []staleRow
	var total int
	for rows.Next() {
		var (
			id         int64
			rec        model.BillRecord
			status     string
			storedHash *string
		)
		if err := rows.Scan(&id, &rec.ExternalID, &rec.BillType, &rec.Title,
			&rec.Description, &status, &rec.URL, &rec.StateLink,
			&rec.BillIntroducedDate, &rec.BillLastActionDate,
			&rec.BillStatusDate, &rec.RawAPIResponse, &storedHash); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		rec.Status = model.BillStatus(status)
		total++
		expected := ingest.ChangeHash(rec)
		if storedHash == nil || *storedHash != expected {
			stale = append(stale, staleRow{id: id, expected: expected})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	fmt.Printf("scanned %d bills, %d have stale hashes\n", total, len(stale))

	if len(stale) == 0 {
		fmt.Println("nothing to do")
		return nil
	}

	updated := 0
	for _, r := range stale {
		tag, err := pool.Exec(ctx,
			`UPDATE legislation SET change_hash = $1 WHERE id = $2`,
			r.expected, r.id)
		if err != nil {
			log.Printf("update %d: %v", r.id, err)
			continue
		}
		if tag.RowsAffected() > 0 {
			updated++
		}
	}

	fmt.Printf("updated %d/%d stale hashes\n", updated, len(stale))
	return nil
}
