package db

import (
	"database/sql"

	"github.com/rsclarke/canaryd/internal/models"
)

// MaxEventsPerPage caps list responses.
const MaxEventsPerPage = 200

// CreateEvent inserts an event record and fills in its assigned ID.
// The events table is append-only; nothing here updates an existing row
// except SetEventHostname, which writes the deferred enrichment result.
func CreateEvent(d *sql.DB, e *models.Event) error {
	suspicious := 0
	if e.Suspicious {
		suspicious = 1
	}
	tokenValid := 0
	if e.TokenValid {
		tokenValid = 1
	}

	result, err := d.Exec(`
		INSERT INTO events (token_id, received_at, method, path, query, headers, body_preview,
			remote_ip, resolved_hostname, suspicious, suspicion_reason, token_valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.TokenID, e.ReceivedAt, e.Method, e.Path, e.Query, e.Headers, e.BodyPreview,
		e.RemoteIP, e.ResolvedHostname, suspicious, e.SuspicionReason, tokenValid)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// SetEventHostname writes the reverse-DNS result for an event recorded with
// deferred enrichment. It only fills an empty slot, so the field is written
// at most once.
func SetEventHostname(d *sql.DB, eventID int64, hostname string) error {
	_, err := d.Exec(
		"UPDATE events SET resolved_hostname = ? WHERE id = ? AND resolved_hostname IS NULL",
		hostname, eventID,
	)
	return err
}

// GetEvent returns the event with the given ID, or nil when absent.
func GetEvent(d *sql.DB, id int64) (*models.Event, error) {
	row := d.QueryRow(`
		SELECT id, token_id, received_at, method, path, query, headers, body_preview,
			remote_ip, resolved_hostname, suspicious, suspicion_reason, token_valid
		FROM events WHERE id = ?
	`, id)

	e, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEvents returns events ordered by arrival time descending. page is
// 1-based; perPage is clamped to MaxEventsPerPage. A zero tokenID lists
// events across all tokens.
func ListEvents(d *sql.DB, tokenID int64, page, perPage int) ([]models.Event, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxEventsPerPage {
		perPage = MaxEventsPerPage
	}

	query := `
		SELECT id, token_id, received_at, method, path, query, headers, body_preview,
			remote_ip, resolved_hostname, suspicious, suspicion_reason, token_valid
		FROM events`
	args := []any{}
	if tokenID != 0 {
		query += " WHERE token_id = ?"
		args = append(args, tokenID)
	}
	query += " ORDER BY received_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, perPage, (page-1)*perPage)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CountEvents returns the total number of recorded events. A zero tokenID
// counts across all tokens.
func CountEvents(d *sql.DB, tokenID int64) (int, error) {
	var count int
	var err error
	if tokenID != 0 {
		err = d.QueryRow("SELECT COUNT(*) FROM events WHERE token_id = ?", tokenID).Scan(&count)
	} else {
		err = d.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	}
	return count, err
}

func scanEvent(scan func(dest ...any) error) (*models.Event, error) {
	var e models.Event
	var suspicious, tokenValid int
	err := scan(&e.ID, &e.TokenID, &e.ReceivedAt, &e.Method, &e.Path, &e.Query,
		&e.Headers, &e.BodyPreview, &e.RemoteIP, &e.ResolvedHostname,
		&suspicious, &e.SuspicionReason, &tokenValid)
	if err != nil {
		return nil, err
	}
	e.Suspicious = suspicious != 0
	e.TokenValid = tokenValid != 0
	return &e, nil
}
