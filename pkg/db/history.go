package db

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/ledger"
)

// ErrorKind tells which stage reported a resolution error.
type ErrorKind string

const (
	ErrorKindOption ErrorKind = "option"
	ErrorKindParse  ErrorKind = "parse"
)

// lastResolutionKey is the metadata key naming the newest resolution.
const lastResolutionKey = "last_resolution_id"

// ErrAmbiguousID is returned when an ID prefix matches several resolutions.
var ErrAmbiguousID = errors.New("ambiguous resolution id")

// Resolution is a recorded resolution of a ledger's options.
type Resolution struct {
	ID          string
	LedgerFile  string
	ResolvedAt  time.Time
	OptionCount int
	ErrorCount  int
}

// ErrorRecord is an error reported while resolving.
type ErrorRecord struct {
	Kind     ErrorKind
	Filename string
	Lineno   int
	Message  string
	Cause    string
}

// Snapshot is the input of RecordResolution.
type Snapshot struct {
	LedgerFile string
	Values     map[string]string // option key -> YAML rendering
	Errors     []ErrorRecord
}

// NewSnapshot renders a load result for storage.
func NewSnapshot(result *ledger.Result) (Snapshot, error) {
	snap := Snapshot{
		LedgerFile: result.LedgerFile,
		Values:     make(map[string]string, len(result.Options)),
	}

	for key, value := range result.Options {
		rendered, err := RenderValue(value)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to render option %s: %w", key, err)
		}
		snap.Values[key] = rendered
	}

	for _, e := range result.ParseErrors {
		snap.Errors = append(snap.Errors, ErrorRecord{
			Kind:     ErrorKindParse,
			Filename: e.Pos.Filename,
			Lineno:   e.Pos.Line,
			Message:  e.Message,
		})
	}
	for _, e := range result.OptionErrors {
		rec := ErrorRecord{
			Kind:     ErrorKindOption,
			Filename: e.Source.Filename,
			Lineno:   e.Source.Lineno,
			Message:  e.Message,
		}
		if e.Err != nil {
			rec.Cause = e.Err.Error()
		}
		snap.Errors = append(snap.Errors, rec)
	}

	return snap, nil
}

// RenderValue renders an option value as single document YAML without the
// trailing newline.
func RenderValue(value any) (string, error) {
	out, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// History manages resolution history operations.
type History struct {
	conn *Connection
	now  func() time.Time
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn, now: time.Now}
}

// RecordResolution stores a snapshot and returns the new resolution.
// The resolution, its values and its errors are written in one transaction.
func (h *History) RecordResolution(snap Snapshot) (*Resolution, error) {
	res := &Resolution{
		ID:          uuid.NewString(),
		LedgerFile:  snap.LedgerFile,
		ResolvedAt:  h.now().UTC(),
		OptionCount: len(snap.Values),
		ErrorCount:  len(snap.Errors),
	}

	err := h.conn.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO resolutions (id, ledger_file, resolved_at, option_count, error_count)
			VALUES (?, ?, ?, ?, ?)
		`, res.ID, res.LedgerFile, res.ResolvedAt, res.OptionCount, res.ErrorCount); err != nil {
			return fmt.Errorf("failed to insert resolution: %w", err)
		}

		valueStmt, err := tx.Prepare(`INSERT INTO resolution_values (resolution_id, key, value) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare value insert: %w", err)
		}
		defer valueStmt.Close()

		for _, key := range slices.Sorted(maps.Keys(snap.Values)) {
			if _, err := valueStmt.Exec(res.ID, key, snap.Values[key]); err != nil {
				return fmt.Errorf("failed to insert value %s: %w", key, err)
			}
		}

		for _, e := range snap.Errors {
			if _, err := tx.Exec(`
				INSERT INTO resolution_errors (resolution_id, kind, filename, lineno, message, cause)
				VALUES (?, ?, ?, ?, ?, ?)
			`, res.ID, string(e.Kind), e.Filename, e.Lineno, e.Message, e.Cause); err != nil {
				return fmt.Errorf("failed to insert error: %w", err)
			}
		}

		return setMetadata(tx, lastResolutionKey, res.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record resolution: %w", err)
	}

	return res, nil
}

const resolutionColumns = `id, ledger_file, resolved_at, option_count, error_count`

func scanResolution(row interface{ Scan(...any) error }) (*Resolution, error) {
	var res Resolution
	if err := row.Scan(&res.ID, &res.LedgerFile, &res.ResolvedAt, &res.OptionCount, &res.ErrorCount); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetResolution retrieves a resolution by ID or by a unique ID prefix.
// It returns nil when nothing matches.
func (h *History) GetResolution(id string) (*Resolution, error) {
	rows, err := h.conn.Query(`
		SELECT `+resolutionColumns+`
		FROM resolutions
		WHERE id = ? OR id LIKE ? ESCAPE '\'
		ORDER BY id = ? DESC
		LIMIT 2
	`, id, escapeLike(id)+"%", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}
	defer rows.Close()

	var found []*Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		found = append(found, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}

	switch {
	case len(found) == 0:
		return nil, nil
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// ListResolutions retrieves the most recent resolutions, newest first.
// A limit <= 0 returns all of them.
func (h *History) ListResolutions(limit int) ([]Resolution, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := h.conn.Query(`
		SELECT `+resolutionColumns+`
		FROM resolutions
		ORDER BY resolved_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		resolutions = append(resolutions, *res)
	}

	return resolutions, rows.Err()
}

// GetValues retrieves the rendered option values of a resolution.
func (h *History) GetValues(id string) (map[string]string, error) {
	rows, err := h.conn.Query(`SELECT key, value FROM resolution_values WHERE resolution_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values[key] = value
	}

	return values, rows.Err()
}

// GetErrors retrieves the errors of a resolution in the order they were reported.
func (h *History) GetErrors(id string) ([]ErrorRecord, error) {
	rows, err := h.conn.Query(`
		SELECT kind, filename, lineno, message, cause
		FROM resolution_errors
		WHERE resolution_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get errors: %w", err)
	}
	defer rows.Close()

	var records []ErrorRecord
	for rows.Next() {
		var rec ErrorRecord
		var kind string
		if err := rows.Scan(&kind, &rec.Filename, &rec.Lineno, &rec.Message, &rec.Cause); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		rec.Kind = ErrorKind(kind)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteResolution deletes a resolution with its values and errors. When it
// was the last recorded resolution, the newest remaining one takes its place.
func (h *History) DeleteResolution(id string) (bool, error) {
	var deleted bool
	err := h.conn.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM resolutions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete resolution: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = rows > 0
		if !deleted {
			return nil
		}

		var last sql.NullString
		err = tx.QueryRow(`SELECT value FROM history_metadata WHERE key = ?`, lastResolutionKey).Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to get metadata: %w", err)
		}
		if last.String != id {
			return nil
		}

		var newest string
		err = tx.QueryRow(`
			SELECT id FROM resolutions
			ORDER BY resolved_at DESC, rowid DESC
			LIMIT 1
		`).Scan(&newest)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := tx.Exec(`DELETE FROM history_metadata WHERE key = ?`, lastResolutionKey); err != nil {
				return fmt.Errorf("failed to clear metadata: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find newest resolution: %w", err)
		}
		return setMetadata(tx, lastResolutionKey, newest)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ChangeKind classifies a difference between two resolutions.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// ValueChange is one option whose rendering differs between two resolutions.
type ValueChange struct {
	Key  string
	Kind ChangeKind
	Old  string
	New  string
}

// Diff compares the values of two resolutions. Changes are sorted by key.
func (h *History) Diff(oldID, newID string) ([]ValueChange, error) {
	oldValues, err := h.GetValues(oldID)
	if err != nil {
		return nil, err
	}
	newValues, err := h.GetValues(newID)
	if err != nil {
		return nil, err
	}
	return DiffValues(oldValues, newValues), nil
}

// DiffValues compares two sets of rendered values.
func DiffValues(oldValues, newValues map[string]string) []ValueChange {
	keys := make(map[string]struct{}, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = struct{}{}
	}
	for k := range newValues {
		keys[k] = struct{}{}
	}

	var changes []ValueChange
	for k := range keys {
		oldValue, inOld := oldValues[k]
		newValue, inNew := newValues[k]
		switch {
		case !inOld:
			changes = append(changes, ValueChange{Key: k, Kind: ChangeAdded, New: newValue})
		case !inNew:
			changes = append(changes, ValueChange{Key: k, Kind: ChangeRemoved, Old: oldValue})
		case oldValue != newValue:
			changes = append(changes, ValueChange{Key: k, Kind: ChangeChanged, Old: oldValue, New: newValue})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Key < changes[j].Key
	})
	return changes
}

// Stats represents history statistics.
type Stats struct {
	TotalResolutions int
	TotalErrors      int
	LedgerFiles      int
	LastResolution   sql.NullString
}

// GetStats retrieves history statistics.
func (h *History) GetStats() (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(error_count), 0), COUNT(DISTINCT ledger_file)
		FROM resolutions
	`).Scan(&stats.TotalResolutions, &stats.TotalErrors, &stats.LedgerFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolution counts: %w", err)
	}

	stats.LastResolution, err = h.GetMetadata(lastResolutionKey)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value. The result is not Valid when the
// key is unset.
func (h *History) GetMetadata(key string) (sql.NullString, error) {
	var value sql.NullString
	err := h.conn.QueryRow(`SELECT value FROM history_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

func setMetadata(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO history_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
