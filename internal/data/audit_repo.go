package data

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"homologador/internal/core"
)

// AuditRepo implements core.AuditRepository. The trail is append-only: the
// application never updates or deletes audit rows.
type AuditRepo struct {
	db *Manager
}

func NewAuditRepo(db *Manager) *AuditRepo {
	return &AuditRepo{db: db}
}

// Trail never returns more than this many rows.
const auditTrailLimit = 1000

var auditFilterFields = map[string]bool{
	"user_id":    true,
	"action":     true,
	"table_name": true,
	"record_id":  true,
	"timestamp":  true,
}

// Append records one entry. The before/after snapshots are serialized to
// JSON; nil maps produce NULL columns.
func (r *AuditRepo) Append(e *core.AuditLogEntry) (int64, error) {
	if e.Action == "" {
		return 0, core.NewValidationError("action", "must not be empty")
	}

	oldJSON, err := marshalFieldMap(e.OldValues)
	if err != nil {
		return 0, fmt.Errorf("serialize old_values: %w", err)
	}
	newJSON, err := marshalFieldMap(e.NewValues)
	if err != nil {
		return 0, fmt.Errorf("serialize new_values: %w", err)
	}

	return r.db.Insert(`INSERT INTO audit_logs
		(user_id, action, table_name, record_id, old_values, new_values, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Action, e.TableName, e.RecordID, oldJSON, newJSON, e.IPAddress)
}

// Trail returns audit entries matching every filter, newest first, capped
// at 1000 rows.
func (r *AuditRepo) Trail(filters ...core.Filter) ([]core.AuditLogEntry, error) {
	where, args, err := core.BuildWhere(filters, auditFilterFields)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, action, table_name, record_id,
		old_values, new_values, ip_address, timestamp, username
	FROM v_audit_with_user` + where +
		fmt.Sprintf(` ORDER BY timestamp DESC, id DESC LIMIT %d`, auditTrailLimit)

	var out []core.AuditLogEntry
	err = r.db.Query(query, args, func(rows *sql.Rows) error {
		for rows.Next() {
			e, err := scanAuditEntry(rows)
			if err != nil {
				return err
			}
			out = append(out, *e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanAuditEntry(rows *sql.Rows) (*core.AuditLogEntry, error) {
	var e core.AuditLogEntry
	var userID, recordID sql.NullInt64
	var tableName, oldJSON, newJSON, ipAddress, username sql.NullString

	err := rows.Scan(&e.ID, &userID, &e.Action, &tableName, &recordID,
		&oldJSON, &newJSON, &ipAddress, &e.Timestamp, &username)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		v := userID.Int64
		e.UserID = &v
	}
	if recordID.Valid {
		v := recordID.Int64
		e.RecordID = &v
	}
	e.TableName = nullableString(tableName)
	e.IPAddress = nullableString(ipAddress)
	e.Username = nullableString(username)

	if e.OldValues, err = unmarshalFieldMap(oldJSON); err != nil {
		return nil, fmt.Errorf("parse old_values of entry %d: %w", e.ID, err)
	}
	if e.NewValues, err = unmarshalFieldMap(newJSON); err != nil {
		return nil, fmt.Errorf("parse new_values of entry %d: %w", e.ID, err)
	}
	return &e, nil
}

func marshalFieldMap(m core.FieldMap) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalFieldMap(s sql.NullString) (core.FieldMap, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m core.FieldMap
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
