package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const logColumns = `id::text, COALESCE(actor_id, ''), actor_type, actor_name, action, resource_type, resource_id,
	details, ip_address, user_agent, success, error_message, created_at`

const accessColumns = `id::text, admin_id::text, admin_email, access_type, resource_type, resource_id,
	reason, ip_address, user_agent, created_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanLog(row pgx.Row) (*Log, error) {
	var l Log
	var details []byte
	err := row.Scan(&l.ID, &l.ActorID, &l.ActorType, &l.ActorName, &l.Action, &l.ResourceType,
		&l.ResourceID, &details, &l.IPAddress, &l.UserAgent, &l.Success, &l.ErrorMessage, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		l.Details = json.RawMessage(details)
	}
	return &l, nil
}

func scanAccess(row pgx.Row) (*AccessLog, error) {
	var l AccessLog
	err := row.Scan(&l.ID, &l.AdminID, &l.AdminEmail, &l.AccessType, &l.ResourceType, &l.ResourceID,
		&l.Reason, &l.IPAddress, &l.UserAgent, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repoPG) Insert(ctx context.Context, l *Log) error {
	var details any
	if len(l.Details) > 0 {
		details = string(l.Details)
	}
	var actorID any
	if l.ActorID != "" {
		actorID = l.ActorID
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_id, actor_type, actor_name, action, resource_type, resource_id,
			details, ip_address, user_agent, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)
		RETURNING id::text, created_at`,
		actorID, l.ActorType, l.ActorName, l.Action, l.ResourceType, l.ResourceID,
		details, l.IPAddress, l.UserAgent, l.Success, l.ErrorMessage,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	var w db.Where
	if f.ActorType != "" {
		w.Add("actor_type = $%d", f.ActorType)
	}
	if f.Action != "" {
		w.Add("action = $%d", f.Action)
	}
	if f.From != nil {
		w.Add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.Add("created_at <= $%d", *f.To)
	}
	if f.Search != "" {
		w.Add("(actor_name ILIKE $%[1]d OR action ILIKE $%[1]d OR resource_type ILIKE $%[1]d OR resource_id ILIKE $%[1]d)",
			db.LikePattern(f.Search))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := w.Page(limit, offset)
	query := `SELECT ` + logColumns + ` FROM audit_logs` + w.SQL() + ` ORDER BY created_at DESC, id DESC` + page
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func (r *repoPG) InsertAccess(ctx context.Context, l *AccessLog) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO admin_access_logs (admin_id, admin_email, access_type, resource_type, resource_id,
			reason, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text, created_at`,
		l.AdminID, l.AdminEmail, l.AccessType, l.ResourceType, l.ResourceID,
		l.Reason, l.IPAddress, l.UserAgent,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *repoPG) SearchAccess(ctx context.Context, f AccessFilter, limit, offset int) ([]*AccessLog, int, error) {
	var w db.Where
	if f.AdminID != "" {
		w.Add("admin_id::text = $%d", f.AdminID)
	}
	if f.AccessType != "" {
		w.Add("access_type = $%d", f.AccessType)
	}
	if f.ResourceType != "" {
		w.Add("resource_type = $%d", f.ResourceType)
	}
	if f.Reason != "" {
		w.Add("reason ILIKE $%d", db.LikePattern(f.Reason))
	}
	if f.From != nil {
		w.Add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.Add("created_at <= $%d", *f.To)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM admin_access_logs`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := w.Page(limit, offset)
	query := `SELECT ` + accessColumns + ` FROM admin_access_logs` + w.SQL() + ` ORDER BY created_at DESC, id DESC` + page
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*AccessLog{}
	for rows.Next() {
		l, err := scanAccess(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func (r *repoPG) CountAction(ctx context.Context, action string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND created_at >= $2`, action, since).Scan(&n)
	return n, err
}

func (r *repoPG) CountAccess(ctx context.Context, accessType string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM admin_access_logs WHERE access_type = $1 AND created_at >= $2`, accessType, since).Scan(&n)
	return n, err
}

func (r *repoPG) RecentByAction(ctx context.Context, action string, since time.Time, n int) ([]*Log, error) {
	rows, err := r.q.Query(ctx, `SELECT `+logColumns+` FROM audit_logs
		WHERE action = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC LIMIT $3`, action, since, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
