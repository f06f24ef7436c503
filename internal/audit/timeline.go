package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// TimelineFilters narrow the timeline query. Zero values mean "no filter".
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Entity   string
	EntityID string
	Action   string
	ActorID  int64
	Page     int
	PageSize int
}

// TimelineRow is one audit entry as returned by the timeline API.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actorId"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Timeline returns audit entries matching the filters, newest first. Fetches
// one row past the window to detect whether a next page exists.
func (r *Recorder) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if r == nil || r.pool == nil {
		return Result{}, errors.New("audit recorder not initialised")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	const query = `SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::text = '' OR entity = $3)
  AND ($4::text = '' OR entity_id = $4)
  AND ($5::text = '' OR action = $5)
  AND ($6::bigint = 0 OR actor_id = $6)
ORDER BY occurred_at DESC
LIMIT $7 OFFSET $8`

	rows, err := r.pool.Query(ctx, query,
		nullableTime(filters.From), nullableTime(filters.To),
		filters.Entity, filters.EntityID, filters.Action, filters.ActorID,
		pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return Result{}, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	hasNext := len(out) > pageSize
	if hasNext {
		out = out[:pageSize]
	}
	return Result{
		Rows:   out,
		Paging: PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext},
	}, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
