package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
)

const postColumns = `id, owner_id, channel_id, media_path, media_type, caption, scheduled_at, status,
	is_recurring, recurring_interval_hours, recurring_end_date, recurring_target_count, recurring_posted_count,
	batch_id, failure_reason, created_at, posted_at`

// queueOrder keeps every listing deterministic: scheduled posts first by
// slot then id, unscheduled posts last by id.
const queueOrder = `ORDER BY scheduled_at IS NULL, scheduled_at ASC, id ASC`

type postRepo struct {
	db dbConn
}

func newPostRepo(db dbConn) contract.PostRepo {
	return &postRepo{db: db}
}

func (r *postRepo) Create(ctx context.Context, post *entity.Post) error {
	if post.Status == "" {
		post.Status = entity.PostStatusPending
	}
	if post.MediaType == "" {
		post.MediaType = "photo"
	}

	var (
		isRecurring   bool
		intervalHours sql.NullInt64
		endDate       sql.NullTime
		targetCount   sql.NullInt64
		postedCount   int
	)
	if rec := post.Recurring; rec != nil {
		isRecurring = true
		intervalHours = sql.NullInt64{Int64: int64(rec.IntervalHours), Valid: true}
		if !rec.EndDate.IsZero() {
			endDate = sql.NullTime{Time: rec.EndDate, Valid: true}
		}
		if rec.TargetCount > 0 {
			targetCount = sql.NullInt64{Int64: int64(rec.TargetCount), Valid: true}
		}
		postedCount = rec.PostedCount
	}

	query := `
		INSERT INTO posts (owner_id, channel_id, media_path, media_type, caption, scheduled_at, status,
			is_recurring, recurring_interval_hours, recurring_end_date, recurring_target_count, recurring_posted_count,
			batch_id, failure_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		post.OwnerID,
		post.ChannelID,
		post.MediaPath,
		post.MediaType,
		nullString(post.Caption),
		nullTime(post.ScheduledAt),
		post.Status,
		isRecurring,
		intervalHours,
		endDate,
		targetCount,
		postedCount,
		nullInt64(post.BatchID),
		nullString(post.FailureReason),
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	post.ID = id
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*entity.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE id = ?`, postColumns)

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// filterClause composes parameterized conditions from the typed filter.
// Values are never interpolated into the SQL text.
func filterClause(f contract.PostFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}

	if f.OwnerID != 0 {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ChannelID != "" {
		conditions = append(conditions, "channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.ScheduledOnly || f.ScheduledBefore != nil || f.ScheduledAtOrAfter != nil {
		conditions = append(conditions, "scheduled_at IS NOT NULL")
	}
	if f.UnscheduledOnly {
		conditions = append(conditions, "scheduled_at IS NULL")
	}
	if f.ScheduledBefore != nil {
		conditions = append(conditions, "scheduled_at < ?")
		args = append(args, *f.ScheduledBefore)
	}
	if f.ScheduledAtOrAfter != nil {
		conditions = append(conditions, "scheduled_at >= ?")
		args = append(args, *f.ScheduledAtOrAfter)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *postRepo) List(ctx context.Context, f contract.PostFilter) ([]*entity.Post, error) {
	where, args := filterClause(f)
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s %s`, postColumns, where, queueOrder)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepo) ListByBatch(ctx context.Context, batchID int64) ([]*entity.Post, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM posts
		WHERE batch_id = ? AND status = ?
		ORDER BY id ASC
	`, postColumns)

	rows, err := r.db.QueryContext(ctx, query, batchID, entity.PostStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepo) LatestScheduled(ctx context.Context, ownerID int64, channelID string) (*time.Time, error) {
	where, args := filterClause(contract.PostFilter{
		OwnerID:       ownerID,
		ChannelID:     channelID,
		Status:        entity.PostStatusPending,
		ScheduledOnly: true,
	})
	// Selecting the column keeps its declared type, so the driver decodes
	// it as a timestamp; an aggregate would come back as raw text.
	query := fmt.Sprintf(`SELECT scheduled_at FROM posts WHERE %s ORDER BY scheduled_at DESC LIMIT 1`, where)

	var latest time.Time
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&latest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scheduled time: %w", err)
	}
	return &latest, nil
}

func (r *postRepo) NextDue(ctx context.Context) (*entity.Post, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM posts
		WHERE status = ? AND scheduled_at IS NOT NULL
		ORDER BY scheduled_at ASC, id ASC
		LIMIT 1
	`, postColumns)

	post, err := scanPost(r.db.QueryRowContext(ctx, query, entity.PostStatusPending))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next due post: %w", err)
	}

	return post, nil
}

func (r *postRepo) OverdueSummaries(ctx context.Context, before time.Time) ([]contract.OverdueSummary, error) {
	query := `
		SELECT owner_id, channel_id, COUNT(*)
		FROM posts
		WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at < ?
		GROUP BY owner_id, channel_id
		ORDER BY owner_id, channel_id
	`

	rows, err := r.db.QueryContext(ctx, query, entity.PostStatusPending, before)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize overdue posts: %w", err)
	}
	defer rows.Close()

	var summaries []contract.OverdueSummary
	for rows.Next() {
		var s contract.OverdueSummary
		if err := rows.Scan(&s.OwnerID, &s.ChannelID, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan overdue summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *postRepo) UpdateSchedule(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE posts SET scheduled_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, at, id, entity.PostStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update post schedule: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("post %d is not pending", id)
	}

	return nil
}

// BulkUpdateSchedules applies every schedule update and returns the number
// of rows actually changed. Only pending posts are touched; posted and
// failed rows stay immutable.
func (r *postRepo) BulkUpdateSchedules(ctx context.Context, schedules []contract.PostSchedule) (int, error) {
	query := `UPDATE posts SET scheduled_at = ? WHERE id = ? AND status = ?`

	updated := 0
	for _, s := range schedules {
		result, err := r.db.ExecContext(ctx, query, s.ScheduledAt, s.PostID, entity.PostStatusPending)
		if err != nil {
			return 0, fmt.Errorf("failed to update schedule for post %d: %w", s.PostID, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			updated++
		}
	}

	return updated, nil
}

func (r *postRepo) MarkPosted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE posts SET status = ?, posted_at = ?, failure_reason = NULL WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, entity.PostStatusPosted, at, id); err != nil {
		return fmt.Errorf("failed to mark post as posted: %w", err)
	}
	return nil
}

func (r *postRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE posts SET status = ?, failure_reason = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, entity.PostStatusFailed, nullString(reason), id); err != nil {
		return fmt.Errorf("failed to mark post as failed: %w", err)
	}
	return nil
}

func (r *postRepo) IncrementPostedCount(ctx context.Context, id int64) error {
	query := `UPDATE posts SET recurring_posted_count = recurring_posted_count + 1 WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment posted count: %w", err)
	}
	return nil
}

func (r *postRepo) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`DELETE FROM posts WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// DetachBatch unlinks every post still referencing the batch so the
// batch row can be removed while posted history stays intact.
func (r *postRepo) DetachBatch(ctx context.Context, batchID int64) error {
	query := `UPDATE posts SET batch_id = NULL WHERE batch_id = ?`

	if _, err := r.db.ExecContext(ctx, query, batchID); err != nil {
		return fmt.Errorf("failed to detach batch posts: %w", err)
	}
	return nil
}

func (r *postRepo) DeletePending(ctx context.Context, ownerID int64) (int, error) {
	query := `DELETE FROM posts WHERE owner_id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, ownerID, entity.PostStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending posts: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted posts: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPost decodes one posts row into an explicit record, the single
// place raw columns turn into entity fields.
func scanPost(row rowScanner) (*entity.Post, error) {
	var (
		post          entity.Post
		caption       sql.NullString
		scheduledAt   sql.NullTime
		isRecurring   bool
		intervalHours sql.NullInt64
		endDate       sql.NullTime
		targetCount   sql.NullInt64
		postedCount   int
		batchID       sql.NullInt64
		failureReason sql.NullString
		postedAt      sql.NullTime
	)

	err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.ChannelID,
		&post.MediaPath,
		&post.MediaType,
		&caption,
		&scheduledAt,
		&post.Status,
		&isRecurring,
		&intervalHours,
		&endDate,
		&targetCount,
		&postedCount,
		&batchID,
		&failureReason,
		&post.CreatedAt,
		&postedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Caption = caption.String
	post.FailureReason = failureReason.String
	post.BatchID = batchID.Int64
	if scheduledAt.Valid {
		t := scheduledAt.Time
		post.ScheduledAt = &t
	}
	if postedAt.Valid {
		t := postedAt.Time
		post.PostedAt = &t
	}
	if isRecurring {
		rec := &entity.Recurrence{
			IntervalHours: int(intervalHours.Int64),
			TargetCount:   int(targetCount.Int64),
			PostedCount:   postedCount,
		}
		if endDate.Valid {
			rec.EndDate = endDate.Time
		}
		post.Recurring = rec
	}

	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]*entity.Post, error) {
	var posts []*entity.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
