package repository

import (
	"context"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every query below
// can run standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const couponColumns = `id, code, issued_cap, used_count, status, created_at, updated_at`

func scanCoupon(row pgx.Row) (domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.IssuedCap, &c.UsedCount, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) GetClaimBySession(ctx context.Context, sessionID string) (domain.Claim, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, secret, COALESCE(user_id, ''), COALESCE(guest_id, ''),
		       session_id, network_address, coupon_id, used, created_at, updated_at
		FROM claims
		WHERE session_id = $1`, sessionID)
	var c domain.Claim
	err := row.Scan(&c.ID, &c.Secret, &c.UserID, &c.GuestID, &c.SessionID,
		&c.NetworkAddress, &c.CouponID, &c.Used, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) HasRecentClaimByAddress(ctx context.Context, address string, since time.Time) (bool, error) {
	row := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM claims
			WHERE network_address = $1 AND created_at >= $2
		)`, address, since)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// NextEligibleCoupon returns the least-recently-updated Active coupon with
// capacity left. Ties on updated_at break on id so selection is
// deterministic.
func (q *Queries) NextEligibleCoupon(ctx context.Context) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE status = 'Active' AND used_count < issued_cap
		ORDER BY updated_at ASC, id ASC
		LIMIT 1`)
	return scanCoupon(row)
}

// IncrementCouponUsage bumps used_count only while capacity remains. Zero
// rows affected means a concurrent transaction took the last unit.
func (q *Queries) IncrementCouponUsage(ctx context.Context, couponID string, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND used_count < issued_cap`, couponID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type InsertClaimParams struct {
	ID             string
	Secret         string
	UserID         string
	GuestID        string
	SessionID      string
	NetworkAddress string
	CouponID       string
}

func (q *Queries) InsertClaim(ctx context.Context, arg InsertClaimParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO claims (id, secret, user_id, guest_id, session_id, network_address, coupon_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		arg.ID, arg.Secret, arg.UserID, arg.GuestID, arg.SessionID, arg.NetworkAddress, arg.CouponID)
	return err
}

type CreateCouponParams struct {
	ID        string
	Code      string
	IssuedCap int
	Status    string
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO coupons (id, code, issued_cap, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+couponColumns, arg.ID, arg.Code, arg.IssuedCap, arg.Status)
	return scanCoupon(row)
}

type UpdateCouponParams struct {
	ID        string
	Code      string
	IssuedCap int
	Status    string
}

// UpdateCoupon refuses to shrink the cap below what was already claimed;
// zero rows affected means the coupon is gone or the cap clause failed.
func (q *Queries) UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE coupons
		SET code = $2, issued_cap = $3, status = $4, updated_at = now()
		WHERE id = $1 AND used_count <= $3
		RETURNING `+couponColumns, arg.ID, arg.Code, arg.IssuedCap, arg.Status)
	return scanCoupon(row)
}

func (q *Queries) DeleteCoupon(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetCoupon(ctx context.Context, id string) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
	return scanCoupon(row)
}

func (q *Queries) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := q.db.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

const historySelect = `
	SELECT cl.id, co.code, co.status, cl.secret, cl.used, cl.created_at
	FROM claims cl
	JOIN coupons co ON co.id = cl.coupon_id`

func (q *Queries) listHistory(ctx context.Context, where string, arg any) ([]domain.ClaimHistory, error) {
	rows, err := q.db.Query(ctx, historySelect+where+` ORDER BY cl.created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.ClaimHistory
	for rows.Next() {
		var h domain.ClaimHistory
		if err := rows.Scan(&h.ID, &h.CouponCode, &h.CouponStatus, &h.Secret, &h.Used, &h.CreatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, h)
	}
	return claims, rows.Err()
}

func (q *Queries) ListClaimsByUser(ctx context.Context, userID string) ([]domain.ClaimHistory, error) {
	return q.listHistory(ctx, ` WHERE cl.user_id = $1`, userID)
}

func (q *Queries) ListClaimsByGuest(ctx context.Context, guestID string) ([]domain.ClaimHistory, error) {
	return q.listHistory(ctx, ` WHERE cl.guest_id = $1`, guestID)
}

type LedgerEntry struct {
	domain.Claim
	CouponCode string
}

func (q *Queries) ListAllClaims(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT cl.id, cl.secret, COALESCE(cl.user_id, ''), COALESCE(cl.guest_id, ''),
		       cl.session_id, cl.network_address, cl.coupon_id, cl.used,
		       cl.created_at, cl.updated_at, co.code
		FROM claims cl
		JOIN coupons co ON co.id = cl.coupon_id
		ORDER BY cl.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.Secret, &e.UserID, &e.GuestID, &e.SessionID,
			&e.NetworkAddress, &e.CouponID, &e.Used, &e.CreatedAt, &e.UpdatedAt, &e.CouponCode); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) SetClaimUsed(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE claims SET used = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CountsRow struct {
	TotalClaims   int
	UsedClaims    int
	TotalCoupons  int
	ActiveCoupons int
}

func (q *Queries) Counts(ctx context.Context) (CountsRow, error) {
	row := q.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM claims),
			(SELECT COUNT(*) FROM claims WHERE used),
			(SELECT COUNT(*) FROM coupons),
			(SELECT COUNT(*) FROM coupons WHERE status = 'Active')`)
	var c CountsRow
	err := row.Scan(&c.TotalClaims, &c.UsedClaims, &c.TotalCoupons, &c.ActiveCoupons)
	return c, err
}

func (q *Queries) ClaimsPerDay(ctx context.Context, days int) ([]domain.DailyCount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD'), COUNT(*)
		FROM claims
		WHERE DATE(created_at) >= CURRENT_DATE - $1 * INTERVAL '1 day'
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at) ASC`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.DailyCount
	for rows.Next() {
		var d domain.DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		counts = append(counts, d)
	}
	return counts, rows.Err()
}
