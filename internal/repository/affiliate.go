package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/kdiomande/fidelite-system/internal/model"
)

// CreateCommission записывает комиссию за доставленный заказ. Уникальный
// индекс по order_id гарантирует не более одной комиссии на заказ:
// повторное событие доставки возвращает false без ошибки.
func (r *PostgresRepository) CreateCommission(ctx context.Context, c model.Commission) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO commissions (id, influencer_id, order_id, order_total, rate, amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (order_id) DO NOTHING`,
		c.ID, c.InfluencerID, c.OrderID, c.OrderTotal, c.Rate.String(), c.Amount, string(model.CommissionPending),
	)
	if err != nil {
		return false, fmt.Errorf("insert commission: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// MarkCommissionPaid переводит комиссию из pending в paid. Повторная выплата
// и выплата аннулированной комиссии — явные ошибки, а не тихие no-op.
func (r *PostgresRepository) MarkCommissionPaid(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE commissions SET status = $2, paid_at = $3 WHERE id = $1 AND status = $4`,
		id, string(model.CommissionPaid), touchTime(), string(model.CommissionPending),
	)
	if err != nil {
		return fmt.Errorf("mark commission paid: %w", err)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM commissions WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCommissionNotFound
		}
		return fmt.Errorf("get commission status: %w", err)
	}

	switch model.CommissionStatus(status) {
	case model.CommissionPaid:
		return ErrCommissionAlreadyPaid
	case model.CommissionVoided:
		return ErrCommissionVoided
	default:
		return fmt.Errorf("unexpected commission status %q", status)
	}
}

// VoidCommission аннулирует комиссию заказа, отменённого после доставки.
// Повторная отмена — no-op; аннулирование уже выплаченной комиссии — явная
// ошибка, которую должен разбирать оператор.
func (r *PostgresRepository) VoidCommission(ctx context.Context, orderID string) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE commissions SET status = $2 WHERE order_id = $1 AND status = $3`,
		orderID, string(model.CommissionVoided), string(model.CommissionPending),
	)
	if err != nil {
		return false, fmt.Errorf("void commission: %w", err)
	}
	if cmdTag.RowsAffected() == 1 {
		return true, nil
	}

	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM commissions WHERE order_id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrCommissionNotFound
		}
		return false, fmt.Errorf("get commission status: %w", err)
	}

	if model.CommissionStatus(status) == model.CommissionPaid {
		return false, ErrCommissionAlreadyPaid
	}
	return false, nil
}

// GetCommissionsByInfluencer возвращает все комиссии инфлюенсера.
func (r *PostgresRepository) GetCommissionsByInfluencer(ctx context.Context, influencerID int64) ([]model.Commission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, influencer_id, order_id, order_total, rate::text, amount, status, paid_at, created_at
		 FROM commissions
		 WHERE influencer_id = $1
		 ORDER BY created_at DESC`,
		influencerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select commissions: %w", err)
	}
	defer rows.Close()

	var res []model.Commission
	for rows.Next() {
		var (
			c       model.Commission
			rateRaw string
			status  string
		)
		if err := rows.Scan(&c.ID, &c.InfluencerID, &c.OrderID, &c.OrderTotal, &rateRaw, &c.Amount, &status, &c.PaidAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		rate, err := decimal.NewFromString(rateRaw)
		if err != nil {
			return nil, fmt.Errorf("parse commission rate: %w", err)
		}
		c.Rate = rate
		c.Status = model.CommissionStatus(status)
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AvailableBalance возвращает сумму невыплаченных комиссий инфлюенсера.
// Аннулированные комиссии исключаются навсегда.
func (r *PostgresRepository) AvailableBalance(ctx context.Context, influencerID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM commissions WHERE influencer_id = $1 AND status = $2`,
		influencerID, string(model.CommissionPending),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum commissions: %w", err)
	}
	return total, nil
}

// CreatePayoutRequest создаёт заявку на выплату. Проверка остатка и вставка
// выполняются в одной транзакции с блокировкой строки инфлюенсера, чтобы две
// параллельные заявки не превысили реальный баланс: уже поданные pending и
// approved заявки резервируют часть остатка.
func (r *PostgresRepository) CreatePayoutRequest(ctx context.Context, influencerID, amount int64, method, details string) (*model.PayoutRequest, error) {
	var req *model.PayoutRequest

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, influencerID).Scan(&dummy); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock influencer for update: %w", err)
		}

		var available int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM commissions WHERE influencer_id = $1 AND status = $2`,
			influencerID, string(model.CommissionPending),
		).Scan(&available)
		if err != nil {
			return fmt.Errorf("sum commissions: %w", err)
		}

		var reserved int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM payout_requests
			 WHERE influencer_id = $1 AND status IN ($2, $3)`,
			influencerID, string(model.PayoutPending), string(model.PayoutApproved),
		).Scan(&reserved)
		if err != nil {
			return fmt.Errorf("sum reserved payouts: %w", err)
		}

		if amount > available-reserved {
			return ErrInsufficientBalance
		}

		p := model.PayoutRequest{
			ID:            uuid.New(),
			InfluencerID:  influencerID,
			Amount:        amount,
			Method:        method,
			MethodDetails: details,
			Status:        model.PayoutPending,
			RequestedAt:   touchTime(),
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payout_requests (id, influencer_id, amount, method, method_details, status, requested_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.InfluencerID, p.Amount, p.Method, p.MethodDetails, string(p.Status), p.RequestedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payout request: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		req = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// GetPayoutsByInfluencer возвращает заявки инфлюенсера на выплату.
func (r *PostgresRepository) GetPayoutsByInfluencer(ctx context.Context, influencerID int64) ([]model.PayoutRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, influencer_id, amount, method, method_details, status, admin_note, requested_at, resolved_at
		 FROM payout_requests
		 WHERE influencer_id = $1
		 ORDER BY requested_at DESC`,
		influencerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select payout requests: %w", err)
	}
	defer rows.Close()

	var res []model.PayoutRequest
	for rows.Next() {
		var (
			p      model.PayoutRequest
			status string
		)
		if err := rows.Scan(&p.ID, &p.InfluencerID, &p.Amount, &p.Method, &p.MethodDetails, &status, &p.AdminNote, &p.RequestedAt, &p.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan payout request: %w", err)
		}
		p.Status = model.PayoutStatus(status)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ResolvePayout выполняет смену статуса заявки: pending -> approved|rejected,
// approved -> paid. Условный UPDATE допускает ровно один переход.
func (r *PostgresRepository) ResolvePayout(ctx context.Context, id uuid.UUID, to model.PayoutStatus, note string) (int64, error) {
	var from model.PayoutStatus
	switch to {
	case model.PayoutApproved, model.PayoutRejected:
		from = model.PayoutPending
	case model.PayoutPaid:
		from = model.PayoutApproved
	default:
		return 0, ErrInvalidPayoutTransition
	}

	var influencerID int64
	err := r.pool.QueryRow(ctx,
		`UPDATE payout_requests SET status = $2, admin_note = $3, resolved_at = $4
		 WHERE id = $1 AND status = $5
		 RETURNING influencer_id`,
		id, string(to), note, touchTime(), string(from),
	).Scan(&influencerID)
	if err == nil {
		return influencerID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("resolve payout: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payout_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check payout exists: %w", err)
	}
	if !exists {
		return 0, ErrPayoutNotFound
	}
	return 0, ErrInvalidPayoutTransition
}

// CreateReferral сохраняет новый реферальный код в состоянии pending.
func (r *PostgresRepository) CreateReferral(ctx context.Context, ref model.Referral) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO referrals (id, referrer_id, code, status, bonus_points)
		 VALUES ($1, $2, $3, $4, $5)`,
		ref.ID, ref.ReferrerID, ref.Code, string(model.ReferralPending), ref.BonusPoints,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrReferralCodeTaken
		}
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

// GetReferralsByReferrer возвращает коды, выпущенные пользователем.
func (r *PostgresRepository) GetReferralsByReferrer(ctx context.Context, referrerID int64) ([]model.Referral, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, referrer_id, referred_id, code, status, bonus_points, created_at, completed_at
		 FROM referrals
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select referrals: %w", err)
	}
	defer rows.Close()

	var res []model.Referral
	for rows.Next() {
		var (
			ref    model.Referral
			status string
		)
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Code, &status, &ref.BonusPoints, &ref.CreatedAt, &ref.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		ref.Status = model.ReferralStatus(status)
		res = append(res, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// RedeemReferral активирует реферальный код. Условный UPDATE
// pending -> completed допускает ровно одного победителя при параллельных
// попытках; бонус реферера записывается в той же транзакции с уникальностью
// по referral_id, поэтому начисляется не более одного раза.
func (r *PostgresRepository) RedeemReferral(ctx context.Context, code string, redeemerID int64) (*model.Referral, error) {
	var redeemed *model.Referral

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var ref model.Referral
		var status string
		err = tx.QueryRow(ctx,
			`SELECT id, referrer_id, code, status, bonus_points, created_at FROM referrals WHERE code = $1`,
			code,
		).Scan(&ref.ID, &ref.ReferrerID, &ref.Code, &status, &ref.BonusPoints, &ref.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrReferralInvalid
			}
			return fmt.Errorf("get referral: %w", err)
		}
		ref.Status = model.ReferralStatus(status)

		if ref.ReferrerID == redeemerID {
			return ErrSelfReferral
		}

		completedAt := touchTime()
		cmdTag, err := tx.Exec(ctx,
			`UPDATE referrals SET status = $2, referred_id = $3, completed_at = $4
			 WHERE id = $1 AND status = $5`,
			ref.ID, string(model.ReferralCompleted), redeemerID, completedAt, string(model.ReferralPending),
		)
		if err != nil {
			return fmt.Errorf("complete referral: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			// Код уже использован или истёк — проигравший получает Invalid.
			return ErrReferralInvalid
		}

		if err := ensureAccount(ctx, tx, ref.ReferrerID); err != nil {
			return err
		}

		bonusTag, err := tx.Exec(ctx,
			`INSERT INTO points_transactions (id, account_id, delta, reason, referral_id, description)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (referral_id) WHERE referral_id IS NOT NULL DO NOTHING`,
			uuid.New(), ref.ReferrerID, ref.BonusPoints, string(model.ReasonEarnedReferral), ref.ID,
			fmt.Sprintf("Bonus de parrainage, code %s", ref.Code),
		)
		if err != nil {
			return fmt.Errorf("insert referral bonus: %w", err)
		}

		if bonusTag.RowsAffected() == 1 {
			_, err = tx.Exec(ctx,
				`UPDATE loyalty_accounts SET points = points + $2 WHERE user_id = $1`,
				ref.ReferrerID, ref.BonusPoints,
			)
			if err != nil {
				return fmt.Errorf("update referrer points: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		ref.Status = model.ReferralCompleted
		ref.ReferredID = &redeemerID
		ref.CompletedAt = &completedAt
		redeemed = &ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	return redeemed, nil
}
