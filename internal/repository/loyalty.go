package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kdiomande/fidelite-system/internal/model"
)

// ensureAccount создаёт бонусный счёт пользователя, если его ещё нет.
func ensureAccount(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO loyalty_accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

// CreditPurchase начисляет баллы за доставленный заказ и обновляет агрегаты
// счёта. Уникальный индекс (order_id, reason) гарантирует не более одного
// начисления на заказ: повторное событие доставки возвращает false без ошибки.
func (r *PostgresRepository) CreditPurchase(ctx context.Context, customerID int64, orderID string, orderTotal, pts int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureAccount(ctx, tx, customerID); err != nil {
		return false, err
	}

	cmdTag, err := tx.Exec(ctx,
		`INSERT INTO points_transactions (id, account_id, delta, reason, order_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id, reason) WHERE order_id IS NOT NULL DO NOTHING`,
		uuid.New(), customerID, pts, string(model.ReasonEarnedPurchase), orderID,
		fmt.Sprintf("Points pour la commande %s", orderID),
	)
	if err != nil {
		return false, fmt.Errorf("insert purchase transaction: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Заказ уже зачтён — повторная доставка того же заказа.
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE loyalty_accounts
		 SET points = points + $2, spend = spend + $3, order_count = order_count + 1
		 WHERE user_id = $1`,
		customerID, pts, orderTotal,
	)
	if err != nil {
		return false, fmt.Errorf("update account aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return true, nil
}

// CreditAchievement начисляет награду за достижение ровно один раз на счёт.
// Уникальный индекс (account_id, achievement_id) защищает от повторного
// зачисления при параллельных проходах оценки.
func (r *PostgresRepository) CreditAchievement(ctx context.Context, accountID int64, achievementID, title string, reward int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureAccount(ctx, tx, accountID); err != nil {
		return false, err
	}

	cmdTag, err := tx.Exec(ctx,
		`INSERT INTO points_transactions (id, account_id, delta, reason, achievement_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (account_id, achievement_id) WHERE achievement_id IS NOT NULL DO NOTHING`,
		uuid.New(), accountID, reward, string(model.ReasonEarnedAchievement), achievementID,
		fmt.Sprintf("Succès débloqué : %s", title),
	)
	if err != nil {
		return false, fmt.Errorf("insert achievement transaction: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE loyalty_accounts SET points = points + $2 WHERE user_id = $1`,
		accountID, reward,
	)
	if err != nil {
		return false, fmt.Errorf("update account points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return true, nil
}

// CreateManualAdjustment записывает административную корректировку баллов.
// Единственный санкционированный способ уменьшить баланс счёта.
func (r *PostgresRepository) CreateManualAdjustment(ctx context.Context, accountID, delta int64, note string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureAccount(ctx, tx, accountID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO points_transactions (id, account_id, delta, reason, description)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), accountID, delta, string(model.ReasonManualAdjustment), note,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE loyalty_accounts SET points = points + $2 WHERE user_id = $1`,
		accountID, delta,
	)
	if err != nil {
		return fmt.Errorf("update account points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAccount возвращает бонусный счёт пользователя.
func (r *PostgresRepository) GetAccount(ctx context.Context, userID int64) (*model.LoyaltyAccount, error) {
	var a model.LoyaltyAccount
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, points, spend, order_count, created_at FROM loyalty_accounts WHERE user_id = $1`,
		userID,
	).Scan(&a.UserID, &a.Points, &a.Spend, &a.OrderCount, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// GetAccountStats возвращает агрегированную статистику счёта вместе с числом
// завершённых приглашений пользователя.
func (r *PostgresRepository) GetAccountStats(ctx context.Context, userID int64) (model.AccountStats, error) {
	var stats model.AccountStats

	err := r.pool.QueryRow(ctx,
		`SELECT points, order_count, spend FROM loyalty_accounts WHERE user_id = $1`,
		userID,
	).Scan(&stats.Points, &stats.OrderCount, &stats.Spend)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountStats{}, ErrAccountNotFound
		}
		return model.AccountStats{}, fmt.Errorf("get account stats: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1 AND status = $2`,
		userID, string(model.ReferralCompleted),
	).Scan(&stats.ReferralCount)
	if err != nil {
		return model.AccountStats{}, fmt.Errorf("count referrals: %w", err)
	}

	return stats, nil
}

// DerivedPoints возвращает баланс счёта, выведенный заново из журнала
// транзакций. Обязан совпадать с денормализованным полем points.
func (r *PostgresRepository) DerivedPoints(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM points_transactions WHERE account_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

// GetTransactionsByAccount возвращает журнал бонусных транзакций счёта.
func (r *PostgresRepository) GetTransactionsByAccount(ctx context.Context, userID int64) ([]model.PointsTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, delta, reason, order_id, achievement_id, referral_id, description, created_at
		 FROM points_transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.PointsTransaction
	for rows.Next() {
		var (
			t      model.PointsTransaction
			reason string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Delta, &reason, &t.OrderID, &t.AchievementID, &t.ReferralID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Reason = model.TxReason(reason)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCreditedAchievements возвращает множество достижений, уже зачисленных счёту.
func (r *PostgresRepository) GetCreditedAchievements(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT achievement_id FROM points_transactions
		 WHERE account_id = $1 AND achievement_id IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select credited achievements: %w", err)
	}
	defer rows.Close()

	credited := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan achievement id: %w", err)
		}
		credited[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return credited, nil
}

// touchTime используется для единообразной записи момента операции.
func touchTime() time.Time {
	return time.Now().UTC()
}
