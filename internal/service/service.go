// Package service реализует бизнес-логику движка лояльности и комиссий.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdiomande/fidelite-system/internal/achievement"
	"github.com/kdiomande/fidelite-system/internal/commission"
	"github.com/kdiomande/fidelite-system/internal/model"
	"github.com/kdiomande/fidelite-system/internal/notify"
	"github.com/kdiomande/fidelite-system/internal/payout"
	"github.com/kdiomande/fidelite-system/internal/points"
	"github.com/kdiomande/fidelite-system/internal/referral"
	"github.com/kdiomande/fidelite-system/internal/repository"
	"github.com/kdiomande/fidelite-system/internal/ruleset"
	"github.com/kdiomande/fidelite-system/internal/tier"
	"github.com/kdiomande/fidelite-system/internal/validation"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrderEvent возвращается для события заказа с некорректными полями.
	ErrInvalidOrderEvent = errors.New("invalid order event")
	// ErrBelowMinimum возвращается для заявки на выплату ниже минимального порога.
	ErrBelowMinimum = errors.New("payout amount below minimum threshold")
	// ErrInvalidPayoutMethod возвращается для неподдерживаемого способа выплаты.
	ErrInvalidPayoutMethod = errors.New("unsupported payout method")
	// ErrInvalidAdjustment возвращается для корректировки с нулевой дельтой.
	ErrInvalidAdjustment = errors.New("adjustment delta must be non-zero")
	// ErrUnknownSetting возвращается при попытке записать неизвестную настройку.
	ErrUnknownSetting = errors.New("unknown setting key")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.UserRole) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error

	CreditPurchase(ctx context.Context, customerID int64, orderID string, orderTotal, pts int64) (bool, error)
	CreditAchievement(ctx context.Context, accountID int64, achievementID, title string, reward int64) (bool, error)
	CreateManualAdjustment(ctx context.Context, accountID, delta int64, note string) error
	GetAccount(ctx context.Context, userID int64) (*model.LoyaltyAccount, error)
	GetAccountStats(ctx context.Context, userID int64) (model.AccountStats, error)
	DerivedPoints(ctx context.Context, userID int64) (int64, error)
	GetTransactionsByAccount(ctx context.Context, userID int64) ([]model.PointsTransaction, error)
	GetCreditedAchievements(ctx context.Context, userID int64) (map[string]bool, error)

	CreateCommission(ctx context.Context, c model.Commission) (bool, error)
	MarkCommissionPaid(ctx context.Context, id uuid.UUID) error
	VoidCommission(ctx context.Context, orderID string) (bool, error)
	GetCommissionsByInfluencer(ctx context.Context, influencerID int64) ([]model.Commission, error)
	AvailableBalance(ctx context.Context, influencerID int64) (int64, error)
	CreatePayoutRequest(ctx context.Context, influencerID, amount int64, method, details string) (*model.PayoutRequest, error)
	GetPayoutsByInfluencer(ctx context.Context, influencerID int64) ([]model.PayoutRequest, error)
	ResolvePayout(ctx context.Context, id uuid.UUID, to model.PayoutStatus, note string) (int64, error)

	CreateReferral(ctx context.Context, ref model.Referral) error
	GetReferralsByReferrer(ctx context.Context, referrerID int64) ([]model.Referral, error)
	RedeemReferral(ctx context.Context, code string, redeemerID int64) (*model.Referral, error)
}

// Notifier описывает отправку уведомлений витрине. Может отсутствовать.
type Notifier interface {
	AchievementUnlocked(ctx context.Context, event notify.AchievementUnlockedEvent) error
	PayoutResolved(ctx context.Context, event notify.PayoutResolvedEvent) error
}

// Service содержит бизнес-логику движка лояльности и комиссий.
type Service struct {
	repo     Repository
	rules    *ruleset.Loader
	notifier Notifier
	logger   *zap.Logger
}

// NewService создаёт новый сервис с указанным репозиторием и загрузчиком правил.
func NewService(repo Repository, rules *ruleset.Loader, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		rules:    rules,
		notifier: notifier,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с указанной ролью.
func (s *Service) RegisterUser(ctx context.Context, login, password string, role model.UserRole) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, role)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// OrderOutcome описывает результат обработки события заказа.
type OrderOutcome struct {
	PointsCredited       bool
	Points               int64
	CommissionCreated    bool
	CommissionAmount     int64
	CommissionVoided     bool
	AlreadyRecorded      bool
	UnlockedAchievements []achievement.Definition
}

// ProcessOrderEvent обрабатывает событие смены статуса заказа. Начисления
// выполняет только переход в delivered; переход в cancelled_after_delivery
// аннулирует комиссию. Остальные статусы подтверждаются без действий.
func (s *Service) ProcessOrderEvent(ctx context.Context, evt model.OrderEvent) (*OrderOutcome, error) {
	if !validation.IsValidOrderID(evt.OrderID) {
		return nil, fmt.Errorf("%w: bad order id", ErrInvalidOrderEvent)
	}

	switch evt.Status {
	case model.OrderDelivered:
		return s.processDelivery(ctx, evt)
	case model.OrderCancelledAfterDelivery:
		return s.processCancellation(ctx, evt)
	default:
		return &OrderOutcome{}, nil
	}
}

func (s *Service) processDelivery(ctx context.Context, evt model.OrderEvent) (*OrderOutcome, error) {
	if evt.CustomerID <= 0 || evt.Total <= 0 {
		return nil, fmt.Errorf("%w: bad customer or total", ErrInvalidOrderEvent)
	}

	rules := s.rules.Load(ctx)
	outcome := &OrderOutcome{}

	pts := points.ForAmount(evt.Total, rules.PointsPerUnit)
	credited, err := s.repo.CreditPurchase(ctx, evt.CustomerID, evt.OrderID, evt.Total, pts)
	if err != nil {
		return nil, fmt.Errorf("credit purchase: %w", err)
	}
	outcome.PointsCredited = credited
	outcome.Points = pts
	outcome.AlreadyRecorded = !credited

	if evt.InfluencerID != nil && evt.CommissionRate != nil {
		if !commission.ValidRate(*evt.CommissionRate) {
			return nil, fmt.Errorf("%w: bad commission rate", ErrInvalidOrderEvent)
		}
		c := model.Commission{
			ID:           uuid.New(),
			InfluencerID: *evt.InfluencerID,
			OrderID:      evt.OrderID,
			OrderTotal:   evt.Total,
			Rate:         *evt.CommissionRate,
			Amount:       commission.Amount(evt.Total, *evt.CommissionRate),
		}
		created, err := s.repo.CreateCommission(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create commission: %w", err)
		}
		outcome.CommissionCreated = created
		outcome.CommissionAmount = c.Amount
	}

	unlocked, err := s.runAchievementPass(ctx, evt.CustomerID, rules)
	if err != nil {
		// Начисления за заказ уже зафиксированы; неудача прохода достижений
		// не должна ронять обработку события — проход повторится на
		// следующем событии с тем же результатом.
		s.logger.Error("achievement pass failed", zap.Error(err), zap.Int64("accountID", evt.CustomerID))
	} else {
		outcome.UnlockedAchievements = unlocked
	}

	return outcome, nil
}

func (s *Service) processCancellation(ctx context.Context, evt model.OrderEvent) (*OrderOutcome, error) {
	voided, err := s.repo.VoidCommission(ctx, evt.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrCommissionNotFound) {
			// Заказ без комиссии: аннулировать нечего.
			return &OrderOutcome{}, nil
		}
		return nil, fmt.Errorf("void commission: %w", err)
	}
	return &OrderOutcome{CommissionVoided: voided, AlreadyRecorded: !voided}, nil
}

// runAchievementPass оценивает каталог достижений и зачисляет новые награды.
// Проход идемпотентен: повторный вызов без изменения статистики ничего не
// добавляет, а уникальный индекс страхует от параллельных проходов.
func (s *Service) runAchievementPass(ctx context.Context, accountID int64, rules ruleset.Ruleset) ([]achievement.Definition, error) {
	stats, err := s.repo.GetAccountStats(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account stats: %w", err)
	}

	credited, err := s.repo.GetCreditedAchievements(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get credited achievements: %w", err)
	}

	var unlocked []achievement.Definition
	for _, def := range achievement.Evaluate(stats, credited, rules.Achievements) {
		inserted, err := s.repo.CreditAchievement(ctx, accountID, def.ID, def.Title, def.Reward)
		if err != nil {
			return unlocked, fmt.Errorf("credit achievement %s: %w", def.ID, err)
		}
		if !inserted {
			continue
		}
		unlocked = append(unlocked, def)

		if s.notifier != nil {
			event := notify.AchievementUnlockedEvent{
				AccountID:     accountID,
				AchievementID: def.ID,
				Title:         def.Title,
				Reward:        def.Reward,
			}
			if err := s.notifier.AchievementUnlocked(ctx, event); err != nil {
				s.logger.Warn("achievement notification failed", zap.Error(err), zap.String("achievement", def.ID))
			}
		}
	}

	return unlocked, nil
}

// AccountOverview описывает состояние бонусного счёта с уровнем и прогрессом.
type AccountOverview struct {
	Points     int64
	Spend      int64
	OrderCount int64
	Tier       tier.Definition
	Progress   tier.Progress
}

// GetAccountOverview возвращает баланс, текущий уровень и прогресс счёта.
// Отсутствие счёта не является ошибкой: возвращается нулевой счёт на базовом уровне.
func (s *Service) GetAccountOverview(ctx context.Context, userID int64) (*AccountOverview, error) {
	rules := s.rules.Load(ctx)

	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
		account = &model.LoyaltyAccount{UserID: userID}
	}

	return &AccountOverview{
		Points:     account.Points,
		Spend:      account.Spend,
		OrderCount: account.OrderCount,
		Tier:       tier.Resolve(account.Points, rules.Tiers),
		Progress:   tier.NextProgress(account.Points, rules.Tiers),
	}, nil
}

// GetTransactions возвращает журнал бонусных транзакций пользователя.
func (s *Service) GetTransactions(ctx context.Context, userID int64) ([]model.PointsTransaction, error) {
	return s.repo.GetTransactionsByAccount(ctx, userID)
}

// AchievementState описывает достижение каталога и факт его разблокировки.
type AchievementState struct {
	Definition achievement.Definition
	Unlocked   bool
}

// GetAchievements возвращает каталог достижений с отметками о разблокировке.
func (s *Service) GetAchievements(ctx context.Context, userID int64) ([]AchievementState, error) {
	rules := s.rules.Load(ctx)

	credited, err := s.repo.GetCreditedAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]AchievementState, 0, len(rules.Achievements))
	for _, def := range rules.Achievements {
		res = append(res, AchievementState{Definition: def, Unlocked: credited[def.ID]})
	}
	return res, nil
}

// AccountAudit сопоставляет денормализованный баланс счёта с суммой журнала.
type AccountAudit struct {
	StoredPoints  int64
	DerivedPoints int64
	Consistent    bool
}

// AuditAccount сверяет денормализованный баланс с независимо выведенной
// суммой всех транзакций журнала.
func (s *Service) AuditAccount(ctx context.Context, userID int64) (*AccountAudit, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	derived, err := s.repo.DerivedPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &AccountAudit{
		StoredPoints:  account.Points,
		DerivedPoints: derived,
		Consistent:    account.Points == derived,
	}, nil
}

// AdjustPoints записывает административную корректировку баллов.
func (s *Service) AdjustPoints(ctx context.Context, accountID, delta int64, note string) error {
	if delta == 0 {
		return ErrInvalidAdjustment
	}
	return s.repo.CreateManualAdjustment(ctx, accountID, delta, note)
}

// GenerateReferralCode выпускает новый реферальный код пользователя.
// Коллизия случайного хвоста разрешается повторной генерацией.
func (s *Service) GenerateReferralCode(ctx context.Context, referrerID int64) (*model.Referral, error) {
	rules := s.rules.Load(ctx)

	for attempt := 0; attempt < 3; attempt++ {
		code, err := referral.GenerateCode(referrerID)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		ref := model.Referral{
			ID:          uuid.New(),
			ReferrerID:  referrerID,
			Code:        code,
			Status:      model.ReferralPending,
			BonusPoints: rules.ReferralBonus,
		}

		err = s.repo.CreateReferral(ctx, ref)
		if err == nil {
			return &ref, nil
		}
		if !errors.Is(err, repository.ErrReferralCodeTaken) {
			return nil, err
		}
	}

	return nil, repository.ErrReferralCodeTaken
}

// ListReferralCodes возвращает коды, выпущенные пользователем.
func (s *Service) ListReferralCodes(ctx context.Context, referrerID int64) ([]model.Referral, error) {
	return s.repo.GetReferralsByReferrer(ctx, referrerID)
}

// RedeemReferralCode активирует реферальный код от имени приглашённого.
func (s *Service) RedeemReferralCode(ctx context.Context, code string, redeemerID int64) (*model.Referral, error) {
	if !referral.ValidFormat(code) {
		return nil, repository.ErrReferralInvalid
	}
	return s.repo.RedeemReferral(ctx, code, redeemerID)
}

// AffiliateBalance описывает доступный остаток и право инфлюенсера на выплату.
type AffiliateBalance struct {
	Available  int64
	MinAmount  int64
	CanRequest bool
	Progress   float64
}

// GetAffiliateBalance возвращает остаток комиссий и право на выплату.
func (s *Service) GetAffiliateBalance(ctx context.Context, influencerID int64) (*AffiliateBalance, error) {
	rules := s.rules.Load(ctx)

	available, err := s.repo.AvailableBalance(ctx, influencerID)
	if err != nil {
		return nil, err
	}

	return &AffiliateBalance{
		Available:  available,
		MinAmount:  rules.MinPayoutAmount,
		CanRequest: payout.CanRequest(available, rules.MinPayoutAmount),
		Progress:   payout.Progress(available, rules.MinPayoutAmount),
	}, nil
}

// ListCommissions возвращает комиссии инфлюенсера.
func (s *Service) ListCommissions(ctx context.Context, influencerID int64) ([]model.Commission, error) {
	return s.repo.GetCommissionsByInfluencer(ctx, influencerID)
}

// CreatePayoutRequest создаёт заявку на выплату после проверки порога и
// способа выплаты. Контроль достаточности остатка с учётом других заявок
// выполняет хранилище в одной транзакции.
func (s *Service) CreatePayoutRequest(ctx context.Context, influencerID, amount int64, method, details string) (*model.PayoutRequest, error) {
	if !validation.IsValidPayoutMethod(method) {
		return nil, ErrInvalidPayoutMethod
	}

	rules := s.rules.Load(ctx)
	if amount < rules.MinPayoutAmount {
		return nil, ErrBelowMinimum
	}

	return s.repo.CreatePayoutRequest(ctx, influencerID, amount, method, details)
}

// ListPayouts возвращает заявки инфлюенсера на выплату.
func (s *Service) ListPayouts(ctx context.Context, influencerID int64) ([]model.PayoutRequest, error) {
	return s.repo.GetPayoutsByInfluencer(ctx, influencerID)
}

// ResolvePayout выполняет административное решение по заявке и уведомляет витрину.
func (s *Service) ResolvePayout(ctx context.Context, id uuid.UUID, to model.PayoutStatus, note string) error {
	influencerID, err := s.repo.ResolvePayout(ctx, id, to, note)
	if err != nil {
		return err
	}

	if s.notifier != nil {
		event := notify.PayoutResolvedEvent{
			PayoutID:     id.String(),
			InfluencerID: influencerID,
			Status:       string(to),
		}
		if err := s.notifier.PayoutResolved(ctx, event); err != nil {
			s.logger.Warn("payout notification failed", zap.Error(err), zap.String("payout", id.String()))
		}
	}

	return nil
}

// MarkCommissionPaid отмечает комиссию выплаченной.
func (s *Service) MarkCommissionPaid(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkCommissionPaid(ctx, id)
}

// UpdateSetting сохраняет бизнес-настройку движка. Допустимы только известные ключи.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) error {
	switch key {
	case ruleset.KeyTierTable, ruleset.KeyPointsPerUnit, ruleset.KeyReferralBonus,
		ruleset.KeyAchievements, ruleset.KeyMinPayoutAmount:
	default:
		return ErrUnknownSetting
	}
	return s.repo.SetSetting(ctx, key, value)
}
