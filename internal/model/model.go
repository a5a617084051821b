// Package model содержит доменные сущности движка лояльности и комиссий.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRole описывает роль пользователя системы.
type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleInfluencer UserRole = "influencer"
	RoleAdmin      UserRole = "admin"
)

// User представляет зарегистрированного пользователя: покупателя, инфлюенсера или администратора.
type User struct {
	ID             int64
	Login          string
	PasswordHash   []byte
	Role           UserRole
	CommissionRate decimal.Decimal
	CreatedAt      time.Time
}

// LoyaltyAccount содержит агрегаты бонусного счёта покупателя.
// Поле Points всегда равно сумме дельт всех транзакций счёта.
type LoyaltyAccount struct {
	UserID     int64
	Points     int64
	Spend      int64
	OrderCount int64
	CreatedAt  time.Time
}

// TxReason описывает причину начисления или списания баллов.
type TxReason string

const (
	ReasonEarnedPurchase    TxReason = "earned-purchase"
	ReasonEarnedReferral    TxReason = "earned-referral"
	ReasonEarnedAchievement TxReason = "earned-achievement"
	ReasonManualAdjustment  TxReason = "manual-adjustment"
)

// PointsTransaction описывает одну запись бонусного журнала. Журнал только пополняется.
type PointsTransaction struct {
	ID            uuid.UUID
	AccountID     int64
	Delta         int64
	Reason        TxReason
	OrderID       *string
	AchievementID *string
	ReferralID    *uuid.UUID
	Description   string
	CreatedAt     time.Time
}

// CommissionStatus описывает состояние комиссии инфлюенсера.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
	CommissionVoided  CommissionStatus = "voided"
)

// Commission описывает комиссию за один доставленный заказ.
// Ставка фиксируется в момент оформления заказа и не пересчитывается задним числом.
type Commission struct {
	ID           uuid.UUID
	InfluencerID int64
	OrderID      string
	OrderTotal   int64
	Rate         decimal.Decimal
	Amount       int64
	Status       CommissionStatus
	PaidAt       *time.Time
	CreatedAt    time.Time
}

// PayoutStatus описывает состояние заявки на выплату.
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutApproved PayoutStatus = "approved"
	PayoutRejected PayoutStatus = "rejected"
	PayoutPaid     PayoutStatus = "paid"
)

// PayoutRequest описывает заявку инфлюенсера на выплату накопленных комиссий.
// Сумма фиксируется при создании и не пересчитывается.
type PayoutRequest struct {
	ID            uuid.UUID
	InfluencerID  int64
	Amount        int64
	Method        string
	MethodDetails string
	Status        PayoutStatus
	AdminNote     string
	RequestedAt   time.Time
	ResolvedAt    *time.Time
}

// ReferralStatus описывает состояние реферального кода.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
	ReferralExpired   ReferralStatus = "expired"
)

// Referral описывает реферальный код и факт его использования.
// Переход pending -> completed происходит ровно один раз.
type Referral struct {
	ID          uuid.UUID
	ReferrerID  int64
	ReferredID  *int64
	Code        string
	Status      ReferralStatus
	BonusPoints int64
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// AccountStats содержит агрегированную статистику счёта для оценки достижений.
type AccountStats struct {
	Points        int64
	OrderCount    int64
	Spend         int64
	ReferralCount int64
}

// OrderStatus описывает статус заказа во входящем событии магазина.
type OrderStatus string

const (
	OrderDelivered              OrderStatus = "delivered"
	OrderCancelledAfterDelivery OrderStatus = "cancelled_after_delivery"
)

// OrderEvent описывает событие смены статуса заказа, поступающее из магазина.
// Ставка комиссии передаётся снимком на момент оформления заказа.
type OrderEvent struct {
	OrderID        string
	Status         OrderStatus
	CustomerID     int64
	Total          int64
	InfluencerID   *int64
	CommissionRate *decimal.Decimal
}
