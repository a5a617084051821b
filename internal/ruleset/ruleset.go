// Package ruleset содержит горячо перезагружаемую бизнес-конфигурацию движка.
package ruleset

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/kdiomande/fidelite-system/internal/achievement"
	"github.com/kdiomande/fidelite-system/internal/payout"
	"github.com/kdiomande/fidelite-system/internal/points"
	"github.com/kdiomande/fidelite-system/internal/referral"
	"github.com/kdiomande/fidelite-system/internal/tier"
)

// Ключи бизнес-настроек в таблице settings.
const (
	KeyTierTable       = "loyalty.tiers"
	KeyPointsPerUnit   = "loyalty.points_per_unit"
	KeyReferralBonus   = "loyalty.referral_bonus"
	KeyAchievements    = "loyalty.achievements"
	KeyMinPayoutAmount = "payout.min_amount"
)

// Ruleset — провалидированный снимок бизнес-правил, загружаемый один раз
// на запрос и передаваемый параметром в чистые функции движка.
type Ruleset struct {
	Tiers           tier.Table
	PointsPerUnit   int64
	ReferralBonus   int64
	MinPayoutAmount int64
	Achievements    []achievement.Definition
}

// SettingsReader описывает доступ к бизнес-настройкам в хранилище.
type SettingsReader interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// Default возвращает набор правил по умолчанию.
func Default() Ruleset {
	return Ruleset{
		Tiers:           tier.Default(),
		PointsPerUnit:   points.DefaultPerUnit,
		ReferralBonus:   referral.DefaultBonusPoints,
		MinPayoutAmount: payout.DefaultMinAmount,
		Achievements:    achievement.DefaultCatalogue(),
	}
}

// Loader загружает бизнес-правила из хранилища, подставляя значения по
// умолчанию вместо отсутствующих или некорректных настроек. Ошибки
// конфигурации не доходят до вызывающего кода — только в журнал.
type Loader struct {
	settings SettingsReader
	logger   *zap.Logger
}

// NewLoader создаёт загрузчик бизнес-правил.
func NewLoader(settings SettingsReader, logger *zap.Logger) *Loader {
	return &Loader{settings: settings, logger: logger}
}

// Load возвращает снимок бизнес-правил для текущего запроса.
func (l *Loader) Load(ctx context.Context) Ruleset {
	rs := Default()

	if l == nil || l.settings == nil {
		return rs
	}

	values, err := l.settings.GetSettings(ctx)
	if err != nil {
		l.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		return rs
	}

	if raw, ok := values[KeyTierTable]; ok {
		var table tier.Table
		if err := json.Unmarshal([]byte(raw), &table); err != nil {
			l.logger.Warn("malformed tier table setting, using default", zap.Error(err))
		} else if err := table.Validate(); err != nil {
			l.logger.Warn("invalid tier table setting, using default", zap.Error(err))
		} else {
			rs.Tiers = table
		}
	}

	if raw, ok := values[KeyPointsPerUnit]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err != nil || v <= 0 {
			l.logger.Warn("invalid points_per_unit setting, using default", zap.String("value", raw))
		} else {
			rs.PointsPerUnit = v
		}
	}

	if raw, ok := values[KeyReferralBonus]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err != nil || v < 0 {
			l.logger.Warn("invalid referral_bonus setting, using default", zap.String("value", raw))
		} else {
			rs.ReferralBonus = v
		}
	}

	if raw, ok := values[KeyMinPayoutAmount]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err != nil || v <= 0 {
			l.logger.Warn("invalid min payout setting, using default", zap.String("value", raw))
		} else {
			rs.MinPayoutAmount = v
		}
	}

	if raw, ok := values[KeyAchievements]; ok {
		var defs []achievement.Definition
		if err := json.Unmarshal([]byte(raw), &defs); err != nil {
			l.logger.Warn("malformed achievements setting, using default", zap.Error(err))
		} else {
			valid := defs[:0]
			for _, d := range defs {
				if d.Valid() {
					valid = append(valid, d)
				} else {
					l.logger.Warn("skipping invalid achievement definition", zap.String("id", d.ID))
				}
			}
			if len(valid) > 0 {
				rs.Achievements = valid
			}
		}
	}

	return rs
}
