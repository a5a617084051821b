// Package tier содержит таблицу уровней лояльности и логику определения уровня.
package tier

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrEmptyTable возвращается при валидации пустой таблицы уровней.
var (
	ErrEmptyTable = errors.New("tier table is empty")
	// ErrBadBaseTier возвращается, если нижний уровень не начинается с нуля баллов.
	ErrBadBaseTier = errors.New("base tier must start at 0 points")
)

// Definition описывает один уровень лояльности.
// MaxPoints равен nil для верхнего, неограниченного уровня.
type Definition struct {
	Name         string          `json:"name"`
	MinPoints    int64           `json:"min_points"`
	MaxPoints    *int64          `json:"max_points,omitempty"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Benefits     []string        `json:"benefits"`
}

// Table — упорядоченный по возрастанию MinPoints список уровней.
type Table []Definition

// Validate проверяет инварианты таблицы: сортировка по возрастанию,
// нижний уровень с нуля, отсутствие разрывов и пересечений.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	if t[0].MinPoints != 0 {
		return ErrBadBaseTier
	}
	for i, d := range t {
		if d.Name == "" {
			return fmt.Errorf("tier %d has empty name", i)
		}
		if d.DiscountRate.IsNegative() || d.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("tier %q discount rate out of range", d.Name)
		}
		last := i == len(t)-1
		if last {
			if d.MaxPoints != nil {
				return fmt.Errorf("top tier %q must be unbounded", d.Name)
			}
			continue
		}
		if d.MaxPoints == nil {
			return fmt.Errorf("tier %q must be bounded", d.Name)
		}
		if *d.MaxPoints < d.MinPoints {
			return fmt.Errorf("tier %q has inverted bounds", d.Name)
		}
		if t[i+1].MinPoints != *d.MaxPoints {
			return fmt.Errorf("gap or overlap between tiers %q and %q", d.Name, t[i+1].Name)
		}
	}
	return nil
}

// Default возвращает таблицу уровней по умолчанию, применяемую при
// отсутствии или некорректности настроек в хранилище.
func Default() Table {
	silverMax := int64(1500)
	bronzeMax := int64(500)
	return Table{
		{
			Name:         "Bronze",
			MinPoints:    0,
			MaxPoints:    &bronzeMax,
			DiscountRate: decimal.Zero,
			Benefits:     []string{"Accès au programme de fidélité"},
		},
		{
			Name:         "Argent",
			MinPoints:    500,
			MaxPoints:    &silverMax,
			DiscountRate: decimal.NewFromFloat(0.05),
			Benefits:     []string{"5% de remise", "Offres exclusives"},
		},
		{
			Name:         "Or",
			MinPoints:    1500,
			DiscountRate: decimal.NewFromFloat(0.10),
			Benefits:     []string{"10% de remise", "Livraison gratuite", "Accès prioritaire aux nouveautés"},
		},
	}
}

// Resolve возвращает уровень для указанного количества баллов: верхний из
// уровней с MinPoints <= points. Отрицательные баллы не являются корректным
// входом домена, но не приводят к ошибке — возвращается нижний уровень.
func Resolve(points int64, table Table) Definition {
	for i := len(table) - 1; i >= 0; i-- {
		if table[i].MinPoints <= points {
			return table[i]
		}
	}
	return table[0]
}

// Progress описывает продвижение к следующему уровню.
type Progress struct {
	NextName     *string
	PointsNeeded int64
	Percent      float64
}

// NextProgress вычисляет продвижение к следующему уровню. Для верхнего
// уровня возвращает nil в NextName и 100%. Вырожденный диапазон
// (равные MinPoints) трактуется как 100% без деления на ноль.
func NextProgress(points int64, table Table) Progress {
	current := Resolve(points, table)

	idx := -1
	for i, d := range table {
		if d.Name == current.Name && d.MinPoints == current.MinPoints {
			idx = i
			break
		}
	}

	if idx < 0 || idx == len(table)-1 {
		return Progress{Percent: 100}
	}

	next := table[idx+1]

	needed := next.MinPoints - points
	if needed < 0 {
		needed = 0
	}

	span := next.MinPoints - current.MinPoints
	if span <= 0 {
		return Progress{NextName: &next.Name, PointsNeeded: needed, Percent: 100}
	}

	percent := float64(points-current.MinPoints) / float64(span) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return Progress{NextName: &next.Name, PointsNeeded: needed, Percent: percent}
}
