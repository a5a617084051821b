package tier

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testTable(t *testing.T) Table {
	t.Helper()

	table := Default()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table must be valid: %v", err)
	}
	return table
}

func TestResolve(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name   string
		points int64
		want   string
	}{
		{name: "zero points", points: 0, want: "Bronze"},
		{name: "negative points clamp to base", points: -50, want: "Bronze"},
		{name: "upper edge of base tier", points: 499, want: "Bronze"},
		{name: "lower edge of second tier", points: 500, want: "Argent"},
		{name: "inside second tier", points: 1499, want: "Argent"},
		{name: "top tier", points: 1500, want: "Or"},
		{name: "far beyond top tier", points: 1_000_000, want: "Or"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.points, table)
			if got.Name != tt.want {
				t.Fatalf("Resolve(%d) = %s, want %s", tt.points, got.Name, tt.want)
			}
		})
	}
}

func TestResolveMaximality(t *testing.T) {
	table := testTable(t)

	// Для каждого количества баллов выбранный уровень единственный:
	// его MinPoints <= points и нет более высокого уровня с тем же свойством.
	for points := int64(0); points <= 2000; points += 7 {
		got := Resolve(points, table)
		if got.MinPoints > points {
			t.Fatalf("Resolve(%d) returned tier with MinPoints %d", points, got.MinPoints)
		}
		for _, d := range table {
			if d.MinPoints <= points && d.MinPoints > got.MinPoints {
				t.Fatalf("Resolve(%d) = %s, but %s also satisfies MinPoints <= points", points, got.Name, d.Name)
			}
		}
	}
}

func TestNextProgress(t *testing.T) {
	table := testTable(t)

	t.Run("mid second tier", func(t *testing.T) {
		// Сценарий: 520 баллов, уровень Argent, до Or нужно 980, прогресс 2%.
		p := NextProgress(520, table)
		if p.NextName == nil || *p.NextName != "Or" {
			t.Fatalf("NextName = %v, want Or", p.NextName)
		}
		if p.PointsNeeded != 980 {
			t.Fatalf("PointsNeeded = %d, want 980", p.PointsNeeded)
		}
		if p.Percent != 2.0 {
			t.Fatalf("Percent = %v, want 2.0", p.Percent)
		}
	})

	t.Run("top tier", func(t *testing.T) {
		p := NextProgress(5000, table)
		if p.NextName != nil {
			t.Fatalf("NextName = %v, want nil for top tier", *p.NextName)
		}
		if p.Percent != 100 {
			t.Fatalf("Percent = %v, want 100", p.Percent)
		}
	})

	t.Run("negative points", func(t *testing.T) {
		p := NextProgress(-10, table)
		if p.Percent != 0 {
			t.Fatalf("Percent = %v, want 0", p.Percent)
		}
		if p.PointsNeeded != 510 {
			t.Fatalf("PointsNeeded = %d, want 510", p.PointsNeeded)
		}
	})

	t.Run("degenerate range", func(t *testing.T) {
		degenerate := Table{
			{Name: "A", MinPoints: 0, MaxPoints: ptr(int64(0)), DiscountRate: decimal.Zero},
			{Name: "B", MinPoints: 0, DiscountRate: decimal.Zero},
		}
		p := NextProgress(0, degenerate)
		if p.Percent != 100 {
			t.Fatalf("Percent = %v, want 100 for degenerate range", p.Percent)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
	}{
		{name: "empty", table: Table{}},
		{
			name: "base tier not at zero",
			table: Table{
				{Name: "A", MinPoints: 100, DiscountRate: decimal.Zero},
			},
		},
		{
			name: "gap between tiers",
			table: Table{
				{Name: "A", MinPoints: 0, MaxPoints: ptr(int64(100)), DiscountRate: decimal.Zero},
				{Name: "B", MinPoints: 200, DiscountRate: decimal.Zero},
			},
		},
		{
			name: "overlap between tiers",
			table: Table{
				{Name: "A", MinPoints: 0, MaxPoints: ptr(int64(300)), DiscountRate: decimal.Zero},
				{Name: "B", MinPoints: 200, DiscountRate: decimal.Zero},
			},
		},
		{
			name: "bounded top tier",
			table: Table{
				{Name: "A", MinPoints: 0, MaxPoints: ptr(int64(100)), DiscountRate: decimal.Zero},
				{Name: "B", MinPoints: 100, MaxPoints: ptr(int64(200)), DiscountRate: decimal.Zero},
			},
		},
		{
			name: "discount above one",
			table: Table{
				{Name: "A", MinPoints: 0, DiscountRate: decimal.NewFromInt(2)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.table.Validate(); err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
