package settlement

import (
	"errors"
	"testing"
	"time"

	"dostavka/internal/models"
)

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}()

// TestComputeSplit verifies the 80/20 business split on a mixed day:
// cash=100, online=200 -> ownerEarned=20, driverEarned=160,
// driverToOwner=20, ownerToDriver=160.
func TestComputeSplit(t *testing.T) {
	split := ComputeSplit(100, 200, DefaultShares)
	if split.OwnerEarned != 20 {
		t.Errorf("OwnerEarned: got %v, want 20", split.OwnerEarned)
	}
	if split.DriverEarned != 160 {
		t.Errorf("DriverEarned: got %v, want 160", split.DriverEarned)
	}
	if split.DriverToOwner != 20 {
		t.Errorf("DriverToOwner: got %v, want 20", split.DriverToOwner)
	}
	if split.OwnerToDriver != 160 {
		t.Errorf("OwnerToDriver: got %v, want 160", split.OwnerToDriver)
	}
}

func TestComputeCollectionDeltas(t *testing.T) {
	// Cash: the driver physically holds the full amount until settlement.
	d, err := ComputeCollectionDeltas(100, "cash", DefaultShares)
	if err != nil {
		t.Fatalf("cash deltas: %v", err)
	}
	if d.Earnings != 100 {
		t.Errorf("cash earnings delta: got %v, want 100", d.Earnings)
	}
	if d.DayOwnerEarned != 20 {
		t.Errorf("cash day owner earned: got %v, want 20", d.DayOwnerEarned)
	}
	if d.DayDriverEarned != 0 {
		t.Errorf("cash day driver earned: got %v, want 0", d.DayDriverEarned)
	}

	// Online: the platform already holds the money, the driver books his share.
	d, err = ComputeCollectionDeltas(200, "online", DefaultShares)
	if err != nil {
		t.Fatalf("online deltas: %v", err)
	}
	if d.Earnings != 160 {
		t.Errorf("online earnings delta: got %v, want 160", d.Earnings)
	}
	if d.DayDriverEarned != 160 {
		t.Errorf("online day driver earned: got %v, want 160", d.DayDriverEarned)
	}
}

func TestComputeCollectionDeltasRejectsBadInput(t *testing.T) {
	if _, err := ComputeCollectionDeltas(100, "card", DefaultShares); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown method: got %v, want ErrValidation", err)
	}
	if _, err := ComputeCollectionDeltas(0, "cash", DefaultShares); !errors.Is(err, ErrValidation) {
		t.Errorf("zero amount: got %v, want ErrValidation", err)
	}
	if _, err := ComputeCollectionDeltas(-5, "online", DefaultShares); !errors.Is(err, ErrValidation) {
		t.Errorf("negative amount: got %v, want ErrValidation", err)
	}
}

func TestCloseDay(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)
	bucket := models.CurrentDaySettlement{
		CashCollected:   100,
		OnlineCollected: 200,
		LastUpdated:     time.Date(2026, 3, 10, 18, 30, 0, 0, testLoc),
	}

	s, ok := CloseDay(bucket, day, testLoc, DefaultShares)
	if !ok {
		t.Fatal("CloseDay should produce a settlement for an active day")
	}
	if !s.ReportDate.Equal(day) {
		t.Errorf("report date: got %v, want %v", s.ReportDate, day)
	}
	if s.Status != "pending" {
		t.Errorf("status: got %q, want pending", s.Status)
	}
	if s.CashCollected != 100 || s.OnlineCollected != 200 {
		t.Errorf("snapshot: got cash=%v online=%v, want 100/200", s.CashCollected, s.OnlineCollected)
	}
	if s.DriverToOwner != 20 || s.OwnerToDriver != 160 {
		t.Errorf("debts: got driverToOwner=%v ownerToDriver=%v, want 20/160", s.DriverToOwner, s.OwnerToDriver)
	}
}

func TestCloseDaySkipsForeignOrEmptyBucket(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)

	// Bucket last touched on a different day: not this day's money.
	bucket := models.CurrentDaySettlement{
		CashCollected: 50,
		LastUpdated:   time.Date(2026, 3, 12, 9, 0, 0, 0, testLoc),
	}
	if _, ok := CloseDay(bucket, day, testLoc, DefaultShares); ok {
		t.Error("CloseDay should skip a bucket belonging to another day")
	}

	// No activity at all.
	empty := models.CurrentDaySettlement{LastUpdated: day}
	if _, ok := CloseDay(empty, day, testLoc, DefaultShares); ok {
		t.Error("CloseDay should skip an empty bucket")
	}
}

func TestAmountDue(t *testing.T) {
	// Cash-heavy day: the driver owes the owner.
	s := models.PaymentSettlement{DriverToOwner: 20, OwnerToDriver: 160}
	if got := AmountDue(s); got != 20 {
		t.Errorf("mixed day amount due: got %v, want 20 (driver pays cash share first)", got)
	}

	// Pure online day: the owner owes the driver.
	s = models.PaymentSettlement{DriverToOwner: 0, OwnerToDriver: 160}
	if got := AmountDue(s); got != 160 {
		t.Errorf("online day amount due: got %v, want 160", got)
	}
}

// TestEarningsInvariantFullDayCycle walks one full day through the pure layer:
// record cash=100 (+100), record online=200 (+160), close the day, then apply
// the gateway reconciliation (-driverToOwner, +ownerToDriver).
// Net earnings change must be exactly 100+160-20+160 = 400.
func TestEarningsInvariantFullDayCycle(t *testing.T) {
	earnings := 0.0

	d1, err := ComputeCollectionDeltas(100, "cash", DefaultShares)
	if err != nil {
		t.Fatalf("cash: %v", err)
	}
	earnings += d1.Earnings

	d2, err := ComputeCollectionDeltas(200, "online", DefaultShares)
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	earnings += d2.Earnings

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)
	bucket := models.CurrentDaySettlement{
		CashCollected:   100,
		OnlineCollected: 200,
		DriverEarned:    d2.DayDriverEarned,
		OwnerEarned:     d1.DayOwnerEarned,
		LastUpdated:     time.Date(2026, 3, 10, 20, 0, 0, 0, testLoc),
	}
	s, ok := CloseDay(bucket, day, testLoc, DefaultShares)
	if !ok {
		t.Fatal("CloseDay should close the active day")
	}

	// Gateway-verified finalization reconciles both directions.
	earnings -= s.DriverToOwner
	earnings += s.OwnerToDriver

	if earnings != 400 {
		t.Errorf("earnings after full cycle: got %v, want 400", earnings)
	}
}

func TestParseSettlementIDs(t *testing.T) {
	valid, invalid, err := ParseSettlementIDs([]string{"3", "1", "abc", "3", "-7", "42"})
	if err != nil {
		t.Fatalf("ParseSettlementIDs: %v", err)
	}
	if len(valid) != 3 || valid[0] != 3 || valid[1] != 1 || valid[2] != 42 {
		t.Errorf("valid ids: got %v, want [3 1 42]", valid)
	}
	if len(invalid) != 2 {
		t.Errorf("invalid ids: got %v, want [abc -7]", invalid)
	}
}

func TestParseSettlementIDsRejectsEmptyAndOversized(t *testing.T) {
	if _, _, err := ParseSettlementIDs(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty list: got %v, want ErrValidation", err)
	}

	big := make([]string, 201)
	for i := range big {
		big[i] = "1"
	}
	if _, _, err := ParseSettlementIDs(big); !errors.Is(err, ErrValidation) {
		t.Errorf("oversized list: got %v, want ErrValidation", err)
	}
}
