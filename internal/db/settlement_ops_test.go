package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"
)

// driverRow builds the 12-column aggregate row returned by the FOR UPDATE
// read. The bucket is empty and the settlement date is current, so the
// in-transaction roller has nothing to close.
func driverRow(userID int64) []driver.Value {
	now := time.Now()
	return []driver.Value{
		userID, 0.0, // user_id, earnings
		0.0, 0.0, // cash/online totals
		0.0, 0.0, 0.0, 0.0, // day bucket
		now, // day_updated_at
		now, // last_settlement_date
		now, now, // created_at, updated_at
	}
}

// settlementRow builds the 16-column settlement row in SELECT order.
func settlementRow(id, driverID int64, status string, driverToOwner, ownerToDriver float64) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, driverID, now, // id, driver_user_id, report_date
		100.0, 200.0, // cash_collected, online_collected
		160.0, 20.0, // driver_earned, owner_earned
		driverToOwner, ownerToDriver,
		status, nil, // status, settled_at
		nil, nil, nil, // gateway correlation fields
		now, now, // created_at, updated_at
	}
}

// TestRecordCollectionSurfacesCommitFailure: a collection that fails to
// commit must come back as an error, never as a recorded payment.
func TestRecordCollectionSurfacesCommitFailure(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{queued(12, driverRow(7))}
	errCommit := errors.New("connection reset during commit")
	c.commitErr = errCommit

	_, err := RecordCollection("drv-1", 100, "cash", sql.NullInt64{})
	if !errors.Is(err, errCommit) {
		t.Fatalf("commit failure not surfaced: got %v, want %v", err, errCommit)
	}
}

func TestRegisterDriverSurfacesCommitFailure(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{queued(1, []driver.Value{int64(7)})} // INSERT ... RETURNING id
	errCommit := errors.New("connection reset during commit")
	c.commitErr = errCommit

	_, err := RegisterDriver("drv-1", "Arun", sql.NullString{}, sql.NullString{})
	if !errors.Is(err, errCommit) {
		t.Fatalf("commit failure not surfaced: got %v, want %v", err, errCommit)
	}
}

func TestFinalizeSettlementViaGatewaySurfacesCommitFailure(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{
		queued(12, driverRow(7)),
		queued(16, settlementRow(11, 7, "pending", 20, 160)),
	}
	errCommit := errors.New("connection reset during commit")
	c.commitErr = errCommit

	_, err := FinalizeSettlementViaGateway("drv-1", 11, "order_1", "pay_1", "sig", 20)
	if !errors.Is(err, errCommit) {
		t.Fatalf("commit failure not surfaced: got %v, want %v", err, errCommit)
	}
}

func TestFinalizeSettlementViaGatewayRejectsAmountMismatch(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{
		queued(12, driverRow(7)),
		queued(16, settlementRow(11, 7, "pending", 20, 160)),
	}

	_, err := FinalizeSettlementViaGateway("drv-1", 11, "order_1", "pay_1", "sig", 999)
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("amount mismatch: got %v, want ErrAmountMismatch", err)
	}
}

// TestSettlePaymentRejectsDoubleSettle: the guarded UPDATE matches nothing,
// the EXISTS recheck confirms the record is already settled, and the second
// finalize fails closed.
func TestSettlePaymentRejectsDoubleSettle(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{
		queued(1, []driver.Value{int64(7)}), // resolve driver
		queued(1, []driver.Value{true}),     // EXISTS recheck
	}
	c.execs = []int64{0} // guarded UPDATE affects no rows

	err := SettlePayment("drv-1", 11)
	if !errors.Is(err, ErrSettlementNotPending) {
		t.Fatalf("double settle: got %v, want ErrSettlementNotPending", err)
	}
}

// TestBulkSettlePaymentsClassifiesOutcomes: of ids {2, 3, 4} the UPDATE
// settles 2, the recheck finds 3 already settled, and 4 is missing.
func TestBulkSettlePaymentsClassifiesOutcomes(t *testing.T) {
	c := setupFakeDB(t)
	c.queries = []fakeResult{
		queued(1, []driver.Value{int64(7)}), // resolve driver
		queued(1, []driver.Value{int64(2)}), // UPDATE ... RETURNING id
		queued(1, []driver.Value{int64(3)}), // already-settled recheck
	}

	res, err := BulkSettlePayments("drv-1", []int64{2, 3, 4})
	if err != nil {
		t.Fatalf("BulkSettlePayments: %v", err)
	}
	if res.Valid != 3 {
		t.Errorf("valid: got %d, want 3", res.Valid)
	}
	if res.Updated != 1 || len(res.UpdatedIDs) != 1 || res.UpdatedIDs[0] != 2 {
		t.Errorf("updated: got %d %v, want 1 [2]", res.Updated, res.UpdatedIDs)
	}
	if res.AlreadySettled != 1 || len(res.SkippedIDs) != 1 || res.SkippedIDs[0] != 3 {
		t.Errorf("already settled: got %d %v, want 1 [3]", res.AlreadySettled, res.SkippedIDs)
	}
	if res.Missing != 1 || len(res.MissingIDs) != 1 || res.MissingIDs[0] != 4 {
		t.Errorf("missing: got %d %v, want 1 [4]", res.Missing, res.MissingIDs)
	}
}

// TestQuerySettlementsSurfacesScanError: a row that fails to scan must fail
// the whole listing instead of being silently dropped from a financial view.
func TestQuerySettlementsSurfacesScanError(t *testing.T) {
	c := setupFakeDB(t)
	bad := settlementRow(0, 7, "pending", 20, 160)
	bad[0] = "not-an-id"
	c.queries = []fakeResult{queued(16, bad)}

	got, err := querySettlements("SELECT 1")
	if err == nil {
		t.Fatal("scan error was swallowed")
	}
	if got != nil {
		t.Errorf("partial listing returned alongside the error: %v", got)
	}
}
