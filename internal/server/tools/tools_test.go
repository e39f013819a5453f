package tools

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/config"
	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger          { return n }

type nopSender struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *nopSender) Send(context.Context, string, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.err
}

type harness struct {
	store *repotest.Store
	reg   *Registry
	prom  *prometheus.Registry
	mail  *nopSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newHarnessWithDB(t, db)
}

func newHarnessWithDB(t *testing.T, db *sql.DB) *harness {
	t.Helper()
	store := repotest.NewStore()
	rm := store.Manager()
	tokens := auth.NewTokenService("k", time.Hour)
	passwords := &auth.PasswordPolicy{Cost: bcrypt.MinCost}
	mail := &nopSender{}
	prom := prometheus.NewRegistry()

	svc := Services{
		Gate:       services.NewGate(db, rm, tokens),
		Users:      services.NewUserService(db, rm, tokens, passwords),
		Challenges: services.NewChallengeService(db, rm, passwords, mail, nopLogger{}),
		Records:    services.NewRecordService(rm),
		Reports:    services.NewReportService(rm),
		Exports:    services.NewExportService(rm, &config.Config{}),
	}

	return &harness{store: store, reg: New(svc, nopLogger{}, prom), prom: prom, mail: mail}
}

func (h *harness) call(t *testing.T, name string, args Args) envelope.Envelope {
	t.Helper()
	env, err := h.reg.Call(context.Background(), name, args)
	require.NoError(t, err)
	return env
}

func (h *harness) result(t *testing.T, env envelope.Envelope) map[string]any {
	t.Helper()
	m, err := env.ToMap()
	require.NoError(t, err)
	return m["result"].(map[string]any)
}

// verifiedUser registers a user and verifies the email straight in the store.
func (h *harness) verifiedUser(t *testing.T, name string) (token, id string) {
	t.Helper()
	env := h.call(t, "register", Args{
		"username": name, "email": name + "@x.com", "password": "Passw0rd1", "full_name": name,
	})
	require.Equal(t, envelope.StatusSuccess, env.Status(), env.Message())
	token = env.Result["token"].(string)
	id = env.Result["user_id"].(string)

	require.Equal(t, envelope.StatusSuccess, h.call(t, "send_verification_code", Args{"token": token}).Status())
	code := h.store.Challenge(id, models.PurposeVerifyEmail).Code
	require.Equal(t, envelope.StatusSuccess, h.call(t, "verify_email", Args{"code": code}).Status())
	return token, id
}

func TestRegistry_AllToolsRegistered(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, []string{
		"add_record", "bulk_add_records", "bulk_delete_records", "bulk_update_records",
		"change_password", "delete_record", "export_records", "forgot_password",
		"get_balance", "get_monthly_report", "get_summary", "get_top_records", "get_totals",
		"list_records", "list_records_between", "login", "register", "reset_password",
		"send_verification_code", "update_record", "verify_email", "verify_token",
	}, h.reg.Names())
}

func TestRegistry_UnknownTool(t *testing.T) {
	h := newHarness(t)
	_, err := h.reg.Call(context.Background(), "drop_tables", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.False(t, h.reg.Has("drop_tables"))
}

func TestRegistry_PanicBecomesErrorEnvelope(t *testing.T) {
	h := newHarness(t)
	h.reg.Register("boom", func(context.Context, Args) (envelope.Envelope, error) {
		panic("kaput")
	})

	env := h.call(t, "boom", nil)
	assert.Equal(t, envelope.StatusError, env.Status())
	assert.Equal(t, "internal error", env.Message())
}

func TestRegistry_HandlerErrorUsesPublicMessage(t *testing.T) {
	h := newHarness(t)
	h.reg.Register("leaky", func(context.Context, Args) (envelope.Envelope, error) {
		return envelope.Envelope{}, errors.New("pq: password authentication failed for user postgres")
	})

	env := h.call(t, "leaky", nil)
	assert.Equal(t, "internal error", env.Message())
}

func TestRegistry_CountsCalls(t *testing.T) {
	h := newHarness(t)
	h.call(t, "verify_token", Args{"token": "bad"})
	h.call(t, "verify_token", Args{"token": "bad"})

	mfs, err := h.prom.Gather()
	require.NoError(t, err)

	var got float64
	for _, mf := range mfs {
		if mf.GetName() != "ledgerd_tool_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["tool"] == "verify_token" && labels["status"] == "error" {
				got = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), got)
}

func TestRegister_MissingAndBadArguments(t *testing.T) {
	h := newHarness(t)

	env := h.call(t, "register", Args{"username": "alice"})
	assert.Equal(t, "missing required arguments: email, password", env.Message())

	env = h.call(t, "register", Args{"username": 42, "email": "a@x.com", "password": "Passw0rd1"})
	assert.Equal(t, envelope.StatusError, env.Status())
	assert.Contains(t, env.Message(), "invalid arguments")
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	env := h.call(t, "register", Args{"username": "alice", "email": "a@x.com", "password": "Passw0rd1", "full_name": "Alice"})
	require.Equal(t, envelope.StatusSuccess, env.Status())
	assert.Equal(t, "User registered successfully", env.Message())
	token := env.Result["token"].(string)

	env = h.call(t, "register", Args{"username": "alice", "email": "z@x.com", "password": "Passw0rd1"})
	assert.Equal(t, "username already exists", env.Message())

	env = h.call(t, "login", Args{"username": "alice", "password": "nope"})
	assert.Equal(t, "invalid username or password", env.Message())

	env = h.call(t, "verify_token", Args{"token": token})
	assert.Equal(t, "Token is valid", env.Message())
	assert.Equal(t, "alice", env.Result["username"])

	env = h.call(t, "add_record", Args{"token": token, "amount": 100, "category": "food", "kind": "expense"})
	assert.Equal(t, "email address needs to be verified first", env.Message())
	assert.Zero(t, h.store.RecordCount())

	env = h.call(t, "verify_email", Args{"code": "000000"})
	assert.Equal(t, "invalid code", env.Message())

	env = h.call(t, "forgot_password", Args{"email": "nobody@x.com"})
	assert.Equal(t, envelope.StatusSuccess, env.Status())
	assert.Equal(t, "If this email exists, a reset code has been sent", env.Message())

	env = h.call(t, "change_password", Args{"token": token, "old_password": "Passw0rd1", "new_password": "N3wPassword"})
	assert.Equal(t, "Password changed successfully", env.Message())

	env = h.call(t, "login", Args{"username": "alice", "password": "N3wPassword"})
	assert.Equal(t, envelope.StatusSuccess, env.Status())
}

func TestSendVerificationCode_MailFailure(t *testing.T) {
	h := newHarness(t)
	env := h.call(t, "register", Args{"username": "alice", "email": "a@x.com", "password": "Passw0rd1"})
	token := env.Result["token"].(string)
	id := env.Result["user_id"].(string)

	h.mail.err = errors.New("dial tcp: timeout")
	env = h.call(t, "send_verification_code", Args{"token": token})
	assert.Equal(t, "failed to send email", env.Message())
	assert.NotNil(t, h.store.Challenge(id, models.PurposeVerifyEmail))
}

func TestRecordsAndBalance(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	env := h.call(t, "send_verification_code", Args{"token": token})
	assert.Equal(t, "Email already verified", env.Message())

	env = h.call(t, "add_record", Args{"token": token, "amount": 100, "category": "Food", "kind": "expense", "occurred_on": "2024-06-03"})
	require.Equal(t, envelope.StatusSuccess, env.Status(), env.Message())
	id := env.Result["record_id"].(string)

	env = h.call(t, "get_balance", Args{"token": token})
	res := h.result(t, env)
	assert.Equal(t, "Balance: -100.00", res["message"])
	assert.Equal(t, -100.0, res["summary"].(map[string]any)["net_balance"])

	env = h.call(t, "update_record", Args{"token": token, "record_id": id})
	assert.Equal(t, "no fields to update", env.Message())

	env = h.call(t, "update_record", Args{"token": token, "record_id": id, "amount": "25.5"})
	assert.Equal(t, "Record updated successfully", env.Message())

	env = h.call(t, "list_records", Args{"token": token})
	res = h.result(t, env)
	recs := res["records"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, 25.5, recs[0].(map[string]any)["amount"])
	assert.Equal(t, "food", recs[0].(map[string]any)["category"])

	env = h.call(t, "delete_record", Args{"token": token, "record_id": id})
	assert.Equal(t, "Record deleted successfully", env.Message())
	env = h.call(t, "delete_record", Args{"token": token, "record_id": id})
	assert.Equal(t, "not found", env.Message())
}

func TestBulkTools(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	env := h.call(t, "bulk_add_records", Args{"token": token, "records": []any{
		map[string]any{"amount": 10, "category": "food", "kind": "expense"},
		map[string]any{"amount": 10, "category": "food", "kind": "gift"},
	}})
	res := h.result(t, env)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "Added 1 records, 1 failed", res["message"])
	assert.Equal(t, float64(1), res["success_count"])
	assert.Equal(t, []any{"record 2: invalid kind, use: expense, credit"}, res["errors"])

	env = h.call(t, "bulk_delete_records", Args{"token": token, "record_ids": []any{"00000000-0000-0000-0000-000000000999"}})
	res = h.result(t, env)
	assert.Equal(t, "error", res["status"])
	assert.Equal(t, "Deleted 0 records, 1 failed", res["message"])

	env = h.call(t, "bulk_update_records", Args{"token": token, "records": []any{}})
	assert.Equal(t, "no records provided", env.Message())

	env = h.call(t, "bulk_add_records", Args{"token": token, "records": []any{
		map[string]any{"amount": 1, "category": "a", "kind": "credit"},
	}})
	res = h.result(t, env)
	assert.Nil(t, res["errors"])
}

func TestBulkTools_MalformedItemFailsAlone(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	env := h.call(t, "bulk_add_records", Args{"token": token, "records": []any{
		map[string]any{"amount": "abc", "category": "food", "kind": "expense"},
		map[string]any{"amount": 10, "category": "food", "kind": "expense"},
		"not a record",
	}})
	res := h.result(t, env)
	assert.Equal(t, "Added 1 records, 2 failed", res["message"])
	assert.Equal(t, float64(1), res["success_count"])
	assert.Equal(t, float64(2), res["failed_count"])
	errs, ok := res["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "record 1: invalid record:")
	assert.Contains(t, errs[1], "record 3: invalid record:")
	assert.Equal(t, 1, h.store.RecordCount())

	env = h.call(t, "bulk_update_records", Args{"token": token, "records": []any{
		map[string]any{"record_id": 5, "category": "x"},
	}})
	res = h.result(t, env)
	assert.Equal(t, "Updated 0 records, 1 failed", res["message"])

	env = h.call(t, "bulk_delete_records", Args{"token": token, "record_ids": []any{"x", 5}})
	res = h.result(t, env)
	assert.Equal(t, "Deleted 0 records, 2 failed", res["message"])
	assert.Equal(t, []any{
		"record 1: not found or not owned by user",
		"record 2: invalid record_id",
	}, res["errors"])
}

func TestAddRecord_AmountRoundingToZero(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	env := h.call(t, "add_record", Args{"token": token, "amount": 0.004, "category": "food", "kind": "expense"})
	assert.Equal(t, envelope.StatusError, env.Status())
	assert.Equal(t, "amount must be greater than 0", env.Message())
	assert.Zero(t, h.store.RecordCount())
}

func TestGatedTools_TokenCheckedBeforeArguments(t *testing.T) {
	h := newHarness(t)

	for _, name := range []string{"update_record", "delete_record", "change_password"} {
		t.Run(name, func(t *testing.T) {
			env := h.call(t, name, Args{"token": "bad"})
			assert.Equal(t, "invalid or expired token", env.Message())
		})
	}

	token, _ := h.verifiedUser(t, "alice")
	env := h.call(t, "update_record", Args{"token": token})
	assert.Equal(t, "missing required arguments: record_id", env.Message())
}

func TestReportTools(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	for _, a := range []Args{
		{"amount": 100, "category": "food", "kind": "expense", "occurred_on": "2024-06-03"},
		{"amount": 40.5, "category": "travel", "kind": "expense", "occurred_on": "2024-06-20"},
		{"amount": 1000, "category": "salary", "kind": "credit", "occurred_on": "2024-06-01"},
	} {
		a["token"] = token
		require.Equal(t, envelope.StatusSuccess, h.call(t, "add_record", a).Status())
	}

	env := h.call(t, "list_records_between", Args{"token": token, "start_date": "2023-01-01", "end_date": "2023-01-31"})
	assert.Equal(t, "No records in given dates", env.Message())

	env = h.call(t, "list_records_between", Args{"token": token, "start_date": "2024-06-01"})
	assert.Equal(t, "missing required arguments: end_date", env.Message())

	env = h.call(t, "get_totals", Args{"token": token})
	assert.Equal(t, "get_totals needs at least one filter; use get_balance for the overall balance", env.Message())

	res := h.result(t, h.call(t, "get_totals", Args{"token": token, "start_date": "2024-06-01"}))
	assert.Equal(t, 140.5, res["expense"])
	assert.Equal(t, 859.5, res["balance"])

	res = h.result(t, h.call(t, "get_top_records", Args{"token": token}))
	assert.Len(t, res["expenses"], 2)
	assert.Len(t, res["credits"], 1)

	res = h.result(t, h.call(t, "get_summary", Args{"token": token, "kind": "expense"}))
	summary := res["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["count"])
	assert.Equal(t, 70.25, summary["average"])
	assert.Equal(t, map[string]any{"food": 100.0, "travel": 40.5}, summary["category_breakdown"])

	res = h.result(t, h.call(t, "get_monthly_report", Args{"token": token, "year": "2024", "month": 6}))
	assert.Equal(t, "June", res["month"])
	assert.Equal(t, "Monthly report for June 2024: 2 expenses totaling 140.50 and 1 credits totaling 1000.00", res["message"])

	env = h.call(t, "get_monthly_report", Args{"token": token, "year": 2024})
	assert.Equal(t, "missing required arguments: month", env.Message())

	env = h.call(t, "get_summary", Args{"token": token, "start_date": "June 1"})
	assert.Equal(t, `invalid date "June 1", expected YYYY-MM-DD`, env.Message())

	env = h.call(t, "export_records", Args{"token": token})
	assert.Equal(t, "exports are not configured", env.Message())
}

func TestTokenFromContext(t *testing.T) {
	h := newHarness(t)
	token, _ := h.verifiedUser(t, "alice")

	env, err := h.reg.Call(WithToken(context.Background(), token), "get_balance", Args{})
	require.NoError(t, err)
	assert.Equal(t, envelope.StatusSuccess, env.Status())

	env, err = h.reg.Call(WithToken(context.Background(), token), "get_balance", Args{"token": "explicit-bad"})
	require.NoError(t, err)
	assert.Equal(t, "invalid or expired token", env.Message())
}
