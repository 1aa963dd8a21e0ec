package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"aftersales_backend/internal/clients/complaints"
	"aftersales_backend/internal/clients/customers"
	"aftersales_backend/internal/events"
	"aftersales_backend/internal/invoices/repository"
	"aftersales_backend/internal/invoices/transport"
	"aftersales_backend/internal/payments"
	"aftersales_backend/platform/apperr"
	"aftersales_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ---------------------------------------------------------------------------
// fakes

type fakeRepo struct {
	invoices       map[uuid.UUID]*repository.Invoice
	byIntervention map[uuid.UUID]uuid.UUID
	snapshots      map[uuid.UUID]*repository.InterventionSnapshot
	counter        int64
	collisions     int
	numberCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invoices:       map[uuid.UUID]*repository.Invoice{},
		byIntervention: map[uuid.UUID]uuid.UUID{},
		snapshots:      map[uuid.UUID]*repository.InterventionSnapshot{},
	}
}

func (f *fakeRepo) NextInvoiceNumber(ctx context.Context, q repository.DBTX, year int) (int64, error) {
	f.numberCalls++
	f.counter++
	return f.counter, nil
}

func (f *fakeRepo) Insert(ctx context.Context, q repository.DBTX, inv *repository.Invoice) error {
	if f.collisions > 0 {
		f.collisions--
		return repository.ErrNumberCollision
	}
	if _, ok := f.byIntervention[inv.InterventionID]; ok {
		return apperr.Conflict("intervention already invoiced")
	}
	copied := *inv
	f.invoices[inv.ID] = &copied
	f.byIntervention[inv.InterventionID] = inv.ID
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeRepo) GetByInterventionID(ctx context.Context, interventionID uuid.UUID) (*repository.Invoice, error) {
	id, ok := f.byIntervention[interventionID]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) ExistsForIntervention(ctx context.Context, interventionID uuid.UUID) (bool, error) {
	_, ok := f.byIntervention[interventionID]
	return ok, nil
}

func (f *fakeRepo) GetInterventionSnapshot(ctx context.Context, interventionID uuid.UUID) (*repository.InterventionSnapshot, error) {
	snap, ok := f.snapshots[interventionID]
	if !ok {
		return nil, apperr.NotFound("intervention not found")
	}
	return snap, nil
}

func (f *fakeRepo) List(ctx context.Context, filters repository.ListFilters) ([]repository.Invoice, error) {
	result := []repository.Invoice{}
	for _, inv := range f.invoices {
		result = append(result, *inv)
	}
	return result, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentDate time.Time, paymentMethod string) error {
	inv, ok := f.invoices[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	if inv.Status != transport.StatusUnpaid {
		return apperr.Conflict("invoice already paid")
	}
	inv.Status = transport.StatusPaid
	inv.PaymentDate = &paymentDate
	inv.PaymentMethod = &paymentMethod
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	inv, ok := f.invoices[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	inv.Status = status
	return nil
}

// fakeTx stands in for a caller-owned transaction. The embedded interface is
// never called because the fake repository ignores the query handle.
type fakeTx struct {
	pgx.Tx
}

type fakeGateway struct {
	created *payments.Intent
	intent  *payments.Intent
	err     error
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &payments.Intent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Status:       "requires_payment_method",
		AmountCents:  amountCents,
		Currency:     currency,
		Metadata:     metadata,
	}
	return f.created, nil
}

func (f *fakeGateway) GetIntent(ctx context.Context, id string) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.intent == nil {
		return nil, apperr.NotFound("payment intent not found")
	}
	return f.intent, nil
}

type fakeComplaints struct{}

func (fakeComplaints) GetComplaint(ctx context.Context, id uuid.UUID) (*complaints.Complaint, error) {
	return &complaints.Complaint{ID: id, CustomerID: uuid.New()}, nil
}

type fakeCustomers struct{}

func (fakeCustomers) GetCustomer(ctx context.Context, id uuid.UUID) (*customers.Customer, error) {
	return &customers.Customer{ID: id, Name: "Marie Lefevre", Email: "marie@example.fr"}, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event)           { b.published = append(b.published, event) }
func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error { b.published = append(b.published, event); return nil }
func (b *recordingBus) Subscribe(eventName string, handler events.Handler)        {}

type fakeInvoicingConfig struct{}

func (fakeInvoicingConfig) GetInvoicePrefix() string               { return "FACT" }
func (fakeInvoicingConfig) GetInvoiceTaxRateBps() int64            { return 2000 }
func (fakeInvoicingConfig) GetDefaultInterventionCostCents() int64 { return 5000 }

type fakeNotifConfig struct{}

func (fakeNotifConfig) GetAppBaseURL() string { return "https://sav.example.fr" }

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	gateway *fakeGateway
	bus     *recordingBus
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newFakeRepo(),
		gateway: &fakeGateway{},
		bus:     &recordingBus{},
	}
	f.svc = New(f.repo, f.gateway, fakeComplaints{}, fakeCustomers{}, f.bus, fakeInvoicingConfig{}, fakeNotifConfig{}, logger.New("test"))
	return f
}

func (f *fixture) seedIntervention(billable bool, cost int64) uuid.UUID {
	id := uuid.New()
	f.repo.snapshots[id] = &repository.InterventionSnapshot{
		ID:          id,
		ComplaintID: uuid.New(),
		Status:      "completed",
		Billable:    billable,
		CostCents:   cost,
	}
	return id
}

func (f *fixture) seedInvoice(t *testing.T, cost int64) *transport.InvoiceResponse {
	t.Helper()
	interventionID := f.seedIntervention(true, cost)
	inv, err := f.svc.CreateForIntervention(context.Background(), interventionID)
	if err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	f.bus.published = nil
	return inv
}

// ---------------------------------------------------------------------------
// creation and numbering

func TestCreateForIntervention_AmountsFromFrozenCost(t *testing.T) {
	f := newFixture()
	interventionID := f.seedIntervention(true, 12000)

	inv, err := f.svc.CreateForIntervention(context.Background(), interventionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.NetCents != 12000 {
		t.Fatalf("expected net 12000, got %d", inv.NetCents)
	}
	if inv.TaxCents != 2400 {
		t.Fatalf("expected tax 2400 at 20%%, got %d", inv.TaxCents)
	}
	if inv.GrossCents != 14400 {
		t.Fatalf("expected gross 14400, got %d", inv.GrossCents)
	}
	if inv.Status != transport.StatusUnpaid {
		t.Fatalf("expected unpaid, got %s", inv.Status)
	}
}

func TestCreateForIntervention_NumberFormat(t *testing.T) {
	f := newFixture()

	first, err := f.svc.CreateForIntervention(context.Background(), f.seedIntervention(true, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.CreateForIntervention(context.Background(), f.seedIntervention(true, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	year := time.Now().Year()
	wantPrefix := "FACT-" + strconv.Itoa(year) + "-"
	if !strings.HasPrefix(first.Number, wantPrefix) || !strings.HasPrefix(second.Number, wantPrefix) {
		t.Fatalf("expected prefix %q, got %q and %q", wantPrefix, first.Number, second.Number)
	}
	if first.Number != wantPrefix+"0001" || second.Number != wantPrefix+"0002" {
		t.Fatalf("expected sequential zero-padded numbers, got %q and %q", first.Number, second.Number)
	}
}

func TestCreateForIntervention_NumberCollision_RetriesOnce(t *testing.T) {
	f := newFixture()
	f.repo.collisions = 1

	inv, err := f.svc.CreateForIntervention(context.Background(), f.seedIntervention(true, 1000))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if f.repo.numberCalls != 2 {
		t.Fatalf("expected 2 number draws, got %d", f.repo.numberCalls)
	}
	if !strings.HasSuffix(inv.Number, "0002") {
		t.Fatalf("expected the retried number, got %q", inv.Number)
	}
}

func TestCreateForIntervention_SecondCollision_Fails(t *testing.T) {
	f := newFixture()
	f.repo.collisions = 2

	_, err := f.svc.CreateForIntervention(context.Background(), f.seedIntervention(true, 1000))
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected Internal after two collisions, got %v", err)
	}
}

func TestIssueForIntervention_CollisionInTransaction_NotRetried(t *testing.T) {
	f := newFixture()
	f.repo.collisions = 1

	// A unique violation aborts the surrounding transaction, so no second
	// number may be drawn on this path.
	_, err := f.svc.IssueForIntervention(context.Background(), fakeTx{}, uuid.New(), 1000)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected Internal on a collision inside a transaction, got %v", err)
	}
	if f.repo.numberCalls != 1 {
		t.Fatalf("expected a single number draw, got %d", f.repo.numberCalls)
	}
}

func TestCreateForIntervention_AlreadyInvoiced_IsConflict(t *testing.T) {
	f := newFixture()
	interventionID := f.seedIntervention(true, 1000)

	if _, err := f.svc.CreateForIntervention(context.Background(), interventionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.CreateForIntervention(context.Background(), interventionID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCreateForIntervention_NonBillable_IsConflict(t *testing.T) {
	f := newFixture()
	interventionID := f.seedIntervention(false, 0)

	_, err := f.svc.CreateForIntervention(context.Background(), interventionID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCreateForIntervention_PublishesInvoiceCreated(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateForIntervention(context.Background(), f.seedIntervention(true, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.bus.published))
	}
	if _, ok := f.bus.published[0].(events.InvoiceCreated); !ok {
		t.Fatalf("expected InvoiceCreated, got %T", f.bus.published[0])
	}
}

// ---------------------------------------------------------------------------
// status changes

func TestChangeStatus_PaidTargetRejected(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)

	_, err := f.svc.ChangeStatus(context.Background(), inv.ID, transport.UpdateStatusRequest{Status: transport.StatusPaid})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestChangeStatus_PaidInvoiceImmutable(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)
	if _, err := f.svc.ConfirmPaymentDirect(context.Background(), inv.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.ChangeStatus(context.Background(), inv.ID, transport.UpdateStatusRequest{Status: transport.StatusCancelled})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestChangeStatus_CancelUnpaid(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)

	result, err := f.svc.ChangeStatus(context.Background(), inv.ID, transport.UpdateStatusRequest{Status: transport.StatusCancelled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transport.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", result.Status)
	}
}

// ---------------------------------------------------------------------------
// payment confirmation

func TestConfirmPaymentDirect_SetsPaymentFields(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)

	result, err := f.svc.ConfirmPaymentDirect(context.Background(), inv.ID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transport.StatusPaid {
		t.Fatalf("expected paid, got %s", result.Status)
	}
	if result.PaymentDate == nil {
		t.Fatal("expected paymentDate to be set")
	}
	if result.PaymentMethod == nil || *result.PaymentMethod != PaymentMethodInternal {
		t.Fatalf("expected method %q, got %v", PaymentMethodInternal, result.PaymentMethod)
	}
	if len(f.bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.bus.published))
	}
	if _, ok := f.bus.published[0].(events.InvoicePaid); !ok {
		t.Fatalf("expected InvoicePaid, got %T", f.bus.published[0])
	}
}

func TestConfirmPaymentDirect_DoubleConfirmationRejected(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)

	first, err := f.svc.ConfirmPaymentDirect(context.Background(), inv.ID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.ConfirmPaymentDirect(context.Background(), inv.ID, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict on second confirmation, got %v", err)
	}

	// The original payment fields survive the rejected confirmation.
	current, err := f.svc.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !current.PaymentDate.Equal(*first.PaymentDate) || *current.PaymentMethod != *first.PaymentMethod {
		t.Fatal("expected payment fields to be unchanged after rejected confirmation")
	}
}

func TestConfirmPaymentFromProcessor_Success(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)
	f.gateway.intent = &payments.Intent{
		ID:     "pi_test",
		Status: payments.StatusSucceeded,
		Metadata: map[string]string{
			"invoiceId": inv.ID.String(),
		},
	}

	result, err := f.svc.ConfirmPaymentFromProcessor(context.Background(), transport.ConfirmProcessorPaymentRequest{PaymentIntentID: "pi_test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != transport.StatusPaid {
		t.Fatalf("expected paid, got %s", result.Status)
	}
	if *result.PaymentMethod != PaymentMethodCard {
		t.Fatalf("expected method %q, got %q", PaymentMethodCard, *result.PaymentMethod)
	}
}

func TestConfirmPaymentFromProcessor_FailedIntent_LeavesInvoiceUntouched(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)
	f.gateway.intent = &payments.Intent{
		ID:     "pi_test",
		Status: "requires_payment_method",
		Metadata: map[string]string{
			"invoiceId": inv.ID.String(),
		},
	}

	_, err := f.svc.ConfirmPaymentFromProcessor(context.Background(), transport.ConfirmProcessorPaymentRequest{PaymentIntentID: "pi_test"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected BadRequest, got %v", err)
	}

	current, err := f.svc.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.Status != transport.StatusUnpaid || current.PaymentDate != nil {
		t.Fatal("expected invoice to stay unpaid and untouched")
	}
}

func TestConfirmPaymentFromProcessor_MissingMetadata_IsBadRequest(t *testing.T) {
	f := newFixture()
	f.gateway.intent = &payments.Intent{
		ID:       "pi_test",
		Status:   payments.StatusSucceeded,
		Metadata: map[string]string{},
	}

	_, err := f.svc.ConfirmPaymentFromProcessor(context.Background(), transport.ConfirmProcessorPaymentRequest{PaymentIntentID: "pi_test"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// checkout

func TestCreateCheckout_MetadataLinksInvoice(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 12000)

	result, err := f.svc.CreateCheckout(context.Background(), transport.CheckoutRequest{InvoiceID: inv.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AmountCents != inv.GrossCents {
		t.Fatalf("expected amount %d, got %d", inv.GrossCents, result.AmountCents)
	}
	meta := f.gateway.created.Metadata
	if meta["invoiceId"] != inv.ID.String() || meta["invoiceNumber"] != inv.Number {
		t.Fatalf("expected invoice metadata, got %v", meta)
	}
	if meta["customerName"] == "" || meta["customerEmail"] == "" {
		t.Fatalf("expected customer metadata, got %v", meta)
	}
}

func TestCreateCheckout_PaidInvoice_IsConflict(t *testing.T) {
	f := newFixture()
	inv := f.seedInvoice(t, 1000)
	if _, err := f.svc.ConfirmPaymentDirect(context.Background(), inv.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.CreateCheckout(context.Background(), transport.CheckoutRequest{InvoiceID: inv.ID})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}
