package e2e

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carebook/internal/database"
	"carebook/internal/domain"
	"carebook/internal/middleware"
	"carebook/internal/modules/booking"
	"carebook/internal/modules/payment"
	"carebook/internal/modules/slots"
	"carebook/internal/modules/sweeper"
	"carebook/internal/notification"
	"carebook/internal/pkg/clock"
	jwtsvc "carebook/internal/pkg/jwt"
	"carebook/internal/repository"
)

const webhookSecret = "whsec-e2e"

type stubGateway struct{}

func (stubGateway) Initiate(ctx context.Context, amount float64, email, txRef, callbackURL, returnURL string) (string, error) {
	return "https://pay.example/checkout/" + txRef, nil
}

func (stubGateway) Verify(ctx context.Context, txRef string) (string, error) {
	return "success", nil
}

type stubRooms struct{}

func (stubRooms) ProvisionRoom(ctx context.Context, appointmentID, patientID, caregiverID int64) (string, string, string, error) {
	return fmt.Sprintf("room-%d", appointmentID), "https://rooms.example/h", "https://rooms.example/g", nil
}

type env struct {
	router *gin.Engine
	db     *gorm.DB
	clk    *clock.Fake
	jwt    *jwtsvc.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	zl := zap.NewNop()

	slotRepo := repository.NewTimeSlotRepository(db)
	ledgerRepo := repository.NewPendingBookingRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)

	bookingService := booking.NewService(db, stubRooms{}, notification.NewSender(zl), clk, zl, 10*time.Minute)
	slotsService := slots.NewService(slotRepo, clk, 100)
	paymentService := payment.NewService(ledgerRepo, bookingService, stubGateway{}, clk, zl,
		webhookSecret, "https://api.example/webhook", "https://app.example/done")
	sweeperService := sweeper.NewService(ledgerRepo, slotRepo, apptRepo, bookingService, clk, zl, 50, 30*time.Hour)

	j := jwtsvc.New("e2e-secret", time.Hour)

	r := gin.New()
	v1 := r.Group("/api/v1")
	slots.NewHandler(slotsService).RegisterPublicRoutes(v1)
	payment.NewHandler(paymentService).RegisterWebhookRoutes(v1)

	authed := v1.Group("/")
	authed.Use(middleware.Auth(j))
	booking.NewHandler(bookingService).RegisterRoutes(authed)
	payment.NewHandler(paymentService).RegisterRoutes(authed)

	caregiver := authed.Group("/")
	caregiver.Use(middleware.RequireRole("caregiver"))
	slots.NewHandler(slotsService).RegisterCaregiverRoutes(caregiver)

	admin := authed.Group("/")
	admin.Use(middleware.RequireRole("admin"))
	sweeper.NewHandler(sweeperService).RegisterRoutes(admin)

	require.NoError(t, db.Create(&domain.Specialty{Name: "General Practice", BookingFee: 1000, SessionFee: 4000}).Error)

	return &env{router: r, db: db, clk: clk, jwt: j}
}

func (e *env) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) webhook(t *testing.T, txRef, status string, amount float64) *httptest.ResponseRecorder {
	t.Helper()
	body := []byte(fmt.Sprintf(`{"tx_ref":%q,"status":%q,"amount":%v}`, txRef, status, amount))
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Payment-Signature", hex.EncodeToString(mac.Sum(nil)))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := decode(t, w)
	require.Equal(t, true, out["success"], w.Body.String())
	d, ok := out["data"].(map[string]any)
	require.True(t, ok)
	return d
}

func (e *env) generateSlots(t *testing.T, caregiverID int64) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/slots/generate", e.token(t, caregiverID, "caregiver"), gin.H{
		"start_date": "2026-03-03",
		"end_date":   "2026-03-03",
		"weekly_availability": gin.H{
			"tuesday": []gin.H{{"start": "09:00", "end": "11:00"}},
		},
		"slot_duration": 30,
		"hourly_rate":   10000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (e *env) lockFirstSlot(t *testing.T, patientID int64) (pendingBookingID float64, slotID float64) {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/v1/slots", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := data(t, w)["slots"].([]any)
	require.NotEmpty(t, listed)
	slotID = listed[0].(map[string]any)["id"].(float64)

	w = e.do(t, http.MethodPost, "/api/v1/bookings/lock", e.token(t, patientID, "patient"), gin.H{
		"time_slot_id": slotID,
		"specialty_id": 1,
		"session_type": "virtual",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := data(t, w)
	pendingBookingID = d["pending_booking"].(map[string]any)["id"].(float64)
	return pendingBookingID, slotID
}

func TestHappyPath_BrowseLockPayConvert(t *testing.T) {
	e := newEnv(t)
	e.generateSlots(t, 1)

	pbID, slotID := e.lockFirstSlot(t, 7)

	// initiate checkout
	w := e.do(t, http.MethodPost, "/api/v1/payments/initiate", e.token(t, 7, "patient"), gin.H{
		"pending_booking_id": pbID,
		"email":              "patient@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := data(t, w)
	txRef := d["tx_ref"].(string)
	assert.Contains(t, d["checkout_url"], txRef)
	assert.Equal(t, 5000.0, d["amount"])

	// processor callback
	w = e.webhook(t, txRef, "success", 5000)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d = data(t, w)
	assert.Equal(t, "converted", d["outcome"])
	apptID := d["appointment_id"].(float64)

	// duplicate delivery acknowledges with the same appointment
	w = e.webhook(t, txRef, "success", 5000)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apptID, data(t, w)["appointment_id"].(float64))

	var appt domain.Appointment
	require.NoError(t, e.db.First(&appt, int64(apptID)).Error)
	assert.Equal(t, domain.AppointmentConfirmed, appt.Status)
	assert.Equal(t, domain.FeeCompleted, appt.BookingFeeStatus)
	assert.Equal(t, domain.FeePending, appt.SessionFeeStatus)
	assert.NotEmpty(t, appt.RoomID) // virtual session got a room

	var slot domain.TimeSlot
	require.NoError(t, e.db.First(&slot, int64(slotID)).Error)
	assert.Equal(t, domain.SlotBooked, slot.Status)

	// booked slot no longer listed
	w = e.do(t, http.MethodGet, "/api/v1/slots", "", nil)
	for _, s := range data(t, w)["slots"].([]any) {
		assert.NotEqual(t, slotID, s.(map[string]any)["id"].(float64))
	}

	// status poll reflects the conversion
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", int64(pbID)), e.token(t, 7, "patient"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	pb := data(t, w)["pending_booking"].(map[string]any)
	assert.Equal(t, "converted", pb["status"])
}

func TestPaymentFailure_SlotReturnsToPool(t *testing.T) {
	e := newEnv(t)
	e.generateSlots(t, 1)
	pbID, slotID := e.lockFirstSlot(t, 7)

	w := e.do(t, http.MethodPost, "/api/v1/payments/initiate", e.token(t, 7, "patient"), gin.H{
		"pending_booking_id": pbID,
		"email":              "patient@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	txRef := data(t, w)["tx_ref"].(string)

	w = e.webhook(t, txRef, "failed", 5000)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "released", data(t, w)["outcome"])

	var slot domain.TimeSlot
	require.NoError(t, e.db.First(&slot, int64(slotID)).Error)
	assert.Equal(t, domain.SlotAvailable, slot.Status)

	// somebody else can take it now
	w = e.do(t, http.MethodPost, "/api/v1/bookings/lock", e.token(t, 8, "patient"), gin.H{
		"time_slot_id": slotID,
		"specialty_id": 1,
		"session_type": "in_person",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestContention_SecondPatientGets409(t *testing.T) {
	e := newEnv(t)
	e.generateSlots(t, 1)
	_, slotID := e.lockFirstSlot(t, 7)

	w := e.do(t, http.MethodPost, "/api/v1/bookings/lock", e.token(t, 8, "patient"), gin.H{
		"time_slot_id": slotID,
		"specialty_id": 1,
		"session_type": "in_person",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
	errObj := out["error"].(map[string]any)
	assert.Equal(t, "SLOT_UNAVAILABLE", errObj["code"])
}

func TestExpiry_SweepFreesSlotAndLatePaymentBounces(t *testing.T) {
	e := newEnv(t)
	e.generateSlots(t, 1)
	pbID, slotID := e.lockFirstSlot(t, 7)

	w := e.do(t, http.MethodPost, "/api/v1/payments/initiate", e.token(t, 7, "patient"), gin.H{
		"pending_booking_id": pbID,
		"email":              "patient@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	txRef := data(t, w)["tx_ref"].(string)

	e.clk.Advance(11 * time.Minute)

	w = e.do(t, http.MethodPost, "/api/v1/admin/sweep", e.token(t, 99, "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, w)
	assert.Equal(t, 1.0, d["pending_bookings_expired"])

	var slot domain.TimeSlot
	require.NoError(t, e.db.First(&slot, int64(slotID)).Error)
	assert.Equal(t, domain.SlotAvailable, slot.Status)

	// the payment landing after the sweep is rejected, not converted
	w = e.webhook(t, txRef, "success", 5000)
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, e.db.Model(&domain.Appointment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAuthz(t *testing.T) {
	e := newEnv(t)

	// no token
	w := e.do(t, http.MethodPost, "/api/v1/bookings/lock", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// patient cannot generate slots
	w = e.do(t, http.MethodPost, "/api/v1/slots/generate", e.token(t, 7, "patient"), gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// patient cannot trigger sweeps
	w = e.do(t, http.MethodPost, "/api/v1/admin/sweep", e.token(t, 7, "patient"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// patients cannot read each other's bookings
	e.generateSlots(t, 1)
	pbID, _ := e.lockFirstSlot(t, 7)
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", int64(pbID)), e.token(t, 8, "patient"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// admins can
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", int64(pbID)), e.token(t, 99, "admin"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
