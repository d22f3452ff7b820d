package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	routerTestAPIKey   = "pos-key-0123456789abcdef"
	routerTestAdminKey = "admin-secret"
)

type routerTestEnv struct {
	engine    *gin.Engine
	db        *gorm.DB
	container *provider.Container
	tenantID  uint
}

type routerTestResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.Security.AdminAPIKey = routerTestAdminKey
	cfg.Metrics.Enabled = true
	cfg.Loyalty = config.LoyaltyConfig{
		Schedule:              "30 0 * * *",
		Timezone:              "UTC",
		DefaultTenantTimezone: "UTC",
		LockTTLSeconds:        60,
		RunLogRetention:       10,
	}

	container := provider.NewContainerWithDB(cfg, db)
	tenant, err := container.TenantService.Register("Spice Route", routerTestAPIKey)
	if err != nil {
		t.Fatalf("register tenant failed: %v", err)
	}
	return &routerTestEnv{
		engine:    SetupRouter(cfg, container),
		db:        db,
		container: container,
		tenantID:  tenant.ID,
	}
}

func (e *routerTestEnv) do(t *testing.T, method, path, body string, headers map[string]string) routerTestResponse {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp routerTestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func (e *routerTestEnv) pos(t *testing.T, method, path, body string) routerTestResponse {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{apiKeyHeader: routerTestAPIKey})
}

func (e *routerTestEnv) admin(t *testing.T, method, path, body string) routerTestResponse {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{adminKeyHeader: routerTestAdminKey})
}

func (e *routerTestEnv) tenantPath(suffix string) string {
	return fmt.Sprintf("/api/v1/admin/tenants/%d%s", e.tenantID, suffix)
}

type orderWebhookData struct {
	CustomerID      uint `json:"customer_id"`
	CustomerCreated bool `json:"customer_created"`
	Duplicate       bool `json:"duplicate"`
	Receipt         struct {
		CouponDiscount string `json:"coupon_discount"`
		FinalAmount    string `json:"final_amount"`
		PointsEarned   int64  `json:"points_earned"`
		NewBalance     int64  `json:"new_balance"`
		Tier           string `json:"tier"`
	} `json:"receipt"`
}

func decodeData(t *testing.T, resp routerTestResponse, dest interface{}) {
	t.Helper()
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		t.Fatalf("decode data failed: %v data=%s", err, string(resp.Data))
	}
}

func TestPOSOrderWebhookCreatesCustomerAndIsIdempotent(t *testing.T) {
	env := setupRouterTest(t)
	body := `{"order_ref":"A-1001","customer_phone":"9800000001","customer_name":"Asha","bill_amount":1000}`

	var first orderWebhookData
	decodeData(t, env.pos(t, http.MethodPost, "/api/v1/pos/orders", body), &first)
	if !first.CustomerCreated || first.Duplicate {
		t.Fatalf("first delivery should create customer: %+v", first)
	}
	if first.Receipt.PointsEarned != 50 || first.Receipt.NewBalance != 50 || first.Receipt.FinalAmount != "1000.00" {
		t.Fatalf("unexpected receipt: %+v", first.Receipt)
	}

	var second orderWebhookData
	decodeData(t, env.pos(t, http.MethodPost, "/api/v1/pos/orders", body), &second)
	if second.CustomerCreated || !second.Duplicate || second.CustomerID != first.CustomerID {
		t.Fatalf("second delivery should be a duplicate: %+v", second)
	}
	if second.Receipt.NewBalance != 50 {
		t.Fatalf("duplicate should not change balance: %+v", second.Receipt)
	}

	var view struct {
		TotalPoints int64  `json:"total_points"`
		PointsValue string `json:"points_value"`
	}
	decodeData(t, env.pos(t, http.MethodGet, "/api/v1/pos/customers/lookup?phone=9800000001", ""), &view)
	if view.TotalPoints != 50 || view.PointsValue != "50" {
		t.Fatalf("unexpected lookup: %+v", view)
	}

	resp := env.pos(t, http.MethodGet, "/api/v1/pos/customers/lookup?phone=9899999999", "")
	if resp.StatusCode != 404 {
		t.Fatalf("unknown phone want 404 got %d", resp.StatusCode)
	}
}

func TestPOSOrderRejectsInvalidCoupon(t *testing.T) {
	env := setupRouterTest(t)
	resp := env.pos(t, http.MethodPost, "/api/v1/pos/orders",
		`{"order_ref":"A-2001","customer_phone":"9800000002","bill_amount":800,"coupon_code":"NOPE"}`)
	if resp.StatusCode != 400 || resp.Msg != "coupon not found" {
		t.Fatalf("want coupon not found, got %d %s", resp.StatusCode, resp.Msg)
	}

	var count int64
	if err := env.db.Model(&models.LoyaltyOrder{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected order should not be stored, got %d", count)
	}
}

func TestAdminCouponFlowAppliesAtPOS(t *testing.T) {
	env := setupRouterTest(t)

	var coupon struct {
		ID   uint   `json:"id"`
		Code string `json:"code"`
	}
	decodeData(t, env.admin(t, http.MethodPost, env.tenantPath("/coupons"),
		`{"code":"welcome10","type":"percentage","value":10,"min_order_value":200}`), &coupon)
	if coupon.Code != "WELCOME10" {
		t.Fatalf("code should be upper-cased, got %s", coupon.Code)
	}

	dup := env.admin(t, http.MethodPost, env.tenantPath("/coupons"), `{"code":"WELCOME10","type":"fixed","value":50}`)
	if dup.StatusCode != 409 {
		t.Fatalf("duplicate code want 409 got %d", dup.StatusCode)
	}

	var quote struct {
		Discount string `json:"discount"`
	}
	decodeData(t, env.pos(t, http.MethodPost, "/api/v1/pos/coupons/validate", `{"code":"WELCOME10","order_value":500}`), &quote)
	if quote.Discount != "50" {
		t.Fatalf("unexpected validate discount: %s", quote.Discount)
	}

	var order orderWebhookData
	decodeData(t, env.pos(t, http.MethodPost, "/api/v1/pos/orders",
		`{"order_ref":"B-1","customer_phone":"9800000003","bill_amount":500,"coupon_code":"welcome10"}`), &order)
	if order.Receipt.CouponDiscount != "50.00" || order.Receipt.FinalAmount != "450.00" {
		t.Fatalf("unexpected receipt: %+v", order.Receipt)
	}

	var usage struct {
		Total int64 `json:"total"`
	}
	decodeData(t, env.admin(t, http.MethodGet, env.tenantPath(fmt.Sprintf("/coupons/%d/usage", coupon.ID)), ""), &usage)
	if usage.Total != 1 {
		t.Fatalf("usage total want 1 got %d", usage.Total)
	}
}

func TestAdminTenantScopeAndSettings(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.admin(t, http.MethodGet, "/api/v1/admin/tenants/999/settings", "")
	if resp.StatusCode != 404 {
		t.Fatalf("unknown tenant want 404 got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, env.tenantPath("/settings"), "", map[string]string{adminKeyHeader: "wrong"})
	if resp.StatusCode != 401 {
		t.Fatalf("wrong admin key want 401 got %d", resp.StatusCode)
	}

	bad := env.admin(t, http.MethodPut, env.tenantPath("/settings"), `{"off_peak_start_time":"25:99"}`)
	if bad.StatusCode != 400 {
		t.Fatalf("invalid setting want 400 got %d", bad.StatusCode)
	}

	var setting struct {
		BronzeEarnPercent string `json:"bronze_earn_percent"`
		Timezone          string `json:"timezone"`
	}
	decodeData(t, env.admin(t, http.MethodPut, env.tenantPath("/settings"), `{"bronze_earn_percent":8,"timezone":"UTC"}`), &setting)
	if setting.BronzeEarnPercent != "8" || setting.Timezone != "UTC" {
		t.Fatalf("unexpected setting: %+v", setting)
	}

	var customer struct {
		ID uint `json:"id"`
	}
	decodeData(t, env.admin(t, http.MethodPost, env.tenantPath("/customers"), `{"name":"Ravi","phone":"9800000004"}`), &customer)

	var earned struct {
		Points int64 `json:"points"`
	}
	decodeData(t, env.admin(t, http.MethodPost, env.tenantPath(fmt.Sprintf("/customers/%d/earn", customer.ID)),
		`{"bill_amount":1000,"order_ref":"C-1"}`), &earned)
	if earned.Points != 80 {
		t.Fatalf("earn with 8%% want 80 got %d", earned.Points)
	}

	redeem := env.admin(t, http.MethodPost, env.tenantPath(fmt.Sprintf("/customers/%d/redeem", customer.ID)),
		`{"points":5000,"bill_amount":1000}`)
	if redeem.StatusCode != 400 {
		t.Fatalf("over-redeem want 400 got %d", redeem.StatusCode)
	}

	var replay struct {
		Consistent bool `json:"consistent"`
	}
	decodeData(t, env.admin(t, http.MethodGet, env.tenantPath(fmt.Sprintf("/customers/%d/replay", customer.ID)), ""), &replay)
	if !replay.Consistent {
		t.Fatalf("replayed balance should match")
	}
}

func TestAdminCronTriggerRunsSynchronouslyWithoutQueue(t *testing.T) {
	env := setupRouterTest(t)
	if _, err := env.container.SettingService.UpdateLoyaltySetting(env.tenantID, map[string]interface{}{"timezone": "UTC"}); err != nil {
		t.Fatalf("save setting failed: %v", err)
	}

	var summary struct {
		Status           string `json:"status"`
		TenantsProcessed int    `json:"tenants_processed"`
	}
	decodeData(t, env.admin(t, http.MethodPost, "/api/v1/admin/cron/trigger-all-tenants", ""), &summary)
	if summary.Status != "success" || summary.TenantsProcessed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var status struct {
		LastRun *struct {
			Trigger string `json:"trigger"`
		} `json:"last_run_summary"`
	}
	decodeData(t, env.admin(t, http.MethodGet, "/api/v1/admin/cron/status", ""), &status)
	if status.LastRun == nil || status.LastRun.Trigger != "manual" {
		t.Fatalf("status should expose last manual run")
	}

	missing := env.admin(t, http.MethodPost, "/api/v1/admin/cron/trigger", `{}`)
	if missing.StatusCode != 400 {
		t.Fatalf("missing tenant id want 400 got %d", missing.StatusCode)
	}
}

func TestAdminCronStageTrigger(t *testing.T) {
	env := setupRouterTest(t)
	if _, err := env.container.SettingService.UpdateLoyaltySetting(env.tenantID, map[string]interface{}{"timezone": "UTC"}); err != nil {
		t.Fatalf("save setting failed: %v", err)
	}

	var listed struct {
		Stages []string `json:"stages"`
	}
	decodeData(t, env.admin(t, http.MethodGet, "/api/v1/admin/cron/stages", ""), &listed)
	if len(listed.Stages) != 4 || listed.Stages[3] != "points_expiry" {
		t.Fatalf("unexpected stages: %v", listed.Stages)
	}

	var summary struct {
		Status           string   `json:"status"`
		Stages           []string `json:"stages"`
		TenantsProcessed int      `json:"tenants_processed"`
	}
	decodeData(t, env.admin(t, http.MethodPost, "/api/v1/admin/cron/stages/points_expiry", ""), &summary)
	if summary.Status != "success" || summary.TenantsProcessed != 1 || len(summary.Stages) != 1 || summary.Stages[0] != "points_expiry" {
		t.Fatalf("unexpected all-tenant stage summary: %+v", summary)
	}

	body := fmt.Sprintf(`{"tenant_id":%d}`, env.tenantID)
	decodeData(t, env.admin(t, http.MethodPost, "/api/v1/admin/cron/stages/birthday_bonus", body), &summary)
	if summary.Status != "success" || len(summary.Stages) != 1 || summary.Stages[0] != "birthday_bonus" {
		t.Fatalf("unexpected tenant stage summary: %+v", summary)
	}

	unknown := env.admin(t, http.MethodPost, "/api/v1/admin/cron/stages/reindex", "")
	if unknown.StatusCode != 400 {
		t.Fatalf("unknown stage want 400 got %d", unknown.StatusCode)
	}
}

func TestAdminRouteCatalog(t *testing.T) {
	env := setupRouterTest(t)
	var items []adminRouteCatalogItem
	decodeData(t, env.admin(t, http.MethodGet, "/api/v1/admin/routes", ""), &items)
	modules := map[string]bool{}
	for _, item := range items {
		modules[item.Module] = true
	}
	for _, want := range []string{"coupons", "customers", "settings", "cron", "tenants"} {
		if !modules[want] {
			t.Fatalf("route catalog missing module %s", want)
		}
	}
}

func TestDeriveAdminRouteModule(t *testing.T) {
	cases := map[string]string{
		"/admin/tenants":                        "tenants",
		"/admin/tenants/:tenant_id":             "tenants",
		"/admin/tenants/:tenant_id/coupons/:id": "coupons",
		"/admin/cron/status":                    "cron",
		"":                                      "system",
		"/health":                               "health",
	}
	for path, want := range cases {
		if got := deriveAdminRouteModule(path); got != want {
			t.Fatalf("module for %q want %s got %s", path, want, got)
		}
	}
}
