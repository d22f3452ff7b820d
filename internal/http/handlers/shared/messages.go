package shared

import "fmt"

// messages 接口错误提示文案，key 与业务错误一一对应
var messages = map[string]string{
	"error.bad_request":            "invalid request parameters",
	"error.unauthorized":           "unauthorized",
	"error.forbidden":              "forbidden",
	"error.not_found":              "resource not found",
	"error.internal":               "internal server error",
	"error.rate_limited":           "too many requests, retry in %d seconds",
	"error.rate_limit_unavailable": "rate limiter unavailable",
	"error.api_key_missing":        "X-API-Key header is required",
	"error.api_key_invalid":        "invalid API key",
	"error.admin_key_missing":      "admin API key is not configured",
	"error.admin_key_invalid":      "invalid admin key",
	"error.tenant_id_invalid":      "invalid tenant id",
	"error.tenant_id_type_invalid": "tenant id has unexpected type",
	"error.tenant_not_found":       "tenant not found",
	"error.tenant_inactive":        "tenant is inactive",
	"error.tenant_invalid":         "tenant name is required and api key must be at least 16 characters",
	"error.tenant_exists":          "tenant api key already registered",
	"error.tenant_create_failed":   "failed to register tenant",

	"error.customer_not_found":       "customer not found",
	"error.customer_phone_required":  "customer phone is required",
	"error.customer_exists":          "customer with this phone already exists",
	"error.customer_date_invalid":    "date must use YYYY-MM-DD",
	"error.customer_fetch_failed":    "failed to fetch customers",
	"error.customer_save_failed":     "failed to save customer",
	"error.amount_invalid":           "amount must be greater than zero",
	"error.points_invalid":           "points must be greater than zero",
	"error.points_insufficient":      "insufficient points balance",
	"error.points_below_minimum":     "points below minimum redemption",
	"error.wallet_insufficient":      "insufficient wallet balance",
	"error.order_ref_required":       "order reference is required",
	"error.points_process_failed":    "failed to process loyalty points",
	"error.transaction_fetch_failed": "failed to fetch transactions",
	"error.balance_replay_failed":    "failed to replay balance",
	"error.expiry_fetch_failed":      "failed to fetch expiry summary",
	"error.wallet_process_failed":    "failed to process wallet change",

	"error.coupon_invalid":        "coupon is invalid",
	"error.coupon_not_found":      "coupon not found",
	"error.coupon_inactive":       "coupon is inactive",
	"error.coupon_not_started":    "coupon is not active yet",
	"error.coupon_expired":        "coupon has expired",
	"error.coupon_usage_limit":    "coupon usage limit reached",
	"error.coupon_per_user_limit": "coupon already used by this customer",
	"error.coupon_min_amount":     "order value below coupon minimum",
	"error.coupon_channel":        "coupon not valid for this channel",
	"error.coupon_not_allowed":    "coupon not available for this customer",
	"error.coupon_code_exists":    "coupon code already exists",
	"error.coupon_config_invalid": "coupon configuration is invalid",
	"error.coupon_save_failed":    "failed to save coupon",
	"error.coupon_fetch_failed":   "failed to fetch coupons",

	"error.settings_fetch_failed":  "failed to fetch loyalty settings",
	"error.settings_save_failed":   "failed to save loyalty settings",
	"error.settings_invalid":       "loyalty settings are invalid",
	"error.feedback_invalid":       "rating must be between 1 and 5",
	"error.feedback_not_found":     "feedback not found",
	"error.feedback_save_failed":   "failed to save feedback",
	"error.feedback_fetch_failed":  "failed to fetch feedback",
	"error.job_already_running":    "loyalty job is already running",
	"error.job_trigger_failed":     "failed to trigger loyalty job",
	"error.job_status_failed":      "failed to fetch loyalty job status",
	"error.job_stage_unknown":      "unknown loyalty job stage",
	"error.balance_inconsistent":   "ledger balance is inconsistent",
	"error.tenant_id_mismatch":     "tenant id does not match api key",
	"error.request_body_too_large": "request body too large",
}

// Message 按 key 返回提示文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 按 key 返回格式化提示文案
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
