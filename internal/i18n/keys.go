// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserNotFound       = "auth.user_not_found"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthGoogleFailed       = "auth.google_failed"
	KeyAuthResetEmailSent     = "auth.reset_email_sent"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthResetTokenInvalid  = "auth.reset_token_invalid"

	// Products
	KeyProductCreated  = "product.created"
	KeyProductUpdated  = "product.updated"
	KeyProductDeleted  = "product.deleted"
	KeyProductNotFound = "product.not_found"
	KeyProductInactive = "product.inactive"

	// Cart
	KeyCartItemAdded    = "cart.item_added"
	KeyCartItemUpdated  = "cart.item_updated"
	KeyCartItemRemoved  = "cart.item_removed"
	KeyCartItemNotFound = "cart.item_not_found"
	KeyCartCleared      = "cart.cleared"
	KeyCartMerged       = "cart.merged"

	// Purchases
	KeyPurchaseCompleted     = "purchase.completed"
	KeyPurchaseDuplicate     = "purchase.duplicate"
	KeyPurchaseNotFound      = "purchase.not_found"
	KeyPurchaseAccessDenied  = "purchase.access_denied"
	KeyPurchaseAmountInvalid = "purchase.amount_invalid"

	// File access grants
	KeyGrantIssued    = "grant.issued"
	KeyGrantPending   = "grant.pending"
	KeyGrantRevoked   = "grant.revoked"
	KeyGrantNotFound  = "grant.not_found"
	KeyGrantRetryDone = "grant.retry_done"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"
	KeyAdminImageUpload  = "admin.image_uploaded"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// System
	KeyErrorInternal  = "error.internal"
	KeyErrorNotFound  = "error.not_found"
	KeyRateLimited    = "error.rate_limited"
	KeyFileTooLarge   = "error.file_too_large"
	KeyFileNotAllowed = "error.file_not_allowed"
)
