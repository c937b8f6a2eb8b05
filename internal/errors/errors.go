package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error codes for the registration saga and the surrounding services. Codes
// below E200 fail before any remote mutation has happened.
const (
	CodeValidation         = "E100"
	CodeDuplicateUsername  = "E110"
	CodeSelfReferral       = "E111"
	CodeUnknownReferral    = "E112"
	CodeAccountCreation    = "E200"
	CodeProfileCreation    = "E210"
	CodeProfileNotFound    = "E211"
	CodeWalletProvisioning = "E220"
	CodeReferralReward     = "E230"
	CodeExternalAPI        = "E300"
	CodeUnauthenticated    = "E400"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// CodeOf extracts the application error code from err, or "" when err is not
// an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Data tidak lengkap. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewDuplicateUsernameError(username string) *AppError {
	return &AppError{
		Code:        CodeDuplicateUsername,
		Message:     fmt.Sprintf("username %q is already taken", username),
		UserMessage: fmt.Sprintf("Username %q sudah digunakan", username),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewSelfReferralError() *AppError {
	return &AppError{
		Code:        CodeSelfReferral,
		Message:     "referral code equals own username",
		UserMessage: "Kode referral tidak boleh milik sendiri",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewUnknownReferralError(code string) *AppError {
	return &AppError{
		Code:        CodeUnknownReferral,
		Message:     fmt.Sprintf("referral code %q not found", code),
		UserMessage: fmt.Sprintf("Kode referral %q tidak ditemukan", code),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewAccountCreationError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeAccountCreation,
		Message:     fmt.Sprintf("account creation rejected: %s", underlyingMsg),
		UserMessage: "Pendaftaran akun ditolak, periksa email dan password Anda",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

func NewProfileCreationError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeProfileCreation,
		Message:     fmt.Sprintf("profile creation failed: %s", underlyingMsg),
		UserMessage: "Gagal membuat profil, pendaftaran dibatalkan",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

func NewProfileNotFoundError() *AppError {
	return &AppError{
		Code:        CodeProfileNotFound,
		Message:     "profile row not visible within the configured wait",
		UserMessage: "Profil belum tersedia, silakan coba login kembali",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       nil,
	}
}

func NewWalletProvisioningError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeWalletProvisioning,
		Message:     fmt.Sprintf("wallet provisioning failed: %s", underlyingMsg),
		UserMessage: "Gagal membuat wallet",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

func NewReferralRewardError(cause error) *AppError {
	return &AppError{
		Code:        CodeReferralReward,
		Message:     "referral reward emission failed",
		UserMessage: "",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "Layanan sedang tidak tersedia, coba lagi nanti",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewUnauthenticatedError() *AppError {
	return &AppError{
		Code:        CodeUnauthenticated,
		Message:     "no authenticated user",
		UserMessage: "Pengguna tidak terautentikasi",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
