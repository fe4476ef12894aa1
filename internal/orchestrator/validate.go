package orchestrator

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidationError is one field-level admission failure (SPEC §4.6/§6).
type ValidationError struct {
	Field   string
	Message string
}

// ValidationResult collects every ValidationError for one request, matching
// the teacher idiom of go-playground/validator struct tags used by the
// pack's trufnetwork-sdk-go client (Validate() wrapping validator.Struct).
type ValidationResult struct {
	Errors []ValidationError
}

func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

func (r ValidationResult) Error() string {
	if r.OK() {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Errors[0].Field, r.Errors[0].Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func fromFieldErrors(err error) ValidationResult {
	if err == nil {
		return ValidationResult{}
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationResult{Errors: []ValidationError{{Field: "_", Message: err.Error()}}}
	}
	var out ValidationResult
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
		})
	}
	return out
}

func validateStruct(v any) ValidationResult {
	return fromFieldErrors(validatorInstance().Struct(v))
}

func addError(r *ValidationResult, field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// validateAmount enforces orderAmount > 0 and tipAmount >= 0 (SPEC §6)
// beyond what struct tags alone express for arbitrary-precision decimals.
func validateAmount(field string, a Amount, r *ValidationResult) {
	order, err := a.OrderDecimal()
	if err != nil {
		addError(r, field+".order", "must be a valid decimal")
	} else if !order.IsPositive() {
		addError(r, field+".order", "must be > 0")
	}

	if a.Tip != "" {
		tip, err := a.TipDecimal()
		if err != nil {
			addError(r, field+".tip", "must be a valid decimal")
		} else if tip.IsNegative() {
			addError(r, field+".tip", "must be >= 0")
		}
	}
}

// ValidateSale implements SPEC §6's admission rules for Sale requests.
func ValidateSale(req SaleRequest) ValidationResult {
	r := validateStruct(req)
	validateAmount("amount", req.Amount, &r)
	return r
}

func ValidateAuth(req AuthRequest) ValidationResult {
	r := validateStruct(req)
	validateAmount("authAmount", req.AuthAmount, &r)
	return r
}

func ValidateIncrementalAuth(req IncrementalAuthRequest) ValidationResult {
	r := validateStruct(req)
	validateOriginalRef("originalRef", req.OriginalRef, &r)
	validateAmount("addAmount", req.AddAmount, &r)
	return r
}

func ValidatePostAuth(req PostAuthRequest) ValidationResult {
	r := validateStruct(req)
	validateOriginalRef("originalRef", req.OriginalRef, &r)
	validateAmount("captureAmount", req.CaptureAmount, &r)
	return r
}

// ValidateRefund enforces the XOR between a referenced refund (OriginalRef)
// and a non-referenced one (ReferenceOrderID) — SPEC §6.
func ValidateRefund(req RefundRequest) ValidationResult {
	r := validateStruct(req)
	validateAmount("amount", req.Amount, &r)

	hasRef := req.OriginalRef != nil && req.OriginalRef.isSet()
	hasOrderID := req.ReferenceOrderID != ""
	switch {
	case hasRef && hasOrderID:
		addError(&r, "refund", "must be either referenced or non-referenced, not both")
	case !hasRef && !hasOrderID:
		addError(&r, "refund", "must provide either originalRef or referenceOrderId")
	case hasRef:
		validateOriginalRef("originalRef", *req.OriginalRef, &r)
	}
	return r
}

func ValidateVoid(req VoidRequest) ValidationResult {
	r := validateStruct(req)
	validateOriginalRef("originalRef", req.OriginalRef, &r)
	return r
}

func ValidateTipAdjust(req TipAdjustRequest) ValidationResult {
	r := validateStruct(req)
	validateOriginalRef("originalRef", req.OriginalRef, &r)
	tip, err := decimal.NewFromString(req.Tip)
	if err != nil {
		addError(&r, "tip", "must be a valid decimal")
	} else if tip.IsNegative() {
		addError(&r, "tip", "must be >= 0")
	}
	return r
}

func ValidateAbort(req AbortRequest) ValidationResult {
	return validateStruct(req)
}

// ValidateQuery enforces the byTransactionId XOR byTransactionRequestId rule
// (SPEC §3).
func ValidateQuery(req QueryRequest) ValidationResult {
	var r ValidationResult
	hasID := req.ByTransactionID != ""
	hasReqID := req.ByTransactionRequestID != ""
	switch {
	case hasID && hasReqID:
		addError(&r, "query", "must provide exactly one of byTransactionId or byTransactionRequestId")
	case !hasID && !hasReqID:
		addError(&r, "query", "must provide exactly one of byTransactionId or byTransactionRequestId")
	}
	return r
}

func validateOriginalRef(field string, ref OriginalRef, r *ValidationResult) {
	switch {
	case !ref.isSet():
		addError(r, field, "must provide one of originalTransactionId or originalTransactionRequestId")
	case ref.bothSet():
		addError(r, field, "must provide exactly one of originalTransactionId or originalTransactionRequestId")
	}
}
