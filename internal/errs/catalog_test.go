package errs

import "testing"

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		code string
		want Category
	}{
		{CodeSuccess, CategorySuccess},
		{CodeSuccessLegacyZero, CategorySuccess},
		{CodeSuccessLegacyTriad, CategorySuccess},
		{CodeSDKNotInitialized, CategoryInitialization},
		{CodeNotConnected, CategoryConnection},
		{CodeAuthFailed, CategoryAuthentication},
		{CodeHostAppMissing, CategoryAppToApp},
		{CodeLANNoServer, CategoryLAN},
		{CodeCableNotAttached, CategoryCable},
		{CodeResponseTimeout, CategoryTransaction},
		{CodeGenericTransaction, CategoryTransaction},
		{"999", CategoryUnknown},
	}
	for _, c := range cases {
		if got := CategoryOf(c.code); got != c.want {
			t.Errorf("CategoryOf(%q) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestRetryPredicates(t *testing.T) {
	if CanRetryWithSameID(CodeResponseTimeout) {
		t.Error("306 must not allow same-id retry")
	}
	if CanRetryWithSameID(CodeRejected) {
		t.Error("307 must not allow same-id retry")
	}
	if CanRetryWithSameID(CodeProcessing) {
		t.Error("308 must not allow same-id retry")
	}
	if !CanRetryWithSameID(CodeSendFailed) {
		t.Error("304 should allow same-id retry")
	}

	if !MustUseNewID(CodeRejected) || !MustUseNewID(CodeInsufficientFunds) || !MustUseNewID(CodePasswordError) {
		t.Error("307/310/311 must require a new trace id")
	}
	if MustUseNewID(CodeResponseTimeout) {
		t.Error("306 must not require a new trace id")
	}

	if !NeedsQueryBeforeRetry(CodeResponseTimeout) || !NeedsQueryBeforeRetry(CodeProcessing) {
		t.Error("306/308 must require a query before retry")
	}
	if NeedsQueryBeforeRetry(CodeRejected) {
		t.Error("307 must not require a query before retry")
	}

	if !ShouldNotRetry(CodeTerminated) {
		t.Error("309 must never be retried")
	}
	if ShouldNotRetry(CodeResponseTimeout) {
		t.Error("306 is retryable, just not with the same id")
	}
}

func TestIsSuccess(t *testing.T) {
	for _, code := range []string{CodeSuccess, CodeSuccessLegacyZero, CodeSuccessLegacyTriad} {
		if !IsSuccess(code) {
			t.Errorf("IsSuccess(%q) = false, want true", code)
		}
	}
	if IsSuccess(CodeServiceException) {
		t.Error("202 must not be treated as success")
	}
}

func TestErrorString(t *testing.T) {
	e := New(CodeNotConnected, "device not connected")
	want := "[CONNECTION] 212: device not connected"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithHelpers(t *testing.T) {
	base := New(CodeResponseTimeout, "response timeout")
	withTrace := base.WithTraceID("t-1")
	if withTrace.TraceID != "t-1" || base.TraceID != "" {
		t.Error("WithTraceID must not mutate the receiver")
	}
}
