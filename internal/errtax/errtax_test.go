package errtax

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestIsKnownCategory(t *testing.T) {
	if !IsKnownCategory(CategoryDocumentNotFound) {
		t.Fatal("CategoryDocumentNotFound should be known")
	}
	if IsKnownCategory(Category("NOT_A_REAL_CATEGORY")) {
		t.Fatal("unknown category should not be reported as known")
	}
}

func TestRecoveryFor_DefaultsToInternal(t *testing.T) {
	got := RecoveryFor(Category("NOT_A_REAL_CATEGORY"))
	want := RecoveryFor(CategoryInternal)
	if got != want {
		t.Fatalf("RecoveryFor(unknown) = %+v, want %+v", got, want)
	}
}

func TestError_IsMatchesByCategory(t *testing.T) {
	a := New(CategoryDocumentNotFound, "doc 1 missing", nil)
	b := New(CategoryDocumentNotFound, "doc 2 missing", nil)
	c := New(CategoryInternal, "boom", nil)

	if !errors.Is(a, b) {
		t.Fatal("errors of the same category should match Is")
	}
	if errors.Is(a, c) {
		t.Fatal("errors of different categories should not match Is")
	}
}

func TestError_WithDetailChaining(t *testing.T) {
	err := New(CategoryValidation, "bad field", nil).WithDetail("field", "title").WithDetail("reason", "empty")
	if err.Details["field"] != "title" || err.Details["reason"] != "empty" {
		t.Fatalf("details not recorded: %+v", err.Details)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(CategoryInternal, "write failed", cause)
	if errors.Unwrap(err) != cause {
		t.Fatal("Unwrap should return the original cause")
	}
}

type fakeVectorError struct {
	code    string
	details map[string]any
}

func (e *fakeVectorError) Error() string                  { return "vector store: " + e.code }
func (e *fakeVectorError) ErrorCategory() Category        { return CategoryClusteringError }
func (e *fakeVectorError) ErrorCode() string              { return e.code }
func (e *fakeVectorError) ErrorDetails() map[string]any   { return e.details }

func TestLift_Nil(t *testing.T) {
	if Lift(nil) != nil {
		t.Fatal("Lift(nil) should return nil")
	}
}

func TestLift_PassesThroughTypedError(t *testing.T) {
	original := New(CategoryDocumentNotFound, "missing", nil)
	if Lift(original) != original {
		t.Fatal("Lift should return an already-typed error unchanged")
	}
}

func TestLift_KnownCustomClassPreservesCategoryAndDetails(t *testing.T) {
	custom := &fakeVectorError{code: "HNSW_BUILD_FAILED", details: map[string]any{"graph_size": 42}}

	lifted := Lift(custom)

	if lifted.Category != CategoryClusteringError {
		t.Fatalf("Category = %s, want %s", lifted.Category, CategoryClusteringError)
	}
	if lifted.Details["code"] != "HNSW_BUILD_FAILED" {
		t.Fatalf("code detail not preserved: %+v", lifted.Details)
	}
	if lifted.Details["graph_size"] != 42 {
		t.Fatalf("custom detail not preserved: %+v", lifted.Details)
	}
	if lifted.Cause != custom {
		t.Fatal("original error should be preserved as Cause")
	}
}

type fakeUnknownCategoryError struct{}

func (e *fakeUnknownCategoryError) Error() string           { return "weird failure" }
func (e *fakeUnknownCategoryError) ErrorCategory() Category { return Category("NOT_IN_THE_SET") }

func TestLift_RejectsCategoryOutsideClosedSet(t *testing.T) {
	lifted := Lift(&fakeUnknownCategoryError{})
	if lifted.Category != CategoryInternal {
		t.Fatalf("Category = %s, want %s (category not in closed set must fall back)", lifted.Category, CategoryInternal)
	}
}

func TestLift_WrapsPlainError(t *testing.T) {
	plain := errors.New("unexpected nil pointer")
	lifted := Lift(plain)

	if lifted.Category != CategoryInternal {
		t.Fatalf("Category = %s, want %s", lifted.Category, CategoryInternal)
	}
	if lifted.Cause != plain {
		t.Fatal("original error should be preserved as Cause")
	}
}

func TestFormatJSON_Envelope(t *testing.T) {
	err := New(CategoryDocumentNotFound, "document abc123 not found", nil)

	raw, marshalErr := FormatJSON(err)
	if marshalErr != nil {
		t.Fatal(marshalErr)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["success"] != false {
		t.Fatalf("success = %v, want false", decoded["success"])
	}
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatalf("error field missing or wrong shape: %+v", decoded)
	}
	if errObj["category"] != string(CategoryDocumentNotFound) {
		t.Fatalf("category = %v, want %v", errObj["category"], CategoryDocumentNotFound)
	}
	recovery, ok := errObj["recovery"].(map[string]any)
	if !ok || recovery["tool"] == "" {
		t.Fatalf("recovery not populated: %+v", errObj)
	}
}

func TestFormatForLog_IncludesCauseAndDetails(t *testing.T) {
	cause := errors.New("connection reset")
	err := New(CategoryOCRAPIError, "ocr call failed", cause).WithDetail("attempt", 3)

	log := FormatForLog(err)
	if log["cause"] != "connection reset" {
		t.Fatalf("cause not recorded: %+v", log)
	}
	if log["detail_attempt"] != 3 {
		t.Fatalf("detail not recorded: %+v", log)
	}
}
