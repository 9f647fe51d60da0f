package observable

import (
	"errors"
	"testing"
)

func TestLazyDiffComputesOnce(t *testing.T) {
	calls := 0
	d := NewLazyDiff(1, func() int {
		calls++
		return 2
	})
	if calls != 0 {
		t.Fatal("lazy diff computed eagerly")
	}
	if d.OldValue() != 1 || d.NewValue() != 2 || d.NewValue() != 2 {
		t.Errorf("diff = %v", d)
	}
	if calls != 1 {
		t.Errorf("compute called %d times", calls)
	}
	if got := d.String(); got != "ValueDiff{old: 1, new: 2}" {
		t.Errorf("String() = %q", got)
	}
}

func TestSetOutcomeString(t *testing.T) {
	tests := map[SetOutcome]string{
		SetCommitted:   "committed",
		SetUnchanged:   "unchanged",
		SetVetoed:      "vetoed",
		SetFailed:      "failed",
		SetOutcome(42): "unknown",
	}
	for outcome, want := range tests {
		if got := outcome.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", outcome, got, want)
		}
	}
}

func TestSetMessages(t *testing.T) {
	SetMessages(MessageMap{CodeChangeVetoed: "Änderung abgelehnt"})
	defer SetMessages(nil)

	v := NewWritableValue(1)
	v.AddValueChangingListener(&vetoer[int]{veto: true})
	err := v.Set(2)

	var obErr *Error
	if !errors.As(err, &obErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if obErr.Message != "Änderung abgelehnt" {
		t.Errorf("Message = %q", obErr.Message)
	}

	v.Dispose()
	err = v.Set(3)
	if !errors.As(err, &obErr) || obErr.Message != "Observable disposed" {
		t.Errorf("unknown keys should keep the built-in message, got %v", err)
	}
}

func TestTypeMismatchError(t *testing.T) {
	v := NewWritableValue(1, WithName("count"))
	err := NewTypeMismatchError(v, v.ValueType(), "x")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	want := `OB005: Value type mismatch (writable "count": want int, got string)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
