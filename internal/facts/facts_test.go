package facts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "numbered list",
			raw:  "1. First computer mouse was wooden\n2) Internet began as military network\n",
			want: []string{"First computer mouse was wooden", "Internet began as military network"},
		},
		{
			name: "bullets and dashes",
			raw:  "• Email was first used in 1971\n- Data is the new fuel today\n  -- 10. Cloud stores your data\n",
			want: []string{"Email was first used in 1971", "Data is the new fuel today", "Cloud stores your data"},
		},
		{
			name: "short and blank lines dropped",
			raw:  "\n\n3.\nshort\n  \nThis one is long enough\n",
			want: []string{"This one is long enough"},
		},
		{
			name: "tamil text kept by rune count",
			raw:  "1. தரவு தான் புதிய எரிபொருள்\n",
			want: []string{"தரவு தான் புதிய எரிபொருள்"},
		},
		{
			name: "windows line endings",
			raw:  "1. First fact here\r\n2. Second fact here\r\n",
			want: []string{"First fact here", "Second fact here"},
		},
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectPadsInFallbackOrder(t *testing.T) {
	got := Select([]string{"custom one fact", "custom two fact"}, Fallback, MinFacts, MaxFacts)

	if len(got) != MinFacts {
		t.Fatalf("expected %d facts, got %d", MinFacts, len(got))
	}
	want := append([]string{"custom one fact", "custom two fact"}, Fallback[:4]...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Select() = %q, want %q", got, want)
	}
}

func TestSelectCapsAtMax(t *testing.T) {
	var many []string
	for i := 0; i < 25; i++ {
		many = append(many, fmt.Sprintf("generated fact number %d", i))
	}

	got := Select(many, Fallback, MinFacts, MaxFacts)
	if len(got) != MaxFacts {
		t.Fatalf("expected %d facts, got %d", MaxFacts, len(got))
	}
	if got[0] != many[0] || got[9] != many[9] {
		t.Errorf("expected first %d facts in order, got %q", MaxFacts, got)
	}
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	fallback := []string{"a fallback fact", "b fallback fact", "c fallback fact"}
	in := []string{"input fact one"}
	_ = Select(in, fallback, 3, 10)

	if len(in) != 1 || fallback[0] != "a fallback fact" {
		t.Error("Select modified its inputs")
	}
}

type fakeSource struct {
	outputs []string
	errs    []error
	calls   int
}

func (f *fakeSource) GenerateFacts(ctx context.Context) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return "", nil
}

func TestCollectSourceErrorUsesFallback(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("openai: 500")}}

	got := Collect(context.Background(), src, Options{Attempts: 3})

	if !reflect.DeepEqual([]string(got), Fallback[:6]) {
		t.Errorf("expected FALLBACK[:6], got %q", got)
	}
	if src.calls != 1 {
		t.Errorf("source errors must not be retried, got %d calls", src.calls)
	}
}

func TestCollectEmptyOutputUsesFallback(t *testing.T) {
	src := &fakeSource{}

	got := Collect(context.Background(), src, Options{Attempts: 2})

	if !reflect.DeepEqual([]string(got), Fallback[:6]) {
		t.Errorf("expected FALLBACK[:6], got %q", got)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 attempts for insufficient yield, got %d", src.calls)
	}
}

func TestCollectStopsWhenEnough(t *testing.T) {
	raw := "1. fact number one\n2. fact number two\n3. fact number three\n4. fact number four\n5. fact number five\n6. fact number six\n7. fact number seven\n"
	src := &fakeSource{outputs: []string{raw, raw}}

	got := Collect(context.Background(), src, Options{Attempts: 3})

	if len(got) != 7 {
		t.Errorf("expected 7 facts, got %d", len(got))
	}
	if src.calls != 1 {
		t.Errorf("expected a single call, got %d", src.calls)
	}
	for _, f := range got {
		for _, fb := range Fallback {
			if f == fb {
				t.Errorf("unexpected fallback fact %q", f)
			}
		}
	}
}

func TestCollectPadsLastAttempt(t *testing.T) {
	src := &fakeSource{outputs: []string{"only one fact here", "1. first good fact\n2. second good fact\n"}}

	got := Collect(context.Background(), src, Options{Attempts: 2})

	want := append([]string{"first good fact", "second good fact"}, Fallback[:4]...)
	if !reflect.DeepEqual([]string(got), want) {
		t.Errorf("Collect() = %q, want %q", got, want)
	}
}

func TestCollectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{}

	got := Collect(ctx, src, Options{})

	if src.calls != 0 {
		t.Errorf("expected no source calls on a cancelled context, got %d", src.calls)
	}
	if len(got) != MinFacts {
		t.Errorf("expected %d fallback facts, got %d", MinFacts, len(got))
	}
}

func TestGenerationErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := error(&GenerationError{Attempt: 2, Err: base})

	if !errors.Is(err, base) {
		t.Error("expected GenerationError to unwrap to its cause")
	}
}

func TestCollectSourceFunc(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) (string, error) {
		return "Fact A\nFact B\nFact C\nFact D\nFact E\nFact F\nFact G", nil
	})

	got := Collect(context.Background(), src, Options{})

	if !reflect.DeepEqual([]string(got), []string{"Fact A", "Fact B", "Fact C", "Fact D", "Fact E", "Fact F", "Fact G"}) {
		t.Errorf("unexpected facts %q", got)
	}
}
