package notegen

import (
	"context"
	"errors"
	"testing"

	"notegen-api/internal/domain/entity"
	apperrors "notegen-api/pkg/errors"
)

func TestTargetSectionCount(t *testing.T) {
	tests := []struct {
		runes int
		want  int
	}{
		{0, 6},
		{600, 6},
		{1201, 7},
		{1500, 8},
		{2400, 12},
		{3000, 12},
	}
	for _, tt := range tests {
		if got := TargetSectionCount(tt.runes); got != tt.want {
			t.Errorf("TargetSectionCount(%d) = %d, want %d", tt.runes, got, tt.want)
		}
	}
}

func TestRewriter_RejectsShortTextWithoutCalling(t *testing.T) {
	inv := &fakeInvoker{content: sectionsReply(6)}
	r := NewRewriter(inv, "fake")

	_, err := r.Rewrite(context.Background(), RewriteInput{RawText: "   " + longText(49) + "   "})
	if !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if inv.calls != 0 {
		t.Fatalf("expected no upstream call, got %d", inv.calls)
	}
}

func TestRewriter_InstructsTargetCount(t *testing.T) {
	inv := &fakeInvoker{content: sectionsReply(6)}
	r := NewRewriter(inv, "fake")

	if _, err := r.Rewrite(context.Background(), RewriteInput{RawText: longText(3000), ToneID: "professional"}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got := inv.inputs[0].SectionCount; got != 12 {
		t.Fatalf("SectionCount = %d, want 12", got)
	}
	if inv.inputs[0].ToneInstruction == "" {
		t.Fatal("expected tone instruction")
	}
}

func TestRewriter_UnknownToneFallsBackToCasual(t *testing.T) {
	inv := &fakeInvoker{content: sectionsReply(6)}
	r := NewRewriter(inv, "fake")

	_, _ = r.Rewrite(context.Background(), RewriteInput{RawText: longText(600), ToneID: "casual"})
	_, _ = r.Rewrite(context.Background(), RewriteInput{RawText: longText(600), ToneID: "nope"})
	if inv.inputs[0].ToneInstruction != inv.inputs[1].ToneInstruction {
		t.Fatal("unknown tone should use the casual instruction")
	}
}

func TestRewriter_BackfillsIDsAndOrder(t *testing.T) {
	inv := &fakeInvoker{content: "```json\n" + `{"sections":[{"section_text":"一"},{"section_text":"二"},{"section_id":7,"section_text":"三"}]}` + "\n```"}
	r := NewRewriter(inv, "fake")

	res, err := r.Rewrite(context.Background(), RewriteInput{RawText: longText(600)})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if len(res.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(res.Sections))
	}
	wantIDs := []string{"1", "2", "7"}
	for i, s := range res.Sections {
		if s.Order != i+1 {
			t.Errorf("section %d order = %d", i, s.Order)
		}
		if s.SectionID != wantIDs[i] {
			t.Errorf("section %d id = %q, want %q", i, s.SectionID, wantIDs[i])
		}
		if s.AuditStatus != entity.AuditStatusPass || s.ImageURL != "" {
			t.Errorf("section %d not in initial state: %+v", i, s)
		}
	}
	if res.RewrittenText != "一\n\n二\n\n三" {
		t.Fatalf("RewrittenText = %q", res.RewrittenText)
	}
}

func TestRewriter_KeepsArrayOrderAndDedupesIDs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "order field ignored",
			content: `{"sections":[{"section_id":"a","section_text":"二","order":2},{"section_id":"a","section_text":"一","order":"1"}]}`,
			want:    []string{"二", "一"},
		},
		{
			name:    "partial order",
			content: `{"sections":[{"section_text":"A","order":3},{"section_text":"B"},{"section_text":"C"}]}`,
			want:    []string{"A", "B", "C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewRewriter(&fakeInvoker{content: tt.content}, "fake").Rewrite(context.Background(), RewriteInput{RawText: longText(600)})
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			if len(res.Sections) != len(tt.want) {
				t.Fatalf("got %d sections", len(res.Sections))
			}
			seen := map[string]bool{}
			for i, s := range res.Sections {
				if s.Text != tt.want[i] || s.Order != i+1 {
					t.Fatalf("section %d = %q order %d, want %q order %d", i, s.Text, s.Order, tt.want[i], i+1)
				}
				if seen[s.SectionID] {
					t.Fatalf("duplicate id %q", s.SectionID)
				}
				seen[s.SectionID] = true
			}
		})
	}
}

func TestRewriter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		inv  *fakeInvoker
		code apperrors.ErrorCode
	}{
		{name: "network", inv: &fakeInvoker{err: errors.New("dial tcp: connection refused")}, code: apperrors.CodeUpstreamUnavailable},
		{name: "prose only", inv: &fakeInvoker{content: "抱歉，我无法完成"}, code: apperrors.CodeUpstreamParse},
		{name: "no sections", inv: &fakeInvoker{content: `{"items":[]}`}, code: apperrors.CodeUpstreamParse},
		{name: "empty text", inv: &fakeInvoker{content: `{"sections":[{"section_text":""}]}`}, code: apperrors.CodeUpstreamParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRewriter(tt.inv, "fake").Rewrite(context.Background(), RewriteInput{RawText: longText(600)})
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected code %s, got %v", tt.code, err)
			}
		})
	}
}
