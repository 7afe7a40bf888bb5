package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/llm"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

type stubClient struct {
	out string
	err error
}

func (s *stubClient) Complete(_ context.Context, _ []llm.Message, _ *llm.JSONSchema) (string, error) {
	return s.out, s.err
}

// TestFallbackTableIsTotal 验证模板表对每个原因码（含兜底）都有台词，
// stressed 与其他情绪产出不同的变体。
func TestFallbackTableIsTotal(t *testing.T) {
	missings := []string{
		MissingClickBillTile,
		MissingBiller,
		MissingAmount,
		MissingContinue,
		MissingConfirm,
		MissingClickToContinue,
		"", // 兜底
		"never_seen_reason",
	}

	for _, missing := range missings {
		neutral := Fallback(Input{Missing: missing, Emotion: model.EmotionNeutral})
		stressed := Fallback(Input{Missing: missing, Emotion: model.EmotionStressed})
		happy := Fallback(Input{Missing: missing, Emotion: model.EmotionHappy})

		if neutral == "" || stressed == "" || happy == "" {
			t.Fatalf("missing=%q produced an empty line", missing)
		}
		if neutral != happy {
			t.Fatalf("missing=%q: happy should share the neutral register", missing)
		}
		if neutral == stressed {
			t.Fatalf("missing=%q: stressed variant should differ", missing)
		}
	}
}

// TestGenerateFallsBackOnError 验证协作方失败时退化到模板，不向上抛错。
func TestGenerateFallsBackOnError(t *testing.T) {
	g := NewLLMGenerator(&stubClient{err: errors.New("boom")}, nil)

	in := Input{Missing: MissingBiller, Emotion: model.EmotionNeutral}
	got := g.Generate(context.Background(), in)
	if got != Fallback(in) {
		t.Fatalf("expected template line, got %q", got)
	}
}

// TestGenerateFallsBackOnEmptyOutput 验证空产出同样走模板。
func TestGenerateFallsBackOnEmptyOutput(t *testing.T) {
	g := NewLLMGenerator(&stubClient{out: "   "}, nil)

	in := Input{Missing: MissingAmount, Emotion: model.EmotionStressed}
	if got := g.Generate(context.Background(), in); got != Fallback(in) {
		t.Fatalf("expected template line, got %q", got)
	}
}

// TestGenerateAvoidsRepeatingLastAssistant 验证与上一句完全相同的产出被替换。
func TestGenerateAvoidsRepeatingLastAssistant(t *testing.T) {
	g := NewLLMGenerator(&stubClient{out: "Tap Continue please."}, nil)

	in := Input{
		Missing:       MissingContinue,
		Emotion:       model.EmotionNeutral,
		LastAssistant: "Tap Continue please.",
	}
	got := g.Generate(context.Background(), in)
	if got == in.LastAssistant {
		t.Fatalf("generator repeated the previous line")
	}
	if got != Fallback(in) {
		t.Fatalf("expected template line, got %q", got)
	}
}

// TestGenerateUsesLLMOutput 验证正常路径直接使用修剪后的 LLM 产出。
func TestGenerateUsesLLMOutput(t *testing.T) {
	g := NewLLMGenerator(&stubClient{out: "  Sure, which bill is it?  "}, nil)

	got := g.Generate(context.Background(), Input{Missing: MissingBiller, Emotion: model.EmotionNeutral})
	if got != "Sure, which bill is it?" {
		t.Fatalf("unexpected output: %q", got)
	}
}

// TestNilClientUsesTemplates 验证没有配置 LLM 时完全走确定性路径。
func TestNilClientUsesTemplates(t *testing.T) {
	g := NewLLMGenerator(nil, nil)

	in := Input{Missing: MissingConfirm, Emotion: model.EmotionNeutral}
	if got := g.Generate(context.Background(), in); got != Fallback(in) {
		t.Fatalf("expected template line, got %q", got)
	}
}
