package coach

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/llm"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// Missing 是当前正在引导用户补齐的内容的原因码。
const (
	MissingClickBillTile   = "click_bill_tile"
	MissingBiller          = "biller"
	MissingAmount          = "amount"
	MissingContinue        = "continue"
	MissingConfirm         = "confirm"
	MissingClickToContinue = "click_to_continue"
)

// Input 是一次台词生成的完整上下文。
type Input struct {
	UserText      string
	Mode          model.Mode
	Step          model.Step
	Missing       string
	Biller        model.Biller
	Amount        int
	LastAssistant string
	Emotion       model.Emotion
}

// Generator 把对话上下文变成一句简短的口播台词。
// 契约：永远不向调用方抛错；内部失败退化到确定性模板；
// 在可避免时不重复 LastAssistant。
type Generator interface {
	Generate(ctx context.Context, in Input) string
}

// LLMGenerator 用 LLM 生成自然台词，失败时落到模板。
type LLMGenerator struct {
	client llm.Client
	logger *log.Logger
}

func NewLLMGenerator(client llm.Client, logger *log.Logger) *LLMGenerator {
	if logger == nil {
		logger = log.Default()
	}
	return &LLMGenerator{client: client, logger: logger}
}

const coachSystemPrompt = "You are JS Bank's in-app voice assistant.\n" +
	"Style: warm, natural, concise. Avoid repeating yourself.\n" +
	"Never mention code, files, backend, websocket, selectors, or 'modal'.\n" +
	"Guide step-by-step like a helpful bank representative.\n" +
	"If emotion is stressed, be reassuring.\n" +
	"Keep replies 1-2 short sentences.\n"

// Generate 生成一句台词。LLM 不可用、产出为空、或与上一句完全相同时，
// 使用模板台词，保证每回合都有可播报的输出。
func (g *LLMGenerator) Generate(ctx context.Context, in Input) string {
	if g.client == nil {
		return Fallback(in)
	}

	amount := ""
	if in.Amount > 0 {
		amount = strconv.Itoa(in.Amount)
	}

	userMsg := fmt.Sprintf(
		"Context:\n- mode=%s\n- step=%s\n- missing=%s\n- biller=%s\n- amount=%s\n- last_assistant=%s\n- emotion=%s\n\n"+
			"User said: %s\n\nReply with what you will speak now (1-2 sentences).",
		in.Mode, in.Step, in.Missing, in.Biller, amount, in.LastAssistant, in.Emotion, in.UserText)

	out, err := g.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: coachSystemPrompt},
		{Role: "user", Content: userMsg},
	}, nil)
	if err != nil {
		g.logger.Printf("[Coach] generate failed, using template: %v", err)
		return Fallback(in)
	}

	text := strings.TrimSpace(out)
	if text == "" {
		return Fallback(in)
	}
	// LLM 偶尔会原样复读上一句；此时模板反而更不"复读机"。
	if in.LastAssistant != "" && text == in.LastAssistant {
		return Fallback(in)
	}
	return text
}

// Fallback 是确定性模板台词表，按 (是否 stressed, missing 原因码) 取词。
// 每个原因码恰好一条，外加一个兜底。
func Fallback(in Input) string {
	if in.Emotion == model.EmotionStressed {
		switch in.Missing {
		case MissingClickBillTile:
			return "No worries — tap Bill Payment and I'll walk you through it."
		case MissingBiller:
			return "It's okay. Which bill is it — electricity, internet, gas, or mobile?"
		case MissingAmount:
			return "Got it. Tell me the amount you want to pay."
		case MissingContinue:
			return "Perfect — tap Continue to review the payment."
		case MissingConfirm:
			return "All set — tap Pay Now to complete it."
		case MissingClickToContinue:
			return "Take your time — tap the highlighted button and we'll continue."
		}
		return "I'm here with you. Tell me what you want to do next."
	}

	switch in.Missing {
	case MissingClickBillTile:
		return "Tap Bill Payment and we'll start."
	case MissingBiller:
		return "Which bill type is it — electricity, internet, gas, or mobile?"
	case MissingAmount:
		return "What amount would you like to pay?"
	case MissingContinue:
		return "Great — tap Continue."
	case MissingConfirm:
		return "Nice — tap Pay Now to confirm."
	case MissingClickToContinue:
		return "Just tap the highlighted button to continue."
	}
	return "Okay — what would you like to do?"
}
