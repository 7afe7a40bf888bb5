package nlu

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/llm"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// IntentUnknown 表示没有识别出任务意图。
const IntentUnknown = "unknown"

// Result 是对一句用户语音的结构化理解。
// 零值槽位表示"没抽到"，调用方据此决定是否合并进会话状态。
type Result struct {
	Intent  string        `json:"intent"` // bills|topups|fraud|card|unknown
	Biller  model.Biller  `json:"biller,omitempty"`
	Amount  int           `json:"amount,omitempty"`
	Emotion model.Emotion `json:"emotion"`
}

// Unknown 返回全未知结果（唯一的失败形态）。
func Unknown() Result {
	return Result{Intent: IntentUnknown, Emotion: model.EmotionNeutral}
}

// Mode 把识别出的意图映射为任务轨道；unknown 映射为 ModeNone。
func (r Result) Mode() model.Mode {
	switch r.Intent {
	case "bills":
		return model.ModeBills
	case "topups":
		return model.ModeTopups
	case "fraud":
		return model.ModeFraud
	case "card":
		return model.ModeCard
	default:
		return model.ModeNone
	}
}

// Extractor 把自由语音转成结构化的意图/槽位/情绪。
// 契约：永远不向调用方抛错，内部失败一律折叠为 Unknown()。
type Extractor interface {
	Extract(ctx context.Context, text string) Result
}

// LLMExtractor 用 LLM 的结构化输出做抽取。
type LLMExtractor struct {
	client llm.Client
	logger *log.Logger
}

func NewLLMExtractor(client llm.Client, logger *log.Logger) *LLMExtractor {
	if logger == nil {
		logger = log.Default()
	}
	return &LLMExtractor{client: client, logger: logger}
}

// extractSchema 约束 LLM 只能产出合法枚举值。
var extractSchema = &llm.JSONSchema{
	Name: "nlu_result",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type": "string",
				"enum": []string{"bills", "topups", "fraud", "card", "unknown"},
			},
			"biller": map[string]any{
				"type": []string{"string", "null"},
				"enum": []any{"Electricity", "Internet", "Gas", "Mobile", nil},
			},
			"amount": map[string]any{
				"type": []string{"integer", "null"},
			},
			"emotion": map[string]any{
				"type": "string",
				"enum": []string{"stressed", "neutral", "happy"},
			},
		},
		"required":             []string{"intent", "emotion"},
		"additionalProperties": false,
	},
	Strict: true,
}

const extractSystemPrompt = "You are an NLU extractor for a banking voice assistant. " +
	"Return ONLY structured fields. Be robust to speech errors. " +
	"If user asks how/where/what, infer intent based on topic. " +
	"If unsure, use intent='unknown'."

// Extract 抽取意图/槽位/情绪。任何失败（网络、超时、坏 JSON、越界枚举）
// 都折叠为全未知结果，不会影响对话回合本身。
func (e *LLMExtractor) Extract(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Unknown()
	}
	if e.client == nil {
		return Unknown()
	}

	messages := []llm.Message{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: "User text:\n" + text},
	}

	out, err := e.client.Complete(ctx, messages, extractSchema)
	if err != nil {
		e.logger.Printf("[NLU] extract failed, using unknown result: %v", err)
		return Unknown()
	}

	return parseResult(out, e.logger)
}

// parseResult 解析并净化 LLM 输出。越界值逐字段丢弃而不是整体失败。
func parseResult(raw string, logger *log.Logger) Result {
	var decoded struct {
		Intent  string `json:"intent"`
		Biller  string `json:"biller"`
		Amount  int    `json:"amount"`
		Emotion string `json:"emotion"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		logger.Printf("[NLU] bad extraction payload, using unknown result: %v", err)
		return Unknown()
	}

	res := Unknown()

	switch decoded.Intent {
	case "bills", "topups", "fraud", "card":
		res.Intent = decoded.Intent
	}
	switch model.Biller(decoded.Biller) {
	case model.BillerElectricity, model.BillerInternet, model.BillerGas, model.BillerMobile:
		res.Biller = model.Biller(decoded.Biller)
	}
	// 金额必须是正整数才算抽到。
	if decoded.Amount > 0 {
		res.Amount = decoded.Amount
	}
	switch model.Emotion(decoded.Emotion) {
	case model.EmotionStressed, model.EmotionNeutral, model.EmotionHappy:
		res.Emotion = model.Emotion(decoded.Emotion)
	}

	return res
}
