package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/coach"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/nlu"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/session"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/timeline"
)

// Engine 是每会话的对话状态机。
//
// 职责与契约：
//   - 每个 turn 是 (会话状态, 输入事件) -> (新状态, 有序 UI 指令列表)。
//   - guided lock：ExpectedClick 置位后，只有该元素的点击能推进脚本。
//   - 引擎内部没有致命错误：协作方失败退化到模板台词，未知点击落到兜底回复，
//     每个 turn 都产出非空的指令列表。
//   - 同一 session 的 turn 必须串行调用（由 transport 的 TurnQueue 保证）。
type Engine struct {
	store     session.Store
	timeline  timeline.Store
	extractor nlu.Extractor
	generator coach.Generator
	userName  string
	logger    *log.Logger
	now       func() time.Time
}

func New(store session.Store, tl timeline.Store, extractor nlu.Extractor, generator coach.Generator, userName string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	if userName == "" {
		userName = "there"
	}
	return &Engine{
		store:     store,
		timeline:  tl,
		extractor: extractor,
		generator: generator,
		userName:  userName,
		logger:    logger,
		now:       time.Now,
	}
}

// resetPhrases 是触发整体重置的固定短语集合（大小写不敏感）。
var resetPhrases = map[string]struct{}{
	"reset":      {},
	"restart":    {},
	"start over": {},
}

func isResetPhrase(text string) bool {
	_, ok := resetPhrases[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// HandleTurn 处理一个输入事件，返回按序下发的 UI 指令。
// error 只来自存储层；对话本身永远能产出结果。
func (e *Engine) HandleTurn(ctx context.Context, sessionID string, evt model.TurnEvent) ([]model.UIAction, error) {
	st, err := e.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.recordEvent(ctx, sessionID, evt)

	var actions []model.UIAction
	if evt.Kind == model.TurnSpeech && isResetPhrase(evt.Text) {
		actions, err = e.reset(ctx, sessionID)
	} else {
		actions = e.turn(ctx, st, evt)
		err = e.store.Save(ctx, st)
	}
	if err != nil {
		return nil, err
	}

	e.recordActions(ctx, sessionID, actions)
	e.logger.Printf("[Engine] turn done: session=%s kind=%s actions=%d", sessionID, evt.Kind, len(actions))
	return actions, nil
}

// reset 整体替换会话状态，并返回固定的开场指令。
// 问候语不走生成器：reset 后 LastAssistant 必须是空的。
func (e *Engine) reset(ctx context.Context, sessionID string) ([]model.UIAction, error) {
	if _, err := e.store.Reset(ctx, sessionID); err != nil {
		return nil, err
	}
	return []model.UIAction{
		{Type: model.ActionAgentMessage, Text: fmt.Sprintf("Reset done. What would you like to do, %s?", e.userName)},
		{Type: model.ActionHighlight, Target: SelTileBills},
	}, nil
}

// turn 是除 reset 外的全部处理顺序，每个分支短路返回首个命中的指令列表。
func (e *Engine) turn(ctx context.Context, st *model.SessionState, evt model.TurnEvent) []model.UIAction {
	text := strings.TrimSpace(evt.Text)
	matchingClick := evt.Kind == model.TurnClick && evt.Target == st.ExpectedClick

	// guided lock 生效且输入不是期望的那次点击：不推进脚本，
	// 但语音里的槽位照常机会性抽取，然后重发三连指令。
	if st.ExpectedClick != "" && !matchingClick {
		if evt.Kind == model.TurnSpeech && text != "" {
			e.mergeSlots(st, e.extractor.Extract(ctx, text))
		}
		return e.coachClick(ctx, st, st.ExpectedClick, orDefault(text, "Okay"), coach.MissingClickToContinue)
	}

	if evt.Kind == model.TurnClick {
		if matchingClick {
			st.ExpectedClick = ""
		}
		if handler, ok := clickHandlers[evt.Target]; ok {
			return handler(e, ctx, st)
		}
		// 不在表里的点击目标：静默落到兜底回复。
		e.logger.Printf("[Engine] unknown click target: %s", evt.Target)
		return []model.UIAction{e.speak(ctx, st, "Okay", "")}
	}

	// 自由语音：抽取并合并槽位；mode 未定且意图明确时采纳。
	if text != "" {
		res := e.extractor.Extract(ctx, text)
		e.mergeSlots(st, res)
		if st.Mode == model.ModeNone && res.Intent != nlu.IntentUnknown {
			st.Mode = res.Mode()
			st.Step = model.StepAwaitTileClick
		}
	}

	// mode 仍未定：把用户引向 bills 演示路径（演示脚本策略，不是通用路由）。
	if st.Mode == model.ModeNone {
		st.Mode = model.ModeBills
		st.Step = model.StepAwaitTileClick
		return e.coachClick(ctx, st, SelTileBills, orDefault(text, "Hello"), coach.MissingClickBillTile)
	}

	if st.Mode == model.ModeBills {
		if actions := e.billsTurn(ctx, st, text); actions != nil {
			return actions
		}
	}

	return []model.UIAction{e.speak(ctx, st, orDefault(text, "Okay"), "")}
}

// billsTurn 按 step 推进账单脚本；不认识的 step 返回 nil 落到兜底。
func (e *Engine) billsTurn(ctx context.Context, st *model.SessionState, text string) []model.UIAction {
	switch st.Step {
	case model.StepAwaitTileClick:
		return e.coachClick(ctx, st, SelTileBills, orDefault(text, "Start bill payment"), coach.MissingClickBillTile)

	case model.StepBillsOpen, model.StepChooseBiller:
		st.Step = model.StepChooseBiller

		if st.Biller == "" {
			// 只完整追问一次；之后改用 toast 提醒，不再调生成器。
			if _, asked := st.Asked[model.SlotBiller]; !asked {
				st.Asked[model.SlotBiller] = struct{}{}
				return []model.UIAction{
					{Type: model.ActionOpenModal, Target: SelBillModal},
					{Type: model.ActionHighlight, Target: SelBillerSelect},
					e.speak(ctx, st, text, coach.MissingBiller),
				}
			}
			return []model.UIAction{
				{Type: model.ActionOpenModal, Target: SelBillModal},
				{Type: model.ActionHighlight, Target: SelBillerSelect},
				{Type: model.ActionToast, Text: "Say: electricity / internet / gas / mobile"},
			}
		}

		// biller 已有 -> 进入金额环节。
		st.Step = model.StepEnterAmount
		return []model.UIAction{
			{Type: model.ActionOpenModal, Target: SelBillModal},
			{Type: model.ActionSetField, Target: SelBillerSelect, Value: string(st.Biller)},
			{Type: model.ActionHighlight, Target: SelAmountInput},
			e.speak(ctx, st, text, coach.MissingAmount),
		}

	case model.StepEnterAmount:
		if st.Amount == 0 {
			if _, asked := st.Asked[model.SlotAmount]; !asked {
				st.Asked[model.SlotAmount] = struct{}{}
				return []model.UIAction{
					{Type: model.ActionHighlight, Target: SelAmountInput},
					e.speak(ctx, st, text, coach.MissingAmount),
				}
			}
			return []model.UIAction{
				{Type: model.ActionHighlight, Target: SelAmountInput},
				{Type: model.ActionToast, Text: "Say an amount like: 5000"},
			}
		}

		// 金额已有 -> 必须点击 Continue。
		st.Step = model.StepAwaitContinueClick
		return e.coachClick(ctx, st, SelContinueBillBtn, text, coach.MissingContinue)

	case model.StepAwaitContinueClick:
		return e.coachClick(ctx, st, SelContinueBillBtn, text, coach.MissingContinue)

	case model.StepBillsConfirm:
		return e.coachClick(ctx, st, SelConfirmPayBtn, text, coach.MissingConfirm)
	}

	return nil
}

// speak 产出恰好一条 agent_message，并把台词记为 LastAssistant。
func (e *Engine) speak(ctx context.Context, st *model.SessionState, userText, missing string) model.UIAction {
	msg := e.generator.Generate(ctx, coach.Input{
		UserText:      userText,
		Mode:          st.Mode,
		Step:          st.Step,
		Missing:       missing,
		Biller:        st.Biller,
		Amount:        st.Amount,
		LastAssistant: st.LastAssistant,
		Emotion:       st.Emotion,
	})
	st.LastAssistant = msg
	return model.UIAction{Type: model.ActionAgentMessage, Text: msg}
}

// coachClick 进入 guided lock，并返回固定的三连指令：
// highlight -> 台词 -> wait_for_click。永远恰好三条。
func (e *Engine) coachClick(ctx context.Context, st *model.SessionState, selector, userText, missing string) []model.UIAction {
	st.ExpectedClick = selector
	return []model.UIAction{
		{Type: model.ActionHighlight, Target: selector},
		e.speak(ctx, st, userText, missing),
		{Type: model.ActionWaitForClick, Target: selector},
	}
}

// mergeSlots 把抽取结果并进状态。已填的槽位不会被空值覆盖。
func (e *Engine) mergeSlots(st *model.SessionState, res nlu.Result) {
	st.Emotion = res.Emotion
	if res.Biller != "" {
		st.Biller = res.Biller
	}
	if res.Amount > 0 {
		st.Amount = res.Amount
	}
}

func (e *Engine) recordEvent(ctx context.Context, sessionID string, evt model.TurnEvent) {
	if e.timeline == nil {
		return
	}
	entry := model.TimelineEntry{ServerTS: e.now()}
	switch evt.Kind {
	case model.TurnClick:
		entry.Kind = model.TimelineUserClick
		entry.Target = evt.Target
	default:
		entry.Kind = model.TimelineUserSpeech
		entry.Text = evt.Text
	}
	if _, err := e.timeline.Append(ctx, sessionID, &entry); err != nil {
		e.logger.Printf("[Engine] timeline append failed: %v", err)
	}
}

func (e *Engine) recordActions(ctx context.Context, sessionID string, actions []model.UIAction) {
	if e.timeline == nil {
		return
	}
	for _, a := range actions {
		entry := model.TimelineEntry{
			Kind:     model.TimelineUIAction,
			Action:   a.Type,
			Text:     a.Text,
			Target:   a.Target,
			ServerTS: e.now(),
		}
		if _, err := e.timeline.Append(ctx, sessionID, &entry); err != nil {
			e.logger.Printf("[Engine] timeline append failed: %v", err)
		}
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
