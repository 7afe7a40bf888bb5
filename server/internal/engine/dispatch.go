package engine

import (
	"context"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/coach"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// 前端约定的元素选择器。
const (
	SelTileBills       = "#tileBills"
	SelTileTopups      = "#tileTopups"
	SelTileFraud       = "#tileFraud"
	SelTileCard        = "#tileCard"
	SelBillModal       = "#billModal"
	SelBillerSelect    = "#billerSelect"
	SelAmountInput     = "#amountInput"
	SelContinueBillBtn = "#continueBillBtn"
	SelConfirmModal    = "#confirmModal"
	SelConfirmPayBtn   = "#confirmPayBtn"
)

type clickHandler func(*Engine, context.Context, *model.SessionState) []model.UIAction

// clickHandlers 是固定的点击派发表：脚本图在这里一目了然。
// 表里没有的目标落到引擎的兜底回复。
var clickHandlers = map[string]clickHandler{
	SelTileBills:       (*Engine).clickTileBills,
	SelContinueBillBtn: (*Engine).clickContinue,
	SelConfirmPayBtn:   (*Engine).clickConfirm,
	SelTileTopups:      (*Engine).clickOtherTile,
	SelTileFraud:       (*Engine).clickOtherTile,
	SelTileCard:        (*Engine).clickOtherTile,
}

// clickTileBills 进入账单流程。重新进入会清掉两个槽位的 asked 标记，
// 让追问策略在新一轮流程里重新生效（槽位值本身保留）。
func (e *Engine) clickTileBills(ctx context.Context, st *model.SessionState) []model.UIAction {
	st.Mode = model.ModeBills
	st.Step = model.StepBillsOpen
	delete(st.Asked, model.SlotBiller)
	delete(st.Asked, model.SlotAmount)

	return []model.UIAction{
		{Type: model.ActionOpenModal, Target: SelBillModal},
		{Type: model.ActionHighlight, Target: SelBillerSelect},
		e.speak(ctx, st, "User opened bill payment.", coach.MissingBiller),
	}
}

// clickContinue 打开确认页，并锁定到 Pay Now 按钮。
func (e *Engine) clickContinue(ctx context.Context, st *model.SessionState) []model.UIAction {
	st.Step = model.StepBillsConfirm
	st.ExpectedClick = SelConfirmPayBtn

	return []model.UIAction{
		{Type: model.ActionOpenModal, Target: SelConfirmModal},
		{Type: model.ActionHighlight, Target: SelConfirmPayBtn},
		e.speak(ctx, st, "User is reviewing payment.", coach.MissingConfirm),
		{Type: model.ActionWaitForClick, Target: SelConfirmPayBtn},
	}
}

// clickConfirm 完成支付。step 已经是 done 时重放同样的收尾指令（显式幂等）。
func (e *Engine) clickConfirm(ctx context.Context, st *model.SessionState) []model.UIAction {
	st.Step = model.StepDone

	return []model.UIAction{
		e.speak(ctx, st, "Payment completed.", ""),
		{Type: model.ActionToast, Text: "Payment completed"},
		{Type: model.ActionCloseModal, Target: SelConfirmModal},
		{Type: model.ActionCloseModal, Target: SelBillModal},
	}
}

// clickOtherTile 其余磁贴：提示并把用户劝回账单演示路径。
func (e *Engine) clickOtherTile(ctx context.Context, st *model.SessionState) []model.UIAction {
	return []model.UIAction{
		e.speak(ctx, st, "User selected another option.", ""),
		{Type: model.ActionToast, Text: "Demo tip: try Bill Payment"},
		{Type: model.ActionHighlight, Target: SelTileBills},
	}
}
