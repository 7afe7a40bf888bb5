package model

import "time"

// Mode 表示用户当前所在的任务轨道。
type Mode string

const (
	ModeNone   Mode = ""
	ModeBills  Mode = "bills"
	ModeTopups Mode = "topups"
	ModeFraud  Mode = "fraud"
	ModeCard   Mode = "card"
)

// Step 标识任务脚本中的位置，所有分支逻辑都由它驱动。
type Step string

const (
	StepStart              Step = "start"
	StepAwaitTileClick     Step = "await_tile_click"
	StepBillsOpen          Step = "bills_open"
	StepChooseBiller       Step = "choose_biller"
	StepEnterAmount        Step = "enter_amount"
	StepAwaitContinueClick Step = "await_continue_click"
	StepBillsConfirm       Step = "bills_confirm"
	StepDone               Step = "done"
)

// Biller 表示账单类型（语音填槽的结果之一）。
type Biller string

const (
	BillerElectricity Biller = "Electricity"
	BillerInternet    Biller = "Internet"
	BillerGas         Biller = "Gas"
	BillerMobile      Biller = "Mobile"
)

// Emotion 表示从用户语音中识别出的情绪。
type Emotion string

const (
	EmotionStressed Emotion = "stressed"
	EmotionNeutral  Emotion = "neutral"
	EmotionHappy    Emotion = "happy"
)

// 槽位名，用于 Asked 集合的标记。
const (
	SlotBiller = "biller"
	SlotAmount = "amount"
)

// SessionState 保存一个会话的全部对话状态。
//
// 生命周期：首个事件到达时懒创建，连接断开时销毁，reset 时整体替换。
// 约束：同一 session 的状态只会被串行的 turn 修改（见 api 层的 TurnQueue）。
type SessionState struct {
	// 唯一标识一个会话（连接建立时由服务端签发）。
	SessionID string `json:"session_id"`

	// 任务轨道与脚本位置。
	Mode Mode `json:"mode"`
	Step Step `json:"step"`

	// 已收集的槽位。一旦填入非空值，只允许被新的非空值替换或被 reset 清空。
	Biller Biller `json:"biller,omitempty"`
	Amount int    `json:"amount,omitempty"`

	// LastAssistant 记录上一句助手台词，用于抑制重复。
	LastAssistant string `json:"last_assistant,omitempty"`
	// Emotion 每次抽取后更新，默认 neutral。
	Emotion Emotion `json:"emotion"`

	// ExpectedClick 非空时进入 guided lock：在该元素上报点击前，
	// 自由语音不会推进脚本。
	ExpectedClick string `json:"expected_click,omitempty"`

	// Asked 记录当前子流程里已经提问过的槽位，避免重复追问。
	Asked map[string]struct{} `json:"-"`
}

// NewSessionState 返回初始会话状态。
// reset 也复用它：整体替换是唯一会清空 mode/槽位/Asked 的操作。
func NewSessionState(id string) *SessionState {
	return &SessionState{
		SessionID: id,
		Mode:      ModeNone,
		Step:      StepStart,
		Emotion:   EmotionNeutral,
		Asked:     make(map[string]struct{}),
	}
}

// ActionType 是下行 UI 指令的类型集合。
type ActionType string

const (
	ActionAgentMessage ActionType = "agent_message"
	ActionHighlight    ActionType = "highlight"
	ActionOpenModal    ActionType = "open_modal"
	ActionCloseModal   ActionType = "close_modal"
	ActionSetField     ActionType = "set_field"
	ActionToast        ActionType = "toast"
	ActionWaitForClick ActionType = "wait_for_click"
)

// UIAction 是发往前端的单条 UI 指令。
// 只填与 Type 相关的字段，其余保持空值（omitempty）。
type UIAction struct {
	Type   ActionType `json:"type"`
	Text   string     `json:"text,omitempty"`
	Target string     `json:"target,omitempty"`
	Value  string     `json:"value,omitempty"`
}

// TurnEventKind 区分上行事件的种类。
// 点击和语音是结构上不同的事件，引擎不从文本里嗅探点击标记。
type TurnEventKind string

const (
	TurnSpeech TurnEventKind = "speech"
	TurnClick  TurnEventKind = "click"
)

// TurnEvent 是引擎的输入事件。
// Kind=speech 时 Text 有效（可以为空串）；Kind=click 时 Target 有效。
type TurnEvent struct {
	Kind   TurnEventKind `json:"kind"`
	Text   string        `json:"text,omitempty"`
	Target string        `json:"target,omitempty"`
}

// SpeechEvent 构造一个语音事件。
func SpeechEvent(text string) TurnEvent {
	return TurnEvent{Kind: TurnSpeech, Text: text}
}

// ClickEvent 构造一个点击事件。
func ClickEvent(target string) TurnEvent {
	return TurnEvent{Kind: TurnClick, Target: target}
}

// TimelineKind 标识 timeline 中一条记录的来源。
type TimelineKind string

const (
	TimelineUserSpeech TimelineKind = "user_speech"
	TimelineUserClick  TimelineKind = "user_click"
	TimelineUIAction   TimelineKind = "ui_action"
)

// TimelineEntry 是会话转写流水中的一条记录，用于回放与验收。
type TimelineEntry struct {
	// Seq 由后端分配的单调序号，同一 session 内严格递增。
	Seq int64 `json:"seq,omitempty"`
	// SessionID 由 timeline 存储补齐，调用方可不传。
	SessionID string `json:"session_id,omitempty"`

	Kind TimelineKind `json:"kind"`
	// Action 仅在 Kind=ui_action 时有效。
	Action ActionType `json:"action,omitempty"`
	Text   string     `json:"text,omitempty"`
	Target string     `json:"target,omitempty"`

	ServerTS time.Time `json:"server_ts"`
}
