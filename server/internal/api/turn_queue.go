package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// TurnHandler 处理一个排队的 turn。
type TurnHandler func(ctx context.Context, evt model.TurnEvent) error

// TurnQueue 为单个会话提供串行 turn 处理（Actor Model）。
// 解决问题：
// 1. 防止 SessionState 并发修改导致的数据竞态
// 2. 保证 turn 按到达顺序处理，同一回合的指令列表不会与后续回合交错
//
// 即使客户端在一个 LLM 回合还没结束时就连发多帧，指令顺序也不会乱。
type TurnQueue struct {
	sessionID string
	handler   TurnHandler
	turnChan  chan *queuedTurn
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *log.Logger

	// 统计信息
	mu             sync.Mutex
	totalTurns     int64
	processedTurns int64
	droppedTurns   int64
}

type queuedTurn struct {
	evt       model.TurnEvent
	timestamp time.Time
}

const (
	// 队列容量：超过此值的 turn 将被丢弃（背压控制）
	defaultQueueCapacity = 100
	// 单个 turn 的处理超时（覆盖两次协作方调用的最坏情况）
	defaultTurnTimeout = 60 * time.Second
)

// NewTurnQueue 创建 turn 队列并启动单线程处理器。
func NewTurnQueue(sessionID string, handler TurnHandler, logger *log.Logger) *TurnQueue {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	tq := &TurnQueue{
		sessionID: sessionID,
		handler:   handler,
		turnChan:  make(chan *queuedTurn, defaultQueueCapacity),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	tq.wg.Add(1)
	go tq.processLoop()

	return tq
}

// Enqueue 将 turn 加入队列（异步，非阻塞）。
func (tq *TurnQueue) Enqueue(evt model.TurnEvent) error {
	select {
	case <-tq.ctx.Done():
		return fmt.Errorf("turn queue closed")
	default:
	}

	turn := &queuedTurn{evt: evt, timestamp: time.Now()}

	select {
	case tq.turnChan <- turn:
		tq.mu.Lock()
		tq.totalTurns++
		tq.mu.Unlock()
		return nil
	default:
		// 队列已满，丢弃（背压控制）
		tq.mu.Lock()
		tq.droppedTurns++
		tq.mu.Unlock()
		tq.logger.Printf("[TurnQueue] ⚠️  Queue full, dropping turn: session=%s kind=%s", tq.sessionID, evt.Kind)
		return fmt.Errorf("turn queue full")
	}
}

// processLoop 串行处理 turn（单线程）。
func (tq *TurnQueue) processLoop() {
	defer tq.wg.Done()

	for {
		select {
		case <-tq.ctx.Done():
			return
		case turn := <-tq.turnChan:
			tq.processTurn(turn)
		}
	}
}

func (tq *TurnQueue) processTurn(turn *queuedTurn) {
	startTime := time.Now()
	queueLatency := startTime.Sub(turn.timestamp)

	ctx, cancel := context.WithTimeout(tq.ctx, defaultTurnTimeout)
	defer cancel()

	err := tq.handler(ctx, turn.evt)
	processingTime := time.Since(startTime)

	if err != nil {
		tq.logger.Printf("[TurnQueue] ❌ Turn failed: session=%s kind=%s error=%v processing_time=%v",
			tq.sessionID, turn.evt.Kind, err, processingTime)
	} else {
		tq.logger.Printf("[TurnQueue] Turn processed: session=%s kind=%s queue_latency=%v processing_time=%v",
			tq.sessionID, turn.evt.Kind, queueLatency, processingTime)
	}

	tq.mu.Lock()
	tq.processedTurns++
	tq.mu.Unlock()
}

// Close 关闭队列并等待处理器退出。
func (tq *TurnQueue) Close() error {
	tq.cancel()
	tq.wg.Wait()

	tq.mu.Lock()
	total, processed, dropped := tq.totalTurns, tq.processedTurns, tq.droppedTurns
	tq.mu.Unlock()

	tq.logger.Printf("[TurnQueue] Closed for session %s: total=%d processed=%d dropped=%d pending=%d",
		tq.sessionID, total, processed, dropped, len(tq.turnChan))
	return nil
}

// Stats 返回队列统计信息。
func (tq *TurnQueue) Stats() map[string]any {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	return map[string]any{
		"session_id":      tq.sessionID,
		"total_turns":     tq.totalTurns,
		"processed_turns": tq.processedTurns,
		"dropped_turns":   tq.droppedTurns,
		"pending_turns":   len(tq.turnChan),
		"queue_capacity":  cap(tq.turnChan),
	}
}
