package statemachine

import (
	"fmt"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Stage 流水线阶段
type Stage string

const (
	StageSourcing   Stage = "sourcing"   // 抓取新闻素材
	StageGenerating Stage = "generating" // 调用模型生成
	StageScoring    Stage = "scoring"    // 质量评分与 EEAT 检查
	StageGated      Stage = "gated"      // 返回预览，等待人工决定
	StagePersisting Stage = "persisting" // 写入文章与计费记录
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// PipelineTransition 阶段迁移
type PipelineTransition struct {
	From Stage
	To   Stage
}

// PipelineStateMachine 流水线状态机
type PipelineStateMachine struct {
	allowedTransitions map[PipelineTransition]bool
}

// NewPipelineStateMachine 创建流水线状态机
func NewPipelineStateMachine() *PipelineStateMachine {
	sm := &PipelineStateMachine{
		allowedTransitions: make(map[PipelineTransition]bool),
	}

	// sourcing -> generating -> scoring -> gated/persisting -> done
	// 任一非终止阶段都可以进入 failed
	transitions := []PipelineTransition{
		{StageSourcing, StageGenerating},
		{StageGenerating, StageScoring},
		{StageScoring, StageGated},
		{StageScoring, StagePersisting},
		{StageGated, StageDone},
		{StagePersisting, StageDone},
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	for _, s := range []Stage{StageSourcing, StageGenerating, StageScoring, StageGated, StagePersisting} {
		sm.allowedTransitions[PipelineTransition{s, StageFailed}] = true
	}

	return sm
}

// CanTransition 检查阶段迁移是否合法
func (sm *PipelineStateMachine) CanTransition(from, to Stage) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[PipelineTransition{From: from, To: to}]
}

// ValidateTransition 验证阶段迁移并返回错误
func (sm *PipelineStateMachine) ValidateTransition(from, to Stage) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStateTransitionError{Kind: "pipeline", From: string(from), To: string(to)}
	}
	return nil
}

// IsTerminal 判断阶段是否为终止态
func IsTerminal(stage Stage) bool {
	return stage == StageDone || stage == StageFailed
}

// IsEntry 流水线只能从这几个阶段开始
// 一键发布预览从 sourcing 开始，自动发布从 generating 开始，提交已审阅内容从 persisting 开始
func IsEntry(stage Stage) bool {
	return stage == StageSourcing || stage == StageGenerating || stage == StagePersisting
}

// Run 一次流水线执行
type Run struct {
	ID       string
	Workflow string

	sm      *PipelineStateMachine
	stage   Stage
	history []Stage
}

// NewRun 从入口阶段开始一次执行
func NewRun(workflow string, entry Stage) (*Run, error) {
	if !IsEntry(entry) {
		return nil, &InvalidStateTransitionError{Kind: "pipeline", From: "start", To: string(entry)}
	}
	r := &Run{
		ID:       uuid.NewString(),
		Workflow: workflow,
		sm:       NewPipelineStateMachine(),
		stage:    entry,
		history:  []Stage{entry},
	}
	klog.V(6).Infof("流水线开始: workflow=%s, runID=%s, stage=%s", workflow, r.ID, entry)
	return r, nil
}

// Stage 当前阶段
func (r *Run) Stage() Stage {
	return r.stage
}

// History 经过的阶段
func (r *Run) History() []Stage {
	return append([]Stage(nil), r.history...)
}

// Advance 迁移到下一阶段（带日志）
func (r *Run) Advance(to Stage) error {
	if err := r.sm.ValidateTransition(r.stage, to); err != nil {
		klog.V(6).Infof("流水线阶段迁移被拒绝: workflow=%s, runID=%s, %s -> %s, error=%v",
			r.Workflow, r.ID, r.stage, to, err)
		return err
	}
	klog.V(6).Infof("流水线阶段迁移: workflow=%s, runID=%s, %s -> %s", r.Workflow, r.ID, r.stage, to)
	r.stage = to
	r.history = append(r.history, to)
	return nil
}

// Fail 进入失败态，返回失败时所在阶段
func (r *Run) Fail(cause error) Stage {
	from := r.stage
	if IsTerminal(from) {
		return from
	}
	klog.Errorf("流水线失败: workflow=%s, runID=%s, stage=%s, error=%v", r.Workflow, r.ID, from, cause)
	r.stage = StageFailed
	r.history = append(r.history, StageFailed)
	return from
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	Kind string
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s", e.Kind, e.From, e.To)
}
