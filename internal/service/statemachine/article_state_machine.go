package statemachine

import (
	"k8s.io/klog/v2"
)

// ArticleStatus 文章状态
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
)

// ArticleTransition 文章状态迁移
type ArticleTransition struct {
	From ArticleStatus
	To   ArticleStatus
}

// ArticleStateMachine 文章状态机
type ArticleStateMachine struct {
	allowedTransitions map[ArticleTransition]bool
}

// NewArticleStateMachine 创建文章状态机
func NewArticleStateMachine() *ArticleStateMachine {
	sm := &ArticleStateMachine{
		allowedTransitions: make(map[ArticleTransition]bool),
	}

	transitions := []ArticleTransition{
		{ArticleStatusDraft, ArticleStatusPublished}, // 发布
		{ArticleStatusPublished, ArticleStatusDraft}, // 撤回
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// IsValid 是否为已知状态
func (sm *ArticleStateMachine) IsValid(status ArticleStatus) bool {
	return status == ArticleStatusDraft || status == ArticleStatusPublished
}

// CanTransition 保存时状态不变视为合法
func (sm *ArticleStateMachine) CanTransition(from, to ArticleStatus) bool {
	if !sm.IsValid(to) {
		return false
	}
	if from == to {
		return true
	}
	return sm.allowedTransitions[ArticleTransition{From: from, To: to}]
}

// Transition 验证文章状态迁移（带日志）
func (sm *ArticleStateMachine) Transition(from, to ArticleStatus, articleID string) error {
	if !sm.CanTransition(from, to) {
		err := &InvalidStateTransitionError{Kind: "article", From: string(from), To: string(to)}
		klog.V(6).Infof("文章状态迁移被拒绝: articleID=%s, %s -> %s", articleID, from, to)
		return err
	}
	if from != to {
		klog.V(6).Infof("文章状态迁移: articleID=%s, %s -> %s", articleID, from, to)
	}
	return nil
}
